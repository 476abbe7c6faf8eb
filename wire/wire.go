// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire converts between mirror events and their YAML or JSON
// record form, and encodes mirror snapshots.
//
// A record is a mapping with an "op" key naming the event:
//
//	- {op: new_container, path: /}
//	- {op: new_node, path: /n, plugin: "urn:gain"}
//	- {op: new_port, path: /n/in, index: 0, type: audio, value: 0.5}
//	- {op: connect, src: /n/out, dst: /n/in}
//
// Values keep their YAML scalar type (int, float, bool, string); a mapping
// {uri: ...} is a URI value and null is the nil value.
package wire

import (
	"errors"
	"fmt"
	"io"

	"code.hybscloud.com/mirror"
	"gopkg.in/yaml.v3"
)

// ErrUnknownOp is returned for a record whose op names no event.
var ErrUnknownOp = errors.New("wire: unknown op")

// ErrBadRecord is returned for a record with a missing or malformed field.
var ErrBadRecord = errors.New("wire: bad record")

type record struct {
	Op string `yaml:"op"`

	Path      string `yaml:"path"`
	Src       string `yaml:"src"`
	Dst       string `yaml:"dst"`
	Container string `yaml:"container"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Subject   string `yaml:"subject"`
	Port      string `yaml:"port"`

	URI    string `yaml:"uri"`
	Type   string `yaml:"type"`
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Plugin string `yaml:"plugin"`

	Poly       *uint32 `yaml:"poly"`
	Polyphonic bool    `yaml:"polyphonic"`
	Enabled    *bool   `yaml:"enabled"`
	Index      uint32  `yaml:"index"`
	Output     bool    `yaml:"output"`

	Key        string    `yaml:"key"`
	Value      yaml.Node `yaml:"value"`
	Properties yaml.Node `yaml:"properties"`
	Remove     yaml.Node `yaml:"remove"`
	Add        yaml.Node `yaml:"add"`
}

// Decode parses a sequence of records.
func Decode(data []byte) ([]mirror.Event, error) {
	var recs []record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	events := make([]mirror.Event, 0, len(recs))
	for i := range recs {
		ev, err := recs[i].event()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeRecord parses a single record.
func DecodeRecord(data []byte) (mirror.Event, error) {
	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return rec.event()
}

// EncodeSnapshot writes s to w as YAML.
func EncodeSnapshot(w io.Writer, s mirror.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func (rec *record) event() (mirror.Event, error) {
	switch rec.Op {
	case "new_plugin":
		if rec.URI == "" {
			return nil, fmt.Errorf("%w: new_plugin without uri", ErrBadRecord)
		}
		props, err := properties(&rec.Properties)
		if err != nil {
			return nil, err
		}
		return mirror.NewPlugin{URI: rec.URI, Type: rec.Type, Symbol: rec.Symbol, Name: rec.Name, Properties: props}, nil

	case "new_container":
		p, err := path("path", rec.Path)
		if err != nil {
			return nil, err
		}
		props, err := properties(&rec.Properties)
		if err != nil {
			return nil, err
		}
		ev := mirror.NewContainer{Path: p, Poly: 1, Polyphonic: rec.Polyphonic, Enabled: true, Properties: props}
		if rec.Poly != nil {
			ev.Poly = *rec.Poly
		}
		if rec.Enabled != nil {
			ev.Enabled = *rec.Enabled
		}
		return ev, nil

	case "new_node":
		p, err := path("path", rec.Path)
		if err != nil {
			return nil, err
		}
		props, err := properties(&rec.Properties)
		if err != nil {
			return nil, err
		}
		return mirror.NewNode{Path: p, PluginURI: rec.Plugin, Polyphonic: rec.Polyphonic, Properties: props}, nil

	case "new_port":
		p, err := path("path", rec.Path)
		if err != nil {
			return nil, err
		}
		props, err := properties(&rec.Properties)
		if err != nil {
			return nil, err
		}
		v, err := value(&rec.Value)
		if err != nil {
			return nil, err
		}
		return mirror.NewPort{
			Path:       p,
			Index:      rec.Index,
			Type:       mirror.ParsePortType(rec.Type),
			IsOutput:   rec.Output,
			Value:      v,
			Properties: props,
		}, nil

	case "connect", "disconnect":
		src, err := path("src", rec.Src)
		if err != nil {
			return nil, err
		}
		dst, err := path("dst", rec.Dst)
		if err != nil {
			return nil, err
		}
		if rec.Op == "connect" {
			return mirror.Connect{Src: src, Dst: dst}, nil
		}
		return mirror.Disconnect{Src: src, Dst: dst}, nil

	case "disconnect_all":
		c, err := path("container", rec.Container)
		if err != nil {
			return nil, err
		}
		p, err := path("path", rec.Path)
		if err != nil {
			return nil, err
		}
		return mirror.DisconnectAll{Container: c, Path: p}, nil

	case "destroy", "container_enabled", "container_disabled", "container_cleared", "container_poly":
		p, err := path("path", rec.Path)
		if err != nil {
			return nil, err
		}
		switch rec.Op {
		case "destroy":
			return mirror.Destroy{Path: p}, nil
		case "container_enabled":
			return mirror.ContainerEnabled{Path: p}, nil
		case "container_disabled":
			return mirror.ContainerDisabled{Path: p}, nil
		case "container_cleared":
			return mirror.ContainerCleared{Path: p}, nil
		}
		if rec.Poly == nil || *rec.Poly == 0 {
			return nil, fmt.Errorf("%w: container_poly needs a positive poly", ErrBadRecord)
		}
		return mirror.ContainerPoly{Path: p, Poly: *rec.Poly}, nil

	case "rename":
		from, err := path("from", rec.From)
		if err != nil {
			return nil, err
		}
		to, err := path("to", rec.To)
		if err != nil {
			return nil, err
		}
		return mirror.Rename{From: from, To: to}, nil

	case "set_property":
		if rec.Subject == "" || rec.Key == "" {
			return nil, fmt.Errorf("%w: set_property needs subject and key", ErrBadRecord)
		}
		v, err := value(&rec.Value)
		if err != nil {
			return nil, err
		}
		return mirror.SetProperty{Subject: mirror.Path(rec.Subject), Key: rec.Key, Value: v}, nil

	case "delta":
		p, err := path("subject", rec.Subject)
		if err != nil {
			return nil, err
		}
		remove, err := properties(&rec.Remove)
		if err != nil {
			return nil, err
		}
		add, err := properties(&rec.Add)
		if err != nil {
			return nil, err
		}
		return mirror.Delta{Subject: p, Remove: remove, Add: add}, nil

	case "set_value":
		p, err := path("port", rec.Port)
		if err != nil {
			return nil, err
		}
		v, err := value(&rec.Value)
		if err != nil {
			return nil, err
		}
		return mirror.SetValue{Port: p, Value: v}, nil

	case "":
		return nil, fmt.Errorf("%w: missing op", ErrBadRecord)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, rec.Op)
}

func path(field, s string) (mirror.Path, error) {
	p, err := mirror.ParsePath(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBadRecord, field, err)
	}
	return p, nil
}

// properties decodes a mapping node, keeping document order.
func properties(n *yaml.Node) ([]mirror.Property, error) {
	if n.Kind == 0 || n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: properties must be a mapping", ErrBadRecord, n.Line)
	}
	props := make([]mirror.Property, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := value(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		props = append(props, mirror.Property{Key: n.Content[i].Value, Value: v})
	}
	return props, nil
}

func value(n *yaml.Node) (mirror.Value, error) {
	switch n.Kind {
	case 0:
		return mirror.Value{}, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return mirror.Value{}, nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return mirror.Value{}, fmt.Errorf("%w: line %d: %w", ErrBadRecord, n.Line, err)
			}
			return mirror.Int(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return mirror.Value{}, fmt.Errorf("%w: line %d: %w", ErrBadRecord, n.Line, err)
			}
			return mirror.Float(f), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return mirror.Value{}, fmt.Errorf("%w: line %d: %w", ErrBadRecord, n.Line, err)
			}
			return mirror.Bool(b), nil
		default:
			return mirror.String(n.Value), nil
		}
	case yaml.MappingNode:
		if len(n.Content) == 2 && n.Content[0].Value == "uri" {
			return mirror.URI(n.Content[1].Value), nil
		}
	}
	return mirror.Value{}, fmt.Errorf("%w: line %d: unsupported value", ErrBadRecord, n.Line)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"slices"
	"strings"
)

// Snapshot is a detached, order-normalized copy of a mirror.
//
// Entities appear in path order. Children, properties and connections are
// sorted, so two mirrors that reached the same state through different
// event orders produce equal snapshots.
type Snapshot struct {
	Entities []EntitySnapshot `yaml:"entities"`
	Plugins  []PluginSnapshot `yaml:"plugins,omitempty"`
	Pending  Pending          `yaml:"pending"`
}

// EntitySnapshot is the state of one entity.
type EntitySnapshot struct {
	Path       string             `yaml:"path"`
	Kind       string             `yaml:"kind"`
	Children   []string           `yaml:"children,omitempty"`
	Properties map[string]string  `yaml:"properties,omitempty"`
	Container  *ContainerSnapshot `yaml:"container,omitempty"`
	Node       *NodeSnapshot      `yaml:"node,omitempty"`
	Port       *PortSnapshot      `yaml:"port,omitempty"`

	// Connections are the connections owned by a container as "src -> dst".
	Connections []string `yaml:"connections,omitempty"`
}

// ContainerSnapshot holds the container fields of an EntitySnapshot.
type ContainerSnapshot struct {
	Poly       uint32 `yaml:"poly"`
	Polyphonic bool   `yaml:"polyphonic"`
	Enabled    bool   `yaml:"enabled"`
}

// NodeSnapshot holds the node fields of an EntitySnapshot.
type NodeSnapshot struct {
	Plugin     string `yaml:"plugin"`
	Resolved   bool   `yaml:"resolved"`
	Polyphonic bool   `yaml:"polyphonic"`
}

// PortSnapshot holds the port fields of an EntitySnapshot.
type PortSnapshot struct {
	Index       uint32 `yaml:"index"`
	Type        string `yaml:"type"`
	Direction   string `yaml:"direction"`
	Value       string `yaml:"value,omitempty"`
	Connections int    `yaml:"connections"`
}

// PluginSnapshot is the state of one plugin.
type PluginSnapshot struct {
	URI        string            `yaml:"uri"`
	Type       string            `yaml:"type,omitempty"`
	Symbol     string            `yaml:"symbol,omitempty"`
	Name       string            `yaml:"name,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Snapshot captures the current state of the mirror.
func (r *Reconciler) Snapshot() Snapshot {
	var s Snapshot
	r.store.Walk(func(e *Entity) bool {
		s.Entities = append(s.Entities, snapshotEntity(e))
		return true
	})
	for _, p := range r.Plugins() {
		s.Plugins = append(s.Plugins, PluginSnapshot{
			URI:        p.URI,
			Type:       p.Type,
			Symbol:     p.Symbol,
			Name:       p.Name,
			Properties: snapshotProperties(&p.props),
		})
	}
	s.Pending = r.Pending()
	return s
}

func snapshotEntity(e *Entity) EntitySnapshot {
	es := EntitySnapshot{
		Path:       string(e.path),
		Kind:       e.kind.String(),
		Children:   slices.Sorted(slices.Values(e.children)),
		Properties: snapshotProperties(&e.props),
	}
	switch e.kind {
	case KindContainer:
		c := *e.container
		es.Container = &ContainerSnapshot{Poly: c.Poly, Polyphonic: c.Polyphonic, Enabled: c.Enabled}
	case KindNode:
		es.Node = &NodeSnapshot{Plugin: e.node.PluginURI, Resolved: e.node.Plugin != nil, Polyphonic: e.node.Polyphonic}
	case KindPort:
		p := e.port
		es.Port = &PortSnapshot{
			Index:       p.Index,
			Type:        p.Type.String(),
			Direction:   p.Direction.String(),
			Connections: p.Connections,
		}
		if !p.Value.IsNil() {
			es.Port.Value = p.Value.String()
		}
	}
	for _, c := range e.conns {
		es.Connections = append(es.Connections, string(c.Source())+" -> "+string(c.Destination()))
	}
	slices.SortFunc(es.Connections, strings.Compare)
	if len(es.Children) == 0 {
		es.Children = nil
	}
	return es
}

func snapshotProperties(p *Properties) map[string]string {
	if p.Len() == 0 {
		return nil
	}
	m := make(map[string]string, p.Len())
	p.All(func(k string, v Value) bool {
		m[k] = v.String()
		return true
	})
	return m
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"math"
	"slices"
)

// Kind discriminates the variants of an [Entity].
type Kind uint8

const (
	KindContainer Kind = iota + 1
	KindNode
	KindPort
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindNode:
		return "node"
	case KindPort:
		return "port"
	default:
		return "unknown"
	}
}

// Direction is the data-flow direction of a port.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// PortType is the data-type tag of a port.
type PortType uint8

const (
	PortUnknown PortType = iota
	PortAudio
	PortControl
	PortCV
	PortEvent
)

var portTypeNames = [...]string{
	PortUnknown: "unknown",
	PortAudio:   "audio",
	PortControl: "control",
	PortCV:      "cv",
	PortEvent:   "event",
}

// String returns the name of the port type.
func (t PortType) String() string {
	if int(t) < len(portTypeNames) {
		return portTypeNames[t]
	}
	return "unknown"
}

// ParsePortType maps a type name to a PortType. Unrecognized names map to
// PortUnknown. "midi" is accepted as an alias of "event".
func ParsePortType(s string) PortType {
	switch s {
	case "audio":
		return PortAudio
	case "control":
		return PortControl
	case "cv":
		return PortCV
	case "event", "midi":
		return PortEvent
	}
	return PortUnknown
}

// Container holds the variant fields of a container (patch) entity.
type Container struct {
	Poly       uint32
	Polyphonic bool
	Enabled    bool
}

// Node holds the variant fields of a node (plugin instance) entity.
type Node struct {
	PluginURI  string
	Plugin     *Plugin
	Polyphonic bool
}

// Port holds the variant fields of a port entity.
type Port struct {
	Index       uint32
	Type        PortType
	Direction   Direction
	Value       Value
	Connections int
}

// Entity is one container, node or port in the mirrored graph.
//
// Entities are owned by the Store. The parent is addressed by path and
// holds the child's name in its ordered child list; neither side holds an
// owning reference to the other.
type Entity struct {
	path     Path
	kind     Kind
	children []string
	props    Properties

	container *Container
	node      *Node
	port      *Port

	// conns is the connection list of a container.
	conns []*Connection
}

// NewContainerEntity returns a detached container entity.
func NewContainerEntity(path Path, c Container) *Entity {
	if c.Poly == 0 {
		c.Poly = 1
	}
	return &Entity{path: path, kind: KindContainer, container: &c}
}

// NewNodeEntity returns a detached node entity.
func NewNodeEntity(path Path, n Node) *Entity {
	return &Entity{path: path, kind: KindNode, node: &n}
}

// NewPortEntity returns a detached port entity.
func NewPortEntity(path Path, p Port) *Entity {
	p.Connections = 0
	return &Entity{path: path, kind: KindPort, port: &p}
}

// Path returns the current path of e.
func (e *Entity) Path() Path { return e.path }

// Name returns the last segment of the path of e.
func (e *Entity) Name() string { return e.path.Name() }

// Parent returns the path of the parent of e.
func (e *Entity) Parent() Path { return e.path.Parent() }

// Kind returns the variant of e.
func (e *Entity) Kind() Kind { return e.kind }

// Container returns the container fields of e.
func (e *Entity) Container() (Container, bool) {
	if e.container == nil {
		return Container{}, false
	}
	return *e.container, true
}

// Node returns the node fields of e.
func (e *Entity) Node() (Node, bool) {
	if e.node == nil {
		return Node{}, false
	}
	return *e.node, true
}

// Port returns the port fields of e.
func (e *Entity) Port() (Port, bool) {
	if e.port == nil {
		return Port{}, false
	}
	return *e.port, true
}

// Children returns the paths of the children of e in insertion order.
func (e *Entity) Children() []Path {
	out := make([]Path, len(e.children))
	for i, name := range e.children {
		out[i] = e.path.Child(name)
	}
	return out
}

// Property returns the property stored under key.
func (e *Entity) Property(key string) (Value, bool) { return e.props.Get(key) }

// PropertyKeys returns the property keys of e in insertion order.
func (e *Entity) PropertyKeys() []string { return e.props.Keys() }

// Connections returns the connections owned by a container, in the order
// they were established. It returns nil for nodes and ports.
func (e *Entity) Connections() []*Connection { return slices.Clone(e.conns) }

// canParent reports whether e may hold a child of kind k.
func (e *Entity) canParent(k Kind) bool {
	switch e.kind {
	case KindContainer:
		return true
	case KindNode:
		return k == KindPort
	default:
		return false
	}
}

func (e *Entity) samePath(o *Entity) bool { return e.path == o.path }

func (e *Entity) addChild(name string) {
	if !slices.Contains(e.children, name) {
		e.children = append(e.children, name)
	}
}

func (e *Entity) removeChild(name string) {
	e.children = slices.DeleteFunc(e.children, func(n string) bool { return n == name })
}

// mergeFields copies the variant fields of src onto e, preserving the
// identity of e. The fields of src win. Children, connections, properties
// and the live port value and connection count of e are left alone.
func (e *Entity) mergeFields(src *Entity) {
	switch e.kind {
	case KindContainer:
		*e.container = *src.container
	case KindNode:
		plugin := e.node.Plugin
		*e.node = *src.node
		if e.node.Plugin == nil && e.node.PluginURI == plugin.uriOrEmpty() {
			e.node.Plugin = plugin
		}
	case KindPort:
		value, conns := e.port.Value, e.port.Connections
		*e.port = *src.port
		e.port.Value = value
		e.port.Connections = conns
	}
}

// validField reports whether v can be stored under a well-known key of e.
// Other keys accept any value.
func (e *Entity) validField(key string, v Value) bool {
	switch key {
	case KeyEnabled:
		if e.kind != KindContainer {
			return true
		}
		return v.Kind() == ValueBool
	case KeyPolyphonic:
		if e.kind == KindPort {
			return true
		}
		return v.Kind() == ValueBool
	case KeyPolyphony:
		if e.kind != KindContainer {
			return true
		}
		n, ok := v.Int()
		return ok && n > 0 && n <= math.MaxUint32
	}
	return true
}

// bindPlugin resolves the plugin of a node still announced with p's URI.
func (e *Entity) bindPlugin(p *Plugin) {
	if e.node.Plugin == nil && e.node.PluginURI == p.URI {
		e.node.Plugin = p
	}
}

// applyField mirrors a well-known property into the variant fields of e.
// It reports whether the live value of a port changed.
func (e *Entity) applyField(key string, v Value) bool {
	switch e.kind {
	case KindContainer:
		switch key {
		case KeyEnabled:
			if b, ok := v.Bool(); ok {
				e.container.Enabled = b
			}
		case KeyPolyphony:
			if n, ok := v.Int(); ok && n > 0 {
				e.container.Poly = uint32(n)
			}
		case KeyPolyphonic:
			if b, ok := v.Bool(); ok {
				e.container.Polyphonic = b
			}
		}
	case KindNode:
		if b, ok := v.Bool(); ok && key == KeyPolyphonic {
			e.node.Polyphonic = b
		}
	case KindPort:
		if key == KeyValue && !v.Equal(e.port.Value) {
			e.port.Value = v
			return true
		}
	}
	return false
}

// Connection is a directed edge between two ports, owned by a container.
type Connection struct {
	src *Entity
	dst *Entity
}

// Source returns the current path of the source port.
func (c *Connection) Source() Path { return c.src.path }

// Destination returns the current path of the destination port.
func (c *Connection) Destination() Path { return c.dst.path }

// touches reports whether either endpoint lies within root.
func (c *Connection) touches(root Path) bool {
	return c.src.path.Within(root) || c.dst.path.Within(root)
}

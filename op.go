// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

// Event is one decoded notification from the remote engine.
//
// Events are immutable values. They are produced on the transport
// goroutine, carried through a [Queue], and dispatched on the consumer
// goroutine by [Reconciler.Apply]. The set of events is closed.
type Event interface {
	// Op returns the wire name of the event, e.g. "new_node".
	Op() string
	dispatch(r *Reconciler)
}

// Property is a key/value pair carried by an event.
type Property struct {
	Key   string
	Value Value
}

// Well-known property keys mirrored into entity fields.
const (
	KeyValue      = "ingen:value"
	KeyEnabled    = "ingen:enabled"
	KeyPolyphony  = "ingen:polyphony"
	KeyPolyphonic = "ingen:polyphonic"
)

// NewPlugin registers a plugin definition.
type NewPlugin struct {
	URI        string
	Type       string
	Symbol     string
	Name       string
	Properties []Property
}

func (NewPlugin) Op() string { return "new_plugin" }

func (ev NewPlugin) dispatch(r *Reconciler) {
	p := &Plugin{URI: ev.URI, Type: ev.Type, Symbol: ev.Symbol, Name: ev.Name}
	for _, prop := range ev.Properties {
		p.props.Set(prop.Key, prop.Value)
	}
	r.addPlugin(p)
}

// NewContainer announces a container.
type NewContainer struct {
	Path       Path
	Poly       uint32
	Polyphonic bool
	Enabled    bool
	Properties []Property
}

func (NewContainer) Op() string { return "new_container" }

func (ev NewContainer) dispatch(r *Reconciler) {
	e := NewContainerEntity(ev.Path, Container{Poly: ev.Poly, Polyphonic: ev.Polyphonic, Enabled: ev.Enabled})
	c := e.container
	e.props.Set(KeyPolyphony, Int(int64(c.Poly)))
	e.props.Set(KeyPolyphonic, Bool(c.Polyphonic))
	e.props.Set(KeyEnabled, Bool(c.Enabled))
	setAll(e, ev.Properties)
	r.addEntity(e)
}

// NewNode announces an instance of the plugin PluginURI.
type NewNode struct {
	Path       Path
	PluginURI  string
	Polyphonic bool
	Properties []Property
}

func (NewNode) Op() string { return "new_node" }

func (ev NewNode) dispatch(r *Reconciler) {
	e := NewNodeEntity(ev.Path, Node{PluginURI: ev.PluginURI, Polyphonic: ev.Polyphonic})
	e.props.Set(KeyPolyphonic, Bool(ev.Polyphonic))
	setAll(e, ev.Properties)
	r.addNode(e)
}

// NewPort announces a port of a node or container.
// A nil Value leaves the live value of a known port unchanged.
type NewPort struct {
	Path       Path
	Index      uint32
	Type       PortType
	IsOutput   bool
	Value      Value
	Properties []Property
}

func (NewPort) Op() string { return "new_port" }

func (ev NewPort) dispatch(r *Reconciler) {
	dir := Input
	if ev.IsOutput {
		dir = Output
	}
	e := NewPortEntity(ev.Path, Port{Index: ev.Index, Type: ev.Type, Direction: dir})
	setAll(e, ev.Properties)
	if !ev.Value.IsNil() {
		e.props.Set(KeyValue, ev.Value)
	}
	r.addEntity(e)
}

// Connect announces a connection from the port Src to the port Dst.
type Connect struct {
	Src Path
	Dst Path
}

func (Connect) Op() string { return "connect" }

func (ev Connect) dispatch(r *Reconciler) { r.connect(ev.Src, ev.Dst) }

// Disconnect announces the removal of a connection.
type Disconnect struct {
	Src Path
	Dst Path
}

func (Disconnect) Op() string { return "disconnect" }

func (ev Disconnect) dispatch(r *Reconciler) { r.disconnect(ev.Src, ev.Dst) }

// DisconnectAll removes every connection in Container that touches Path
// or one of the ports of Path.
type DisconnectAll struct {
	Container Path
	Path      Path
}

func (DisconnectAll) Op() string { return "disconnect_all" }

func (ev DisconnectAll) dispatch(r *Reconciler) { r.disconnectAll(ev.Container, ev.Path) }

// Destroy removes an entity and its whole subtree.
type Destroy struct {
	Path Path
}

func (Destroy) Op() string { return "destroy" }

func (ev Destroy) dispatch(r *Reconciler) { r.destroy(ev.Path) }

// Rename moves the subtree at From to To.
type Rename struct {
	From Path
	To   Path
}

func (Rename) Op() string { return "rename" }

func (ev Rename) dispatch(r *Reconciler) { r.rename(ev.From, ev.To) }

// SetProperty writes one property of an entity. A Subject that is not a
// valid path addresses the plugin with that URI.
type SetProperty struct {
	Subject Path
	Key     string
	Value   Value
}

func (SetProperty) Op() string { return "set_property" }

func (ev SetProperty) dispatch(r *Reconciler) { r.setSubjectProperty(ev.Subject, ev.Key, ev.Value) }

// Delta removes and then adds properties of a known entity.
// A nil value in Remove matches any stored value.
type Delta struct {
	Subject Path
	Remove  []Property
	Add     []Property
}

func (Delta) Op() string { return "delta" }

func (ev Delta) dispatch(r *Reconciler) { r.delta(ev.Subject, ev.Remove, ev.Add) }

// SetValue updates the live value of a port.
type SetValue struct {
	Port  Path
	Value Value
}

func (SetValue) Op() string { return "set_value" }

func (ev SetValue) dispatch(r *Reconciler) { r.setPortValue(ev.Port, ev.Value) }

// ContainerEnabled marks a container as processing.
type ContainerEnabled struct {
	Path Path
}

func (ContainerEnabled) Op() string { return "container_enabled" }

func (ev ContainerEnabled) dispatch(r *Reconciler) {
	r.setContainerFlag(ev.Path, KeyEnabled, Bool(true))
}

// ContainerDisabled marks a container as not processing.
type ContainerDisabled struct {
	Path Path
}

func (ContainerDisabled) Op() string { return "container_disabled" }

func (ev ContainerDisabled) dispatch(r *Reconciler) {
	r.setContainerFlag(ev.Path, KeyEnabled, Bool(false))
}

// ContainerPoly sets the internal polyphony of a container.
type ContainerPoly struct {
	Path Path
	Poly uint32
}

func (ContainerPoly) Op() string { return "container_poly" }

func (ev ContainerPoly) dispatch(r *Reconciler) {
	r.setContainerFlag(ev.Path, KeyPolyphony, Int(int64(ev.Poly)))
}

// ContainerCleared removes every descendant of a container, keeping the
// container itself.
type ContainerCleared struct {
	Path Path
}

func (ContainerCleared) Op() string { return "container_cleared" }

func (ev ContainerCleared) dispatch(r *Reconciler) { r.clearContainer(ev.Path) }

func setAll(e *Entity, props []Property) {
	for _, p := range props {
		if e.validField(p.Key, p.Value) {
			e.props.Set(p.Key, p.Value)
		}
	}
}

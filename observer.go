// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

// Observer receives change notifications from a [Reconciler].
//
// Notifications are delivered synchronously on the goroutine that pumps
// events, in registration order. An observer must not apply events to the
// Reconciler that notified it.
type Observer interface {
	// OnNewEntity is called once an entity has been attached to the tree.
	OnNewEntity(e *Entity)
	// OnRemovedEntity is called exactly once for every entity removed by a
	// destroy or clear, after the whole subtree has left the Store.
	OnRemovedEntity(e *Entity)
	// OnPropertyChanged is called when a property write changes a stored
	// value. A nil value reports a removed property.
	OnPropertyChanged(e *Entity, key string, v Value)
	// OnValueChanged is called when the live value of a port changes.
	OnValueChanged(port *Entity, v Value)
}

// ConnectionObserver is implemented by observers that track connections.
type ConnectionObserver interface {
	OnNewConnection(owner *Entity, c *Connection)
	OnRemovedConnection(owner *Entity, c *Connection)
}

// PluginObserver is implemented by observers that track the plugin registry.
type PluginObserver interface {
	OnNewPlugin(p *Plugin)
}

// RenameObserver is implemented by observers that track moves.
// OnRenamedEntity is called for every entity of a renamed subtree once the
// whole subtree is visible under its new paths.
type RenameObserver interface {
	OnRenamedEntity(e *Entity, from Path)
}

// ObserverFuncs adapts optional callbacks to every observer interface.
// Nil fields are skipped.
type ObserverFuncs struct {
	NewEntity         func(e *Entity)
	RemovedEntity     func(e *Entity)
	PropertyChanged   func(e *Entity, key string, v Value)
	ValueChanged      func(port *Entity, v Value)
	NewConnection     func(owner *Entity, c *Connection)
	RemovedConnection func(owner *Entity, c *Connection)
	NewPlugin         func(p *Plugin)
	RenamedEntity     func(e *Entity, from Path)
}

func (f ObserverFuncs) OnNewEntity(e *Entity) {
	if f.NewEntity != nil {
		f.NewEntity(e)
	}
}

func (f ObserverFuncs) OnRemovedEntity(e *Entity) {
	if f.RemovedEntity != nil {
		f.RemovedEntity(e)
	}
}

func (f ObserverFuncs) OnPropertyChanged(e *Entity, key string, v Value) {
	if f.PropertyChanged != nil {
		f.PropertyChanged(e, key, v)
	}
}

func (f ObserverFuncs) OnValueChanged(port *Entity, v Value) {
	if f.ValueChanged != nil {
		f.ValueChanged(port, v)
	}
}

func (f ObserverFuncs) OnNewConnection(owner *Entity, c *Connection) {
	if f.NewConnection != nil {
		f.NewConnection(owner, c)
	}
}

func (f ObserverFuncs) OnRemovedConnection(owner *Entity, c *Connection) {
	if f.RemovedConnection != nil {
		f.RemovedConnection(owner, c)
	}
}

func (f ObserverFuncs) OnNewPlugin(p *Plugin) {
	if f.NewPlugin != nil {
		f.NewPlugin(p)
	}
}

func (f ObserverFuncs) OnRenamedEntity(e *Entity, from Path) {
	if f.RenamedEntity != nil {
		f.RenamedEntity(e, from)
	}
}

// Requester issues repair requests to the remote engine.
// The Reconciler calls it when an orphan is first queued for a key;
// retrying is up to the implementation.
type Requester interface {
	RequestObject(p Path)
	RequestPlugin(uri string)
}

type nopRequester struct{}

func (nopRequester) RequestObject(Path)   {}
func (nopRequester) RequestPlugin(string) {}

type observerEntry struct {
	id uint64
	o  Observer
}

func (r *Reconciler) notifyNew(e *Entity) {
	for _, ob := range r.observers {
		ob.o.OnNewEntity(e)
	}
}

func (r *Reconciler) notifyRemoved(e *Entity) {
	for _, ob := range r.observers {
		ob.o.OnRemovedEntity(e)
	}
}

func (r *Reconciler) notifyProperty(e *Entity, key string, v Value) {
	for _, ob := range r.observers {
		ob.o.OnPropertyChanged(e, key, v)
	}
}

func (r *Reconciler) notifyValue(e *Entity, v Value) {
	for _, ob := range r.observers {
		ob.o.OnValueChanged(e, v)
	}
}

func (r *Reconciler) notifyNewConnection(owner *Entity, c *Connection) {
	for _, ob := range r.observers {
		if co, ok := ob.o.(ConnectionObserver); ok {
			co.OnNewConnection(owner, c)
		}
	}
}

func (r *Reconciler) notifyRemovedConnection(owner *Entity, c *Connection) {
	for _, ob := range r.observers {
		if co, ok := ob.o.(ConnectionObserver); ok {
			co.OnRemovedConnection(owner, c)
		}
	}
}

func (r *Reconciler) notifyNewPlugin(p *Plugin) {
	for _, ob := range r.observers {
		if po, ok := ob.o.(PluginObserver); ok {
			po.OnNewPlugin(p)
		}
	}
}

func (r *Reconciler) notifyRenamed(e *Entity, from Path) {
	for _, ob := range r.observers {
		if ro, ok := ob.o.(RenameObserver); ok {
			ro.OnRenamedEntity(e, from)
		}
	}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"code.hybscloud.com/kont"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
)

// edge is a connection known only by its endpoint paths.
type edge struct {
	src Path
	dst Path
}

func (ed edge) String() string { return string(ed.src) + " -> " + string(ed.dst) }

// Reconciler applies engine notifications to a [Store] and resolves the
// orphans that out-of-order delivery leaves behind.
//
// A Reconciler is single-threaded and non-reentrant: every event is
// applied synchronously by [Reconciler.Apply] or [Reconciler.Pump] on the
// consumer goroutine, and the Store, the plugin registry and the four
// orphan ledgers are only ever mutated from there. Producers on other
// goroutines hand events over through a [Queue].
type Reconciler struct {
	serial  Serial
	store   *Store
	plugins map[string]*Plugin

	orphans         ledger[Path, *Entity]
	edgeOrphans     ledger[Path, edge]
	pluginOrphans   ledger[string, *Entity]
	propertyOrphans ledger[Path, Property]
	pendingEdges    map[edge]struct{}

	observers    []observerEntry
	nextObserver uint64
	requester    Requester
	metrics      *metrics
	pumpLimit    int
	dispatching  bool
}

// Option configures a Reconciler.
type Option func(*options)

type options struct {
	requester  Requester
	registerer prometheus.Registerer
	namespace  string
	pumpLimit  int
	observers  []Observer
}

// WithRequester sets the sink for repair requests. The default drops them.
func WithRequester(rq Requester) Option {
	return func(o *options) { o.requester = rq }
}

// WithRegisterer registers the Reconciler's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithConfig applies the metrics namespace and the pump limit of cfg.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.namespace = cfg.MetricsNamespace
		o.pumpLimit = cfg.PumpLimit
	}
}

// WithObserver registers ob before any event is applied.
func WithObserver(ob Observer) Option {
	return func(o *options) { o.observers = append(o.observers, ob) }
}

// New returns an empty Reconciler. Each Reconciler mirrors one connection
// to the remote engine and carries its own [Serial].
func New(opts ...Option) *Reconciler {
	o := options{requester: nopRequester{}, namespace: DefaultConfig().MetricsNamespace}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Reconciler{
		serial:          nextSerial(),
		store:           NewStore(),
		plugins:         make(map[string]*Plugin),
		orphans:         newLedger[Path, *Entity](LedgerStructural),
		edgeOrphans:     newLedger[Path, edge](LedgerConnection),
		pluginOrphans:   newLedger[string, *Entity](LedgerPlugin),
		propertyOrphans: newLedger[Path, Property](LedgerProperty),
		pendingEdges:    make(map[edge]struct{}),
		requester:       o.requester,
		metrics:         newMetrics(o.registerer, o.namespace),
		pumpLimit:       o.pumpLimit,
	}
	for _, ob := range o.observers {
		r.Observe(ob)
	}
	return r
}

// Serial returns the serial number of this mirror.
func (r *Reconciler) Serial() Serial { return r.serial }

// Observe registers ob and returns a function that unregisters it.
func (r *Reconciler) Observe(ob Observer) (cancel func()) {
	r.nextObserver++
	id := r.nextObserver
	r.observers = append(slices.Clip(r.observers), observerEntry{id: id, o: ob})
	return func() {
		r.observers = slices.DeleteFunc(slices.Clone(r.observers), func(e observerEntry) bool { return e.id == id })
	}
}

// Apply dispatches one event. Failures are logged, never returned: one
// malformed or out-of-order event does not affect the events after it.
func (r *Reconciler) Apply(ev Event) {
	if r.dispatching {
		r.invariant(false, "re-entrant dispatch of %s", ev.Op())
		return
	}
	r.dispatching = true
	defer func() { r.dispatching = false }()

	if glog.V(2) {
		glog.Infof("[mirror %d] %s %+v", r.serial, ev.Op(), ev)
	}
	ev.dispatch(r)
	r.metrics.events.WithLabelValues(ev.Op()).Inc()
	r.updatePending()
}

// Reset discards every entity, plugin and orphan. It is used when the
// connection to the remote engine is lost. No removal notifications are sent.
func (r *Reconciler) Reset() {
	if r.dispatching {
		r.invariant(false, "reset during dispatch")
		return
	}
	r.store.Clear()
	clear(r.plugins)
	r.orphans.clear()
	r.edgeOrphans.clear()
	r.pluginOrphans.clear()
	r.propertyOrphans.clear()
	clear(r.pendingEdges)
	r.updatePending()
}

// Find returns the entity at p.
func (r *Reconciler) Find(p Path) (*Entity, bool) { return r.store.Find(p) }

// Children returns the children of p in insertion order.
func (r *Reconciler) Children(p Path) []*Entity { return r.store.Children(p) }

// Walk calls fn for every entity in path order until fn returns false.
func (r *Reconciler) Walk(fn func(*Entity) bool) { r.store.Walk(fn) }

// Len returns the number of entities in the tree.
func (r *Reconciler) Len() int { return r.store.Len() }

// Plugin returns the plugin registered under uri.
func (r *Reconciler) Plugin(uri string) (*Plugin, bool) {
	p, ok := r.plugins[uri]
	return p, ok
}

// Plugins returns every registered plugin ordered by URI.
func (r *Reconciler) Plugins() []*Plugin {
	out := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Plugin) int { return strings.Compare(a.URI, b.URI) })
	return out
}

// Pending reports the number of items waiting in each orphan ledger.
// Connection counts distinct pending connections.
type Pending struct {
	Structural int `yaml:"structural"`
	Connection int `yaml:"connection"`
	Plugin     int `yaml:"plugin"`
	Property   int `yaml:"property"`
}

// Pending returns the current orphan counts.
func (r *Reconciler) Pending() Pending {
	return Pending{
		Structural: r.orphans.len(),
		Connection: len(r.pendingEdges),
		Plugin:     r.pluginOrphans.len(),
		Property:   r.propertyOrphans.len(),
	}
}

func (r *Reconciler) updatePending() {
	r.metrics.pending.WithLabelValues(LedgerStructural).Set(float64(r.orphans.len()))
	r.metrics.pending.WithLabelValues(LedgerConnection).Set(float64(len(r.pendingEdges)))
	r.metrics.pending.WithLabelValues(LedgerPlugin).Set(float64(r.pluginOrphans.len()))
	r.metrics.pending.WithLabelValues(LedgerProperty).Set(float64(r.propertyOrphans.len()))
}

// invariant reports a broken internal invariant and returns ok.
// Debug builds (tag mirrordebug) panic instead.
func (r *Reconciler) invariant(ok bool, format string, args ...any) bool {
	if ok {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	r.metrics.violations.Inc()
	if debugAssertions {
		panic("mirror: invariant violated: " + msg)
	}
	glog.Errorf("[mirror %d] invariant violated: %s", r.serial, msg)
	return false
}

func (r *Reconciler) requestObject(p Path) {
	r.metrics.requests.WithLabelValues("object").Inc()
	r.requester.RequestObject(p)
}

func (r *Reconciler) requestPlugin(uri string) {
	r.metrics.requests.WithLabelValues("plugin").Inc()
	r.requester.RequestPlugin(uri)
}

// Plugins

func (r *Reconciler) addPlugin(p *Plugin) {
	if existing, ok := r.plugins[p.URI]; ok {
		existing.merge(p)
		p = existing
	} else {
		r.plugins[p.URI] = p
		r.notifyNewPlugin(p)
	}
	r.resolvePluginOrphans(p)
}

// addNode binds the node to its plugin, or records it in the plugin ledger
// when the plugin is not known yet. The node enters the tree either way; a
// repeated announcement of a waiting node merges into the first one and is
// not queued again.
func (r *Reconciler) addNode(e *Entity) {
	if uri := e.node.PluginURI; uri != "" {
		if p, ok := r.plugins[uri]; ok {
			e.node.Plugin = p
		} else if !r.pluginOrphans.has(uri, e.samePath) {
			glog.Warningf("[mirror %d] node %s received, but plugin %s unknown", r.serial, e.path, uri)
			if r.pluginOrphans.add(uri, e) {
				r.requestPlugin(uri)
			}
			r.metrics.orphaned.WithLabelValues(LedgerPlugin).Inc()
		}
	}
	r.addEntity(e)
}

func (r *Reconciler) resolvePluginOrphans(p *Plugin) {
	for _, n := range r.pluginOrphans.take(p.URI) {
		r.metrics.resolved.WithLabelValues(LedgerPlugin).Inc()
		n.bindPlugin(p)
		if live, ok := r.store.Find(n.path); ok && live != n && live.kind == KindNode {
			live.bindPlugin(p)
		}
		glog.V(1).Infof("[mirror %d] resolved plugin %s for %s", r.serial, p.URI, n.path)
	}
}

// Structure

func (r *Reconciler) addEntity(e *Entity) {
	if existing, ok := r.store.Find(e.path); ok {
		r.mergeEntity(existing, e)
		return
	}
	e.props.All(func(key string, v Value) bool {
		e.applyField(key, v)
		return true
	})
	if err := r.store.Insert(e); err != nil {
		if errors.Is(err, ErrNoParent) {
			r.queueOrphan(e)
			return
		}
		glog.Warningf("[mirror %d] dropping %s %s: %v", r.serial, e.kind, e.path, err)
		return
	}
	r.notifyNew(e)
	r.resolvePropertyOrphans(e)
	r.resolveOrphans(e)
	if e.kind == KindPort {
		r.resolveConnectionOrphans(e)
	}
}

func (r *Reconciler) mergeEntity(existing, e *Entity) {
	if existing.kind != e.kind {
		glog.Warningf("[mirror %d] ignoring %s %s: already known as a %s", r.serial, e.kind, e.path, existing.kind)
		return
	}
	existing.mergeFields(e)
	e.props.All(func(key string, v Value) bool {
		r.applyProperty(existing, key, v)
		return true
	})
}

func (r *Reconciler) queueOrphan(e *Entity) {
	parent := e.path.Parent()
	glog.Warningf("[mirror %d] orphan %s %s received, parent unknown", r.serial, e.kind, e.path)
	if r.orphans.add(parent, e) {
		r.requestObject(parent)
	}
	r.metrics.orphaned.WithLabelValues(LedgerStructural).Inc()
}

func (r *Reconciler) resolveOrphans(parent *Entity) {
	for _, child := range r.orphans.take(parent.path) {
		r.metrics.resolved.WithLabelValues(LedgerStructural).Inc()
		glog.V(1).Infof("[mirror %d] resolved orphan %s", r.serial, child.path)
		r.addEntity(child)
	}
}

func (r *Reconciler) destroy(p Path) {
	removed, err := r.store.RemoveSubtree(p)
	if err != nil {
		glog.Warningf("[mirror %d] unable to destroy %s: %v", r.serial, p, err)
		return
	}
	r.dropConnections(p, removed)
	for _, e := range removed {
		r.notifyRemoved(e)
	}
}

func (r *Reconciler) clearContainer(p Path) {
	top, ok := r.store.Find(p)
	if !ok {
		glog.Warningf("[mirror %d] unable to clear %s: %v", r.serial, p, ErrNotFound)
		return
	}
	if top.kind != KindContainer {
		glog.Warningf("[mirror %d] unable to clear %s: %v: %s", r.serial, p, ErrWrongKind, top.kind)
		return
	}
	removed, _ := r.store.RemoveDescendants(p)
	r.removeConnections(top, func(*Connection) bool { return true })
	r.dropConnections(p, removed)
	for _, e := range removed {
		r.notifyRemoved(e)
	}
}

func (r *Reconciler) rename(from, to Path) {
	run, err := r.store.Rename(from, to)
	if err != nil {
		glog.Warningf("[mirror %d] rename %s -> %s failed: %v", r.serial, from, to, err)
		return
	}
	for _, e := range run {
		r.notifyRenamed(e, e.path.Rebase(to, from))
	}
}

// Properties

// applyProperty stores a property and mirrors the well-known keys into
// entity fields, notifying only what actually changed.
func (r *Reconciler) applyProperty(e *Entity, key string, v Value) {
	if !e.validField(key, v) {
		glog.Warningf("[mirror %d] ignoring %s=%s on %s %s", r.serial, key, v, e.kind, e.path)
		return
	}
	valueChanged := e.applyField(key, v)
	if e.props.Set(key, v) {
		r.notifyProperty(e, key, v)
	}
	if valueChanged {
		r.notifyValue(e, v)
	}
}

func (r *Reconciler) setSubjectProperty(subject Path, key string, v Value) {
	if !subject.Valid() {
		if p, ok := r.plugins[string(subject)]; ok {
			p.props.Set(key, v)
			return
		}
		glog.Warningf("[mirror %d] property %s for unknown subject %s", r.serial, key, subject)
		return
	}
	if e, ok := r.store.Find(subject); ok {
		r.applyProperty(e, key, v)
		return
	}
	r.queueProperty(subject, Property{Key: key, Value: v})
}

func (r *Reconciler) setContainerFlag(p Path, key string, v Value) {
	e, ok := r.store.Find(p)
	if !ok {
		r.queueProperty(p, Property{Key: key, Value: v})
		return
	}
	if e.kind != KindContainer {
		glog.Warningf("[mirror %d] %s on %s %s: %v", r.serial, key, e.kind, p, ErrWrongKind)
		return
	}
	r.applyProperty(e, key, v)
}

func (r *Reconciler) queueProperty(subject Path, prop Property) {
	glog.Warningf("[mirror %d] property %s for unknown object %s", r.serial, prop.Key, subject)
	if r.propertyOrphans.add(subject, prop) {
		r.requestObject(subject)
	}
	r.metrics.orphaned.WithLabelValues(LedgerProperty).Inc()
}

func (r *Reconciler) resolvePropertyOrphans(e *Entity) {
	for _, prop := range r.propertyOrphans.take(e.path) {
		r.metrics.resolved.WithLabelValues(LedgerProperty).Inc()
		r.applyProperty(e, prop.Key, prop.Value)
	}
}

func (r *Reconciler) delta(subject Path, remove, add []Property) {
	e, ok := r.store.Find(subject)
	if !ok {
		glog.Warningf("[mirror %d] delta for unknown object %s", r.serial, subject)
		return
	}
	for _, rm := range remove {
		cur, ok := e.props.Get(rm.Key)
		if !ok || !(rm.Value.IsNil() || cur.Equal(rm.Value)) {
			continue
		}
		e.props.Delete(rm.Key)
		r.notifyProperty(e, rm.Key, Value{})
	}
	for _, a := range add {
		r.applyProperty(e, a.Key, a.Value)
	}
}

func (r *Reconciler) setPortValue(p Path, v Value) {
	e, ok := r.store.Find(p)
	if !ok {
		glog.Warningf("[mirror %d] value change for nonexistent port %s", r.serial, p)
		return
	}
	if e.kind != KindPort {
		glog.Warningf("[mirror %d] value change for %s %s: %v", r.serial, e.kind, p, ErrWrongKind)
		return
	}
	if e.applyField(KeyValue, v) {
		r.notifyValue(e, v)
	}
}

// Connections

// connectionOwner finds the container that owns a connection between the
// ports src and dst. Candidates are tried in order, and the first one that
// is a known container wins: the shared parent, the source's parent when it
// is the destination's grandparent, the destination's parent when it is the
// source's grandparent, and finally the source's grandparent.
func (r *Reconciler) connectionOwner(src, dst Path) kont.Either[error, *Entity] {
	sp, dp := src.Parent(), dst.Parent()
	candidates := [...]struct {
		match bool
		path  Path
	}{
		{sp == dp, sp},
		{sp == dp.Parent(), sp},
		{sp.Parent() == dp, dp},
		{true, sp.Parent()},
	}
	for _, c := range candidates {
		if !c.match {
			continue
		}
		if e, ok := r.store.Find(c.path); ok && e.kind == KindContainer {
			return kont.Right[error](e)
		}
	}
	return kont.Left[error, *Entity](fmt.Errorf("unable to find container for connection %s -> %s", src, dst))
}

func (r *Reconciler) connect(src, dst Path) {
	if src == dst {
		glog.Warningf("[mirror %d] ignoring connection of %s to itself", r.serial, src)
		return
	}
	s, sok := r.store.Find(src)
	d, dok := r.store.Find(dst)
	if (sok && s.kind != KindPort) || (dok && d.kind != KindPort) {
		glog.Warningf("[mirror %d] ignoring connection %s -> %s: %v", r.serial, src, dst, ErrWrongKind)
		return
	}
	if sok && dok {
		r.attachConnection(s, d)
		return
	}
	ed := edge{src: src, dst: dst}
	if _, ok := r.pendingEdges[ed]; ok {
		return
	}
	glog.Warningf("[mirror %d] orphan connection %s received", r.serial, ed)
	r.pendingEdges[ed] = struct{}{}
	if !sok {
		r.queueEdge(src, ed)
	}
	if !dok {
		r.queueEdge(dst, ed)
	}
}

func (r *Reconciler) queueEdge(key Path, ed edge) {
	if r.edgeOrphans.add(key, ed) {
		r.requestObject(key)
	}
	r.metrics.orphaned.WithLabelValues(LedgerConnection).Inc()
}

func (ed edge) is(other edge) bool { return ed == other }

// resolveConnectionOrphans promotes pending connections that end at port.
// A connection leaves the ledger only once both of its ports are present.
func (r *Reconciler) resolveConnectionOrphans(port *Entity) {
	for _, ed := range r.edgeOrphans.take(port.path) {
		if _, ok := r.pendingEdges[ed]; !ok {
			continue
		}
		other := ed.dst
		if other == port.path {
			other = ed.src
		}
		if _, ok := r.store.Find(other); !ok {
			if !r.edgeOrphans.has(other, ed.is) {
				r.queueEdge(other, ed)
			}
			continue
		}
		delete(r.pendingEdges, ed)
		r.edgeOrphans.drop(other, ed.is)
		r.metrics.resolved.WithLabelValues(LedgerConnection).Inc()
		glog.V(1).Infof("[mirror %d] resolved orphan connection %s", r.serial, ed)
		r.connect(ed.src, ed.dst)
	}
}

func (r *Reconciler) attachConnection(s, d *Entity) {
	owner, ok := r.ownerOf(s.path, d.path)
	if !ok {
		r.metrics.dropped.Inc()
		return
	}
	i, ok := r.findConnection(owner, s, d)
	if !ok || i >= 0 {
		return
	}
	c := &Connection{src: s, dst: d}
	owner.conns = append(owner.conns, c)
	s.port.Connections++
	d.port.Connections++
	r.notifyNewConnection(owner, c)
}

func (r *Reconciler) ownerOf(src, dst Path) (*Entity, bool) {
	either := r.connectionOwner(src, dst)
	if err, bad := either.GetLeft(); bad {
		glog.Errorf("[mirror %d] %v", r.serial, err)
		return nil, false
	}
	return either.GetRight()
}

// findConnection returns the index of the connection s -> d in owner, or -1.
// It reports false if a connection with the same endpoint paths caches
// different port entities.
func (r *Reconciler) findConnection(owner, s, d *Entity) (int, bool) {
	for i, c := range owner.conns {
		if c.src.path != s.path || c.dst.path != d.path {
			continue
		}
		ok := r.invariant(c.src == s && c.dst == d,
			"connection %s -> %s in %s caches stale endpoints", s.path, d.path, owner.path)
		return i, ok
	}
	return -1, true
}

func (r *Reconciler) disconnect(src, dst Path) {
	ed := edge{src: src, dst: dst}
	if _, ok := r.pendingEdges[ed]; ok {
		r.cancelEdge(ed)
		return
	}
	s, sok := r.store.Find(src)
	d, dok := r.store.Find(dst)
	if !sok || !dok || s.kind != KindPort || d.kind != KindPort {
		glog.Warningf("[mirror %d] disconnection of unknown ports %s", r.serial, ed)
		return
	}
	owner, ok := r.ownerOf(src, dst)
	if !ok {
		return
	}
	i, ok := r.findConnection(owner, s, d)
	if !ok {
		return
	}
	if i < 0 {
		glog.Warningf("[mirror %d] no connection %s in %s", r.serial, ed, owner.path)
		return
	}
	target := owner.conns[i]
	r.removeConnections(owner, func(c *Connection) bool { return c == target })
}

func (r *Reconciler) cancelEdge(ed edge) {
	delete(r.pendingEdges, ed)
	r.edgeOrphans.drop(ed.src, ed.is)
	r.edgeOrphans.drop(ed.dst, ed.is)
	glog.V(1).Infof("[mirror %d] cancelled orphan connection %s", r.serial, ed)
}

func (r *Reconciler) disconnectAll(container, p Path) {
	owner, ok := r.store.Find(container)
	_, tok := r.store.Find(p)
	if !ok || !tok || owner.kind != KindContainer {
		glog.Errorf("[mirror %d] bad disconnect_all notification %s in %s", r.serial, p, container)
		return
	}
	r.removeConnections(owner, func(c *Connection) bool {
		return c.src.path == p || c.dst.path == p || c.src.path.Parent() == p || c.dst.path.Parent() == p
	})
	for ed := range r.pendingEdges {
		if ed.src == p || ed.dst == p || ed.src.Parent() == p || ed.dst.Parent() == p {
			r.cancelEdge(ed)
		}
	}
}

// removeConnections detaches the connections of owner selected by match.
func (r *Reconciler) removeConnections(owner *Entity, match func(*Connection) bool) {
	var gone []*Connection
	kept := owner.conns[:0:0]
	for _, c := range owner.conns {
		if match(c) {
			gone = append(gone, c)
		} else {
			kept = append(kept, c)
		}
	}
	if len(gone) == 0 {
		return
	}
	owner.conns = kept
	for _, c := range gone {
		c.src.port.Connections--
		c.dst.port.Connections--
		r.notifyRemovedConnection(owner, c)
	}
}

// dropConnections removes every connection that touches the removed subtree
// rooted at root. Connections owned by removed containers go first; if a
// removed port is still linked afterwards, every surviving container is
// swept, since an owner need not be an ancestor of both endpoints.
func (r *Reconciler) dropConnections(root Path, removed []*Entity) {
	for _, e := range removed {
		if e.kind == KindContainer {
			r.removeConnections(e, func(*Connection) bool { return true })
		}
	}
	linked := slices.ContainsFunc(removed, func(e *Entity) bool {
		return e.kind == KindPort && e.port.Connections > 0
	})
	if !linked {
		return
	}
	r.store.Walk(func(e *Entity) bool {
		if e.kind == KindContainer && len(e.conns) > 0 {
			r.removeConnections(e, func(c *Connection) bool { return c.touches(root) })
		}
		return true
	})
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/mirror"
)

func requireScenario(t *testing.T, r *mirror.Reconciler) {
	t.Helper()
	root, ok := r.Find("/")
	require.True(t, ok)
	require.Equal(t, mirror.KindContainer, root.Kind())
	require.Equal(t, []mirror.Path{"/n"}, root.Children())

	n, ok := r.Find("/n")
	require.True(t, ok)
	require.Equal(t, mirror.KindNode, n.Kind())
	assert.ElementsMatch(t, []mirror.Path{"/n/in", "/n/out"}, n.Children())

	conns := root.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, mirror.Path("/n/out"), conns[0].Source())
	assert.Equal(t, mirror.Path("/n/in"), conns[0].Destination())

	for _, p := range []mirror.Path{"/n/in", "/n/out"} {
		e, ok := r.Find(p)
		require.True(t, ok, p)
		port, ok := e.Port()
		require.True(t, ok)
		assert.Equal(t, 1, port.Connections, p)
	}
	assert.Equal(t, 4, r.Len())
}

func TestScenarioInOrder(t *testing.T) {
	r, _, req := newMirror()
	apply(r, gainScenario()...)
	requireScenario(t, r)
	assert.Empty(t, req.objects)
	assert.Equal(t, []string{"u:gain"}, req.plugins)
}

func TestScenarioReversed(t *testing.T) {
	r, rec, req := newMirror()
	apply(r, reversed(gainScenario())...)
	requireScenario(t, r)

	assert.Equal(t, 1, rec.count("connect / /n/out -> /n/in"))
	assert.Equal(t, mirror.Pending{Plugin: 1}, r.Pending())
	// one request per missing key
	assert.ElementsMatch(t, []mirror.Path{"/n/in", "/n/out", "/n", "/"}, req.objects)
}

func TestNodeBindsPluginWhenItArrives(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, gainScenario()...)

	n, _ := r.Find("/n")
	node, _ := n.Node()
	assert.Nil(t, node.Plugin)

	apply(r, mirror.NewPlugin{URI: "u:gain", Name: "Gain"})
	node, _ = n.Node()
	require.NotNil(t, node.Plugin)
	assert.Equal(t, "Gain", node.Plugin.Name)
	assert.Equal(t, mirror.Pending{}, r.Pending())
	assert.Equal(t, 1, rec.count("plugin u:gain"))

	// re-registration merges and does not notify again
	apply(r, mirror.NewPlugin{URI: "u:gain", Symbol: "gain"})
	p, ok := r.Plugin("u:gain")
	require.True(t, ok)
	assert.Equal(t, "Gain", p.Name)
	assert.Equal(t, "gain", p.Symbol)
	assert.Equal(t, 1, rec.count("plugin u:gain"))
}

func TestKnownPluginBindsImmediately(t *testing.T) {
	r, _, req := newMirror()
	apply(r,
		mirror.NewPlugin{URI: "u:osc"},
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/osc", PluginURI: "u:osc"},
	)
	n, _ := r.Find("/osc")
	node, _ := n.Node()
	require.NotNil(t, node.Plugin)
	assert.Empty(t, req.plugins)
}

func TestReannouncedNodeKeepsNewPlugin(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewPlugin{URI: "u:b", Name: "B"},
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/n", PluginURI: "u:a"},
		mirror.NewNode{Path: "/n", PluginURI: "u:b"},
		mirror.NewPlugin{URI: "u:a", Name: "A"},
	)
	n, _ := r.Find("/n")
	node, _ := n.Node()
	assert.Equal(t, "u:b", node.PluginURI)
	require.NotNil(t, node.Plugin)
	assert.Equal(t, "B", node.Plugin.Name)
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestSubtreeRemoval(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewContainer{Path: "/a"},
		mirror.NewContainer{Path: "/a/b"},
		mirror.NewNode{Path: "/a/b/c"},
		mirror.NewPort{Path: "/a/b/c/out", IsOutput: true},
		mirror.NewContainer{Path: "/a-b"},
		mirror.Destroy{Path: "/a/b"},
	)

	_, ok := r.Find("/a/b/c")
	assert.False(t, ok)
	_, ok = r.Find("/a/b")
	assert.False(t, ok)
	a, ok := r.Find("/a")
	require.True(t, ok)
	assert.Empty(t, a.Children())
	_, ok = r.Find("/a-b")
	assert.True(t, ok)

	for _, p := range []string{"/a/b", "/a/b/c", "/a/b/c/out"} {
		assert.Equal(t, 1, rec.count("removed "+p), p)
	}
}

func TestDestroyMissingIsNoop(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, mirror.NewContainer{Path: "/"})
	before := len(rec.log)
	apply(r, mirror.Destroy{Path: "/ghost"})
	assert.Len(t, rec.log, before)
	assert.Equal(t, 1, r.Len())
}

func TestDestroyRemovesTouchingConnections(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/a"},
		mirror.NewPort{Path: "/a/out", IsOutput: true},
		mirror.NewNode{Path: "/b"},
		mirror.NewPort{Path: "/b/in"},
		mirror.Connect{Src: "/a/out", Dst: "/b/in"},
		mirror.Destroy{Path: "/a"},
	)
	root, _ := r.Find("/")
	assert.Empty(t, root.Connections())
	in, _ := r.Find("/b/in")
	port, _ := in.Port()
	assert.Equal(t, 0, port.Connections)
	assert.Equal(t, 1, rec.count("disconnect / /a/out -> /b/in"))
}

func TestDestroyRemovesConnectionOwnedElsewhere(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewContainer{Path: "/a"},
		mirror.NewContainer{Path: "/b"},
		mirror.NewNode{Path: "/a/x"},
		mirror.NewPort{Path: "/a/x/out", IsOutput: true},
		mirror.NewNode{Path: "/b/y"},
		mirror.NewPort{Path: "/b/y/in"},
		mirror.Connect{Src: "/a/x/out", Dst: "/b/y/in"},
	)
	a, _ := r.Find("/a")
	require.Len(t, a.Connections(), 1, "owned by the source's grandparent")

	apply(r, mirror.Destroy{Path: "/b"})
	assert.Empty(t, a.Connections())
	out, _ := r.Find("/a/x/out")
	port, _ := out.Port()
	assert.Equal(t, 0, port.Connections)
	assert.Equal(t, 1, rec.count("disconnect /a /a/x/out -> /b/y/in"))

	// the recreated port connects cleanly
	apply(r,
		mirror.NewContainer{Path: "/b"},
		mirror.NewNode{Path: "/b/y"},
		mirror.NewPort{Path: "/b/y/in"},
		mirror.Connect{Src: "/a/x/out", Dst: "/b/y/in"},
	)
	require.Len(t, a.Connections(), 1)
	in, _ := r.Find("/b/y/in")
	port, _ = out.Port()
	assert.Equal(t, 1, port.Connections)
	port, _ = in.Port()
	assert.Equal(t, 1, port.Connections)
}

func TestRenameAtomicity(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewContainer{Path: "/a"},
		mirror.NewContainer{Path: "/a/b"},
		mirror.NewNode{Path: "/a/b/c"},
	)
	b, _ := r.Find("/a/b")
	c, _ := r.Find("/a/b/c")

	var seen []bool
	r.Observe(mirror.ObserverFuncs{RenamedEntity: func(*mirror.Entity, mirror.Path) {
		// every rename notification sees the finished transition
		_, oldB := r.Find("/a/b")
		_, newC := r.Find("/a/d/c")
		seen = append(seen, !oldB && newC)
	}})
	apply(r, mirror.Rename{From: "/a/b", To: "/a/d"})

	for _, p := range []mirror.Path{"/a/b", "/a/b/c"} {
		_, ok := r.Find(p)
		assert.False(t, ok, p)
	}
	d, ok := r.Find("/a/d")
	require.True(t, ok)
	dc, ok := r.Find("/a/d/c")
	require.True(t, ok)
	assert.Same(t, b, d)
	assert.Same(t, c, dc)
	assert.Equal(t, []mirror.Path{"/a/d/c"}, d.Children())

	a, _ := r.Find("/a")
	assert.Equal(t, []mirror.Path{"/a/d"}, a.Children())
	assert.Equal(t, []bool{true, true}, seen)
	assert.Equal(t, 1, rec.count("renamed /a/b/c -> /a/d/c"))
}

func TestRenameMissingIsNoop(t *testing.T) {
	r, _, _ := newMirror()
	apply(r, mirror.NewContainer{Path: "/"}, mirror.NewContainer{Path: "/a"})
	apply(r, mirror.Rename{From: "/ghost", To: "/b"})
	apply(r, mirror.Rename{From: "/a", To: "/a/x"})
	_, ok := r.Find("/a")
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestConnectionOrphanResolution(t *testing.T) {
	tests := []struct {
		name   string
		events []mirror.Event
	}{
		{"nodes in order", []mirror.Event{
			mirror.NewNode{Path: "/p/n1"},
			mirror.NewPort{Path: "/p/n1/out", IsOutput: true},
			mirror.NewNode{Path: "/p/n2"},
			mirror.NewPort{Path: "/p/n2/in"},
		}},
		{"ports first", []mirror.Event{
			mirror.NewPort{Path: "/p/n2/in"},
			mirror.NewPort{Path: "/p/n1/out", IsOutput: true},
			mirror.NewNode{Path: "/p/n2"},
			mirror.NewNode{Path: "/p/n1"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec, _ := newMirror()
			apply(r,
				mirror.NewContainer{Path: "/"},
				mirror.NewContainer{Path: "/p"},
				mirror.Connect{Src: "/p/n1/out", Dst: "/p/n2/in"},
			)
			p, _ := r.Find("/p")
			assert.Empty(t, p.Connections())
			assert.Equal(t, 1, r.Pending().Connection)

			apply(r, tt.events...)
			require.Len(t, p.Connections(), 1)
			assert.Equal(t, 1, rec.count("connect /p /p/n1/out -> /p/n2/in"))
			assert.Equal(t, mirror.Pending{}, r.Pending())
		})
	}
}

func TestDisconnectCancelsPendingConnection(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.Connect{Src: "/a/out", Dst: "/b/in"},
		mirror.Disconnect{Src: "/a/out", Dst: "/b/in"},
		mirror.NewNode{Path: "/a"},
		mirror.NewPort{Path: "/a/out", IsOutput: true},
		mirror.NewNode{Path: "/b"},
		mirror.NewPort{Path: "/b/in"},
	)
	root, _ := r.Find("/")
	assert.Empty(t, root.Connections())
	assert.Zero(t, rec.count("connect / /a/out -> /b/in"))
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestConnectionOwnership(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewContainer{Path: "/p"},
		mirror.NewPort{Path: "/p/in"},
		mirror.NewNode{Path: "/p/n"},
		mirror.NewPort{Path: "/p/n/in"},
		mirror.NewPort{Path: "/p/n/out", IsOutput: true},
		mirror.NewPort{Path: "/p/out", IsOutput: true},
		// boundary in, boundary out, and an internal loop
		mirror.Connect{Src: "/p/in", Dst: "/p/n/in"},
		mirror.Connect{Src: "/p/n/out", Dst: "/p/out"},
		mirror.Connect{Src: "/p/n/out", Dst: "/p/n/in"},
	)
	p, _ := r.Find("/p")
	assert.Len(t, p.Connections(), 3)
	root, _ := r.Find("/")
	assert.Empty(t, root.Connections())
}

func TestConnectionWithoutOwnerIsDropped(t *testing.T) {
	r, rec, _ := newMirror()
	// a node at the root leaves no container to own the connection
	apply(r,
		mirror.NewNode{Path: "/"},
		mirror.NewPort{Path: "/out", IsOutput: true},
		mirror.NewPort{Path: "/in"},
	)
	before := len(rec.log)
	apply(r, mirror.Connect{Src: "/out", Dst: "/in"})
	assert.Len(t, rec.log, before)
	out, _ := r.Find("/out")
	port, _ := out.Port()
	assert.Zero(t, port.Connections)
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestDisconnect(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, gainScenario()...)
	apply(r, mirror.Disconnect{Src: "/n/out", Dst: "/n/in"})

	root, _ := r.Find("/")
	assert.Empty(t, root.Connections())
	assert.Equal(t, 1, rec.count("disconnect / /n/out -> /n/in"))

	// unknown connection is only logged
	apply(r, mirror.Disconnect{Src: "/n/out", Dst: "/n/in"})
	assert.Equal(t, 1, rec.count("disconnect / /n/out -> /n/in"))
}

func TestDisconnectAll(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/a"},
		mirror.NewPort{Path: "/a/out", IsOutput: true},
		mirror.NewNode{Path: "/b"},
		mirror.NewPort{Path: "/b/in"},
		mirror.NewPort{Path: "/b/out", IsOutput: true},
		mirror.NewNode{Path: "/c"},
		mirror.NewPort{Path: "/c/in"},
		mirror.Connect{Src: "/a/out", Dst: "/b/in"},
		mirror.Connect{Src: "/b/out", Dst: "/c/in"},
		mirror.Connect{Src: "/a/out", Dst: "/c/in"},
		mirror.DisconnectAll{Container: "/", Path: "/b"},
	)
	root, _ := r.Find("/")
	conns := root.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, mirror.Path("/a/out"), conns[0].Source())

	out, _ := r.Find("/a/out")
	port, _ := out.Port()
	assert.Equal(t, 1, port.Connections)
}

func TestIdempotence(t *testing.T) {
	events := []mirror.Event{
		mirror.NewContainer{Path: "/", Enabled: true},
		mirror.NewNode{Path: "/n", PluginURI: "u:gain", Properties: []mirror.Property{{Key: "x:label", Value: mirror.String("gain")}}},
		mirror.NewPort{Path: "/n/in", Type: mirror.PortControl, Value: mirror.Float(0.5)},
		mirror.SetProperty{Subject: "/n", Key: "x:color", Value: mirror.Int(3)},
	}
	once, _, _ := newMirror()
	apply(once, events...)

	twice, rec, _ := newMirror()
	for _, ev := range events {
		apply(twice, ev, ev)
	}
	assert.Equal(t, once.Snapshot(), twice.Snapshot())
	assert.Equal(t, 1, rec.count("new node /n"))
	assert.Equal(t, 1, rec.count("property /n x:color=3"))

	n1, _ := once.Find("/n")
	n2, _ := twice.Find("/n")
	assert.Equal(t, n1.PropertyKeys(), n2.PropertyKeys())
}

func TestMergeKeepsIdentity(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/n"},
		mirror.NewPort{Path: "/n/in", Index: 0, Type: mirror.PortControl, Value: mirror.Float(1)},
	)
	before, _ := r.Find("/n/in")
	apply(r, mirror.NewPort{Path: "/n/in", Index: 3, Type: mirror.PortControl})
	after, _ := r.Find("/n/in")
	assert.Same(t, before, after)
	port, _ := after.Port()
	assert.Equal(t, uint32(3), port.Index)
	assert.Equal(t, mirror.Float(1), port.Value)
}

func TestKindMismatchIsIgnored(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/n"},
		mirror.NewPort{Path: "/n"},
	)
	n, _ := r.Find("/n")
	assert.Equal(t, mirror.KindNode, n.Kind())
}

func TestPortUnderPortIsDropped(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewPort{Path: "/in"},
		mirror.NewPort{Path: "/in/x"},
	)
	_, ok := r.Find("/in/x")
	assert.False(t, ok)
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestStructuralOrphanRequestsOnce(t *testing.T) {
	r, _, req := newMirror()
	apply(r,
		mirror.NewPort{Path: "/n/a"},
		mirror.NewPort{Path: "/n/b"},
		mirror.NewPort{Path: "/n/c"},
	)
	assert.Equal(t, []mirror.Path{"/n"}, req.objects)
	assert.Equal(t, 3, r.Pending().Structural)

	apply(r, mirror.NewContainer{Path: "/"}, mirror.NewNode{Path: "/n"})
	n, _ := r.Find("/n")
	// queued children attach in arrival order
	assert.Equal(t, []mirror.Path{"/n/a", "/n/b", "/n/c"}, n.Children())
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestPropertyOrphan(t *testing.T) {
	r, rec, req := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.SetProperty{Subject: "/n", Key: "x:a", Value: mirror.Int(1)},
		mirror.SetProperty{Subject: "/n", Key: "x:a", Value: mirror.Int(2)},
		mirror.ContainerDisabled{Path: "/sub"},
	)
	assert.Equal(t, []mirror.Path{"/n", "/sub"}, req.objects)
	assert.Equal(t, 3, r.Pending().Property)

	apply(r, mirror.NewNode{Path: "/n"}, mirror.NewContainer{Path: "/sub", Enabled: true})
	n, _ := r.Find("/n")
	v, ok := n.Property("x:a")
	require.True(t, ok)
	assert.Equal(t, mirror.Int(2), v)
	assert.Equal(t, 1, rec.count("property /n x:a=1"))
	assert.Equal(t, 1, rec.count("property /n x:a=2"))

	sub, _ := r.Find("/sub")
	c, _ := sub.Container()
	assert.False(t, c.Enabled)
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestPropertyNotifiesOnlyOnChange(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.SetProperty{Subject: "/", Key: "x:a", Value: mirror.Bool(true)},
		mirror.SetProperty{Subject: "/", Key: "x:a", Value: mirror.Bool(true)},
	)
	assert.Equal(t, 1, rec.count("property / x:a=true"))
}

func TestPluginProperty(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewPlugin{URI: "u:gain"},
		mirror.SetProperty{Subject: "u:gain", Key: "doap:name", Value: mirror.String("Gain")},
	)
	p, _ := r.Plugin("u:gain")
	v, ok := p.Property("doap:name")
	require.True(t, ok)
	assert.Equal(t, mirror.String("Gain"), v)
}

func TestSetValue(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/n"},
		mirror.NewPort{Path: "/n/gain", Type: mirror.PortControl, Value: mirror.Float(0)},
		mirror.SetValue{Port: "/n/gain", Value: mirror.Float(0.5)},
		mirror.SetValue{Port: "/n/gain", Value: mirror.Float(0.5)},
		mirror.SetProperty{Subject: "/n/gain", Key: mirror.KeyValue, Value: mirror.Float(0.75)},
		mirror.SetValue{Port: "/n", Value: mirror.Float(1)},
		mirror.SetValue{Port: "/ghost", Value: mirror.Float(1)},
	)
	assert.Equal(t, 1, rec.count("value /n/gain 0.5"))
	assert.Equal(t, 1, rec.count("value /n/gain 0.75"))
	e, _ := r.Find("/n/gain")
	port, _ := e.Port()
	assert.Equal(t, mirror.Float(0.75), port.Value)
	assert.Equal(t, mirror.Pending{}, r.Pending())
}

func TestContainerFlags(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.ContainerEnabled{Path: "/"},
		mirror.ContainerPoly{Path: "/", Poly: 4},
	)
	root, _ := r.Find("/")
	c, _ := root.Container()
	assert.True(t, c.Enabled)
	assert.Equal(t, uint32(4), c.Poly)
	v, _ := root.Property(mirror.KeyPolyphony)
	assert.Equal(t, mirror.Int(4), v)

	apply(r, mirror.ContainerDisabled{Path: "/"})
	c, _ = root.Container()
	assert.False(t, c.Enabled)
}

func TestContainerPolyRejectsZero(t *testing.T) {
	r, _, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/", Properties: []mirror.Property{{Key: mirror.KeyPolyphony, Value: mirror.Int(0)}}},
		mirror.ContainerPoly{Path: "/", Poly: 0},
		mirror.SetProperty{Subject: "/", Key: mirror.KeyPolyphony, Value: mirror.Int(-3)},
		mirror.SetProperty{Subject: "/", Key: mirror.KeyEnabled, Value: mirror.String("yes")},
	)
	root, _ := r.Find("/")
	c, _ := root.Container()
	assert.Equal(t, uint32(1), c.Poly)
	v, _ := root.Property(mirror.KeyPolyphony)
	assert.Equal(t, mirror.Int(1), v)
	v, _ = root.Property(mirror.KeyEnabled)
	assert.Equal(t, mirror.Bool(false), v)
}

func TestSetValueNaNNotifiesOnce(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, gainScenario()...)
	nan := mirror.Float(math.NaN())
	apply(r,
		mirror.SetValue{Port: "/n/in", Value: nan},
		mirror.SetValue{Port: "/n/in", Value: nan},
		mirror.SetProperty{Subject: "/n/in", Key: mirror.KeyValue, Value: nan},
		mirror.SetProperty{Subject: "/n/in", Key: mirror.KeyValue, Value: nan},
	)
	assert.Equal(t, 1, rec.count("value /n/in NaN"))
	assert.Equal(t, 1, rec.count("property /n/in "+mirror.KeyValue+"=NaN"))
}

func TestContainerCleared(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, gainScenario()...)
	apply(r, mirror.ContainerCleared{Path: "/"})

	root, ok := r.Find("/")
	require.True(t, ok)
	assert.Empty(t, root.Children())
	assert.Empty(t, root.Connections())
	assert.Equal(t, 1, r.Len())
	for _, p := range []string{"/n", "/n/in", "/n/out"} {
		assert.Equal(t, 1, rec.count("removed "+p), p)
	}
	assert.Zero(t, rec.count("removed /"))
}

func TestDelta(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r,
		mirror.NewContainer{Path: "/"},
		mirror.NewNode{Path: "/n", Properties: []mirror.Property{
			{Key: "x:a", Value: mirror.Int(1)},
			{Key: "x:b", Value: mirror.Int(2)},
		}},
		mirror.Delta{
			Subject: "/n",
			Remove:  []mirror.Property{{Key: "x:a"}, {Key: "x:b", Value: mirror.Int(9)}},
			Add:     []mirror.Property{{Key: "x:c", Value: mirror.Int(3)}},
		},
	)
	n, _ := r.Find("/n")
	_, ok := n.Property("x:a")
	assert.False(t, ok)
	_, ok = n.Property("x:b")
	assert.True(t, ok, "value mismatch keeps the property")
	_, ok = n.Property("x:c")
	assert.True(t, ok)
	assert.Equal(t, 1, rec.count("property /n x:a=nil"))
}

func TestReset(t *testing.T) {
	r, rec, _ := newMirror()
	apply(r, reversed(gainScenario())[:3]...)
	require.NotEqual(t, mirror.Pending{}, r.Pending())

	before := len(rec.log)
	r.Reset()
	assert.Len(t, rec.log, before)
	assert.Zero(t, r.Len())
	assert.Equal(t, mirror.Pending{}, r.Pending())
	assert.Empty(t, r.Plugins())

	apply(r, gainScenario()...)
	requireScenario(t, r)
}

func TestObserveCancel(t *testing.T) {
	r := mirror.New()
	var n int
	cancel := r.Observe(mirror.ObserverFuncs{NewEntity: func(*mirror.Entity) { n++ }})
	apply(r, mirror.NewContainer{Path: "/"})
	cancel()
	apply(r, mirror.NewContainer{Path: "/a"})
	assert.Equal(t, 1, n)
}

func TestReentrantApplyIsIgnored(t *testing.T) {
	r := mirror.New()
	r.Observe(mirror.ObserverFuncs{NewEntity: func(e *mirror.Entity) {
		if e.Path() == "/" {
			r.Apply(mirror.NewContainer{Path: "/nested"})
		}
	}})
	apply(r, mirror.NewContainer{Path: "/"})
	_, ok := r.Find("/nested")
	assert.False(t, ok)
}

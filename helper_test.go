// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror_test

import (
	"fmt"

	"code.hybscloud.com/mirror"
)

// recorder logs every notification as a short line.
type recorder struct {
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

func (r *recorder) OnNewEntity(e *mirror.Entity)     { r.add("new %s %s", e.Kind(), e.Path()) }
func (r *recorder) OnRemovedEntity(e *mirror.Entity) { r.add("removed %s", e.Path()) }
func (r *recorder) OnPropertyChanged(e *mirror.Entity, key string, v mirror.Value) {
	r.add("property %s %s=%s", e.Path(), key, v)
}
func (r *recorder) OnValueChanged(port *mirror.Entity, v mirror.Value) {
	r.add("value %s %s", port.Path(), v)
}
func (r *recorder) OnNewConnection(owner *mirror.Entity, c *mirror.Connection) {
	r.add("connect %s %s -> %s", owner.Path(), c.Source(), c.Destination())
}
func (r *recorder) OnRemovedConnection(owner *mirror.Entity, c *mirror.Connection) {
	r.add("disconnect %s %s -> %s", owner.Path(), c.Source(), c.Destination())
}
func (r *recorder) OnNewPlugin(p *mirror.Plugin) { r.add("plugin %s", p.URI) }
func (r *recorder) OnRenamedEntity(e *mirror.Entity, from mirror.Path) {
	r.add("renamed %s -> %s", from, e.Path())
}

// count returns how many log lines equal line.
func (r *recorder) count(line string) int {
	n := 0
	for _, l := range r.log {
		if l == line {
			n++
		}
	}
	return n
}

// requests records repair requests.
type requests struct {
	objects []mirror.Path
	plugins []string
}

func (q *requests) RequestObject(p mirror.Path) { q.objects = append(q.objects, p) }
func (q *requests) RequestPlugin(uri string)    { q.plugins = append(q.plugins, uri) }

// newMirror returns a Reconciler wired to a fresh recorder and request log.
func newMirror() (*mirror.Reconciler, *recorder, *requests) {
	rec, req := &recorder{}, &requests{}
	r := mirror.New(mirror.WithObserver(rec), mirror.WithRequester(req))
	return r, rec, req
}

func apply(r *mirror.Reconciler, events ...mirror.Event) {
	for _, ev := range events {
		r.Apply(ev)
	}
}

func reversed(events []mirror.Event) []mirror.Event {
	out := make([]mirror.Event, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

// gainScenario is a container holding one node whose output feeds its input.
func gainScenario() []mirror.Event {
	return []mirror.Event{
		mirror.NewContainer{Path: "/", Poly: 1, Enabled: true},
		mirror.NewNode{Path: "/n", PluginURI: "u:gain"},
		mirror.NewPort{Path: "/n/in", Index: 0, Type: mirror.PortAudio},
		mirror.NewPort{Path: "/n/out", Index: 0, Type: mirror.PortAudio, IsOutput: true},
		mirror.Connect{Src: "/n/out", Dst: "/n/in"},
	}
}

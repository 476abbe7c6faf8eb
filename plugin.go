// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

// Plugin is a plugin definition known to the remote engine.
// Plugins live in a URI-keyed registry beside the path tree.
type Plugin struct {
	URI    string
	Type   string
	Symbol string
	Name   string

	props Properties
}

// Property returns the plugin property stored under key.
func (p *Plugin) Property(key string) (Value, bool) { return p.props.Get(key) }

// PropertyKeys returns the plugin property keys in insertion order.
func (p *Plugin) PropertyKeys() []string { return p.props.Keys() }

// merge copies the non-empty fields and the properties of src onto p.
func (p *Plugin) merge(src *Plugin) {
	if src.Type != "" {
		p.Type = src.Type
	}
	if src.Symbol != "" {
		p.Symbol = src.Symbol
	}
	if src.Name != "" {
		p.Name = src.Name
	}
	p.props.Merge(&src.props)
}

func (p *Plugin) uriOrEmpty() string {
	if p == nil {
		return ""
	}
	return p.URI
}

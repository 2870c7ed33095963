package text

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// Text is a raw string together with the layers annotating it.
type Text struct {
	text    string
	runes   []rune
	layers  map[string]*Layer
	mapping AttributeMapping

	// Meta is a free-form metadata bag.
	Meta map[string]interface{}
}

// Option configures a Text.
type Option func(*Text)

// WithAttributeMapping sets the mapping used for foreign attribute
// resolution. Without it the text uses DefaultAttributeMapping.
func WithAttributeMapping(m AttributeMapping) Option {
	return func(t *Text) { t.mapping = m.Copy() }
}

// WithMeta sets the metadata bag.
func WithMeta(meta map[string]interface{}) Option {
	return func(t *Text) { t.Meta = copyMap(meta) }
}

// New creates a text with no layers.
func New(s string, opts ...Option) *Text {
	t := &Text{
		text:    s,
		runes:   []rune(s),
		layers:  map[string]*Layer{},
		mapping: DefaultAttributeMapping(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Meta == nil {
		t.Meta = map[string]interface{}{}
	}
	return t
}

// String returns the raw text.
func (t *Text) String() string { return t.text }

// Len returns the length of the text in characters.
func (t *Text) Len() int { return len(t.runes) }

// AttributeMapping returns a copy of the text's attribute mapping.
func (t *Text) AttributeMapping() AttributeMapping { return t.mapping.Copy() }

// Substring returns the characters from start to end. Offsets outside the
// text are clamped, so stale or out-of-range offsets give a shorter or empty
// string instead of an error.
func (t *Text) Substring(start, end int) string {
	n := len(t.runes)
	start = min(max(start, 0), n)
	end = min(max(end, 0), n)
	if start >= end {
		return ""
	}
	return string(t.runes[start:end])
}

// AddLayer attaches an unattached layer. The name must be free and the layer
// it depends on must already be attached.
func (t *Text) AddLayer(l *Layer) error {
	if l == nil {
		return errors.NewValidation("layer", "nil layer")
	}
	switch l.state {
	case Attached:
		if l.text == t {
			return errors.NewStructural("add_layer", l.name, "layer is already attached to this text")
		}
		return errors.NewStructural("add_layer", l.name, "layer is attached to another text")
	case Detached:
		return errors.NewStructural("add_layer", l.name, "detached layer cannot be attached again, attach a copy")
	}
	if l.text != nil && l.text != t {
		return errors.NewStructural("add_layer", l.name, "layer is bound to another text, attach a copy made with CopyTo")
	}
	if IsReservedAttribute(l.name) {
		return errors.NewStructural("add_layer", l.name, "layer name is reserved")
	}
	if _, ok := t.layers[l.name]; ok {
		return errors.NewStructural("add_layer", l.name, "text already has a layer with this name")
	}
	if l.target != "" {
		dep, ok := t.layers[l.target]
		if !ok {
			return errors.NewStructural("add_layer", l.name, "%s layer %q is not attached", l.kind, l.target)
		}
		if len(l.spans) > 0 && len(dep.spans) > 0 {
			want := dep.spanLevel()
			if l.kind == KindEnveloping {
				want++
			}
			if got := l.spans[0].base.Level(); got != want {
				return errors.NewStructural("add_layer", l.name,
					"span level %d does not match %s layer %q (expected %d)", got, l.kind, l.target, want)
			}
		}
	}
	l.text = t
	l.state = Attached
	t.layers[l.name] = l
	return nil
}

// PopLayer detaches the named layer and every layer that depends on it,
// transitively. The removed layers are returned in dependency order and can
// not be attached again.
func (t *Text) PopLayer(name string) ([]*Layer, error) {
	if _, ok := t.layers[name]; !ok {
		return nil, errors.NewNotFound("layer", name)
	}
	names := append([]string{name}, t.Descendants(name)...)
	removed := make([]*Layer, 0, len(names))
	for _, n := range names {
		l := t.layers[n]
		delete(t.layers, n)
		l.text = nil
		l.state = Detached
		removed = append(removed, l)
	}
	return removed, nil
}

// Layer returns the named layer.
func (t *Text) Layer(name string) (*Layer, error) {
	if l, ok := t.layers[name]; ok {
		return l, nil
	}
	return nil, errors.NewAttribute(name, "text", "no such layer")
}

// HasLayer reports whether a layer with the given name is attached.
func (t *Text) HasLayer(name string) bool {
	_, ok := t.layers[name]
	return ok
}

// LayerNames returns the attached layer names in dependency order.
func (t *Text) LayerNames() []string { return t.TopologicalSort() }

// Layers returns the attached layers in dependency order.
func (t *Text) Layers() []*Layer {
	names := t.TopologicalSort()
	out := make([]*Layer, len(names))
	for i, n := range names {
		out[i] = t.layers[n]
	}
	return out
}

// TopologicalSort orders the layer names so that every layer comes after the
// layer it depends on. Independent layers are ordered by name.
func (t *Text) TopologicalSort() []string {
	dependents := map[string][]string{}
	var ready []string
	for name, l := range t.layers {
		if _, ok := t.layers[l.target]; l.target == "" || !ok {
			ready = append(ready, name)
			continue
		}
		dependents[l.target] = append(dependents[l.target], name)
	}
	sort.Strings(ready)

	out := make([]string, 0, len(t.layers))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		next := dependents[name]
		if len(next) == 0 {
			continue
		}
		ready = append(ready, next...)
		sort.Strings(ready)
	}
	return out
}

// Ancestors returns the layers the named layer depends on, transitively,
// nearest first.
func (t *Text) Ancestors(name string) []string {
	var out []string
	l, ok := t.layers[name]
	for ok && l.target != "" {
		out = append(out, l.target)
		l, ok = t.layers[l.target]
	}
	return out
}

// Descendants returns the layers that depend on the named layer,
// transitively, in dependency order.
func (t *Text) Descendants(name string) []string {
	set := map[string]bool{name: true}
	var out []string
	for _, n := range t.TopologicalSort() {
		l := t.layers[n]
		if l.target != "" && set[l.target] {
			set[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Attribute looks a name up on the text: a layer name returns the *Layer;
// otherwise the single layer whose schema contains the attribute resolves it.
// A name found in several layers is an error.
func (t *Text) Attribute(name string) (interface{}, error) {
	if l, ok := t.layers[name]; ok {
		return l, nil
	}
	var owners []*Layer
	for _, n := range t.TopologicalSort() {
		if t.layers[n].hasAttribute(name) {
			owners = append(owners, t.layers[n])
		}
	}
	switch len(owners) {
	case 0:
		return nil, errors.NewAttribute(name, "text", "no layer or layer attribute with this name")
	case 1:
		return owners[0].Attribute(name)
	default:
		names := make([]string, len(owners))
		for i, o := range owners {
			names[i] = o.name
		}
		return nil, errors.NewAttribute(name, "text", "attribute is ambiguous between layers %q", names)
	}
}

// Copy returns a deep copy of the text and its layers.
func (t *Text) Copy() *Text {
	c := New(t.text, WithAttributeMapping(t.mapping), WithMeta(t.Meta))
	for _, l := range t.Layers() {
		lc := l.CopyTo(c)
		// The source text already satisfied every attachment check.
		_ = c.AddLayer(lc)
	}
	return c
}

func (t *Text) GoString() string {
	return fmt.Sprintf("Text(%q, layers=%q)", t.text, t.LayerNames())
}

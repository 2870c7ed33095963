package text

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
)

// Kind is the structural role of a layer.
type Kind int

const (
	// KindElementary layers hold spans over text positions and depend on nothing.
	KindElementary Kind = iota
	// KindChild layers share base spans with a parent layer.
	KindChild
	// KindEnveloping layers hold spans made of spans of the enveloped layer.
	KindEnveloping
)

func (k Kind) String() string {
	switch k {
	case KindChild:
		return "child"
	case KindEnveloping:
		return "enveloping"
	default:
		return "elementary"
	}
}

// State is the attachment state of a layer.
type State int

const (
	Unattached State = iota
	Attached
	Detached
)

func (s State) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unattached"
	}
}

// Config describes a new layer. Parent and Enveloping are mutually exclusive.
type Config struct {
	Name                string
	Attributes          []string
	SecondaryAttributes []string
	Parent              string
	Enveloping          string
	Ambiguous           bool
	DefaultValues       map[string]interface{}
	SerialisationModule string
	Meta                map[string]interface{}
	// Text binds an unattached layer to a text so that span texts can be read
	// before the layer is attached. It does not attach the layer.
	Text *Text
}

// Layer is a sorted collection of spans sharing one attribute schema.
type Layer struct {
	name                string
	attributes          []string
	secondaryAttributes []string
	kind                Kind
	target              string
	ambiguous           bool
	defaults            map[string]interface{}
	serialisationModule string

	// Meta is a free-form metadata bag, serialized with the layer.
	Meta map[string]interface{}

	text  *Text
	state State
	spans []*Span
}

// NewLayer creates an unattached layer. The schema may not contain duplicate
// names or the derived names text, start and end.
func NewLayer(cfg Config) (*Layer, error) {
	if cfg.Name == "" {
		return nil, errors.NewValidation("name", "layer name must not be empty")
	}
	if cfg.Parent != "" && cfg.Enveloping != "" {
		return nil, errors.NewStructural("new_layer", cfg.Name,
			"parent %q and enveloping %q are mutually exclusive", cfg.Parent, cfg.Enveloping)
	}
	if cfg.Parent == cfg.Name || cfg.Enveloping == cfg.Name {
		return nil, errors.NewStructural("new_layer", cfg.Name, "layer cannot depend on itself")
	}

	seen := make(map[string]bool, len(cfg.Attributes))
	for _, attr := range cfg.Attributes {
		if attr == "" {
			return nil, errors.NewValidation("attributes", "empty attribute name")
		}
		if IsReservedAttribute(attr) {
			return nil, errors.NewValidation("attributes",
				fmt.Sprintf("attribute name %q is reserved for span-derived values", attr))
		}
		if seen[attr] {
			return nil, errors.NewValidation("attributes", fmt.Sprintf("duplicate attribute %q", attr))
		}
		seen[attr] = true
	}
	for _, attr := range cfg.SecondaryAttributes {
		if !seen[attr] {
			return nil, errors.NewValidation("secondary_attributes",
				fmt.Sprintf("secondary attribute %q is not in attributes %q", attr, cfg.Attributes))
		}
	}
	for attr := range cfg.DefaultValues {
		if !seen[attr] {
			return nil, errors.NewValidation("default_values",
				fmt.Sprintf("default value for unknown attribute %q", attr))
		}
	}

	l := &Layer{
		name:                cfg.Name,
		attributes:          append([]string(nil), cfg.Attributes...),
		secondaryAttributes: append([]string(nil), cfg.SecondaryAttributes...),
		ambiguous:           cfg.Ambiguous,
		defaults:            copyMap(cfg.DefaultValues),
		serialisationModule: cfg.SerialisationModule,
		Meta:                copyMap(cfg.Meta),
		text:                cfg.Text,
	}
	switch {
	case cfg.Parent != "":
		l.kind, l.target = KindChild, cfg.Parent
	case cfg.Enveloping != "":
		l.kind, l.target = KindEnveloping, cfg.Enveloping
	}
	if l.defaults == nil {
		l.defaults = map[string]interface{}{}
	}
	if l.Meta == nil {
		l.Meta = map[string]interface{}{}
	}
	return l, nil
}

// MustLayer is like NewLayer but panics on an invalid configuration.
func MustLayer(cfg Config) *Layer {
	l, err := NewLayer(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Layer) Name() string { return l.name }

// Attributes returns a copy of the attribute schema.
func (l *Layer) Attributes() []string { return append([]string(nil), l.attributes...) }

// SecondaryAttributes returns a copy of the secondary attribute names.
func (l *Layer) SecondaryAttributes() []string {
	return append([]string(nil), l.secondaryAttributes...)
}

func (l *Layer) Kind() Kind      { return l.kind }
func (l *Layer) Ambiguous() bool { return l.ambiguous }
func (l *Layer) State() State    { return l.state }

// Text returns the text the layer is attached or bound to, or nil.
func (l *Layer) Text() *Text { return l.text }

// Parent returns the parent layer name of a child layer, or "".
func (l *Layer) Parent() string {
	if l.kind == KindChild {
		return l.target
	}
	return ""
}

// Enveloping returns the enveloped layer name of an enveloping layer, or "".
func (l *Layer) Enveloping() string {
	if l.kind == KindEnveloping {
		return l.target
	}
	return ""
}

// Dependency returns the name of the layer this layer depends on, or "".
func (l *Layer) Dependency() string { return l.target }

// DefaultValues returns a copy of the default attribute values.
func (l *Layer) DefaultValues() map[string]interface{} { return copyMap(l.defaults) }

func (l *Layer) SerialisationModule() string { return l.serialisationModule }

func (l *Layer) hasAttribute(name string) bool {
	for _, a := range l.attributes {
		if a == name {
			return true
		}
	}
	return false
}

// HasAttribute reports whether name is in the attribute schema.
func (l *Layer) HasAttribute(name string) bool { return l.hasAttribute(name) }

// Len returns the number of spans.
func (l *Layer) Len() int { return len(l.spans) }

// Spans returns the spans in sorted order.
func (l *Layer) Spans() []*Span {
	out := make([]*Span, len(l.spans))
	copy(out, l.spans)
	return out
}

// At returns the i-th span. Negative indexes count from the end. It returns
// nil when out of range.
func (l *Layer) At(i int) *Span {
	if i < 0 {
		i += len(l.spans)
	}
	if i < 0 || i >= len(l.spans) {
		return nil
	}
	return l.spans[i]
}

// search returns the insertion index for base and whether a span with an
// equal base span is at that index.
func (l *Layer) search(base basespan.BaseSpan) (int, bool) {
	i := sort.Search(len(l.spans), func(i int) bool {
		return basespan.Compare(l.spans[i].base, base) >= 0
	})
	return i, i < len(l.spans) && basespan.Equal(l.spans[i].base, base)
}

// Get returns the span with the given base span, or nil.
func (l *Layer) Get(base basespan.BaseSpan) *Span {
	if base == nil {
		return nil
	}
	if i, ok := l.search(base); ok {
		return l.spans[i]
	}
	return nil
}

// IndexOf returns the index of span in the layer by identity, or -1.
func (l *Layer) IndexOf(span *Span) int {
	if span == nil || span.layer != l {
		return -1
	}
	i, ok := l.search(span.base)
	if ok && l.spans[i] == span {
		return i
	}
	for j, s := range l.spans {
		if s == span {
			return j
		}
	}
	return -1
}

// SpanLevel returns the level of the layer's base spans. For an empty layer it
// is derived from the layer's dependencies when the layer is bound to a text.
func (l *Layer) SpanLevel() int {
	return l.spanLevel()
}

func (l *Layer) spanLevel() int {
	if len(l.spans) > 0 {
		return l.spans[0].base.Level()
	}
	if l.text == nil || l.kind == KindElementary {
		if l.kind == KindEnveloping {
			return 1
		}
		return 0
	}
	dep, ok := l.text.layers[l.target]
	if !ok {
		if l.kind == KindEnveloping {
			return 1
		}
		return 0
	}
	if l.kind == KindEnveloping {
		return dep.spanLevel() + 1
	}
	return dep.spanLevel()
}

// AddAnnotation adds an annotation at base, creating the span if needed, and
// keeps the spans sorted. See Span.AddAnnotation for ambiguity rules.
func (l *Layer) AddAnnotation(base basespan.BaseSpan, attrs map[string]interface{}) (*Annotation, error) {
	if base == nil {
		return nil, errors.NewValidation("base_span", "nil base span")
	}
	if err := l.checkLevel(base); err != nil {
		return nil, err
	}
	i, found := l.search(base)
	if found {
		return l.spans[i].AddAnnotation(attrs)
	}
	span := &Span{base: base, layer: l}
	a, err := span.AddAnnotation(attrs)
	if err != nil {
		return nil, err
	}
	l.spans = append(l.spans, nil)
	copy(l.spans[i+1:], l.spans[i:])
	l.spans[i] = span
	return a, nil
}

// Add adds an annotation at the elementary span (start, end).
func (l *Layer) Add(start, end int, attrs map[string]interface{}) (*Annotation, error) {
	base, err := basespan.NewElementary(start, end)
	if err != nil {
		return nil, err
	}
	return l.AddAnnotation(base, attrs)
}

// AddEnveloping adds an annotation at the enveloping span made of the given
// spans, which usually come from the enveloped layer.
func (l *Layer) AddEnveloping(spans []*Span, attrs map[string]interface{}) (*Annotation, error) {
	children := make([]basespan.BaseSpan, len(spans))
	for i, s := range spans {
		children[i] = s.base
	}
	base, err := basespan.NewEnveloping(children...)
	if err != nil {
		return nil, err
	}
	return l.AddAnnotation(base, attrs)
}

// AddSpan inserts a span that has no annotations yet. It is allowed only on
// ambiguous layers and returns the existing span when the base span is
// already present.
func (l *Layer) AddSpan(base basespan.BaseSpan) (*Span, error) {
	if !l.ambiguous {
		return nil, errors.NewStructural("add_span", l.name, "empty spans are only allowed on ambiguous layers")
	}
	if err := l.checkLevel(base); err != nil {
		return nil, err
	}
	i, found := l.search(base)
	if found {
		return l.spans[i], nil
	}
	span := &Span{base: base, layer: l}
	l.spans = append(l.spans, nil)
	copy(l.spans[i+1:], l.spans[i:])
	l.spans[i] = span
	return span, nil
}

func (l *Layer) checkLevel(base basespan.BaseSpan) error {
	level := base.Level()
	switch l.kind {
	case KindElementary:
		if level != 0 {
			return errors.NewStructural("add_annotation", l.name,
				"elementary layer cannot hold enveloping span %s", base)
		}
	case KindEnveloping:
		if level == 0 {
			return errors.NewStructural("add_annotation", l.name,
				"enveloping layer cannot hold elementary span %s", base)
		}
	}
	if len(l.spans) > 0 && l.spans[0].base.Level() != level {
		return errors.NewStructural("add_annotation", l.name,
			"span %s has level %d but layer spans have level %d", base, level, l.spans[0].base.Level())
	}
	return nil
}

// RemoveSpan removes span by identity. Structurally equal spans that are not
// the same object are left in place.
func (l *Layer) RemoveSpan(span *Span) error {
	for i, s := range l.spans {
		if s == span {
			return l.RemoveAt(i)
		}
	}
	if span == nil {
		return errors.NewNotFound("span", "<nil>")
	}
	return errors.NewNotFound("span", span.base.String())
}

// RemoveAt removes the i-th span.
func (l *Layer) RemoveAt(i int) error {
	if i < 0 || i >= len(l.spans) {
		return errors.NewValidation("index", fmt.Sprintf("span index %d out of range [0, %d)", i, len(l.spans)))
	}
	l.spans[i].layer = nil
	l.spans = append(l.spans[:i], l.spans[i+1:]...)
	return nil
}

// Clear removes all spans.
func (l *Layer) Clear() {
	for _, s := range l.spans {
		s.layer = nil
	}
	l.spans = nil
}

// Texts returns the text of each span.
func (l *Layer) Texts() []string {
	out := make([]string, len(l.spans))
	for i, s := range l.spans {
		out[i] = s.Text()
	}
	return out
}

// template returns an empty unattached layer with the same configuration,
// bound to the same text.
func (l *Layer) template() *Layer {
	c := &Layer{
		name:                l.name,
		attributes:          append([]string(nil), l.attributes...),
		secondaryAttributes: append([]string(nil), l.secondaryAttributes...),
		kind:                l.kind,
		target:              l.target,
		ambiguous:           l.ambiguous,
		defaults:            copyMap(l.defaults),
		serialisationModule: l.serialisationModule,
		Meta:                copyMap(l.Meta),
		text:                l.text,
	}
	if c.defaults == nil {
		c.defaults = map[string]interface{}{}
	}
	if c.Meta == nil {
		c.Meta = map[string]interface{}{}
	}
	return c
}

// Template returns an empty unattached layer with the same configuration.
func (l *Layer) Template() *Layer { return l.template() }

func (l *Layer) appendCopy(s *Span) {
	cs := &Span{base: s.base, layer: l}
	for _, a := range s.annotations {
		ca := a.copyDetached()
		ca.span = cs
		cs.annotations = append(cs.annotations, ca)
	}
	l.spans = append(l.spans, cs)
}

// Copy returns a deep copy of the layer. The copy is unattached but stays
// bound to the same text for reading, so it can only be attached to that
// text. Use CopyTo to move a layer to another text.
func (l *Layer) Copy() *Layer {
	c := l.template()
	c.spans = make([]*Span, 0, len(l.spans))
	for _, s := range l.spans {
		c.appendCopy(s)
	}
	return c
}

// CopyTo returns an unattached deep copy of the layer bound to t. A nil t
// gives an unbound copy.
func (l *Layer) CopyTo(t *Text) *Layer {
	c := l.Copy()
	c.text = t
	return c
}

// Slice returns an unattached copy holding copies of spans i through j-1.
// Indexes are clamped to the layer bounds.
func (l *Layer) Slice(i, j int) *Layer {
	if i < 0 {
		i = 0
	}
	if j > len(l.spans) {
		j = len(l.spans)
	}
	c := l.template()
	for k := i; k < j; k++ {
		c.appendCopy(l.spans[k])
	}
	return c
}

// Validate checks the sortedness and ambiguity invariants and that every
// annotation provides the full attribute schema.
func (l *Layer) Validate() error {
	for i, s := range l.spans {
		if s.layer != l {
			return errors.NewStructural("validate", l.name, "span %s does not point back to the layer", s.base)
		}
		if i > 0 && basespan.Compare(l.spans[i-1].base, s.base) >= 0 {
			return errors.NewStructural("validate", l.name,
				"spans %s and %s are not strictly sorted", l.spans[i-1].base, s.base)
		}
		if !l.ambiguous && len(s.annotations) != 1 {
			return errors.NewStructural("validate", l.name,
				"span %s of an unambiguous layer has %d annotations", s.base, len(s.annotations))
		}
		for _, a := range s.annotations {
			if a.span != s {
				return errors.NewStructural("validate", l.name,
					"annotation of span %s does not point back to the span", s.base)
			}
			for _, attr := range l.attributes {
				if _, ok := a.attrs[attr]; !ok {
					return errors.NewStructural("validate", l.name,
						"annotation of span %s is missing attribute %q", s.base, attr)
				}
			}
		}
	}
	return nil
}

// Equal reports structural equality: configuration, meta and spans with
// their annotations. Default values and the text binding are not compared.
func (l *Layer) Equal(o *Layer) bool {
	if l == nil || o == nil {
		return l == o
	}
	if l.name != o.name || l.kind != o.kind || l.target != o.target || l.ambiguous != o.ambiguous ||
		l.serialisationModule != o.serialisationModule {
		return false
	}
	if !equalStrings(l.attributes, o.attributes) || !equalStrings(l.secondaryAttributes, o.secondaryAttributes) {
		return false
	}
	if !equalValues(normalizeMeta(l.Meta), normalizeMeta(o.Meta)) {
		return false
	}
	if len(l.spans) != len(o.spans) {
		return false
	}
	for i := range l.spans {
		if !l.spans[i].Equal(o.spans[i]) {
			return false
		}
	}
	return true
}

func normalizeMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l *Layer) String() string {
	return fmt.Sprintf("Layer(name=%q, kind=%s, attributes=%q, ambiguous=%t, spans=%d)",
		l.name, l.kind, l.attributes, l.ambiguous, len(l.spans))
}

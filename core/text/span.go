package text

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
)

// Span is a base span of a layer together with its annotations. Spans are
// created and owned by their Layer (see Layer.AddAnnotation).
type Span struct {
	base        basespan.BaseSpan
	layer       *Layer
	annotations []*Annotation
}

// BaseSpan returns the position backbone of the span.
func (s *Span) BaseSpan() basespan.BaseSpan { return s.base }

// Start returns the start offset.
func (s *Span) Start() int { return s.base.Start() }

// End returns the end offset.
func (s *Span) End() int { return s.base.End() }

// Layer returns the owning layer.
func (s *Span) Layer() *Layer { return s.layer }

// Annotations returns the annotations in insertion order.
func (s *Span) Annotations() []*Annotation {
	out := make([]*Annotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// Annotation returns the i-th annotation, or nil when out of range.
func (s *Span) Annotation(i int) *Annotation {
	if i < 0 || i >= len(s.annotations) {
		return nil
	}
	return s.annotations[i]
}

// NumAnnotations returns the number of annotations.
func (s *Span) NumAnnotations() int { return len(s.annotations) }

func (s *Span) textObject() *Text {
	if s.layer == nil {
		return nil
	}
	return s.layer.text
}

// Texts returns the surface text of each elementary piece of the span: one
// element for an elementary span, one per child for an enveloping span.
func (s *Span) Texts() []string {
	t := s.textObject()
	pieces := s.base.Flatten()
	out := make([]string, len(pieces))
	if t == nil {
		return out
	}
	for i, p := range pieces {
		out[i] = t.Substring(p.Start(), p.End())
	}
	return out
}

// Text returns the surface text. For an enveloping span the pieces are joined
// with a single space; use Texts for the pieces and EnclosingText for the
// gap-inclusive substring.
func (s *Span) Text() string {
	if s.base.Level() == 0 {
		t := s.textObject()
		if t == nil {
			return ""
		}
		return t.Substring(s.Start(), s.End())
	}
	return strings.Join(s.Texts(), " ")
}

// EnclosingText returns the substring from the span start to the span end,
// including any gaps between enveloped pieces.
func (s *Span) EnclosingText() string {
	t := s.textObject()
	if t == nil {
		return ""
	}
	return t.Substring(s.Start(), s.End())
}

// AddAnnotation fills missing schema attributes from the layer defaults and
// adds the annotation. On an ambiguous layer an equal existing annotation is
// returned instead of adding a duplicate. On an unambiguous layer a second
// annotation is a structural error.
func (s *Span) AddAnnotation(attrs map[string]interface{}) (*Annotation, error) {
	return s.AttachAnnotation(NewAnnotation(attrs))
}

// AttachAnnotation attaches a detached annotation to the span, with the same
// rules as AddAnnotation. The returned annotation is a, or an equal annotation
// that was already present.
func (s *Span) AttachAnnotation(a *Annotation) (*Annotation, error) {
	if a.span != nil {
		return nil, errors.NewStructural("add_annotation", s.layerName(),
			"annotation already belongs to span %s", a.span.base)
	}
	if s.layer == nil {
		return nil, errors.NewStructural("add_annotation", "", "span %s has no layer", s.base)
	}
	l := s.layer

	for name := range a.attrs {
		if !l.hasAttribute(name) {
			return nil, errors.NewStructural("add_annotation", l.name,
				"attribute %q is not in layer attributes %q", name, l.attributes)
		}
	}
	for _, name := range l.attributes {
		if _, ok := a.attrs[name]; !ok {
			a.attrs[name] = l.defaults[name]
		}
	}

	if !l.ambiguous && len(s.annotations) > 0 {
		return nil, errors.NewStructural("add_annotation", l.name,
			"layer is not ambiguous and span %s already has an annotation", s.base)
	}
	for _, existing := range s.annotations {
		if existing.equalAttributes(a.attrs) {
			return existing, nil
		}
	}

	a.span = s
	s.annotations = append(s.annotations, a)
	return a, nil
}

// DelAnnotation removes the i-th annotation. A span of an unambiguous layer
// left without annotations is removed from its layer.
func (s *Span) DelAnnotation(i int) error {
	if i < 0 || i >= len(s.annotations) {
		return errors.NewValidation("index", fmt.Sprintf("annotation index %d out of range [0, %d)", i, len(s.annotations)))
	}
	s.annotations[i].span = nil
	s.annotations = append(s.annotations[:i], s.annotations[i+1:]...)
	s.dropIfEmpty()
	return nil
}

func (s *Span) dropIfEmpty() {
	if len(s.annotations) == 0 && s.layer != nil && !s.layer.ambiguous {
		_ = s.layer.RemoveSpan(s)
	}
}

// RemoveAnnotation removes the given annotation by identity and reports
// whether it was found.
func (s *Span) RemoveAnnotation(a *Annotation) bool {
	for i, existing := range s.annotations {
		if existing == a {
			_ = s.DelAnnotation(i)
			return true
		}
	}
	return false
}

// ClearAnnotations removes all annotations. On an unambiguous layer the
// span itself is removed from the layer as well.
func (s *Span) ClearAnnotations() {
	for _, a := range s.annotations {
		a.span = nil
	}
	s.annotations = nil
	s.dropIfEmpty()
}

// Value returns the value of a schema attribute on an unambiguous span.
func (s *Span) Value(name string) (interface{}, error) {
	if s.layer != nil && s.layer.ambiguous {
		return nil, errors.NewAttribute(name, s.describe(), "span is ambiguous, use Values")
	}
	if s.layer == nil || !s.layer.hasAttribute(name) {
		return nil, errors.NewAttribute(name, s.describe(), "not a layer attribute")
	}
	if len(s.annotations) == 0 {
		return nil, errors.NewAttribute(name, s.describe(), "span has no annotations")
	}
	return s.annotations[0].attrs[name], nil
}

// Values returns the value of a schema attribute for each annotation, in
// annotation order.
func (s *Span) Values(name string) (*AttributeList, error) {
	if s.layer == nil || !s.layer.hasAttribute(name) {
		return nil, errors.NewAttribute(name, s.describe(), "not a layer attribute")
	}
	list := &AttributeList{Name: name, IndexType: IndexAnnotations}
	for _, a := range s.annotations {
		list.Values = append(list.Values, a.attrs[name])
	}
	return list, nil
}

// Attribute returns an attribute by name. Schema attributes give a scalar for
// unambiguous layers and an *AttributeList for ambiguous ones; text, start and
// end give the derived values; any other name is resolved through the text
// (see Layer.ResolveAttribute).
func (s *Span) Attribute(name string) (interface{}, error) {
	switch name {
	case "text":
		if s.base.Level() == 0 {
			return s.Text(), nil
		}
		return s.Texts(), nil
	case "start":
		return s.Start(), nil
	case "end":
		return s.End(), nil
	}
	if s.layer != nil && s.layer.hasAttribute(name) {
		if s.layer.ambiguous {
			return s.Values(name)
		}
		return s.Value(name)
	}
	if s.layer == nil {
		return nil, errors.NewAttribute(name, s.describe(), "span has no layer")
	}
	target, err := s.layer.foreignTarget(name)
	if err != nil {
		return nil, err
	}
	level := s.base.Level()
	targetLevel := target.spanLevel()
	if targetLevel > level {
		return nil, errors.NewAttribute(name, s.describe(),
			"target layer %q has coarser spans (level %d) than the span (level %d)", target.name, targetLevel, level)
	}
	return resolveEntry(target, name, s.base, targetLevel), nil
}

// Parent returns the span with the same base span in the parent layer, or nil.
func (s *Span) Parent() *Span {
	if s.layer == nil || s.layer.kind != KindChild || s.layer.text == nil {
		return nil
	}
	parent, ok := s.layer.text.layers[s.layer.target]
	if !ok {
		return nil
	}
	return parent.Get(s.base)
}

// Spans returns the spans of the enveloped layer that make up an enveloping
// span. Children missing from the enveloped layer are skipped.
func (s *Span) Spans() []*Span {
	if s.layer == nil || s.layer.kind != KindEnveloping || s.layer.text == nil {
		return nil
	}
	enveloped, ok := s.layer.text.layers[s.layer.target]
	if !ok {
		return nil
	}
	var out []*Span
	for _, child := range s.base.Children() {
		if cs := enveloped.Get(child); cs != nil {
			out = append(out, cs)
		}
	}
	return out
}

// Equal reports whether two spans have equal base spans and pairwise equal
// annotations in the same order.
func (s *Span) Equal(o *Span) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !basespan.Equal(s.base, o.base) || len(s.annotations) != len(o.annotations) {
		return false
	}
	for i := range s.annotations {
		if !s.annotations[i].equalAttributes(o.annotations[i].attrs) {
			return false
		}
	}
	return true
}

func (s *Span) String() string {
	return fmt.Sprintf("Span(%s, %q, %d annotations)", s.base, s.Text(), len(s.annotations))
}

func (s *Span) layerName() string {
	if s.layer == nil {
		return ""
	}
	return s.layer.name
}

func (s *Span) describe() string {
	if s.layer == nil {
		return fmt.Sprintf("span %s", s.base)
	}
	return fmt.Sprintf("span %s of layer %q", s.base, s.layer.name)
}

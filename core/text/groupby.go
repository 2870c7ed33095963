package text

import (
	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
)

// ReturnType selects what a grouping collects.
type ReturnType int

const (
	ReturnSpans ReturnType = iota
	ReturnAnnotations
)

// Group is one bucket of a grouping. Key holds the attribute values of an
// attribute grouping; Enclosing holds the enveloping span of a layer grouping.
type Group struct {
	Key         []interface{}
	Enclosing   *Span
	Spans       []*Span
	Annotations []*Annotation
}

// Len returns the number of spans or annotations in the group.
func (g *Group) Len() int {
	if g.Annotations != nil {
		return len(g.Annotations)
	}
	return len(g.Spans)
}

// GroupByAttributes groups spans or annotations by the values of attrs. The
// name "text" groups by surface text. With ReturnSpans, a span of an
// ambiguous layer joins the group of each distinct key among its annotations.
// Groups are in order of first occurrence.
func (l *Layer) GroupByAttributes(attrs []string, rt ReturnType) ([]*Group, error) {
	if len(attrs) == 0 {
		return nil, errors.NewValidation("by", "no attributes to group by")
	}
	for _, a := range attrs {
		if a != "text" && !l.hasAttribute(a) {
			return nil, errors.NewAttribute(a, l.describe(), "not a layer attribute")
		}
	}

	var groups []*Group
	index := map[string]*Group{}
	groupFor := func(key []interface{}) *Group {
		k := tupleKey(key)
		if g, ok := index[k]; ok {
			return g
		}
		g := &Group{Key: key}
		index[k] = g
		groups = append(groups, g)
		return g
	}

	for _, s := range l.spans {
		seen := map[string]bool{}
		for _, a := range s.annotations {
			key := make([]interface{}, len(attrs))
			for i, name := range attrs {
				if name == "text" {
					key[i] = a.Text()
				} else {
					key[i] = a.attrs[name]
				}
			}
			g := groupFor(key)
			if rt == ReturnAnnotations {
				g.Annotations = append(g.Annotations, a)
				continue
			}
			k := tupleKey(key)
			if !seen[k] {
				seen[k] = true
				g.Spans = append(g.Spans, s)
			}
		}
	}
	return groups, nil
}

// GroupByLayer buckets the spans (or annotations) of l by containment in the
// spans of by, which must envelop l directly or through a chain of enveloping
// and child layers. Every span of by yields a group, possibly empty.
func (l *Layer) GroupByLayer(by *Layer, rt ReturnType) ([]*Group, error) {
	if by == nil {
		return nil, errors.NewValidation("by", "nil layer")
	}
	if !envelopes(by, l) {
		return nil, errors.NewStructural("groupby", l.name, "layer %q does not envelop this layer", by.name)
	}
	groups := make([]*Group, 0, len(by.spans))
	for _, outer := range by.spans {
		g := &Group{Enclosing: outer}
		for _, s := range l.spansInside(outer.base) {
			if rt == ReturnAnnotations {
				g.Annotations = append(g.Annotations, s.annotations...)
			} else {
				g.Spans = append(g.Spans, s)
			}
		}
		if rt == ReturnAnnotations && g.Annotations == nil {
			g.Annotations = []*Annotation{}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// envelopes reports whether outer envelops inner, directly or through a
// chain of enveloping and child layers. Child layers of inner count as inner,
// since they share its base spans.
func envelopes(outer, inner *Layer) bool {
	t := outer.text
	if t == nil {
		t = inner.text
	}
	names := map[string]bool{inner.name: true}
	for cur := inner; cur.kind == KindChild && t != nil; {
		names[cur.target] = true
		next, ok := t.layers[cur.target]
		if !ok {
			break
		}
		cur = next
	}

	enveloping := false
	for cur := outer; cur != nil; {
		if cur.kind == KindEnveloping {
			enveloping = true
		}
		if cur.target == "" {
			return false
		}
		if names[cur.target] {
			return enveloping
		}
		if t == nil {
			return false
		}
		cur = t.layers[cur.target]
	}
	return false
}

// spansInside returns the spans of l whose base spans are covered by an
// elementary piece of outer, or equal to a descendant of outer.
func (l *Layer) spansInside(outer basespan.BaseSpan) []*Span {
	var out []*Span
	level := l.spanLevel()
	if level > 0 && outer.Level() > level {
		for _, child := range descendantsAtLevel(outer, level) {
			if s := l.Get(child); s != nil {
				out = append(out, s)
			}
		}
		return out
	}
	start, end := outer.Start(), outer.End()
	for _, s := range l.spans {
		if s.Start() >= end {
			break
		}
		if s.Start() >= start && s.End() <= end && coveredByPieces(outer, s.base) {
			out = append(out, s)
		}
	}
	return out
}

func coveredByPieces(outer, inner basespan.BaseSpan) bool {
	for _, p := range outer.Flatten() {
		if p.Start() <= inner.Start() && inner.End() <= p.End() {
			return true
		}
	}
	return false
}

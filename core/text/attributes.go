package text

import (
	"fmt"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
)

// IndexType says what the entries of an AttributeList correspond to.
type IndexType string

const (
	IndexSpans       IndexType = "spans"
	IndexAnnotations IndexType = "annotations"
	// IndexLayers entries are themselves lists, one per span of a coarser
	// layer, holding values from a finer target layer.
	IndexLayers IndexType = "layers"
)

// AttributeValues is returned by layer-level attribute access.
type AttributeValues interface {
	AttributeName() string
	Len() int
	// Flat returns the entries as a flat list; nested lists stay nested.
	Flat() []interface{}
}

// AttributeList holds one value per span, per annotation, or per sub-layer,
// depending on IndexType.
type AttributeList struct {
	Name      string
	IndexType IndexType
	Values    []interface{}
}

func (l *AttributeList) AttributeName() string { return l.Name }
func (l *AttributeList) Len() int              { return len(l.Values) }
func (l *AttributeList) Flat() []interface{}   { return append([]interface{}(nil), l.Values...) }

func (l *AttributeList) String() string {
	return fmt.Sprintf("AttributeList(%s, %v)", l.Name, l.Values)
}

// AmbiguousAttributeList holds, for each span, the values of every annotation.
type AmbiguousAttributeList struct {
	Name   string
	Values [][]interface{}
}

func (l *AmbiguousAttributeList) AttributeName() string { return l.Name }
func (l *AmbiguousAttributeList) Len() int              { return len(l.Values) }

func (l *AmbiguousAttributeList) Flat() []interface{} {
	out := make([]interface{}, len(l.Values))
	for i, v := range l.Values {
		out[i] = v
	}
	return out
}

func (l *AmbiguousAttributeList) String() string {
	return fmt.Sprintf("AmbiguousAttributeList(%s, %v)", l.Name, l.Values)
}

// Attribute returns the values of an attribute over all spans. Schema
// attributes and the derived names text, start and end are read locally; any
// other name goes through ResolveAttribute.
func (l *Layer) Attribute(name string) (AttributeValues, error) {
	if IsReservedAttribute(name) {
		list := &AttributeList{Name: name, IndexType: IndexSpans}
		for _, s := range l.spans {
			v, _ := s.Attribute(name)
			list.Values = append(list.Values, v)
		}
		return list, nil
	}
	if l.hasAttribute(name) {
		if l.ambiguous {
			list := &AmbiguousAttributeList{Name: name}
			for _, s := range l.spans {
				list.Values = append(list.Values, annotationValues(s, name))
			}
			return list, nil
		}
		list := &AttributeList{Name: name, IndexType: IndexSpans}
		for _, s := range l.spans {
			var v interface{}
			if len(s.annotations) > 0 {
				v = s.annotations[0].attrs[name]
			}
			list.Values = append(list.Values, v)
		}
		return list, nil
	}
	return l.ResolveAttribute(name)
}

// ResolveAttribute resolves an attribute that is not in the layer schema
// through another layer of the same text. The target layer is found through
// the text's attribute mapping and through the layers this layer depends on.
// A target with spans at the same level yields one value per span (an
// AmbiguousAttributeList for ambiguous targets); a finer target yields an
// AttributeList indexed by layers, one list of values per span.
func (l *Layer) ResolveAttribute(name string) (AttributeValues, error) {
	if len(l.spans) == 0 {
		return nil, errors.NewAttribute(name, l.describe(), "layer is empty")
	}
	target, err := l.foreignTarget(name)
	if err != nil {
		return nil, err
	}
	level := l.spanLevel()
	targetLevel := target.spanLevel()
	if targetLevel > level {
		return nil, errors.NewAttribute(name, l.describe(),
			"target layer %q has coarser spans (level %d) than the layer (level %d)", target.name, targetLevel, level)
	}

	if targetLevel == level {
		if target.ambiguous {
			list := &AmbiguousAttributeList{Name: name}
			for _, s := range l.spans {
				var values []interface{}
				if ts := target.Get(s.base); ts != nil {
					values = annotationValues(ts, name)
				}
				list.Values = append(list.Values, values)
			}
			return list, nil
		}
		list := &AttributeList{Name: name, IndexType: IndexSpans}
		for _, s := range l.spans {
			list.Values = append(list.Values, resolveEntry(target, name, s.base, targetLevel))
		}
		return list, nil
	}

	list := &AttributeList{Name: name, IndexType: IndexLayers}
	for _, s := range l.spans {
		list.Values = append(list.Values, resolveEntry(target, name, s.base, targetLevel))
	}
	return list, nil
}

// foreignTarget finds the unique layer that defines name for this layer.
func (l *Layer) foreignTarget(name string) (*Layer, error) {
	if l.text == nil || l.state != Attached {
		return nil, errors.NewAttribute(name, l.describe(), "layer is not attached to a text")
	}
	t := l.text

	var candidates []*Layer
	addCandidate := func(c *Layer) {
		for _, existing := range candidates {
			if existing == c {
				return
			}
		}
		candidates = append(candidates, c)
	}

	mapping := t.mapping.Elementary
	if l.spanLevel() > 0 {
		mapping = t.mapping.Enveloping
	}
	if targetName, ok := mapping[name]; ok && targetName != l.name {
		target, ok := t.layers[targetName]
		if !ok {
			return nil, errors.NewAttribute(name, l.describe(),
				"attribute mapping points to layer %q which is not attached", targetName)
		}
		if !target.hasAttribute(name) {
			return nil, errors.NewAttribute(name, l.describe(),
				"attribute mapping points to layer %q which has no such attribute", targetName)
		}
		addCandidate(target)
	}

	for dep := t.layers[l.target]; dep != nil; dep = t.layers[dep.target] {
		if dep.hasAttribute(name) {
			addCandidate(dep)
			break
		}
		if dep.kind == KindElementary {
			break
		}
	}

	switch len(candidates) {
	case 0:
		return nil, errors.NewAttribute(name, l.describe(), "no attribute mapping and no dependency layer defines it")
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.name
		}
		return nil, errors.NewAttribute(name, l.describe(), "ambiguous between layers %q", names)
	}
}

// resolveEntry returns the value of name in target for base. When target has
// finer spans than base, the result is a list with one entry per descendant
// of base at the target level.
func resolveEntry(target *Layer, name string, base basespan.BaseSpan, targetLevel int) interface{} {
	if base.Level() == targetLevel {
		ts := target.Get(base)
		if ts == nil {
			return nil
		}
		if target.ambiguous {
			return &AttributeList{Name: name, IndexType: IndexAnnotations, Values: annotationValues(ts, name)}
		}
		if len(ts.annotations) == 0 {
			return nil
		}
		return ts.annotations[0].attrs[name]
	}
	inner := &AttributeList{Name: name, IndexType: IndexSpans}
	for _, child := range descendantsAtLevel(base, targetLevel) {
		inner.Values = append(inner.Values, resolveEntry(target, name, child, targetLevel))
	}
	return inner
}

func descendantsAtLevel(base basespan.BaseSpan, level int) []basespan.BaseSpan {
	if base.Level() <= level {
		return []basespan.BaseSpan{base}
	}
	var out []basespan.BaseSpan
	for _, c := range base.Children() {
		out = append(out, descendantsAtLevel(c, level)...)
	}
	return out
}

func annotationValues(s *Span, name string) []interface{} {
	values := make([]interface{}, len(s.annotations))
	for i, a := range s.annotations {
		values[i] = a.attrs[name]
	}
	return values
}

func (l *Layer) describe() string {
	return fmt.Sprintf("layer %q", l.name)
}

// ValueCount is one row of CountValues.
type ValueCount struct {
	Value interface{}
	Count int
}

// CountValues counts the values of an attribute over all spans, or over all
// annotations of an ambiguous layer. The name "text" counts surface texts.
// Rows are in order of first occurrence.
func (l *Layer) CountValues(name string) ([]ValueCount, error) {
	if name != "text" && !l.hasAttribute(name) {
		return nil, errors.NewAttribute(name, l.describe(), "not a layer attribute")
	}
	var rows []ValueCount
	index := map[string]int{}
	add := func(v interface{}) {
		k := valueKey(v)
		if i, ok := index[k]; ok {
			rows[i].Count++
			return
		}
		index[k] = len(rows)
		rows = append(rows, ValueCount{Value: v, Count: 1})
	}
	for _, s := range l.spans {
		if !l.ambiguous {
			if name == "text" {
				add(s.Text())
			} else if len(s.annotations) > 0 {
				add(s.annotations[0].attrs[name])
			}
			continue
		}
		for _, a := range s.annotations {
			if name == "text" {
				add(a.Text())
			} else {
				add(a.attrs[name])
			}
		}
	}
	return rows, nil
}

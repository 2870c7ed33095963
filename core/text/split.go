package text

import (
	"unicode"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
)

// SplitBy creates one text per span of the named layer. Each new text holds
// the span's enclosing substring and copies of the spans of the requested
// layers that fall inside it, shifted to the new offsets. Layers the
// requested layers depend on are carried too. With trim, leading and
// trailing whitespace of each piece is dropped.
func SplitBy(t *Text, layerName string, layers []string, trim bool) ([]*Text, error) {
	by, err := t.Layer(layerName)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, name := range layers {
		if !t.HasLayer(name) {
			return nil, errors.NewNotFound("layer", name)
		}
		wanted[name] = true
		for _, a := range t.Ancestors(name) {
			wanted[a] = true
		}
	}
	var order []*Layer
	for _, l := range t.Layers() {
		if wanted[l.name] {
			order = append(order, l)
		}
	}

	out := make([]*Text, 0, by.Len())
	for _, s := range by.spans {
		start, end := s.Start(), s.End()
		if trim {
			start, end = t.trimRange(start, end)
		}
		piece := New(t.Substring(start, end), WithAttributeMapping(t.mapping), WithMeta(t.Meta))
		for _, src := range order {
			dst := src.template()
			dst.text = piece
			for _, span := range src.spans {
				if span.Start() < start || span.End() > end {
					continue
				}
				base, err := shift(span.base, start)
				if err != nil {
					return nil, err
				}
				ns := &Span{base: base, layer: dst}
				for _, a := range span.annotations {
					ca := a.copyDetached()
					ca.span = ns
					ns.annotations = append(ns.annotations, ca)
				}
				dst.spans = append(dst.spans, ns)
			}
			if err := piece.AddLayer(dst); err != nil {
				return nil, err
			}
		}
		out = append(out, piece)
	}
	return out, nil
}

func (t *Text) trimRange(start, end int) (int, int) {
	start = min(max(start, 0), len(t.runes))
	end = min(max(end, start), len(t.runes))
	for start < end && unicode.IsSpace(t.runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(t.runes[end-1]) {
		end--
	}
	return start, end
}

func shift(b basespan.BaseSpan, offset int) (basespan.BaseSpan, error) {
	if b.Level() == 0 {
		return basespan.NewElementary(b.Start()-offset, b.End()-offset)
	}
	children := b.Children()
	shifted := make([]basespan.BaseSpan, len(children))
	for i, c := range children {
		sc, err := shift(c, offset)
		if err != nil {
			return nil, err
		}
		shifted[i] = sc
	}
	return basespan.NewEnveloping(shifted...)
}

package layerops

import (
	"sort"

	"github.com/FocuswithJustin/annotext/core/text"
)

// SpanIndex answers interval queries over the spans of a layer. It is a
// snapshot: later changes to the layer are not seen.
type SpanIndex struct {
	spans  []*text.Span
	maxEnd []int
}

// NewSpanIndex indexes the spans of l.
func NewSpanIndex(l *text.Layer) *SpanIndex {
	spans := l.Spans()
	idx := &SpanIndex{spans: spans, maxEnd: make([]int, len(spans))}
	for i, s := range spans {
		idx.maxEnd[i] = s.End()
		if i > 0 && idx.maxEnd[i-1] > s.End() {
			idx.maxEnd[i] = idx.maxEnd[i-1]
		}
	}
	return idx
}

// Len returns the number of indexed spans.
func (x *SpanIndex) Len() int { return len(x.spans) }

// scan calls fn for every span with start < end, skipping the prefix whose
// spans all end at or before start.
func (x *SpanIndex) scan(start, end int, fn func(*text.Span)) {
	from := sort.Search(len(x.spans), func(i int) bool { return x.maxEnd[i] > start })
	for _, s := range x.spans[from:] {
		if s.Start() >= end {
			break
		}
		fn(s)
	}
}

// Overlapping returns the spans that overlap [start, end).
func (x *SpanIndex) Overlapping(start, end int) []*text.Span {
	var out []*text.Span
	x.scan(start, end, func(s *text.Span) {
		if s.End() > start {
			out = append(out, s)
		}
	})
	return out
}

// Covered returns the spans that lie within [start, end).
func (x *SpanIndex) Covered(start, end int) []*text.Span {
	var out []*text.Span
	from := sort.Search(len(x.spans), func(i int) bool { return x.spans[i].Start() >= start })
	for _, s := range x.spans[from:] {
		if s.Start() > end {
			break
		}
		if s.End() <= end {
			out = append(out, s)
		}
	}
	return out
}

// Covering returns the spans that contain [start, end).
func (x *SpanIndex) Covering(start, end int) []*text.Span {
	var out []*text.Span
	for _, s := range x.spans {
		if s.Start() > start {
			break
		}
		if s.End() >= end {
			out = append(out, s)
		}
	}
	return out
}

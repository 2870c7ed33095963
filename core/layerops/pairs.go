package layerops

import (
	"iter"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/text"
)

func overlapping(a, b *text.Span) bool {
	return basespan.Overlaps(a.BaseSpan(), b.BaseSpan())
}

func nested(a, b *text.Span) bool {
	return overlapping(a, b) &&
		(basespan.Covers(a.BaseSpan(), b.BaseSpan()) || basespan.Covers(b.BaseSpan(), a.BaseSpan()))
}

// pairs yields every pair (a, b) of spans that satisfies keep, a before b in
// layer order. Only spans starting at or before a's end are considered.
func pairs(l *text.Layer, keep func(a, b *text.Span) bool) iter.Seq2[*text.Span, *text.Span] {
	return func(yield func(*text.Span, *text.Span) bool) {
		spans := l.Spans()
		for i, a := range spans {
			for _, b := range spans[i+1:] {
				if b.Start() > a.End() {
					break
				}
				if keep(a, b) && !yield(a, b) {
					return
				}
			}
		}
	}
}

// IntersectingPairs yields the pairs of spans that overlap.
func IntersectingPairs(l *text.Layer) iter.Seq2[*text.Span, *text.Span] {
	return pairs(l, overlapping)
}

// NestedPairs yields the overlapping pairs where one span covers the other.
func NestedPairs(l *text.Layer) iter.Seq2[*text.Span, *text.Span] {
	return pairs(l, nested)
}

// ConflictingPairs yields the overlapping pairs where neither span covers
// the other.
func ConflictingPairs(l *text.Layer) iter.Seq2[*text.Span, *text.Span] {
	return pairs(l, func(a, b *text.Span) bool { return overlapping(a, b) && !nested(a, b) })
}

// TouchingPairs yields the pairs where one span ends exactly where the other
// starts.
func TouchingPairs(l *text.Layer) iter.Seq2[*text.Span, *text.Span] {
	return pairs(l, func(a, b *text.Span) bool { return a.End() == b.Start() })
}

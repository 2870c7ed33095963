package layerops

import (
	"iter"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/text"
)

// DiffLayer walks both layers in base span order and yields the differences
// as pairs. A span present in only one layer is paired with nil. Spans with
// equal base spans are matched: with a nil equal every match is dropped,
// otherwise a match is yielded unless equal returns true.
func DiffLayer(a, b *text.Layer, equal func(x, y *text.Span) bool) iter.Seq2[*text.Span, *text.Span] {
	return func(yield func(*text.Span, *text.Span) bool) {
		as, bs := a.Spans(), b.Spans()
		i, j := 0, 0
		for i < len(as) || j < len(bs) {
			switch {
			case j == len(bs):
				if !yield(as[i], nil) {
					return
				}
				i++
			case i == len(as):
				if !yield(nil, bs[j]) {
					return
				}
				j++
			default:
				c := basespan.Compare(as[i].BaseSpan(), bs[j].BaseSpan())
				switch {
				case c < 0:
					if !yield(as[i], nil) {
						return
					}
					i++
				case c > 0:
					if !yield(nil, bs[j]) {
						return
					}
					j++
				default:
					if equal != nil && !equal(as[i], bs[j]) {
						if !yield(as[i], bs[j]) {
							return
						}
					}
					i++
					j++
				}
			}
		}
	}
}

// SpansEqual reports whether two spans have equal annotations. It can be
// passed to DiffLayer to report matched spans whose annotations differ.
func SpansEqual(x, y *text.Span) bool {
	return x.Equal(y)
}

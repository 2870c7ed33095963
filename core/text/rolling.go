package text

import (
	"iter"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// Rolling is a restartable sequence of windows of consecutive spans.
type Rolling struct {
	layer      *Layer
	window     int
	minPeriods int
	inside     *Layer
}

// Rolling returns windows of window consecutive spans. When minPeriods is
// smaller than window, windows at the edges shrink down to minPeriods spans.
// A minPeriods of 0 means window. When inside is not nil, the spans are first
// partitioned by the spans of that enveloping layer, and no window crosses a
// partition boundary.
func (l *Layer) Rolling(window, minPeriods int, inside *Layer) (*Rolling, error) {
	if window < 1 {
		return nil, errors.NewValidation("window", "window must be positive")
	}
	if minPeriods == 0 {
		minPeriods = window
	}
	if minPeriods < 1 || minPeriods > window {
		return nil, errors.NewValidation("min_periods", "min_periods must be in [1, window]")
	}
	if inside != nil && !envelopes(inside, l) {
		return nil, errors.NewStructural("rolling", l.name, "layer %q does not envelop this layer", inside.name)
	}
	return &Rolling{layer: l, window: window, minPeriods: minPeriods, inside: inside}, nil
}

// All yields the windows. Every call starts from the beginning.
func (r *Rolling) All() iter.Seq[[]*Span] {
	return func(yield func([]*Span) bool) {
		if r.inside == nil {
			r.windows(r.layer.spans, yield)
			return
		}
		for _, outer := range r.inside.spans {
			if !r.windows(r.layer.spansInside(outer.base), yield) {
				return
			}
		}
	}
}

// Windows collects all windows.
func (r *Rolling) Windows() [][]*Span {
	var out [][]*Span
	for w := range r.All() {
		out = append(out, w)
	}
	return out
}

func (r *Rolling) windows(spans []*Span, yield func([]*Span) bool) bool {
	n, w, m := len(spans), r.window, r.minPeriods
	emit := func(from, to int) bool {
		win := make([]*Span, to-from)
		copy(win, spans[from:to])
		return yield(win)
	}
	if m == w {
		for i := 0; i+w <= n; i++ {
			if !emit(i, i+w) {
				return false
			}
		}
		return true
	}
	for i := m - w; i <= n-m; i++ {
		from, to := max(0, i), min(i+w, n)
		if to-from < m {
			continue
		}
		if !emit(from, to) {
			return false
		}
	}
	return true
}

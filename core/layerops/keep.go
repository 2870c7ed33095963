package layerops

import "github.com/FocuswithJustin/annotext/core/text"

// KeepAnnotations removes the annotations of l for which keep returns false.
// Spans left without annotations are removed. It returns the number of
// removed annotations.
func KeepAnnotations(l *text.Layer, keep func(*text.Annotation) bool) int {
	removed := 0
	for _, s := range l.Spans() {
		for _, a := range s.Annotations() {
			if !keep(a) {
				s.RemoveAnnotation(a)
				removed++
			}
		}
		if s.NumAnnotations() == 0 {
			_ = l.RemoveSpan(s)
		}
	}
	return removed
}

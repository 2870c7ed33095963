package layerops

import (
	"strings"
	"unicode"

	"github.com/FocuswithJustin/annotext/core/text"
)

// Syndrome codes, reported in this order.
const (
	// SplitStart: the span starts inside a word.
	SplitStart = "S"
	// SplitEnd: the span ends inside a word.
	SplitEnd = "E"
	// Overlap: the span overlaps another span of the layer.
	Overlap = "O"
	// MultiWord: the span contains whitespace.
	MultiWord = "M"
)

// Conflict is the syndrome of one span. An empty Code means no problem.
type Conflict struct {
	Span *text.Span
	Code string
}

// Conflicts classifies every span of l by how it sits on the text: whether
// it cuts words at its edges, overlaps other spans, or covers several words.
// The layer must be bound to a text.
func Conflicts(l *text.Layer) []Conflict {
	spans := l.Spans()
	graph := conflictGraph(spans)
	var runes []rune
	if t := l.Text(); t != nil {
		runes = []rune(t.String())
	}
	isWord := func(i int) bool {
		if i < 0 || i >= len(runes) {
			return false
		}
		r := runes[i]
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}

	out := make([]Conflict, len(spans))
	for i, s := range spans {
		var code strings.Builder
		start, end := s.Start(), s.End()
		if isWord(start-1) && isWord(start) {
			code.WriteString(SplitStart)
		}
		if isWord(end-1) && isWord(end) {
			code.WriteString(SplitEnd)
		}
		if len(graph[i]) > 0 {
			code.WriteString(Overlap)
		}
		if strings.IndexFunc(s.EnclosingText(), unicode.IsSpace) >= 0 {
			code.WriteString(MultiWord)
		}
		out[i] = Conflict{Span: s, Code: code.String()}
	}
	return out
}

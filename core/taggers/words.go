package taggers

import (
	"context"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/annotext/core/text"
)

const (
	softHyphen = '\u00ad'
	apostrophe = '\u2019'
)

// joiners glue the touching tokens on both sides into one word.
var joiners = map[string]bool{
	"-":                true,
	"'":                true,
	string(apostrophe): true,
	string(softHyphen): true,
}

// Words produces the words layer from tokens. Touching tokens joined by a
// hyphen, apostrophe or soft hyphen form one word, as do digits split by a
// decimal point or comma. normalized_form is set when the surface form
// contains soft hyphens or typographic apostrophes, and is nil otherwise.
type Words struct {
	input  string
	output string
}

// NewWords creates a tagger for the "words" layer over "tokens".
func NewWords() *Words { return &Words{input: "tokens", output: "words"} }

func (tg *Words) Name() string               { return "WordTagger" }
func (tg *Words) InputLayers() []string      { return []string{tg.input} }
func (tg *Words) OutputLayer() string        { return tg.output }
func (tg *Words) OutputAttributes() []string { return []string{"normalized_form"} }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// MakeLayer groups the tokens into words.
func (tg *Words) MakeLayer(_ context.Context, t *text.Text, layers map[string]*text.Layer) (*text.Layer, error) {
	tokens := layers[tg.input].Spans()
	l, err := text.NewLayer(text.Config{Name: tg.output, Attributes: tg.OutputAttributes(), Text: t})
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(tokens); {
		start, end := tokens[i].Start(), tokens[i].End()
		j := i + 1
		for j+1 < len(tokens) {
			mid, next := tokens[j], tokens[j+1]
			if mid.Start() != end || next.Start() != mid.End() {
				break
			}
			left := t.Substring(start, end)
			glue := mid.Text()
			right := next.Text()
			joined := joiners[glue] && classify([]rune(right)[0]) == TokenWord
			numeric := (glue == "." || glue == ",") && isDigits(left) && isDigits(right)
			if !joined && !numeric {
				break
			}
			end = next.End()
			j += 2
		}

		surface := t.Substring(start, end)
		var normalized interface{}
		if n := normalize(surface); n != surface {
			normalized = n
		}
		if _, err := l.Add(start, end, map[string]interface{}{"normalized_form": normalized}); err != nil {
			return nil, err
		}
		i = j
	}
	return l, nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, string(softHyphen), "")
	return strings.ReplaceAll(s, string(apostrophe), "'")
}

package taggers

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/annotext/core/text"
)

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

func isTerminal(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !strings.ContainsRune(".!?…", r) {
			return false
		}
	}
	return true
}

func startsLower(word string) bool {
	for _, r := range word {
		return unicode.IsLower(r)
	}
	return false
}

// Sentences produces an enveloping sentences layer over words. A sentence
// ends after a word made of terminal punctuation unless the next word starts
// with a lower case letter, and always at a blank line.
type Sentences struct {
	input  string
	output string
}

// NewSentences creates a tagger for the "sentences" layer over "words".
func NewSentences() *Sentences { return &Sentences{input: "words", output: "sentences"} }

func (tg *Sentences) Name() string               { return "SentenceTokenizer" }
func (tg *Sentences) InputLayers() []string      { return []string{tg.input} }
func (tg *Sentences) OutputLayer() string        { return tg.output }
func (tg *Sentences) OutputAttributes() []string { return nil }

// MakeLayer splits the words into sentences.
func (tg *Sentences) MakeLayer(_ context.Context, t *text.Text, layers map[string]*text.Layer) (*text.Layer, error) {
	words := layers[tg.input].Spans()
	l, err := text.NewLayer(text.Config{Name: tg.output, Enveloping: tg.input, Text: t})
	if err != nil {
		return nil, err
	}
	from := 0
	for i, w := range words {
		last := i == len(words)-1
		split := last
		if !last {
			next := words[i+1]
			gap := t.Substring(w.End(), next.Start())
			switch {
			case blankLine.MatchString(gap):
				split = true
			case isTerminal(w.Text()) && !startsLower(next.Text()):
				split = true
			}
		}
		if split {
			if _, err := l.AddEnveloping(words[from:i+1], nil); err != nil {
				return nil, err
			}
			from = i + 1
		}
	}
	return l, nil
}

// Paragraphs produces an enveloping paragraphs layer over sentences,
// splitting at blank lines.
type Paragraphs struct {
	input  string
	output string
}

// NewParagraphs creates a tagger for the "paragraphs" layer over "sentences".
func NewParagraphs() *Paragraphs { return &Paragraphs{input: "sentences", output: "paragraphs"} }

func (tg *Paragraphs) Name() string               { return "ParagraphTokenizer" }
func (tg *Paragraphs) InputLayers() []string      { return []string{tg.input} }
func (tg *Paragraphs) OutputLayer() string        { return tg.output }
func (tg *Paragraphs) OutputAttributes() []string { return nil }

// MakeLayer groups the sentences into paragraphs.
func (tg *Paragraphs) MakeLayer(_ context.Context, t *text.Text, layers map[string]*text.Layer) (*text.Layer, error) {
	sentences := layers[tg.input].Spans()
	l, err := text.NewLayer(text.Config{Name: tg.output, Enveloping: tg.input, Text: t})
	if err != nil {
		return nil, err
	}
	from := 0
	for i, s := range sentences {
		last := i == len(sentences)-1
		if last || blankLine.MatchString(t.Substring(s.End(), sentences[i+1].Start())) {
			if _, err := l.AddEnveloping(sentences[from:i+1], nil); err != nil {
				return nil, err
			}
			from = i + 1
		}
	}
	return l, nil
}

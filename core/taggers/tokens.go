package taggers

import (
	"context"
	"unicode"

	"github.com/FocuswithJustin/annotext/core/text"
)

// TokenKind classifies the characters of a token.
type TokenKind int

const (
	TokenSpace TokenKind = iota
	TokenWord
	TokenPunctuation
)

// Token is a run of characters of one kind, with rune offsets.
type Token struct {
	Start int
	End   int
	Kind  TokenKind
}

func classify(r rune) TokenKind {
	switch {
	case unicode.IsSpace(r):
		return TokenSpace
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '\'':
		return TokenWord
	default:
		return TokenPunctuation
	}
}

// Tokenize splits s into runs of word characters and runs of punctuation.
// Whitespace separates tokens and is not returned.
func Tokenize(s string) []Token {
	var tokens []Token
	start := -1
	var current TokenKind

	finish := func(end int) {
		if start >= 0 && current != TokenSpace {
			tokens = append(tokens, Token{Start: start, End: end, Kind: current})
		}
		start = -1
	}

	i := 0
	for _, r := range s {
		kind := classify(r)
		if start < 0 {
			start, current = i, kind
		} else if kind != current {
			finish(i)
			start, current = i, kind
		}
		i++
	}
	finish(i)
	return tokens
}

// Tokens produces the tokens layer: one span per word or punctuation run.
type Tokens struct {
	output string
}

// NewTokens creates a tagger for the "tokens" layer.
func NewTokens() *Tokens { return &Tokens{output: "tokens"} }

func (tg *Tokens) Name() string               { return "TokensTagger" }
func (tg *Tokens) InputLayers() []string      { return nil }
func (tg *Tokens) OutputLayer() string        { return tg.output }
func (tg *Tokens) OutputAttributes() []string { return nil }

// MakeLayer tokenizes the whole text.
func (tg *Tokens) MakeLayer(_ context.Context, t *text.Text, _ map[string]*text.Layer) (*text.Layer, error) {
	l, err := text.NewLayer(text.Config{Name: tg.output, Text: t})
	if err != nil {
		return nil, err
	}
	for _, tok := range Tokenize(t.String()) {
		if _, err := l.Add(tok.Start, tok.End, nil); err != nil {
			return nil, err
		}
	}
	return l, nil
}

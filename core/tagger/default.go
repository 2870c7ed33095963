package tagger

import "github.com/FocuswithJustin/annotext/core/taggers"

// DefaultResolver returns a new resolver for the reference layers: tokens,
// words, sentences and paragraphs.
func DefaultResolver() *Resolver {
	r, err := NewResolver(
		taggers.NewTokens(),
		taggers.NewWords(),
		taggers.NewSentences(),
		taggers.NewParagraphs(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

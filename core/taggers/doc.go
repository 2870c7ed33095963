// Package taggers provides simple rule-based taggers for the reference
// layers: tokens, words, sentences and paragraphs, plus a configurable
// regular expression tagger. They are deliberately plain segmenters; real
// linguistic analysis is left to external taggers implementing the same
// contract.
package taggers

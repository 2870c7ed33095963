// Package basespan provides the position-only backbone of annotated spans.
//
// A base span is either elementary, a single (start, end) range of rune offsets
// into a text, or enveloping, an ordered sequence of child base spans whose
// start and end are derived from the first and last child. Base spans are
// immutable after construction and are shared freely between spans, layers and
// map keys (see Key).
//
// # Ordering
//
// Compare defines a total order: by start, then end, then level (elementary
// spans sort before enveloping ones with the same extent), then lexicographically
// by children.
//
// # Literals
//
// Parse reads the literal syntax produced by String:
//
//	(0, 4)
//	[(0, 4), (8, 12)]
//	[[(0, 4), (5, 7)], [(9, 12)]]
package basespan

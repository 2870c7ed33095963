// Package text provides the layered annotation model: a Text owns a raw string
// and a set of named Layers; each Layer holds Spans sorted by base span, and each
// Span holds one (unambiguous layer) or several (ambiguous layer) Annotations.
//
// # Layer kinds
//
// A layer is exactly one of:
//
//   - elementary: spans are elementary ranges over the text
//   - child: spans share base spans with the parent layer
//   - enveloping: each span is a sequence of spans of the enveloped layer
//
// # Lifecycle
//
// A Layer starts unattached, becomes attached through Text.AddLayer and ends
// detached after Text.PopLayer. Popping a layer also pops every layer that
// depends on it through parent or enveloping links. A detached layer cannot be
// attached again; use Layer.Copy.
//
// # Attribute access
//
// Attributes are read through explicit accessors (Span.Value, Span.Values,
// Span.Attribute, Layer.Attribute). Names missing from a layer's schema are
// resolved through the Text's AttributeMapping and the parent chain; a failed
// or ambiguous lookup returns an *errors.AttributeError.
//
// # Offsets
//
// Offsets count Unicode code points, not bytes. Text access clamps offsets to
// the bounds of the text and never fails on stale spans.
//
// The model is not safe for concurrent use. Confine a Text and its layers to
// one goroutine at a time.
package text

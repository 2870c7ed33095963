package layerops

import (
	"fmt"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// MergeLayers returns a new layer holding the spans of all layers. The
// layers must agree on enveloping target and ambiguity. Output attributes a
// source layer lacks are set to nil. Merging child layers is not supported.
func MergeLayers(layers []*text.Layer, outputName string, outputAttributes []string) (*text.Layer, error) {
	if len(layers) == 0 {
		return nil, errors.NewValidation("layers", "nothing to merge")
	}
	first := layers[0]
	for _, l := range layers[1:] {
		if l.Parent() != first.Parent() || l.Enveloping() != first.Enveloping() || l.Ambiguous() != first.Ambiguous() {
			return nil, errors.NewStructural("merge_layers", l.Name(),
				"structure (parent %q, enveloping %q, ambiguous %t) differs from layer %q (parent %q, enveloping %q, ambiguous %t)",
				l.Parent(), l.Enveloping(), l.Ambiguous(), first.Name(), first.Parent(), first.Enveloping(), first.Ambiguous())
		}
	}
	if first.Parent() != "" {
		return nil, errors.NewUnsupported("merge_layers", fmt.Sprintf("layers with parent %q", first.Parent()))
	}

	out, err := text.NewLayer(text.Config{
		Name:       outputName,
		Attributes: outputAttributes,
		Enveloping: first.Enveloping(),
		Ambiguous:  first.Ambiguous(),
		Text:       first.Text(),
	})
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		for _, s := range l.Spans() {
			for _, a := range s.Annotations() {
				attrs := make(map[string]interface{}, len(outputAttributes))
				for _, name := range outputAttributes {
					attrs[name] = a.Value(name)
				}
				if _, err := out.AddAnnotation(s.BaseSpan(), attrs); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

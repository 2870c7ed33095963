package layerops

import (
	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/text"
)

// FlattenOptions configures Flatten. The zero value keeps the source
// attributes unchanged.
type FlattenOptions struct {
	// OutputAttributes selects and orders the output attributes, named after
	// renaming. Defaults to the renamed source attributes.
	OutputAttributes []string
	// Rename maps source attribute names to output names.
	Rename map[string]string
	// DefaultValues are the output layer defaults.
	DefaultValues map[string]interface{}
	// Disambiguate, when set, is called on every output span after all
	// annotations have been added.
	Disambiguate func(*text.Span)
}

// Flatten projects every span of l onto the elementary span from its start to
// its end and returns an ambiguous elementary layer with one span per
// distinct projection. Annotations of source spans with the same projection
// are gathered on that span.
func Flatten(l *text.Layer, outputName string, opts FlattenOptions) (*text.Layer, error) {
	rename := func(name string) string {
		if to, ok := opts.Rename[name]; ok {
			return to
		}
		return name
	}
	attrs := opts.OutputAttributes
	if attrs == nil {
		for _, a := range l.Attributes() {
			attrs = append(attrs, rename(a))
		}
	}
	out, err := text.NewLayer(text.Config{
		Name:          outputName,
		Attributes:    attrs,
		Ambiguous:     true,
		DefaultValues: opts.DefaultValues,
		Text:          l.Text(),
	})
	if err != nil {
		return nil, err
	}

	for _, s := range l.Spans() {
		base, err := basespan.NewElementary(s.Start(), s.End())
		if err != nil {
			return nil, err
		}
		if len(s.Annotations()) == 0 {
			if _, err := out.AddSpan(base); err != nil {
				return nil, err
			}
			continue
		}
		for _, a := range s.Annotations() {
			values := make(map[string]interface{}, len(attrs))
			for name, v := range a.Attributes() {
				if to := rename(name); out.HasAttribute(to) {
					values[to] = v
				}
			}
			if _, err := out.AddAnnotation(base, values); err != nil {
				return nil, err
			}
		}
	}

	if opts.Disambiguate != nil {
		for _, s := range out.Spans() {
			opts.Disambiguate(s)
		}
	}
	return out, nil
}

// PickFirst keeps only the first annotation of a span. It can be used as
// FlattenOptions.Disambiguate.
func PickFirst(s *text.Span) {
	for s.NumAnnotations() > 1 {
		_ = s.DelAnnotation(s.NumAnnotations() - 1)
	}
}

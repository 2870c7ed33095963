// Package layerdict converts texts and layers to and from their
// JSON-compatible record form:
//
//	{name, attributes, secondary_attributes, parent, enveloping, ambiguous,
//	 serialisation_module, meta, spans: [{base_span, annotations: [{...}]}]}
//
// Elementary base spans are written as [start, end] and enveloping base spans
// as nested lists of those. Attribute, annotation and span order are kept.
package layerdict

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// LayerDict is the record form of a layer.
type LayerDict struct {
	Name                string                 `json:"name"`
	Attributes          []string               `json:"attributes"`
	SecondaryAttributes []string               `json:"secondary_attributes"`
	Parent              *string                `json:"parent"`
	Enveloping          *string                `json:"enveloping"`
	Ambiguous           bool                   `json:"ambiguous"`
	SerialisationModule *string                `json:"serialisation_module"`
	Meta                map[string]interface{} `json:"meta"`
	Spans               []SpanDict             `json:"spans"`
}

// SpanDict is the record form of a span.
type SpanDict struct {
	BaseSpan    interface{}              `json:"base_span"`
	Annotations []map[string]interface{} `json:"annotations"`
}

// TextDict is the record form of a text with its layers in dependency order.
type TextDict struct {
	Text   string                 `json:"text"`
	Meta   map[string]interface{} `json:"meta"`
	Layers []*LayerDict           `json:"layers"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exportDefault writes every span with its annotations restricted to the
// layer schema.
func exportDefault(l *text.Layer) (*LayerDict, error) {
	d := &LayerDict{
		Name:                l.Name(),
		Attributes:          l.Attributes(),
		SecondaryAttributes: l.SecondaryAttributes(),
		Parent:              optional(l.Parent()),
		Enveloping:          optional(l.Enveloping()),
		Ambiguous:           l.Ambiguous(),
		SerialisationModule: optional(l.SerialisationModule()),
		Meta:                maps.Clone(l.Meta),
		Spans:               make([]SpanDict, 0, l.Len()),
	}
	if d.Attributes == nil {
		d.Attributes = []string{}
	}
	if d.SecondaryAttributes == nil {
		d.SecondaryAttributes = []string{}
	}
	if d.Meta == nil {
		d.Meta = map[string]interface{}{}
	}
	attrs := l.Attributes()
	for _, s := range l.Spans() {
		sd := SpanDict{
			BaseSpan:    s.BaseSpan().Raw(),
			Annotations: make([]map[string]interface{}, 0, s.NumAnnotations()),
		}
		for _, a := range s.Annotations() {
			rec := make(map[string]interface{}, len(attrs))
			for _, name := range attrs {
				rec[name] = a.Value(name)
			}
			sd.Annotations = append(sd.Annotations, rec)
		}
		d.Spans = append(d.Spans, sd)
	}
	return d, nil
}

// importDefault rebuilds a layer bound to t.
func importDefault(d *LayerDict, t *text.Text) (*text.Layer, error) {
	l, err := text.NewLayer(text.Config{
		Name:                d.Name,
		Attributes:          d.Attributes,
		SecondaryAttributes: d.SecondaryAttributes,
		Parent:              deref(d.Parent),
		Enveloping:          deref(d.Enveloping),
		Ambiguous:           d.Ambiguous,
		SerialisationModule: deref(d.SerialisationModule),
		Meta:                d.Meta,
		Text:                t,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "layer %q", d.Name)
	}
	for i, sd := range d.Spans {
		base, err := basespan.FromRaw(sd.BaseSpan)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %q span %d", d.Name, i)
		}
		if len(sd.Annotations) == 0 {
			if !d.Ambiguous {
				return nil, errors.NewParse("layer dict", "",
					fmt.Sprintf("layer %q span %d (%s) has no annotations", d.Name, i, base))
			}
			if _, err := l.AddSpan(base); err != nil {
				return nil, errors.Wrapf(err, "layer %q span %d", d.Name, i)
			}
			continue
		}
		for _, attrs := range sd.Annotations {
			if _, err := l.AddAnnotation(base, attrs); err != nil {
				return nil, errors.Wrapf(err, "layer %q span %d", d.Name, i)
			}
		}
	}
	return l, nil
}

// TextToDict converts a text and all its layers using the standard codec.
func TextToDict(t *text.Text) (*TextDict, error) { return std.TextToDict(t) }

// DictToText rebuilds a text using the standard codec.
func DictToText(d *TextDict, opts ...text.Option) (*text.Text, error) {
	return std.DictToText(d, opts...)
}

// LayerToDict converts a layer using the standard codec.
func LayerToDict(l *text.Layer) (*LayerDict, error) { return std.LayerToDict(l) }

// DictToLayer rebuilds an unattached layer bound to t using the standard codec.
func DictToLayer(d *LayerDict, t *text.Text) (*text.Layer, error) { return std.DictToLayer(d, t) }

// ToJSON encodes a text using the standard codec.
func ToJSON(t *text.Text) ([]byte, error) { return std.ToJSON(t) }

// FromJSON decodes a text using the standard codec.
func FromJSON(data []byte, opts ...text.Option) (*text.Text, error) {
	return std.FromJSON(data, opts...)
}

// sortDicts orders layer dicts so that every layer follows the layer it
// depends on. Unknown dependencies are left for DictToText to report.
func sortDicts(layers []*LayerDict) []*LayerDict {
	byName := make(map[string]*LayerDict, len(layers))
	for _, d := range layers {
		byName[d.Name] = d
	}
	dependents := map[string][]*LayerDict{}
	var ready []*LayerDict
	for _, d := range layers {
		dep := deref(d.Parent)
		if dep == "" {
			dep = deref(d.Enveloping)
		}
		if _, ok := byName[dep]; dep == "" || !ok {
			ready = append(ready, d)
			continue
		}
		dependents[dep] = append(dependents[dep], d)
	}

	out := make([]*LayerDict, 0, len(layers))
	for len(ready) > 0 {
		d := ready[0]
		ready = ready[1:]
		out = append(out, d)
		next := dependents[d.Name]
		sort.SliceStable(next, func(i, j int) bool { return next[i].Name < next[j].Name })
		ready = append(ready, next...)
	}
	return out
}

func decodeJSON(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewParse("json", "", fmt.Sprintf("invalid text dict: %v", err))
	}
	return nil
}

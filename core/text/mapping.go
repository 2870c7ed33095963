package text

// AttributeMapping names, per attribute, the layer that resolves it when a
// layer without that attribute is asked for it. Elementary is used by layers
// with level 0 spans, Enveloping by layers with enveloping spans.
type AttributeMapping struct {
	Elementary map[string]string `yaml:"elementary" json:"elementary"`
	Enveloping map[string]string `yaml:"enveloping" json:"enveloping"`
}

var morphAttributes = []string{
	"lemma", "root", "root_tokens", "ending", "clitic", "form", "partofspeech",
}

// DefaultAttributeMapping maps the morphological attributes to the
// morph_analysis layer for both elementary and enveloping layers.
func DefaultAttributeMapping() AttributeMapping {
	m := AttributeMapping{
		Elementary: make(map[string]string, len(morphAttributes)),
		Enveloping: make(map[string]string, len(morphAttributes)),
	}
	for _, a := range morphAttributes {
		m.Elementary[a] = "morph_analysis"
		m.Enveloping[a] = "morph_analysis"
	}
	return m
}

// Copy returns an independent copy of the mapping.
func (m AttributeMapping) Copy() AttributeMapping {
	c := AttributeMapping{
		Elementary: make(map[string]string, len(m.Elementary)),
		Enveloping: make(map[string]string, len(m.Enveloping)),
	}
	for k, v := range m.Elementary {
		c.Elementary[k] = v
	}
	for k, v := range m.Enveloping {
		c.Enveloping[k] = v
	}
	return c
}

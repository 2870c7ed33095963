package text

// Annotation is one attribute-value assignment for a Span. The attribute map is
// schemaless: the layer schema is enforced when an annotation is attached to a
// span, so bookkeeping attributes may ride along afterwards through Set.
type Annotation struct {
	span  *Span
	attrs map[string]interface{}
}

// NewAnnotation creates a detached annotation holding a copy of attrs.
func NewAnnotation(attrs map[string]interface{}) *Annotation {
	a := &Annotation{attrs: copyMap(attrs)}
	if a.attrs == nil {
		a.attrs = map[string]interface{}{}
	}
	return a
}

// Span returns the owning span, or nil for a detached annotation.
func (a *Annotation) Span() *Span {
	return a.span
}

// Layer returns the layer of the owning span, or nil.
func (a *Annotation) Layer() *Layer {
	if a.span == nil {
		return nil
	}
	return a.span.layer
}

// Start returns the start offset of the owning span, or -1 when detached.
func (a *Annotation) Start() int {
	if a.span == nil {
		return -1
	}
	return a.span.Start()
}

// End returns the end offset of the owning span, or -1 when detached.
func (a *Annotation) End() int {
	if a.span == nil {
		return -1
	}
	return a.span.End()
}

// Text returns the surface text of the owning span, or "" when detached.
func (a *Annotation) Text() string {
	if a.span == nil {
		return ""
	}
	return a.span.Text()
}

// Get returns the stored value of an attribute.
func (a *Annotation) Get(name string) (interface{}, bool) {
	v, ok := a.attrs[name]
	return v, ok
}

// Value returns the stored value of an attribute, or nil.
func (a *Annotation) Value(name string) interface{} {
	return a.attrs[name]
}

// Set stores an attribute value.
func (a *Annotation) Set(name string, value interface{}) {
	a.attrs[name] = value
}

// Delete removes an attribute and reports whether it was present.
func (a *Annotation) Delete(name string) bool {
	_, ok := a.attrs[name]
	delete(a.attrs, name)
	return ok
}

// Len returns the number of stored attributes.
func (a *Annotation) Len() int {
	return len(a.attrs)
}

// Names returns the stored attribute names: schema attributes in schema order,
// then any extra attributes sorted by name.
func (a *Annotation) Names() []string {
	var names []string
	seen := make(map[string]bool, len(a.attrs))
	if l := a.Layer(); l != nil {
		for _, attr := range l.attributes {
			if _, ok := a.attrs[attr]; ok {
				names = append(names, attr)
				seen[attr] = true
			}
		}
	}
	for _, k := range sortedKeys(a.attrs) {
		if !seen[k] {
			names = append(names, k)
		}
	}
	return names
}

// Attributes returns a copy of the attribute map.
func (a *Annotation) Attributes() map[string]interface{} {
	return copyMap(a.attrs)
}

// Equal reports whether two annotations carry equal attributes. When both are
// attached, their spans must also share base span and layer name. The derived
// names text, start and end are ignored.
func (a *Annotation) Equal(b *Annotation) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.span != nil && b.span != nil {
		if a.span.base.Key() != b.span.base.Key() {
			return false
		}
		if a.span.layer != nil && b.span.layer != nil && a.span.layer.name != b.span.layer.name {
			return false
		}
	}
	return a.equalAttributes(b.attrs)
}

func (a *Annotation) equalAttributes(other map[string]interface{}) bool {
	count := 0
	for k, v := range a.attrs {
		if reservedAttributes[k] {
			continue
		}
		w, ok := other[k]
		if !ok || !equalValues(v, w) {
			return false
		}
		count++
	}
	for k := range other {
		if !reservedAttributes[k] {
			count--
		}
	}
	return count == 0
}

// ToRecord returns a flat view of the annotation: start, end, optionally text,
// and all stored attributes. A stored attribute named start, end or text takes
// precedence over the derived value here, while the Start, End and Text
// methods always return the derived value.
func (a *Annotation) ToRecord(withText bool) map[string]interface{} {
	rec := make(map[string]interface{}, len(a.attrs)+3)
	if a.span != nil {
		rec["start"] = a.span.Start()
		rec["end"] = a.span.End()
		if withText {
			rec["text"] = a.span.Text()
		}
	} else {
		rec["start"] = nil
		rec["end"] = nil
		if withText {
			rec["text"] = nil
		}
	}
	for k, v := range a.attrs {
		rec[k] = v
	}
	return rec
}

func (a *Annotation) copyDetached() *Annotation {
	return NewAnnotation(a.attrs)
}

package layerdict

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// Module converts layers that need a custom record form. A layer selects its
// module through its serialisation module name.
type Module interface {
	Export(l *text.Layer) (*LayerDict, error)
	Import(d *LayerDict, t *text.Text) (*text.Layer, error)
}

// ModuleFuncs adapts a pair of functions to Module.
type ModuleFuncs struct {
	ExportFunc func(l *text.Layer) (*LayerDict, error)
	ImportFunc func(d *LayerDict, t *text.Text) (*text.Layer, error)
}

func (m ModuleFuncs) Export(l *text.Layer) (*LayerDict, error)               { return m.ExportFunc(l) }
func (m ModuleFuncs) Import(d *LayerDict, t *text.Text) (*text.Layer, error) { return m.ImportFunc(d, t) }

// DefaultModule is the record form used by layers without a serialisation
// module.
var DefaultModule Module = ModuleFuncs{ExportFunc: exportDefault, ImportFunc: importDefault}

// Codec converts texts and layers using a set of serialisation modules.
type Codec struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewCodec returns a codec that knows only the default module.
func NewCodec() *Codec {
	return &Codec{modules: map[string]Module{"": DefaultModule, "default": DefaultModule}}
}

var std = NewCodec()

// RegisterModule adds or replaces a serialisation module.
func (c *Codec) RegisterModule(name string, m Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[name] = m
}

func (c *Codec) module(name string) (Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[name]
	if !ok {
		return nil, errors.NewParse("layer dict", "", fmt.Sprintf("unknown serialisation module %q", name))
	}
	return m, nil
}

// LayerToDict converts a layer with its serialisation module.
func (c *Codec) LayerToDict(l *text.Layer) (*LayerDict, error) {
	m, err := c.module(l.SerialisationModule())
	if err != nil {
		return nil, err
	}
	return m.Export(l)
}

// DictToLayer rebuilds an unattached layer bound to t.
func (c *Codec) DictToLayer(d *LayerDict, t *text.Text) (*text.Layer, error) {
	m, err := c.module(deref(d.SerialisationModule))
	if err != nil {
		return nil, err
	}
	return m.Import(d, t)
}

// TextToDict converts a text and its layers.
func (c *Codec) TextToDict(t *text.Text) (*TextDict, error) {
	d := &TextDict{Text: t.String(), Meta: maps.Clone(t.Meta), Layers: []*LayerDict{}}
	if d.Meta == nil {
		d.Meta = map[string]interface{}{}
	}
	for _, l := range t.Layers() {
		ld, err := c.LayerToDict(l)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %q", l.Name())
		}
		d.Layers = append(d.Layers, ld)
	}
	return d, nil
}

// DictToText rebuilds a text and attaches its layers in dependency order.
func (c *Codec) DictToText(d *TextDict, opts ...text.Option) (*text.Text, error) {
	opts = append([]text.Option{text.WithMeta(d.Meta)}, opts...)
	t := text.New(d.Text, opts...)
	for _, ld := range sortDicts(d.Layers) {
		l, err := c.DictToLayer(ld, t)
		if err != nil {
			return nil, err
		}
		if err := t.AddLayer(l); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ToJSON encodes a text as JSON.
func (c *Codec) ToJSON(t *text.Text) ([]byte, error) {
	d, err := c.TextToDict(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// FromJSON decodes a text from JSON.
func (c *Codec) FromJSON(data []byte, opts ...text.Option) (*text.Text, error) {
	var d TextDict
	if err := decodeJSON(data, &d); err != nil {
		return nil, err
	}
	return c.DictToText(&d, opts...)
}

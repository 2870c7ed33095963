package layerdict

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

func buildText(t *testing.T) *text.Text {
	t.Helper()
	txt := text.New("Tere maailm. Kuidas läheb?", text.WithMeta(map[string]interface{}{"source": "test", "year": 2024}))

	words := text.MustLayer(text.Config{
		Name:                "words",
		Attributes:          []string{"normalized_form", "count"},
		SecondaryAttributes: []string{"count"},
	})
	for i, o := range [][2]int{{0, 4}, {5, 11}, {11, 12}, {13, 19}, {20, 25}, {25, 26}} {
		if _, err := words.Add(o[0], o[1], map[string]interface{}{"count": i}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := txt.AddLayer(words); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	morph := text.MustLayer(text.Config{
		Name:       "morph_analysis",
		Parent:     "words",
		Ambiguous:  true,
		Attributes: []string{"lemma", "form"},
		Meta:       map[string]interface{}{"tagger": "dummy"},
	})
	for _, s := range words.Spans() {
		if _, err := morph.AddAnnotation(s.BaseSpan(), map[string]interface{}{"lemma": s.Text(), "form": "sg n"}); err != nil {
			t.Fatalf("AddAnnotation failed: %v", err)
		}
	}
	if _, err := morph.Add(20, 25, map[string]interface{}{"lemma": "minema", "form": []interface{}{"b", "vad"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := txt.AddLayer(morph); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	sentences := text.MustLayer(text.Config{Name: "sentences", Enveloping: "words", SerialisationModule: "default"})
	ws := words.Spans()
	if _, err := sentences.AddEnveloping(ws[:3], nil); err != nil {
		t.Fatalf("AddEnveloping failed: %v", err)
	}
	if _, err := sentences.AddEnveloping(ws[3:], nil); err != nil {
		t.Fatalf("AddEnveloping failed: %v", err)
	}
	if err := txt.AddLayer(sentences); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}
	return txt
}

func assertSameText(t *testing.T, want, got *text.Text) {
	t.Helper()
	if got.String() != want.String() {
		t.Errorf("text = %q, want %q", got.String(), want.String())
	}
	if strings.Join(got.LayerNames(), ",") != strings.Join(want.LayerNames(), ",") {
		t.Errorf("layers = %q, want %q", got.LayerNames(), want.LayerNames())
	}
	for _, name := range want.LayerNames() {
		a, _ := want.Layer(name)
		b, err := got.Layer(name)
		if err != nil {
			t.Errorf("layer %q missing: %v", name, err)
			continue
		}
		if !a.Equal(b) {
			t.Errorf("layer %q differs after round trip", name)
		}
		if err := b.Validate(); err != nil {
			t.Errorf("layer %q invalid after round trip: %v", name, err)
		}
	}
}

func TestDictRoundTrip(t *testing.T) {
	txt := buildText(t)
	d, err := TextToDict(txt)
	if err != nil {
		t.Fatalf("TextToDict failed: %v", err)
	}
	got, err := DictToText(d)
	if err != nil {
		t.Fatalf("DictToText failed: %v", err)
	}
	assertSameText(t, txt, got)
}

func TestJSONRoundTrip(t *testing.T) {
	txt := buildText(t)
	data, err := ToJSON(txt)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	assertSameText(t, txt, got)
	if got.Meta["source"] != "test" {
		t.Errorf("Meta[source] = %v, want test", got.Meta["source"])
	}

	again, err := ToJSON(got)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("second encoding differs:\n%s\n%s", data, again)
	}
}

func TestJSONRoundTripAfterAnnotationRemoval(t *testing.T) {
	txt := text.New("üks kaks kolm")
	words := text.MustLayer(text.Config{Name: "w", Attributes: []string{"n"}, Text: txt})
	for i, o := range [][2]int{{0, 3}, {4, 8}, {9, 13}} {
		if _, err := words.Add(o[0], o[1], map[string]interface{}{"n": i}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := txt.AddLayer(words); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}
	words.At(1).ClearAnnotations()
	if err := words.At(0).DelAnnotation(0); err != nil {
		t.Fatalf("DelAnnotation failed: %v", err)
	}

	data, err := ToJSON(txt)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	assertSameText(t, txt, got)
	w, _ := got.Layer("w")
	if texts := w.Texts(); len(texts) != 1 || texts[0] != "kolm" {
		t.Errorf("Texts() = %q, want [kolm]", texts)
	}
}

func TestDictDoesNotShareMeta(t *testing.T) {
	txt := buildText(t)
	words, _ := txt.Layer("words")
	words.Meta["tool"] = "tokenizer"

	d, err := TextToDict(txt)
	if err != nil {
		t.Fatalf("TextToDict failed: %v", err)
	}
	d.Meta["source"] = "changed"
	for _, ld := range d.Layers {
		ld.Meta["tool"] = "changed"
	}
	if txt.Meta["source"] != "test" {
		t.Errorf("text Meta[source] = %v after editing the dict, want test", txt.Meta["source"])
	}
	if words.Meta["tool"] != "tokenizer" {
		t.Errorf("layer Meta[tool] = %v after editing the dict, want tokenizer", words.Meta["tool"])
	}
}

func TestLayerDictShape(t *testing.T) {
	txt := buildText(t)
	sentences, _ := txt.Layer("sentences")
	d, err := LayerToDict(sentences)
	if err != nil {
		t.Fatalf("LayerToDict failed: %v", err)
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	for _, key := range []string{"name", "attributes", "secondary_attributes", "parent", "enveloping", "ambiguous", "serialisation_module", "meta", "spans"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("key %q missing from layer dict", key)
		}
	}
	if raw["parent"] != nil {
		t.Errorf("parent = %v, want null", raw["parent"])
	}
	if raw["enveloping"] != "words" {
		t.Errorf("enveloping = %v, want words", raw["enveloping"])
	}
	first := raw["spans"].([]interface{})[0].(map[string]interface{})
	if got := string(mustJSON(t, first["base_span"])); got != "[[0,4],[5,11],[11,12]]" {
		t.Errorf("base_span = %s", got)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	return data
}

func TestAmbiguousEmptySpanRoundTrip(t *testing.T) {
	txt := text.New("abc")
	l := text.MustLayer(text.Config{Name: "x", Ambiguous: true, Attributes: []string{"a"}})
	if _, err := l.AddSpan(basespan.MustElementary(0, 1)); err != nil {
		t.Fatalf("AddSpan failed: %v", err)
	}
	if _, err := l.Add(1, 3, map[string]interface{}{"a": 1}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}
	data, err := ToJSON(txt)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	assertSameText(t, txt, got)
}

func TestDictToTextErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"bad json", `{"text": `, errors.ErrInvalidInput},
		{"unknown module", `{"text": "ab", "layers": [{"name": "x", "attributes": [], "serialisation_module": "nope", "spans": []}]}`, errors.ErrInvalidInput},
		{"bad base span", `{"text": "ab", "layers": [{"name": "x", "attributes": [], "spans": [{"base_span": "0-1", "annotations": [{}]}]}]}`, errors.ErrInvalidInput},
		{"reversed base span", `{"text": "ab", "layers": [{"name": "x", "attributes": [], "spans": [{"base_span": [2, 1], "annotations": [{}]}]}]}`, errors.ErrInvalidInput},
		{"no annotations", `{"text": "ab", "layers": [{"name": "x", "attributes": [], "spans": [{"base_span": [0, 1], "annotations": []}]}]}`, errors.ErrInvalidInput},
		{"unknown attribute", `{"text": "ab", "layers": [{"name": "x", "attributes": ["a"], "spans": [{"base_span": [0, 1], "annotations": [{"b": 1}]}]}]}`, errors.ErrStructural},
		{"missing parent", `{"text": "ab", "layers": [{"name": "x", "attributes": [], "parent": "words", "spans": []}]}`, errors.ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("FromJSON() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLayersOutOfOrder(t *testing.T) {
	txt := buildText(t)
	d, err := TextToDict(txt)
	if err != nil {
		t.Fatalf("TextToDict failed: %v", err)
	}
	for i, j := 0, len(d.Layers)-1; i < j; i, j = i+1, j-1 {
		d.Layers[i], d.Layers[j] = d.Layers[j], d.Layers[i]
	}
	got, err := DictToText(d)
	if err != nil {
		t.Fatalf("DictToText failed: %v", err)
	}
	assertSameText(t, txt, got)
}

func TestCustomModule(t *testing.T) {
	txt := text.New("ab")
	l := text.MustLayer(text.Config{Name: "x", Attributes: []string{"a"}, SerialisationModule: "upper_v1"})
	if _, err := l.Add(0, 2, map[string]interface{}{"a": "v"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	if _, err := ToJSON(txt); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ToJSON with unregistered module error = %v, want parse error", err)
	}

	exported := 0
	c := NewCodec()
	c.RegisterModule("upper_v1", ModuleFuncs{
		ExportFunc: func(l *text.Layer) (*LayerDict, error) {
			exported++
			d, err := exportDefault(l)
			if err != nil {
				return nil, err
			}
			d.Meta = map[string]interface{}{"exported_by": "upper_v1"}
			return d, nil
		},
		ImportFunc: importDefault,
	})
	data, err := c.ToJSON(txt)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	got, err := c.FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if exported != 1 {
		t.Errorf("module export called %d times, want 1", exported)
	}
	x, _ := got.Layer("x")
	if x.Meta["exported_by"] != "upper_v1" {
		t.Errorf("Meta = %v", x.Meta)
	}
	if x.SerialisationModule() != "upper_v1" {
		t.Errorf("SerialisationModule() = %q", x.SerialisationModule())
	}
}

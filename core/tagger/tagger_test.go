package tagger

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// fakeTagger marks the whole text with one span.
type fakeTagger struct {
	output string
	inputs []string
	rename string
	err    error
	calls  int
}

func (f *fakeTagger) Name() string               { return "fake_" + f.output }
func (f *fakeTagger) InputLayers() []string      { return f.inputs }
func (f *fakeTagger) OutputLayer() string        { return f.output }
func (f *fakeTagger) OutputAttributes() []string { return nil }

func (f *fakeTagger) MakeLayer(_ context.Context, t *text.Text, layers map[string]*text.Layer) (*text.Layer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, in := range f.inputs {
		if layers[in] == nil {
			return nil, errors.NewNotFound("input", in)
		}
	}
	name := f.output
	if f.rename != "" {
		name = f.rename
	}
	l, err := text.NewLayer(text.Config{Name: name, Text: t})
	if err != nil {
		return nil, err
	}
	if t.Len() > 0 {
		if _, err := l.Add(0, t.Len(), nil); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func mustResolver(t *testing.T, taggers ...Tagger) *Resolver {
	t.Helper()
	r, err := NewResolver(taggers...)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return r
}

func TestResolverPlan(t *testing.T) {
	r := mustResolver(t,
		&fakeTagger{output: "c", inputs: []string{"b", "a"}},
		&fakeTagger{output: "b", inputs: []string{"a"}},
		&fakeTagger{output: "a"},
		&fakeTagger{output: "d", inputs: []string{"a"}},
	)
	if got, want := r.Layers(), []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Layers() = %q, want %q", got, want)
	}

	txt := text.New("abc")
	plan, err := r.Plan(txt, "c", "d")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(plan, want) {
		t.Errorf("Plan() = %q, want %q", plan, want)
	}

	if err := r.Tag(context.Background(), txt, "b"); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	plan, err = r.Plan(txt, "c", "d")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if want := []string{"c", "d"}; !reflect.DeepEqual(plan, want) {
		t.Errorf("Plan() after tagging b = %q, want %q", plan, want)
	}
}

func TestResolverTagSkipsAttached(t *testing.T) {
	a := &fakeTagger{output: "a"}
	b := &fakeTagger{output: "b", inputs: []string{"a"}}
	r := mustResolver(t, a, b)

	txt := text.New("abc")
	ctx := context.Background()
	if err := r.Tag(ctx, txt, "b"); err != nil {
		t.Fatalf("Tag(b) failed: %v", err)
	}
	if err := r.Tag(ctx, txt, "b", "a"); err != nil {
		t.Fatalf("Tag(b, a) failed: %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d, %d, want 1, 1", a.calls, b.calls)
	}
	if !txt.HasLayer("a") || !txt.HasLayer("b") {
		t.Errorf("layers = %q, want a and b", txt.LayerNames())
	}
}

func TestResolverCycle(t *testing.T) {
	r := mustResolver(t,
		&fakeTagger{output: "a", inputs: []string{"b"}},
		&fakeTagger{output: "b", inputs: []string{"a"}},
	)

	_, err := r.Plan(text.New("x"), "a")
	var structural *errors.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("Plan error = %v, want structural", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("error %q does not name the cycle", err)
	}
}

func TestResolverMissingTagger(t *testing.T) {
	r := mustResolver(t, &fakeTagger{output: "b", inputs: []string{"a"}})
	if _, err := r.Plan(text.New("x"), "b"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Plan error = %v, want not found", err)
	}
}

func TestResolverRegisterDuplicate(t *testing.T) {
	r := mustResolver(t, &fakeTagger{output: "a"})
	if err := r.Register(&fakeTagger{output: "a"}); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("Register error = %v, want already exists", err)
	}
	if _, err := NewResolver(&fakeTagger{output: "a"}, &fakeTagger{output: "a"}); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("NewResolver error = %v, want already exists", err)
	}
}

func TestTagErrors(t *testing.T) {
	ctx := context.Background()
	var structural *errors.StructuralError

	if _, err := Tag(ctx, &fakeTagger{output: "b", inputs: []string{"a"}}, text.New("x")); !errors.As(err, &structural) {
		t.Errorf("missing input error = %v, want structural", err)
	}

	failing := &fakeTagger{output: "a", err: errors.NewUnsupported("tagging", "broken")}
	_, err := Tag(ctx, failing, text.New("x"))
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("failing tagger error = %v, want unsupported", err)
	}
	if err != nil && !strings.Contains(err.Error(), "fake_a") {
		t.Errorf("error %q does not name the tagger", err)
	}

	if _, err := Tag(ctx, &fakeTagger{output: "a", rename: "z"}, text.New("x")); !errors.As(err, &structural) {
		t.Errorf("renamed output error = %v, want structural", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Tag(cancelled, &fakeTagger{output: "a"}, text.New("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Tag error = %v, want context.Canceled", err)
	}
}

func TestDefaultResolver(t *testing.T) {
	r := DefaultResolver()
	if got, want := r.Layers(), []string{"paragraphs", "sentences", "tokens", "words"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Layers() = %q, want %q", got, want)
	}

	txt := text.New("Esimene lause. Teine lause.\n\nUus lõik.")
	if err := r.Tag(context.Background(), txt, "paragraphs"); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	if got, want := txt.LayerNames(), []string{"tokens", "words", "sentences", "paragraphs"}; !reflect.DeepEqual(got, want) {
		t.Errorf("LayerNames() = %q, want %q", got, want)
	}

	sentences, err := txt.Layer("sentences")
	if err != nil {
		t.Fatalf("Layer(sentences) failed: %v", err)
	}
	if sentences.Len() != 3 {
		t.Errorf("sentences.Len() = %d, want 3", sentences.Len())
	}

	paragraphs, err := txt.Layer("paragraphs")
	if err != nil {
		t.Fatalf("Layer(paragraphs) failed: %v", err)
	}
	if paragraphs.Len() != 2 {
		t.Errorf("paragraphs.Len() = %d, want 2", paragraphs.Len())
	}
	if paragraphs.Kind() != text.KindEnveloping {
		t.Errorf("Kind() = %s, want enveloping", paragraphs.Kind())
	}
}

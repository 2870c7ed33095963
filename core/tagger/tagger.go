// Package tagger defines the contract for components that produce layers and
// a Resolver that runs them in dependency order.
package tagger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/logging"
)

// Tagger produces one layer from a text and its already attached input
// layers. MakeLayer returns an unattached layer named OutputLayer with the
// schema OutputAttributes.
type Tagger interface {
	Name() string
	InputLayers() []string
	OutputLayer() string
	OutputAttributes() []string
	MakeLayer(ctx context.Context, t *text.Text, layers map[string]*text.Layer) (*text.Layer, error)
}

// Tag runs tg on t and attaches the result. All input layers must already be
// attached.
func Tag(ctx context.Context, tg Tagger, t *text.Text) (*text.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inputs := make(map[string]*text.Layer, len(tg.InputLayers()))
	for _, name := range tg.InputLayers() {
		l, err := t.Layer(name)
		if err != nil {
			return nil, errors.NewStructural("tag", tg.OutputLayer(), "input layer %q of %s is missing", name, tg.Name())
		}
		inputs[name] = l
	}

	started := time.Now()
	l, err := tg.MakeLayer(ctx, t, inputs)
	if err != nil {
		logging.TaggerError(ctx, tg.Name(), tg.OutputLayer(), err)
		return nil, errors.Wrapf(err, "%s", tg.Name())
	}
	if l.Name() != tg.OutputLayer() {
		return nil, errors.NewStructural("tag", tg.OutputLayer(), "%s produced layer %q", tg.Name(), l.Name())
	}
	if err := t.AddLayer(l); err != nil {
		logging.TaggerError(ctx, tg.Name(), tg.OutputLayer(), err)
		return nil, err
	}
	logging.TaggerRun(ctx, tg.Name(), l.Name(), l.Len(), time.Since(started))
	return l, nil
}

// Resolver knows which tagger produces which layer and tags texts with the
// layers they are missing, prerequisites first. Resolvers are created and
// passed explicitly; there is no global one.
type Resolver struct {
	taggers map[string]Tagger
}

// NewResolver creates a resolver with the given taggers.
func NewResolver(taggers ...Tagger) (*Resolver, error) {
	r := &Resolver{taggers: map[string]Tagger{}}
	for _, tg := range taggers {
		if err := r.Register(tg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tagger. Only one tagger per output layer is allowed.
func (r *Resolver) Register(tg Tagger) error {
	name := tg.OutputLayer()
	if existing, ok := r.taggers[name]; ok {
		return &errors.ValidationError{
			Field:   "output_layer",
			Value:   name,
			Message: fmt.Sprintf("layer %q is already produced by %s", name, existing.Name()),
			Err:     errors.ErrAlreadyExists,
		}
	}
	r.taggers[name] = tg
	return nil
}

// Tagger returns the tagger producing layer name.
func (r *Resolver) Tagger(name string) (Tagger, bool) {
	tg, ok := r.taggers[name]
	return tg, ok
}

// Layers returns the names of the layers the resolver can produce, sorted.
func (r *Resolver) Layers() []string {
	names := make([]string, 0, len(r.taggers))
	for name := range r.taggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan returns the layers that tagging t with names would create, in the
// order they would be created.
func (r *Resolver) Plan(t *text.Text, names ...string) ([]string, error) {
	var plan []string
	planned := map[string]bool{}
	visiting := map[string]bool{}

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if t.HasLayer(name) || planned[name] {
			return nil
		}
		path = append(path, name)
		if visiting[name] {
			return errors.NewStructural("tag", name, "dependency cycle %s", strings.Join(path, " -> "))
		}
		tg, ok := r.taggers[name]
		if !ok {
			return errors.NewNotFound("tagger for layer", name)
		}
		visiting[name] = true
		for _, in := range tg.InputLayers() {
			if err := visit(in, path); err != nil {
				return err
			}
		}
		visiting[name] = false
		planned[name] = true
		plan = append(plan, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Tag creates the named layers on t together with any missing prerequisite
// layers. Layers already attached are left alone.
func (r *Resolver) Tag(ctx context.Context, t *text.Text, names ...string) error {
	plan, err := r.Plan(t, names...)
	if err != nil {
		return err
	}
	for _, name := range plan {
		if _, err := Tag(ctx, r.taggers[name], t); err != nil {
			return err
		}
	}
	return nil
}

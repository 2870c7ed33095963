package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/layerops"
	"github.com/FocuswithJustin/annotext/core/sqlite"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/logging"
)

func runID() string { return uuid.NewString()[:8] }

// TagCmd adds layers to a text with the configured taggers.
type TagCmd struct {
	Input  string   `arg:"" help:"Text file (.txt, .json or .tcf), - for stdin"`
	Layers []string `short:"l" help:"Layers to create" default:"paragraphs"`
	Out    string   `short:"o" help:"Output JSON file (default stdout)" type:"path"`
}

func (c *TagCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	r, err := app.cfg.Resolver()
	if err != nil {
		return err
	}
	if err := r.Tag(app.ctx, t, c.Layers...); err != nil {
		return err
	}
	return app.writeText(t, c.Out)
}

// ShowCmd prints a summary of a text or the spans of one layer.
type ShowCmd struct {
	Input string `arg:"" help:"Text file (.txt, .json or .tcf)"`
	Layer string `short:"l" help:"Print the spans of this layer"`
}

func (c *ShowCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	if c.Layer != "" {
		l, err := t.Layer(c.Layer)
		if err != nil {
			return err
		}
		for _, s := range l.Spans() {
			app.printf("%s\t%q%s\n", s.BaseSpan(), s.EnclosingText(), formatAnnotations(s))
		}
		return nil
	}

	app.printf("Text: %s characters, %d layers\n", humanize.Comma(int64(t.Len())), len(t.LayerNames()))
	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tKIND\tDEPENDS ON\tAMBIGUOUS\tSPANS\tATTRIBUTES")
	for _, l := range t.Layers() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n", l.Name(), l.Kind(), l.Dependency(), l.Ambiguous(),
			humanize.Comma(int64(l.Len())), strings.Join(l.Attributes(), ", "))
	}
	return w.Flush()
}

func formatAnnotations(s *text.Span) string {
	var b strings.Builder
	for _, a := range s.Annotations() {
		names := a.Names()
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s=%v", n, a.Value(n))
		}
		b.WriteString("\t{" + strings.Join(parts, ", ") + "}")
	}
	return b.String()
}

// ConflictsCmd reports span syndromes of a layer or resolves its overlaps.
type ConflictsCmd struct {
	Input     string `arg:"" help:"Text file (.json or .tcf)"`
	Layer     string `short:"l" required:"" help:"Layer to check"`
	Resolve   bool   `help:"Resolve the conflicts instead of reporting them"`
	Strategy  string `help:"Resolving strategy" enum:"ALL,MAX,MIN" default:"MAX"`
	Priority  string `help:"Priority attribute; lower values win"`
	KeepEqual bool   `help:"Keep every annotation tied for the lowest priority"`
	Out       string `short:"o" help:"Write the resolved text to this JSON file" type:"path"`
}

func (c *ConflictsCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	l, err := t.Layer(c.Layer)
	if err != nil {
		return err
	}

	if !c.Resolve {
		n := 0
		for _, conflict := range layerops.Conflicts(l) {
			if conflict.Code == "" {
				continue
			}
			n++
			app.printf("%s\t%s\t%q\n", conflict.Code, conflict.Span.BaseSpan(), conflict.Span.EnclosingText())
		}
		app.printf("%d of %d spans have syndromes\n", n, l.Len())
		return nil
	}

	status, err := layerops.ResolveConflicts(l, layerops.ConflictOptions{
		Strategy:          layerops.Strategy(c.Strategy),
		PriorityAttribute: c.Priority,
		KeepEqual:         c.KeepEqual,
	})
	if err != nil {
		return err
	}
	logging.LayerEvent(app.ctx, "resolve_conflicts", l.Name(), l.Len(), "removed_spans", status.RemovedSpans)
	app.printf("conflicts: %d, removed spans: %d, removed annotations: %d\n",
		status.NumberOfConflicts, status.RemovedSpans, status.RemovedAnnotations)
	if c.Out == "" {
		return nil
	}
	return app.writeText(t, c.Out)
}

// FlattenCmd flattens a layer and attaches the result.
type FlattenCmd struct {
	Input      string            `arg:"" help:"Text file (.json or .tcf)"`
	Layer      string            `short:"l" required:"" help:"Layer to flatten"`
	Output     string            `name:"output-layer" required:"" help:"Name of the flattened layer"`
	Attributes []string          `help:"Output attributes (after renaming)"`
	Rename     map[string]string `help:"Attribute renames, old=new"`
	PickFirst  bool              `help:"Keep only the first annotation of every span"`
	Out        string            `short:"o" help:"Output JSON file (default stdout)" type:"path"`
}

func (c *FlattenCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	l, err := t.Layer(c.Layer)
	if err != nil {
		return err
	}
	opts := layerops.FlattenOptions{OutputAttributes: c.Attributes, Rename: c.Rename}
	if c.PickFirst {
		opts.Disambiguate = layerops.PickFirst
	}
	flat, err := layerops.Flatten(l, c.Output, opts)
	if err != nil {
		return err
	}
	if err := t.AddLayer(flat); err != nil {
		return err
	}
	logging.LayerEvent(app.ctx, "flatten", flat.Name(), flat.Len(), "source", l.Name())
	return app.writeText(t, c.Out)
}

// DiffCmd prints the spans of a layer that differ between two texts.
type DiffCmd struct {
	A     string `arg:"" help:"First text (.json or .tcf)"`
	B     string `arg:"" help:"Second text (.json or .tcf)"`
	Layer string `short:"l" required:"" help:"Layer to compare"`
}

func (c *DiffCmd) Run(app *App) error {
	ta, err := app.loadText(c.A)
	if err != nil {
		return err
	}
	tb, err := app.loadText(c.B)
	if err != nil {
		return err
	}
	la, err := ta.Layer(c.Layer)
	if err != nil {
		return err
	}
	lb, err := tb.Layer(c.Layer)
	if err != nil {
		return err
	}

	n := 0
	for a, b := range layerops.DiffLayer(la, lb, layerops.SpansEqual) {
		n++
		switch {
		case b == nil:
			app.printf("- %s\t%q%s\n", a.BaseSpan(), a.EnclosingText(), formatAnnotations(a))
		case a == nil:
			app.printf("+ %s\t%q%s\n", b.BaseSpan(), b.EnclosingText(), formatAnnotations(b))
		default:
			app.printf("~ %s\t%q%s\n", a.BaseSpan(), a.EnclosingText(), formatAnnotations(a))
			app.printf("  %s\t%q%s\n", b.BaseSpan(), b.EnclosingText(), formatAnnotations(b))
		}
	}
	app.printf("%d differences\n", n)
	return nil
}

// SpanCmd parses a base span literal such as (0,4) or [(0,4),(5,9)].
type SpanCmd struct {
	Literal string `arg:"" help:"Base span literal"`
}

func (c *SpanCmd) Run(app *App) error {
	b, err := basespan.Parse(c.Literal)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(b.Raw())
	if err != nil {
		return err
	}
	app.printf("span:  %s\nlevel: %d\nstart: %d\nend:   %d\njson:  %s\n", b, b.Level(), b.Start(), b.End(), raw)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	info := sqlite.GetInfo()
	app.printf("annotext %s (sqlite: %s, %s)\n", version, info.DriverType, info.Package)
	return nil
}

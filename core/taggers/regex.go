package taggers

import (
	"context"
	"regexp"
	"unicode/utf8"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/layerops"
	"github.com/FocuswithJustin/annotext/core/text"
)

// PriorityAttribute holds the rule priority on regex tagger output.
const PriorityAttribute = "_priority_"

// Rule is one pattern of a Regex tagger. Group selects the submatch that
// becomes the span; 0 is the whole match.
type Rule struct {
	Pattern    string                 `yaml:"pattern" json:"pattern"`
	Group      int                    `yaml:"group,omitempty" json:"group,omitempty"`
	Priority   int                    `yaml:"priority,omitempty" json:"priority,omitempty"`
	Attributes map[string]interface{} `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// RegexConfig configures a Regex tagger.
type RegexConfig struct {
	Output     string            `yaml:"output" json:"output"`
	Attributes []string          `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Rules      []Rule            `yaml:"rules" json:"rules"`
	Strategy   layerops.Strategy `yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Regex tags every match of its rules as an ambiguous span and resolves
// overlaps with layerops.ResolveConflicts using the rule priorities.
type Regex struct {
	cfg   RegexConfig
	rules []compiledRule
}

// NewRegex compiles the rules of cfg.
func NewRegex(cfg RegexConfig) (*Regex, error) {
	if cfg.Output == "" {
		return nil, errors.NewValidation("output", "output layer name is required")
	}
	known := make(map[string]bool, len(cfg.Attributes))
	for _, a := range cfg.Attributes {
		if a == PriorityAttribute {
			return nil, errors.NewValidation("attributes", PriorityAttribute+" is set by the tagger")
		}
		known[a] = true
	}
	rg := &Regex{cfg: cfg}
	for i, r := range cfg.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
		if r.Group < 0 || r.Group > re.NumSubexp() {
			return nil, errors.NewValidation("group", "rule group out of range")
		}
		for name := range r.Attributes {
			if !known[name] {
				return nil, errors.NewAttribute(name, cfg.Output, "rule %d sets unknown attribute", i)
			}
		}
		rg.rules = append(rg.rules, compiledRule{Rule: r, re: re})
	}
	return rg, nil
}

func (tg *Regex) Name() string          { return "RegexTagger" }
func (tg *Regex) InputLayers() []string { return nil }
func (tg *Regex) OutputLayer() string   { return tg.cfg.Output }

func (tg *Regex) OutputAttributes() []string {
	return append([]string(nil), tg.cfg.Attributes...)
}

// runeOffsets maps every byte offset that starts a rune to its rune index.
func runeOffsets(s string) []int {
	offsets := make([]int, len(s)+1)
	n := 0
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		for j := 0; j < size; j++ {
			offsets[i+j] = n
		}
		i += size
		n++
	}
	offsets[len(s)] = n
	return offsets
}

// MakeLayer runs every rule over the text, resolves the overlaps by rule
// priority and returns the matches without the priority attribute.
func (tg *Regex) MakeLayer(ctx context.Context, t *text.Text, _ map[string]*text.Layer) (*text.Layer, error) {
	l, err := text.NewLayer(text.Config{
		Name:       tg.cfg.Output,
		Attributes: append(tg.OutputAttributes(), PriorityAttribute),
		Ambiguous:  true,
		Text:       t,
	})
	if err != nil {
		return nil, err
	}
	s := t.String()
	offsets := runeOffsets(s)
	for _, r := range tg.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range r.re.FindAllStringSubmatchIndex(s, -1) {
			lo, hi := m[2*r.Group], m[2*r.Group+1]
			if lo < 0 || lo == hi {
				continue
			}
			attrs := make(map[string]interface{}, len(r.Attributes)+1)
			for k, v := range r.Attributes {
				attrs[k] = v
			}
			attrs[PriorityAttribute] = r.Priority
			if _, err := l.Add(offsets[lo], offsets[hi], attrs); err != nil {
				return nil, err
			}
		}
	}
	if _, err := layerops.ResolveConflicts(l, layerops.ConflictOptions{
		Strategy:          tg.cfg.Strategy,
		PriorityAttribute: PriorityAttribute,
		KeepEqual:         true,
	}); err != nil {
		return nil, err
	}

	out, err := text.NewLayer(text.Config{
		Name:       tg.cfg.Output,
		Attributes: tg.OutputAttributes(),
		Ambiguous:  true,
		Text:       t,
	})
	if err != nil {
		return nil, err
	}
	for _, sp := range l.Spans() {
		for _, a := range sp.Annotations() {
			attrs := a.Attributes()
			delete(attrs, PriorityAttribute)
			if _, err := out.AddAnnotation(sp.BaseSpan(), attrs); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

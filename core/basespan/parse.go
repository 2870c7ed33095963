package basespan

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// spanGrammar is the participle grammar for base span literals.
// Examples: "(0, 4)", "[(0, 4), (8, 12)]", "[[(0,4)], [(5,9)]]"
//
//nolint:govet // participle grammar tags are not standard struct tags
type spanGrammar struct {
	Elementary *elementaryGrammar `  @@`
	Enveloping *envelopingGrammar `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type elementaryGrammar struct {
	Start int `"(" @Int ","`
	End   int `@Int ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type envelopingGrammar struct {
	Spans []*spanGrammar `"[" @@ ( "," @@ )* "]"`
}

var spanLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Punct", Pattern: `[()\[\],]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var spanParser = participle.MustBuild[spanGrammar](
	participle.Lexer(spanLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a base span literal as printed by String.
func Parse(s string) (BaseSpan, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewParse("span literal", "", "empty string")
	}

	parsed, err := spanParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{
			Format:  "span literal",
			Message: fmt.Sprintf("invalid span %q", s),
			Err:     err,
		}
	}
	return parsed.build()
}

func (g *spanGrammar) build() (BaseSpan, error) {
	if g.Elementary != nil {
		return NewElementary(g.Elementary.Start, g.Elementary.End)
	}
	children := make([]BaseSpan, 0, len(g.Enveloping.Spans))
	for _, child := range g.Enveloping.Spans {
		c, err := child.build()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return NewEnveloping(children...)
}

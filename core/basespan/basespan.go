package basespan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// BaseSpan is implemented by ElementarySpan and *EnvelopingSpan.
type BaseSpan interface {
	// Start is the offset of the first character covered.
	Start() int
	// End is the offset one past the last character covered.
	End() int
	// Level is 0 for elementary spans and 1 + child level for enveloping spans.
	Level() int
	// Children returns the child base spans, or nil for elementary spans.
	Children() []BaseSpan
	// Flatten returns the elementary spans at the bottom of the hierarchy, in order.
	Flatten() []ElementarySpan
	// Key returns a canonical string usable as a map key. Equal spans have equal keys.
	Key() string
	// Raw returns the JSON shape of the span: [start, end] or a nested list of those.
	Raw() interface{}
	String() string

	isBaseSpan()
}

// ElementarySpan is a contiguous (start, end) range.
type ElementarySpan struct {
	start int
	end   int
}

// NewElementary creates an elementary span. It fails if start is negative or
// greater than end.
func NewElementary(start, end int) (ElementarySpan, error) {
	if start < 0 {
		return ElementarySpan{}, errors.NewValidation("start", fmt.Sprintf("negative start offset %d", start))
	}
	if start > end {
		return ElementarySpan{}, errors.NewValidation("end", fmt.Sprintf("start %d is greater than end %d", start, end))
	}
	return ElementarySpan{start: start, end: end}, nil
}

// MustElementary is like NewElementary but panics on invalid offsets.
// Intended for tests and literals known to be valid.
func MustElementary(start, end int) ElementarySpan {
	s, err := NewElementary(start, end)
	if err != nil {
		panic(err)
	}
	return s
}

func (s ElementarySpan) Start() int           { return s.start }
func (s ElementarySpan) End() int             { return s.end }
func (s ElementarySpan) Level() int           { return 0 }
func (s ElementarySpan) Children() []BaseSpan { return nil }
func (s ElementarySpan) isBaseSpan()          {}

// Len returns end - start.
func (s ElementarySpan) Len() int { return s.end - s.start }

func (s ElementarySpan) Flatten() []ElementarySpan {
	return []ElementarySpan{s}
}

func (s ElementarySpan) Key() string {
	return s.String()
}

func (s ElementarySpan) Raw() interface{} {
	return []interface{}{s.start, s.end}
}

func (s ElementarySpan) String() string {
	return "(" + strconv.Itoa(s.start) + ", " + strconv.Itoa(s.end) + ")"
}

// EnvelopingSpan is an ordered, non-empty sequence of child base spans.
// Use NewEnveloping to construct one; the zero value is not usable.
type EnvelopingSpan struct {
	spans []BaseSpan
	level int
	key   string
}

// NewEnveloping creates an enveloping span over the given children. Children
// must share the same level and be strictly increasing in Compare order.
func NewEnveloping(spans ...BaseSpan) (*EnvelopingSpan, error) {
	if len(spans) == 0 {
		return nil, errors.NewValidation("spans", "enveloping span needs at least one child")
	}
	level := -1
	for i, s := range spans {
		if s == nil {
			return nil, errors.NewValidation("spans", fmt.Sprintf("child %d is nil", i))
		}
		if i == 0 {
			level = s.Level()
		}
		if s.Level() != level {
			return nil, errors.NewValidation("spans",
				fmt.Sprintf("child %s has level %d, expected %d", s, s.Level(), level))
		}
		if i > 0 && Compare(spans[i-1], s) >= 0 {
			return nil, errors.NewValidation("spans",
				fmt.Sprintf("children not in increasing order: %s before %s", spans[i-1], s))
		}
	}

	children := make([]BaseSpan, len(spans))
	copy(children, spans)

	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.Key()
	}
	return &EnvelopingSpan{
		spans: children,
		level: level + 1,
		key:   "[" + strings.Join(parts, ", ") + "]",
	}, nil
}

// MustEnveloping is like NewEnveloping but panics on invalid children.
func MustEnveloping(spans ...BaseSpan) *EnvelopingSpan {
	s, err := NewEnveloping(spans...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *EnvelopingSpan) Start() int  { return s.spans[0].Start() }
func (s *EnvelopingSpan) End() int    { return s.spans[len(s.spans)-1].End() }
func (s *EnvelopingSpan) Level() int  { return s.level }
func (s *EnvelopingSpan) Key() string { return s.key }
func (s *EnvelopingSpan) isBaseSpan() {}

// Len returns the number of children.
func (s *EnvelopingSpan) Len() int { return len(s.spans) }

// Children returns a copy of the child spans.
func (s *EnvelopingSpan) Children() []BaseSpan {
	out := make([]BaseSpan, len(s.spans))
	copy(out, s.spans)
	return out
}

func (s *EnvelopingSpan) Flatten() []ElementarySpan {
	var out []ElementarySpan
	for _, c := range s.spans {
		out = append(out, c.Flatten()...)
	}
	return out
}

func (s *EnvelopingSpan) Raw() interface{} {
	out := make([]interface{}, len(s.spans))
	for i, c := range s.spans {
		out[i] = c.Raw()
	}
	return out
}

func (s *EnvelopingSpan) String() string {
	return s.key
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to or
// after b.
func Compare(a, b BaseSpan) int {
	if c := cmpInt(a.Start(), b.Start()); c != 0 {
		return c
	}
	if c := cmpInt(a.End(), b.End()); c != 0 {
		return c
	}
	if c := cmpInt(a.Level(), b.Level()); c != 0 {
		return c
	}
	if a.Level() == 0 {
		return 0
	}
	ac, bc := a.Children(), b.Children()
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if c := Compare(ac[i], bc[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(ac), len(bc))
}

// Less reports whether a sorts strictly before b.
func Less(a, b BaseSpan) bool {
	return Compare(a, b) < 0
}

// Equal reports whether a and b cover the same structure. Nil spans are equal
// only to nil.
func Equal(a, b BaseSpan) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Overlaps reports a true overlap: the spans share at least one character.
// Adjacent spans do not overlap.
func Overlaps(a, b BaseSpan) bool {
	return a.Start() < b.End() && b.Start() < a.End()
}

// Touches reports whether a ends exactly where b starts or vice versa.
func Touches(a, b BaseSpan) bool {
	return a.End() == b.Start() || b.End() == a.Start()
}

// Covers reports whether the extent of outer includes the extent of inner.
func Covers(outer, inner BaseSpan) bool {
	return outer.Start() <= inner.Start() && inner.End() <= outer.End()
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

package layerops

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/FocuswithJustin/annotext/core/basespan"
	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// Strategy selects how overlapping spans of equal priority are resolved.
type Strategy string

const (
	// StrategyAll keeps all spans.
	StrategyAll Strategy = "ALL"
	// StrategyMax keeps the longer span of a conflicting pair.
	StrategyMax Strategy = "MAX"
	// StrategyMin keeps the shorter span of a conflicting pair.
	StrategyMin Strategy = "MIN"
)

// ConflictOptions configures ResolveConflicts.
type ConflictOptions struct {
	Strategy Strategy
	// PriorityAttribute names a numeric attribute; lower values win.
	PriorityAttribute string
	// KeepEqual keeps every annotation tied for the lowest priority on a
	// span. Otherwise only the first one is kept.
	KeepEqual bool
}

// ConflictStatus reports what ResolveConflicts saw and did.
type ConflictStatus struct {
	// NumberOfConflicts is the number of overlapping span pairs before
	// resolution.
	NumberOfConflicts  int `json:"number_of_conflicts"`
	RemovedSpans       int `json:"removed_spans"`
	RemovedAnnotations int `json:"removed_annotations"`
}

// ResolveConflicts removes annotations and spans of l so that overlaps are
// settled by priority and strategy. First, on each span only the annotations
// with the lowest priority value are kept. Then spans overlapping a span with
// a strictly lower priority are removed, and remaining overlaps are resolved
// by Strategy. Running it again on a resolved layer changes nothing.
func ResolveConflicts(l *text.Layer, opts ConflictOptions) (*ConflictStatus, error) {
	switch opts.Strategy {
	case "":
		opts.Strategy = StrategyMax
	case StrategyAll, StrategyMax, StrategyMin:
	default:
		return nil, errors.NewValidation("strategy", fmt.Sprintf("unknown conflict resolving strategy %q", opts.Strategy))
	}
	if opts.PriorityAttribute != "" && !l.HasAttribute(opts.PriorityAttribute) {
		return nil, errors.NewAttribute(opts.PriorityAttribute, fmt.Sprintf("layer %q", l.Name()), "not a layer attribute")
	}

	spans := l.Spans()
	status := &ConflictStatus{}
	graph := conflictGraph(spans)
	for _, neighbors := range graph {
		status.NumberOfConflicts += len(neighbors)
	}
	status.NumberOfConflicts /= 2

	priorities := make([]float64, len(spans))
	if opts.PriorityAttribute != "" {
		values, err := spanPriorities(spans, opts.PriorityAttribute)
		if err != nil {
			return nil, err
		}
		for i, s := range spans {
			p, removed := keepLowest(s, values[i], opts.KeepEqual)
			priorities[i] = p
			status.RemovedAnnotations += removed
		}
	}

	removed := make([]bool, len(spans))
	if opts.PriorityAttribute != "" && !uniform(priorities) {
		order := make([]int, len(spans))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return priorities[order[a]] < priorities[order[b]] })
		for _, i := range order {
			if removed[i] {
				continue
			}
			for _, j := range graph[i] {
				if !removed[j] && priorities[j] > priorities[i] {
					removed[j] = true
				}
			}
		}
	}

	if opts.Strategy != StrategyAll {
		order := make([]int, 0, len(spans))
		for i := range spans {
			if len(graph[i]) > 0 {
				order = append(order, i)
			}
		}
		key := func(i int) (int, int) {
			s := spans[i]
			if opts.Strategy == StrategyMax {
				return s.Start() - s.End(), s.Start()
			}
			return s.End() - s.Start(), s.Start()
		}
		sort.SliceStable(order, func(a, b int) bool {
			a0, a1 := key(order[a])
			b0, b1 := key(order[b])
			if a0 != b0 {
				return a0 < b0
			}
			return a1 < b1
		})
		for _, i := range order {
			if removed[i] {
				continue
			}
			for _, j := range graph[i] {
				removed[j] = true
			}
		}
	}

	for i, s := range spans {
		if removed[i] {
			if err := l.RemoveSpan(s); err != nil {
				return nil, err
			}
			status.RemovedSpans++
		}
	}
	return status, nil
}

// conflictGraph returns, for each span index, the indexes of the spans it
// overlaps. spans must be sorted.
func conflictGraph(spans []*text.Span) [][]int {
	graph := make([][]int, len(spans))
	for i, a := range spans {
		for j := i + 1; j < len(spans); j++ {
			b := spans[j]
			if b.Start() >= a.End() {
				break
			}
			if basespan.Overlaps(a.BaseSpan(), b.BaseSpan()) {
				graph[i] = append(graph[i], j)
				graph[j] = append(graph[j], i)
			}
		}
	}
	return graph
}

// spanPriorities reads the priority value of every annotation of every span.
// It fails before anything is changed when a value is not a number.
func spanPriorities(spans []*text.Span, attr string) ([][]float64, error) {
	out := make([][]float64, len(spans))
	for i, s := range spans {
		annotations := s.Annotations()
		values := make([]float64, len(annotations))
		for j, a := range annotations {
			p, err := priorityValue(a.Value(attr))
			if err != nil {
				return nil, errors.NewValidation(attr,
					fmt.Sprintf("span %s: priority %v: %v", s.BaseSpan(), a.Value(attr), err))
			}
			values[j] = p
		}
		out[i] = values
	}
	return out, nil
}

// keepLowest drops the annotations of s that do not have the lowest priority
// value and returns that value and the number of dropped annotations. values
// holds the priority of each annotation of s.
func keepLowest(s *text.Span, values []float64, keepEqual bool) (float64, int) {
	annotations := s.Annotations()
	if len(annotations) == 0 {
		return 0, 0
	}
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	dropped := 0
	kept := false
	for i, a := range annotations {
		if values[i] == lowest && (keepEqual || !kept) {
			kept = true
			continue
		}
		s.RemoveAnnotation(a)
		dropped++
	}
	return lowest, dropped
}

func priorityValue(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("not a number")
}

func uniform(values []float64) bool {
	for _, v := range values {
		if v != values[0] {
			return false
		}
	}
	return true
}

package basespan

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// FromRaw builds a base span from its JSON shape: a pair of integers for an
// elementary span, or a list of such shapes for an enveloping span. Numbers may
// be Go integers, float64 (encoding/json default) or json.Number.
func FromRaw(raw interface{}) (BaseSpan, error) {
	list, ok := toList(raw)
	if !ok {
		return nil, errors.NewParse("base span", "", fmt.Sprintf("expected a list, got %T (%v)", raw, raw))
	}
	if len(list) == 0 {
		return nil, errors.NewParse("base span", "", "empty list")
	}

	if len(list) == 2 {
		start, okStart := toInt(list[0])
		end, okEnd := toInt(list[1])
		if okStart && okEnd {
			s, err := NewElementary(start, end)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	children := make([]BaseSpan, 0, len(list))
	for _, item := range list {
		child, err := FromRaw(item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	env, err := NewEnveloping(children...)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func toList(raw interface{}) ([]interface{}, bool) {
	switch v := raw.(type) {
	case []interface{}:
		return v, true
	case []int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case [2]int:
		return []interface{}{v[0], v[1]}, true
	case [][]int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

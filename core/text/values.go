package text

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// reservedAttributes may not appear in a layer schema: they name values derived
// from the span (offsets and surface text).
var reservedAttributes = map[string]bool{
	"text":  true,
	"start": true,
	"end":   true,
}

// IsReservedAttribute reports whether name is derived from the span and cannot
// be declared as a layer attribute.
func IsReservedAttribute(name string) bool {
	return reservedAttributes[name]
}

// equalValues compares attribute values. Numbers compare by value regardless
// of their Go type so that values survive a JSON round trip.
func equalValues(a, b interface{}) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !equalValues(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// valueKey returns a canonical string for an attribute value, used to count
// and group values of any type.
func valueKey(v interface{}) string {
	if f, ok := asFloat(v); ok {
		return fmt.Sprintf("n:%v", f)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("g:%#v", v)
	}
	return "j:" + string(data)
}

func tupleKey(values []interface{}) string {
	key := ""
	for i, v := range values {
		if i > 0 {
			key += "\x1f"
		}
		key += valueKey(v)
	}
	return key
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

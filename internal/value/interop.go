package value

import (
	"encoding/json"
	"fmt"
)

// ToGo converts a Value into plain Go data (map[string]interface{},
// []interface{}, string, bool, nil, json.Number) suitable for handing to
// packages that only speak encoding/json, such as YAML or JSON Patch
// libraries. Sets are converted to []interface{} in canonical order, same
// as the wire encoding.
func ToGo(v Value) (interface{}, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		return json.Number(v.num), nil
	case KindString:
		return v.str, nil
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, it := range v.arr {
			g, err := ToGo(it)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case KindSet:
		out := make([]interface{}, len(v.set))
		for i, it := range v.set {
			g, err := ToGo(it)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for _, e := range v.obj {
			g, err := ToGo(e.Val)
			if err != nil {
				return nil, err
			}
			out[e.Key] = g
		}
		return out, nil
	}
	return nil, fmt.Errorf("value: cannot convert kind %v to go", v.kind)
}

// FromGo converts plain Go data (as produced by encoding/json with
// UseNumber, or by YAML libraries that funnel through it) back into a
// Value.
func FromGo(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(string(t))
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromGo(it)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]interface{}:
		obj := NewObject()
		for _, k := range sortedMapKeys(t) {
			v, err := FromGo(t[k])
			if err != nil {
				return Value{}, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	default:
		return Value{}, fmt.Errorf("value: cannot convert %T to value", x)
	}
}

// sortedMapKeys gives FromGo a deterministic order when the source is a
// plain Go map, which has none of its own; callers that need the original
// document order should decode with Decode instead.
func sortedMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

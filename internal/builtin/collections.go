package builtin

import (
	"github.com/polywasm/policyhost/internal/value"
)

// CollectionsGroup registers array, object and set manipulation built-ins,
// grounded on topdown/array.go, topdown/object_get.go and topdown/sets.go.
func CollectionsGroup(r *Registry) {
	r.Register("array.concat", 2, builtinArrayConcat)
	r.Register("array.slice", 3, builtinArraySlice)
	r.Register("array.reverse", 1, builtinArrayReverse)
	r.Register("object.get", 3, builtinObjectGet)
	r.Register("object.remove", 2, builtinObjectRemove)
	r.Register("object.filter", 2, builtinObjectFilter)
	r.Register("object.union", 2, builtinObjectUnion)
	r.Register("object.union_n", 1, builtinObjectUnionN)
	r.Register("set_diff", 2, builtinSetDiff)
	r.Register("union", 1, builtinSetUnionAll)
	r.Register("intersection", 1, builtinSetIntersectionAll)
}

func builtinArrayConcat(_ *Context, args []value.Value) (value.Value, error) {
	a, err := arrayOnlyArg("array.concat", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, err := arrayOnlyArg("array.concat", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return value.Array(out...), nil
}

func builtinArraySlice(_ *Context, args []value.Value) (value.Value, error) {
	arr, err := arrayOnlyArg("array.slice", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	start, err := intArg("array.slice", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	stop, err := intArg("array.slice", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	if start < 0 {
		start = 0
	}
	if stop > int64(len(arr)) {
		stop = int64(len(arr))
	}
	if start >= stop {
		return value.Array(), nil
	}
	out := make([]value.Value, stop-start)
	copy(out, arr[start:stop])
	return value.Array(out...), nil
}

func builtinArrayReverse(_ *Context, args []value.Value) (value.Value, error) {
	arr, err := arrayOnlyArg("array.reverse", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return value.Array(out...), nil
}

func builtinObjectGet(_ *Context, args []value.Value) (value.Value, error) {
	obj, err := objectArg("object.get", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	key, err := stringArg("object.get", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if v, ok := obj.Get(key); ok {
		return v, nil
	}
	return args[2], nil
}

func builtinObjectRemove(_ *Context, args []value.Value) (value.Value, error) {
	obj, err := objectArg("object.remove", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	var drop map[string]bool
	switch args[1].Kind() {
	case value.KindArray, value.KindSet:
		drop = make(map[string]bool)
		for _, k := range args[1].Items() {
			if k.Kind() != value.KindString {
				return value.Value{}, typeErrorf("object.remove", "key must be a string")
			}
			drop[k.Str()] = true
		}
	case value.KindObject:
		drop = make(map[string]bool)
		for _, k := range args[1].Keys() {
			drop[k] = true
		}
	default:
		return value.Value{}, typeErrorf("object.remove", "operand 2 must be an array, set or object of keys")
	}
	out := value.NewObject()
	for _, k := range obj.Keys() {
		if drop[k] {
			continue
		}
		v, _ := obj.Get(k)
		out.Set(k, v)
	}
	return out, nil
}

func builtinObjectFilter(_ *Context, args []value.Value) (value.Value, error) {
	obj, err := objectArg("object.filter", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	keep := make(map[string]bool)
	switch args[1].Kind() {
	case value.KindArray, value.KindSet:
		for _, k := range args[1].Items() {
			if k.Kind() != value.KindString {
				return value.Value{}, typeErrorf("object.filter", "key must be a string")
			}
			keep[k.Str()] = true
		}
	case value.KindObject:
		for _, k := range args[1].Keys() {
			keep[k] = true
		}
	default:
		return value.Value{}, typeErrorf("object.filter", "operand 2 must be an array, set or object of keys")
	}
	out := value.NewObject()
	for _, k := range obj.Keys() {
		if !keep[k] {
			continue
		}
		v, _ := obj.Get(k)
		out.Set(k, v)
	}
	return out, nil
}

func builtinObjectUnion(_ *Context, args []value.Value) (value.Value, error) {
	a, err := objectArg("object.union", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, err := objectArg("object.union", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return mergeObjects(a, b), nil
}

// builtinObjectUnionN merges a sequence of objects left to right. Unlike
// object.union this is a shallow overwrite: a colliding key always takes the
// later object's value, even when both sides are objects themselves.
func builtinObjectUnionN(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayOnlyArg("object.union_n", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out := value.NewObject()
	for i, it := range items {
		if it.Kind() != value.KindObject {
			return value.Value{}, typeErrorf("object.union_n", "element %d must be an object", i)
		}
		for _, k := range it.Keys() {
			v, _ := it.Get(k)
			out.Set(k, v)
		}
	}
	return out, nil
}

// mergeObjects recursively merges b over a: colliding keys whose values are
// both objects merge recursively, any other collision takes b's value.
func mergeObjects(a, b value.Value) value.Value {
	out := value.NewObject()
	for _, k := range a.Keys() {
		v, _ := a.Get(k)
		out.Set(k, v)
	}
	for _, k := range b.Keys() {
		bv, _ := b.Get(k)
		if av, ok := out.Get(k); ok && av.Kind() == value.KindObject && bv.Kind() == value.KindObject {
			out.Set(k, mergeObjects(av, bv))
			continue
		}
		out.Set(k, bv)
	}
	return out
}

func builtinSetDiff(_ *Context, args []value.Value) (value.Value, error) {
	a, err := setArg("set_diff", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, err := setArg("set_diff", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	var out []value.Value
	for _, v := range a {
		if !containsValue(b, v) {
			out = append(out, v)
		}
	}
	return value.NewSet(out...), nil
}

func builtinSetUnionAll(_ *Context, args []value.Value) (value.Value, error) {
	sets, err := setArg("union", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	var out []value.Value
	for i, s := range sets {
		if s.Kind() != value.KindSet {
			return value.Value{}, typeErrorf("union", "element %d must be a set", i)
		}
		out = append(out, s.Items()...)
	}
	return value.NewSet(out...), nil
}

func builtinSetIntersectionAll(_ *Context, args []value.Value) (value.Value, error) {
	sets, err := setArg("intersection", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if len(sets) == 0 {
		return value.NewSet(), nil
	}
	if sets[0].Kind() != value.KindSet {
		return value.Value{}, typeErrorf("intersection", "element 0 must be a set")
	}
	result := sets[0].Items()
	for i, s := range sets[1:] {
		if s.Kind() != value.KindSet {
			return value.Value{}, typeErrorf("intersection", "element %d must be a set", i+1)
		}
		other := s.Items()
		var kept []value.Value
		for _, v := range result {
			if containsValue(other, v) {
				kept = append(kept, v)
			}
		}
		result = kept
	}
	return value.NewSet(result...), nil
}

func containsValue(items []value.Value, target value.Value) bool {
	for _, v := range items {
		if value.Equal(v, target) {
			return true
		}
	}
	return false
}

func arrayOnlyArg(name string, args []value.Value, idx int) ([]value.Value, error) {
	if args[idx].Kind() != value.KindArray {
		return nil, typeErrorf(name, "operand %d must be an array, got %s", idx+1, args[idx].Kind())
	}
	return args[idx].Items(), nil
}

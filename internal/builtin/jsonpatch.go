package builtin

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/polywasm/policyhost/internal/value"
)

// JSONPatchGroup registers RFC 6902 JSON Patch application plus the
// path-oriented remove/filter helpers, grounded on topdown/jsonpatch.go.
func JSONPatchGroup(r *Registry) {
	r.Register("json.patch", 2, builtinJSONPatch)
	r.Register("json.remove", 2, builtinJSONRemove)
	r.Register("json.filter", 2, builtinJSONFilter)
}

func builtinJSONPatch(_ *Context, args []value.Value) (value.Value, error) {
	ops, err := arrayArg("json.patch", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	opsGo := make([]interface{}, len(ops))
	for i, op := range ops {
		g, convErr := value.ToGo(op)
		if convErr != nil {
			return value.Value{}, typeErrorf("json.patch", "operation %d: %s", i, convErr)
		}
		opsGo[i] = g
	}
	opsBytes, marshalErr := json.Marshal(opsGo)
	if marshalErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "json.patch", Msg: marshalErr.Error()}
	}

	targetGo, convErr := value.ToGo(args[1])
	if convErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "json.patch", Msg: convErr.Error()}
	}
	targetBytes, marshalErr := json.Marshal(targetGo)
	if marshalErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "json.patch", Msg: marshalErr.Error()}
	}

	patch, decErr := jsonpatch.DecodePatch(opsBytes)
	if decErr != nil {
		return value.Value{}, parseErrorf("json.patch", "%s", decErr)
	}
	result, applyErr := patch.Apply(targetBytes)
	if applyErr != nil {
		return value.Value{}, domainErrorf("json.patch", "%s", applyErr)
	}

	v, decErr := value.Decode(result)
	if decErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "json.patch", Msg: decErr.Error()}
	}
	return v, nil
}

// builtinJSONRemove deletes the paths named by the second operand from the
// first. Each path is either a single key string (not split on any
// separator) or an array of key-segment strings.
func builtinJSONRemove(_ *Context, args []value.Value) (value.Value, error) {
	paths, err := arrayArg("json.remove", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	result := args[0]
	for i, p := range paths {
		segs, segErr := pathSegments("json.remove", p, i)
		if segErr != nil {
			return value.Value{}, segErr
		}
		result = removePath(result, segs)
	}
	return result, nil
}

// builtinJSONFilter keeps only the paths named by the second operand,
// dropping everything else from the first.
func builtinJSONFilter(_ *Context, args []value.Value) (value.Value, error) {
	paths, err := arrayArg("json.filter", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	out := value.Null()
	haveAny := false
	for i, p := range paths {
		segs, segErr := pathSegments("json.filter", p, i)
		if segErr != nil {
			return value.Value{}, segErr
		}
		v, ok := lookupPath(args[0], segs)
		if !ok {
			continue
		}
		out = setPath(out, segs, v)
		haveAny = true
	}
	if !haveAny {
		return value.NewObject(), nil
	}
	return out, nil
}

func pathSegments(name string, p value.Value, idx int) ([]string, error) {
	switch p.Kind() {
	case value.KindString:
		return []string{p.Str()}, nil
	case value.KindArray, value.KindSet:
		items := p.Items()
		segs := make([]string, len(items))
		for i, it := range items {
			if it.Kind() != value.KindString {
				return nil, typeErrorf(name, "path %d element %d must be a string", idx, i)
			}
			segs[i] = it.Str()
		}
		return segs, nil
	}
	return nil, typeErrorf(name, "path %d must be a string or array of strings", idx)
}

func removePath(v value.Value, segs []string) value.Value {
	if len(segs) == 0 || v.Kind() != value.KindObject {
		return v
	}
	head, rest := segs[0], segs[1:]
	child, ok := v.Get(head)
	if !ok {
		return v
	}
	out := value.NewObject()
	for _, k := range v.Keys() {
		if k == head {
			continue
		}
		cv, _ := v.Get(k)
		out.Set(k, cv)
	}
	if len(rest) > 0 {
		out.Set(head, removePath(child, rest))
	}
	return out
}

func lookupPath(v value.Value, segs []string) (value.Value, bool) {
	cur := v
	for _, s := range segs {
		if cur.Kind() != value.KindObject {
			return value.Value{}, false
		}
		next, ok := cur.Get(s)
		if !ok {
			return value.Value{}, false
		}
		cur = next
	}
	return cur, true
}

func setPath(v value.Value, segs []string, leaf value.Value) value.Value {
	if len(segs) == 0 {
		return leaf
	}
	base := v
	if base.Kind() != value.KindObject {
		base = value.NewObject()
	}
	head, rest := segs[0], segs[1:]
	child, _ := base.Get(head)
	base.Set(head, setPath(child, rest, leaf))
	return base
}

package builtin

import (
	"strconv"

	"github.com/polywasm/policyhost/internal/value"
)

// CastsGroup registers the type-coercion built-ins, grounded on
// topdown/casts.go.
func CastsGroup(r *Registry) {
	r.Register("to_number", 1, builtinToNumber)
	r.Register("cast_array", 1, builtinCastArray)
	r.Register("cast_set", 1, builtinCastSet)
	r.Register("cast_string", 1, builtinCastString)
	r.Register("cast_boolean", 1, builtinCastBoolean)
	r.Register("cast_null", 1, builtinCastNull)
	r.Register("cast_object", 1, builtinCastObject)
}

func builtinToNumber(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind() {
	case value.KindNumber:
		return args[0], nil
	case value.KindString:
		s := args[0].Str()
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			if s == "" {
				return value.Int(0), nil
			}
			return value.Value{}, parseErrorf("to_number", "%q is not a valid number", s)
		}
		return value.Number(s)
	case value.KindBool:
		if args[0].Bool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.KindNull:
		return value.Int(0), nil
	}
	return value.Value{}, typeErrorf("to_number", "operand 1 must be a number, string, boolean or null")
}

func builtinCastArray(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind() {
	case value.KindArray:
		return args[0], nil
	case value.KindSet:
		return value.Array(args[0].Items()...), nil
	}
	return value.Value{}, typeErrorf("cast_array", "operand 1 must be an array or set")
}

func builtinCastSet(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind() {
	case value.KindSet:
		return args[0], nil
	case value.KindArray:
		return value.NewSet(args[0].Items()...), nil
	}
	return value.Value{}, typeErrorf("cast_set", "operand 1 must be an array or set")
}

func builtinCastString(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.KindString {
		return value.Value{}, typeErrorf("cast_string", "operand 1 must be a string")
	}
	return args[0], nil
}

func builtinCastBoolean(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.KindBool {
		return value.Value{}, typeErrorf("cast_boolean", "operand 1 must be a boolean")
	}
	return args[0], nil
}

func builtinCastNull(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.KindNull {
		return value.Value{}, typeErrorf("cast_null", "operand 1 must be null")
	}
	return args[0], nil
}

func builtinCastObject(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.KindObject {
		return value.Value{}, typeErrorf("cast_object", "operand 1 must be an object")
	}
	return args[0], nil
}

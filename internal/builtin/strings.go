package builtin

import (
	"fmt"
	"strings"

	"github.com/polywasm/policyhost/internal/value"
)

// StringsGroup registers the string/format built-ins, grounded on
// topdown/strings.go.
func StringsGroup(r *Registry) {
	r.Register("concat", 2, builtinConcat)
	r.Register("split", 2, builtinSplit)
	r.Register("replace", 3, builtinReplace)
	r.Register("strings.replace_n", 2, builtinReplaceN)
	r.Register("trim", 2, builtinTrim)
	r.Register("trim_left", 2, builtinTrimLeft)
	r.Register("trim_right", 2, builtinTrimRight)
	r.Register("trim_prefix", 2, builtinTrimPrefix)
	r.Register("trim_suffix", 2, builtinTrimSuffix)
	r.Register("trim_space", 1, builtinTrimSpace)
	r.Register("lower", 1, builtinLower)
	r.Register("upper", 1, builtinUpper)
	r.Register("contains", 2, builtinContains)
	r.Register("startswith", 2, builtinStartsWith)
	r.Register("endswith", 2, builtinEndsWith)
	r.Register("indexof", 2, builtinIndexOf)
	r.Register("indexof_n", 2, builtinIndexOfN)
	r.Register("substring", 3, builtinSubstring)
	r.Register("sprintf", 2, builtinSprintf)
	r.Register("format_int", 2, builtinFormatInt)
	r.Register("strings.reverse", 1, builtinReverse)
}

func builtinConcat(_ *Context, args []value.Value) (value.Value, error) {
	sep, err := stringArg("concat", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	items, err := arrayArg("concat", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Kind() != value.KindString {
			return value.Value{}, typeErrorf("concat", "element %d must be a string", i)
		}
		parts[i] = it.Str()
	}
	return value.String(strings.Join(parts, sep)), nil
}

func builtinSplit(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("split", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	sep, err := stringArg("split", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	parts := strings.Split(s, sep)
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.String(p)
	}
	return value.Array(items...), nil
}

func builtinReplace(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("replace", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	old, err := stringArg("replace", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	newS, err := stringArg("replace", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ReplaceAll(s, old, newS)), nil
}

func builtinReplaceN(_ *Context, args []value.Value) (value.Value, error) {
	patterns, err := objectArg("strings.replace_n", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s, err := stringArg("strings.replace_n", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	var oldnew []string
	for _, k := range patterns.Keys() {
		v, _ := patterns.Get(k)
		if v.Kind() != value.KindString {
			return value.Value{}, typeErrorf("strings.replace_n", "replacement for %q must be a string", k)
		}
		oldnew = append(oldnew, k, v.Str())
	}
	return value.String(strings.NewReplacer(oldnew...).Replace(s)), nil
}

func builtinTrim(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	cut, err := stringArg("trim", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.Trim(s, cut)), nil
}

func builtinTrimLeft(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim_left", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	cut, err := stringArg("trim_left", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimLeft(s, cut)), nil
}

func builtinTrimRight(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim_right", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	cut, err := stringArg("trim_right", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimRight(s, cut)), nil
}

func builtinTrimPrefix(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim_prefix", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	p, err := stringArg("trim_prefix", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimPrefix(s, p)), nil
}

func builtinTrimSuffix(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim_suffix", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	suf, err := stringArg("trim_suffix", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimSuffix(s, suf)), nil
}

func builtinTrimSpace(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("trim_space", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimSpace(s)), nil
}

func builtinLower(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("lower", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ToLower(s)), nil
}

func builtinUpper(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("upper", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ToUpper(s)), nil
}

func builtinContains(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("contains", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	sub, err := stringArg("contains", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(strings.Contains(s, sub)), nil
}

func builtinStartsWith(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("startswith", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	p, err := stringArg("startswith", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(strings.HasPrefix(s, p)), nil
}

func builtinEndsWith(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("endswith", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	suf, err := stringArg("endswith", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(strings.HasSuffix(s, suf)), nil
}

func builtinIndexOf(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("indexof", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	sub, err := stringArg("indexof", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(strings.Index(s, sub))), nil
}

func builtinIndexOfN(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("indexof_n", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	sub, err := stringArg("indexof_n", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	var out []value.Value
	if sub != "" {
		start := 0
		for {
			i := strings.Index(s[start:], sub)
			if i < 0 {
				break
			}
			out = append(out, value.Int(int64(start+i)))
			start += i + len(sub)
		}
	}
	return value.Array(out...), nil
}

func builtinSubstring(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("substring", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	start, err := intArg("substring", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	length, err := intArg("substring", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	if start < 0 || int(start) > len(runes) {
		return value.Value{}, domainErrorf("substring", "start index %d out of range", start)
	}
	end := len(runes)
	if length >= 0 && int(start)+int(length) < end {
		end = int(start) + int(length)
	}
	return value.String(string(runes[start:end])), nil
}

func builtinFormatInt(_ *Context, args []value.Value) (value.Value, error) {
	n, err := numberArg("format_int", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	base, err := intArg("format_int", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	bi, ok := n.BigInt()
	if !ok {
		return value.Value{}, typeErrorf("format_int", "operand 1 must be an integer")
	}
	return value.String(bi.Text(int(base))), nil
}

func builtinReverse(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("strings.reverse", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return value.String(string(runes)), nil
}

// builtinSprintf follows C printf semantics with one policy-specific
// extension: %v renders the canonical value form of a non-scalar argument.
func builtinSprintf(_ *Context, args []value.Value) (value.Value, error) {
	format, err := stringArg("sprintf", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	fmtArgs, err := arrayArg("sprintf", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	converted := make([]interface{}, len(fmtArgs))
	for i, a := range fmtArgs {
		converted[i] = sprintfOperand(a)
	}
	out, err := safeSprintf(format, converted...)
	if err != nil {
		return value.Value{}, &Error{Code: ParseErr, Name: "sprintf", Msg: err.Error()}
	}
	return value.String(out), nil
}

func sprintfOperand(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindString:
		return v.Str()
	case value.KindBool:
		return v.Bool()
	case value.KindNumber:
		if bi, ok := v.BigInt(); ok {
			return bi
		}
		f, _ := v.Float64()
		return f
	default:
		enc, _ := value.Encode(v)
		return enc
	}
}

// safeSprintf runs fmt.Sprintf but converts the panic a malformed verb
// triggers into a typed error instead of crashing the evaluation.
func safeSprintf(format string, args ...interface{}) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed format string: %v", r)
		}
	}()
	out := fmt.Sprintf(format, args...)
	if strings.Contains(out, "%!") {
		return "", fmt.Errorf("malformed format string or argument mismatch: %s", out)
	}
	return out, nil
}

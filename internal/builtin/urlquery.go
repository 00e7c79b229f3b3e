package builtin

import (
	"net/url"
	"strings"

	"github.com/polywasm/policyhost/internal/value"
)

// URLQueryGroup registers URL query string encode/decode built-ins,
// grounded on topdown/encoding.go's builtinURLQueryEncode family.
func URLQueryGroup(r *Registry) {
	r.Register("urlquery.encode", 1, builtinURLQueryEncode)
	r.Register("urlquery.decode", 1, builtinURLQueryDecode)
	r.Register("urlquery.encode_object", 1, builtinURLQueryEncodeObject)
	r.Register("urlquery.decode_object", 1, builtinURLQueryDecodeObject)
}

func builtinURLQueryEncode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("urlquery.encode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(url.QueryEscape(s)), nil
}

func builtinURLQueryDecode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("urlquery.decode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out, decErr := url.QueryUnescape(s)
	if decErr != nil {
		return value.Value{}, parseErrorf("urlquery.decode", "%s", decErr)
	}
	return value.String(out), nil
}

func builtinURLQueryEncodeObject(_ *Context, args []value.Value) (value.Value, error) {
	obj, err := objectArg("urlquery.encode_object", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	q := url.Values{}
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		switch v.Kind() {
		case value.KindString:
			q.Set(k, v.Str())
		case value.KindArray, value.KindSet:
			for _, item := range v.Items() {
				if item.Kind() != value.KindString {
					return value.Value{}, typeErrorf("urlquery.encode_object", "only arrays of strings are permitted as values")
				}
				q.Add(k, item.Str())
			}
		default:
			return value.Value{}, typeErrorf("urlquery.encode_object", "value for %q must be a string or array of strings", k)
		}
	}
	return value.String(q.Encode()), nil
}

// builtinURLQueryDecodeObject parses s into a mapping of key -> sequence of
// values. This is deliberately more tolerant than net/url.ParseQuery:
// consecutive "&", wholly-empty components, and components with no text
// before their first "=" (e.g. "=", "==", "====") contribute nothing to the
// result rather than producing a spurious empty-string key — so
// urlquery.decode_object("====") yields {}, not {"": ["==="]}.
func builtinURLQueryDecodeObject(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("urlquery.decode_object", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	q := url.Values{}
	for _, component := range strings.Split(s, "&") {
		if component == "" {
			continue
		}
		key, val, _ := strings.Cut(component, "=")
		if key == "" {
			continue
		}
		decKey, decErr := url.QueryUnescape(key)
		if decErr != nil {
			return value.Value{}, parseErrorf("urlquery.decode_object", "%s", decErr)
		}
		decVal, decErr := url.QueryUnescape(val)
		if decErr != nil {
			return value.Value{}, parseErrorf("urlquery.decode_object", "%s", decErr)
		}
		q.Add(decKey, decVal)
	}
	out := value.NewObject()
	for _, k := range sortedQueryKeys(q) {
		vals := q[k]
		items := make([]value.Value, len(vals))
		for i, v := range vals {
			items[i] = value.String(v)
		}
		out.Set(k, value.Array(items...))
	}
	return out, nil
}

func sortedQueryKeys(q url.Values) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func callURLQueryBuiltin(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	r := NewRegistry(URLQueryGroup)
	d, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("built-in %q not registered", name)
	}
	v, err := d.Handle(NewContext(nil, nil), args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestBuiltinURLQueryDecode(t *testing.T) {
	got := mustEncode(t, callURLQueryBuiltin(t, "urlquery.decode", value.String("%3Ffoo%3D1%26bar%3Dtest")))
	if diff := cmp.Diff(`"?foo=1&bar=test"`, got); diff != "" {
		t.Errorf("urlquery.decode mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinURLQueryDecodeObjectEqualsOnlyYieldsEmptyMapping(t *testing.T) {
	got := mustEncode(t, callURLQueryBuiltin(t, "urlquery.decode_object", value.String("====")))
	if diff := cmp.Diff(`{}`, got); diff != "" {
		t.Errorf("urlquery.decode_object(\"====\") mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinURLQueryDecodeObjectConsecutiveAmpersands(t *testing.T) {
	got := mustEncode(t, callURLQueryBuiltin(t, "urlquery.decode_object", value.String("a=1&&&b=2")))
	if diff := cmp.Diff(`{"a":["1"],"b":["2"]}`, got); diff != "" {
		t.Errorf("urlquery.decode_object with consecutive & mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinURLQueryDecodeObjectRepeatedKeys(t *testing.T) {
	got := mustEncode(t, callURLQueryBuiltin(t, "urlquery.decode_object", value.String("a=1&a=2")))
	if diff := cmp.Diff(`{"a":["1","2"]}`, got); diff != "" {
		t.Errorf("urlquery.decode_object repeated-key mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinURLQueryEncodeObjectSortsKeys(t *testing.T) {
	obj := value.NewObject()
	obj.Set("b", value.String("2"))
	obj.Set("a", value.String("1"))
	got := mustEncode(t, callURLQueryBuiltin(t, "urlquery.encode_object", obj))
	if diff := cmp.Diff(`"a=1&b=2"`, got); diff != "" {
		t.Errorf("urlquery.encode_object mismatch (-want +got):\n%s", diff)
	}
}

package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func callBuiltin(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	r := NewRegistry(StringsGroup, AggregatesGroup, CollectionsGroup, CastsGroup)
	d, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("built-in %q not registered", name)
	}
	if d.Arity != len(args) {
		t.Fatalf("%s: arity mismatch: registered %d, called with %d", name, d.Arity, len(args))
	}
	v, err := d.Handle(NewContext(nil, nil), args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func mustEncode(t *testing.T, v value.Value) string {
	t.Helper()
	s, err := value.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func TestBuiltinTrimFamily(t *testing.T) {
	tests := []struct {
		note string
		name string
		args []value.Value
		want string
	}{
		{"trims both ends", "trim", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("!¡")}, `"foo, bar"`},
		{"trims nothing when cutset absent", "trim", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("i")}, `"¡¡¡foo, bar!!!"`},
		{"trims left only", "trim_left", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("!¡")}, `"foo, bar!!!"`},
		{"trims right only", "trim_right", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("!¡")}, `"¡¡¡foo, bar"`},
		{"trims a prefix", "trim_prefix", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("¡¡¡foo")}, `", bar!!!"`},
		{"leaves string untouched without matching prefix", "trim_prefix", []value.Value{value.String("¡¡¡foo, bar!!!"), value.String("¡¡¡bar")}, `"¡¡¡foo, bar!!!"`},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callBuiltin(t, tc.name, tc.args...))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s(%v) mismatch (-want +got):\n%s", tc.name, tc.args, diff)
			}
		})
	}
}

func TestBuiltinConcat(t *testing.T) {
	got := mustEncode(t, callBuiltin(t, "concat", value.String(","), value.Array(value.String("a"), value.String("b"), value.String("c"))))
	if diff := cmp.Diff(`"a,b,c"`, got); diff != "" {
		t.Errorf("concat mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinConcatRejectsNonStringElement(t *testing.T) {
	_, err := callBuiltinExpectErr(t, "concat", value.String(","), value.Array(value.Int(1)))
	if err == nil {
		t.Fatal("expected a type error for a non-string element")
	}
	if !Undefined(err) {
		t.Fatalf("expected concat's type error to be reported as undefined, got %v", err)
	}
}

func callBuiltinExpectErr(t *testing.T, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	r := NewRegistry(StringsGroup)
	d, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("built-in %q not registered", name)
	}
	return d.Handle(NewContext(nil, nil), args)
}

func TestBuiltinSubstring(t *testing.T) {
	tests := []struct {
		note   string
		s      string
		start  int64
		length int64
		want   string
	}{
		{"bounded slice", "abcdef", 1, 3, `"bcd"`},
		{"negative length runs to the end", "abcdef", 2, -1, `"cdef"`},
		{"start at end yields empty string", "abcdef", 6, 2, `""`},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callBuiltin(t, "substring", value.String(tc.s), value.Int(tc.start), value.Int(tc.length)))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("substring(%q,%d,%d) mismatch (-want +got):\n%s", tc.s, tc.start, tc.length, diff)
			}
		})
	}
}

func TestBuiltinSubstringOutOfRangeIsDomainError(t *testing.T) {
	r := NewRegistry(StringsGroup)
	d, _ := r.Lookup("substring")
	_, err := d.Handle(NewContext(nil, nil), []value.Value{value.String("abc"), value.Int(-1), value.Int(1)})
	if err == nil {
		t.Fatal("expected a domain error for a negative start index")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Code != DomainErr {
		t.Fatalf("expected a DomainErr, got %v", err)
	}
}

func TestBuiltinSprintf(t *testing.T) {
	got := mustEncode(t, callBuiltin(t, "sprintf", value.String("%s has %d items"), value.Array(value.String("cart"), value.Int(3))))
	if diff := cmp.Diff(`"cart has 3 items"`, got); diff != "" {
		t.Errorf("sprintf mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinIndexOfN(t *testing.T) {
	got := mustEncode(t, callBuiltin(t, "indexof_n", value.String("ababab"), value.String("ab")))
	if diff := cmp.Diff(`[0,2,4]`, got); diff != "" {
		t.Errorf("indexof_n mismatch (-want +got):\n%s", diff)
	}
}

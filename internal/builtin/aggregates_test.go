package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func TestBuiltinAggregates(t *testing.T) {
	tests := []struct {
		note string
		name string
		arg  value.Value
		want string
	}{
		{"counts array elements", "count", value.Array(value.Int(1), value.Int(2), value.Int(3)), `3`},
		{"counts string runes, not bytes", "count", value.String("héllo"), `5`},
		{"sums a numeric array", "sum", value.Array(value.Int(1), value.Int(2), value.Int(3)), `6`},
		{"sums to zero on an empty array", "sum", value.Array(), `0`},
		{"multiplies every element", "product", value.Array(value.Int(2), value.Int(3), value.Int(4)), `24`},
		{"max picks the largest element", "max", value.Array(value.Int(5), value.Int(9), value.Int(1)), `9`},
		{"min picks the smallest element", "min", value.Array(value.Int(5), value.Int(9), value.Int(1)), `1`},
		{"sort orders by the canonical total order", "sort", value.Array(value.Int(3), value.Int(1), value.Int(2)), `[1,2,3]`},
		{"all is true when every element is true", "all", value.Array(value.Bool(true), value.Bool(true)), `true`},
		{"all is false when one element is false", "all", value.Array(value.Bool(true), value.Bool(false)), `false`},
		{"any is true when some element is true", "any", value.Array(value.Bool(false), value.Bool(true)), `true`},
		{"any is false when every element is false", "any", value.Array(value.Bool(false), value.Bool(false)), `false`},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callBuiltin(t, tc.name, tc.arg))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s(%s) mismatch (-want +got):\n%s", tc.name, mustEncode(t, tc.arg), diff)
			}
		})
	}
}

func TestBuiltinMaxOnEmptyCollectionIsDomainError(t *testing.T) {
	_, err := callBuiltinExpectErrFrom(t, AggregatesGroup, "max", value.Array())
	berr, ok := err.(*Error)
	if !ok || berr.Code != DomainErr {
		t.Fatalf("expected a DomainErr for max of an empty array, got %v", err)
	}
}

func callBuiltinExpectErrFrom(t *testing.T, group Group, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	r := NewRegistry(group)
	d, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("built-in %q not registered", name)
	}
	return d.Handle(NewContext(nil, nil), args)
}

package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func TestBuiltinToNumber(t *testing.T) {
	tests := []struct {
		note string
		arg  value.Value
		want string
	}{
		{"passes a number through unchanged", value.Int(7), `7`},
		{"parses a numeric string", value.String("3.5"), `3.5`},
		{"treats an empty string as zero", value.String(""), `0`},
		{"converts true to one", value.Bool(true), `1`},
		{"converts false to zero", value.Bool(false), `0`},
		{"converts null to zero", value.Null(), `0`},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callBuiltin(t, "to_number", tc.arg))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("to_number mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuiltinToNumberRejectsMalformedString(t *testing.T) {
	_, err := callBuiltinExpectErrFrom(t, CastsGroup, "to_number", value.String("not-a-number"))
	berr, ok := err.(*Error)
	if !ok || berr.Code != ParseErr {
		t.Fatalf("expected a ParseErr, got %v", err)
	}
}

func TestBuiltinCastArraySet(t *testing.T) {
	arr := mustEncode(t, callBuiltin(t, "cast_array", value.NewSet(value.Int(3), value.Int(1), value.Int(2))))
	if diff := cmp.Diff(`[1,2,3]`, arr); diff != "" {
		t.Errorf("cast_array(set) mismatch (-want +got):\n%s", diff)
	}

	set := mustEncode(t, callBuiltin(t, "cast_set", value.Array(value.Int(2), value.Int(1), value.Int(2))))
	if diff := cmp.Diff(`[1,2]`, set); diff != "" {
		t.Errorf("cast_set(array) mismatch (-want +got):\n%s", diff)
	}
}

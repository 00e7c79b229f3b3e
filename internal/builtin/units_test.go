package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func callUnitsBuiltin(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	r := NewRegistry(UnitsGroup)
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

func TestBuiltinParseBytes(t *testing.T) {
	tests := []struct {
		note string
		in   string
		want string
	}{
		{"bare number is bytes", "1000", "1000"},
		{"decimal K suffix", "1K", "1000"},
		{"binary Ki suffix", "1KiB", "1024"},
		{"decimal kb lowercase", "1kb", "1000"},
		{"binary mib mixed case", "1MiB", "1048576"},
		{"fractional amount", "1.5K", "1500"},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callUnitsBuiltin(t, "units.parse_bytes", value.String(tc.in)))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("units.parse_bytes(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

// units.parse is case-sensitive: a lowercase "m" suffix means milli
// (x10^-3) while an uppercase "M" means mega (x10^6).
func TestBuiltinParseUnitsCaseSensitivity(t *testing.T) {
	tests := []struct {
		note string
		in   string
		want string
	}{
		{"lowercase m is milli", "1mb", "0.001"},
		{"uppercase M is mega", "1Mb", "1000000"},
		{"lowercase k is kilo", "1kb", "1000"},
		{"uppercase K is kilo too", "1KB", "1000"},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := mustEncode(t, callUnitsBuiltin(t, "units.parse", value.String(tc.in)))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("units.parse(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestBuiltinParseUnitsRejectsSpaces(t *testing.T) {
	_, err := callBuiltinExpectErrFrom(t, UnitsGroup, "units.parse", value.String("1 mb"))
	berr, ok := err.(*Error)
	if !ok || berr.Code != ParseErr {
		t.Fatalf("expected a ParseErr for a spaced resource string, got %v", err)
	}
}

package builtin

import (
	"math/big"
	"strings"
	"unicode"

	"github.com/polywasm/policyhost/internal/value"
)

// UnitsGroup registers resource-quantity parsing built-ins, grounded on
// topdown/parse_bytes.go.
func UnitsGroup(r *Registry) {
	r.Register("units.parse_bytes", 1, builtinParseBytes)
	r.Register("units.parse", 1, builtinParseUnits)
}

const (
	unitNone int64 = 1
	unitKB         = 1000
	unitKi         = 1024
	unitMB         = unitKB * 1000
	unitMi         = unitKi * 1024
	unitGB         = unitMB * 1000
	unitGi         = unitMi * 1024
	unitTB         = unitGB * 1000
	unitTi         = unitGi * 1024
)

func builtinParseBytes(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("units.parse_bytes", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s = strings.ToLower(normalizeUnitString(s))
	if strings.Contains(s, " ") {
		return value.Value{}, parseErrorf("units.parse_bytes", "spaces not allowed in resource strings")
	}
	num, unit := extractNumAndUnit(s)
	if num == "" {
		return value.Value{}, parseErrorf("units.parse_bytes", "no byte amount provided")
	}
	var m big.Float
	switch unit {
	case "":
		m.SetInt64(unitNone)
	case "kb", "k":
		m.SetInt64(unitKB)
	case "kib", "ki":
		m.SetInt64(unitKi)
	case "mb", "m":
		m.SetInt64(unitMB)
	case "mib", "mi":
		m.SetInt64(unitMi)
	case "gb", "g":
		m.SetInt64(unitGB)
	case "gib", "gi":
		m.SetInt64(unitGi)
	case "tb", "t":
		m.SetInt64(unitTB)
	case "tib", "ti":
		m.SetInt64(unitTi)
	default:
		return value.Value{}, parseErrorf("units.parse_bytes", "byte unit %s not recognized", unit)
	}
	numFloat, ok := new(big.Float).SetPrec(200).SetString(num)
	if !ok {
		return value.Value{}, parseErrorf("units.parse_bytes", "could not parse byte amount to a number")
	}
	var total big.Int
	numFloat.Mul(numFloat, &m).Int(&total)
	return value.MustNumber(total.String()), nil
}

// parseUnitPrefixes maps a decimal-SI magnitude prefix, longest match first,
// to its scale factor. Unlike units.parse_bytes's unit table, matching here
// is case-sensitive: a lowercase "m" scales by milli (10^-3) while an
// uppercase "M" scales by mega (10^6), and the two must not be folded
// together by a case-insensitive comparison. Anything after the matched
// prefix (e.g. the "b" in "mb", the "s" in "ms") is a free-form unit name
// and is not validated: units.parse only cares about magnitude.
var parseUnitPrefixes = []struct {
	prefix string
	num    int64
	den    int64
}{
	{"n", 1, 1000 * 1000 * 1000},
	{"u", 1, 1000 * 1000},
	{"m", 1, 1000},
	{"k", 1000, 1},
	{"K", 1000, 1},
	{"M", 1000 * 1000, 1},
	{"g", unitGB, 1},
	{"G", unitGB, 1},
	{"t", unitTB, 1},
	{"T", unitTB, 1},
}

// builtinParseUnits mirrors units.parse_bytes but recognizes a bare decimal
// SI magnitude prefix at the start of the unit (n, u, m, k, K, M, g, G, t, T)
// and ignores whatever unit name follows it, so "1mb" scales by milli while
// "1Mb" scales by mega.
func builtinParseUnits(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("units.parse", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s = normalizeUnitString(s)
	if strings.Contains(s, " ") {
		return value.Value{}, parseErrorf("units.parse", "spaces not allowed in resource strings")
	}
	num, unit := extractNumAndUnit(s)
	if num == "" {
		return value.Value{}, parseErrorf("units.parse", "no amount provided")
	}
	scale := new(big.Float).SetPrec(200).SetInt64(1)
	if unit != "" {
		matched := false
		for _, p := range parseUnitPrefixes {
			if strings.HasPrefix(unit, p.prefix) {
				scale.SetRat(new(big.Rat).SetFrac64(p.num, p.den))
				matched = true
				break
			}
		}
		if !matched {
			return value.Value{}, parseErrorf("units.parse", "unit %s not recognized", unit)
		}
	}
	numFloat, ok := new(big.Float).SetPrec(200).SetString(num)
	if !ok {
		return value.Value{}, parseErrorf("units.parse", "could not parse amount to a number")
	}
	numFloat.Mul(numFloat, scale)
	return value.MustNumber(numFloat.Text('f', -1)), nil
}

func normalizeUnitString(s string) string {
	return strings.ReplaceAll(s, "\"", "")
}

// extractNumAndUnit splits s into a leading number and a trailing unit,
// either of which may be empty.
func extractNumAndUnit(s string) (string, string) {
	isNum := func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	}
	firstNonNumIdx := -1
	for idx, r := range s {
		if !isNum(r) {
			firstNonNumIdx = idx
			break
		}
	}
	if firstNonNumIdx == -1 {
		return s, ""
	}
	if firstNonNumIdx == 0 {
		return "", s
	}
	return s[:firstNonNumIdx], s[firstNonNumIdx:]
}

package builtin

import (
	"github.com/Masterminds/semver/v3"

	"github.com/polywasm/policyhost/internal/value"
)

// SemverGroup registers version-string comparison built-ins, backed by
// Masterminds/semver/v3.
func SemverGroup(r *Registry) {
	r.Register("semver.is_valid", 1, builtinSemverIsValid)
	r.Register("semver.compare", 2, builtinSemverCompare)
}

func builtinSemverIsValid(_ *Context, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.KindString {
		return value.Bool(false), nil
	}
	_, err := semver.NewVersion(args[0].Str())
	return value.Bool(err == nil), nil
}

func builtinSemverCompare(_ *Context, args []value.Value) (value.Value, error) {
	a, err := stringArg("semver.compare", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, err := stringArg("semver.compare", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	va, parseErr := semver.NewVersion(a)
	if parseErr != nil {
		return value.Value{}, parseErrorf("semver.compare", "%s", parseErr)
	}
	vb, parseErr := semver.NewVersion(b)
	if parseErr != nil {
		return value.Value{}, parseErrorf("semver.compare", "%s", parseErr)
	}
	return value.Int(int64(va.Compare(vb))), nil
}

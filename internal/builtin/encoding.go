package builtin

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/polywasm/policyhost/internal/value"
)

// EncodingGroup registers the base64/hex text encodings, grounded on
// topdown/encoding.go.
func EncodingGroup(r *Registry) {
	r.Register("base64.encode", 1, builtinBase64Encode)
	r.Register("base64.decode", 1, builtinBase64Decode)
	r.Register("base64url.encode", 1, builtinBase64URLEncode)
	r.Register("base64url.encode_no_pad", 1, builtinBase64URLEncodeNoPad)
	r.Register("base64url.decode", 1, builtinBase64URLDecode)
	r.Register("hex.encode", 1, builtinHexEncode)
	r.Register("hex.decode", 1, builtinHexDecode)
}

func builtinBase64Encode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("base64.encode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(base64.StdEncoding.EncodeToString([]byte(s))), nil
}

func builtinBase64Decode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("base64.decode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out, decErr := base64.StdEncoding.DecodeString(s)
	if decErr != nil {
		return value.Value{}, parseErrorf("base64.decode", "%s", decErr)
	}
	return value.String(string(out)), nil
}

func builtinBase64URLEncode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("base64url.encode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(base64.URLEncoding.EncodeToString([]byte(s))), nil
}

func builtinBase64URLEncodeNoPad(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("base64url.encode_no_pad", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(base64.RawURLEncoding.EncodeToString([]byte(s))), nil
}

func builtinBase64URLDecode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("base64url.decode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	var out []byte
	var decErr error
	if len(s)%4 == 0 {
		out, decErr = base64.URLEncoding.DecodeString(s)
	} else {
		out, decErr = base64.RawURLEncoding.DecodeString(s)
	}
	if decErr != nil {
		return value.Value{}, parseErrorf("base64url.decode", "%s", decErr)
	}
	return value.String(string(out)), nil
}

func builtinHexEncode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("hex.encode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(hex.EncodeToString([]byte(s))), nil
}

func builtinHexDecode(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("hex.decode", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out, decErr := hex.DecodeString(s)
	if decErr != nil {
		return value.Value{}, parseErrorf("hex.decode", "%s", decErr)
	}
	return value.String(string(out)), nil
}

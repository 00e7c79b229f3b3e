package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polywasm/policyhost/internal/value"
)

func callCryptoBuiltin(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	r := NewRegistry(CryptoGroup)
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

func TestBuiltinCryptoDigests(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crypto.md5", "", `"d41d8cd98f00b204e9800998ecf8427e"`},
		{"crypto.sha1", "", `"da39a3ee5e6b4b0d3255bfef95601890afd80709"`},
		{"crypto.sha256", "", `"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"`},
		{"crypto.sha512", "", `"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEncode(t, callCryptoBuiltin(t, tc.name, value.String(tc.in)))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s(%q) mismatch (-want +got):\n%s", tc.name, tc.in, diff)
			}
		})
	}
}

func TestBuiltinCryptoHMACIsDeterministicPerKey(t *testing.T) {
	a := mustEncode(t, callCryptoBuiltin(t, "crypto.hmac.sha256", value.String("message"), value.String("key")))
	b := mustEncode(t, callCryptoBuiltin(t, "crypto.hmac.sha256", value.String("message"), value.String("key")))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("crypto.hmac.sha256 should be deterministic for the same key and message (-first +second):\n%s", diff)
	}
	c := mustEncode(t, callCryptoBuiltin(t, "crypto.hmac.sha256", value.String("message"), value.String("other-key")))
	if a == c {
		t.Errorf("crypto.hmac.sha256 should differ across keys, got the same digest %q for both", a)
	}
}

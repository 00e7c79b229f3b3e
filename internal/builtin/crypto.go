package builtin

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"github.com/polywasm/policyhost/internal/value"
)

// CryptoGroup registers the digest and HMAC built-ins. These use the
// standard library's crypto/* packages directly: hashing algorithms are a
// stdlib strength and none of the example repos reach for a third-party
// substitute for md5/sha1/sha256/sha512/hmac.
func CryptoGroup(r *Registry) {
	r.Register("crypto.md5", 1, digestFunc("crypto.md5", md5.New))
	r.Register("crypto.sha1", 1, digestFunc("crypto.sha1", sha1.New))
	r.Register("crypto.sha256", 1, digestFunc("crypto.sha256", sha256.New))
	r.Register("crypto.sha512", 1, digestFunc("crypto.sha512", sha512.New))
	r.Register("crypto.hmac.md5", 2, hmacFunc("crypto.hmac.md5", md5.New))
	r.Register("crypto.hmac.sha1", 2, hmacFunc("crypto.hmac.sha1", sha1.New))
	r.Register("crypto.hmac.sha256", 2, hmacFunc("crypto.hmac.sha256", sha256.New))
	r.Register("crypto.hmac.sha512", 2, hmacFunc("crypto.hmac.sha512", sha512.New))
}

func digestFunc(name string, newHash func() hash.Hash) Handler {
	return func(_ *Context, args []value.Value) (value.Value, error) {
		s, err := stringArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		h := newHash()
		h.Write([]byte(s))
		return value.String(hex.EncodeToString(h.Sum(nil))), nil
	}
}

func hmacFunc(name string, newHash func() hash.Hash) Handler {
	return func(_ *Context, args []value.Value) (value.Value, error) {
		s, err := stringArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		key, err := stringArg(name, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		mac := hmac.New(newHash, []byte(key))
		mac.Write([]byte(s))
		return value.String(hex.EncodeToString(mac.Sum(nil))), nil
	}
}

package builtin

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/polywasm/policyhost/internal/value"
)

// UUIDRandGroup registers uuid.rfc4122 and rand.intn, grounded on
// topdown/uuid.go's per-query-key memoization. Both here key their cache
// off the built-in's arguments (rand.intn's key includes both the string
// and n) through Context.CacheGet/CachePut, so repeated calls with the same
// key return the same value within one evaluation.
func UUIDRandGroup(r *Registry) {
	r.Register("uuid.rfc4122", 1, builtinUUIDRFC4122)
	r.Register("rand.intn", 2, builtinRandIntn)
}

func builtinUUIDRFC4122(ctx *Context, args []value.Value) (value.Value, error) {
	key, err := stringArg("uuid.rfc4122", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	cacheKey := "uuid.rfc4122:" + key
	if v, ok := ctx.CacheGet(cacheKey); ok {
		return v, nil
	}
	id, genErr := uuid.NewRandomFromReader(ctx.Rand())
	if genErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "uuid.rfc4122", Msg: genErr.Error()}
	}
	v := value.String(id.String())
	ctx.CachePut(cacheKey, v)
	return v, nil
}

func builtinRandIntn(ctx *Context, args []value.Value) (value.Value, error) {
	key, err := stringArg("rand.intn", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	n, err := intArg("rand.intn", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if n <= 0 {
		return value.Int(0), nil
	}
	cacheKey := fmt.Sprintf("rand.intn:%s:%d", key, n)
	if v, ok := ctx.CacheGet(cacheKey); ok {
		return v, nil
	}
	var buf [8]byte
	if _, readErr := ctx.Rand().Read(buf[:]); readErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "rand.intn", Msg: readErr.Error()}
	}
	raw := binary.BigEndian.Uint64(buf[:])
	result := new(big.Int).Mod(new(big.Int).SetUint64(raw), big.NewInt(n))
	v := value.MustNumber(result.String())
	ctx.CachePut(cacheKey, v)
	return v, nil
}

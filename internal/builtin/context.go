// Package builtin implements the host-provided function library that
// policies call back into, plus the registry that maps built-in names to
// handlers.
package builtin

import (
	"io"
	"time"

	"github.com/polywasm/policyhost/internal/value"
)

// Context is the ambient state a handler may consult. A fresh Context is
// constructed once per evaluate call (spec: "per-evaluation caches...freshly
// constructed per call"); Now is sampled lazily and memoized so repeated
// calls to time.now_ns within one evaluation observe the same instant.
type Context struct {
	rand io.Reader
	now  func() time.Time

	nowSampled bool
	nowValue   time.Time

	cache map[string]value.Value
}

// NewContext constructs a per-evaluation builtin Context. rand is the
// ambient random source (crypto/rand.Reader in production, deterministic in
// tests); clock supplies the wall-clock sample for time.now_ns freezing
// (a nil clock defaults to time.Now).
func NewContext(rand io.Reader, clock func() time.Time) *Context {
	if clock == nil {
		clock = time.Now
	}
	return &Context{rand: rand, now: clock, cache: make(map[string]value.Value)}
}

// Rand returns the ambient random source.
func (c *Context) Rand() io.Reader { return c.rand }

// Now returns the wall-clock instant for this evaluation, sampling the
// clock at most once and reusing the value on every subsequent call within
// the same Context, so time.now_ns is stable across an entire evaluation.
func (c *Context) Now() time.Time {
	if !c.nowSampled {
		c.nowValue = c.now()
		c.nowSampled = true
	}
	return c.nowValue
}

// CacheGet looks up a per-evaluation cached value by key, used by
// uuid.rfc4122 and rand.intn to make repeated calls with the same key
// idempotent within one evaluation.
func (c *Context) CacheGet(key string) (value.Value, bool) {
	v, ok := c.cache[key]
	return v, ok
}

// CachePut stores a per-evaluation cached value by key.
func (c *Context) CachePut(key string, v value.Value) {
	c.cache[key] = v
}

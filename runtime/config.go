package runtime

import (
	"io"
	"time"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/logging"
)

// Config holds the Runtime's tunables, set through the Option functions
// below; this package does not read a Config from YAML or JSON.
type Config struct {
	// PoolSize is the number of VM instances kept ready for concurrent
	// Evaluate calls. Zero means GOMAXPROCS.
	PoolSize uint32 `json:"pool_size,omitempty"`
	// Strict controls how a loaded module's calls into an unresolved
	// built-in are treated: a call naming a built-in id or name the host
	// cannot find a handler for normally just returns an undefined
	// result, the same as any other undefined built-in call. When Strict
	// is true, that case aborts evaluation instead.
	Strict bool `json:"strict,omitempty"`
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithPoolSize fixes the number of VM instances Load creates, overriding the
// GOMAXPROCS default.
func WithPoolSize(n uint32) Option {
	return func(rt *Runtime) { rt.cfg.PoolSize = n }
}

// WithStrict sets whether a loaded module's calls into a built-in the host
// cannot resolve abort evaluation (true) or return an undefined result
// (false, the default).
func WithStrict(strict bool) Option {
	return func(rt *Runtime) { rt.cfg.Strict = strict }
}

// WithLogger installs a non-default Logger.
func WithLogger(l logging.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// WithRegistry installs a non-default built-in Registry, letting a caller
// add private built-ins or drop groups it does not want exposed.
func WithRegistry(r *builtin.Registry) Option {
	return func(rt *Runtime) { rt.registry = r }
}

// WithRand overrides the ambient random source every rand.* and uuid.*
// built-in reads from (crypto/rand.Reader by default).
func WithRand(r io.Reader) Option {
	return func(rt *Runtime) { rt.rand = r }
}

// WithClock overrides the wall clock time.now_ns samples (time.Now by
// default), primarily for deterministic tests.
func WithClock(c func() time.Time) Option {
	return func(rt *Runtime) { rt.clock = c }
}


// Package runtime ties the VM layer to the evaluation lifecycle: load a
// compiled module, optionally attach/patch data, then run repeated Evaluate
// calls, all backed by a pool of VM instances so calls from different
// goroutines run against independent heaps.
package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	gruntime "runtime"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/internal/value"
	"github.com/polywasm/policyhost/internal/vm"
	"github.com/polywasm/policyhost/logging"
	"github.com/polywasm/policyhost/metrics"
)

// State is the module's lifecycle position: Loaded once a module is
// instantiated, Prepared once data has been attached. The transient
// "evaluating" span of a single Evaluate call is tracked per acquired
// instance rather than globally, since the pool allows concurrent
// evaluations.
type State int

const (
	// StateUnloaded is the zero value: no module has been installed yet.
	StateUnloaded State = iota
	// StateLoaded means a module is instantiated but has no data attached.
	StateLoaded
	// StatePrepared means WithData has succeeded at least once.
	StatePrepared
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePrepared:
		return "prepared"
	default:
		return "unloaded"
	}
}

// Runtime owns a pool of instances of one compiled policy module plus the
// shared data document attached to all of them.
type Runtime struct {
	cfg      Config
	registry *builtin.Registry
	logger   logging.Logger
	metrics  metrics.Metrics
	rand     io.Reader
	clock    func() time.Time

	mu          sync.RWMutex
	state       State
	wazero      wazero.Runtime
	pool        *pool
	entrypoints map[string]int32
}

// New constructs a Runtime with no module loaded. Call Load before
// Evaluate.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		registry: builtin.NewRegistry(builtin.AllGroups()...),
		logger:   logging.New(),
		metrics:  metrics.New(),
		rand:     rand.Reader,
		clock:    time.Now,
		state:    StateUnloaded,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Load instantiates wasmBytes into a fresh pool of VM instances, replacing
// any previously loaded module. It transitions the Runtime to StateLoaded.
func (rt *Runtime) Load(ctx context.Context, wasmBytes []byte) error {
	t := rt.metrics.Timer(metrics.VMEval + "_load").Start()
	defer t.Stop()

	rt.mu.Lock()
	defer rt.mu.Unlock()

	size := rt.cfg.PoolSize
	if size == 0 {
		size = uint32(gruntime.GOMAXPROCS(0))
	}
	if size == 0 {
		size = 1
	}

	if rt.wazero == nil {
		rt.wazero = wazero.NewRuntime(ctx)
	}

	instances := make([]*vm.Instance, 0, size)
	for i := uint32(0); i < size; i++ {
		in, err := vm.New(ctx, rt.wazero, wasmBytes, rt.registry, rt.cfg.Strict)
		if err != nil {
			for _, existing := range instances {
				_ = existing.Close(ctx)
			}
			return fmt.Errorf("%w: %v", ErrInvalidPolicyOrData, err)
		}
		instances = append(instances, in)
	}

	if rt.pool != nil {
		_ = rt.pool.close(ctx)
	}

	rt.pool = newPool(instances)
	rt.entrypoints = instances[0].Entrypoints()
	rt.state = StateLoaded

	rt.logger.Info(map[string]interface{}{
		"pool_size":   size,
		"entrypoints": len(rt.entrypoints),
	}, "policy module loaded")

	return nil
}

// WithData attaches data as the base document every entrypoint evaluates
// against, propagating it to every instance in the pool. It transitions the
// Runtime to StatePrepared.
func (rt *Runtime) WithData(ctx context.Context, data value.Value) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.pool == nil {
		return ErrNotReady
	}

	if err := rt.pool.broadcast(ctx, func(in *vm.Instance) error {
		return in.SetData(ctx, data)
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicyOrData, err)
	}

	rt.state = StatePrepared
	return nil
}

// SetDataPath patches a single path of the attached data document in place
// across every pool instance, without a full WithData round trip.
func (rt *Runtime) SetDataPath(ctx context.Context, path []string, v value.Value) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.pool == nil || rt.state != StatePrepared {
		return ErrNotReady
	}

	return rt.pool.broadcast(ctx, func(in *vm.Instance) error {
		return in.SetDataPath(ctx, path, v)
	})
}

// RemoveDataPath deletes a single path of the attached data document across
// every pool instance.
func (rt *Runtime) RemoveDataPath(ctx context.Context, path []string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.pool == nil || rt.state != StatePrepared {
		return ErrNotReady
	}

	return rt.pool.broadcast(ctx, func(in *vm.Instance) error {
		return in.RemoveDataPath(ctx, path)
	})
}

// Entrypoints returns the module's published entrypoint name -> id table.
func (rt *Runtime) Entrypoints() map[string]int32 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make(map[string]int32, len(rt.entrypoints))
	for k, v := range rt.entrypoints {
		out[k] = v
	}
	return out
}

// State reports the current lifecycle position.
func (rt *Runtime) State() State {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.state
}

// Close releases every pool instance and the underlying wazero runtime.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var firstErr error
	if rt.pool != nil {
		firstErr = rt.pool.close(ctx)
		rt.pool = nil
	}
	if rt.wazero != nil {
		if err := rt.wazero.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		rt.wazero = nil
	}
	rt.state = StateUnloaded
	return firstErr
}

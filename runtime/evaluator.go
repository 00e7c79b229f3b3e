package runtime

import (
	"context"
	"fmt"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/internal/value"
	"github.com/polywasm/policyhost/metrics"
)

// Evaluate runs entrypoint once against input, acquiring one instance from
// the pool for the duration of the call and installing a fresh per-call
// builtin.Context so caches and the frozen clock sample never leak across
// evaluations.
func (rt *Runtime) Evaluate(ctx context.Context, entrypoint string, input value.Value) (value.Value, error) {
	rt.mu.RLock()
	p := rt.pool
	id, ok := rt.entrypoints[entrypoint]
	rnd := rt.rand
	clock := rt.clock
	m := rt.metrics
	rt.mu.RUnlock()

	if p == nil {
		return value.Value{}, ErrNotReady
	}
	if !ok {
		return value.Value{}, fmt.Errorf("%s: %w", entrypoint, ErrEntrypointNotFound)
	}

	t := m.Timer(metrics.VMEval).Start()
	defer t.Stop()

	in, err := p.acquire(ctx)
	if err != nil {
		return value.Value{}, fmt.Errorf("runtime: acquiring VM instance: %w", err)
	}
	defer p.release(in)

	bctx := builtin.NewContext(rnd, clock)
	in.SetBuiltinContext(bctx)
	defer in.SetBuiltinContext(nil)

	result, err := in.Eval(ctx, id, &input)
	if err != nil {
		return value.Value{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return result, nil
}

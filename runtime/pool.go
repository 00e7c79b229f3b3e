package runtime

import (
	"context"

	"github.com/polywasm/policyhost/internal/vm"
)

// pool hands out exclusive use of one of a fixed set of VM instances: each
// instance carries its own heap and base data, so concurrent Eval calls
// never interleave on one module.
type pool struct {
	instances []*vm.Instance
	avail     chan *vm.Instance
}

func newPool(instances []*vm.Instance) *pool {
	avail := make(chan *vm.Instance, len(instances))
	for _, in := range instances {
		avail <- in
	}
	return &pool{instances: instances, avail: avail}
}

func (p *pool) acquire(ctx context.Context) (*vm.Instance, error) {
	select {
	case in := <-p.avail:
		return in, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pool) release(in *vm.Instance) {
	p.avail <- in
}

// broadcast drains every instance out of rotation, applies fn to each in
// turn, then returns them all to the pool. Used by WithData/SetDataPath so a
// data change is visible to whichever instance the next Eval acquires.
func (p *pool) broadcast(ctx context.Context, fn func(*vm.Instance) error) error {
	acquired := make([]*vm.Instance, 0, len(p.instances))
	defer func() {
		for _, in := range acquired {
			p.release(in)
		}
	}()

	for range p.instances {
		in, err := p.acquire(ctx)
		if err != nil {
			return err
		}
		acquired = append(acquired, in)
	}

	var firstErr error
	for _, in := range acquired {
		if err := fn(in); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *pool) close(ctx context.Context) error {
	var firstErr error
	for _, in := range p.instances {
		if err := in.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

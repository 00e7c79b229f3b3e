package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/polywasm/policyhost/internal/vm"
)

// fakeMembers stands in for instantiated VM instances: pool only ever
// acquires, releases, and (via broadcast) passes instances to a caller
// supplied function, so a nil *vm.Instance is fine as long as the test
// never calls a method on it.
func fakeMembers(n int) []*vm.Instance {
	members := make([]*vm.Instance, n)
	return members
}

func TestPoolAcquireRelease(t *testing.T) {
	p := newPool(fakeMembers(2))
	ctx := context.Background()

	a, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := p.acquire(acquireCtx); err == nil {
		t.Fatal("expected acquire to block once the pool is exhausted")
	}

	p.release(a)
	p.release(b)

	if _, err := p.acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPoolBroadcastVisitsEveryInstance(t *testing.T) {
	p := newPool(fakeMembers(3))
	ctx := context.Background()

	visited := 0
	if err := p.broadcast(ctx, func(*vm.Instance) error {
		visited++
		return nil
	}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if visited != 3 {
		t.Fatalf("expected broadcast to visit 3 instances, got %d", visited)
	}

	// The pool must be fully usable again afterwards.
	for i := 0; i < 3; i++ {
		if _, err := p.acquire(ctx); err != nil {
			t.Fatalf("acquire after broadcast: %v", err)
		}
	}
}

func TestPoolBroadcastPropagatesFirstError(t *testing.T) {
	p := newPool(fakeMembers(2))
	ctx := context.Background()

	sentinel := context.Canceled
	err := p.broadcast(ctx, func(*vm.Instance) error {
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected broadcast to surface the handler error, got %v", err)
	}

	// Instances must still be returned to rotation even when fn fails.
	if _, err := p.acquire(ctx); err != nil {
		t.Fatalf("acquire after failed broadcast: %v", err)
	}
}

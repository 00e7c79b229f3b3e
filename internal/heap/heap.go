// Package heap provides a thin, ownership-disciplined facade over a
// module's linear memory and its exported allocator.
package heap

import (
	"bytes"
	"context"
	"fmt"
)

// Address is a non-zero offset into the module's linear memory. Zero is
// reserved as the null address.
type Address uint32

// Memory is the subset of a wazero api.Memory this package needs; kept as
// an interface so AddressedHeap is testable against a fake buffer without
// instantiating a real wasm store.
type Memory interface {
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
	Size() uint32
}

// Allocator is the pair of guest exports the heap drives to own memory:
// opa_malloc and opa_free.
type Allocator interface {
	Malloc(ctx context.Context, size int32) (int32, error)
	Free(ctx context.Context, addr int32) error
}

// AddressedHeap reads and writes guest memory at host-chosen addresses and
// tracks allocator-owned regions.
type AddressedHeap struct {
	mem   Memory
	alloc Allocator
}

// New constructs an AddressedHeap over mem, driven by alloc for
// allocation/free.
func New(mem Memory, alloc Allocator) *AddressedHeap {
	return &AddressedHeap{mem: mem, alloc: alloc}
}

// Read reads a NUL-terminated byte string starting at addr.
func (h *AddressedHeap) Read(addr Address) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("heap: read of null address")
	}
	// Memory size is the hard upper bound on how far we may need to scan;
	// a missing NUL terminator within it is a host/guest protocol bug.
	chunk, ok := h.mem.Read(uint32(addr), h.mem.Size()-uint32(addr))
	if !ok {
		return nil, fmt.Errorf("heap: address %d out of bounds", addr)
	}
	n := bytes.IndexByte(chunk, 0)
	if n < 0 {
		return nil, fmt.Errorf("heap: unterminated string at address %d", addr)
	}
	out := make([]byte, n)
	copy(out, chunk[:n])
	return out, nil
}

// WriteBytes allocates len(data)+1 bytes via the guest allocator, writes
// data followed by a NUL terminator, and returns the new address. The
// caller owns the returned address until it calls Free.
func (h *AddressedHeap) WriteBytes(ctx context.Context, data []byte) (Address, error) {
	n := int32(len(data)) + 1
	addr, err := h.alloc.Malloc(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("heap: malloc(%d): %w", n, err)
	}
	buf := make([]byte, n)
	copy(buf, data)
	if !h.mem.Write(uint32(addr), buf) {
		return 0, fmt.Errorf("heap: write at address %d out of bounds", addr)
	}
	return Address(addr), nil
}

// Free releases addr back to the guest allocator. Freeing the null address
// is a no-op, matching opa_free's documented behavior.
func (h *AddressedHeap) Free(ctx context.Context, addr Address) error {
	if addr == 0 {
		return nil
	}
	if err := h.alloc.Free(ctx, int32(addr)); err != nil {
		return fmt.Errorf("heap: free(%d): %w", addr, err)
	}
	return nil
}

// Scoped owns addr until Release is called, guaranteeing release on every
// exit path (including a panic unwinding through a deferred Release), which
// is what keeps heap ownership sound across the suspension points built-in
// handlers introduce.
type Scoped struct {
	h        *AddressedHeap
	addr     Address
	released bool
}

// Own wraps addr in a Scoped allocation.
func (h *AddressedHeap) Own(addr Address) *Scoped {
	return &Scoped{h: h, addr: addr}
}

// Address returns the owned address.
func (s *Scoped) Address() Address { return s.addr }

// Release frees the owned address exactly once; subsequent calls are a
// no-op, so Release is safe to call from both a defer and an explicit early
// exit.
func (s *Scoped) Release(ctx context.Context) error {
	if s.released {
		return nil
	}
	s.released = true
	return s.h.Free(ctx, s.addr)
}

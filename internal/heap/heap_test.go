package heap

import (
	"context"
	"testing"
)

// fakeMemory is a flat byte slice standing in for a wazero api.Memory.
type fakeMemory struct {
	buf []byte
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, bool) {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset : offset+length], true
}

func (m *fakeMemory) Write(offset uint32, data []byte) bool {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[offset:], data)
	return true
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.buf)) }

// fakeAllocator is a bump allocator over the same backing buffer, with Free
// recorded for assertions rather than actually reclaiming space.
type fakeAllocator struct {
	next  int32
	freed []int32
}

func (a *fakeAllocator) Malloc(_ context.Context, size int32) (int32, error) {
	addr := a.next
	a.next += size
	return addr + 1, nil // keep 0 reserved as the null address
}

func (a *fakeAllocator) Free(_ context.Context, addr int32) error {
	a.freed = append(a.freed, addr)
	return nil
}

func newTestHeap(size int) (*AddressedHeap, *fakeAllocator) {
	alloc := &fakeAllocator{}
	h := New(&fakeMemory{buf: make([]byte, size)}, alloc)
	return h, alloc
}

func TestWriteBytesThenRead(t *testing.T) {
	h, _ := newTestHeap(256)
	ctx := context.Background()

	addr, err := h.WriteBytes(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if addr == 0 {
		t.Fatal("expected a non-null address")
	}

	got, err := h.Read(addr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Read = %q, want %q", got, "hello")
	}
}

func TestReadNullAddressIsAnError(t *testing.T) {
	h, _ := newTestHeap(16)
	if _, err := h.Read(0); err == nil {
		t.Fatal("expected an error reading the null address")
	}
}

func TestReadUnterminatedStringIsAnError(t *testing.T) {
	h, _ := newTestHeap(16)
	mem := h.mem.(*fakeMemory)
	// Fill the whole buffer with non-NUL bytes so no terminator exists.
	for i := range mem.buf {
		mem.buf[i] = 'x'
	}
	if _, err := h.Read(1); err == nil {
		t.Fatal("expected an error for a string with no NUL terminator")
	}
}

func TestFreeOfNullAddressIsANoop(t *testing.T) {
	h, alloc := newTestHeap(16)
	if err := h.Free(context.Background(), 0); err != nil {
		t.Fatalf("Free(0): %v", err)
	}
	if len(alloc.freed) != 0 {
		t.Fatalf("expected no allocator Free call for the null address, got %v", alloc.freed)
	}
}

func TestScopedReleaseIsIdempotent(t *testing.T) {
	h, alloc := newTestHeap(256)
	ctx := context.Background()

	addr, err := h.WriteBytes(ctx, []byte("scoped"))
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	scoped := h.Own(addr)
	if scoped.Address() != addr {
		t.Fatalf("Address() = %d, want %d", scoped.Address(), addr)
	}

	if err := scoped.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := scoped.Release(ctx); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if len(alloc.freed) != 1 {
		t.Fatalf("expected exactly one Free call, got %d", len(alloc.freed))
	}
}

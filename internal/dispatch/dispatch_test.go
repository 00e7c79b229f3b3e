package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/internal/value"
)

// fakeBridge stands in for a VM instance's guest memory: addresses are just
// keys into a map of already-decoded values, so tests can drive the
// Dispatcher without a live wasm module.
type fakeBridge struct {
	byAddr  map[int32]value.Value
	nextOut int32
	written map[int32]value.Value
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{byAddr: map[int32]value.Value{}, nextOut: 100, written: map[int32]value.Value{}}
}

func (b *fakeBridge) put(v value.Value) int32 {
	addr := int32(len(b.byAddr)) + 1
	b.byAddr[addr] = v
	return addr
}

func (b *fakeBridge) ReadValue(_ context.Context, addr int32) (value.Value, error) {
	v, ok := b.byAddr[addr]
	if !ok {
		return value.Value{}, errors.New("fakeBridge: unknown address")
	}
	return v, nil
}

func (b *fakeBridge) WriteValue(_ context.Context, v value.Value) (int32, error) {
	addr := b.nextOut
	b.nextOut++
	b.written[addr] = v
	return addr, nil
}

func echoGroup(r *builtin.Registry) {
	r.Register("test.double", 1, func(_ *builtin.Context, args []value.Value) (value.Value, error) {
		if args[0].Kind() != value.KindString {
			return value.Value{}, &builtin.Error{Code: builtin.TypeErr, Name: "test.double", Msg: "not a string"}
		}
		return value.String(args[0].Str() + args[0].Str()), nil
	})
	r.Register("test.fatal", 0, func(_ *builtin.Context, _ []value.Value) (value.Value, error) {
		return value.Value{}, &builtin.Error{Code: builtin.FatalErr, Name: "test.fatal", Msg: "boom"}
	})
}

func TestDispatcherCallRoundTrip(t *testing.T) {
	registry := builtin.NewRegistry(echoGroup)
	d := New(registry, false)
	d.SetBuiltinNames(map[int32]string{7: "test.double"})

	bridge := newFakeBridge()
	arg := bridge.put(value.String("ab"))

	addr, err := d.Call(context.Background(), bridge, builtin.NewContext(nil, nil), 7, []int32{arg})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if addr == 0 {
		t.Fatal("expected a defined (non-zero) result address")
	}
	if got := bridge.written[addr]; !value.Equal(got, value.String("abab")) {
		t.Fatalf("result = %v, want \"abab\"", got)
	}
}

func TestDispatcherTypeErrorIsUndefined(t *testing.T) {
	registry := builtin.NewRegistry(echoGroup)
	d := New(registry, false)
	d.SetBuiltinNames(map[int32]string{7: "test.double"})

	bridge := newFakeBridge()
	arg := bridge.put(value.Int(1))

	addr, err := d.Call(context.Background(), bridge, builtin.NewContext(nil, nil), 7, []int32{arg})
	if err != nil {
		t.Fatalf("expected a type error to surface as undefined, not an error: %v", err)
	}
	if addr != 0 {
		t.Fatalf("expected address 0 for an undefined result, got %d", addr)
	}
}

func TestDispatcherFatalErrorPropagates(t *testing.T) {
	registry := builtin.NewRegistry(echoGroup)
	d := New(registry, false)
	d.SetBuiltinNames(map[int32]string{9: "test.fatal"})

	bridge := newFakeBridge()
	if _, err := d.Call(context.Background(), bridge, builtin.NewContext(nil, nil), 9, nil); err == nil {
		t.Fatal("expected a FatalErr to propagate as a dispatcher error")
	}
}

func TestDispatcherUnknownBuiltinIDIsUndefinedByDefault(t *testing.T) {
	d := New(builtin.NewRegistry(echoGroup), false)
	d.SetBuiltinNames(map[int32]string{})

	addr, err := d.Call(context.Background(), newFakeBridge(), builtin.NewContext(nil, nil), 42, nil)
	if err != nil {
		t.Fatalf("expected a non-strict Dispatcher to report an unmapped builtin id as undefined, got error: %v", err)
	}
	if addr != 0 {
		t.Fatalf("expected address 0 for an undefined result, got %d", addr)
	}
}

func TestDispatcherUnknownBuiltinIDIsFatalWhenStrict(t *testing.T) {
	d := New(builtin.NewRegistry(echoGroup), true)
	d.SetBuiltinNames(map[int32]string{})

	_, err := d.Call(context.Background(), newFakeBridge(), builtin.NewContext(nil, nil), 42, nil)
	var missing *MissingBuiltinError
	if !errors.As(err, &missing) {
		t.Fatalf("expected a *MissingBuiltinError from a strict Dispatcher, got %v", err)
	}
}

func TestDispatcherUnregisteredNameIsUndefinedByDefault(t *testing.T) {
	d := New(builtin.NewRegistry(echoGroup), false)
	d.SetBuiltinNames(map[int32]string{5: "test.nonexistent"})

	addr, err := d.Call(context.Background(), newFakeBridge(), builtin.NewContext(nil, nil), 5, nil)
	if err != nil {
		t.Fatalf("expected a non-strict Dispatcher to report an unregistered name as undefined, got error: %v", err)
	}
	if addr != 0 {
		t.Fatalf("expected address 0 for an undefined result, got %d", addr)
	}
}

func TestDispatcherUnregisteredNameIsFatalWhenStrict(t *testing.T) {
	d := New(builtin.NewRegistry(echoGroup), true)
	d.SetBuiltinNames(map[int32]string{5: "test.nonexistent"})

	_, err := d.Call(context.Background(), newFakeBridge(), builtin.NewContext(nil, nil), 5, nil)
	var missing *MissingBuiltinError
	if !errors.As(err, &missing) {
		t.Fatalf("expected a *MissingBuiltinError from a strict Dispatcher, got %v", err)
	}
	if missing.Name != "test.nonexistent" {
		t.Fatalf("expected MissingBuiltinError.Name = %q, got %q", "test.nonexistent", missing.Name)
	}
}

func TestDispatcherArityMismatch(t *testing.T) {
	registry := builtin.NewRegistry(echoGroup)
	d := New(registry, false)
	d.SetBuiltinNames(map[int32]string{7: "test.double"})

	if _, err := d.Call(context.Background(), newFakeBridge(), builtin.NewContext(nil, nil), 7, nil); err == nil {
		t.Fatal("expected an error when the guest passes the wrong number of operands")
	}
}

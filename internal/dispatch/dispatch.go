// Package dispatch bridges a guest module's per-arity host-function calls
// (opa_builtin0..opa_builtin4) to the host's builtin.Registry: serialize
// each operand out of the guest's linear memory, invoke the registered
// handler, and write the result back in, with 0 meaning "undefined" to the
// guest.
package dispatch

import (
	"context"
	"fmt"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/internal/value"
)

// HeapBridge is the subset of the VM instance a Dispatcher needs: reading a
// guest-side value by address and writing a host-computed value back,
// addressed in the guest's own linear memory.
type HeapBridge interface {
	ReadValue(ctx context.Context, addr int32) (value.Value, error)
	WriteValue(ctx context.Context, v value.Value) (int32, error)
}

// MissingBuiltinError reports that a module invoked a built-in id or name
// the Dispatcher has no handler for. In strict mode this aborts evaluation;
// in the default non-strict mode Call discards it and returns an undefined
// (0) result.
type MissingBuiltinError struct {
	// ID is the guest-reported builtin id, set when the id itself was
	// never in the name table the module's opa_builtins export produced.
	ID int32
	// Name is the built-in name, set when the id resolved to a name but
	// the name has no handler registered in this host.
	Name string
}

func (e *MissingBuiltinError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("dispatch: unknown builtin id %d", e.ID)
	}
	return fmt.Sprintf("dispatch: built-in %q not registered in this host", e.Name)
}

// Dispatcher owns the name table a compiled module reported through its
// opa_builtins export (id -> name) and routes calls into a Registry.
type Dispatcher struct {
	registry     *builtin.Registry
	builtinNames map[int32]string
	strict       bool
}

// New builds a Dispatcher over registry. SetBuiltinNames must be called
// once the guest module's builtin id table has been read before any call
// is dispatched. When strict is true, a call naming an id or name the
// Dispatcher cannot resolve aborts evaluation with a *MissingBuiltinError;
// when false (the default most callers want), it instead returns an
// undefined (address 0) result, same as any other undefined built-in call.
func New(registry *builtin.Registry, strict bool) *Dispatcher {
	return &Dispatcher{registry: registry, builtinNames: map[int32]string{}, strict: strict}
}

// SetBuiltinNames installs the id -> name table the guest module reported
// via its opa_builtins export.
func (d *Dispatcher) SetBuiltinNames(names map[int32]string) {
	d.builtinNames = names
}

// Call resolves builtinID to a registered handler, decodes argAddrs through
// bridge, invokes the handler with bctx, and returns the guest address of
// the encoded result (0 for an undefined result). Fatal errors and, in
// strict mode, missing built-ins are returned to the caller, which aborts
// the evaluation; type, domain and parse errors are swallowed into an
// undefined (0) result.
func (d *Dispatcher) Call(ctx context.Context, bridge HeapBridge, bctx *builtin.Context, builtinID int32, argAddrs []int32) (int32, error) {
	name, ok := d.builtinNames[builtinID]
	if !ok {
		return d.missing(&MissingBuiltinError{ID: builtinID})
	}
	desc, ok := d.registry.Lookup(name)
	if !ok {
		return d.missing(&MissingBuiltinError{Name: name})
	}
	if len(argAddrs) != desc.Arity {
		return 0, fmt.Errorf("dispatch: %s: expected %d operands, module passed %d", name, desc.Arity, len(argAddrs))
	}

	args := make([]value.Value, len(argAddrs))
	for i, addr := range argAddrs {
		v, err := bridge.ReadValue(ctx, addr)
		if err != nil {
			return 0, fmt.Errorf("dispatch: %s: decoding operand %d: %w", name, i, err)
		}
		args[i] = v
	}

	result, err := desc.Handle(bctx, args)
	if err != nil {
		if builtin.Undefined(err) {
			return 0, nil
		}
		return 0, err
	}

	addr, err := bridge.WriteValue(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("dispatch: %s: encoding result: %w", name, err)
	}
	return addr, nil
}

// missing applies the Dispatcher's strict setting to an unresolved builtin
// id or name: strict mode propagates err so evaluation aborts, non-strict
// mode reports the call as undefined.
func (d *Dispatcher) missing(err *MissingBuiltinError) (int32, error) {
	if d.strict {
		return 0, err
	}
	return 0, nil
}

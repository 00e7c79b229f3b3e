// Package vm wraps a single instantiated policy module: the "env" host
// module a guest imports (opa_abort, opa_println, opa_builtin0..4) plus
// thin Go wrappers over the guest's own exported functions (malloc, free,
// eval_ctx_*, json_parse/dump, heap_ptr_get/set, value_add_path/remove_path).
//
// Host functions are built with NewHostModuleBuilder/NewFunctionBuilder, and
// api.Memory reads and writes take no context argument.
package vm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/polywasm/policyhost/internal/builtin"
	"github.com/polywasm/policyhost/internal/dispatch"
	"github.com/polywasm/policyhost/internal/heap"
	"github.com/polywasm/policyhost/internal/value"
)

// abortError is recovered out of a guest-triggered opa_abort trap and
// surfaced to the caller of Eval as a regular error.
type abortError struct{ message string }

func (e abortError) Error() string { return "module aborted: " + e.message }

// Instance is one instantiated policy module plus the host state (heap,
// dispatcher, per-evaluation builtin context) it closes over.
type Instance struct {
	runtime    wazero.Runtime
	env        api.Module
	guest      api.Module
	mem        api.Memory
	heap       *heap.AddressedHeap
	dispatcher *dispatch.Dispatcher

	bctx *builtin.Context

	entrypoints map[string]int32
	data        dataState
}

// memAdapter satisfies heap.Memory over a wazero api.Memory.
type memAdapter struct{ m api.Memory }

func (a memAdapter) Read(offset, length uint32) ([]byte, bool) { return a.m.Read(offset, length) }
func (a memAdapter) Write(offset uint32, data []byte) bool     { return a.m.Write(offset, data) }
func (a memAdapter) Size() uint32                              { return a.m.Size() }

// allocAdapter satisfies heap.Allocator over the guest's exported
// opa_malloc/opa_free functions.
type allocAdapter struct{ in *Instance }

func (a allocAdapter) Malloc(ctx context.Context, size int32) (int32, error) {
	fn := a.in.guest.ExportedFunction("opa_malloc")
	res, err := fn.Call(ctx, uint64(size))
	if err != nil {
		return 0, err
	}
	return int32(res[0]), nil
}

func (a allocAdapter) Free(ctx context.Context, addr int32) error {
	fn := a.in.guest.ExportedFunction("opa_free")
	_, err := fn.Call(ctx, uint64(uint32(addr)))
	return err
}

// New instantiates policy (a compiled WebAssembly binary) against registry,
// wiring its built-in calls through a fresh Dispatcher. strict controls how
// the Dispatcher treats a built-in call it cannot resolve: see
// dispatch.New. The Instance value is built and its host functions are
// bound to its own pointer-receiver methods first, since the guest module
// imports those host functions at instantiation time and so must be loaded
// second.
func New(ctx context.Context, rt wazero.Runtime, policy []byte, registry *builtin.Registry, strict bool) (*Instance, error) {
	in := &Instance{
		runtime:    rt,
		dispatcher: dispatch.New(registry, strict),
	}

	envBuilder := rt.NewHostModuleBuilder("env")
	envBuilder.NewFunctionBuilder().WithFunc(in.opaAbort).Export("opa_abort")
	envBuilder.NewFunctionBuilder().WithFunc(in.opaPrintln).Export("opa_println")
	envBuilder.NewFunctionBuilder().WithFunc(in.builtinCall0).Export("opa_builtin0")
	envBuilder.NewFunctionBuilder().WithFunc(in.builtinCall1).Export("opa_builtin1")
	envBuilder.NewFunctionBuilder().WithFunc(in.builtinCall2).Export("opa_builtin2")
	envBuilder.NewFunctionBuilder().WithFunc(in.builtinCall3).Export("opa_builtin3")
	envBuilder.NewFunctionBuilder().WithFunc(in.builtinCall4).Export("opa_builtin4")

	env, err := envBuilder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("vm: building env module: %w", err)
	}
	in.env = env

	guest, err := rt.Instantiate(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("vm: instantiating policy module: %w", err)
	}
	in.guest = guest

	mem := guest.Memory()
	if mem == nil {
		return nil, fmt.Errorf("vm: policy module does not export linear memory")
	}
	in.mem = mem
	in.heap = heap.New(memAdapter{mem}, allocAdapter{in})

	names, err := in.readBuiltinNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("vm: reading builtin table: %w", err)
	}
	in.dispatcher.SetBuiltinNames(names)

	entrypoints, err := in.readEntrypoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("vm: reading entrypoint table: %w", err)
	}
	in.entrypoints = entrypoints

	return in, nil
}

// Close releases the guest and env modules.
func (in *Instance) Close(ctx context.Context) error {
	if in.guest != nil {
		if err := in.guest.Close(ctx); err != nil {
			return err
		}
	}
	if in.env != nil {
		return in.env.Close(ctx)
	}
	return nil
}

// Entrypoints returns the entrypoint name -> id table the module reported.
func (in *Instance) Entrypoints() map[string]int32 {
	return in.entrypoints
}

// SetBuiltinContext installs the per-evaluation builtin.Context used by
// subsequent builtin dispatch calls until the next call to this method.
func (in *Instance) SetBuiltinContext(bctx *builtin.Context) {
	in.bctx = bctx
}

func (in *Instance) opaAbort(_ context.Context, _ api.Module, addr uint32) {
	msg, err := in.heap.Read(heap.Address(addr))
	if err != nil {
		panic(abortError{message: fmt.Sprintf("<unreadable abort message: %s>", err)})
	}
	panic(abortError{message: string(msg)})
}

func (in *Instance) opaPrintln(_ context.Context, _ api.Module, addr uint32) {
	msg, err := in.heap.Read(heap.Address(addr))
	if err != nil {
		return
	}
	fmt.Println(string(msg))
}

func (in *Instance) builtinCall0(ctx context.Context, _ api.Module, id int32, ctxAddr int32) int32 {
	return in.call(ctx, id, nil)
}

func (in *Instance) builtinCall1(ctx context.Context, _ api.Module, id int32, ctxAddr, a0 int32) int32 {
	return in.call(ctx, id, []int32{a0})
}

func (in *Instance) builtinCall2(ctx context.Context, _ api.Module, id int32, ctxAddr, a0, a1 int32) int32 {
	return in.call(ctx, id, []int32{a0, a1})
}

func (in *Instance) builtinCall3(ctx context.Context, _ api.Module, id int32, ctxAddr, a0, a1, a2 int32) int32 {
	return in.call(ctx, id, []int32{a0, a1, a2})
}

func (in *Instance) builtinCall4(ctx context.Context, _ api.Module, id int32, ctxAddr, a0, a1, a2, a3 int32) int32 {
	return in.call(ctx, id, []int32{a0, a1, a2, a3})
}

// call bridges into the Dispatcher. A host-side protocol error (not a
// policy-data error) aborts evaluation by panicking with abortError, which
// Eval recovers and turns into a returned error.
func (in *Instance) call(ctx context.Context, id int32, argAddrs []int32) int32 {
	addr, err := in.dispatcher.Call(ctx, in, in.bctx, id, argAddrs)
	if err != nil {
		panic(abortError{message: err.Error()})
	}
	return addr
}

// ReadValue implements dispatch.HeapBridge: it dumps the guest value at addr
// to JSON text via the guest's own opa_json_dump export, then decodes that
// text through the host's wire codec.
func (in *Instance) ReadValue(ctx context.Context, addr int32) (value.Value, error) {
	dumped, err := in.callI32I32(ctx, "opa_json_dump", addr)
	if err != nil {
		return value.Value{}, err
	}
	text, err := in.heap.Read(heap.Address(dumped))
	if err != nil {
		return value.Value{}, err
	}
	return value.Decode(text)
}

// WriteValue implements dispatch.HeapBridge: it encodes v to the host's
// canonical wire text, writes it into guest memory, and asks the guest to
// parse it into its own internal value representation via opa_json_parse.
func (in *Instance) WriteValue(ctx context.Context, v value.Value) (int32, error) {
	text, err := value.Encode(v)
	if err != nil {
		return 0, fmt.Errorf("vm: encoding value: %w", err)
	}
	addr, err := in.heap.WriteBytes(ctx, []byte(text))
	if err != nil {
		return 0, err
	}
	scoped := in.heap.Own(addr)
	defer scoped.Release(ctx)
	return in.callI32I32I32(ctx, "opa_json_parse", int32(addr), int32(len(text)))
}

func (in *Instance) callI32I32(ctx context.Context, name string, a int32) (int32, error) {
	fn := in.guest.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("vm: policy module does not export %s", name)
	}
	res, err := fn.Call(ctx, uint64(uint32(a)))
	if err != nil {
		return 0, err
	}
	return int32(res[0]), nil
}

func (in *Instance) callI32I32I32(ctx context.Context, name string, a, b int32) (int32, error) {
	fn := in.guest.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("vm: policy module does not export %s", name)
	}
	res, err := fn.Call(ctx, uint64(uint32(a)), uint64(uint32(b)))
	if err != nil {
		return 0, err
	}
	return int32(res[0]), nil
}

// readBuiltinNames calls the guest's opa_builtins export, which returns an
// address to a value-encoded object mapping built-in name -> numeric id, and
// inverts it into an id -> name table for the Dispatcher.
func (in *Instance) readBuiltinNames(ctx context.Context) (map[int32]string, error) {
	fn := in.guest.ExportedFunction("opa_builtins")
	if fn == nil {
		return map[int32]string{}, nil
	}
	res, err := fn.Call(ctx)
	if err != nil {
		return nil, err
	}
	addr := int32(res[0])
	text, err := in.heap.Read(heap.Address(addr))
	if err != nil {
		return nil, err
	}
	v, err := value.Decode(text)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]string)
	for _, k := range v.Keys() {
		idv, _ := v.Get(k)
		n, ok := idv.BigInt()
		if !ok {
			return nil, fmt.Errorf("vm: builtin %q has non-integer id", k)
		}
		out[int32(n.Int64())] = k
	}
	return out, nil
}

func (in *Instance) readEntrypoints(ctx context.Context) (map[string]int32, error) {
	fn := in.guest.ExportedFunction("opa_entrypoints")
	if fn == nil {
		return map[string]int32{}, nil
	}
	res, err := fn.Call(ctx)
	if err != nil {
		return nil, err
	}
	addr := int32(res[0])
	text, err := in.heap.Read(heap.Address(addr))
	if err != nil {
		return nil, err
	}
	v, err := value.Decode(text)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int32)
	for _, k := range v.Keys() {
		idv, _ := v.Get(k)
		n, ok := idv.BigInt()
		if !ok {
			return nil, fmt.Errorf("vm: entrypoint %q has non-integer id", k)
		}
		out[k] = int32(n.Int64())
	}
	return out, nil
}

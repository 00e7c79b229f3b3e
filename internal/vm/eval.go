package vm

import (
	"context"
	"fmt"
	"strings"

	"github.com/polywasm/policyhost/internal/value"
)

// dataState tracks the guest-memory base heap pointer: the boundary between
// the policy module's static data segment (compile-time constants plus
// whatever bytes SetData wrote) and everything allocated during a single
// evaluation, which is discarded by resetting the heap pointer back to this
// value.
type dataState struct {
	baseHeapPtr int32
	dataAddr    int32
}

// SetData loads data into the module's base heap region, ahead of any
// evaluation, establishing the heap pointer evaluations reset back to.
func (in *Instance) SetData(ctx context.Context, data value.Value) error {
	addr, err := in.WriteValue(ctx, data)
	if err != nil {
		return fmt.Errorf("vm: writing data: %w", err)
	}
	ptr, err := in.heapPtrGet(ctx)
	if err != nil {
		return err
	}
	in.data = dataState{baseHeapPtr: ptr, dataAddr: addr}
	return nil
}

// Eval runs entrypointID once against input (which may be the zero Value to
// mean "no input"), stepping through the eval_ctx_* ABI in order: new
// context, optional data, optional input, entrypoint selection, eval,
// result retrieval. The heap pointer is reset to the post-SetData baseline
// before every call so each evaluation starts from the same clean slate,
// leaving the instance ready for another call once this one completes.
func (in *Instance) Eval(ctx context.Context, entrypointID int32, input *value.Value) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ab, ok := r.(abortError); ok {
				err = fmt.Errorf("vm: %w", ab)
				return
			}
			panic(r)
		}
	}()

	if in.data.baseHeapPtr != 0 {
		if err := in.heapPtrSet(ctx, in.data.baseHeapPtr); err != nil {
			return value.Value{}, err
		}
	}

	evalCtxAddr, err := in.callNoArgs(ctx, "opa_eval_ctx_new")
	if err != nil {
		return value.Value{}, err
	}

	if in.data.dataAddr != 0 {
		if err := in.callSetter(ctx, "opa_eval_ctx_set_data", evalCtxAddr, in.data.dataAddr); err != nil {
			return value.Value{}, err
		}
	}

	if input != nil {
		inputAddr, err := in.WriteValue(ctx, *input)
		if err != nil {
			return value.Value{}, err
		}
		if err := in.callSetter(ctx, "opa_eval_ctx_set_input", evalCtxAddr, inputAddr); err != nil {
			return value.Value{}, err
		}
	}

	if err := in.callSetter(ctx, "opa_eval_ctx_set_entrypoint", evalCtxAddr, entrypointID); err != nil {
		return value.Value{}, err
	}

	evalFn := in.guest.ExportedFunction("eval")
	if evalFn == nil {
		return value.Value{}, fmt.Errorf("vm: policy module does not export eval")
	}
	if _, err := evalFn.Call(ctx, uint64(uint32(evalCtxAddr))); err != nil {
		return value.Value{}, err
	}

	resultAddr, err := in.callI32I32(ctx, "opa_eval_ctx_get_result", evalCtxAddr)
	if err != nil {
		return value.Value{}, err
	}
	return in.ReadValue(ctx, resultAddr)
}

// SetDataPath patches a single path within the loaded data document without
// a full SetData round trip. The heap pointer is saved and restored around
// the patch so the write lands in the base data region rather than being
// reclaimed by the next evaluation's heap reset.
func (in *Instance) SetDataPath(ctx context.Context, path []string, v value.Value) error {
	savedPtr, err := in.heapPtrGet(ctx)
	if err != nil {
		return err
	}
	if in.data.baseHeapPtr != 0 {
		if err := in.heapPtrSet(ctx, in.data.baseHeapPtr); err != nil {
			return err
		}
	}

	pathAddr, err := in.WriteValue(ctx, pathValue(path))
	if err != nil {
		return err
	}
	valueAddr, err := in.WriteValue(ctx, v)
	if err != nil {
		return err
	}
	fn := in.guest.ExportedFunction("opa_value_add_path")
	if fn == nil {
		return fmt.Errorf("vm: policy module does not export opa_value_add_path")
	}
	if in.data.dataAddr == 0 {
		return fmt.Errorf("vm: SetDataPath called before SetData")
	}
	res, err := fn.Call(ctx, uint64(uint32(in.data.dataAddr)), uint64(uint32(pathAddr)), uint64(uint32(valueAddr)))
	if err != nil {
		return err
	}
	if res[0] != 0 {
		return fmt.Errorf("vm: opa_value_add_path failed on path %s", strings.Join(path, "/"))
	}

	newPtr, err := in.heapPtrGet(ctx)
	if err != nil {
		return err
	}
	in.data.baseHeapPtr = newPtr
	return in.heapPtrSet(ctx, maxInt32(savedPtr, newPtr))
}

// RemoveDataPath deletes a single path within the loaded data document.
func (in *Instance) RemoveDataPath(ctx context.Context, path []string) error {
	if in.data.dataAddr == 0 {
		return fmt.Errorf("vm: RemoveDataPath called before SetData")
	}
	pathAddr, err := in.WriteValue(ctx, pathValue(path))
	if err != nil {
		return err
	}
	fn := in.guest.ExportedFunction("opa_value_remove_path")
	if fn == nil {
		return fmt.Errorf("vm: policy module does not export opa_value_remove_path")
	}
	_, err = fn.Call(ctx, uint64(uint32(in.data.dataAddr)), uint64(uint32(pathAddr)))
	return err
}

func pathValue(path []string) value.Value {
	items := make([]value.Value, len(path))
	for i, p := range path {
		items[i] = value.String(p)
	}
	return value.Array(items...)
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func (in *Instance) heapPtrGet(ctx context.Context) (int32, error) {
	fn := in.guest.ExportedFunction("opa_heap_ptr_get")
	if fn == nil {
		return 0, nil
	}
	res, err := fn.Call(ctx)
	if err != nil {
		return 0, err
	}
	return int32(res[0]), nil
}

func (in *Instance) heapPtrSet(ctx context.Context, ptr int32) error {
	fn := in.guest.ExportedFunction("opa_heap_ptr_set")
	if fn == nil {
		return nil
	}
	_, err := fn.Call(ctx, uint64(uint32(ptr)))
	return err
}

func (in *Instance) callNoArgs(ctx context.Context, name string) (int32, error) {
	fn := in.guest.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("vm: policy module does not export %s", name)
	}
	res, err := fn.Call(ctx)
	if err != nil {
		return 0, err
	}
	return int32(res[0]), nil
}

func (in *Instance) callSetter(ctx context.Context, name string, evalCtxAddr, arg int32) error {
	fn := in.guest.ExportedFunction(name)
	if fn == nil {
		return fmt.Errorf("vm: policy module does not export %s", name)
	}
	_, err := fn.Call(ctx, uint64(uint32(evalCtxAddr)), uint64(uint32(arg)))
	return err
}

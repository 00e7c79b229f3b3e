package builtin

import (
	"github.com/polywasm/policyhost/internal/value"
)

// stringArg extracts the idx'th argument (0-based) as a string, or a
// TypeError named after the calling built-in.
func stringArg(name string, args []value.Value, idx int) (string, error) {
	if args[idx].Kind() != value.KindString {
		return "", typeErrorf(name, "operand %d must be a string, got %s", idx+1, args[idx].Kind())
	}
	return args[idx].Str(), nil
}

func boolArg(name string, args []value.Value, idx int) (bool, error) {
	if args[idx].Kind() != value.KindBool {
		return false, typeErrorf(name, "operand %d must be a boolean, got %s", idx+1, args[idx].Kind())
	}
	return args[idx].Bool(), nil
}

func numberArg(name string, args []value.Value, idx int) (value.Value, error) {
	if args[idx].Kind() != value.KindNumber {
		return value.Value{}, typeErrorf(name, "operand %d must be a number, got %s", idx+1, args[idx].Kind())
	}
	return args[idx], nil
}

func intArg(name string, args []value.Value, idx int) (int64, error) {
	v, err := numberArg(name, args, idx)
	if err != nil {
		return 0, err
	}
	bi, ok := v.BigInt()
	if !ok {
		return 0, typeErrorf(name, "operand %d must be an integer", idx+1)
	}
	return bi.Int64(), nil
}

func arrayArg(name string, args []value.Value, idx int) ([]value.Value, error) {
	switch args[idx].Kind() {
	case value.KindArray, value.KindSet:
		return args[idx].Items(), nil
	}
	return nil, typeErrorf(name, "operand %d must be an array or set, got %s", idx+1, args[idx].Kind())
}

func objectArg(name string, args []value.Value, idx int) (value.Value, error) {
	if args[idx].Kind() != value.KindObject {
		return value.Value{}, typeErrorf(name, "operand %d must be an object, got %s", idx+1, args[idx].Kind())
	}
	return args[idx], nil
}

func setArg(name string, args []value.Value, idx int) ([]value.Value, error) {
	if args[idx].Kind() != value.KindSet {
		return nil, typeErrorf(name, "operand %d must be a set, got %s", idx+1, args[idx].Kind())
	}
	return args[idx].Items(), nil
}

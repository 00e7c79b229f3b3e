package builtin

import (
	"math/big"

	"github.com/polywasm/policyhost/internal/value"
)

// AggregatesGroup registers the collection-aggregate built-ins, grounded on
// topdown/aggregates.go.
func AggregatesGroup(r *Registry) {
	r.Register("count", 1, builtinCount)
	r.Register("sum", 1, builtinSum)
	r.Register("product", 1, builtinProduct)
	r.Register("max", 1, builtinMax)
	r.Register("min", 1, builtinMin)
	r.Register("sort", 1, builtinSort)
	r.Register("all", 1, builtinAll)
	r.Register("any", 1, builtinAny)
}

func builtinCount(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind() {
	case value.KindArray, value.KindSet:
		return value.Int(int64(args[0].Len())), nil
	case value.KindObject:
		return value.Int(int64(args[0].Len())), nil
	case value.KindString:
		return value.Int(int64(len([]rune(args[0].Str())))), nil
	}
	return value.Value{}, typeErrorf("count", "operand 1 must be a collection or string, got %s", args[0].Kind())
}

func builtinSum(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("sum", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	total := new(big.Float).SetPrec(200)
	for i, it := range items {
		if it.Kind() != value.KindNumber {
			return value.Value{}, typeErrorf("sum", "element %d must be a number", i)
		}
		f, ok := it.BigFloat()
		if !ok {
			return value.Value{}, typeErrorf("sum", "element %d is not a valid number", i)
		}
		total.Add(total, f)
	}
	return value.MustNumber(total.Text('f', -1)), nil
}

func builtinProduct(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("product", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	total := new(big.Float).SetPrec(200).SetInt64(1)
	for i, it := range items {
		if it.Kind() != value.KindNumber {
			return value.Value{}, typeErrorf("product", "element %d must be a number", i)
		}
		f, ok := it.BigFloat()
		if !ok {
			return value.Value{}, typeErrorf("product", "element %d is not a valid number", i)
		}
		total.Mul(total, f)
	}
	return value.MustNumber(total.Text('f', -1)), nil
}

func builtinMax(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("max", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if len(items) == 0 {
		return value.Value{}, domainErrorf("max", "empty collection")
	}
	best := items[0]
	for _, it := range items[1:] {
		if value.Compare(it, best) > 0 {
			best = it
		}
	}
	return best, nil
}

func builtinMin(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("min", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if len(items) == 0 {
		return value.Value{}, domainErrorf("min", "empty collection")
	}
	best := items[0]
	for _, it := range items[1:] {
		if value.Compare(it, best) < 0 {
			best = it
		}
	}
	return best, nil
}

func builtinSort(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("sort", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, len(items))
	copy(out, items)
	insertionSortValues(out)
	return value.Array(out...), nil
}

func insertionSortValues(items []value.Value) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && value.Compare(items[j-1], items[j]) > 0; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
}

func builtinAll(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("all", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	for i, it := range items {
		if it.Kind() != value.KindBool {
			return value.Value{}, typeErrorf("all", "element %d must be a boolean", i)
		}
		if !it.Bool() {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func builtinAny(_ *Context, args []value.Value) (value.Value, error) {
	items, err := arrayArg("any", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	for i, it := range items {
		if it.Kind() != value.KindBool {
			return value.Value{}, typeErrorf("any", "element %d must be a boolean", i)
		}
		if it.Bool() {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

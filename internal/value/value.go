// Package value implements the boundary value domain exchanged between the
// host and the module: null, boolean, number, string, sequence, mapping and
// set, plus the canonical JSON-like wire encoding used to cross the guest's
// linear memory.
package value

import (
	"fmt"
	"math"
	"math/big"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind int

// The value kinds that make up the boundary domain.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindSet:
		return "set"
	}
	return "unknown"
}

// entry is a single key/value pair inside an Object, in insertion order.
type entry struct {
	Key string
	Val Value
}

// Value is the universal boundary value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	num  string // decimal text, exact source form
	str  string
	arr  []Value
	obj  []entry
	set  []Value // kept de-duplicated and in canonical order
}

// Null is the singleton null value.
func Null() Value { return Value{kind: KindNull} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int constructs a number value from an int64.
func Int(i int64) Value { return Value{kind: KindNumber, num: big.NewInt(i).String()} }

// Number constructs a number value from its decimal text form. The text is
// kept verbatim so integers up to 128 bits and beyond round-trip exactly.
func Number(text string) (Value, error) {
	if _, ok := new(big.Float).SetPrec(200).SetString(text); !ok {
		return Value{}, fmt.Errorf("value: %q is not a valid number", text)
	}
	return Value{kind: KindNumber, num: text}, nil
}

// MustNumber is Number but panics on a malformed literal; for use with
// compile-time-constant text.
func MustNumber(text string) Value {
	v, err := Number(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Float constructs a number value from a float64. NaN/Inf are rejected by
// Encode, not here, so that intermediate computation can still use them.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Value{kind: KindNumber, num: "NaN"}
	}
	return Value{kind: KindNumber, num: new(big.Float).SetPrec(200).SetFloat64(f).Text('f', -1)}
}

// Array constructs a sequence value from the given elements, in order.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// NewObject constructs an empty mapping.
func NewObject() Value { return Value{kind: KindObject, obj: []entry{}} }

// Set sets key to val in place, preserving first-insertion order and
// overwriting the value of an existing key without moving it.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		panic("value: Set called on a non-object Value")
	}
	for i := range v.obj {
		if v.obj[i].Key == key {
			v.obj[i].Val = val
			return
		}
	}
	v.obj = append(v.obj, entry{Key: key, Val: val})
}

// Get looks up key in a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, e := range v.obj {
		if e.Key == key {
			return e.Val, true
		}
	}
	return Value{}, false
}

// Keys returns the mapping's keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	out := make([]string, len(v.obj))
	for i, e := range v.obj {
		out[i] = e.Key
	}
	return out
}

// Len returns the number of entries in an array, object or set.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	case KindSet:
		return len(v.set)
	case KindString:
		return len(v.str)
	}
	return 0
}

// NewSet builds a set from items, de-duplicating by structural equality and
// storing them in canonical order.
func NewSet(items ...Value) Value {
	s := Value{kind: KindSet}
	for _, it := range items {
		s.addToSet(it)
	}
	return s
}

func (v *Value) addToSet(it Value) {
	for _, existing := range v.set {
		if Equal(existing, it) {
			return
		}
	}
	v.set = append(v.set, it)
	sort.Slice(v.set, func(i, j int) bool { return Compare(v.set[i], v.set[j]) < 0 })
}

// Kind reports the Value's variant.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload; only meaningful when Kind() == KindBool.
func (v Value) Bool() bool { return v.b }

// Str returns the string payload; only meaningful when Kind() == KindString.
func (v Value) Str() string { return v.str }

// Num returns the decimal text payload; only meaningful when Kind() ==
// KindNumber.
func (v Value) Num() string { return v.num }

// Items returns the elements of an array or set, in iteration order.
func (v Value) Items() []Value {
	switch v.kind {
	case KindArray:
		return v.arr
	case KindSet:
		return v.set
	}
	return nil
}

// Entries returns the key/value pairs of an object, in insertion order.
func (v Value) Entries() []struct {
	Key string
	Val Value
} {
	out := make([]struct {
		Key string
		Val Value
	}, len(v.obj))
	for i, e := range v.obj {
		out[i] = struct {
			Key string
			Val Value
		}{e.Key, e.Val}
	}
	return out
}

// BigFloat parses the number's decimal text into an arbitrary-precision
// float, for handlers that need exact arithmetic.
func (v Value) BigFloat() (*big.Float, bool) {
	if v.kind != KindNumber {
		return nil, false
	}
	f, ok := new(big.Float).SetPrec(200).SetString(v.num)
	return f, ok
}

// BigInt parses the number's decimal text into an arbitrary-precision
// integer; ok is false if the number has a fractional part.
func (v Value) BigInt() (*big.Int, bool) {
	if v.kind != KindNumber {
		return nil, false
	}
	f, ok := new(big.Float).SetPrec(200).SetString(v.num)
	if !ok {
		return nil, false
	}
	i, acc := f.Int(nil)
	return i, acc == big.Exact
}

// Float64 returns the IEEE-754 double approximation of a number.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, ok := new(big.Float).SetPrec(200).SetString(v.num)
	if !ok {
		return 0, false
	}
	out, _ := f.Float64()
	return out, true
}

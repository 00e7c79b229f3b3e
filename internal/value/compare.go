package value

import "math/big"

// kindRank orders the kinds for the canonical total order: null < false <
// true < numbers < strings < arrays < objects < sets.
func kindRank(v Value) int {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 2
		}
		return 1
	case KindNumber:
		return 3
	case KindString:
		return 4
	case KindArray:
		return 5
	case KindObject:
		return 6
	case KindSet:
		return 7
	}
	return 8
}

// Compare implements the canonical total order over the value domain. It is
// used both to sort sets for wire emission and to back the sort() builtin.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		// Booleans both rank amongst 1/2 but are still ordered false<true,
		// which the ranks above already encode; for every other kind a
		// differing rank is enough.
		if a.kind == KindBool && b.kind == KindBool {
			return ra - rb
		}
		if ra < rb {
			return -1
		}
		return 1
	}

	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		return ra - rb
	case KindNumber:
		return compareNumbers(a.num, b.num)
	case KindString:
		if a.str < b.str {
			return -1
		} else if a.str > b.str {
			return 1
		}
		return 0
	case KindArray:
		return compareSeq(a.arr, b.arr)
	case KindObject:
		return compareObject(a, b)
	case KindSet:
		return compareSeq(a.set, b.set)
	}
	return 0
}

func compareNumbers(a, b string) int {
	fa, _ := new(big.Float).SetPrec(200).SetString(a)
	fb, _ := new(big.Float).SetPrec(200).SetString(b)
	if fa == nil || fb == nil {
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	}
	return fa.Cmp(fb)
}

func compareSeq(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// compareObject orders mappings by their sorted-key sequence, then by the
// corresponding values, per the canonical total order (spec: "mappings by
// sorted-key sequences").
func compareObject(a, b Value) int {
	ak := sortedKeys(a)
	bk := sortedKeys(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if ak[i] < bk[i] {
			return -1
		} else if ak[i] > bk[i] {
			return 1
		}
		av, _ := a.Get(ak[i])
		bv, _ := b.Get(bk[i])
		if c := Compare(av, bv); c != 0 {
			return c
		}
	}
	return len(ak) - len(bk)
}

func sortedKeys(v Value) []string {
	keys := v.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	// insertion sort is fine; objects used as set/object keys are small in
	// practice and this avoids importing sort twice for a handful of calls.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Equal reports whether a and b are structurally equal, per the kind- and
// value-sensitive equality relation in the data model.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return compareNumbers(a.num, b.num) == 0
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindSet:
		if len(a.set) != len(b.set) {
			return false
		}
		for i := range a.set {
			if !Equal(a.set[i], b.set[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for _, e := range a.obj {
			bv, ok := b.Get(e.Key)
			if !ok || !Equal(e.Val, bv) {
				return false
			}
		}
		return true
	}
	return false
}

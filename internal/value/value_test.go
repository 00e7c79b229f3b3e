package value

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		`null`,
		`true`,
		`false`,
		`0`,
		`-17`,
		`170141183460469231731687303715884105727`,
		`3.5`,
		`"hello \"world\""`,
		`[1,2,3]`,
		`{"a":1,"b":2}`,
	}
	for _, c := range cases {
		v, err := Decode([]byte(c))
		if err != nil {
			t.Fatalf("decode(%s): %v", c, err)
		}
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("encode(%s): %v", c, err)
		}
		v2, err := Decode([]byte(enc))
		if err != nil {
			t.Fatalf("re-decode(%s): %v", enc, err)
		}
		if !Equal(v, v2) {
			t.Errorf("round-trip mismatch for %s: got %s", c, enc)
		}
	}
}

func TestObjectInsertionOrderPreserved(t *testing.T) {
	v, err := Decode([]byte(`{"z":1,"a":2,"m":3}`))
	if err != nil {
		t.Fatal(err)
	}
	got := v.Keys()
	want := []string{"z", "a", "m"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestObjectDuplicateKeyFirstWins(t *testing.T) {
	v, err := Decode([]byte(`{"a":1,"a":2}`))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := v.Get("a")
	want := MustNumber("1")
	if !Equal(got, want) {
		t.Fatalf("got %v, want first occurrence 1", got)
	}
}

func TestSetCanonicalOrderAndDedup(t *testing.T) {
	s := NewSet(Int(3), Int(1), Int(2), Int(1))
	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 deduped items, got %d", len(items))
	}
	for i := 0; i < len(items)-1; i++ {
		if Compare(items[i], items[i+1]) >= 0 {
			t.Fatalf("set items not in canonical order: %v", items)
		}
	}
}

func TestCompareTotalOrder(t *testing.T) {
	ordered := []Value{
		Null(),
		Bool(false),
		Bool(true),
		Int(1),
		String("x"),
		Array(Int(1)),
		NewObject(),
		NewSet(),
	}
	for i := 0; i < len(ordered)-1; i++ {
		if Compare(ordered[i], ordered[i+1]) >= 0 {
			t.Fatalf("expected ordered[%d] < ordered[%d]", i, i+1)
		}
	}
}

func TestEqualStructural(t *testing.T) {
	a, _ := Decode([]byte(`{"a":[1,2],"b":true}`))
	b, _ := Decode([]byte(`{"a":[1,2],"b":true}`))
	if !Equal(a, b) {
		t.Fatal("expected structurally equal values to compare equal")
	}
}

package ctype

import "testing"

func TestEqual_Primitives(t *testing.T) {
	if !String().Equal(String()) {
		t.Fatal("expected String to equal String")
	}
	if String().Equal(Int()) {
		t.Fatal("expected String to not equal Int")
	}
}

func TestEqual_ListIsStructural(t *testing.T) {
	a := List(Int())
	b := List(Int())
	c := List(String())
	if !a.Equal(b) {
		t.Fatal("expected List(Int) to equal List(Int)")
	}
	if a.Equal(c) {
		t.Fatal("expected List(Int) to not equal List(String)")
	}
}

func TestEqual_ProductIgnoresFieldOrder(t *testing.T) {
	a := Product(map[string]CType{"x": Int(), "y": String()})
	b := Product(map[string]CType{"y": String(), "x": Int()})
	if !a.Equal(b) {
		t.Fatal("expected structurally-equal products with different construction order to be equal")
	}
}

func TestSortedFieldNames_Ascending(t *testing.T) {
	p := Product(map[string]CType{"zebra": Int(), "apple": Int(), "mango": Int()})
	names := ProductFieldNames(p)
	want := []string{"apple", "mango", "zebra"}
	for i, n := range names {
		if n != want[i] {
			t.Fatalf("expected sorted field names %v, got %v", want, names)
		}
	}
}

func TestEqual_Union(t *testing.T) {
	a := Union(map[string]CType{"a": Int(), "b": String()})
	b := Union(map[string]CType{"b": String(), "a": Int()})
	if !a.Equal(b) {
		t.Fatal("expected unions with same variants to be equal regardless of map order")
	}
}

func TestEqual_Optional(t *testing.T) {
	if !Optional(Int()).Equal(Optional(Int())) {
		t.Fatal("expected Optional(Int) to equal Optional(Int)")
	}
	if Optional(Int()).Equal(Optional(String())) {
		t.Fatal("expected Optional(Int) to not equal Optional(String)")
	}
}

func TestRoundTrip_Codec(t *testing.T) {
	original := Product(map[string]CType{
		"items": List(Int()),
		"meta":  Map(String(), Boolean()),
		"tag":   Optional(Union(map[string]CType{"a": Int(), "b": String()})),
	})
	encoded := Encode(original)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !original.Equal(decoded) {
		t.Fatalf("expected round-tripped type to equal original: %s vs %s", original, decoded)
	}
}

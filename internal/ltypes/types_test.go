package ltypes

import "testing"

func TestStructFieldSorting(t *testing.T) {
	st, err := NewStruct([]Field{
		{Name: "d", Type: Leaf(Float)},
		{Name: "b", Type: Leaf(Float)},
		{Name: "c", Type: Leaf(Float)},
		{Name: "a", Type: Leaf(Float)},
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	for i, f := range st.Fields {
		if f.Name != want[i] {
			t.Fatalf("field %d = %q, want %q", i, f.Name, want[i])
		}
	}
}

func TestStructRejectsDuplicateField(t *testing.T) {
	_, err := NewStruct([]Field{
		{Name: "a", Type: Leaf(Float)},
		{Name: "a", Type: Leaf(Int32)},
	})
	if err == nil {
		t.Fatal("expected error for duplicate field")
	}
}

func TestArrayLengthBounds(t *testing.T) {
	if _, err := NewArray(0, Leaf(Float)); err == nil {
		t.Fatal("expected error for zero-length array")
	}
	if _, err := NewArray(256, Leaf(Float)); err == nil {
		t.Fatal("expected error for length > 255")
	}
	arr, err := NewArray(3, Leaf(Float))
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	if arr.ArrayLen != 3 {
		t.Fatalf("ArrayLen = %d, want 3", arr.ArrayLen)
	}
}

func TestArrayOfArrayRejected(t *testing.T) {
	inner, _ := NewArray(2, Leaf(Float))
	if _, err := NewArray(2, inner); err == nil {
		t.Fatal("expected error for array of array")
	}
}

func TestValueEqual(t *testing.T) {
	if !FloatValue(1.5).Equal(FloatValue(1.5)) {
		t.Fatal("expected equal floats to compare equal")
	}
	if FloatValue(1.5).Equal(FloatValue(1.6)) {
		t.Fatal("expected different floats to compare unequal")
	}
	if !Vec3fValue(1, 2, 3).Equal(Vec3fValue(1, 2, 3)) {
		t.Fatal("expected equal vectors to compare equal")
	}
	if Vec3fValue(1, 2, 3).Equal(Vec3fValue(1, 2, 4)) {
		t.Fatal("expected different vectors to compare unequal")
	}
	if FloatValue(1).Equal(Int32Value(1)) {
		t.Fatal("expected different types to compare unequal")
	}
}

func TestDoubleToInt32Rounding(t *testing.T) {
	if _, ok := DoubleToInt32(3.5); ok {
		t.Fatal("expected 3.5 to be rejected as non-integral")
	}
	v, ok := DoubleToInt32(3.0)
	if !ok || v != 3 {
		t.Fatalf("DoubleToInt32(3.0) = %d,%v want 3,true", v, ok)
	}
	if _, ok := DoubleToInt32(1e18); ok {
		t.Fatal("expected out-of-range value to be rejected")
	}
}

func TestDoubleToIndexRejectsNegative(t *testing.T) {
	if _, ok := DoubleToIndex(-1); ok {
		t.Fatal("expected negative index to be rejected")
	}
	v, ok := DoubleToIndex(0)
	if !ok || v != 0 {
		t.Fatalf("DoubleToIndex(0) = %d,%v want 0,true", v, ok)
	}
}

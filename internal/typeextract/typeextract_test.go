package typeextract

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/ltypes"
)

func newState(t *testing.T) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	return L
}

func TestExtractPrimitiveFields(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	RegisterTypes(L, L.Globals)

	if err := root.NewIndex(L, "speed", L.GetGlobal("FLOAT")); err != nil {
		t.Fatalf("declaring speed: %v", err)
	}
	if err := root.NewIndex(L, "enabled", L.GetGlobal("BOOL")); err != nil {
		t.Fatalf("declaring enabled: %v", err)
	}

	schema, err := root.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if schema.Kind != ltypes.Struct || len(schema.Fields) != 2 {
		t.Fatalf("unexpected schema: %+v", schema)
	}
	if schema.Fields[0].Name != "enabled" || schema.Fields[1].Name != "speed" {
		t.Fatalf("fields not sorted lexicographically: %+v", schema.Fields)
	}
}

func TestDuplicateFieldRejected(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	RegisterTypes(L, L.Globals)

	if err := root.NewIndex(L, "x", L.GetGlobal("FLOAT")); err != nil {
		t.Fatalf("first declaration: %v", err)
	}
	if err := root.NewIndex(L, "x", L.GetGlobal("INT")); err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestNestedStruct(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	RegisterTypes(L, L.Globals)

	nested := L.NewTable()
	nested.RawSetString("x", L.GetGlobal("FLOAT"))
	nested.RawSetString("y", L.GetGlobal("FLOAT"))

	if err := root.NewIndex(L, "position", nested); err != nil {
		t.Fatalf("declaring nested struct: %v", err)
	}

	schema, err := root.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if schema.Fields[0].Type.Kind != ltypes.Struct || len(schema.Fields[0].Type.Fields) != 2 {
		t.Fatalf("unexpected nested schema: %+v", schema.Fields[0].Type)
	}
}

func TestArrayDeclaration(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	RegisterTypes(L, L.Globals)

	L.Push(L.GetGlobal("ARRAY"))
	L.Push(lua.LNumber(3))
	L.Push(L.GetGlobal("FLOAT"))
	if err := L.PCall(2, 1, nil); err != nil {
		t.Fatalf("ARRAY(3, FLOAT) call: %v", err)
	}
	arrayVal := L.Get(-1)
	L.Pop(1)

	if err := root.NewIndex(L, "values", arrayVal); err != nil {
		t.Fatalf("declaring array field: %v", err)
	}

	schema, err := root.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	arr := schema.Fields[0].Type
	if arr.Kind != ltypes.Array || arr.ArrayLen != 3 || arr.ArrayElement.Kind != ltypes.Float {
		t.Fatalf("unexpected array schema: %+v", arr)
	}
}

func TestArrayOfArrayRejectedAtExtraction(t *testing.T) {
	L := newState(t)
	RegisterTypes(L, L.Globals)

	mkArray := func(size int, elem lua.LValue) lua.LValue {
		L.Push(L.GetGlobal("ARRAY"))
		L.Push(lua.LNumber(size))
		L.Push(elem)
		if err := L.PCall(2, 1, nil); err != nil {
			t.Fatalf("ARRAY call: %v", err)
		}
		v := L.Get(-1)
		L.Pop(1)
		return v
	}

	inner := mkArray(2, L.GetGlobal("FLOAT"))
	root := NewRoot("IN")
	// inner is itself an arrayTypeInfo userdata, not a valid element-type
	// argument (number or table), so ARRAY(n, inner) must fail at the
	// element-type stage rather than silently nesting.
	outer := mkArray(2, inner)
	if err := root.NewIndex(L, "bad", outer); err == nil {
		t.Fatal("expected array-of-array to be rejected")
	}
}

func TestAccessUndeclaredPropertyFails(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	if _, err := root.Index(L, "missing"); err == nil {
		t.Fatal("expected error reading an undeclared property")
	}
}

func TestIterationOverDeclaredFields(t *testing.T) {
	L := newState(t)
	root := NewRoot("IN")
	RegisterTypes(L, L.Globals)
	_ = root.NewIndex(L, "a", L.GetGlobal("FLOAT"))
	_ = root.NewIndex(L, "b", L.GetGlobal("INT"))

	if root.RLLen() != 2 {
		t.Fatalf("expected 2 children, got %d", root.RLLen())
	}
	k, _, err := root.RLNext(L, lua.LNil)
	if err != nil || k.String() != "a" {
		t.Fatalf("expected first key 'a', got %v, err %v", k, err)
	}
}

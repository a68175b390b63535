package propbridge

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

func buildTree(t *testing.T) (*proptree.Tree, proptree.PropertyRef, proptree.PropertyRef) {
	t.Helper()
	speed := ltypes.Leaf(ltypes.Float)
	enabled := ltypes.Leaf(ltypes.Bool)
	pos := ltypes.Leaf(ltypes.Vec3f)
	schema, err := ltypes.NewStruct([]ltypes.Field{
		{Name: "speed", Type: speed},
		{Name: "enabled", Type: enabled},
		{Name: "position", Type: pos},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	tree := proptree.NewTree(1, schema, proptree.RoleScriptInput, schema, proptree.RoleScriptOutput)
	in, _ := tree.Root(true)
	out, _ := tree.Root(false)
	return tree, in, out
}

func TestReadWriteLeafThroughBridge(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	tree, in, out := buildTree(t)

	speedRef, _ := tree.ChildByName(in, "speed")
	if err := tree.SetInternal(speedRef, ltypes.FloatValue(3.5)); err != nil {
		t.Fatalf("seed input: %v", err)
	}

	inUD := NewReadOnlyUserData(L, tree, in)
	outUD := NewUserData(L, tree, out)
	L.SetGlobal("IN", inUD)
	L.SetGlobal("OUT", outUD)

	if err := L.DoString(`OUT.speed = IN.speed * 2`); err != nil {
		t.Fatalf("script: %v", err)
	}
	outSpeed, _ := tree.ChildByName(out, "speed")
	v, _ := tree.GetAny(outSpeed)
	if v.F != 7.0 {
		t.Fatalf("expected OUT.speed=7.0, got %v", v.F)
	}
}

func TestWritingToInputIsRejected(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	tree, in, _ := buildTree(t)
	inUD := NewReadOnlyUserData(L, tree, in)
	L.SetGlobal("IN", inUD)

	err := L.DoString(`IN.speed = 5`)
	if err == nil {
		t.Fatal("expected write to IN to fail")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	tree, _, out := buildTree(t)
	outUD := NewUserData(L, tree, out)
	L.SetGlobal("OUT", outUD)

	if err := L.DoString(`OUT.position = {1, 2, 3}`); err != nil {
		t.Fatalf("script: %v", err)
	}
	posRef, _ := tree.ChildByName(out, "position")
	v, _ := tree.GetAny(posRef)
	if v.VF[0] != 1 || v.VF[1] != 2 || v.VF[2] != 3 {
		t.Fatalf("unexpected vector value: %+v", v)
	}

	if err := L.DoString(`local x = OUT.position[2]; assert(x == 2)`); err != nil {
		t.Fatalf("reading vector component: %v", err)
	}
}

func TestStructFieldTypeMismatchRejected(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	tree, _, out := buildTree(t)
	outUD := NewUserData(L, tree, out)
	L.SetGlobal("OUT", outUD)

	err := L.DoString(`OUT.speed = "not a number"`)
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	tree, _, out := buildTree(t)
	outUD := NewUserData(L, tree, out)
	L.SetGlobal("OUT", outUD)

	err := L.DoString(`OUT.nosuchfield = 1`)
	if err == nil {
		t.Fatal("expected unknown-field error")
	}
}

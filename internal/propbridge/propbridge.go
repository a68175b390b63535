// Package propbridge exposes a proptree.Tree property as a Lua value: the
// IN/OUT userdata a script's run() function reads and writes. It is
// grounded on original_source/lib/internals/LuaScriptPropertyHandler.h
// (Index/NewIndex proxy over a PropertyImpl) and
// original_source/lib/internals/LuaTypeConversions.cpp (numeric narrowing
// rules, reused here via internal/ltypes).
package propbridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// WrappedProperty is the Go value behind an IN/OUT Lua userdata: a tree plus
// the ref of the property it currently points at. ReadOnly marks the whole
// subtree as not assignable from Lua — true for IN (a script only ever
// reads its inputs) and for any composite reached while walking from a
// ReadOnly root; false for OUT. This is a script-sandbox policy, separate
// from and stricter than proptree's own Role-based externally-writable
// check, so writes that pass it go through Tree.SetInternal rather than
// Tree.Set (the role gate is for the engine façade, not the script itself).
type WrappedProperty struct {
	Tree     *proptree.Tree
	Ref      proptree.PropertyRef
	ReadOnly bool
}

// NewUserData wraps ref (in tree) as a writable Lua userdata (OUT-side) with
// index/newindex metamethods, and (for composite refs) rl_* iteration
// support. Use NewReadOnlyUserData for IN-side properties.
func NewUserData(L *lua.LState, tree *proptree.Tree, ref proptree.PropertyRef) *lua.LUserData {
	return newUserData(L, tree, ref, false)
}

// NewReadOnlyUserData wraps ref as a read-only handle (IN-side): writes
// through it, including to nested children, always fail.
func NewReadOnlyUserData(L *lua.LState, tree *proptree.Tree, ref proptree.PropertyRef) *lua.LUserData {
	return newUserData(L, tree, ref, true)
}

func newUserData(L *lua.LState, tree *proptree.Tree, ref proptree.PropertyRef, readOnly bool) *lua.LUserData {
	wp := &WrappedProperty{Tree: tree, Ref: ref, ReadOnly: readOnly}
	ud := L.NewUserData()
	ud.Value = wp
	L.SetMetatable(ud, bridgeMetatable(L))
	return ud
}

var sharedMetatable *lua.LTable

// bridgeMetatable lazily builds one shared metatable (index/newindex don't
// close over any per-instance state — they read the receiver from arg 1).
func bridgeMetatable(L *lua.LState) *lua.LTable {
	if sharedMetatable != nil {
		return sharedMetatable
	}
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(luaIndex))
	mt.RawSetString("__newindex", L.NewFunction(luaNewIndex))
	sharedMetatable = mt
	return mt
}

func selfOf(L *lua.LState, n int) *WrappedProperty {
	ud := L.CheckUserData(n)
	wp, ok := ud.Value.(*WrappedProperty)
	if !ok {
		L.RaiseError("not a property handle")
		return nil
	}
	return wp
}

func luaIndex(L *lua.LState) int {
	wp := selfOf(L, 1)
	key := L.CheckAny(2)
	v, err := wp.index(L, key)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(v)
	return 1
}

func luaNewIndex(L *lua.LState) int {
	wp := selfOf(L, 1)
	key := L.CheckAny(2)
	rhs := L.CheckAny(3)
	if err := wp.newIndex(L, key, rhs); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return 0
}

func (wp *WrappedProperty) schema() *ltypes.HierarchicalType {
	return wp.Tree.SchemaOf(wp.Ref)
}

// index implements property.field / property[i] reads: composite children
// are returned as nested userdata, leaves as converted Lua values, and
// vectors as fresh 1-based Lua tables.
func (wp *WrappedProperty) index(L *lua.LState, key lua.LValue) (lua.LValue, error) {
	schema := wp.schema()
	switch schema.Kind {
	case ltypes.Struct:
		name, ok := key.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("only strings supported as table key type for struct property '%s'!", wp.Tree.Name(wp.Ref))
		}
		child, found := wp.Tree.ChildByName(wp.Ref, string(name))
		if !found {
			return nil, fmt.Errorf("trying to access not available property '%s'!", string(name))
		}
		return wp.readChild(L, child)
	case ltypes.Array:
		idx, ok := key.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("only integers supported as index type for array property '%s'!", wp.Tree.Name(wp.Ref))
		}
		i, okIdx := ltypes.DoubleToIndex(float64(idx))
		n := wp.Tree.ChildCount(wp.Ref)
		if !okIdx || i < 1 || i > n {
			return nil, fmt.Errorf("index out of range (expected 1 to %d but received %v)", n, idx)
		}
		child, _ := wp.Tree.ChildByIndex(wp.Ref, i-1)
		return wp.readChild(L, child)
	default:
		if schema.Kind.VectorSize() > 0 {
			idx, ok := key.(lua.LNumber)
			if ok {
				return wp.indexVectorComponent(idx)
			}
		}
		return nil, fmt.Errorf("trying to access property '%s' as a table, but it is a leaf value", wp.Tree.Name(wp.Ref))
	}
}

// readChild converts a child ref for a __index read: composite children
// (Struct/Array) stay as bridge userdata so they can be indexed/iterated
// further; leaf and vector children are converted to plain Lua values so
// ordinary Lua expressions (arithmetic, string concat, boolean tests) work
// on them directly, matching how the original's sol::object conversion
// never exposes a leaf property as a wrapped handle.
func (wp *WrappedProperty) readChild(L *lua.LState, child proptree.PropertyRef) (lua.LValue, error) {
	schema := wp.Tree.SchemaOf(child)
	if schema.Kind == ltypes.Struct || schema.Kind == ltypes.Array {
		return newUserData(L, wp.Tree, child, wp.ReadOnly), nil
	}
	v, err := wp.Tree.GetAny(child)
	if err != nil {
		return nil, err
	}
	return valueToLua(L, v), nil
}

// valueToLua converts a leaf/vector ltypes.Value into a plain Lua value;
// vectors become fresh 1-based tables of their components.
func valueToLua(L *lua.LState, v ltypes.Value) lua.LValue {
	switch v.Type {
	case ltypes.Bool:
		return lua.LBool(v.B)
	case ltypes.Int32:
		return lua.LNumber(v.I)
	case ltypes.Int64:
		return lua.LNumber(v.L)
	case ltypes.Float:
		return lua.LNumber(v.F)
	case ltypes.String:
		return lua.LString(v.S)
	default:
		n := v.Type.VectorSize()
		if n == 0 {
			return lua.LNil
		}
		t := L.NewTable()
		for i := 0; i < n; i++ {
			if v.Type.IsIntegerVector() {
				t.RawSetInt(i+1, lua.LNumber(v.VI[i]))
			} else {
				t.RawSetInt(i+1, lua.LNumber(v.VF[i]))
			}
		}
		return t
	}
}

func (wp *WrappedProperty) indexVectorComponent(idx lua.LNumber) (lua.LValue, error) {
	i, ok := ltypes.DoubleToIndex(float64(idx))
	n := wp.schema().Kind.VectorSize()
	if !ok || i < 1 || i > n {
		return nil, fmt.Errorf("index out of range for vector component (expected 1 to %d but received %v)", n, idx)
	}
	v, err := wp.Tree.GetAny(wp.Ref)
	if err != nil {
		return nil, err
	}
	if v.Type.IsIntegerVector() {
		return lua.LNumber(v.VI[i-1]), nil
	}
	return lua.LNumber(v.VF[i-1]), nil
}

// newIndex implements property.field = rhs / property[i] = rhs writes.
func (wp *WrappedProperty) newIndex(L *lua.LState, key, rhs lua.LValue) error {
	if wp.ReadOnly {
		return fmt.Errorf("trying to write to property '%s', but it is read-only (an input property, or nested inside one)", wp.Tree.Name(wp.Ref))
	}
	schema := wp.schema()
	switch schema.Kind {
	case ltypes.Struct:
		name, ok := key.(lua.LString)
		if !ok {
			return fmt.Errorf("only strings supported as table key type for struct property '%s'!", wp.Tree.Name(wp.Ref))
		}
		child, found := wp.Tree.ChildByName(wp.Ref, string(name))
		if !found {
			return fmt.Errorf("trying to access not available property '%s'!", string(name))
		}
		childBridge := &WrappedProperty{Tree: wp.Tree, Ref: child}
		return childBridge.assign(L, rhs)
	case ltypes.Array:
		idx, ok := key.(lua.LNumber)
		if !ok {
			return fmt.Errorf("only integers supported as index type for array property '%s'!", wp.Tree.Name(wp.Ref))
		}
		i, okIdx := ltypes.DoubleToIndex(float64(idx))
		n := wp.Tree.ChildCount(wp.Ref)
		if !okIdx || i < 1 || i > n {
			return fmt.Errorf("index out of range (expected 1 to %d but received %v)", n, idx)
		}
		child, _ := wp.Tree.ChildByIndex(wp.Ref, i-1)
		childBridge := &WrappedProperty{Tree: wp.Tree, Ref: child}
		return childBridge.assign(L, rhs)
	default:
		return fmt.Errorf("trying to assign into property '%s' using [] or . syntax, but it is a leaf value", wp.Tree.Name(wp.Ref))
	}
}

// assign sets wp's own value (wp must refer to a leaf, vector, or struct —
// this is called once the caller has already resolved the target child).
func (wp *WrappedProperty) assign(L *lua.LState, rhs lua.LValue) error {
	schema := wp.schema()
	switch schema.Kind {
	case ltypes.Struct:
		table, ok := rhs.(*lua.LTable)
		if !ok {
			return fmt.Errorf("assigning a non-table value to struct property '%s' is not allowed", wp.Tree.Name(wp.Ref))
		}
		var outerErr error
		table.ForEach(func(k, v lua.LValue) {
			if outerErr != nil {
				return
			}
			outerErr = wp.newIndex(L, k, v)
		})
		return outerErr
	case ltypes.Array:
		return fmt.Errorf("assigning directly to array property '%s' is not supported; assign individual elements", wp.Tree.Name(wp.Ref))
	default:
		if schema.Kind.VectorSize() > 0 {
			return wp.assignVector(rhs)
		}
		return wp.assignLeaf(rhs)
	}
}

func (wp *WrappedProperty) assignVector(rhs lua.LValue) error {
	table, ok := rhs.(*lua.LTable)
	if !ok {
		return fmt.Errorf("expected a table with %d components to assign vector property '%s'", wp.schema().Kind.VectorSize(), wp.Tree.Name(wp.Ref))
	}
	n := wp.schema().Kind.VectorSize()
	if table.Len() != n {
		return fmt.Errorf("expected %d array components in table but got %d instead!", n, table.Len())
	}
	v := ltypes.Zero(wp.schema().Kind)
	for i := 1; i <= n; i++ {
		entry := table.RawGetInt(i)
		num, ok := entry.(lua.LNumber)
		if !ok {
			return fmt.Errorf("unexpected value (type: '%s') at vector component #%d!", entry.Type().String(), i)
		}
		if v.Type.IsIntegerVector() {
			iv, ok := ltypes.DoubleToInt32(float64(num))
			if !ok {
				return fmt.Errorf("value at vector component #%d is not a valid integer", i)
			}
			v.VI[i-1] = int64(iv)
		} else {
			fv, ok := ltypes.DoubleToFloat32(float64(num))
			if !ok {
				return fmt.Errorf("value at vector component #%d is out of float range", i)
			}
			v.VF[i-1] = float64(fv)
		}
	}
	return wp.Tree.SetInternal(wp.Ref, v)
}

func (wp *WrappedProperty) assignLeaf(rhs lua.LValue) error {
	t := wp.schema().Kind
	var val ltypes.Value
	switch t {
	case ltypes.Bool:
		b, ok := rhs.(lua.LBool)
		if !ok {
			return fmt.Errorf("assigning a non-boolean value to boolean property '%s'", wp.Tree.Name(wp.Ref))
		}
		val = ltypes.BoolValue(bool(b))
	case ltypes.String:
		s, ok := rhs.(lua.LString)
		if !ok {
			return fmt.Errorf("assigning a non-string value to string property '%s'", wp.Tree.Name(wp.Ref))
		}
		val = ltypes.StringValue(string(s))
	case ltypes.Int32:
		n, ok := rhs.(lua.LNumber)
		if !ok {
			return fmt.Errorf("assigning a non-number value to integer property '%s'", wp.Tree.Name(wp.Ref))
		}
		iv, ok := ltypes.DoubleToInt32(float64(n))
		if !ok {
			return fmt.Errorf("value %v is not a valid 32-bit integer for property '%s'", n, wp.Tree.Name(wp.Ref))
		}
		val = ltypes.Int32Value(iv)
	case ltypes.Int64:
		n, ok := rhs.(lua.LNumber)
		if !ok {
			return fmt.Errorf("assigning a non-number value to integer property '%s'", wp.Tree.Name(wp.Ref))
		}
		iv, ok := ltypes.DoubleToInt64(float64(n))
		if !ok {
			return fmt.Errorf("value %v is not a valid 64-bit integer for property '%s'", n, wp.Tree.Name(wp.Ref))
		}
		val = ltypes.Int64Value(iv)
	case ltypes.Float:
		n, ok := rhs.(lua.LNumber)
		if !ok {
			return fmt.Errorf("assigning a non-number value to float property '%s'", wp.Tree.Name(wp.Ref))
		}
		fv, ok := ltypes.DoubleToFloat32(float64(n))
		if !ok {
			return fmt.Errorf("value %v is out of float range for property '%s'", n, wp.Tree.Name(wp.Ref))
		}
		val = ltypes.FloatValue(fv)
	default:
		return fmt.Errorf("unsupported leaf type %s for property '%s'", t, wp.Tree.Name(wp.Ref))
	}
	return wp.Tree.SetInternal(wp.Ref, val)
}

// RLLen / IsArray / RLNext implement sandbox.Iterable so rl_pairs/rl_ipairs
// can walk a struct or array property exactly like a plain Lua table.
func (wp *WrappedProperty) RLLen() int {
	schema := wp.schema()
	if schema.Kind == ltypes.Struct || schema.Kind == ltypes.Array {
		return wp.Tree.ChildCount(wp.Ref)
	}
	return 0
}

func (wp *WrappedProperty) IsArray() bool {
	return wp.schema().Kind == ltypes.Array
}

func (wp *WrappedProperty) RLNext(L *lua.LState, key lua.LValue) (lua.LValue, lua.LValue, error) {
	schema := wp.schema()
	n := wp.Tree.ChildCount(wp.Ref)

	nextOrdinal := func(cur int) (int, error) {
		if key == lua.LNil {
			return 0, nil
		}
		if schema.Kind == ltypes.Array {
			idx, ok := key.(lua.LNumber)
			if !ok {
				return 0, fmt.Errorf("invalid iteration key")
			}
			i, okIdx := ltypes.DoubleToIndex(float64(idx))
			if !okIdx || i < 1 || i > n {
				return 0, fmt.Errorf("invalid iteration key %v", idx)
			}
			return i, nil
		}
		name, ok := key.(lua.LString)
		if !ok {
			return 0, fmt.Errorf("invalid iteration key")
		}
		for i := 0; i < n; i++ {
			c, _ := wp.Tree.ChildByIndex(wp.Ref, i)
			if wp.Tree.Name(c) == string(name) {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("invalid iteration key '%s'", string(name))
	}

	ord, err := nextOrdinal(0)
	if err != nil {
		return nil, nil, err
	}
	if ord >= n {
		return nil, nil, nil
	}
	child, _ := wp.Tree.ChildByIndex(wp.Ref, ord)
	childUD := newUserData(L, wp.Tree, child, wp.ReadOnly)
	if schema.Kind == ltypes.Array {
		return lua.LNumber(ord + 1), childUD, nil
	}
	return lua.LString(wp.Tree.Name(child)), childUD, nil
}

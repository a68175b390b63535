// Package typeextract implements the interface() schema-builder proxy: the
// userdata a script's interface(IN, OUT) function receives, whose __newindex
// records each assigned field as a declared property and whose __index
// allows scripts to read back already-declared nested structs (needed for
// the IN.nested.field = FLOAT pattern). It is grounded on
// original_source/lib/internals/PropertyTypeExtractor.{h,cpp}.
package typeextract

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/ltypes"
)

// Extractor is one node (root, or a nested struct/array element) of the
// schema tree being built. It implements sandbox.Iterable so rl_pairs can
// walk a partially-built struct the way it walks an ordinary table.
type Extractor struct {
	name string
	kind ltypes.Type // Bool..Vec4i, Struct, or Array

	// Struct children, in declaration order (sorted only when frozen).
	children []*Extractor

	// Array-only.
	arrayElem *Extractor
	arrayLen  int
}

// NewRoot starts a fresh extraction for one interface (IN or OUT root).
func NewRoot(name string) *Extractor {
	return &Extractor{name: name, kind: ltypes.Struct}
}

func (e *Extractor) findChild(name string) *Extractor {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Index implements the Lua __index metamethod: IN.someField reads back an
// already-declared child so nested assignment (IN.nested.x = ...) works.
func (e *Extractor) Index(L *lua.LState, key string) (*Extractor, error) {
	child := e.findChild(key)
	if child == nil {
		return nil, fmt.Errorf("trying to access not available property '%s' in interface!", key)
	}
	return child, nil
}

// NewIndex implements the Lua __newindex metamethod: declares a new field
// named key with the schema described by value (a type-id number, a plain
// table for a nested struct, or an *arrayTypeInfo from ARRAY(n, T)).
func (e *Extractor) NewIndex(L *lua.LState, key string, value lua.LValue) error {
	if e.findChild(key) != nil {
		return fmt.Errorf("property '%s' already exists! Can't declare the same property twice!", key)
	}

	child, err := e.buildChild(L, key, value)
	if err != nil {
		return err
	}
	e.children = append(e.children, child)
	return nil
}

func (e *Extractor) buildChild(L *lua.LState, name string, value lua.LValue) (*Extractor, error) {
	switch v := value.(type) {
	case lua.LNumber:
		t := ltypes.Type(int(v))
		if !validPrimitiveID(t) {
			return nil, fmt.Errorf("field '%s' has invalid type! Only primitive types, arrays and nested tables obeying the same rules are supported!", name)
		}
		return &Extractor{name: name, kind: t}, nil
	case *lua.LTable:
		structChild := &Extractor{name: name, kind: ltypes.Struct}
		if err := structChild.extractFromTable(L, v); err != nil {
			return nil, err
		}
		return structChild, nil
	case *lua.LUserData:
		info, ok := v.Value.(*arrayTypeInfo)
		if !ok {
			return nil, fmt.Errorf("field '%s' has invalid type! Only primitive types, arrays and nested tables obeying the same rules are supported!", name)
		}
		elem, err := arrayElementFrom(L, name, info.elemType)
		if err != nil {
			return nil, err
		}
		return &Extractor{name: name, kind: ltypes.Array, arrayElem: elem, arrayLen: info.size}, nil
	default:
		return nil, fmt.Errorf("field '%s' has invalid type! Only primitive types, arrays and nested tables obeying the same rules are supported!", name)
	}
}

func arrayElementFrom(L *lua.LState, fieldName string, arrayType lua.LValue) (*Extractor, error) {
	switch v := arrayType.(type) {
	case lua.LNumber:
		t := ltypes.Type(int(v))
		if !validPrimitiveID(t) {
			return nil, fmt.Errorf("unsupported type id '%d' for array property '%s'!", int(v), fieldName)
		}
		return &Extractor{kind: t}, nil
	case *lua.LTable:
		elem := &Extractor{kind: ltypes.Struct}
		if err := elem.extractFromTable(L, v); err != nil {
			return nil, err
		}
		return elem, nil
	default:
		return nil, fmt.Errorf("unsupported type for array property '%s'!", fieldName)
	}
}

func (e *Extractor) extractFromTable(L *lua.LState, table *lua.LTable) error {
	var outerErr error
	table.ForEach(func(k, v lua.LValue) {
		if outerErr != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			outerErr = fmt.Errorf("non-string keys are not allowed when declaring struct fields")
			return
		}
		if err := e.NewIndex(L, string(key), v); err != nil {
			outerErr = err
		}
	})
	return outerErr
}

func validPrimitiveID(t ltypes.Type) bool {
	switch t {
	case ltypes.Bool, ltypes.Int32, ltypes.Int64, ltypes.Float, ltypes.String,
		ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f, ltypes.Vec2i, ltypes.Vec3i, ltypes.Vec4i:
		return true
	default:
		return false
	}
}

// Freeze converts the accumulated declaration into a frozen ltypes schema,
// sorting struct fields lexicographically (spec.md §4.A).
func (e *Extractor) Freeze() (*ltypes.HierarchicalType, error) {
	switch e.kind {
	case ltypes.Struct:
		fields := make([]ltypes.Field, 0, len(e.children))
		for _, c := range e.children {
			ct, err := c.Freeze()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ltypes.Field{Name: c.name, Type: ct})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		return ltypes.NewStruct(fields)
	case ltypes.Array:
		elem, err := e.arrayElem.Freeze()
		if err != nil {
			return nil, err
		}
		return ltypes.NewArray(e.arrayLen, elem)
	default:
		return ltypes.Leaf(e.kind), nil
	}
}

// RLLen / IsArray / RLNext implement sandbox.Iterable over a struct under
// construction, matching the original's getNestedExtractors()/getChildReference
// iteration support.
func (e *Extractor) RLLen() int { return len(e.children) }

func (e *Extractor) IsArray() bool { return e.kind == ltypes.Array }

func (e *Extractor) RLNext(L *lua.LState, key lua.LValue) (lua.LValue, lua.LValue, error) {
	idx := 0
	if key != lua.LNil {
		name, ok := key.(lua.LString)
		if !ok {
			return nil, nil, fmt.Errorf("invalid iteration key")
		}
		found := -1
		for i, c := range e.children {
			if c.name == string(name) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, nil, fmt.Errorf("invalid iteration key '%s'", string(name))
		}
		idx = found + 1
	}
	if idx >= len(e.children) {
		return nil, nil, nil
	}
	child := e.children[idx]
	return lua.LString(child.name), NewUserData(L, child), nil
}

// arrayTypeInfo is the payload behind ARRAY(n, T)'s returned userdata.
type arrayTypeInfo struct {
	size     int
	elemType lua.LValue
}

// RegisterTypes installs the primitive-type-id constants and the ARRAY
// function into env, mirroring PropertyTypeExtractor::RegisterTypes.
func RegisterTypes(L *lua.LState, env *lua.LTable) {
	for _, t := range []ltypes.Type{
		ltypes.Float, ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f,
		ltypes.Int32, ltypes.Vec2i, ltypes.Vec3i, ltypes.Vec4i,
		ltypes.Int64, ltypes.String, ltypes.Bool, ltypes.Struct,
	} {
		env.RawSetString(luaPrimitiveName(t), lua.LNumber(int(t)))
	}
	env.RawSetString("ARRAY", L.NewFunction(luaCreateArray))
}

func luaPrimitiveName(t ltypes.Type) string {
	switch t {
	case ltypes.Float:
		return "FLOAT"
	case ltypes.Vec2f:
		return "VEC2F"
	case ltypes.Vec3f:
		return "VEC3F"
	case ltypes.Vec4f:
		return "VEC4F"
	case ltypes.Int32:
		return "INT"
	case ltypes.Int64:
		return "INT64"
	case ltypes.Vec2i:
		return "VEC2I"
	case ltypes.Vec3i:
		return "VEC3I"
	case ltypes.Vec4i:
		return "VEC4I"
	case ltypes.String:
		return "STRING"
	case ltypes.Bool:
		return "BOOL"
	case ltypes.Struct:
		return "STRUCT"
	default:
		return t.String()
	}
}

func luaCreateArray(L *lua.LState) int {
	sizeArg := L.CheckAny(1)
	n, ok := sizeArg.(lua.LNumber)
	if !ok {
		L.RaiseError("ARRAY(N, T) invoked with size parameter N which is not a positive integer!")
		return 0
	}
	size, ok := ltypes.DoubleToIndex(float64(n))
	if !ok || size < ltypes.MinArrayLength || size > ltypes.MaxArrayLength {
		L.RaiseError("ARRAY(N, T) invoked with invalid size parameter N=%v (must be in the range [%d, %d])!", n, ltypes.MinArrayLength, ltypes.MaxArrayLength)
		return 0
	}
	if L.GetTop() < 2 {
		L.RaiseError("ARRAY(N, T) invoked with invalid type parameter T!")
		return 0
	}
	elemType := L.CheckAny(2)

	ud := L.NewUserData()
	ud.Value = &arrayTypeInfo{size: int(size), elemType: elemType}
	L.Push(ud)
	return 1
}

// NewUserData wraps an Extractor node for exposure to Lua as IN/OUT (or a
// nested struct field) with index/newindex metamethods bound to it.
func NewUserData(L *lua.LState, e *Extractor) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = e

	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		self := L.CheckUserData(1)
		ext, ok := self.Value.(*Extractor)
		if !ok {
			L.RaiseError("not an interface extractor")
			return 0
		}
		key, ok := L.CheckAny(2).(lua.LString)
		if !ok {
			L.RaiseError("assigning or reading a field with a non-string key is prohibited")
			return 0
		}
		child, err := ext.Index(L, string(key))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(NewUserData(L, child))
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		self := L.CheckUserData(1)
		ext, ok := self.Value.(*Extractor)
		if !ok {
			L.RaiseError("not an interface extractor")
			return 0
		}
		key, ok := L.CheckAny(2).(lua.LString)
		if !ok {
			L.RaiseError("assigning or reading a field with a non-string key is prohibited")
			return 0
		}
		value := L.CheckAny(3)
		if err := ext.NewIndex(L, string(key), value); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		return 0
	}))
	L.SetMetatable(ud, mt)
	return ud
}

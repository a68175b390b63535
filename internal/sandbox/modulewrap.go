package sandbox

import lua "github.com/yuin/gopher-lua"

// WrapModuleReadOnly builds a deep, read-only view of a compiled module's
// return table (spec.md §4.B "User modules"): a new table per level whose
// __index points at the original (so reads pass through transparently) and
// whose __newindex always raises "Modifying module data is not allowed!".
// Nested tables are wrapped recursively so the read-only property holds at
// every depth, not just the top level.
func WrapModuleReadOnly(L *lua.LState, original *lua.LTable) *lua.LTable {
	wrapped := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckAny(2)
		v := original.RawGet(key)
		if nested, ok := v.(*lua.LTable); ok {
			L.Push(WrapModuleReadOnly(L, nested))
			return 1
		}
		L.Push(v)
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("Modifying module data is not allowed!")
		return 0
	}))
	mt.RawSetString("__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(original.Len()))
		return 1
	}))
	L.SetMetatable(wrapped, mt)
	return wrapped
}

// BuildModulesTable assembles the "modules" table a script sees in
// LoadScript mode: keys are the dependent-script's declared local names,
// values are the corresponding read-only wrapped module tables, provided
// by the caller (the engine does not resolve dependencies from a
// filesystem — spec.md's explicit non-goal — callers supply the modules
// map directly).
func BuildModulesTable(L *lua.LState, named map[string]*lua.LTable) *lua.LTable {
	t := L.NewTable()
	for name, mod := range named {
		t.RawSetString(name, WrapModuleReadOnly(L, mod))
	}
	return t
}

package sandbox

import lua "github.com/yuin/gopher-lua"

// StdLib is a bitmask selecting which standard libraries a script declares
// it may see (spec.md §4.B "Standard-module selection"). The underlying
// *lua.LState always has all five opened once at creation time (spec.md:
// "opened once at state creation"); StdLib instead controls which of the
// already-open library tables get copied into a given script's sandboxed
// environment.
type StdLib int

const (
	LibBase StdLib = 1 << iota
	LibString
	LibTable
	LibMath
	LibDebug
)

// AllStdLibs is the full set, used for init-time state construction (the
// state itself always opens all five; this is just a convenience constant).
const AllStdLibs = LibBase | LibString | LibTable | LibMath | LibDebug

// openCoreLibs opens exactly the five libraries spec.md names, once, on a
// freshly created *lua.LState. Deliberately narrower than lua.OpenLibs,
// which would also pull in io/os/channel/coroutine — capabilities no
// sandboxed logic script should have (no file IO, no process control).
func openCoreLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.DebugLibName, lua.OpenDebug},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// libraryTable returns the already-open global values of every library
// selected in mask, keyed by global name; an empty mask yields an empty map.
func libraryTable(L *lua.LState, mask StdLib) map[string]lua.LValue {
	out := make(map[string]lua.LValue)
	add := func(flag StdLib, globalName string) {
		if mask&flag == 0 {
			return
		}
		if v := L.GetGlobal(globalName); v != lua.LNil {
			out[globalName] = v
		}
	}
	add(LibString, lua.StringLibName)
	add(LibTable, lua.TabLibName)
	add(LibMath, lua.MathLibName)
	add(LibDebug, lua.DebugLibName)
	if mask&LibBase != 0 {
		// Base library exposes free functions (print, type, tostring, ipairs,
		// pairs, error, assert, pcall, select, ...) rather than one table;
		// copy a commonly useful subset individually.
		for _, name := range []string{
			"print", "type", "tostring", "tonumber", "error", "assert",
			"pcall", "xpcall", "select", "unpack", "rawget", "rawset",
			"rawequal", "rawlen", "next",
		} {
			if v := L.GetGlobal(name); v != lua.LNil {
				out[name] = v
			}
		}
	}
	return out
}

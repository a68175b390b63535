package sandbox

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Environment is one script's sandboxed global table (used as the chunk's
// _ENV via ScriptHost.bind). Ordinary identifiers a script is always
// allowed to see — the selected standard-library subset, the iteration
// helpers, and the safe base-library functions — are copied in as *raw*
// table entries at construction time, so ordinary Lua global lookups never
// touch the metatable at all (real Lua/gopher-lua semantics: __index and
// __newindex only fire for a key absent from the raw table). The
// mode-gated identifiers (modules, GLOBAL, IN, OUT) are deliberately never
// raw-present; they are served lazily by index/newindex below, gated by
// the currently active Mode. This mirrors
// original_source/lib/internals/EnvironmentProtection.cpp, which relies on
// the same absent-key/metamethod split (sol::environment pre-populates
// library upvalues as raw entries, then intercepts only the sensitive set).
type Environment struct {
	L    *lua.LState
	Vars *lua.LTable // the environment table itself (the chunk's _ENV)

	mode Mode
	libs StdLib // the standard-library subset this environment was built with

	modules *lua.LTable // read-only wrapped dependency modules, LoadScript-only
	global  *lua.LTable // the script's own GLOBAL table; nil until init() creates it
	in, out lua.LValue  // IN/OUT bridge userdata, set before InterfaceFunction/RunFunction

	declared map[string]bool   // which of interface/init/run were assigned (LoadScript, "only once")
	funcs    map[string]*lua.LFunction
}

// NewEnvironment builds a fresh sandboxed environment exposing exactly the
// requested standard-library subset plus the four rl_* iteration helpers.
func NewEnvironment(L *lua.LState, libs StdLib, modules *lua.LTable) *Environment {
	e := &Environment{
		L:        L,
		Vars:     L.NewTable(),
		libs:     libs,
		modules:  modules,
		declared: make(map[string]bool, 3),
		funcs:    make(map[string]*lua.LFunction, 3),
	}
	for name, v := range libraryTable(L, libs) {
		e.Vars.RawSetString(name, v)
	}
	for name, fn := range iterationHelpers(L) {
		e.Vars.RawSetString(name, fn)
	}

	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(e.luaIndex))
	mt.RawSetString("__newindex", L.NewFunction(e.luaNewIndex))
	L.SetMetatable(e.Vars, mt)
	return e
}

func (e *Environment) setMode(m Mode) { e.mode = m }

// Libs returns the standard-library subset this environment was built with,
// for internal/serialize to persist alongside a Script/Module's source so a
// reloaded file recompiles against the same sandbox (spec.md §6).
func (e *Environment) Libs() StdLib { return e.libs }

// SetGlobalTable installs the script's own GLOBAL table, created once (by
// the caller) iff the script declares an init() function.
func (e *Environment) SetGlobalTable(tbl *lua.LTable) { e.global = tbl }

// SetInOut installs the IN/OUT bridge values visible during
// InterfaceFunction (schema-extraction proxies) or RunFunction (the live
// property bridge).
func (e *Environment) SetInOut(in, out lua.LValue) { e.in, e.out = in, out }

// Interface, Init, Run return the chunk-declared functions (nil if absent).
func (e *Environment) Interface() *lua.LFunction { return e.funcs["interface"] }
func (e *Environment) Init() *lua.LFunction      { return e.funcs["init"] }
func (e *Environment) Run() *lua.LFunction       { return e.funcs["run"] }

func ensureStringKey(key lua.LValue) (string, error) {
	s, ok := key.(lua.LString)
	if !ok {
		return "", fmt.Errorf("assigning or reading a global with a non-string key is prohibited (got %s)", key.Type().String())
	}
	return string(s), nil
}

func (e *Environment) luaIndex(L *lua.LState) int {
	key, err := ensureStringKey(L.CheckAny(2))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	switch e.mode {
	case ModeLoadScript:
		if key == "modules" {
			if e.modules == nil {
				L.Push(lua.LNil)
			} else {
				L.Push(e.modules)
			}
			return 1
		}
		L.RaiseError("trying to read global variable '%s' outside init(), interface() and run(): forbidden", key)
	case ModeInitFunction:
		if key == "GLOBAL" {
			L.Push(e.globalOrNil())
			return 1
		}
		L.RaiseError("trying to read global variable '%s' in init(): only GLOBAL is readable here", key)
	case ModeInterfaceFunction, ModeRunFunction:
		switch key {
		case "GLOBAL":
			L.Push(e.globalOrNil())
			return 1
		case "IN":
			L.Push(orNil(e.in))
			return 1
		case "OUT":
			L.Push(orNil(e.out))
			return 1
		}
		L.RaiseError("unexpected global access to key '%s' in %s(): allowed keys are GLOBAL, IN, OUT", key, e.mode)
	case ModeModule:
		if key == "modules" {
			if e.modules == nil {
				L.Push(lua.LNil)
			} else {
				L.Push(e.modules)
			}
			return 1
		}
		L.RaiseError("global '%s' is not available inside a module chunk: only 'modules' is readable here", key)
	default:
		L.RaiseError("no Lua execution is permitted outside a script phase (reading '%s')", key)
	}
	return 0
}

func (e *Environment) luaNewIndex(L *lua.LState) int {
	key, err := ensureStringKey(L.CheckAny(2))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	value := L.CheckAny(3)

	switch e.mode {
	case ModeLoadScript:
		if value.Type() != lua.LTFunction {
			L.RaiseError("declaring global variables is forbidden (exceptions: the functions 'init', 'interface' and 'run'); got value of type %s for '%s'", value.Type(), key)
			return 0
		}
		if key != "init" && key != "interface" && key != "run" {
			L.RaiseError("unexpected function name '%s'; allowed names: init, interface, run", key)
			return 0
		}
		if e.declared[key] {
			L.RaiseError("function '%s' can only be declared once", key)
			return 0
		}
		e.declared[key] = true
		e.funcs[key] = value.(*lua.LFunction)
	case ModeInitFunction:
		if key == "GLOBAL" {
			L.RaiseError("trying to override the GLOBAL table in init(): you can only add data to it")
		} else {
			L.RaiseError("unexpected global variable definition '%s' in init(): use the GLOBAL table or modules", key)
		}
	case ModeInterfaceFunction:
		if key == "GLOBAL" {
			L.RaiseError("trying to override the GLOBAL table in interface(): it is read-only here")
		} else {
			L.RaiseError("unexpected global variable definition '%s' in interface(): use init() to declare global data", key)
		}
	case ModeRunFunction:
		if key == "GLOBAL" {
			L.RaiseError("trying to override the GLOBAL table in run(): it is read-only here")
		} else {
			L.RaiseError("unexpected global variable definition '%s' in run(): use init() to declare global data, or modules", key)
		}
	case ModeModule:
		L.RaiseError("modifying module data is not allowed!")
	default:
		L.RaiseError("no Lua execution is permitted outside a script phase (writing '%s')", key)
	}
	return 0
}

func (e *Environment) globalOrNil() lua.LValue {
	if e.global == nil {
		return lua.LNil
	}
	return e.global
}

func orNil(v lua.LValue) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	return v
}

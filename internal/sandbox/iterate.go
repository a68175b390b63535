package sandbox

import lua "github.com/yuin/gopher-lua"

// Iterable lets rl_len/rl_next/rl_pairs/rl_ipairs operate transparently on
// the engine's own userdata (the property bridge view and the type
// extractor proxy) in addition to plain Lua tables, per spec.md §4.B.
// internal/propbridge.WrappedProperty and internal/typeextract's proxy both
// implement this.
type Iterable interface {
	// RLLen returns the array length / struct field count.
	RLLen() int
	// IsArray reports whether 1-based integer keys (rl_ipairs) are valid;
	// false means only string keys are valid (a Struct).
	IsArray() bool
	// RLNext returns the key/value pair following key (nil to start), and
	// (nil, nil, nil) after the last entry. An invalid key is an error.
	RLNext(L *lua.LState, key lua.LValue) (lua.LValue, lua.LValue, error)
}

// registerIterationHelpers installs the four global functions spec.md §4.B
// requires exactly once on the state's real global table (mirroring
// original_source's `state["rl_len"] = rl_len`); every Environment then
// copies references to these same values into its own raw table
// (`env["rl_len"] = state["rl_len"]`), so rl_pairs/rl_ipairs can look
// `rl_next` back up via L.GetGlobal regardless of which environment is
// currently active.
func registerIterationHelpers(L *lua.LState) {
	L.SetGlobal("rl_len", L.NewFunction(rlLen))
	L.SetGlobal("rl_next", L.NewFunction(rlNext))
	L.SetGlobal("rl_pairs", L.NewFunction(rlPairs))
	L.SetGlobal("rl_ipairs", L.NewFunction(rlIpairs))
}

// iterationHelpers returns references to the already-registered global
// helpers, keyed by name, for copying into a new Environment's raw table.
func iterationHelpers(L *lua.LState) map[string]lua.LValue {
	names := []string{"rl_len", "rl_next", "rl_pairs", "rl_ipairs"}
	out := make(map[string]lua.LValue, len(names))
	for _, n := range names {
		out[n] = L.GetGlobal(n)
	}
	return out
}

func asIterable(v lua.LValue) (Iterable, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	it, ok := ud.Value.(Iterable)
	return it, ok
}

func rlLen(L *lua.LState) int {
	v := L.CheckAny(1)
	switch t := v.(type) {
	case *lua.LTable:
		L.Push(lua.LNumber(t.Len()))
		return 1
	default:
		if it, ok := asIterable(v); ok {
			L.Push(lua.LNumber(it.RLLen()))
			return 1
		}
	}
	L.RaiseError("rl_len() called on an unsupported type '%s'", v.Type().String())
	return 0
}

func rlNext(L *lua.LState) int {
	container := L.CheckAny(1)
	var key lua.LValue = lua.LNil
	if L.GetTop() >= 2 {
		key = L.CheckAny(2)
	}

	switch t := container.(type) {
	case *lua.LTable:
		nk, nv := t.Next(key)
		L.Push(nk)
		L.Push(nv)
		return 2
	default:
		if it, ok := asIterable(container); ok {
			k, v, err := it.RLNext(L, key)
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			if k == nil {
				k = lua.LNil
			}
			if v == nil {
				v = lua.LNil
			}
			L.Push(k)
			L.Push(v)
			return 2
		}
	}
	L.RaiseError("rl_next() called on an unsupported type '%s'", container.Type().String())
	return 0
}

// rlPairs/rlIpairs return the standard (iterator, container, seed) triple so
// `for k,v in rl_pairs(x) do ... end` works via repeated rl_next calls.
func rlPairs(L *lua.LState) int {
	container := L.CheckAny(1)
	L.Push(L.GetGlobal("rl_next"))
	L.Push(container)
	L.Push(lua.LNil)
	return 3
}

func rlIpairs(L *lua.LState) int {
	container := L.CheckAny(1)
	switch t := container.(type) {
	case *lua.LTable:
		_ = t
	default:
		it, ok := asIterable(container)
		if !ok || !it.IsArray() {
			L.RaiseError("rl_ipairs() called on an unsupported type '%s'; use only with array-like values", container.Type().String())
			return 0
		}
	}
	L.Push(L.GetGlobal("rl_next"))
	L.Push(container)
	L.Push(lua.LNil)
	return 3
}

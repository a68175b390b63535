package sandbox

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ScriptHost owns exactly one gopher-lua state, matching spec.md §5: "The
// Lua states the engine owns are not re-entrant... every ApiObjects
// instance owns one [Lua] state." Construction opens the five core
// libraries once; everything else (environments, sandboxing, module
// wrapping) happens per script on top of this single state.
type ScriptHost struct {
	L *lua.LState
}

// NewScriptHost creates a fresh, isolated Lua state.
func NewScriptHost() *ScriptHost {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openCoreLibs(L)
	registerIterationHelpers(L)
	return &ScriptHost{L: L}
}

// Close releases the underlying Lua state. Must not be called while any
// node owned by this host is mid-evaluation.
func (h *ScriptHost) Close() {
	h.L.Close()
}

// NewEnvironment creates a sandboxed environment for one script/module,
// exposing the given standard-library subset and (for scripts with
// declared module dependencies) the read-only modules table.
func (h *ScriptHost) NewEnvironment(libs StdLib, modules *lua.LTable) *Environment {
	return NewEnvironment(h.L, libs, modules)
}

// LoadChunk compiles source under chunkName and binds it to env's table as
// its _ENV, returning the callable top-level function. The chunk is not
// executed yet — callers run it under the appropriate ScopedGuard mode.
func (h *ScriptHost) LoadChunk(source, chunkName string, env *Environment) (*lua.LFunction, error) {
	fn, err := h.L.LoadString(source)
	if err != nil {
		return nil, fmt.Errorf("lua syntax error in %s: %w", chunkName, err)
	}
	h.L.SetFEnv(fn, env.Vars)
	return fn, nil
}

// CallProtected invokes fn(args...) with nret results, returning a Go error
// (including the Lua stack trace) instead of panicking — the "any
// violation raises a Lua error that the engine reports through the error
// channel" contract from spec.md §4.B.
func (h *ScriptHost) CallProtected(fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	top := h.L.GetTop()
	h.L.Push(fn)
	for _, a := range args {
		h.L.Push(a)
	}
	if err := h.L.PCall(len(args), nret, nil); err != nil {
		return nil, err
	}
	got := h.L.GetTop() - top
	results := make([]lua.LValue, 0, got)
	for i := 0; i < got; i++ {
		results = append(results, h.L.Get(top+1+i))
	}
	h.L.SetTop(top)
	return results, nil
}

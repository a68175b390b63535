// Package sandbox implements ScriptHost: one gopher-lua state per engine,
// protected per-script sandboxed environments, and the five execution
// protection modes from spec.md §4.B. It is grounded on the state-pool and
// bytecode-cache shape of _examples/ygalsk-keystone-gateway/internal/lua
// (engine.go, state_pool.go, script_compiler.go) and on the scoped-guard /
// environment-protection design of
// original_source/lib/internals/EnvironmentProtection.{h,cpp}.
package sandbox

// Mode is one of the five execution protection modes (spec.md §4.B table).
type Mode int

const (
	ModeNone Mode = iota
	ModeLoadScript
	ModeInitFunction
	ModeInterfaceFunction
	ModeRunFunction
	ModeModule
)

func (m Mode) String() string {
	switch m {
	case ModeLoadScript:
		return "LoadScript"
	case ModeInitFunction:
		return "InitFunction"
	case ModeInterfaceFunction:
		return "InterfaceFunction"
	case ModeRunFunction:
		return "RunFunction"
	case ModeModule:
		return "Module"
	default:
		return "None"
	}
}

// ScopedGuard enters a protection mode on an Environment and guarantees the
// previous mode is restored on every control-flow path, including a Lua
// error or a Go panic unwinding through the call — implemented with Go's
// own defer rather than a hand-rolled RAII type, which is the Go-idiomatic
// expression of original_source's ScopedEnvironmentProtection.
type ScopedGuard struct {
	env  *Environment
	prev Mode
}

// Enter switches env to mode and returns a guard; call Exit (typically via
// defer) to restore the previous mode.
func Enter(env *Environment, mode Mode) *ScopedGuard {
	g := &ScopedGuard{env: env, prev: env.mode}
	env.setMode(mode)
	return g
}

// Exit restores the mode that was active before Enter. Safe to call
// multiple times (idempotent after the first call).
func (g *ScopedGuard) Exit() {
	if g == nil {
		return
	}
	g.env.setMode(g.prev)
}

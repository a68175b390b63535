// Package main implements scenelogic-repl, an interactive Lua console for
// driving a scenelogic engine by hand: the pkg/logicengine façade is bound
// into the Lua state as the "engine" global via gopher-luar's reflection
// bridge, so an operator can call engine:CreateScript(...), engine:Link(...),
// engine:Update() etc. straight from the prompt while developing or
// debugging a scene, the same way the teacher's own scripting engines
// (grounded on layeh.com/gopher-luar's New/NewType) expose a host object to
// Lua. Unlike internal/sandbox's per-Script environment, this state opens
// the full standard library: a console operator is trusted the way a
// sandboxed scene script is not.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"scenelogic/pkg/logicengine"
)

func main() {
	scenePath := flag.String("scene", "", "path to a saved scene file to load at startup (omit to start empty)")
	featureLevel := flag.Uint("feature-level", 1, "engine feature level")
	flag.Parse()

	cfg := logicengine.EngineConfig{FeatureLevel: uint32(*featureLevel), DefaultScript: logicengine.DefaultScriptConfig()}
	le, err := openEngine(*scenePath, cfg)
	if err != nil {
		log.Fatalf("scenelogic-repl: %v", err)
	}
	defer le.Close()

	L := lua.NewState()
	defer L.Close()
	L.OpenLibs()
	bindEngine(L, le)

	runRepl(L)
}

// openEngine mirrors cmd/scenelogic-diag's: a console session doesn't push
// anything to a real renderer, so every resurrected Binding gets a
// logreceiver stub.
func openEngine(scenePath string, cfg logicengine.EngineConfig) (*logicengine.LogicEngine, error) {
	if scenePath == "" {
		return logicengine.New(cfg), nil
	}
	f, err := os.Open(scenePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return logicengine.Load(f, cfg, noopResolver)
}

// bindEngine exposes le and the façade's Value/kind constructors as Lua
// globals via luar.New, following TestUserDad-dragon-mud's
// scripting/lua.Engine pattern of wrapping Go values for Lua method/field
// access through reflection rather than hand-written userdata bindings.
func bindEngine(L *lua.LState, le *logicengine.LogicEngine) {
	L.SetGlobal("engine", luar.New(L, le))

	values := L.NewTable()
	values.RawSetString("bool", luar.New(L, logicengine.BoolValue))
	values.RawSetString("int32", luar.New(L, logicengine.Int32Value))
	values.RawSetString("int64", luar.New(L, logicengine.Int64Value))
	values.RawSetString("float", luar.New(L, logicengine.FloatValue))
	values.RawSetString("string", luar.New(L, logicengine.StringValue))
	values.RawSetString("vec2f", luar.New(L, logicengine.Vec2fValue))
	values.RawSetString("vec3f", luar.New(L, logicengine.Vec3fValue))
	values.RawSetString("vec4f", luar.New(L, logicengine.Vec4fValue))
	L.SetGlobal("value", values)

	kinds := L.NewTable()
	kinds.RawSetString("script", lua.LString(logicengine.KindScript))
	kinds.RawSetString("interface", lua.LString(logicengine.KindInterface))
	kinds.RawSetString("module", lua.LString(logicengine.KindModule))
	kinds.RawSetString("data_array", lua.LString(logicengine.KindDataArray))
	kinds.RawSetString("animation", lua.LString(logicengine.KindAnimation))
	kinds.RawSetString("timer", lua.LString(logicengine.KindTimer))
	kinds.RawSetString("binding", lua.LString(logicengine.KindBinding))
	L.SetGlobal("kind", kinds)
}

func noopResolver(name string, id uint64) (logicengine.Receiver, bool) {
	return noopReceiver{}, true
}

type noopReceiver struct{}

func (noopReceiver) Push(path string, v logicengine.Value) error { return nil }

// runRepl reads one line at a time from stdin and evaluates it against L,
// printing any results ("return <line>" is tried first, the way the
// reference lua.c console does, so a bare expression prints its value;
// a line that isn't a valid expression falls back to running as a
// statement).
func runRepl(L *lua.LState) {
	fmt.Println("scenelogic-repl: engine is bound; Ctrl-D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := evalLine(L, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func evalLine(L *lua.LState, line string) error {
	top := L.GetTop()
	fn, err := L.LoadString("return " + line)
	if err != nil {
		fn, err = L.LoadString(line)
		if err != nil {
			return err
		}
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}
	for i := top + 1; i <= L.GetTop(); i++ {
		fmt.Println(L.Get(i).String())
	}
	L.SetTop(top)
	return nil
}

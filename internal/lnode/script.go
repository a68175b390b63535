package lnode

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/propbridge"
	"scenelogic/internal/proptree"
	"scenelogic/internal/sandbox"
	"scenelogic/internal/typeextract"
)

// ScriptBody holds a compiled script's run closure and its owning
// environment. Evaluation calls run(IN, OUT) with live property bridges.
type ScriptBody struct {
	Source  string
	Modules []string // declared module dependency names, in declaration order
	Env     *sandbox.Environment
	Run     *lua.LFunction
}

// ExtractModuleDependencies runs source in a throwaway, stdlib-free Lua
// state with a stubbed modules(...) function, collecting the declared
// module names. Grounded on
// original_source/lib/internals/LuaCompilationUtils.cpp's
// ExtractModuleDependencies: runtime errors during this throwaway
// execution are intentionally ignored (the original only logs them at
// debug level) since the goal is purely to observe which names were
// passed to modules(...) before any real compilation happens.
func ExtractModuleDependencies(source string) ([]string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	var extracted []string
	var argErr error
	timesCalled := 0
	L.SetGlobal("modules", L.NewFunction(func(L *lua.LState) int {
		timesCalled++
		n := L.GetTop()
		for i := 1; i <= n; i++ {
			v := L.Get(i)
			s, ok := v.(lua.LString)
			if !ok {
				argErr = fmt.Errorf("argument %d to modules(...) is of type '%s', string must be provided: ex. 'modules(\"moduleA\", \"moduleB\")'", i, v.Type().String())
				return 0
			}
			extracted = append(extracted, string(s))
		}
		return 0
	}))

	fn, err := L.LoadString(source)
	if err != nil {
		return nil, fmt.Errorf("error while extracting module dependencies: %w", err)
	}
	L.Push(fn)
	_ = L.PCall(0, 0, nil)

	if argErr != nil {
		return nil, argErr
	}
	if timesCalled > 1 {
		return nil, fmt.Errorf("error while extracting module dependencies: 'modules' function was executed more than once")
	}

	sorted := append([]string(nil), extracted...)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("error while extracting module dependencies: '%s' appears more than once in dependency list", sorted[i])
		}
	}
	return extracted, nil
}

// CrossCheckModules requires the declared and provided module name sets to
// be exactly equal (original_source/lib/internals/LuaCompilationUtils.cpp
// CrossCheckDeclaredAndProvidedModules).
func CrossCheckModules(declared []string, provided map[string]*lua.LTable) error {
	if len(provided) == 0 && len(declared) == 0 {
		return nil
	}
	providedNames := make([]string, 0, len(provided))
	for name := range provided {
		providedNames = append(providedNames, name)
	}
	sort.Strings(providedNames)
	sortedDeclared := append([]string(nil), declared...)
	sort.Strings(sortedDeclared)

	if !stringsEqual(providedNames, sortedDeclared) {
		return fmt.Errorf("module dependencies declared in source code do not match those provided on create: declared=%v provided=%v", sortedDeclared, providedNames)
	}
	return nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CompileScript implements the 7-step compilation sequence from spec.md
// §4.E: module probe, cross-check, real load in LoadScript mode, optional
// init() in InitFunction mode, interface(IN, OUT) extraction in
// InterfaceFunction mode, and a permanent switch to RunFunction mode.
func CompileScript(host *sandbox.ScriptHost, id uint64, name, source string, userModules map[string]*lua.LTable, stdModules sandbox.StdLib) (*Node, error) {
	declared, err := ExtractModuleDependencies(source)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}
	if err := CrossCheckModules(declared, userModules); err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}

	modulesTable := sandbox.BuildModulesTable(host.L, userModules)
	env := host.NewEnvironment(stdModules, modulesTable)
	// Type-id constants (FLOAT, INT, ARRAY, ...) are raw table entries, not
	// mode-gated: like the standard-library subset, they must be visible
	// unconditionally so interface() can write e.g. `IN.speed = FLOAT`.
	typeextract.RegisterTypes(host.L, env.Vars)

	fn, err := host.LoadChunk(source, name, env)
	if err != nil {
		return nil, fmt.Errorf("[%s] error while loading script: %w", name, err)
	}

	if err := callInMode(host, env, sandbox.ModeLoadScript, fn); err != nil {
		return nil, fmt.Errorf("[%s] error while loading script: %w", name, err)
	}

	if env.Interface() == nil {
		return nil, fmt.Errorf("[%s] no 'interface' function defined!", name)
	}
	if env.Run() == nil {
		return nil, fmt.Errorf("[%s] no 'run' function defined!", name)
	}

	if init := env.Init(); init != nil {
		globalTable := host.L.NewTable()
		env.SetGlobalTable(globalTable)
		if err := callInMode(host, env, sandbox.ModeInitFunction, init); err != nil {
			return nil, fmt.Errorf("[%s] error while initializing script: %w", name, err)
		}
	}

	inRoot := typeextract.NewRoot("inputs")
	outRoot := typeextract.NewRoot("outputs")
	inUD := typeextract.NewUserData(host.L, inRoot)
	outUD := typeextract.NewUserData(host.L, outRoot)

	env.SetInOut(inUD, outUD)
	if err := callInMode(host, env, sandbox.ModeInterfaceFunction, env.Interface(), inUD, outUD); err != nil {
		return nil, fmt.Errorf("[%s] error while running interface(): %w", name, err)
	}

	inSchema, err := inRoot.Freeze()
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}
	outSchema, err := outRoot.Freeze()
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}

	tree := proptree.NewTree(id, inSchema, proptree.RoleScriptInput, outSchema, proptree.RoleScriptOutput)

	// From here on the environment stays in RunFunction mode.
	sandbox.Enter(env, sandbox.ModeRunFunction)

	n := &Node{
		Header: Header{ID: id, Name: name, Props: tree},
		Kind:   KindScript,
		Script: &ScriptBody{Source: source, Modules: declared, Env: env, Run: env.Run()},
	}
	n.wireDirty()
	return n, nil
}

// callInMode enters mode, invokes fn, and restores the previous mode
// regardless of outcome.
func callInMode(host *sandbox.ScriptHost, env *sandbox.Environment, mode sandbox.Mode, fn *lua.LFunction, args ...lua.LValue) error {
	g := sandbox.Enter(env, mode)
	defer g.Exit()
	_, err := host.CallProtected(fn, 0, args...)
	return err
}

// EvaluateScript invokes run(IN, OUT) in RunFunction mode with live
// property bridges over the node's own tree.
func EvaluateScript(host *sandbox.ScriptHost, n *Node) error {
	inRef, _ := n.Props.Root(true)
	outRef, _ := n.Props.Root(false)
	inUD := propbridge.NewReadOnlyUserData(host.L, n.Props, inRef)
	outUD := propbridge.NewUserData(host.L, n.Props, outRef)

	n.Script.Env.SetInOut(inUD, outUD)
	return callInMode(host, n.Script.Env, sandbox.ModeRunFunction, n.Script.Run, inUD, outUD)
}

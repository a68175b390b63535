package lnode

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/sandbox"
	"scenelogic/internal/typeextract"
)

// ModuleBody holds a compiled module's resulting table. A Module has no
// input/output property tree (Header.Props is nil) — it only contributes
// read-only Lua data/functions to the scripts and modules that depend on
// it.
type ModuleBody struct {
	Source   string
	Modules  []string // declared dependency names, in declaration order
	Table    *lua.LTable
	StdLibs  sandbox.StdLib // the standard-library subset this module was compiled with
}

// CompileModule runs source's entire body directly under Module protection
// and requires it to return a table, which is then wrapped read-only
// (recursively) before being handed to dependents. Grounded on
// original_source/lib/internals/LuaCompilationUtils.cpp's CompileModule:
// unlike a Script, a module chunk has no interface/init/run declaration
// step — the whole chunk runs once and its return value becomes the
// module's data.
func CompileModule(host *sandbox.ScriptHost, id uint64, name, source string, userModules map[string]*lua.LTable, stdModules sandbox.StdLib) (*Node, error) {
	declared, err := ExtractModuleDependencies(source)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}
	if err := CrossCheckModules(declared, userModules); err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}

	modulesTable := sandbox.BuildModulesTable(host.L, userModules)
	env := host.NewEnvironment(stdModules, modulesTable)
	// Interface-style type declarations are allowed inside a module body
	// too, so a module can export shared struct-type helpers to its
	// dependents (original_source's CompileModule registers the same
	// PropertyTypeExtractor constants before running the chunk).
	typeextract.RegisterTypes(host.L, env.Vars)

	fn, err := host.LoadChunk(source, name, env)
	if err != nil {
		return nil, fmt.Errorf("[%s] error while loading module: %w", name, err)
	}

	g := sandbox.Enter(env, sandbox.ModeModule)
	results, err := host.CallProtected(fn, 1)
	g.Exit()
	if err != nil {
		return nil, fmt.Errorf("[%s] error while loading module: %w", name, err)
	}

	if len(results) != 1 {
		return nil, fmt.Errorf("[%s] error while loading module: module script must return exactly one value", name)
	}
	table, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("[%s] error while loading module: module script must return a table!", name)
	}

	readOnly := sandbox.WrapModuleReadOnly(host.L, table)

	n := &Node{
		Header: Header{ID: id, Name: name},
		Kind:   KindModule,
		Module: &ModuleBody{Source: source, Modules: declared, Table: readOnly, StdLibs: stdModules},
	}
	return n, nil
}

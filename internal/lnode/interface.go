package lnode

import (
	"fmt"

	"scenelogic/internal/proptree"
	"scenelogic/internal/sandbox"
	"scenelogic/internal/typeextract"
)

// InterfaceBody holds an Interface node's compiled environment. Unlike a
// Script, only interface() is declared and there is no run closure: the
// node's own input and output roots share one frozen schema, and Evaluate
// copies the whole input subtree onto the output subtree each tick.
type InterfaceBody struct {
	Source string
	Env    *sandbox.Environment
}

// CompileInterface loads source, requires exactly one declared function
// (interface), and calls it with a single schema-extracting proxy whose
// frozen type becomes both the input and the output root schema (spec.md
// §4.E "Interface": "the same Property tree is both inputs and outputs").
// Grounded on original_source/lib/internals/LuaCompilationUtils.cpp's
// CompileInterface, which differs from CompileScript only in skipping the
// module probe and the run()/init() requirements.
func CompileInterface(host *sandbox.ScriptHost, id uint64, name, source string) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("interface name must not be empty")
	}

	env := host.NewEnvironment(sandbox.AllStdLibs, nil)
	typeextract.RegisterTypes(host.L, env.Vars)

	fn, err := host.LoadChunk(source, name, env)
	if err != nil {
		return nil, fmt.Errorf("[%s] error while loading interface: %w", name, err)
	}
	if err := callInMode(host, env, sandbox.ModeLoadScript, fn); err != nil {
		return nil, fmt.Errorf("[%s] error while loading interface: %w", name, err)
	}
	if env.Interface() == nil {
		return nil, fmt.Errorf("[%s] no 'interface' function defined!", name)
	}
	if env.Run() != nil {
		return nil, fmt.Errorf("[%s] an interface must not declare 'run'", name)
	}
	if env.Init() != nil {
		return nil, fmt.Errorf("[%s] an interface must not declare 'init'", name)
	}

	root := typeextract.NewRoot("inout")
	rootUD := typeextract.NewUserData(host.L, root)
	if err := callInMode(host, env, sandbox.ModeInterfaceFunction, env.Interface(), rootUD); err != nil {
		return nil, fmt.Errorf("[%s] error while running interface(): %w", name, err)
	}

	schema, err := root.Freeze()
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}

	tree := proptree.NewTree(id, schema, proptree.RoleInterfaceField, schema, proptree.RoleInterfaceField)

	n := &Node{
		Header:    Header{ID: id, Name: name, Props: tree},
		Kind:      KindInterface,
		Interface: &InterfaceBody{Source: source, Env: env},
	}
	n.wireDirty()
	return n, nil
}

// EvaluateInterface deep-copies the input root onto the output root so that
// downstream links see the interface's current values.
func EvaluateInterface(n *Node) error {
	in, _ := n.Props.Root(true)
	out, _ := n.Props.Root(false)
	return proptree.CopyValue(n.Props, in, n.Props, out)
}

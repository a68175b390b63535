// Package lnode implements the seven logic node kinds (spec.md §4.E) as a
// tagged variant over a shared Header, per spec.md §9's design note ("use a
// tagged variant... the shared node header is a plain struct shared by all
// variants"). Grounded on original_source/lib/impl/LuaScriptImpl.cpp,
// LuaModuleImpl.cpp and RamsesAppearanceBindingImpl.h, adapted from virtual
// inheritance to a single Kind discriminator with one populated body field.
package lnode

import "scenelogic/internal/proptree"

// Kind discriminates which body field of Node is populated.
type Kind int

const (
	KindScript Kind = iota
	KindInterface
	KindModule
	KindDataArray
	KindAnimation
	KindTimer
	KindBinding
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "Script"
	case KindInterface:
		return "Interface"
	case KindModule:
		return "Module"
	case KindDataArray:
		return "DataArray"
	case KindAnimation:
		return "AnimationNode"
	case KindTimer:
		return "TimerNode"
	case KindBinding:
		return "Binding"
	default:
		return "Unknown"
	}
}

// Header carries the attributes every logic node shares (spec.md §3
// "Logic node"): an engine-assigned id, an optional user id, a name, the
// single property tree holding its input/output roots (a tree may omit
// either root — e.g. a Binding has no output root, a Module has neither),
// and the dirty bit the scheduler reads and clears.
type Header struct {
	ID                    uint64
	UserIDHigh, UserIDLow uint64
	Name                  string
	Props                 *proptree.Tree
	Dirty                 bool
}

// Node is one logic node: the shared Header plus exactly one populated
// kind-specific body.
type Node struct {
	Header
	Kind Kind

	Script    *ScriptBody
	Interface *InterfaceBody
	Module    *ModuleBody
	DataArray *DataArrayBody
	Animation *AnimationBody
	Timer     *TimerBody
	Binding   *BindingBody
}

// MarkDirty sets the node's dirty bit; wired as every tree's OnNodeDirty
// callback so any property write (API or propagator) dirties the node.
func (n *Node) MarkDirty() { n.Dirty = true }

// wireDirty attaches n.MarkDirty to the node's tree.
func (n *Node) wireDirty() {
	if n.Props != nil {
		n.Props.OnNodeDirty = n.MarkDirty
	}
}

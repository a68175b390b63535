package logicengine

import (
	"strings"

	"scenelogic/internal/lnode"
	"scenelogic/internal/proptree"
)

// Kind names one of the seven logic node kinds spec.md §4.E defines.
// Exported as a small string enum rather than lnode.Kind itself, since
// internal/lnode is unimportable from outside this module.
type Kind string

const (
	KindScript    Kind = "script"
	KindInterface Kind = "interface"
	KindModule    Kind = "module"
	KindDataArray Kind = "dataarray"
	KindAnimation Kind = "animation"
	KindTimer     Kind = "timer"
	KindBinding   Kind = "binding"
)

func (k Kind) internal() lnode.Kind {
	switch k {
	case KindScript:
		return lnode.KindScript
	case KindInterface:
		return lnode.KindInterface
	case KindModule:
		return lnode.KindModule
	case KindDataArray:
		return lnode.KindDataArray
	case KindAnimation:
		return lnode.KindAnimation
	case KindTimer:
		return lnode.KindTimer
	case KindBinding:
		return lnode.KindBinding
	default:
		return lnode.Kind(-1)
	}
}

func fromInternalKind(k lnode.Kind) Kind {
	switch k {
	case lnode.KindScript:
		return KindScript
	case lnode.KindInterface:
		return KindInterface
	case lnode.KindModule:
		return KindModule
	case lnode.KindDataArray:
		return KindDataArray
	case lnode.KindAnimation:
		return KindAnimation
	case lnode.KindTimer:
		return KindTimer
	case lnode.KindBinding:
		return KindBinding
	default:
		return Kind(k.String())
	}
}

// Object is a handle to one logic node: its engine id, name, kind, and
// (privately) the underlying node the façade's Create*/Link/Update
// operations act on. The zero Object is never valid; every Object a caller
// holds came from a Create* call or a lookup (FindByID, FindByName, All).
type Object struct {
	ID   uint64
	Name string
	Kind Kind

	node *lnode.Node
}

func wrap(n *lnode.Node) *Object {
	if n == nil {
		return nil
	}
	return &Object{ID: n.ID, Name: n.Name, Kind: fromInternalKind(n.Kind), node: n}
}

// Dirty reports whether o is due for re-evaluation on the next Update.
func (o *Object) Dirty() bool { return o.node.Dirty }

// unwrapAll converts a name -> *Object dependency map into the
// name -> *lnode.Node shape internal/engine's Create* calls expect.
func unwrapAll(deps map[string]*Object) map[string]*lnode.Node {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]*lnode.Node, len(deps))
	for name, o := range deps {
		out[name] = o.node
	}
	return out
}

// PropertyRef names one property of one Object: an input or output root,
// or a dot-separated path into it ("translation.x"). It is the unit
// Link/LinkWeak/Unlink operate on, standing in for internal/proptree's
// PropertyRef (unexported outside this module) the way spec.md §4.A's
// "property handle" is described in language-neutral terms.
type PropertyRef struct {
	obj *Object
	ref proptree.PropertyRef
}

// Object returns the Object the property belongs to.
func (p PropertyRef) Object() *Object { return p.obj }

// Input resolves a dot-separated path under o's input root ("" selects
// the root itself). The second return is false if o has no input root, or
// no child matches the path.
func (o *Object) Input(path string) (PropertyRef, bool) {
	return o.resolve(true, path)
}

// Output resolves a dot-separated path under o's output root.
func (o *Object) Output(path string) (PropertyRef, bool) {
	return o.resolve(false, path)
}

func (o *Object) resolve(input bool, path string) (PropertyRef, bool) {
	root, ok := o.node.Props.Root(input)
	if !ok {
		return PropertyRef{}, false
	}
	ref := root
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			child, ok := o.node.Props.ChildByName(ref, part)
			if !ok {
				return PropertyRef{}, false
			}
			ref = child
		}
	}
	return PropertyRef{obj: o, ref: ref}, true
}

// IsLinked reports whether any property of o participates in a link.
func (le *LogicEngine) IsLinked(o *Object) bool {
	return le.eng.IsLinked(o.ID)
}

// Link records src -> dst as a strong edge (spec.md §4.F).
func (le *LogicEngine) Link(src, dst PropertyRef) error {
	return le.eng.Link(src.ref, dst.ref)
}

// LinkWeak records src -> dst as a weak edge: dst reads src's value as of
// the start of the tick, and a weak edge never participates in cycle
// detection (spec.md §4.F).
func (le *LogicEngine) LinkWeak(src, dst PropertyRef) error {
	return le.eng.LinkWeak(src.ref, dst.ref)
}

// Unlink removes the exact edge src -> dst.
func (le *LogicEngine) Unlink(src, dst PropertyRef) error {
	return le.eng.Unlink(src.ref, dst.ref)
}

// GraphEdge is one recorded link between two nodes, node-id granular
// (internal/linkgraph.Edge is property-granular, but a node-level view is
// what cmd/scenelogic-diag's /graph endpoint renders).
type GraphEdge struct {
	SrcNodeID, DstNodeID uint64
	Weak                 bool
}

// Edges returns every recorded link, for diagnostics and introspection.
func (le *LogicEngine) Edges() []GraphEdge {
	raw := le.eng.Edges()
	if len(raw) == 0 {
		return nil
	}
	out := make([]GraphEdge, len(raw))
	for i, e := range raw {
		out[i] = GraphEdge{SrcNodeID: e.Src.NodeID, DstNodeID: e.Dst.NodeID, Weak: e.Weak}
	}
	return out
}

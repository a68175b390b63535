package lnode

import (
	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// Receiver is the external resource a Binding pushes values into (a ramses
// scene node's uniform, viewport, transform, etc., per SPEC_FULL.md §4
// BINDINGS). Push is called once per leaf property whose "new value
// pending" flag was set since the last Update.
type Receiver interface {
	Push(path string, value ltypes.Value) error
}

// ExternalRef identifies the external scene object a Binding targets: the
// (name, id) pair spec.md §6 says a Binding persists so that, at load time,
// a caller-supplied scene_resolver can look the same object up again.
type ExternalRef struct {
	Name string
	ID   uint64
}

// BindingBody is an input-only logic node (spec.md §4.E "Binding (abstract
// leaf)"): its input tree mirrors a fixed schema appropriate to the
// external resource it targets, and it never appears as a link source.
// Kind is the create_binding_<kind> discriminator (spec.md §6) — the value
// internal/binding's schema constructors hand back, used by the serializer
// to route a Binding into its proper ApiObjects vector (node-bindings,
// appearance-bindings, camera-bindings, ...).
type BindingBody struct {
	Kind     string
	External ExternalRef
	Receiver Receiver
}

// NewBindingNode builds a Binding over schema (the concrete shape — e.g.
// internal/binding's transform/uniform/camera/render-pass schemas), with
// every leaf property given RoleBindingInput so any write latches
// NewValuePending regardless of whether the value changed.
func NewBindingNode(id uint64, name, kind string, schema *ltypes.HierarchicalType, external ExternalRef, receiver Receiver) *Node {
	tree := proptree.NewTree(id, schema, proptree.RoleBindingInput, nil, proptree.RoleBindingInput)

	n := &Node{
		Header:  Header{ID: id, Name: name, Props: tree},
		Kind:    KindBinding,
		Binding: &BindingBody{Kind: kind, External: external, Receiver: receiver},
	}
	n.wireDirty()
	return n
}

// EvaluateBinding walks every leaf of the binding's input tree, pushing and
// clearing the ones with a pending new value.
func EvaluateBinding(n *Node) error {
	in, ok := n.Props.Root(true)
	if !ok {
		return nil
	}
	return flushPending(n.Props, in, "", n.Binding.Receiver)
}

// flushPending recurses a binding's input subtree, building a dotted path
// (e.g. "viewport.width") for each leaf it pushes.
func flushPending(tree *proptree.Tree, ref proptree.PropertyRef, path string, receiver Receiver) error {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		v, pending := tree.ConsumePending(ref)
		if !pending {
			return nil
		}
		return receiver.Push(path, v)
	}
	n := tree.ChildCount(ref)
	for i := 0; i < n; i++ {
		child, _ := tree.ChildByIndex(ref, i)
		childPath := tree.Name(child)
		if path != "" {
			childPath = path + "." + childPath
		}
		if err := flushPending(tree, child, childPath, receiver); err != nil {
			return err
		}
	}
	return nil
}

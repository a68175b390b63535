// Package proptree implements the property tree: a hierarchical, typed
// value store owned by exactly one logic node. Per spec.md §9's design
// note, it uses a node-owned arena keyed by index rather than back-pointers:
// every logic node owns one Tree, every Property lives in Tree.Props, and a
// PropertyRef{NodeID, Index} is the only handle passed around externally
// (links, Lua userdata, serialization) — this removes the property<->node
// reference cycles the original C++ implementation carries.
package proptree

import (
	"fmt"

	"scenelogic/internal/ltypes"
)

// PropertyRef stably identifies a property: which node owns it, and its
// index within that node's arena. The zero value is never a valid ref
// (node id 0 is never assigned; IsZero tests for it).
type PropertyRef struct {
	NodeID uint64
	Index  int32
}

// IsZero reports whether r is the unset reference.
func (r PropertyRef) IsZero() bool { return r.NodeID == 0 && r.Index == 0 }

// Property is one node in a Tree. Composite properties (Struct, Array) carry
// Children and no Value; leaf properties carry a Value and no Children.
type Property struct {
	Name   string
	Schema *ltypes.HierarchicalType
	Value  ltypes.Value

	ParentIndex int32 // -1 for a root
	Children    []int32

	Role Role

	// NewValuePending is the "new binding value pending" latch (spec.md
	// §4.A/§4.F): for RoleBindingInput it is set on every write regardless
	// of whether the value actually changed, and cleared by the Binding's
	// evaluator once it has pushed the value out.
	NewValuePending bool

	// Incoming is the single link feeding this property, if any (only
	// meaningful for input-frontier / interface properties).
	Incoming *PropertyRef
	// Outgoing fans out to every linked target (only meaningful for
	// output-frontier / interface properties).
	Outgoing []PropertyRef
}

// Tree is the arena owned by one logic node.
type Tree struct {
	NodeID     uint64
	Props      []Property
	InputRoot  int32
	OutputRoot int32

	// OnNodeDirty is invoked whenever a write should mark the owning logic
	// node dirty (changed non-binding value, or any binding-input write).
	// The logic node sets this after constructing its Tree.
	OnNodeDirty func()
}

// NewTree allocates a tree for nodeID with optional input/output root
// schemas built under the given roles. Pass a nil schema to omit that root
// (e.g. a TimerNode has no input root).
func NewTree(nodeID uint64, inputSchema *ltypes.HierarchicalType, inputRole Role, outputSchema *ltypes.HierarchicalType, outputRole Role) *Tree {
	t := &Tree{NodeID: nodeID, InputRoot: -1, OutputRoot: -1}
	if inputSchema != nil {
		t.InputRoot = t.materialize("", inputSchema, inputRole, -1)
	}
	if outputSchema != nil {
		t.OutputRoot = t.materialize("", outputSchema, outputRole, -1)
	}
	return t
}

// materialize recursively builds Property nodes from a frozen schema,
// appending to t.Props, and returns the index of the newly built node.
func (t *Tree) materialize(name string, schema *ltypes.HierarchicalType, role Role, parent int32) int32 {
	idx := int32(len(t.Props))
	t.Props = append(t.Props, Property{
		Name:        name,
		Schema:      schema,
		Role:        role,
		ParentIndex: parent,
	})
	if schema.Kind.IsPrimitiveOrVector() {
		t.Props[idx].Value = ltypes.Zero(schema.Kind)
		return idx
	}
	switch schema.Kind {
	case ltypes.Struct:
		children := make([]int32, 0, len(schema.Fields))
		for _, f := range schema.Fields {
			children = append(children, t.materialize(f.Name, f.Type, role, idx))
		}
		t.Props[idx].Children = children
	case ltypes.Array:
		children := make([]int32, 0, schema.ArrayLen)
		for i := 0; i < schema.ArrayLen; i++ {
			// Array elements carry empty names and an identical deep-copied
			// schema per spec.md §4.A; since HierarchicalType is frozen and
			// immutable we can safely share the *same* schema pointer across
			// elements without a literal deep copy.
			children = append(children, t.materialize("", schema.ArrayElement, role, idx))
		}
		t.Props[idx].Children = children
	}
	return idx
}

func (t *Tree) prop(ref PropertyRef) (*Property, error) {
	if ref.NodeID != t.NodeID {
		return nil, fmt.Errorf("proptree: ref belongs to node %d, not %d", ref.NodeID, t.NodeID)
	}
	if ref.Index < 0 || int(ref.Index) >= len(t.Props) {
		return nil, fmt.Errorf("proptree: index %d out of range", ref.Index)
	}
	return &t.Props[ref.Index], nil
}

// MustProp is prop without the bounds/ownership error, for callers who
// already validated the ref (e.g. the scheduler walking its own edge list).
func (t *Tree) MustProp(ref PropertyRef) *Property {
	p, err := t.prop(ref)
	if err != nil {
		panic(err)
	}
	return p
}

// Root returns the ref for the input or output root, or a false ok if the
// tree has none.
func (t *Tree) Root(input bool) (PropertyRef, bool) {
	idx := t.OutputRoot
	if input {
		idx = t.InputRoot
	}
	if idx < 0 {
		return PropertyRef{}, false
	}
	return PropertyRef{NodeID: t.NodeID, Index: idx}, true
}

// ChildCount returns the number of children of a Struct/Array property.
func (t *Tree) ChildCount(ref PropertyRef) int {
	p := t.MustProp(ref)
	return len(p.Children)
}

// ChildByIndex does a direct index lookup (O(1); arrays and structs both
// support it since children are stored densely).
func (t *Tree) ChildByIndex(ref PropertyRef, i int) (PropertyRef, bool) {
	p := t.MustProp(ref)
	if i < 0 || i >= len(p.Children) {
		return PropertyRef{}, false
	}
	return PropertyRef{NodeID: t.NodeID, Index: p.Children[i]}, true
}

// ChildByName does a linear scan by name, matching spec.md §4.A ("linear
// scan by design; structs rarely exceed tens of fields").
func (t *Tree) ChildByName(ref PropertyRef, name string) (PropertyRef, bool) {
	p := t.MustProp(ref)
	for _, c := range p.Children {
		if t.Props[c].Name == name {
			return PropertyRef{NodeID: t.NodeID, Index: c}, true
		}
	}
	return PropertyRef{}, false
}

// Name, SchemaOf, RoleOf are small read accessors used by the Lua bridge
// and serializer.
func (t *Tree) Name(ref PropertyRef) string                    { return t.MustProp(ref).Name }
func (t *Tree) SchemaOf(ref PropertyRef) *ltypes.HierarchicalType { return t.MustProp(ref).Schema }
func (t *Tree) RoleOf(ref PropertyRef) Role                     { return t.MustProp(ref).Role }
func (t *Tree) ParentOf(ref PropertyRef) (PropertyRef, bool) {
	p := t.MustProp(ref)
	if p.ParentIndex < 0 {
		return PropertyRef{}, false
	}
	return PropertyRef{NodeID: t.NodeID, Index: p.ParentIndex}, true
}

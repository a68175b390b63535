package proptree

import (
	"fmt"

	"scenelogic/internal/ltypes"
)

// ErrTypeMismatch, ErrReadOnly, ErrNotLeaf are the sentinel-ish error kinds
// Get/Set can return. They reach callers unchanged: nothing translates them
// into internal/lerrors kinds, and proptree itself stays dependency-free.
var (
	ErrTypeMismatch = fmt.Errorf("proptree: type mismatch")
	ErrReadOnly     = fmt.Errorf("proptree: property is read-only")
	ErrNotLeaf      = fmt.Errorf("proptree: property is not a primitive or vector")
)

// Get returns the stored value of a leaf property, or ErrNotLeaf /
// ErrTypeMismatch if ref does not resolve to a primitive/vector of type t.
// This implements Property::get<T>() -> Option<T> (spec.md §4.A): the
// "Option" is expressed here as an error, since the caller always supplies
// the type it expects and a mismatch is a caller bug worth surfacing, not a
// silent None.
func (t *Tree) Get(ref PropertyRef, want ltypes.Type) (ltypes.Value, error) {
	p, err := t.prop(ref)
	if err != nil {
		return ltypes.Value{}, err
	}
	if !p.Schema.Kind.IsPrimitiveOrVector() {
		return ltypes.Value{}, ErrNotLeaf
	}
	if p.Schema.Kind != want {
		return ltypes.Value{}, fmt.Errorf("%w: property %q is %s, requested %s", ErrTypeMismatch, p.Name, p.Schema.Kind, want)
	}
	return p.Value, nil
}

// GetAny returns the stored value with whatever type the property declares,
// for callers (Lua bridge, serializer) that already know the schema.
func (t *Tree) GetAny(ref PropertyRef) (ltypes.Value, error) {
	p, err := t.prop(ref)
	if err != nil {
		return ltypes.Value{}, err
	}
	if !p.Schema.Kind.IsPrimitiveOrVector() {
		return ltypes.Value{}, ErrNotLeaf
	}
	return p.Value, nil
}

// Set implements Property::set<T>(v) -> Result (spec.md §4.A): fails with
// ErrTypeMismatch on type disagreement, ErrReadOnly if the role forbids
// external writes, and on success dirties the owning node only if the
// stored value actually changed — except binding inputs, which always
// latch NewValuePending and always dirty the node (so repeated identical
// writes still force a re-push, per the Dirty-minimization testable
// property in spec.md §8).
func (t *Tree) Set(ref PropertyRef, v ltypes.Value) error {
	p, err := t.prop(ref)
	if err != nil {
		return err
	}
	if !p.Schema.Kind.IsPrimitiveOrVector() {
		return ErrNotLeaf
	}
	if p.Schema.Kind != v.Type {
		return fmt.Errorf("%w: property %q is %s, value is %s", ErrTypeMismatch, p.Name, p.Schema.Kind, v.Type)
	}
	if !p.Role.externallyWritable() {
		return fmt.Errorf("%w: property %q has role %s", ErrReadOnly, p.Name, p.Role)
	}

	if p.Role.IsBindingInput() {
		p.Value = v
		p.NewValuePending = true
		t.fireDirty()
		return nil
	}

	changed := !p.Value.Equal(v)
	p.Value = v
	if changed {
		t.fireDirty()
	}
	return nil
}

// SetInternal is the propagator/evaluator path (spec.md §4.A): it bypasses
// role checks entirely (used to write Script outputs, Interface fields,
// Animation outputs, and to copy link values into input properties) and,
// for binding inputs, always latches NewValuePending without comparing to
// the previous value — exactly like Set, except no ReadOnly check.
func (t *Tree) SetInternal(ref PropertyRef, v ltypes.Value) error {
	p, err := t.prop(ref)
	if err != nil {
		return err
	}
	if !p.Schema.Kind.IsPrimitiveOrVector() {
		return ErrNotLeaf
	}
	if p.Schema.Kind != v.Type {
		return fmt.Errorf("%w: property %q is %s, value is %s", ErrTypeMismatch, p.Name, p.Schema.Kind, v.Type)
	}

	if p.Role.IsBindingInput() {
		p.Value = v
		p.NewValuePending = true
		t.fireDirty()
		return nil
	}

	changed := !p.Value.Equal(v)
	p.Value = v
	if changed {
		t.fireDirty()
	}
	return nil
}

func (t *Tree) fireDirty() {
	if t.OnNodeDirty != nil {
		t.OnNodeDirty()
	}
}

// ConsumePending reports and clears a binding input's NewValuePending latch;
// used by Binding evaluators (spec.md §4.E).
func (t *Tree) ConsumePending(ref PropertyRef) (ltypes.Value, bool) {
	p := t.MustProp(ref)
	if !p.NewValuePending {
		return ltypes.Value{}, false
	}
	v := p.Value
	p.NewValuePending = false
	return v, true
}

// IsPending reports a binding input's NewValuePending latch without
// clearing it, for read-only inspection (e.g. validation warnings).
func (t *Tree) IsPending(ref PropertyRef) bool {
	return t.MustProp(ref).NewValuePending
}

// Equal performs the recursive structural equality spec.md §4.F requires
// for dirty-suppression on composite properties: primitives by value,
// composites by recursing over children in order.
func (t *Tree) Equal(a, b PropertyRef) bool {
	pa, pb := t.MustProp(a), t.MustProp(b)
	if pa.Schema.Kind != pb.Schema.Kind {
		return false
	}
	if pa.Schema.Kind.IsPrimitiveOrVector() {
		return pa.Value.Equal(pb.Value)
	}
	if len(pa.Children) != len(pb.Children) {
		return false
	}
	for i := range pa.Children {
		ca := PropertyRef{NodeID: t.NodeID, Index: pa.Children[i]}
		cb := PropertyRef{NodeID: t.NodeID, Index: pb.Children[i]}
		if !t.Equal(ca, cb) {
			return false
		}
	}
	return true
}

// CopyValue deep-copies the value of src (in tree t) into dst (in tree
// dstTree) via SetInternal, recursing over Struct/Array children in
// declaration order. Used by the link-graph propagator to move a source
// output's value into a linked target input, and by Interface nodes to
// mirror their "inputs" onto their "outputs" each tick.
func CopyValue(srcTree *Tree, src PropertyRef, dstTree *Tree, dst PropertyRef) error {
	sp := srcTree.MustProp(src)
	dp := dstTree.MustProp(dst)
	if sp.Schema.Kind != dp.Schema.Kind {
		return fmt.Errorf("%w: copying %s into %s", ErrTypeMismatch, sp.Schema.Kind, dp.Schema.Kind)
	}
	if sp.Schema.Kind.IsPrimitiveOrVector() {
		return dstTree.SetInternal(dst, sp.Value)
	}
	if len(sp.Children) != len(dp.Children) {
		return fmt.Errorf("proptree: structural mismatch copying composite value (%d vs %d children)", len(sp.Children), len(dp.Children))
	}
	for i := range sp.Children {
		sc := PropertyRef{NodeID: srcTree.NodeID, Index: sp.Children[i]}
		dc := PropertyRef{NodeID: dstTree.NodeID, Index: dp.Children[i]}
		if err := CopyValue(srcTree, sc, dstTree, dc); err != nil {
			return err
		}
	}
	return nil
}

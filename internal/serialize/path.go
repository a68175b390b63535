package serialize

import "scenelogic/internal/proptree"

// propertyPath walks ref up to its tree's root, recording the child index
// taken at each step, and returns the path root-to-ref. Link endpoints need
// this (a value stored by position in one tree, since two trees being
// linked are never structurally identical); a node's own input/output
// values don't — those round-trip by walking both trees in lockstep
// instead (see valuesTree below), since a reloaded Script/Interface/
// Animation/Timer/Binding's schema is always rebuilt identically to the one
// that was saved.
func propertyPath(tree *proptree.Tree, ref proptree.PropertyRef) []int32 {
	var path []int32
	cur := ref
	for {
		parent, ok := tree.ParentOf(cur)
		if !ok {
			break
		}
		path = append(path, childPosition(tree, parent, cur))
		cur = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// childPosition finds child's index among parent's children via a linear
// scan, matching the rest of proptree's "linear scan by design" philosophy
// (internal/proptree/access.go).
func childPosition(tree *proptree.Tree, parent, child proptree.PropertyRef) int32 {
	n := tree.ChildCount(parent)
	for i := 0; i < n; i++ {
		c, _ := tree.ChildByIndex(parent, i)
		if c == child {
			return int32(i)
		}
	}
	panic("serialize: child not found under its recorded parent")
}

// resolvePath walks root down through path's child indices.
func resolvePath(tree *proptree.Tree, root proptree.PropertyRef, path []int32) (proptree.PropertyRef, bool) {
	cur := root
	for _, idx := range path {
		next, ok := tree.ChildByIndex(cur, int(idx))
		if !ok {
			return proptree.PropertyRef{}, false
		}
		cur = next
	}
	return cur, true
}

// valuesTree writes every leaf value under ref in a fixed preorder (primary
// type first, then children in declaration order). reader.valuesTree replays
// the same preorder against an independently reconstructed tree of
// identical shape, so no per-leaf path needs to be stored at all.
func (w *writer) valuesTree(tree *proptree.Tree, ref proptree.PropertyRef) {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		v, err := tree.GetAny(ref)
		if err != nil {
			w.fail(err)
			return
		}
		w.value(v)
		return
	}
	n := tree.ChildCount(ref)
	for i := 0; i < n; i++ {
		child, _ := tree.ChildByIndex(ref, i)
		w.valuesTree(tree, child)
	}
}

func (r *reader) valuesTree(tree *proptree.Tree, ref proptree.PropertyRef) {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		v := r.value()
		if r.err != nil {
			return
		}
		if err := tree.SetInternal(ref, v); err != nil {
			r.fail(err)
		}
		return
	}
	n := tree.ChildCount(ref)
	for i := 0; i < n; i++ {
		child, _ := tree.ChildByIndex(ref, i)
		r.valuesTree(tree, child)
	}
}

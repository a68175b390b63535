package engine

import (
	"scenelogic/internal/lerrors"
	"scenelogic/internal/lnode"
	"scenelogic/internal/proptree"
)

// Validate runs the checks save() refuses on unless overridden by
// SaveConfig.IgnoreValidationWarnings (spec.md §7): unlinked interface
// outputs, binding inputs that were set but never flushed by an update,
// and modules no script or module currently depends on. Every finding is a
// lerrors.ValidationWarning, which HasBlocking() already treats as
// non-fatal on its own.
func (e *Engine) Validate() []*lerrors.Error {
	var warnings []*lerrors.Error
	warnings = append(warnings, e.validateInterfaceOutputs()...)
	warnings = append(warnings, e.validateBindingInputs()...)
	warnings = append(warnings, e.validateOrphanedModules()...)
	return warnings
}

// validateInterfaceOutputs flags Interface nodes with an output leaf that
// feeds nothing, since an Interface's only purpose is to be linked.
func (e *Engine) validateInterfaceOutputs() []*lerrors.Error {
	var out []*lerrors.Error
	for _, n := range e.All(lnode.KindInterface) {
		root, ok := n.Props.Root(false)
		if !ok {
			continue
		}
		for _, leaf := range unlinkedOutputLeaves(n.Props, root) {
			out = append(out, lerrors.New(lerrors.ValidationWarning,
				"interface %q output %q is not linked to anything", n.Name, n.Props.Name(leaf)).
				WithObject(n.ID, n.Name))
		}
	}
	return out
}

// unlinkedOutputLeaves walks ref's subtree and collects the leaves with no
// Outgoing links.
func unlinkedOutputLeaves(tree *proptree.Tree, ref proptree.PropertyRef) []proptree.PropertyRef {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		if len(tree.Outgoing(ref)) == 0 {
			return []proptree.PropertyRef{ref}
		}
		return nil
	}
	var out []proptree.PropertyRef
	for i := 0; i < tree.ChildCount(ref); i++ {
		child, _ := tree.ChildByIndex(ref, i)
		out = append(out, unlinkedOutputLeaves(tree, child)...)
	}
	return out
}

// validateBindingInputs flags Binding nodes holding an input write that has
// never been consumed by an update() (NewValuePending scanned, not
// cleared — Validate must not have side effects on the tick state).
func (e *Engine) validateBindingInputs() []*lerrors.Error {
	var out []*lerrors.Error
	for _, n := range e.All(lnode.KindBinding) {
		root, ok := n.Props.Root(true)
		if !ok {
			continue
		}
		if hasPendingLeaf(n.Props, root) {
			out = append(out, lerrors.New(lerrors.ValidationWarning,
				"binding %q has a value set but never pushed by update()", n.Name).
				WithObject(n.ID, n.Name))
		}
	}
	return out
}

func hasPendingLeaf(tree *proptree.Tree, ref proptree.PropertyRef) bool {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		return tree.IsPending(ref)
	}
	for i := 0; i < tree.ChildCount(ref); i++ {
		child, _ := tree.ChildByIndex(ref, i)
		if hasPendingLeaf(tree, child) {
			return true
		}
	}
	return false
}

// validateOrphanedModules flags Module nodes no Script or Module has ever
// listed as a dependency at creation time.
func (e *Engine) validateOrphanedModules() []*lerrors.Error {
	var out []*lerrors.Error
	for _, n := range e.All(lnode.KindModule) {
		if !e.referencedModules[n.ID] {
			out = append(out, lerrors.New(lerrors.ValidationWarning,
				"module %q is not used by any script or module", n.Name).
				WithObject(n.ID, n.Name))
		}
	}
	return out
}

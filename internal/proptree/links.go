package proptree

// AttachOutgoing records that ref (an output-side or interface property) now
// feeds target, appending to its Outgoing list. The link graph itself
// (internal/linkgraph) owns edge validation; this just maintains the
// per-property bookkeeping the spec requires ("an incoming-link and
// outgoing-link list, populated only on input/output frontiers").
func (t *Tree) AttachOutgoing(ref, target PropertyRef) {
	p := t.MustProp(ref)
	p.Outgoing = append(p.Outgoing, target)
}

// DetachOutgoing removes one occurrence of target from ref's Outgoing list.
func (t *Tree) DetachOutgoing(ref, target PropertyRef) {
	p := t.MustProp(ref)
	for i, o := range p.Outgoing {
		if o == target {
			p.Outgoing = append(p.Outgoing[:i], p.Outgoing[i+1:]...)
			return
		}
	}
}

// SetIncoming records ref's single incoming link source (input-side or
// interface property may have at most one, per spec.md §3 Link invariant).
func (t *Tree) SetIncoming(ref, source PropertyRef) {
	p := t.MustProp(ref)
	src := source
	p.Incoming = &src
}

// ClearIncoming removes ref's incoming link.
func (t *Tree) ClearIncoming(ref PropertyRef) {
	t.MustProp(ref).Incoming = nil
}

// HasIncoming reports whether ref already has an incoming link (used to
// enforce "target has at most one incoming link").
func (t *Tree) HasIncoming(ref PropertyRef) bool {
	return t.MustProp(ref).Incoming != nil
}

// Outgoing returns a copy of ref's outgoing target list.
func (t *Tree) Outgoing(ref PropertyRef) []PropertyRef {
	p := t.MustProp(ref)
	out := make([]PropertyRef, len(p.Outgoing))
	copy(out, p.Outgoing)
	return out
}

// IsLinked reports whether ref participates in any link, as either source
// or target (backs the façade's is_linked(object) operation at the node
// level — the engine façade ORs this over every property in the node).
func (t *Tree) IsLinked(ref PropertyRef) bool {
	p := t.MustProp(ref)
	return p.Incoming != nil || len(p.Outgoing) > 0
}

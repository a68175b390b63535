package lnode

import (
	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// TimerBody distinguishes a free-running TimerNode (no input, the engine
// supplies elapsed real time each tick) from an externally-driven one (a
// `ticker_us` input the caller writes directly), per spec.md §4.E
// "TimerNode".
type TimerBody struct {
	External bool
}

// NewTimerNode builds a TimerNode. When external is true, the node gets a
// `ticker_us` (Int64) input the caller drives; otherwise it has no input
// root and the nowMicros value passed to EvaluateTimer feeds its output
// directly.
func NewTimerNode(id uint64, name string, external bool) *Node {
	outSchema := ltypes.Leaf(ltypes.Int64)
	var tree *proptree.Tree
	if external {
		inSchema := ltypes.Leaf(ltypes.Int64)
		tree = proptree.NewTree(id, inSchema, proptree.RoleBindingInput, outSchema, proptree.RoleTimerOutput)
	} else {
		tree = proptree.NewTree(id, nil, proptree.RoleBindingInput, outSchema, proptree.RoleTimerOutput)
	}

	n := &Node{
		Header: Header{ID: id, Name: name, Props: tree},
		Kind:   KindTimer,
		Timer:  &TimerBody{External: external},
	}
	n.wireDirty()
	return n
}

// EvaluateTimer pushes the current tick time (microseconds) to ticker_us.
// In external mode, nowMicros is ignored: the already-latched input value
// (the caller's own ticker_us write) is what gets echoed to the output,
// consuming its "new value pending" bit so that a held, un-rewritten input
// does not keep forcing the node dirty forever — matching a Binding's own
// flush-on-pending contract (spec.md §4.E "Binding"), which TimerNode's
// external mode mirrors.
func EvaluateTimer(n *Node, nowMicros int64) error {
	out, _ := n.Props.Root(false)
	if !n.Timer.External {
		return n.Props.SetInternal(out, ltypes.Int64Value(nowMicros))
	}
	in, hasIn := n.Props.Root(true)
	if !hasIn {
		return n.Props.SetInternal(out, ltypes.Int64Value(nowMicros))
	}
	v, pending := n.Props.ConsumePending(in)
	if !pending {
		v, _ = n.Props.GetAny(in)
	}
	return n.Props.SetInternal(out, v)
}

// IsTimerAlwaysDirty reports that a TimerNode should be marked dirty every
// tick regardless of whether its own write changed anything, since it is
// what drives the rest of the graph forward (spec.md §4.E: "Always dirty
// (drives the graph each tick)").
func IsTimerAlwaysDirty(n *Node) bool {
	return n.Kind == KindTimer
}

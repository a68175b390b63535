package linkgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// scriptTree builds a minimal two-root tree standing in for a script node:
// one unnamed Float input root and one unnamed Float output root, wired to
// dirty a bool flag the test can observe.
func scriptTree(id uint64) (*proptree.Tree, *bool) {
	in := ltypes.Leaf(ltypes.Float)
	out := ltypes.Leaf(ltypes.Float)
	tree := proptree.NewTree(id, in, proptree.RoleScriptInput, out, proptree.RoleScriptOutput)
	dirty := false
	tree.OnNodeDirty = func() { dirty = true }
	return tree, &dirty
}

func TestLinkRejectsWrongFrontierDirection(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	bOut, _ := b.Root(false)
	require.Error(t, g.Link(aOut, bOut, false), "expected linking output to output to fail")
}

func TestLinkRejectsTypeMismatch(t *testing.T) {
	g := New()
	aTree := proptree.NewTree(1, ltypes.Leaf(ltypes.Float), proptree.RoleScriptInput, ltypes.Leaf(ltypes.Float), proptree.RoleScriptOutput)
	bTree := proptree.NewTree(2, ltypes.Leaf(ltypes.Int32), proptree.RoleScriptInput, ltypes.Leaf(ltypes.Int32), proptree.RoleScriptOutput)
	g.Register(1, aTree)
	g.Register(2, bTree)

	aOut, _ := aTree.Root(false)
	bIn, _ := bTree.Root(true)
	require.Error(t, g.Link(aOut, bIn, false), "expected a type mismatch to be rejected")
}

func TestLinkRejectsDuplicateIncoming(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	c, _ := scriptTree(3)
	g.Register(1, a)
	g.Register(2, b)
	g.Register(3, c)

	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	cOut, _ := c.Root(false)

	require.NoError(t, g.Link(aOut, bIn, false))
	require.Error(t, g.Link(cOut, bIn, false), "expected a second incoming link on the same target to be rejected")
}

func TestLinkRejectsStrongCycle(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	aIn, _ := a.Root(true)
	bOut, _ := b.Root(false)
	bIn, _ := b.Root(true)

	require.NoError(t, g.Link(aOut, bIn, false))
	require.Error(t, g.Link(bOut, aIn, false), "expected closing a strong cycle to fail")
	require.NoError(t, g.Link(bOut, aIn, true), "expected the same edge as weak to succeed")
}

func TestOrderIsTopological(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	c, _ := scriptTree(3)
	g.Register(3, c)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	bOut, _ := b.Root(false)
	cIn, _ := c.Root(true)
	require.NoError(t, g.Link(aOut, bIn, false))
	require.NoError(t, g.Link(bOut, cIn, false))

	order, err := g.Order()
	require.NoError(t, err)
	pos := map[uint64]int{}
	for i, id := range order {
		pos[id] = i
	}
	require.True(t, pos[1] < pos[2] && pos[2] < pos[3], "expected topological order 1,2,3; got %v", order)
}

func TestUnlinkThenPullInputsDoesNotPropagate(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	require.NoError(t, g.Link(aOut, bIn, false))
	a.SetInternal(aOut, ltypes.FloatValue(3))
	require.NoError(t, g.PullInputs(2))
	v, _ := b.GetAny(bIn)
	require.Equal(t, float32(3), v.F)

	require.NoError(t, g.Unlink(aOut, bIn))
	a.SetInternal(aOut, ltypes.FloatValue(9))
	require.NoError(t, g.PullInputs(2))
	v, _ = b.GetAny(bIn)
	require.Equal(t, float32(3), v.F, "expected b.in to stay 3 after unlink")
}

func TestWeakEdgeReadsPreviousTickSnapshot(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	require.NoError(t, g.Link(aOut, bIn, true))

	a.SetInternal(aOut, ltypes.FloatValue(1))
	g.MarkEvaluated(1) // a has produced an output by now; its weak edges may snapshot
	g.BeginTick()
	a.SetInternal(aOut, ltypes.FloatValue(99)) // changes within the same tick
	require.NoError(t, g.PullInputs(2))
	v, _ := b.GetAny(bIn)
	require.Equal(t, float32(1), v.F, "expected weak edge to read the pre-tick snapshot value 1")
}

// TestWeakEdgeDoesNotClobberDestinationBeforeSourceHasEverRun covers
// spec.md §8 scenario 4 ("weak feedback"): a weak edge whose source has
// never produced a value must not overwrite the destination's explicit
// pre-tick value with the source's zero-default.
func TestWeakEdgeDoesNotClobberDestinationBeforeSourceHasEverRun(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	bOut, _ := b.Root(false)
	aIn, _ := a.Root(true)
	require.NoError(t, g.Link(bOut, aIn, true))

	a.SetInternal(aIn, ltypes.FloatValue(1)) // caller's explicit pre-tick value
	g.BeginTick()                            // b has never run: no snapshot to deliver
	require.NoError(t, g.PullInputs(1))
	v, _ := a.GetAny(aIn)
	require.Equal(t, float32(1), v.F, "expected a.in to keep its explicit pre-tick value 1")
}

func TestUnregisterRemovesTouchingEdges(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	require.NoError(t, g.Link(aOut, bIn, false))

	removed := g.Unregister(1)
	require.Len(t, removed, 1)
	require.False(t, g.IsLinked(2), "expected b to be unlinked after a is unregistered")
}

func TestIsLinkedReflectsSourceAndTarget(t *testing.T) {
	g := New()
	a, _ := scriptTree(1)
	b, _ := scriptTree(2)
	g.Register(1, a)
	g.Register(2, b)

	require.False(t, g.IsLinked(1))
	require.False(t, g.IsLinked(2))
	aOut, _ := a.Root(false)
	bIn, _ := b.Root(true)
	require.NoError(t, g.Link(aOut, bIn, false))
	require.True(t, g.IsLinked(1))
	require.True(t, g.IsLinked(2))
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/ltypes"
)

func TestUpdateRunsFreshlyCreatedScriptsOnFirstTick(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	producer, err := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	require.NoError(t, e.Update())
	out, _ := producer.Props.Root(false)
	valueRef, _ := producer.Props.ChildByName(out, "value")
	v, _ := producer.Props.GetAny(valueRef)
	require.Equal(t, float32(10), v.F)
}

func TestUpdatePropagatesLinkedScriptValuesInTopologicalOrder(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	producer, err := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	consumer, err := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)

	srcRoot, _ := producer.Props.Root(false)
	srcRef, _ := producer.Props.ChildByName(srcRoot, "value")
	dstRoot, _ := consumer.Props.Root(true)
	dstRef, _ := consumer.Props.ChildByName(dstRoot, "value")
	require.NoError(t, e.Link(srcRef, dstRef))

	require.NoError(t, e.Update())

	outRoot, _ := consumer.Props.Root(false)
	doubledRef, _ := consumer.Props.ChildByName(outRoot, "doubled")
	v, _ := consumer.Props.GetAny(doubledRef)
	require.Equal(t, float32(20), v.F)
	require.Empty(t, e.Errors())
}

func TestUpdateLeavesFailingNodeDirtyForRetry(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	source := `
	function interface(IN, OUT)
		OUT.value = FLOAT
	end
	function run(IN, OUT)
		error("boom")
	end
	`
	n, err := e.CreateScript("failing", source, e.config.DefaultScript, nil)
	require.NoError(t, err)

	require.NoError(t, e.Update(), "Update should not itself return an error for a node failure")
	require.True(t, n.Dirty, "expected the failing node to stay dirty so it retries next tick")
	require.Len(t, e.Errors(), 1)

	e.ClearErrors()
	require.NoError(t, e.Update())
	require.Len(t, e.Errors(), 1, "expected the node to have retried and failed again")
}

func TestTimerNodeIsAlwaysDirty(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	var now int64 = 1000
	e.SetClock(func() int64 { return now })

	timer := e.CreateTimerNode("clock", false)
	require.NoError(t, e.Update())
	out, _ := timer.Props.Root(false)
	v, _ := timer.Props.GetAny(out)
	require.Equal(t, int64(1000), v.L)

	timer.Dirty = false // evaluation clears it; simulate the post-tick state
	now = 2000
	require.NoError(t, e.Update())
	v, _ = timer.Props.GetAny(out)
	require.Equal(t, int64(2000), v.L, "expected the timer to re-evaluate every tick regardless of its dirty bit")
}

// TestWeakLinkReadsPreTickSnapshot exercises spec.md §4.F's "weak edges read
// the source's value as of the start of the tick": producer's very first
// run happens after this tick's snapshot was already taken, so its result
// is only visible to the consumer one tick later.
func TestWeakLinkReadsPreTickSnapshot(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	producer, err := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	consumer, err := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)

	srcRoot, _ := producer.Props.Root(false)
	srcRef, _ := producer.Props.ChildByName(srcRoot, "value")
	dstRoot, _ := consumer.Props.Root(true)
	dstRef, _ := consumer.Props.ChildByName(dstRoot, "value")
	require.NoError(t, e.LinkWeak(srcRef, dstRef))

	outRoot, _ := consumer.Props.Root(false)
	doubledRef, _ := consumer.Props.ChildByName(outRoot, "doubled")

	require.NoError(t, e.Update())
	v, _ := consumer.Props.GetAny(doubledRef)
	require.Equal(t, float32(0), v.F, "expected consumer.doubled=0 on the tick producer first runs (snapshot predates the run)")

	require.NoError(t, e.Update())
	v, _ = consumer.Props.GetAny(doubledRef)
	require.Equal(t, float32(20), v.F, "expected consumer.doubled=20 once the snapshot catches up to producer's output")
}

// TestWeakFeedbackPreservesExplicitPreTickInput exercises spec.md §8
// scenario 4 ("weak feedback"): a.out -> b.in strong, b.out -> a.in weak,
// with an explicit pre-tick value on a.in. Since b has never evaluated when
// tick 1 begins, the weak edge must not clobber a.in before a's own first
// run reads it.
func TestWeakFeedbackPreservesExplicitPreTickInput(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	source := `
	function interface(IN, OUT)
		IN.in = FLOAT
		OUT.out = FLOAT
	end
	function run(IN, OUT)
		OUT.out = IN.in + 1
	end
	`
	a, err := e.CreateScript("a", source, e.config.DefaultScript, nil)
	require.NoError(t, err)
	b, err := e.CreateScript("b", source, e.config.DefaultScript, nil)
	require.NoError(t, err)

	aIn, _ := a.Props.Root(true)
	aInRef, _ := a.Props.ChildByName(aIn, "in")
	aOut, _ := a.Props.Root(false)
	aOutRef, _ := a.Props.ChildByName(aOut, "out")
	bIn, _ := b.Props.Root(true)
	bInRef, _ := b.Props.ChildByName(bIn, "in")
	bOut, _ := b.Props.Root(false)
	bOutRef, _ := b.Props.ChildByName(bOut, "out")

	require.NoError(t, e.Link(aOutRef, bInRef))
	require.NoError(t, e.LinkWeak(bOutRef, aInRef))

	require.NoError(t, a.Props.SetInternal(aInRef, ltypes.FloatValue(1)))

	require.NoError(t, e.Update())
	aOutV, _ := a.Props.GetAny(aOutRef)
	require.Equal(t, float32(2), aOutV.F, "expected a.out=2 after tick 1 (a.in's explicit pre-tick value of 1 must survive)")
	bOutV, _ := b.Props.GetAny(bOutRef)
	require.Equal(t, float32(3), bOutV.F)

	require.NoError(t, e.Update())
	aInV, _ := a.Props.GetAny(aInRef)
	require.Equal(t, float32(3), aInV.F, "expected a.in to have seen b.out=3 via the weak edge by tick 2")
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/lnode"
)

func TestFindByNameReturnsFirstMatchInCreationOrder(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	first, err := e.CreateScript("dup", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	_, err = e.CreateScript("dup", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)

	found := e.FindByName(lnode.KindScript, "dup")
	require.Same(t, first, found)
}

func TestAllFiltersByKindInCreationOrder(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	s1, _ := e.CreateScript("a", producerSource, e.config.DefaultScript, nil)
	timer := e.CreateTimerNode("clock", false)
	s2, _ := e.CreateScript("b", consumerSource, e.config.DefaultScript, nil)

	scripts := e.All(lnode.KindScript)
	require.Equal(t, []*lnode.Node{s1, s2}, scripts)
	timers := e.All(lnode.KindTimer)
	require.Equal(t, []*lnode.Node{timer}, timers)
}

func TestLinkAndUnlinkTrackIsLinked(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	producer, _ := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	consumer, _ := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)

	srcRoot, _ := producer.Props.Root(false)
	srcRef, _ := producer.Props.ChildByName(srcRoot, "value")
	dstRoot, _ := consumer.Props.Root(true)
	dstRef, _ := consumer.Props.ChildByName(dstRoot, "value")

	require.False(t, e.IsLinked(producer.ID))
	require.False(t, e.IsLinked(consumer.ID))
	require.NoError(t, e.Link(srcRef, dstRef))
	require.True(t, e.IsLinked(producer.ID))
	require.True(t, e.IsLinked(consumer.ID))
	require.NoError(t, e.Unlink(srcRef, dstRef))
	require.False(t, e.IsLinked(producer.ID))
	require.False(t, e.IsLinked(consumer.ID))
}

func TestDestroyRemovesNodeAndTouchingLinks(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	producer, _ := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	consumer, _ := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)

	srcRoot, _ := producer.Props.Root(false)
	srcRef, _ := producer.Props.ChildByName(srcRoot, "value")
	dstRoot, _ := consumer.Props.Root(true)
	dstRef, _ := consumer.Props.ChildByName(dstRoot, "value")
	require.NoError(t, e.Link(srcRef, dstRef))

	require.NoError(t, e.Destroy(producer.ID))
	require.Nil(t, e.FindByID(producer.ID))
	require.False(t, e.IsLinked(consumer.ID))
}

func TestDestroyRefusesReferencedDataArray(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	timestamps, err := e.CreateDataArrayFloat("ts", []float32{0, 1})
	require.NoError(t, err)
	keyframes, err := e.CreateDataArrayFloat("kf", []float32{0, 10})
	require.NoError(t, err)
	_, err = e.CreateAnimationNode("anim", []lnode.Channel{
		{Name: "x", Timestamps: timestamps.DataArray, Keyframes: keyframes.DataArray, Mode: lnode.Linear},
	})
	require.NoError(t, err)

	require.Error(t, e.Destroy(timestamps.ID), "expected Destroy to refuse a DataArray still referenced by an AnimationNode")
}

func TestLastObjectIDRoundTrips(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	a, _ := e.CreateScript("a", producerSource, e.config.DefaultScript, nil)
	b, _ := e.CreateScript("b", consumerSource, e.config.DefaultScript, nil)
	require.Equal(t, b.ID, e.LastObjectID())

	e2 := newTestEngine()
	defer e2.Close()
	e2.SetLastObjectID(e.LastObjectID())
	c, _ := e2.CreateScript("c", producerSource, e.config.DefaultScript, nil)
	require.Equal(t, a.ID+2, c.ID, "expected ids to continue from last_object_id+1")
}

func TestClearErrorsEmptiesLog(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	cfg := e.config.DefaultScript
	cfg.StdLibs = []string{"nope"}
	_, err := e.CreateScript("bad", producerSource, cfg, nil)
	require.Error(t, err)
	require.NotEmpty(t, e.Errors())
	e.ClearErrors()
	require.Empty(t, e.Errors())
}

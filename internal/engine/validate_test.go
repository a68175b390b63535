package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

func TestValidateFlagsUnlinkedInterfaceOutput(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	iface, err := e.CreateInterface("iface", `
	function interface(INOUT)
		INOUT.value = FLOAT
	end
	`)
	require.NoError(t, err)

	warnings := e.Validate()
	require.Len(t, warnings, 1)
	require.Equal(t, iface.ID, warnings[0].Object.ID)
}

func TestValidateDoesNotFlagLinkedInterfaceOutput(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	iface, err := e.CreateInterface("iface", `
	function interface(INOUT)
		INOUT.value = FLOAT
	end
	`)
	require.NoError(t, err)
	consumer, err := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)

	outRoot, _ := iface.Props.Root(false)
	srcRef, _ := iface.Props.ChildByName(outRoot, "value")
	inRoot, _ := consumer.Props.Root(true)
	dstRef, _ := consumer.Props.ChildByName(inRoot, "value")
	require.NoError(t, e.Link(srcRef, dstRef))

	for _, w := range e.Validate() {
		require.NotEqual(t, iface.ID, w.Object.ID, "did not expect a warning on a linked interface output")
	}
}

func TestValidateFlagsBindingInputSetButNeverUpdated(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	schema := ltypes.Leaf(ltypes.Float)
	recv := &recordingReceiver{}
	b := e.CreateBinding("target", "transform", schema, lnode.ExternalRef{Name: "scene_root", ID: 7}, recv)

	root, _ := b.Props.Root(true)
	require.NoError(t, b.Props.Set(root, ltypes.FloatValue(5)))

	found := false
	for _, w := range e.Validate() {
		if w.Object.ID == b.ID {
			found = true
		}
	}
	require.True(t, found, "expected a warning for the binding's un-flushed pending value")

	require.NoError(t, e.Update())
	for _, w := range e.Validate() {
		require.NotEqual(t, b.ID, w.Object.ID, "expected Update to have flushed the binding, clearing the warning")
	}
}

func TestValidateFlagsOrphanedModule(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	mod, err := e.CreateModule("constants", `
	local m = {}
	m.factor = 2
	return m
	`, e.config.DefaultScript, nil)
	require.NoError(t, err)

	found := false
	for _, w := range e.Validate() {
		if w.Object.ID == mod.ID {
			found = true
		}
	}
	require.True(t, found, "expected the unused module to be flagged as orphaned")

	e.markModuleRefs(map[string]*lnode.Node{"constants": mod})
	for _, w := range e.Validate() {
		require.NotEqual(t, mod.ID, w.Object.ID, "expected the module to no longer be orphaned once referenced")
	}
}

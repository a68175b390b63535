package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/binding"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

func TestCreateTransformBindingUsesTransformSchema(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	n := e.CreateTransformBinding("node_xform", lnode.ExternalRef{Name: "cube", ID: 42}, &recordingReceiver{})
	require.Equal(t, binding.KindTransform, n.Binding.Kind)
	require.Equal(t, "cube", n.Binding.External.Name)
	require.Equal(t, uint64(42), n.Binding.External.ID)
	in, _ := n.Props.Root(true)
	_, ok := n.Props.ChildByName(in, "translation")
	require.True(t, ok, "expected a translation field")
}

func TestCreateUniformBindingRejectsDuplicateSlots(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	_, err := e.CreateUniformBinding("mat", []binding.UniformSlot{
		{Name: "color", Type: ltypes.Vec4f},
		{Name: "color", Type: ltypes.Vec4f},
	}, lnode.ExternalRef{}, &recordingReceiver{})
	require.Error(t, err)
	require.Len(t, e.Errors(), 1)
}

func TestCreateCameraAndRenderPassBindingsAdopt(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	cam := e.CreateCameraBinding("cam", lnode.ExternalRef{Name: "main_camera", ID: 1}, &recordingReceiver{})
	require.Equal(t, binding.KindCamera, cam.Binding.Kind)
	pass := e.CreateRenderPassBinding("pass", lnode.ExternalRef{Name: "main_pass", ID: 2}, &recordingReceiver{})
	require.Equal(t, binding.KindRenderPass, pass.Binding.Kind)
}

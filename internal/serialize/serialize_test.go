package serialize

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/binding"
	"scenelogic/internal/binding/logreceiver"
	"scenelogic/internal/engine"
	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lerrors"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

const producerSource = `
function interface(IN, OUT)
	IN.gain = FLOAT
	OUT.value = FLOAT
end

function run(IN, OUT)
	OUT.value = IN.gain * 2.0
end
`

const consumerSource = `
function interface(IN, OUT)
	IN.value = FLOAT
	OUT.doubled = FLOAT
end

function run(IN, OUT)
	OUT.doubled = IN.value * 2.0
end
`

func newTestEngine(t *testing.T, featureLevel uint32) *engine.Engine {
	t.Helper()
	cfg := engineconfig.EngineConfig{FeatureLevel: featureLevel, DefaultScript: engineconfig.DefaultScriptConfig()}
	return engine.New(cfg)
}

func stubResolver(receivers map[string]lnode.Receiver) SceneResolver {
	return func(name string, id uint64) (lnode.Receiver, bool) {
		r, ok := receivers[name]
		return r, ok
	}
}

func TestSaveLoadRoundTripsScriptsBindingsAndLinks(t *testing.T) {
	e := newTestEngine(t, 1)
	defer e.Close()

	producer, err := e.CreateScript("producer", producerSource, e.DefaultScriptConfig(), nil)
	require.NoError(t, err)
	consumer, err := e.CreateScript("consumer", consumerSource, e.DefaultScriptConfig(), nil)
	require.NoError(t, err)

	receiver := logreceiver.New("xform", nil)
	transform := e.CreateBinding("xform", binding.KindTransform, binding.TransformSchema(), lnode.ExternalRef{Name: "node0", ID: 42}, receiver)

	producerOut, ok := producer.Props.Root(false)
	require.True(t, ok, "producer has no output root")
	valueOut, ok := producer.Props.ChildByName(producerOut, "value")
	require.True(t, ok, "producer output has no 'value' child")

	consumerIn, ok := consumer.Props.Root(true)
	require.True(t, ok, "consumer has no input root")
	valueIn, ok := consumer.Props.ChildByName(consumerIn, "value")
	require.True(t, ok, "consumer input has no 'value' child")

	require.NoError(t, e.Link(valueOut, valueIn))

	var buf bytes.Buffer
	require.NoError(t, Save(e, &buf, engineconfig.SaveConfig{}))

	loaded, err := Load(&buf, engineconfig.EngineConfig{FeatureLevel: 1, DefaultScript: engineconfig.DefaultScriptConfig()}, stubResolver(map[string]lnode.Receiver{
		"node0": receiver,
	}))
	require.NoError(t, err)
	defer loaded.Close()

	loadedProducer := loaded.FindByID(producer.ID)
	require.NotNil(t, loadedProducer, "loaded engine is missing the producer script node")
	require.Equal(t, "producer", loadedProducer.Name)

	loadedTransform := loaded.FindByID(transform.ID)
	require.NotNil(t, loadedTransform, "loaded engine is missing the transform binding")
	require.Equal(t, "node0", loadedTransform.Binding.External.Name)
	require.Equal(t, uint64(42), loadedTransform.Binding.External.ID)

	require.True(t, loaded.IsLinked(producer.ID))
	require.True(t, loaded.IsLinked(consumer.ID), "expected the reloaded link between producer and consumer to survive")
}

func TestSaveRefusesMixedSceneIDs(t *testing.T) {
	e := newTestEngine(t, 1)
	defer e.Close()

	r := logreceiver.New("a", nil)
	e.CreateBinding("a", binding.KindTransform, binding.TransformSchema(), lnode.ExternalRef{Name: "a", ID: 1}, r)
	e.CreateBinding("b", binding.KindTransform, binding.TransformSchema(), lnode.ExternalRef{Name: "b", ID: 2}, r)

	var buf bytes.Buffer
	err := Save(e, &buf, engineconfig.SaveConfig{})
	require.Error(t, err, "expected Save to refuse bindings spanning two scene ids")
	var lerr *lerrors.Error
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, lerrors.BindingSceneMismatch, lerr.Kind)
}

func TestSaveRefusesRenderPassBindingBelowFeatureLevel2(t *testing.T) {
	e := newTestEngine(t, 1)
	defer e.Close()

	r := logreceiver.New("pass", nil)
	e.CreateBinding("pass", binding.KindRenderPass, binding.RenderPassSchema(), lnode.ExternalRef{Name: "pass", ID: 1}, r)

	var buf bytes.Buffer
	err := Save(e, &buf, engineconfig.SaveConfig{})
	require.Error(t, err, "expected Save to refuse a render-pass binding under feature level 1")
	var lerr *lerrors.Error
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, lerrors.BinaryVersionMismatch, lerr.Kind)
}

func TestLoadRejectsFeatureLevelAboveEngineConfig(t *testing.T) {
	e := newTestEngine(t, 2)
	defer e.Close()

	r := logreceiver.New("pass", nil)
	e.CreateBinding("pass", binding.KindRenderPass, binding.RenderPassSchema(), lnode.ExternalRef{Name: "pass", ID: 7}, r)

	var buf bytes.Buffer
	require.NoError(t, Save(e, &buf, engineconfig.SaveConfig{}))

	_, err := Load(&buf, engineconfig.EngineConfig{FeatureLevel: 1, DefaultScript: engineconfig.DefaultScriptConfig()}, stubResolver(map[string]lnode.Receiver{"pass": r}))
	require.Error(t, err, "expected Load to reject a file whose feature_level exceeds the engine's")
	var lerr *lerrors.Error
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, lerrors.BinaryVersionMismatch, lerr.Kind)
}

func TestLoadRejectsTruncatedHeader(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{1, 2, 3}), engineconfig.EngineConfig{FeatureLevel: 1}, nil)
	require.Error(t, err, "expected Load to reject a truncated header")
	var lerr *lerrors.Error
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, lerrors.CorruptedBinary, lerr.Kind)
}

func TestLoadRejectsBadIdentifier(t *testing.T) {
	var w writer
	w.u32(headerLen)
	w.buf.WriteString("zzzz")
	w.u32(1)
	w.u64(0)

	_, err := Load(bytes.NewReader(w.buf.Bytes()), engineconfig.EngineConfig{FeatureLevel: 1}, nil)
	require.Error(t, err, "expected Load to reject an unrecognized identifier")
	var lerr *lerrors.Error
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, lerrors.CorruptedBinary, lerr.Kind)
}

func TestDataArrayRoundTrip(t *testing.T) {
	e := newTestEngine(t, 1)
	defer e.Close()

	arr, err := e.CreateDataArrayFloat("samples", []float32{1, 2, 3, 4})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(e, &buf, engineconfig.SaveConfig{}))

	loaded, err := Load(&buf, engineconfig.EngineConfig{FeatureLevel: 1, DefaultScript: engineconfig.DefaultScriptConfig()}, stubResolver(nil))
	require.NoError(t, err)
	defer loaded.Close()

	got := loaded.FindByID(arr.ID)
	require.NotNil(t, got, "loaded engine is missing the data array")
	require.Equal(t, ltypes.Float, got.DataArray.ElemType)
	require.Equal(t, 4, got.DataArray.Len)
	require.Equal(t, []float32{1, 2, 3, 4}, got.DataArray.F)
}

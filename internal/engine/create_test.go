package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

func newTestEngine() *Engine {
	cfg := engineconfig.EngineConfig{DefaultScript: engineconfig.DefaultScriptConfig()}
	return New(cfg)
}

const producerSource = `
function interface(IN, OUT)
	OUT.value = FLOAT
end
function run(IN, OUT)
	OUT.value = 10.0
end
`

const consumerSource = `
function interface(IN, OUT)
	IN.value = FLOAT
	OUT.doubled = FLOAT
end
function run(IN, OUT)
	OUT.doubled = IN.value * 2
end
`

func TestCreateScriptAdoptsNodeAndAssignsMonotonicID(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	a, err := e.CreateScript("producer", producerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	b, err := e.CreateScript("consumer", consumerSource, e.config.DefaultScript, nil)
	require.NoError(t, err)
	require.NotZero(t, a.ID)
	require.NotZero(t, b.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Same(t, a, e.FindByID(a.ID))
}

func TestCreateScriptRejectsUnknownStdLib(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	before := e.nextID
	cfg := e.config.DefaultScript
	cfg.StdLibs = []string{"nope"}
	_, err := e.CreateScript("bad", producerSource, cfg, nil)
	require.Error(t, err)
	require.Equal(t, before, e.nextID, "expected no id to be consumed on a rejected create")
	require.Len(t, e.Errors(), 1)
}

func TestCreateScriptRejectsSyntaxErrorWithoutBurningID(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	before := e.nextID
	_, err := e.CreateScript("broken", `this is not lua`, e.config.DefaultScript, nil)
	require.Error(t, err)
	require.Equal(t, before, e.nextID, "expected id counter to roll back on failure")
}

func TestCreateModuleMarksDependenciesReferenced(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	mod, err := e.CreateModule("constants", `
	local m = {}
	m.factor = 2
	return m
	`, e.config.DefaultScript, nil)
	require.NoError(t, err)
	require.False(t, e.referencedModules[mod.ID], "a freshly created module must not start out referenced")

	e.markModuleRefs(map[string]*lnode.Node{"constants": mod})
	require.True(t, e.referencedModules[mod.ID])
}

func TestCreateTimerNodeAndCreateBindingAdopt(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	timer := e.CreateTimerNode("clock", false)
	require.Equal(t, "TimerNode", timer.Kind.String())

	schema := ltypes.Leaf(ltypes.Float)
	recv := &recordingReceiver{}
	b := e.CreateBinding("target", "transform", schema, lnode.ExternalRef{Name: "scene_root", ID: 7}, recv)
	require.NotNil(t, b.Binding)
	require.Same(t, recv, b.Binding.Receiver)
}

type recordingReceiver struct {
	pushes map[string]ltypes.Value
}

func (r *recordingReceiver) Push(path string, v ltypes.Value) error {
	if r.pushes == nil {
		r.pushes = make(map[string]ltypes.Value)
	}
	r.pushes[path] = v
	return nil
}

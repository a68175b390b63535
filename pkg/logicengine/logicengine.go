// Package logicengine is the public façade over internal/engine (spec.md
// §6's "language-neutral API surface"). internal/engine is unimportable
// outside this module, so every operation a host application drives — the
// Create* family, Link/Unlink, Update, Save/Load, error inspection — is
// re-exposed here as a thin wrapper, the same shape the teacher's
// pkg/luaengine.Engine puts over its own internal Lua/router state.
package logicengine

import (
	"io"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"scenelogic/internal/engine"
	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lnode"
	"scenelogic/internal/serialize"
)

// LogicEngine is one scripted dataflow runtime instance: one Lua state, one
// link graph, one arena of logic nodes. Per spec.md §5 the engine is
// single-threaded and cooperative, so — like internal/engine itself — a
// LogicEngine must not have Create*/Link/Update/Destroy called on it
// concurrently. FeatureLevelOf is the one exception: it never touches an
// engine instance, so concurrent CLI callers coalesce through flCoalesce
// below.
type LogicEngine struct {
	eng *engine.Engine
}

// New opens a fresh engine with the given configuration (spec.md §4.G
// "engine construction", feature level and default script config).
func New(cfg engineconfig.EngineConfig) *LogicEngine {
	return &LogicEngine{eng: engine.New(cfg)}
}

// Close releases the engine's Lua state. Must not be called while any
// object is mid-evaluation.
func (le *LogicEngine) Close() {
	le.eng.Close()
}

// FeatureLevel returns the engine's configured feature level.
func (le *LogicEngine) FeatureLevel() uint32 {
	return le.eng.FeatureLevel()
}

// DefaultScriptConfig returns the script configuration CreateScript/
// CreateModule fall back to when called with a zero-value ScriptConfig.
func (le *LogicEngine) DefaultScriptConfig() engineconfig.ScriptConfig {
	return le.eng.DefaultScriptConfig()
}

// Metrics returns the engine's tick/node/error counters, for
// cmd/scenelogic-diag to register against its own prometheus.Registry.
func (le *LogicEngine) Metrics() *engine.Metrics {
	return le.eng.Metrics()
}

// Update runs one propagation tick (spec.md §4.F). A node whose evaluation
// fails stays dirty and retries next tick; Errors() reports the failure.
func (le *LogicEngine) Update() error {
	return le.eng.Update()
}

// Errors returns the accumulated error log since the last ClearErrors, as
// plain errors (every entry also satisfies errors.As against
// *lerrors.Error for callers that import this module's own internal
// packages, but the façade itself never requires that).
func (le *LogicEngine) Errors() []error {
	internal := le.eng.Errors()
	if len(internal) == 0 {
		return nil
	}
	out := make([]error, len(internal))
	for i, e := range internal {
		out[i] = e
	}
	return out
}

// ClearErrors empties the error log.
func (le *LogicEngine) ClearErrors() {
	le.eng.ClearErrors()
}

// Validate runs the same unlinked-output/unflushed-binding/orphaned-module
// checks save() refuses on by default (spec.md §7).
func (le *LogicEngine) Validate() []error {
	warnings := le.eng.Validate()
	if len(warnings) == 0 {
		return nil
	}
	out := make([]error, len(warnings))
	for i, w := range warnings {
		out[i] = w
	}
	return out
}

// Destroy removes an object, implicitly severing every link that touches
// it (spec.md §4.G "destroy").
func (le *LogicEngine) Destroy(o *Object) error {
	return le.eng.Destroy(o.ID)
}

// FindByID looks up an object by its engine-assigned id.
func (le *LogicEngine) FindByID(id uint64) *Object {
	return wrap(le.eng.FindByID(id))
}

// FindByName looks up the first object (creation order) with the given
// kind and name.
func (le *LogicEngine) FindByName(kind Kind, name string) *Object {
	return wrap(le.eng.FindByName(kind.internal(), name))
}

// All returns every object of the given kind, in creation order.
func (le *LogicEngine) All(kind Kind) []*Object {
	nodes := le.eng.All(kind.internal())
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Object, len(nodes))
	for i, n := range nodes {
		out[i] = wrap(n)
	}
	return out
}

// Save writes the engine's full state to w (spec.md §6 "save()").
func (le *LogicEngine) Save(w io.Writer, cfg engineconfig.SaveConfig) error {
	return serialize.Save(le.eng, w, cfg)
}

// Receiver is the hook a Binding pushes its flushed values through; it
// mirrors internal/lnode.Receiver so callers outside this module's own
// internal/ tree can still implement one (e.g. cmd/scenelogic-diag's or a
// host application's own scene-graph adapter).
type Receiver = lnode.Receiver

// SceneResolver maps a persisted binding's external (name, id) pair back
// onto a live Receiver at Load time (spec.md §6 "scene_resolver").
type SceneResolver = serialize.SceneResolver

// Load reconstructs a full engine from r, recompiling every Script,
// Interface and Module from its stored Lua source (spec.md §6: a saved
// file holds source, not bytecode).
func Load(r io.Reader, cfg engineconfig.EngineConfig, resolver SceneResolver) (*LogicEngine, error) {
	e, err := serialize.Load(r, cfg, resolver)
	if err != nil {
		return nil, err
	}
	return &LogicEngine{eng: e}, nil
}

// flCoalesce collapses concurrent FeatureLevelOf calls against the same
// path into one read (spec.md expansion: "pkg/logicengine.FeatureLevelOf
// caches/coalesces repeated header-only reads of the same path from
// concurrent CLI invocations, the one place outside the single-threaded
// engine where concurrent callers are expected").
var flCoalesce singleflight.Group

// FeatureLevelOf reads only a saved file's header to report its feature
// level, without committing to a full Load. open is called at most once
// per path among any calls racing against it; every racing caller
// observes the same result.
func FeatureLevelOf(path string, open func(path string) (io.ReadCloser, error)) (uint32, error) {
	v, err, _ := flCoalesce.Do(path, func() (interface{}, error) {
		f, err := open(path)
		if err != nil {
			return uint32(0), err
		}
		defer f.Close()
		level, err := serialize.FeatureLevelOf(f)
		if err != nil {
			slog.Warn("feature_level_of_failed", "path", path, "error", err)
			return uint32(0), err
		}
		return level, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

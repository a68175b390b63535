// Package engine implements the ApiObjects façade (spec.md §4.G): object
// lifecycle, monotonic ID allocation, lookup, validation, and the update()
// tick that drives the link graph and evaluates dirty nodes. Deep module:
// callers only ever see Create*/Destroy/Link/Unlink/Update/Errors.
package engine

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lerrors"
	"scenelogic/internal/linkgraph"
	"scenelogic/internal/lnode"
	"scenelogic/internal/proptree"
	"scenelogic/internal/sandbox"
)

// Metrics are the counters cmd/scenelogic-diag registers against its own
// prometheus.Registry (spec.md expansion: "internal/engine exposes
// counters (ticks, dirty nodes, errors) the diag server registers").
type Metrics struct {
	Ticks      prometheus.Counter
	NodesRun   prometheus.Counter
	TickErrors prometheus.Counter
}

// NewMetrics builds a fresh, unregistered set of counters.
func NewMetrics() *Metrics {
	return &Metrics{
		Ticks:      prometheus.NewCounter(prometheus.CounterOpts{Name: "scenelogic_ticks_total", Help: "Total update() calls."}),
		NodesRun:   prometheus.NewCounter(prometheus.CounterOpts{Name: "scenelogic_nodes_evaluated_total", Help: "Total logic node evaluations."}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{Name: "scenelogic_tick_errors_total", Help: "Total node evaluation errors across all ticks."}),
	}
}

// Register adds every counter to reg, as the diag server does at startup.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Ticks, m.NodesRun, m.TickErrors)
}

// Engine is one ApiObjects instance: one Lua state (via ScriptHost), one
// link graph, and the arena of every logic node it owns. Per spec.md §5 the
// engine is single-threaded and cooperative — callers must not invoke any
// operation concurrently with Update, so unlike the teacher's Gateway this
// carries no mutex.
type Engine struct {
	host   *sandbox.ScriptHost
	config engineconfig.EngineConfig
	graph  *linkgraph.Graph
	errs   lerrors.Log

	nodes    map[uint64]*lnode.Node
	creation []uint64 // node IDs in creation order, for stable FindByName iteration
	nextID   uint64
	clock    Clock

	// referencedModules tracks which Module node ids have been passed as a
	// dependency to at least one Script/Module creation, for Validate's
	// "orphaned module" warning.
	referencedModules map[uint64]bool

	metrics *Metrics
}

// New builds an engine instance, opening its own Lua state.
func New(cfg engineconfig.EngineConfig) *Engine {
	e := &Engine{
		host:              sandbox.NewScriptHost(),
		config:            cfg,
		graph:             linkgraph.New(),
		nodes:             make(map[uint64]*lnode.Node),
		nextID:            1,
		referencedModules: make(map[uint64]bool),
		metrics:           NewMetrics(),
	}
	slog.Info("engine_created", "feature_level", cfg.FeatureLevel)
	return e
}

// Close releases the engine's Lua state. Must not be called while any node
// is mid-evaluation.
func (e *Engine) Close() {
	e.host.Close()
}

// Metrics returns the engine's counter set, for the diag server to register.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Host exposes the engine's Lua state for internal/serialize, which must
// recompile every Script/Interface/Module node directly via lnode.Compile*
// at load time (spec.md §6: a loaded file stores Lua source, not bytecode).
func (e *Engine) Host() *sandbox.ScriptHost { return e.host }

// FeatureLevel returns the engine's configured feature level, the gate
// save() and load() check a file's own feature_level against (spec.md §4.H
// "version gating").
func (e *Engine) FeatureLevel() uint32 { return e.config.FeatureLevel }

// DefaultScriptConfig returns the script configuration new scripts inherit
// when a caller (or the loader, recompiling a saved script) passes none.
func (e *Engine) DefaultScriptConfig() engineconfig.ScriptConfig { return e.config.DefaultScript }

// Edges exposes every recorded link, for internal/serialize's links vector.
func (e *Engine) Edges() []linkgraph.Edge { return e.graph.Edges() }

// Restore adopts a node internal/serialize's Load reconstructed directly
// via an lnode constructor (with the id the file recorded, not one from
// allocID). Load calls SetLastObjectID separately once every object in the
// file has been restored.
func (e *Engine) Restore(n *lnode.Node) { e.adopt(n) }

// allocID returns the next monotonic 64-bit id and advances the counter
// (spec.md §4.G "ID allocation"). 0 is never issued, matching "id (nonzero)"
// in the serializer's header contract (spec.md §6).
func (e *Engine) allocID() uint64 {
	if e.nextID == 0 {
		e.nextID = 1
	}
	id := e.nextID
	e.nextID++
	return id
}

// SetLastObjectID restores the allocation counter after a load (spec.md
// §4.G: "After load, new objects continue from last_object_id + 1").
func (e *Engine) SetLastObjectID(last uint64) {
	e.nextID = last + 1
}

// LastObjectID returns the highest id issued so far, for save().
func (e *Engine) LastObjectID() uint64 {
	if e.nextID == 0 {
		return 0
	}
	return e.nextID - 1
}

func (e *Engine) adopt(n *lnode.Node) {
	e.nodes[n.ID] = n
	e.creation = append(e.creation, n.ID)
	if n.Props != nil {
		e.graph.Register(n.ID, n.Props)
		// A freshly created node has never run; start it dirty so the next
		// Update evaluates it at least once and establishes its outputs,
		// rather than waiting on an external write or an incoming link.
		n.Dirty = true
	}
	slog.Info("object_created", "kind", n.Kind.String(), "name", n.Name, "id", n.ID)
}

// FindByID returns the node with the given engine id, or nil.
func (e *Engine) FindByID(id uint64) *lnode.Node {
	return e.nodes[id]
}

// FindByName returns the first node (in creation order) with the given
// name and kind, or nil. Names are not required to be globally unique
// (spec.md is silent on the point); kind disambiguates a script and an
// interface sharing a name, matching how the underlying binary format
// keeps kinds in separate vectors (spec.md §6).
func (e *Engine) FindByName(kind lnode.Kind, name string) *lnode.Node {
	for _, id := range e.creation {
		n := e.nodes[id]
		if n.Kind == kind && n.Name == name {
			return n
		}
	}
	return nil
}

// All returns every node of the given kind, in creation order.
func (e *Engine) All(kind lnode.Kind) []*lnode.Node {
	var out []*lnode.Node
	for _, id := range e.creation {
		n := e.nodes[id]
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// IsLinked reports whether any property of the given node participates in
// a link (spec.md §4.G "is_linked(object)").
func (e *Engine) IsLinked(id uint64) bool {
	return e.graph.IsLinked(id)
}

// Link records src -> dst as a strong edge.
func (e *Engine) Link(src, dst proptree.PropertyRef) error {
	return e.linkInternal(src, dst, false)
}

// LinkWeak records src -> dst as a weak edge.
func (e *Engine) LinkWeak(src, dst proptree.PropertyRef) error {
	return e.linkInternal(src, dst, true)
}

func (e *Engine) linkInternal(src, dst proptree.PropertyRef, weak bool) error {
	if err := e.graph.Link(src, dst, weak); err != nil {
		e.errs.Append(err)
		return err
	}
	return nil
}

// Unlink removes the exact edge src -> dst.
func (e *Engine) Unlink(src, dst proptree.PropertyRef) error {
	if err := e.graph.Unlink(src, dst); err != nil {
		e.errs.Append(err)
		return err
	}
	return nil
}

// Destroy removes a node, implicitly severing every link that touches it
// first (DESIGN.md open-question (b): "destroy implicitly removes every
// link touching the object... reports which links were removed"). Refuses
// if the object is a DataArray still referenced by an AnimationNode, since
// that reference is not itself a link-graph edge the implicit-unlink policy
// can sever.
func (e *Engine) Destroy(id uint64) error {
	n, ok := e.nodes[id]
	if !ok {
		return lerrors.New(lerrors.IllegalArgument, "destroy: no object with id %d", id)
	}
	if n.Kind == lnode.KindDataArray && n.DataArray.Referenced() {
		err := lerrors.New(lerrors.IllegalArgument, "destroy: DataArray %q is still referenced by an AnimationNode", n.Name).WithObject(n.ID, n.Name)
		e.errs.Append(err)
		return err
	}

	removed := e.graph.Unregister(id)
	for _, edge := range removed {
		slog.Info("link_removed_by_destroy", "src_node", edge.Src.NodeID, "dst_node", edge.Dst.NodeID, "weak", edge.Weak)
	}
	if n.Kind == lnode.KindAnimation {
		for _, ch := range n.Animation.Channels {
			ch.Timestamps.Release()
			ch.Keyframes.Release()
			if ch.Tangents != nil {
				ch.Tangents.Release()
			}
		}
	}

	delete(e.nodes, id)
	for i, existing := range e.creation {
		if existing == id {
			e.creation = append(e.creation[:i], e.creation[i+1:]...)
			break
		}
	}
	slog.Info("object_destroyed", "kind", n.Kind.String(), "name", n.Name, "id", id, "links_removed", len(removed))
	return nil
}

// Errors returns the accumulated error log since the last ClearErrors.
func (e *Engine) Errors() []*lerrors.Error {
	return e.errs.Errors()
}

// ClearErrors empties the error log.
func (e *Engine) ClearErrors() {
	e.errs.Clear()
}

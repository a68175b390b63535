package engine

import (
	"log/slog"
	"time"

	"scenelogic/internal/lerrors"
	"scenelogic/internal/lnode"
)

// wrapEvalError classifies a node-evaluation failure and attributes it to
// the offending node (spec.md §7: "update() errors... appended to the
// error log" with an "optional offending-object handle").
func wrapEvalError(n *lnode.Node, err error) *lerrors.Error {
	if e, ok := err.(*lerrors.Error); ok {
		return e.WithObject(n.ID, n.Name)
	}
	kind := lerrors.LuaRuntimeError
	if n.Kind != lnode.KindScript && n.Kind != lnode.KindInterface && n.Kind != lnode.KindModule {
		kind = lerrors.IllegalArgument
	}
	return lerrors.Wrap(kind, err, "%s %q failed to evaluate", n.Kind, n.Name).WithObject(n.ID, n.Name)
}

// Clock supplies the current time in microseconds to a free-running
// TimerNode. Injectable for deterministic tests.
type Clock func() int64

func defaultClock() int64 { return time.Now().UnixMicro() }

// clock is looked up lazily so the zero-value Engine (as built by New)
// always has one; SetClock overrides it.
func (e *Engine) now() int64 {
	if e.clock == nil {
		return defaultClock()
	}
	return e.clock()
}

// SetClock overrides the time source free-running TimerNodes read from.
func (e *Engine) SetClock(c Clock) { e.clock = c }

// Update runs one propagation tick (spec.md §4.F "Propagation"):
// recompute the topological order if the graph's structure changed,
// snapshot weak-edge sources, then for each node in order pull its
// incoming link values and evaluate it if that left it dirty. A node whose
// evaluation errors stays dirty (it retries next tick) and its unchanged
// outputs leave downstream nodes undisturbed.
func (e *Engine) Update() error {
	e.metrics.Ticks.Inc()

	order, err := e.graph.Order()
	if err != nil {
		e.errs.Append(err)
		return err
	}
	e.graph.BeginTick()

	now := e.now()
	for _, id := range order {
		n := e.nodes[id]
		if n == nil {
			continue
		}
		if err := e.graph.PullInputs(id); err != nil {
			e.errs.Append(err)
			e.metrics.TickErrors.Inc()
			continue
		}

		if !n.Dirty && !lnode.IsTimerAlwaysDirty(n) {
			continue
		}

		if err := e.evaluate(n, now); err != nil {
			wrapped := wrapEvalError(n, err)
			e.errs.Append(wrapped)
			e.metrics.TickErrors.Inc()
			slog.Error("node_evaluation_failed", "kind", n.Kind.String(), "name", n.Name, "id", n.ID, "error", err)
			continue
		}

		n.Dirty = false
		e.graph.MarkEvaluated(n.ID)
		e.metrics.NodesRun.Inc()
	}
	return nil
}

func (e *Engine) evaluate(n *lnode.Node, nowMicros int64) error {
	switch n.Kind {
	case lnode.KindScript:
		return lnode.EvaluateScript(e.host, n)
	case lnode.KindInterface:
		return lnode.EvaluateInterface(n)
	case lnode.KindAnimation:
		return lnode.EvaluateAnimation(n)
	case lnode.KindTimer:
		return lnode.EvaluateTimer(n, nowMicros)
	case lnode.KindBinding:
		return lnode.EvaluateBinding(n)
	default:
		// Module and DataArray have no Props tree and are never registered
		// with the link graph, so Update never reaches them here.
		return nil
	}
}

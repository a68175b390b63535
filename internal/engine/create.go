package engine

import (
	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

// moduleTables converts a name -> already-created Module node map into the
// raw Lua tables CompileScript/CompileModule expect, the shape scripts
// declare via their own modules(...) call (spec.md §4.E).
func moduleTables(deps map[string]*lnode.Node) map[string]*lua.LTable {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]*lua.LTable, len(deps))
	for name, n := range deps {
		out[name] = n.Module.Table
	}
	return out
}

// CreateScript compiles and adopts a Script node. On failure the error is
// appended to the log and no object is created (spec.md §7 construction
// policy).
func (e *Engine) CreateScript(name, source string, cfg engineconfig.ScriptConfig, deps map[string]*lnode.Node) (*lnode.Node, error) {
	mask, err := cfg.StdLibMask()
	if err != nil {
		e.errs.Append(err)
		return nil, err
	}
	n, err := lnode.CompileScript(e.host, e.allocID(), name, source, moduleTables(deps), mask)
	if err != nil {
		e.nextID-- // construction failed atomically; don't burn an id on a rejected script
		e.errs.Append(err)
		return nil, err
	}
	e.adopt(n)
	e.markModuleRefs(deps)
	return n, nil
}

func (e *Engine) markModuleRefs(deps map[string]*lnode.Node) {
	for _, dep := range deps {
		e.referencedModules[dep.ID] = true
	}
}

// CreateInterface compiles and adopts an Interface node.
func (e *Engine) CreateInterface(name, source string) (*lnode.Node, error) {
	n, err := lnode.CompileInterface(e.host, e.allocID(), name, source)
	if err != nil {
		e.nextID--
		e.errs.Append(err)
		return nil, err
	}
	e.adopt(n)
	return n, nil
}

// CreateModule compiles and adopts a Module node.
func (e *Engine) CreateModule(name, source string, cfg engineconfig.ScriptConfig, deps map[string]*lnode.Node) (*lnode.Node, error) {
	mask, err := cfg.StdLibMask()
	if err != nil {
		e.errs.Append(err)
		return nil, err
	}
	n, err := lnode.CompileModule(e.host, e.allocID(), name, source, moduleTables(deps), mask)
	if err != nil {
		e.nextID--
		e.errs.Append(err)
		return nil, err
	}
	e.adopt(n)
	e.markModuleRefs(deps)
	return n, nil
}

// CreateDataArrayFloat, ...Vec2f, ...Vec3f, ...Vec4f, ...Int32, ...Int64
// adopt a typed, immutable DataArray.
func (e *Engine) CreateDataArrayFloat(name string, data []float32) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayFloat(e.allocID(), name, data))
}

func (e *Engine) CreateDataArrayVec2f(name string, data [][2]float64) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayVec2f(e.allocID(), name, data))
}

func (e *Engine) CreateDataArrayVec3f(name string, data [][3]float64) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayVec3f(e.allocID(), name, data))
}

func (e *Engine) CreateDataArrayVec4f(name string, data [][4]float64) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayVec4f(e.allocID(), name, data))
}

func (e *Engine) CreateDataArrayInt32(name string, data []int32) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayInt32(e.allocID(), name, data))
}

func (e *Engine) CreateDataArrayInt64(name string, data []int64) (*lnode.Node, error) {
	return e.adoptDataArray(lnode.NewDataArrayInt64(e.allocID(), name, data))
}

func (e *Engine) adoptDataArray(n *lnode.Node, err error) (*lnode.Node, error) {
	if err != nil {
		e.nextID--
		e.errs.Append(err)
		return nil, err
	}
	e.adopt(n)
	return n, nil
}

// CreateAnimationNode adopts an AnimationNode, AddRef-ing every DataArray
// its channels reference (lnode.NewAnimationNode does the AddRef; this just
// wires the construction-error/id-rollback convention the other Create*
// calls share).
func (e *Engine) CreateAnimationNode(name string, channels []lnode.Channel) (*lnode.Node, error) {
	n, err := lnode.NewAnimationNode(e.allocID(), name, channels)
	if err != nil {
		e.nextID--
		e.errs.Append(err)
		return nil, err
	}
	e.adopt(n)
	return n, nil
}

// CreateTimerNode adopts a TimerNode.
func (e *Engine) CreateTimerNode(name string, external bool) *lnode.Node {
	n := lnode.NewTimerNode(e.allocID(), name, external)
	e.adopt(n)
	return n
}

// CreateBinding adopts a Binding leaf of the given kind over schema,
// pushing flushed values into receiver. internal/binding supplies the
// concrete schemas and kind tags spec.md's create_binding_<kind>
// operations name (transform, uniform, camera, render-pass); external
// identifies the scene object the binding targets, persisted so load()'s
// scene_resolver can find it again (spec.md §6).
func (e *Engine) CreateBinding(name, kind string, schema *ltypes.HierarchicalType, external lnode.ExternalRef, receiver lnode.Receiver) *lnode.Node {
	n := lnode.NewBindingNode(e.allocID(), name, kind, schema, external, receiver)
	e.adopt(n)
	return n
}

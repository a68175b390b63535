package serialize

import (
	"fmt"
	"io"

	lua "github.com/yuin/gopher-lua"

	"scenelogic/internal/binding"
	"scenelogic/internal/engine"
	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lerrors"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
	"scenelogic/internal/sandbox"
)

// SceneResolver maps a persisted binding's external (name, id) pair back to
// a live receiver at load time (spec.md §6: "the caller supplies a resolver
// that maps (name, id) -> external object or returns null"). A false second
// return fails the load, naming the binding in the returned error.
type SceneResolver func(name string, id uint64) (lnode.Receiver, bool)

// Load reconstructs a full engine from r. Scripts, interfaces and modules
// are recompiled from their stored Lua source (spec.md §6: the file holds
// source, not bytecode); data arrays, animation/timer nodes and bindings
// are rebuilt directly; the links vector is replayed last, once every
// object id it can reference already exists. Load builds a brand new
// engine rather than mutating one the caller already owns, so a failed
// load never leaves a half-populated engine in the caller's hands.
func Load(r io.Reader, cfg engineconfig.EngineConfig, resolver SceneResolver) (*engine.Engine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	br := newReader(data)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if h.featureLevel > cfg.FeatureLevel {
		return nil, lerrors.New(lerrors.BinaryVersionMismatch, "file requires feature level %d, engine is configured for %d", h.featureLevel, cfg.FeatureLevel)
	}

	e := engine.New(cfg)
	fail := func(err error) (*engine.Engine, error) {
		e.Close()
		return nil, err
	}

	moduleTables := make(map[string]*lua.LTable)
	if err := loadModules(br, e, moduleTables); err != nil {
		return fail(err)
	}
	if err := loadScripts(br, e, moduleTables); err != nil {
		return fail(err)
	}
	if err := loadInterfaces(br, e); err != nil {
		return fail(err)
	}
	for _, kind := range []string{binding.KindTransform, binding.KindUniform, binding.KindCamera} {
		if err := loadBindings(br, e, kind, resolver); err != nil {
			return fail(err)
		}
	}
	if err := loadDataArrays(br, e); err != nil {
		return fail(err)
	}
	if err := loadAnimationNodes(br, e); err != nil {
		return fail(err)
	}
	if err := loadTimerNodes(br, e); err != nil {
		return fail(err)
	}
	if err := loadLinks(br, e); err != nil {
		return fail(err)
	}
	if h.featureLevel >= 2 {
		if err := loadBindings(br, e, binding.KindRenderPass, resolver); err != nil {
			return fail(err)
		}
	}

	if br.err != nil {
		return fail(fmt.Errorf("serialize: decoding failed: %w", br.err))
	}
	e.SetLastObjectID(h.lastObjectID)
	return e, nil
}

// FeatureLevelOf reads only the header, for callers that want to inspect a
// file's feature level before committing to a full Load (spec.md §6
// expansion: pkg/logicengine's FeatureLevelOf).
func FeatureLevelOf(r io.Reader) (uint32, error) {
	data, err := io.ReadAll(io.LimitReader(r, headerLen))
	if err != nil {
		return 0, err
	}
	h, err := readHeader(newReader(data))
	if err != nil {
		return 0, err
	}
	return h.featureLevel, nil
}

func readObjectHeader(r *reader) (id, userIDHigh, userIDLow uint64, name string) {
	return r.u64(), r.u64(), r.u64(), r.str()
}

func loadModules(r *reader, e *engine.Engine, tables map[string]*lua.LTable) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		source := r.str()
		deps := r.strSlice()
		mask := sandbox.StdLib(r.u32())
		if r.err != nil {
			return r.err
		}
		depTables, err := resolveModuleDeps(tables, name, deps)
		if err != nil {
			return err
		}
		node, err := lnode.CompileModule(e.Host(), id, name, source, depTables, mask)
		if err != nil {
			return err
		}
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		e.Restore(node)
		tables[name] = node.Module.Table
	}
	return nil
}

func loadScripts(r *reader, e *engine.Engine, tables map[string]*lua.LTable) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		source := r.str()
		deps := r.strSlice()
		mask := sandbox.StdLib(r.u32())
		if r.err != nil {
			return r.err
		}
		depTables, err := resolveModuleDeps(tables, name, deps)
		if err != nil {
			return err
		}
		node, err := lnode.CompileScript(e.Host(), id, name, source, depTables, mask)
		if err != nil {
			return err
		}
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		if in, ok := node.Props.Root(true); ok {
			r.valuesTree(node.Props, in)
		}
		if out, ok := node.Props.Root(false); ok {
			r.valuesTree(node.Props, out)
		}
		if r.err != nil {
			return r.err
		}
		e.Restore(node)
	}
	return nil
}

func resolveModuleDeps(tables map[string]*lua.LTable, ownerName string, deps []string) (map[string]*lua.LTable, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	out := make(map[string]*lua.LTable, len(deps))
	for _, d := range deps {
		t, ok := tables[d]
		if !ok {
			return nil, lerrors.New(lerrors.UnknownModule, "%q declares a dependency on module %q, which the file never defines before it", ownerName, d)
		}
		out[d] = t
	}
	return out, nil
}

func loadInterfaces(r *reader, e *engine.Engine) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		source := r.str()
		if r.err != nil {
			return r.err
		}
		node, err := lnode.CompileInterface(e.Host(), id, name, source)
		if err != nil {
			return err
		}
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		in, _ := node.Props.Root(true)
		r.valuesTree(node.Props, in)
		out, _ := node.Props.Root(false)
		r.valuesTree(node.Props, out)
		if r.err != nil {
			return r.err
		}
		e.Restore(node)
	}
	return nil
}

func loadBindings(r *reader, e *engine.Engine, kind string, resolver SceneResolver) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		externalName := r.str()
		externalID := r.u64()
		schema := r.schema()
		if r.err != nil {
			return r.err
		}
		receiver, ok := resolver(externalName, externalID)
		if !ok {
			return lerrors.New(lerrors.BindingSceneMismatch, "load refused: scene resolver could not find external object %q (id=%d) for binding %q", externalName, externalID, name)
		}
		node := lnode.NewBindingNode(id, name, kind, schema, lnode.ExternalRef{Name: externalName, ID: externalID}, receiver)
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		in, _ := node.Props.Root(true)
		r.valuesTree(node.Props, in)
		if r.err != nil {
			return r.err
		}
		e.Restore(node)
	}
	return nil
}

func loadDataArrays(r *reader, e *engine.Engine) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		elemType := ltypes.Type(r.u8())
		length := int(r.u32())
		if r.err != nil {
			return r.err
		}

		var node *lnode.Node
		var err error
		switch elemType {
		case ltypes.Float:
			data := make([]float32, length)
			for j := range data {
				data[j] = r.f32()
			}
			node, err = lnode.NewDataArrayFloat(id, name, data)
		case ltypes.Vec2f:
			data := make([][2]float64, length)
			for j := range data {
				data[j] = [2]float64{r.f64(), r.f64()}
			}
			node, err = lnode.NewDataArrayVec2f(id, name, data)
		case ltypes.Vec3f:
			data := make([][3]float64, length)
			for j := range data {
				data[j] = [3]float64{r.f64(), r.f64(), r.f64()}
			}
			node, err = lnode.NewDataArrayVec3f(id, name, data)
		case ltypes.Vec4f:
			data := make([][4]float64, length)
			for j := range data {
				data[j] = [4]float64{r.f64(), r.f64(), r.f64(), r.f64()}
			}
			node, err = lnode.NewDataArrayVec4f(id, name, data)
		case ltypes.Int32:
			data := make([]int32, length)
			for j := range data {
				data[j] = r.i32()
			}
			node, err = lnode.NewDataArrayInt32(id, name, data)
		case ltypes.Int64:
			data := make([]int64, length)
			for j := range data {
				data[j] = r.i64()
			}
			node, err = lnode.NewDataArrayInt64(id, name, data)
		default:
			return lerrors.New(lerrors.CorruptedBinary, "data array %q has unsupported element type tag %d", name, elemType)
		}
		if err != nil {
			return err
		}
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		e.Restore(node)
	}
	if r.err != nil {
		return r.err
	}
	return nil
}

func loadAnimationNodes(r *reader, e *engine.Engine) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		channelCount := int(r.u32())
		channels := make([]lnode.Channel, channelCount)
		for j := 0; j < channelCount; j++ {
			chName := r.str()
			tsID := r.u64()
			kfID := r.u64()
			mode := lnode.InterpolationMode(r.u8())
			hasTangents := r.boolean()
			var tanID uint64
			if hasTangents {
				tanID = r.u64()
			}
			if r.err != nil {
				return r.err
			}
			ts := e.FindByID(tsID)
			kf := e.FindByID(kfID)
			if ts == nil || kf == nil {
				return lerrors.New(lerrors.MissingSerializedField, "animation channel %q references a data array id the file never defined", chName)
			}
			ch := lnode.Channel{Name: chName, Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: mode}
			if hasTangents {
				tan := e.FindByID(tanID)
				if tan == nil {
					return lerrors.New(lerrors.MissingSerializedField, "animation channel %q references a tangent data array id the file never defined", chName)
				}
				ch.Tangents = tan.DataArray
			}
			channels[j] = ch
		}
		node, err := lnode.NewAnimationNode(id, name, channels)
		if err != nil {
			return err
		}
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		in, _ := node.Props.Root(true)
		r.valuesTree(node.Props, in)
		out, _ := node.Props.Root(false)
		r.valuesTree(node.Props, out)
		if r.err != nil {
			return r.err
		}
		e.Restore(node)
	}
	return nil
}

func loadTimerNodes(r *reader, e *engine.Engine) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		id, uidHigh, uidLow, name := readObjectHeader(r)
		external := r.boolean()
		if r.err != nil {
			return r.err
		}
		node := lnode.NewTimerNode(id, name, external)
		node.UserIDHigh, node.UserIDLow = uidHigh, uidLow
		out, _ := node.Props.Root(false)
		r.valuesTree(node.Props, out)
		if external {
			in, _ := node.Props.Root(true)
			r.valuesTree(node.Props, in)
		}
		if r.err != nil {
			return r.err
		}
		e.Restore(node)
	}
	return nil
}

func loadLinks(r *reader, e *engine.Engine) error {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		src, err := readEndpoint(r, e, false)
		if err != nil {
			return err
		}
		dst, err := readEndpoint(r, e, true)
		if err != nil {
			return err
		}
		weak := r.boolean()
		if r.err != nil {
			return r.err
		}
		if weak {
			err = e.LinkWeak(src, dst)
		} else {
			err = e.Link(src, dst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readEndpoint resolves a link endpoint against the input root (dst side)
// or the output root (src side): linkgraph.Graph.Link already guarantees
// every Src is output-frontier and every Dst is input-frontier, so which
// root to resolve against is implicit in the endpoint's position, not
// stored in the file.
func readEndpoint(r *reader, e *engine.Engine, input bool) (proptree.PropertyRef, error) {
	nodeID := r.u64()
	pathLen := int(r.u32())
	path := make([]int32, pathLen)
	for i := range path {
		path[i] = r.i32()
	}
	if r.err != nil {
		return proptree.PropertyRef{}, r.err
	}
	node := e.FindByID(nodeID)
	if node == nil || node.Props == nil {
		return proptree.PropertyRef{}, lerrors.New(lerrors.MissingSerializedField, "link references node id %d, which the file never defined with a property tree", nodeID)
	}
	root, ok := node.Props.Root(input)
	if !ok {
		return proptree.PropertyRef{}, lerrors.New(lerrors.MissingSerializedField, "link references node id %d, which has no matching property root", nodeID)
	}
	ref, ok := resolvePath(node.Props, root, path)
	if !ok {
		return proptree.PropertyRef{}, lerrors.New(lerrors.MissingSerializedField, "link references an unresolvable property path on node id %d", nodeID)
	}
	return ref, nil
}

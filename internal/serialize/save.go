package serialize

import (
	"fmt"
	"io"

	"scenelogic/internal/binding"
	"scenelogic/internal/engine"
	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lerrors"
	"scenelogic/internal/linkgraph"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// Save writes e's full object graph to w in this package's framed binary
// format (spec.md §6). Save refuses if e.Validate() reports any warning
// unless cfg.IgnoreValidationWarnings is set (spec.md §7's save()-specific
// validation gate), and refuses if the bindings present are inconsistent
// with a single external scene or with e's configured feature level.
func Save(e *engine.Engine, w io.Writer, cfg engineconfig.SaveConfig) error {
	if !cfg.IgnoreValidationWarnings {
		if warnings := e.Validate(); len(warnings) > 0 {
			return lerrors.New(lerrors.ValidationWarning, "save refused: %d unresolved validation warning(s); pass SaveConfig.IgnoreValidationWarnings to override", len(warnings))
		}
	}

	bindings := e.All(lnode.KindBinding)
	if err := checkSceneConsistency(bindings); err != nil {
		return err
	}
	if err := checkFeatureLevel(e, bindings); err != nil {
		return err
	}

	dataArrays := e.All(lnode.KindDataArray)

	bw := &writer{}
	writeHeader(bw, e.FeatureLevel(), e.LastObjectID())
	writeModules(bw, e.All(lnode.KindModule))
	writeScripts(bw, e.All(lnode.KindScript))
	writeInterfaces(bw, e.All(lnode.KindInterface))
	writeBindingsOfKind(bw, bindings, binding.KindTransform)
	writeBindingsOfKind(bw, bindings, binding.KindUniform)
	writeBindingsOfKind(bw, bindings, binding.KindCamera)
	writeDataArrays(bw, dataArrays)
	writeAnimationNodes(bw, e.All(lnode.KindAnimation))
	writeTimerNodes(bw, e.All(lnode.KindTimer))
	writeLinks(bw, e, e.Edges())
	if e.FeatureLevel() >= 2 {
		writeBindingsOfKind(bw, bindings, binding.KindRenderPass)
	}

	if bw.err != nil {
		return fmt.Errorf("serialize: encoding failed: %w", bw.err)
	}
	_, err := w.Write(bw.buf.Bytes())
	return err
}

// checkSceneConsistency implements spec.md §6's "all bindings must
// reference the same external scene id; otherwise save fails with a
// diagnostic listing the offending objects." DESIGN.md records the
// assumption this encodes: one saved file targets exactly one external
// scene, identified by the (arbitrary, caller-assigned) id half of every
// binding's ExternalRef.
func checkSceneConsistency(bindings []*lnode.Node) error {
	have := false
	var sceneID uint64
	var offenders []string
	for _, n := range bindings {
		id := n.Binding.External.ID
		if !have {
			sceneID, have = id, true
			continue
		}
		if id != sceneID {
			offenders = append(offenders, fmt.Sprintf("%s(scene_id=%d)", n.Name, id))
		}
	}
	if len(offenders) > 0 {
		return lerrors.New(lerrors.BindingSceneMismatch, "save refused: bindings reference more than one external scene id: %v", offenders)
	}
	return nil
}

// checkFeatureLevel refuses a save where a render-pass binding exists but
// e's configured feature level is below the one that kind requires.
func checkFeatureLevel(e *engine.Engine, bindings []*lnode.Node) error {
	if e.FeatureLevel() >= 2 {
		return nil
	}
	for _, n := range bindings {
		if n.Binding.Kind == binding.KindRenderPass {
			return lerrors.New(lerrors.BinaryVersionMismatch, "save refused: render-pass binding %q requires feature level >= 2, engine is configured for %d", n.Name, e.FeatureLevel())
		}
	}
	return nil
}

func writeObjectHeader(w *writer, n *lnode.Node) {
	w.u64(n.ID)
	w.u64(n.UserIDHigh)
	w.u64(n.UserIDLow)
	w.str(n.Name)
}

func writeModules(w *writer, modules []*lnode.Node) {
	w.u32(uint32(len(modules)))
	for _, n := range modules {
		writeObjectHeader(w, n)
		w.str(n.Module.Source)
		w.strSlice(n.Module.Modules)
		w.u32(uint32(n.Module.StdLibs))
	}
}

// writeScripts persists Lua source, not bytecode (spec.md §6): load()
// recompiles every script directly via lnode.CompileScript, then replays
// the stored input/output leaf values onto the freshly built tree. This
// assumes identical source recompiles to an identical property schema,
// recorded as an open-question decision in DESIGN.md.
func writeScripts(w *writer, scripts []*lnode.Node) {
	w.u32(uint32(len(scripts)))
	for _, n := range scripts {
		writeObjectHeader(w, n)
		w.str(n.Script.Source)
		w.strSlice(n.Script.Modules)
		w.u32(uint32(n.Script.Env.Libs()))
		if in, ok := n.Props.Root(true); ok {
			w.valuesTree(n.Props, in)
		}
		if out, ok := n.Props.Root(false); ok {
			w.valuesTree(n.Props, out)
		}
	}
}

func writeInterfaces(w *writer, interfaces []*lnode.Node) {
	w.u32(uint32(len(interfaces)))
	for _, n := range interfaces {
		writeObjectHeader(w, n)
		w.str(n.Interface.Source)
		in, _ := n.Props.Root(true)
		w.valuesTree(n.Props, in)
		out, _ := n.Props.Root(false)
		w.valuesTree(n.Props, out)
	}
}

func writeBindingsOfKind(w *writer, bindings []*lnode.Node, kind string) {
	var matched []*lnode.Node
	for _, n := range bindings {
		if n.Binding.Kind == kind {
			matched = append(matched, n)
		}
	}
	w.u32(uint32(len(matched)))
	for _, n := range matched {
		writeObjectHeader(w, n)
		w.str(n.Binding.External.Name)
		w.u64(n.Binding.External.ID)
		in, _ := n.Props.Root(true)
		w.schema(n.Props.SchemaOf(in))
		w.valuesTree(n.Props, in)
	}
}

func writeDataArrays(w *writer, arrays []*lnode.Node) {
	w.u32(uint32(len(arrays)))
	for _, n := range arrays {
		writeObjectHeader(w, n)
		b := n.DataArray
		w.u8(byte(b.ElemType))
		w.u32(uint32(b.Len))
		switch b.ElemType {
		case ltypes.Float:
			for _, v := range b.F {
				w.f32(v)
			}
		case ltypes.Vec2f:
			for _, v := range b.V2 {
				w.f64(v[0])
				w.f64(v[1])
			}
		case ltypes.Vec3f:
			for _, v := range b.V3 {
				w.f64(v[0])
				w.f64(v[1])
				w.f64(v[2])
			}
		case ltypes.Vec4f:
			for _, v := range b.V4 {
				w.f64(v[0])
				w.f64(v[1])
				w.f64(v[2])
				w.f64(v[3])
			}
		case ltypes.Int32:
			for _, v := range b.I32 {
				w.i32(v)
			}
		case ltypes.Int64:
			for _, v := range b.I64 {
				w.i64(v)
			}
		}
	}
}

func writeAnimationNodes(w *writer, nodes []*lnode.Node) {
	w.u32(uint32(len(nodes)))
	for _, n := range nodes {
		writeObjectHeader(w, n)
		w.u32(uint32(len(n.Animation.Channels)))
		for _, c := range n.Animation.Channels {
			w.str(c.Name)
			w.u64(c.Timestamps.OwnerID)
			w.u64(c.Keyframes.OwnerID)
			w.u8(byte(c.Mode))
			if c.Tangents != nil {
				w.boolean(true)
				w.u64(c.Tangents.OwnerID)
			} else {
				w.boolean(false)
			}
		}
		in, _ := n.Props.Root(true)
		w.valuesTree(n.Props, in)
		out, _ := n.Props.Root(false)
		w.valuesTree(n.Props, out)
	}
}

func writeTimerNodes(w *writer, nodes []*lnode.Node) {
	w.u32(uint32(len(nodes)))
	for _, n := range nodes {
		writeObjectHeader(w, n)
		w.boolean(n.Timer.External)
		out, _ := n.Props.Root(false)
		w.valuesTree(n.Props, out)
		if n.Timer.External {
			in, _ := n.Props.Root(true)
			w.valuesTree(n.Props, in)
		}
	}
}

func writeLinks(w *writer, e *engine.Engine, edges []linkgraph.Edge) {
	w.u32(uint32(len(edges)))
	for _, edge := range edges {
		writeEndpoint(w, e, edge.Src)
		writeEndpoint(w, e, edge.Dst)
		w.boolean(edge.Weak)
	}
}

func writeEndpoint(w *writer, e *engine.Engine, ref proptree.PropertyRef) {
	w.u64(ref.NodeID)
	node := e.FindByID(ref.NodeID)
	path := propertyPath(node.Props, ref)
	w.u32(uint32(len(path)))
	for _, idx := range path {
		w.i32(idx)
	}
}

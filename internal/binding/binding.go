// Package binding supplies the concrete input schemas behind spec.md §6's
// create_binding_<kind> operations: transform, uniform, camera, and
// render-pass. Each constructor returns the frozen schema plus the kind tag
// internal/lnode.BindingBody and internal/serialize use to route the object
// into its proper ApiObjects vector (node-bindings, appearance-bindings,
// camera-bindings, ...). internal/lnode owns the generic Binding leaf
// itself (input-only property tree, flush-on-pending); this package only
// shapes that tree, grounded on
// original_source/lib/impl/RamsesAppearanceBindingImpl.h's named, typed
// uniform slots.
package binding

import "scenelogic/internal/ltypes"

// Kind tags identify which create_binding_<kind> flavor a Binding node is,
// independent of its property schema (spec.md §6 ApiObjects vectors: "node
// bindings, appearance bindings, camera bindings").
const (
	KindTransform  = "transform"  // node-bindings vector
	KindUniform    = "uniform"    // appearance-bindings vector
	KindCamera     = "camera"     // camera-bindings vector
	KindRenderPass = "renderpass" // feature-level-gated additional binding kind
)

// TransformSchema is a ramses scene node's local transform: translation,
// rotation (Euler degrees), and scale, each a 3-float vector.
func TransformSchema() *ltypes.HierarchicalType {
	schema, err := ltypes.NewStruct([]ltypes.Field{
		{Name: "translation", Type: ltypes.Leaf(ltypes.Vec3f)},
		{Name: "rotation", Type: ltypes.Leaf(ltypes.Vec3f)},
		{Name: "scale", Type: ltypes.Leaf(ltypes.Vec3f)},
	})
	if err != nil {
		panic(err) // schema is a fixed literal; NewStruct only fails on caller error
	}
	return schema
}

// UniformSlot names one appearance uniform and the type it accepts.
// Supported types mirror the float/vector/integer leaves ramses uniforms
// actually carry — no Bool/String uniform slots exist in the original.
type UniformSlot struct {
	Name string
	Type ltypes.Type
}

// UniformSchema builds an appearance binding's input tree from the
// caller-declared uniform slot set (the concrete names and types come from
// the material the binding targets, so this is a constructor rather than a
// fixed literal like TransformSchema).
func UniformSchema(slots []UniformSlot) (*ltypes.HierarchicalType, error) {
	fields := make([]ltypes.Field, 0, len(slots))
	for _, s := range slots {
		fields = append(fields, ltypes.Field{Name: s.Name, Type: ltypes.Leaf(s.Type)})
	}
	return ltypes.NewStruct(fields)
}

// CameraSchema is a ramses camera's viewport (pixel rect) and frustum
// (perspective planes).
func CameraSchema() *ltypes.HierarchicalType {
	schema, err := ltypes.NewStruct([]ltypes.Field{
		{Name: "viewport", Type: mustStruct(
			ltypes.Field{Name: "x", Type: ltypes.Leaf(ltypes.Int32)},
			ltypes.Field{Name: "y", Type: ltypes.Leaf(ltypes.Int32)},
			ltypes.Field{Name: "width", Type: ltypes.Leaf(ltypes.Int32)},
			ltypes.Field{Name: "height", Type: ltypes.Leaf(ltypes.Int32)},
		)},
		{Name: "frustum", Type: mustStruct(
			ltypes.Field{Name: "near_plane", Type: ltypes.Leaf(ltypes.Float)},
			ltypes.Field{Name: "far_plane", Type: ltypes.Leaf(ltypes.Float)},
			ltypes.Field{Name: "field_of_view", Type: ltypes.Leaf(ltypes.Float)},
			ltypes.Field{Name: "aspect_ratio", Type: ltypes.Leaf(ltypes.Float)},
		)},
	})
	if err != nil {
		panic(err)
	}
	return schema
}

// RenderPassSchema is a ramses render pass's tunable parameters: whether it
// runs this frame, its ordering among other passes, and its clear color.
func RenderPassSchema() *ltypes.HierarchicalType {
	schema, err := ltypes.NewStruct([]ltypes.Field{
		{Name: "enabled", Type: ltypes.Leaf(ltypes.Bool)},
		{Name: "render_order", Type: ltypes.Leaf(ltypes.Int32)},
		{Name: "clear_color", Type: ltypes.Leaf(ltypes.Vec4f)},
	})
	if err != nil {
		panic(err)
	}
	return schema
}

func mustStruct(fields ...ltypes.Field) *ltypes.HierarchicalType {
	s, err := ltypes.NewStruct(fields)
	if err != nil {
		panic(err)
	}
	return s
}

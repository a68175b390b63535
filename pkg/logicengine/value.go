package logicengine

import "scenelogic/internal/ltypes"

// Value is a property's stored value, in whichever of its fields matches
// its declared Type (spec.md §4.A). Aliased from internal/ltypes rather
// than redefined, since every Create*/Get/Set call below passes it
// straight through to the engine.
type Value = ltypes.Value

func BoolValue(v bool) Value     { return ltypes.BoolValue(v) }
func Int32Value(v int32) Value   { return ltypes.Int32Value(v) }
func Int64Value(v int64) Value   { return ltypes.Int64Value(v) }
func FloatValue(v float32) Value { return ltypes.FloatValue(v) }
func StringValue(v string) Value { return ltypes.StringValue(v) }

func Vec2fValue(x, y float64) Value       { return ltypes.Vec2fValue(x, y) }
func Vec3fValue(x, y, z float64) Value    { return ltypes.Vec3fValue(x, y, z) }
func Vec4fValue(x, y, z, w float64) Value { return ltypes.Vec4fValue(x, y, z, w) }
func Vec2iValue(x, y int64) Value         { return ltypes.Vec2iValue(x, y) }
func Vec3iValue(x, y, z int64) Value      { return ltypes.Vec3iValue(x, y, z) }
func Vec4iValue(x, y, z, w int64) Value   { return ltypes.Vec4iValue(x, y, z, w) }

// Get returns the value currently stored at p (spec.md §4.A
// "Property::get<T>()").
func (p PropertyRef) Get() (Value, error) {
	return p.obj.node.Props.GetAny(p.ref)
}

// Set writes v to p, subject to the property's role (a Script, Animation
// or Timer output, or a Module field, rejects the write with an error
// wrapping proptree's read-only sentinel; spec.md §4.A
// "Property::set<T>(v)"). Whether p is the target of a link is not checked.
func (p PropertyRef) Set(v Value) error {
	return p.obj.node.Props.Set(p.ref, v)
}

package ltypes

import "math"

// Value holds a primitive or fixed-width-vector value. Exactly one field is
// meaningful, selected by Type; composites (Struct, Array) never carry a
// Value — they carry children instead (see proptree.Property).
type Value struct {
	Type Type

	B bool
	I int32
	L int64
	F float32
	S string

	// Vector components, always stored as float64 for Vec*f and int64 for
	// Vec*i; VectorSize() components are meaningful.
	VF [4]float64
	VI [4]int64
}

func BoolValue(v bool) Value     { return Value{Type: Bool, B: v} }
func Int32Value(v int32) Value   { return Value{Type: Int32, I: v} }
func Int64Value(v int64) Value   { return Value{Type: Int64, L: v} }
func FloatValue(v float32) Value { return Value{Type: Float, F: v} }
func StringValue(v string) Value { return Value{Type: String, S: v} }

func Vec2fValue(x, y float64) Value       { return Value{Type: Vec2f, VF: [4]float64{x, y}} }
func Vec3fValue(x, y, z float64) Value    { return Value{Type: Vec3f, VF: [4]float64{x, y, z}} }
func Vec4fValue(x, y, z, w float64) Value { return Value{Type: Vec4f, VF: [4]float64{x, y, z, w}} }
func Vec2iValue(x, y int64) Value         { return Value{Type: Vec2i, VI: [4]int64{x, y}} }
func Vec3iValue(x, y, z int64) Value      { return Value{Type: Vec3i, VI: [4]int64{x, y, z}} }
func Vec4iValue(x, y, z, w int64) Value   { return Value{Type: Vec4i, VI: [4]int64{x, y, z, w}} }

// Equal implements the value-equality rule from spec.md §4.F: primitives by
// value, strings by content, vectors componentwise. Composite values are
// never compared here (see proptree for struct/array recursive equality).
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Bool:
		return v.B == o.B
	case Int32:
		return v.I == o.I
	case Int64:
		return v.L == o.L
	case Float:
		return v.F == o.F
	case String:
		return v.S == o.S
	case Vec2f, Vec3f, Vec4f:
		n := v.Type.VectorSize()
		for i := 0; i < n; i++ {
			if v.VF[i] != o.VF[i] {
				return false
			}
		}
		return true
	case Vec2i, Vec3i, Vec4i:
		n := v.Type.VectorSize()
		for i := 0; i < n; i++ {
			if v.VI[i] != o.VI[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Zero returns the zero value for a primitive/vector type.
func Zero(t Type) Value {
	switch t {
	case Bool:
		return BoolValue(false)
	case Int32:
		return Int32Value(0)
	case Int64:
		return Int64Value(0)
	case Float:
		return FloatValue(0)
	case String:
		return StringValue("")
	case Vec2f:
		return Vec2fValue(0, 0)
	case Vec3f:
		return Vec3fValue(0, 0, 0)
	case Vec4f:
		return Vec4fValue(0, 0, 0, 0)
	case Vec2i:
		return Vec2iValue(0, 0)
	case Vec3i:
		return Vec3iValue(0, 0, 0)
	case Vec4i:
		return Vec4iValue(0, 0, 0, 0)
	default:
		return Value{Type: t}
	}
}

// numEpsilon is the tolerance used when checking that a Lua double is
// "integral enough" to convert without silent truncation (spec.md §4.D),
// grounded on original_source's use of std::numeric_limits<double>::epsilon
// as the rounding tolerance.
const numEpsilon = 0x1p-52 // ~2.22e-16, i.e. float64 machine epsilon

// DoubleToFloat32 converts a Lua double to float32, failing if out of range.
func DoubleToFloat32(d float64) (float32, bool) {
	if d > math.MaxFloat32 || d < -math.MaxFloat32 {
		return 0, false
	}
	return float32(d), true
}

// DoubleToInt32 converts, requiring the value be within one epsilon of an
// integer and in int32 range.
func DoubleToInt32(d float64) (int32, bool) {
	rounded := math.Round(d)
	if math.Abs(d-rounded) > numEpsilon {
		return 0, false
	}
	if rounded > math.MaxInt32 || rounded < math.MinInt32 {
		return 0, false
	}
	return int32(rounded), true
}

// DoubleToInt64 mirrors DoubleToInt32 for the 64-bit case.
func DoubleToInt64(d float64) (int64, bool) {
	rounded := math.Round(d)
	if math.Abs(d-rounded) > numEpsilon {
		return 0, false
	}
	if rounded > math.MaxInt64 || rounded < math.MinInt64 {
		return 0, false
	}
	return int64(rounded), true
}

// DoubleToIndex converts to a non-negative array index (0-based), requiring
// non-negativity within one epsilon in addition to the integrality rule.
func DoubleToIndex(d float64) (int, bool) {
	if d < -numEpsilon {
		return 0, false
	}
	rounded := math.Round(d)
	if math.Abs(d-rounded) > numEpsilon {
		return 0, false
	}
	if rounded < 0 || rounded > math.MaxInt32 {
		return 0, false
	}
	return int(rounded), true
}

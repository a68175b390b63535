package lnode

import (
	"fmt"

	"scenelogic/internal/ltypes"
)

// DataArrayBody is a typed, named, immutable 1-D array (spec.md §4.E
// "DataArray"). It carries no Property tree (Header.Props is nil, like
// Module) — it exists purely as keyframe/timestamp data referenced by
// AnimationNode channels. RefCount tracks how many AnimationNode channels
// currently reference it; the engine façade refuses Destroy while it is
// nonzero.
type DataArrayBody struct {
	// OwnerID is this array's own node id, carried on the body (not just the
	// Header) so an AnimationNode channel — which holds a *DataArrayBody,
	// not a node id — can still be traced back to it at save time.
	OwnerID  uint64
	ElemType ltypes.Type
	Len      int

	F   []float32
	V2  [][2]float64
	V3  [][3]float64
	V4  [][4]float64
	I32 []int32
	I64 []int64

	RefCount int
}

func validDataArrayElemType(t ltypes.Type) bool {
	switch t {
	case ltypes.Float, ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f, ltypes.Int32, ltypes.Int64:
		return true
	default:
		return false
	}
}

// NewDataArrayFloat, NewDataArrayVec2f, ... build a DataArray node from a
// caller-supplied slice. Each requires at least one element (an empty
// DataArray carries no meaningful "duration" or bracketing segment for an
// AnimationNode channel).
func NewDataArrayFloat(id uint64, name string, data []float32) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Float, Len: len(data), F: append([]float32(nil), data...)}), nil
}

func NewDataArrayVec2f(id uint64, name string, data [][2]float64) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Vec2f, Len: len(data), V2: append([][2]float64(nil), data...)}), nil
}

func NewDataArrayVec3f(id uint64, name string, data [][3]float64) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Vec3f, Len: len(data), V3: append([][3]float64(nil), data...)}), nil
}

func NewDataArrayVec4f(id uint64, name string, data [][4]float64) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Vec4f, Len: len(data), V4: append([][4]float64(nil), data...)}), nil
}

func NewDataArrayInt32(id uint64, name string, data []int32) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Int32, Len: len(data), I32: append([]int32(nil), data...)}), nil
}

func NewDataArrayInt64(id uint64, name string, data []int64) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("[%s] DataArray must contain at least one element", name)
	}
	return newDataArrayNode(id, name, &DataArrayBody{ElemType: ltypes.Int64, Len: len(data), I64: append([]int64(nil), data...)}), nil
}

func newDataArrayNode(id uint64, name string, body *DataArrayBody) *Node {
	body.OwnerID = id
	return &Node{
		Header:    Header{ID: id, Name: name},
		Kind:      KindDataArray,
		DataArray: body,
	}
}

// At returns the element at index i as an ltypes.Value.
func (b *DataArrayBody) At(i int) ltypes.Value {
	switch b.ElemType {
	case ltypes.Float:
		return ltypes.FloatValue(b.F[i])
	case ltypes.Vec2f:
		return ltypes.Vec2fValue(b.V2[i][0], b.V2[i][1])
	case ltypes.Vec3f:
		return ltypes.Vec3fValue(b.V3[i][0], b.V3[i][1], b.V3[i][2])
	case ltypes.Vec4f:
		return ltypes.Vec4fValue(b.V4[i][0], b.V4[i][1], b.V4[i][2], b.V4[i][3])
	case ltypes.Int32:
		return ltypes.Int32Value(b.I32[i])
	case ltypes.Int64:
		return ltypes.Int64Value(b.I64[i])
	default:
		panic("lnode: unreachable DataArray element type")
	}
}

// StrictlyIncreasing reports whether a Float DataArray's values strictly
// increase, the invariant AnimationNode requires of a channel's timestamp
// array.
func (b *DataArrayBody) StrictlyIncreasing() bool {
	if b.ElemType != ltypes.Float {
		return false
	}
	for i := 1; i < len(b.F); i++ {
		if b.F[i] <= b.F[i-1] {
			return false
		}
	}
	return true
}

// AddRef / Release implement the AnimationNode reference count that guards
// destruction (spec.md §4.E: "Destruction is refused while any
// AnimationNode references it").
func (b *DataArrayBody) AddRef()    { b.RefCount++ }
func (b *DataArrayBody) Release()   { b.RefCount-- }
func (b *DataArrayBody) Referenced() bool { return b.RefCount > 0 }

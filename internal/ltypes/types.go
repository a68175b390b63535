// Package ltypes defines the closed value-type system shared by every
// property in the engine: primitives, fixed-width vectors, and the two
// composite kinds (Struct, Array) that a Lua interface() call can build.
package ltypes

import "fmt"

// Type is the discriminator for a property's declared type. It is closed —
// callers never introduce a new Type at runtime.
type Type int

const (
	Bool Type = iota
	Int32
	Int64
	Float
	String
	Vec2f
	Vec3f
	Vec4f
	Vec2i
	Vec3i
	Vec4i
	Struct
	Array
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "Bool"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float:
		return "Float"
	case String:
		return "String"
	case Vec2f:
		return "Vec2f"
	case Vec3f:
		return "Vec3f"
	case Vec4f:
		return "Vec4f"
	case Vec2i:
		return "Vec2i"
	case Vec3i:
		return "Vec3i"
	case Vec4i:
		return "Vec4i"
	case Struct:
		return "Struct"
	case Array:
		return "Array"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsPrimitiveOrVector reports whether a value slot exists for this type
// (i.e. it is a leaf, not a composite).
func (t Type) IsPrimitiveOrVector() bool {
	return t != Struct && t != Array
}

// VectorSize returns the component count for a fixed-width vector type, or
// 0 if t is not a vector.
func (t Type) VectorSize() int {
	switch t {
	case Vec2f, Vec2i:
		return 2
	case Vec3f, Vec3i:
		return 3
	case Vec4f, Vec4i:
		return 4
	default:
		return 0
	}
}

// IsIntegerVector reports whether the vector type holds Int32 components
// (as opposed to Float components).
func (t Type) IsIntegerVector() bool {
	return t == Vec2i || t == Vec3i || t == Vec4i
}

const (
	// MinArrayLength and MaxArrayLength bound Array element counts (§3).
	MinArrayLength = 1
	MaxArrayLength = 255
)

// HierarchicalType is a frozen schema: either a primitive/vector leaf, an
// ordered Struct of named fields, or a homogeneous fixed-length Array.
// Extraction produces one of these; once frozen it is never mutated, so it
// is safe to share (e.g. array elements all reference conceptually the same
// field layout, deep-copied once at extraction time per spec.md §4.A).
type HierarchicalType struct {
	Kind Type

	// Struct fields, sorted lexicographically by Name at freeze time.
	Fields []Field

	// Array-only.
	ArrayLen     int
	ArrayElement *HierarchicalType
}

// Field is one named child of a Struct schema.
type Field struct {
	Name string
	Type *HierarchicalType
}

// Leaf builds a primitive/vector schema node.
func Leaf(t Type) *HierarchicalType {
	if !t.IsPrimitiveOrVector() {
		panic("ltypes: Leaf called with composite type " + t.String())
	}
	return &HierarchicalType{Kind: t}
}

// NewStruct builds a Struct schema from unordered fields, sorting them
// lexicographically by name (spec.md §4.A struct ordering rule).
func NewStruct(fields []Field) (*HierarchicalType, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("ltypes: struct field must have a non-empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("ltypes: duplicate struct field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sortFields(sorted)
	return &HierarchicalType{Kind: Struct, Fields: sorted}, nil
}

func sortFields(fields []Field) {
	// Simple insertion sort: struct arity is small (spec.md notes "structs
	// rarely exceed tens of fields"), so O(n^2) is the right trade for
	// avoiding an extra import and matching the linear-scan philosophy used
	// throughout property access.
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j].Name < fields[j-1].Name; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
}

// NewArray builds an Array schema of length n over element schema elem.
// Arrays of arrays are rejected; element struct schemas are expected to
// already be frozen (callers deep-copy per element at materialization time,
// not here — this just records the shared schema).
func NewArray(n int, elem *HierarchicalType) (*HierarchicalType, error) {
	if n < MinArrayLength || n > MaxArrayLength {
		return nil, fmt.Errorf("ltypes: array length %d out of range [%d,%d]", n, MinArrayLength, MaxArrayLength)
	}
	if elem == nil {
		return nil, fmt.Errorf("ltypes: array element type is nil")
	}
	if elem.Kind == Array {
		return nil, fmt.Errorf("ltypes: array of array is not allowed")
	}
	return &HierarchicalType{Kind: Array, ArrayLen: n, ArrayElement: elem}, nil
}

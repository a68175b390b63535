// Package serialize implements spec.md §6's framed binary save/load format:
// a fixed header (root offset, 4-byte ASCII identifier, feature level, last
// object id) followed by the ApiObjects vectors in their spec-mandated
// order. There is no real FlatBuffers schema behind this — ramses-logic's
// own .bin files are a generated FlatBuffers table, but reproducing that
// code generator is out of reach here, so this package hand-rolls the same
// shape with encoding/binary: a fixed little-endian, length-prefixed layout
// that a reader can walk without a schema compiler. The framing itself uses
// only the standard library (DESIGN.md explains why).
package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"scenelogic/internal/ltypes"
)

// writer accumulates an in-memory buffer, recording the first encoding
// error it hits and silently no-oping every call after that (a sticky
// first-error idiom).
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) put(v any) {
	if w.err != nil {
		return
	}
	if err := binary.Write(&w.buf, binary.LittleEndian, v); err != nil {
		w.fail(err)
	}
}

func (w *writer) u8(v byte)     { w.put(v) }
func (w *writer) u32(v uint32)  { w.put(v) }
func (w *writer) u64(v uint64)  { w.put(v) }
func (w *writer) i32(v int32)   { w.put(v) }
func (w *writer) i64(v int64)   { w.put(v) }
func (w *writer) f32(v float32) { w.put(v) }
func (w *writer) f64(v float64) { w.put(v) }

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	if w.err != nil {
		return
	}
	if _, err := w.buf.WriteString(s); err != nil {
		w.fail(err)
	}
}

func (w *writer) strSlice(ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

// value encodes a leaf property value self-describing by type tag, so a
// reader never needs outside context to decode one (spec.md §6: "value
// union").
func (w *writer) value(v ltypes.Value) {
	w.u8(byte(v.Type))
	switch v.Type {
	case ltypes.Bool:
		w.boolean(v.B)
	case ltypes.Int32:
		w.i32(v.I)
	case ltypes.Int64:
		w.i64(v.L)
	case ltypes.Float:
		w.f32(v.F)
	case ltypes.String:
		w.str(v.S)
	case ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f:
		for i := 0; i < v.Type.VectorSize(); i++ {
			w.f64(v.VF[i])
		}
	case ltypes.Vec2i, ltypes.Vec3i, ltypes.Vec4i:
		for i := 0; i < v.Type.VectorSize(); i++ {
			w.i64(v.VI[i])
		}
	default:
		w.fail(fmt.Errorf("serialize: %s has no leaf value to write", v.Type))
	}
}

// schema recursively encodes a frozen ltypes.HierarchicalType: a kind byte,
// then (for Struct) a field count of (name, schema) pairs, or (for Array) a
// length and one element schema. Used only for Binding nodes, whose schema
// (unlike a Script/Interface/Module's, which is re-derived by recompiling
// its Lua source) cannot always be rebuilt from a kind tag alone — an
// appearance binding's uniform slots are caller-declared, not fixed.
func (w *writer) schema(s *ltypes.HierarchicalType) {
	if w.err != nil {
		return
	}
	w.u8(byte(s.Kind))
	switch s.Kind {
	case ltypes.Struct:
		w.u32(uint32(len(s.Fields)))
		for _, f := range s.Fields {
			w.str(f.Name)
			w.schema(f.Type)
		}
	case ltypes.Array:
		w.u32(uint32(s.ArrayLen))
		w.schema(s.ArrayElement)
	}
}

// reader mirrors writer over an in-memory byte slice, with the same sticky
// first-error behavior.
type reader struct {
	r   *bytes.Reader
	err error
}

func newReader(data []byte) *reader { return &reader{r: bytes.NewReader(data)} }

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) get(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.fail(err)
	}
}

func (r *reader) u8() byte {
	var v byte
	r.get(&v)
	return v
}
func (r *reader) u32() uint32 {
	var v uint32
	r.get(&v)
	return v
}
func (r *reader) u64() uint64 {
	var v uint64
	r.get(&v)
	return v
}
func (r *reader) i32() int32 {
	var v int32
	r.get(&v)
	return v
}
func (r *reader) i64() int64 {
	var v int64
	r.get(&v)
	return v
}
func (r *reader) f32() float32 {
	var v float32
	r.get(&v)
	return v
}
func (r *reader) f64() float64 {
	var v float64
	r.get(&v)
	return v
}
func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) raw(n int) []byte {
	if r.err != nil || n < 0 {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.fail(err)
		return nil
	}
	return b
}

func (r *reader) str() string {
	n := int(r.u32())
	b := r.raw(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) strSlice() []string {
	n := int(r.u32())
	out := make([]string, n)
	for i := range out {
		out[i] = r.str()
	}
	return out
}

func (r *reader) value() ltypes.Value {
	t := ltypes.Type(r.u8())
	switch t {
	case ltypes.Bool:
		return ltypes.BoolValue(r.boolean())
	case ltypes.Int32:
		return ltypes.Int32Value(r.i32())
	case ltypes.Int64:
		return ltypes.Int64Value(r.i64())
	case ltypes.Float:
		return ltypes.FloatValue(r.f32())
	case ltypes.String:
		return ltypes.StringValue(r.str())
	case ltypes.Vec2f:
		return ltypes.Vec2fValue(r.f64(), r.f64())
	case ltypes.Vec3f:
		return ltypes.Vec3fValue(r.f64(), r.f64(), r.f64())
	case ltypes.Vec4f:
		return ltypes.Vec4fValue(r.f64(), r.f64(), r.f64(), r.f64())
	case ltypes.Vec2i:
		return ltypes.Vec2iValue(r.i64(), r.i64())
	case ltypes.Vec3i:
		return ltypes.Vec3iValue(r.i64(), r.i64(), r.i64())
	case ltypes.Vec4i:
		return ltypes.Vec4iValue(r.i64(), r.i64(), r.i64(), r.i64())
	default:
		r.fail(fmt.Errorf("serialize: unknown value type tag %d", t))
		return ltypes.Value{}
	}
}

func (r *reader) schema() *ltypes.HierarchicalType {
	if r.err != nil {
		return nil
	}
	k := ltypes.Type(r.u8())
	switch k {
	case ltypes.Struct:
		n := int(r.u32())
		fields := make([]ltypes.Field, n)
		for i := range fields {
			name := r.str()
			typ := r.schema()
			fields[i] = ltypes.Field{Name: name, Type: typ}
		}
		if r.err != nil {
			return nil
		}
		s, err := ltypes.NewStruct(fields)
		if err != nil {
			r.fail(err)
			return nil
		}
		return s
	case ltypes.Array:
		n := int(r.u32())
		elem := r.schema()
		if r.err != nil {
			return nil
		}
		s, err := ltypes.NewArray(n, elem)
		if err != nil {
			r.fail(err)
			return nil
		}
		return s
	default:
		if !k.IsPrimitiveOrVector() {
			r.fail(fmt.Errorf("serialize: unknown schema kind tag %d", k))
			return nil
		}
		return ltypes.Leaf(k)
	}
}

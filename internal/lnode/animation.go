package lnode

import (
	"fmt"
	"sort"

	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// InterpolationMode selects how an AnimationNode channel interpolates
// between two bracketing keyframes (spec.md §4.E "AnimationNode").
type InterpolationMode int

const (
	Step InterpolationMode = iota
	Linear
	Cubic
)

func (m InterpolationMode) String() string {
	switch m {
	case Step:
		return "Step"
	case Linear:
		return "Linear"
	case Cubic:
		return "Cubic"
	default:
		return "Unknown"
	}
}

// Channel is one AnimationNode channel: a strictly-increasing Float
// timestamp DataArray, a same-length keyframe DataArray of any supported
// element type, an interpolation mode, and — for Cubic — a Tangents
// DataArray of twice the keyframe length. Per SPEC_FULL.md §3.E (following
// original_source, since spec.md names Cubic without detailing its tangent
// storage), tangents interleave in/out per keyframe: index 2*i is
// keyframe i's incoming tangent, 2*i+1 its outgoing tangent.
type Channel struct {
	Name       string
	Timestamps *DataArrayBody
	Keyframes  *DataArrayBody
	Mode       InterpolationMode
	Tangents   *DataArrayBody // Cubic only; nil otherwise
}

// AnimationBody holds the validated channel set backing an AnimationNode.
type AnimationBody struct {
	Channels []Channel
}

func validateChannel(c Channel) error {
	if c.Name == "" {
		return fmt.Errorf("channel must have a non-empty name")
	}
	if c.Timestamps == nil || c.Timestamps.ElemType != ltypes.Float {
		return fmt.Errorf("channel %q: timestamps must be a Float DataArray", c.Name)
	}
	if !c.Timestamps.StrictlyIncreasing() {
		return fmt.Errorf("channel %q: timestamps must be strictly increasing", c.Name)
	}
	if c.Timestamps.Len < 2 {
		return fmt.Errorf("channel %q: needs at least two keyframes to interpolate", c.Name)
	}
	if c.Keyframes == nil {
		return fmt.Errorf("channel %q: keyframes DataArray is required", c.Name)
	}
	if c.Keyframes.Len != c.Timestamps.Len {
		return fmt.Errorf("channel %q: keyframes length %d does not match timestamps length %d", c.Name, c.Keyframes.Len, c.Timestamps.Len)
	}
	if c.Mode == Cubic {
		if c.Tangents == nil {
			return fmt.Errorf("channel %q: Cubic interpolation requires a tangent DataArray", c.Name)
		}
		if c.Tangents.ElemType != c.Keyframes.ElemType {
			return fmt.Errorf("channel %q: tangent element type must match keyframe element type", c.Name)
		}
		if c.Tangents.Len != 2*c.Keyframes.Len {
			return fmt.Errorf("channel %q: tangent array must have 2x the keyframe length (got %d, want %d)", c.Name, c.Tangents.Len, 2*c.Keyframes.Len)
		}
	}
	return nil
}

// NewAnimationNode builds an AnimationNode from one or more channels: input
// `progress` (Float), one output per channel (the keyframe element type)
// plus a `duration` output (Float, the longest channel's last timestamp).
// Every referenced DataArray is ref-counted so the engine façade can refuse
// to destroy it while this node exists.
func NewAnimationNode(id uint64, name string, channels []Channel) (*Node, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("[%s] AnimationNode requires at least one channel", name)
	}
	seen := make(map[string]bool, len(channels))
	for _, c := range channels {
		if err := validateChannel(c); err != nil {
			return nil, fmt.Errorf("[%s] %w", name, err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("[%s] duplicate channel name %q", name, c.Name)
		}
		seen[c.Name] = true
	}

	fields := make([]ltypes.Field, 0, len(channels)+1)
	fields = append(fields, ltypes.Field{Name: "duration", Type: ltypes.Leaf(ltypes.Float)})
	for _, c := range channels {
		fields = append(fields, ltypes.Field{Name: c.Name, Type: ltypes.Leaf(channelOutputType(c))})
	}
	outSchema, err := ltypes.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}
	inSchema, err := ltypes.NewStruct([]ltypes.Field{{Name: "progress", Type: ltypes.Leaf(ltypes.Float)}})
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", name, err)
	}

	tree := proptree.NewTree(id, inSchema, proptree.RoleAnimationInput, outSchema, proptree.RoleAnimationOutput)

	for _, c := range channels {
		c.Timestamps.AddRef()
		c.Keyframes.AddRef()
		if c.Tangents != nil {
			c.Tangents.AddRef()
		}
	}

	n := &Node{
		Header:    Header{ID: id, Name: name, Props: tree},
		Kind:      KindAnimation,
		Animation: &AnimationBody{Channels: append([]Channel(nil), channels...)},
	}
	n.wireDirty()
	return n, nil
}

func channelOutputType(c Channel) ltypes.Type {
	return c.Keyframes.ElemType
}

// bracket finds i such that timestamps[i] <= t < timestamps[i+1] via binary
// search, clamping t to the channel's domain at the ends. Returns the
// segment index and the normalized 0..1 position within it.
func bracket(timestamps []float32, t float32) (seg int, frac float32) {
	n := len(timestamps)
	if t <= timestamps[0] {
		return 0, 0
	}
	if t >= timestamps[n-1] {
		return n - 2, 1
	}
	i := sort.Search(n, func(i int) bool { return timestamps[i] > t }) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	span := timestamps[i+1] - timestamps[i]
	frac = (t - timestamps[i]) / span
	return i, frac
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// hermite evaluates the cubic Hermite basis at frac for bracketing points
// p0,p1 with outgoing tangent m0 (of p0) and incoming tangent m1 (of p1).
// The tangents are applied as given, per normalized segment parameter; they
// are not scaled by the segment's time span.
func hermite(p0, p1, m0, m1, frac float64) float64 {
	t2 := frac * frac
	t3 := t2 * frac
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + frac
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*p0 + h10*m0 + h01*p1 + h11*m1
}

func interpolateScalar(c Channel, seg int, frac float32, at func(*DataArrayBody, int) float64) float64 {
	p0 := at(c.Keyframes, seg)
	p1 := at(c.Keyframes, seg+1)
	switch c.Mode {
	case Step:
		if frac >= 1 {
			return p1
		}
		return p0
	case Linear:
		return lerp(p0, p1, float64(frac))
	case Cubic:
		m0 := at(c.Tangents, 2*seg+1)   // p0's outgoing tangent
		m1 := at(c.Tangents, 2*(seg+1)) // p1's incoming tangent
		return hermite(p0, p1, m0, m1, float64(frac))
	default:
		return p0
	}
}

func scalarAt(b *DataArrayBody, i int) float64 {
	switch b.ElemType {
	case ltypes.Float:
		return float64(b.F[i])
	case ltypes.Int32:
		return float64(b.I32[i])
	case ltypes.Int64:
		return float64(b.I64[i])
	default:
		panic("lnode: scalarAt called on a vector DataArray")
	}
}

func vectorComponentAt(b *DataArrayBody, component, i int) float64 {
	switch b.ElemType {
	case ltypes.Vec2f:
		return b.V2[i][component]
	case ltypes.Vec3f:
		return b.V3[i][component]
	case ltypes.Vec4f:
		return b.V4[i][component]
	default:
		panic("lnode: vectorComponentAt called on a scalar DataArray")
	}
}

// evaluateChannel interpolates c at time t and returns the resulting value.
func evaluateChannel(c Channel, t float32) ltypes.Value {
	seg, frac := bracket(c.Timestamps.F, t)
	switch c.Keyframes.ElemType {
	case ltypes.Float:
		return ltypes.FloatValue(float32(interpolateScalar(c, seg, frac, scalarAt)))
	case ltypes.Int32:
		return ltypes.Int32Value(int32(interpolateScalar(c, seg, frac, scalarAt)))
	case ltypes.Int64:
		return ltypes.Int64Value(int64(interpolateScalar(c, seg, frac, scalarAt)))
	case ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f:
		n := c.Keyframes.ElemType.VectorSize()
		var out [4]float64
		for comp := 0; comp < n; comp++ {
			out[comp] = interpolateScalar(c, seg, frac, func(b *DataArrayBody, i int) float64 {
				return vectorComponentAt(b, comp, i)
			})
		}
		switch c.Keyframes.ElemType {
		case ltypes.Vec2f:
			return ltypes.Vec2fValue(out[0], out[1])
		case ltypes.Vec3f:
			return ltypes.Vec3fValue(out[0], out[1], out[2])
		default:
			return ltypes.Vec4fValue(out[0], out[1], out[2], out[3])
		}
	default:
		panic("lnode: unsupported AnimationNode channel element type")
	}
}

// EvaluateAnimation reads the `progress` input, interpolates every channel
// at that time, and writes each channel output plus `duration` (the
// longest channel's last timestamp).
func EvaluateAnimation(n *Node) error {
	in, _ := n.Props.Root(true)
	progressRef, _ := n.Props.ChildByName(in, "progress")
	progress, err := n.Props.GetAny(progressRef)
	if err != nil {
		return err
	}

	out, _ := n.Props.Root(false)
	var duration float32
	for _, c := range n.Animation.Channels {
		v := evaluateChannel(c, progress.F)
		ref, found := n.Props.ChildByName(out, c.Name)
		if !found {
			return fmt.Errorf("animation channel %q has no output property", c.Name)
		}
		if err := n.Props.SetInternal(ref, v); err != nil {
			return err
		}
		if last := c.Timestamps.F[c.Timestamps.Len-1]; last > duration {
			duration = last
		}
	}
	durRef, _ := n.Props.ChildByName(out, "duration")
	return n.Props.SetInternal(durRef, ltypes.FloatValue(duration))
}

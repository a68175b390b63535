package lnode

import (
	"math"
	"strings"
	"testing"

	"scenelogic/internal/ltypes"
)

func mustDataArrayFloat(t *testing.T, name string, data []float32) *Node {
	t.Helper()
	n, err := NewDataArrayFloat(1, name, data)
	if err != nil {
		t.Fatalf("NewDataArrayFloat(%s): %v", name, err)
	}
	return n
}

func TestAnimationLinearInterpolation(t *testing.T) {
	ts := mustDataArrayFloat(t, "ts", []float32{0, 1, 2})
	kf := mustDataArrayFloat(t, "kf", []float32{0, 10, 20})

	n, err := NewAnimationNode(1, "anim", []Channel{
		{Name: "value", Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: Linear},
	})
	if err != nil {
		t.Fatalf("NewAnimationNode: %v", err)
	}

	in, _ := n.Props.Root(true)
	progressRef, _ := n.Props.ChildByName(in, "progress")
	if err := n.Props.SetInternal(progressRef, ltypes.FloatValue(0.5)); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	if err := EvaluateAnimation(n); err != nil {
		t.Fatalf("EvaluateAnimation: %v", err)
	}

	out, _ := n.Props.Root(false)
	valueRef, _ := n.Props.ChildByName(out, "value")
	v, _ := n.Props.GetAny(valueRef)
	if math.Abs(float64(v.F)-5) > 1e-4 {
		t.Fatalf("expected value=5 at t=0.5, got %v", v.F)
	}

	durRef, _ := n.Props.ChildByName(out, "duration")
	d, _ := n.Props.GetAny(durRef)
	if d.F != 2 {
		t.Fatalf("expected duration=2, got %v", d.F)
	}
}

func TestAnimationStepInterpolation(t *testing.T) {
	ts := mustDataArrayFloat(t, "ts", []float32{0, 1})
	kf := mustDataArrayFloat(t, "kf", []float32{1, 9})
	n, err := NewAnimationNode(1, "anim", []Channel{
		{Name: "value", Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: Step},
	})
	if err != nil {
		t.Fatalf("NewAnimationNode: %v", err)
	}

	in, _ := n.Props.Root(true)
	progressRef, _ := n.Props.ChildByName(in, "progress")
	n.Props.SetInternal(progressRef, ltypes.FloatValue(0.9))
	if err := EvaluateAnimation(n); err != nil {
		t.Fatalf("EvaluateAnimation: %v", err)
	}
	out, _ := n.Props.Root(false)
	valueRef, _ := n.Props.ChildByName(out, "value")
	v, _ := n.Props.GetAny(valueRef)
	if v.F != 1 {
		t.Fatalf("expected step value to hold at 1 until t=1, got %v", v.F)
	}
}

func TestAnimationCubicRequiresTangents(t *testing.T) {
	ts := mustDataArrayFloat(t, "ts", []float32{0, 1})
	kf := mustDataArrayFloat(t, "kf", []float32{0, 1})
	_, err := NewAnimationNode(1, "anim", []Channel{
		{Name: "value", Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: Cubic},
	})
	if err == nil || !strings.Contains(err.Error(), "requires a tangent") {
		t.Fatalf("expected missing-tangent error, got: %v", err)
	}
}

func TestAnimationCubicPassesThroughKeyframes(t *testing.T) {
	ts := mustDataArrayFloat(t, "ts", []float32{0, 1})
	kf := mustDataArrayFloat(t, "kf", []float32{0, 1})
	tangents := mustDataArrayFloat(t, "tangents", []float32{0, 1, 1, 0})
	n, err := NewAnimationNode(1, "anim", []Channel{
		{Name: "value", Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: Cubic, Tangents: tangents.DataArray},
	})
	if err != nil {
		t.Fatalf("NewAnimationNode: %v", err)
	}

	for _, progress := range []float32{0, 1} {
		in, _ := n.Props.Root(true)
		progressRef, _ := n.Props.ChildByName(in, "progress")
		n.Props.SetInternal(progressRef, ltypes.FloatValue(progress))
		if err := EvaluateAnimation(n); err != nil {
			t.Fatalf("EvaluateAnimation: %v", err)
		}
		out, _ := n.Props.Root(false)
		valueRef, _ := n.Props.ChildByName(out, "value")
		v, _ := n.Props.GetAny(valueRef)
		want := progress // keyframes are 0 and 1, matching the timestamps
		if math.Abs(float64(v.F)-float64(want)) > 1e-4 {
			t.Fatalf("expected cubic interpolation to pass through keyframe at t=%v, got %v", progress, v.F)
		}
	}
}

func TestDataArrayRefCountTracksAnimationNode(t *testing.T) {
	ts := mustDataArrayFloat(t, "ts", []float32{0, 1})
	kf := mustDataArrayFloat(t, "kf", []float32{0, 1})
	if ts.DataArray.Referenced() {
		t.Fatal("expected fresh DataArray to be unreferenced")
	}
	if _, err := NewAnimationNode(1, "anim", []Channel{
		{Name: "value", Timestamps: ts.DataArray, Keyframes: kf.DataArray, Mode: Linear},
	}); err != nil {
		t.Fatalf("NewAnimationNode: %v", err)
	}
	if !ts.DataArray.Referenced() {
		t.Fatal("expected timestamps DataArray to be referenced after building the AnimationNode")
	}
}

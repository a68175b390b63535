package logicengine

import (
	"scenelogic/internal/binding"
	"scenelogic/internal/engineconfig"
	"scenelogic/internal/lnode"
	"scenelogic/internal/ltypes"
)

// ScriptConfig and EngineConfig are re-exported verbatim: both are plain
// YAML-decodable value types (engineconfig.ScriptConfig.UnmarshalYAML
// applies spec.md §4.B's stdlib-mask/feature-level defaults), so a host
// application loads its own config.yaml straight into them without needing
// to reach into internal/engineconfig itself.
type ScriptConfig = engineconfig.ScriptConfig
type EngineConfig = engineconfig.EngineConfig
type SaveConfig = engineconfig.SaveConfig

// DefaultScriptConfig returns the stdlib set and feature level a script
// gets when its caller supplies a zero-value ScriptConfig (spec.md §4.B).
func DefaultScriptConfig() ScriptConfig {
	return engineconfig.DefaultScriptConfig()
}

// ExternalRef identifies the external scene object a Binding targets
// (spec.md §6: persisted so load()'s scene_resolver can find it again).
type ExternalRef = lnode.ExternalRef

// CreateScript compiles and adopts a Script node (spec.md §4.E). deps maps
// a module name (as the script's modules(...) declaration names it) to an
// already-created Module object.
func (le *LogicEngine) CreateScript(name, source string, cfg ScriptConfig, deps map[string]*Object) (*Object, error) {
	n, err := le.eng.CreateScript(name, source, cfg, unwrapAll(deps))
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// CreateInterface compiles and adopts an Interface node.
func (le *LogicEngine) CreateInterface(name, source string) (*Object, error) {
	n, err := le.eng.CreateInterface(name, source)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// CreateModule compiles and adopts a Module node.
func (le *LogicEngine) CreateModule(name, source string, cfg ScriptConfig, deps map[string]*Object) (*Object, error) {
	n, err := le.eng.CreateModule(name, source, cfg, unwrapAll(deps))
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

func (le *LogicEngine) CreateDataArrayFloat(name string, data []float32) (*Object, error) {
	n, err := le.eng.CreateDataArrayFloat(name, data)
	return wrap(n), err
}

func (le *LogicEngine) CreateDataArrayVec2f(name string, data [][2]float64) (*Object, error) {
	n, err := le.eng.CreateDataArrayVec2f(name, data)
	return wrap(n), err
}

func (le *LogicEngine) CreateDataArrayVec3f(name string, data [][3]float64) (*Object, error) {
	n, err := le.eng.CreateDataArrayVec3f(name, data)
	return wrap(n), err
}

func (le *LogicEngine) CreateDataArrayVec4f(name string, data [][4]float64) (*Object, error) {
	n, err := le.eng.CreateDataArrayVec4f(name, data)
	return wrap(n), err
}

func (le *LogicEngine) CreateDataArrayInt32(name string, data []int32) (*Object, error) {
	n, err := le.eng.CreateDataArrayInt32(name, data)
	return wrap(n), err
}

func (le *LogicEngine) CreateDataArrayInt64(name string, data []int64) (*Object, error) {
	n, err := le.eng.CreateDataArrayInt64(name, data)
	return wrap(n), err
}

// InterpolationMode selects how an AnimationNode channel interpolates
// between bracketing keyframes (spec.md §4.E).
type InterpolationMode = lnode.InterpolationMode

const (
	Step   = lnode.Step
	Linear = lnode.Linear
	Cubic  = lnode.Cubic
)

// Channel is one AnimationNode channel; Timestamps/Keyframes/Tangents
// reference already-created DataArray objects (Tangents only for Cubic).
type Channel struct {
	Name       string
	Timestamps *Object
	Keyframes  *Object
	Mode       InterpolationMode
	Tangents   *Object
}

func (c Channel) internal() lnode.Channel {
	var tangents *lnode.DataArrayBody
	if c.Tangents != nil {
		tangents = c.Tangents.node.DataArray
	}
	return lnode.Channel{
		Name:       c.Name,
		Timestamps: c.Timestamps.node.DataArray,
		Keyframes:  c.Keyframes.node.DataArray,
		Mode:       c.Mode,
		Tangents:   tangents,
	}
}

// CreateAnimationNode adopts an AnimationNode, AddRef-ing every DataArray
// its channels reference.
func (le *LogicEngine) CreateAnimationNode(name string, channels []Channel) (*Object, error) {
	internalChannels := make([]lnode.Channel, len(channels))
	for i, c := range channels {
		internalChannels[i] = c.internal()
	}
	n, err := le.eng.CreateAnimationNode(name, internalChannels)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// CreateTimerNode adopts a TimerNode. external selects externally-driven
// (spec.md §4.E) over free-running.
func (le *LogicEngine) CreateTimerNode(name string, external bool) *Object {
	return wrap(le.eng.CreateTimerNode(name, external))
}

// UniformSlot names one appearance uniform and the ltypes.Type it accepts
// (spec.md §6 create_binding_uniform).
type UniformSlot = binding.UniformSlot

// Type is a property's declared value type (spec.md §4.A's closed type
// system).
type Type = ltypes.Type

const (
	TypeBool   = ltypes.Bool
	TypeInt32  = ltypes.Int32
	TypeInt64  = ltypes.Int64
	TypeFloat  = ltypes.Float
	TypeString = ltypes.String
	TypeVec2f  = ltypes.Vec2f
	TypeVec3f  = ltypes.Vec3f
	TypeVec4f  = ltypes.Vec4f
	TypeVec2i  = ltypes.Vec2i
	TypeVec3i  = ltypes.Vec3i
	TypeVec4i  = ltypes.Vec4i
)

// CreateTransformBinding adopts a node-transform Binding.
func (le *LogicEngine) CreateTransformBinding(name string, external ExternalRef, receiver Receiver) *Object {
	return wrap(le.eng.CreateTransformBinding(name, external, receiver))
}

// CreateUniformBinding adopts an appearance-uniform Binding over the given
// named, typed slots.
func (le *LogicEngine) CreateUniformBinding(name string, slots []UniformSlot, external ExternalRef, receiver Receiver) (*Object, error) {
	n, err := le.eng.CreateUniformBinding(name, slots, external, receiver)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// CreateCameraBinding adopts a camera Binding.
func (le *LogicEngine) CreateCameraBinding(name string, external ExternalRef, receiver Receiver) *Object {
	return wrap(le.eng.CreateCameraBinding(name, external, receiver))
}

// CreateRenderPassBinding adopts a render-pass Binding (feature level 2+;
// spec.md §4.H).
func (le *LogicEngine) CreateRenderPassBinding(name string, external ExternalRef, receiver Receiver) *Object {
	return wrap(le.eng.CreateRenderPassBinding(name, external, receiver))
}

package proptree

// Role is the semantic role of a Property (spec.md §3 "Semantic roles").
// It gates whether a value is writable from the API, writable from Lua, and
// whether a write dirties the owning node or latches a pending-value bit.
type Role int

const (
	RoleScriptInput Role = iota
	RoleScriptOutput
	RoleInterfaceField
	RoleBindingInput
	RoleAnimationInput
	RoleAnimationOutput
	RoleModuleField // read-only table field inside a Module's return value; never linked
	RoleTimerOutput
)

// externallyWritable reports whether a caller through the engine façade
// (ApiObjects) may Set this role's value directly.
func (r Role) externallyWritable() bool {
	switch r {
	case RoleScriptOutput, RoleAnimationOutput, RoleModuleField, RoleTimerOutput:
		return false
	default:
		return true
	}
}

// IsBindingInput reports whether writes to this role always latch a
// "new value pending" bit regardless of whether the stored value changed
// (spec.md §4.A, §4.F).
func (r Role) IsBindingInput() bool {
	return r == RoleBindingInput
}

func (r Role) String() string {
	switch r {
	case RoleScriptInput:
		return "ScriptInput"
	case RoleScriptOutput:
		return "ScriptOutput"
	case RoleInterfaceField:
		return "InterfaceField"
	case RoleBindingInput:
		return "BindingInput"
	case RoleAnimationInput:
		return "AnimationInput"
	case RoleAnimationOutput:
		return "AnimationOutput"
	case RoleModuleField:
		return "ModuleField"
	case RoleTimerOutput:
		return "TimerOutput"
	default:
		return "Unknown"
	}
}

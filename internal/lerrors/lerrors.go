// Package lerrors holds the engine's structured error type (spec.md §7).
// Every construction-time and update-time failure the engine reports to a
// caller is one of these, collected into an engine-owned log rather than
// returned individually from update().
package lerrors

import "fmt"

// Kind is the closed sum type of error categories spec.md §7 names.
type Kind int

const (
	LuaSyntaxError Kind = iota
	LuaRuntimeError
	IllegalArgument
	TypeMismatch
	ReadOnlyProperty
	UnknownProperty
	DuplicateProperty
	CycleDetected
	UnknownModule
	ModuleNameCollision
	BindingSceneMismatch
	BinaryVersionMismatch
	CorruptedBinary
	MissingSerializedField
	ValidationWarning
)

func (k Kind) String() string {
	switch k {
	case LuaSyntaxError:
		return "LuaSyntaxError"
	case LuaRuntimeError:
		return "LuaRuntimeError"
	case IllegalArgument:
		return "IllegalArgument"
	case TypeMismatch:
		return "TypeMismatch"
	case ReadOnlyProperty:
		return "ReadOnlyProperty"
	case UnknownProperty:
		return "UnknownProperty"
	case DuplicateProperty:
		return "DuplicateProperty"
	case CycleDetected:
		return "CycleDetected"
	case UnknownModule:
		return "UnknownModule"
	case ModuleNameCollision:
		return "ModuleNameCollision"
	case BindingSceneMismatch:
		return "BindingSceneMismatch"
	case BinaryVersionMismatch:
		return "BinaryVersionMismatch"
	case CorruptedBinary:
		return "CorruptedBinary"
	case MissingSerializedField:
		return "MissingSerializedField"
	case ValidationWarning:
		return "ValidationWarning"
	default:
		return "UnknownErrorKind"
	}
}

// Location pinpoints a Lua chunk/line for Lua-origin errors. Zero value
// means "no source location" (e.g. a C-side IllegalArgument).
type Location struct {
	ChunkName string
	Line      int
}

func (l Location) String() string {
	if l.ChunkName == "" {
		return ""
	}
	if l.Line <= 0 {
		return l.ChunkName
	}
	return fmt.Sprintf("%s:%d", l.ChunkName, l.Line)
}

// Object identifies the logic object an error is attributed to, when one
// exists (construction errors that never produced an object have none).
type Object struct {
	ID   uint64
	Name string
}

// Error is the structured record the engine appends to its error log
// (spec.md §7: "kind, message, optional offending-object handle, optional
// source-location"). It also implements the standard error interface so it
// composes with fmt.Errorf("%w", ...) wrapping like the rest of this repo.
type Error struct {
	Kind     Kind
	Message  string
	Object   *Object
	Location Location
	Wrapped  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if loc := e.Location.String(); loc != "" {
		msg = fmt.Sprintf("%s (%s)", msg, loc)
	}
	if e.Object != nil {
		msg = fmt.Sprintf("%s [object %q #%d]", msg, e.Object.Name, e.Object.ID)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an *Error with no object or source location attached.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithObject returns a copy of e attributed to the given object.
func (e *Error) WithObject(id uint64, name string) *Error {
	cp := *e
	cp.Object = &Object{ID: id, Name: name}
	return &cp
}

// WithLocation returns a copy of e pinpointing a Lua chunk/line.
func (e *Error) WithLocation(chunkName string, line int) *Error {
	cp := *e
	cp.Location = Location{ChunkName: chunkName, Line: line}
	return &cp
}

// Log is the engine's running error list since the last ClearErrors call
// (spec.md §7: "The engine retains the full list since the last explicit
// clear_errors()."). It is not safe for concurrent use, matching the
// engine's single-threaded, cooperative concurrency model (spec.md §5).
type Log struct {
	entries []*Error
}

// Append records err, wrapping a plain error as an IllegalArgument *Error
// if it isn't already a structured one.
func (l *Log) Append(err error) {
	if err == nil {
		return
	}
	if e, ok := err.(*Error); ok {
		l.entries = append(l.entries, e)
		return
	}
	l.entries = append(l.entries, &Error{Kind: IllegalArgument, Message: err.Error(), Wrapped: err})
}

// Errors returns the accumulated log, oldest first. The returned slice must
// not be mutated by the caller.
func (l *Log) Errors() []*Error {
	return l.entries
}

// Clear empties the log (the engine's clear_errors()).
func (l *Log) Clear() {
	l.entries = nil
}

// HasBlocking reports whether the log contains anything other than
// ValidationWarning entries, per spec.md §7: "Validation warnings never
// fail operations except save, which refuses by default."
func (l *Log) HasBlocking() bool {
	for _, e := range l.entries {
		if e.Kind != ValidationWarning {
			return true
		}
	}
	return false
}

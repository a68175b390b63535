// Package logreceiver is the trivial Receiver used in tests and the CLI
// demo: every pushed value is logged through log/slog rather than applied
// to any real scene, following the same structured-logging idiom the
// teacher uses throughout its request path.
package logreceiver

import (
	"log/slog"

	"scenelogic/internal/ltypes"
)

// Receiver logs every pushed (path, value) pair under the binding's name.
type Receiver struct {
	BindingName string
	Log         *slog.Logger
}

// New builds a Receiver; a nil logger falls back to slog.Default().
func New(bindingName string, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{BindingName: bindingName, Log: log}
}

// Push implements internal/lnode.Receiver.
func (r *Receiver) Push(path string, v ltypes.Value) error {
	r.Log.Info("binding_push", "binding", r.BindingName, "path", path, "value", valueForLog(v))
	return nil
}

// valueForLog extracts the one meaningful field out of v for a readable log
// line, rather than dumping the whole zero-heavy Value struct.
func valueForLog(v ltypes.Value) any {
	switch v.Type {
	case ltypes.Bool:
		return v.B
	case ltypes.Int32:
		return v.I
	case ltypes.Int64:
		return v.L
	case ltypes.Float:
		return v.F
	case ltypes.String:
		return v.S
	case ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f:
		return v.VF[:v.Type.VectorSize()]
	case ltypes.Vec2i, ltypes.Vec3i, ltypes.Vec4i:
		return v.VI[:v.Type.VectorSize()]
	default:
		return nil
	}
}

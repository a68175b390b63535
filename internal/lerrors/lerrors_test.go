package lerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageIncludesKindObjectAndLocation(t *testing.T) {
	e := New(LuaRuntimeError, "attempt to call a nil value").
		WithObject(7, "physics").
		WithLocation("physics.lua", 12)

	msg := e.Error()
	for _, want := range []string{"LuaRuntimeError", "attempt to call a nil value", "physics.lua:12", "physics", "7"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error message %q missing %q", msg, want)
		}
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	e := Wrap(CorruptedBinary, underlying, "header truncated")
	if !errors.Is(e, underlying) {
		t.Fatalf("expected errors.Is to find the wrapped error")
	}
}

func TestLogAppendAndClear(t *testing.T) {
	var log Log
	log.Append(New(UnknownProperty, "no such field %q", "speed"))
	log.Append(errors.New("plain error gets wrapped"))

	entries := log.Errors()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != UnknownProperty {
		t.Fatalf("expected first entry kind UnknownProperty, got %v", entries[0].Kind)
	}
	if entries[1].Kind != IllegalArgument {
		t.Fatalf("expected plain error wrapped as IllegalArgument, got %v", entries[1].Kind)
	}

	log.Clear()
	if len(log.Errors()) != 0 {
		t.Fatal("expected log to be empty after Clear")
	}
}

func TestHasBlockingIgnoresValidationWarnings(t *testing.T) {
	var log Log
	log.Append(New(ValidationWarning, "dangling reference"))
	if log.HasBlocking() {
		t.Fatal("expected a log with only warnings to be non-blocking")
	}
	log.Append(New(CycleDetected, "strong cycle"))
	if !log.HasBlocking() {
		t.Fatal("expected a log with a non-warning entry to be blocking")
	}
}

func TestNilErrorAppendIsNoop(t *testing.T) {
	var log Log
	log.Append(nil)
	if len(log.Errors()) != 0 {
		t.Fatal("expected Append(nil) to be a no-op")
	}
}

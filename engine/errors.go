package engine

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Script exceptions
// ---------------------------------------------------------------------------

// ScriptError is a script-visible exception. Native callbacks signal one
// by panicking via Throw; the engine's call boundary recovers it and
// returns it as an ordinary error to the embedding caller.
type ScriptError struct {
	Message string
}

// Error implements the error interface.
func (e *ScriptError) Error() string { return e.Message }

// NewScriptError creates a ScriptError with the given message.
func NewScriptError(message string) *ScriptError {
	return &ScriptError{Message: message}
}

// Throw signals a script-visible exception from inside a native
// callback. It never returns.
func Throw(format string, args ...any) {
	panic(&ScriptError{Message: fmt.Sprintf(format, args...)})
}

// asScriptError translates a recovered panic value into a ScriptError.
// A *ScriptError passes through unchanged; anything else is a native
// fault and is wrapped so it can be surfaced on the embedding's error
// channel without leaking Go-level detail into script.
func asScriptError(r any) *ScriptError {
	switch t := r.(type) {
	case *ScriptError:
		return t
	case error:
		return &ScriptError{Message: fmt.Sprintf("Error: native fault: %v", t)}
	default:
		return &ScriptError{Message: fmt.Sprintf("Error: native fault: %v", r)}
	}
}

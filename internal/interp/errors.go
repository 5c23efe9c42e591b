package interp

import "errors"

// Sentinel errors for conditions the interpreter cannot recover from by
// sending a Smalltalk message (spec.md §7: CorruptMemory, RecursiveDnu).
// Everything else — DoesNotUnderstand, MustBeBoolean, CannotReturn,
// PrimitiveFailure — is handled by sending the appropriate message back
// into the image rather than by a Go error value.
var (
	ErrCorruptMemory     = errors.New("interp: object memory invariant violated")
	ErrRecursiveDNU      = errors.New("interp: doesNotUnderstand: itself unimplemented")
	ErrNoRunnableProcess = errors.New("interp: no runnable process")
)

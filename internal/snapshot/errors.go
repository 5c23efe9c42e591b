package snapshot

import "errors"

// Sentinel errors, compared with errors.Is the way the teacher VM compares
// its errcode values against named sentinels (vm/devices.go, vm/run.go).
var (
	// ErrInvalidImage is returned for structural problems: a size field
	// that doesn't add up, a non-zero pad field, or a bad trailer.
	ErrInvalidImage = errors.New("snapshot: invalid image")

	// ErrCorruptImage is returned when the structure parses but an object
	// table entry references out-of-range object-space bytes.
	ErrCorruptImage = errors.New("snapshot: corrupt image")
)

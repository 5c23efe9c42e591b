package snapshot

// Interchange-format V2 constants (spec.md §4.1, §6.1).
const (
	headerPadBytes    = 502 // pads the 10-byte length/zero header to 512
	alignmentBoundary = 512
	trailerLength     = 10

	objectTableEntryBytes = 4 // count(1) flags(1) location(2)
	objectHeaderBytes     = 4 // word_size(2) class_oop(2)
)

// trailerFixedOffsets/trailerFixedValues hold the fixed bytes of the
// 10-byte trailer at the offsets the format guarantees; offsets not
// listed are not checked (those bytes carry information specific to the
// saving session, e.g. a checksum, that this reader does not need to
// reproduce).
var trailerFixedOffsets = []int{3, 6, 7, 8, 9}
var trailerFixedValues = []byte{0x20, 0x01, 0x43, 0xf3, 0x3b}

// objectTableFlags decodes the flags byte of one object-table entry.
// The spec names odd/is_pointer/free/4-bit-segment but does not fix their
// bit positions; this reader uses the layout below throughout, which is
// internally consistent for both reading and (if ever added) writing.
type objectTableFlags struct {
	free      bool
	isPointer bool
	odd       bool
	segment   int
}

func decodeFlags(b byte) objectTableFlags {
	return objectTableFlags{
		free:      b&0x80 != 0,
		isPointer: b&0x40 != 0,
		odd:       b&0x20 != 0,
		segment:   int(b & 0x0F),
	}
}

// effectiveAddress computes the byte offset of an object's header within
// the (single-segment, in this implementation) object-space buffer,
// spec.md §4.1: "(segment << 17) | (location << 1)".
func effectiveAddress(segment int, location uint16) int {
	return (segment << 17) | (int(location) << 1)
}

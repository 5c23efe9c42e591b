package memory

// category records how a non-pointer slot's payload should be addressed.
// The on-disk object table only carries an is_pointer/odd/free bit triple
// (spec.md §3.2); the byte-vs-word split for non-pointer objects is a
// property of the owning class's instance format, which the snapshot
// reader and the allocator both resolve at creation time and freeze onto
// the slot so later accessors don't need to walk the class hierarchy.
type category uint8

const (
	categoryPointer category = iota
	categoryWord
	categoryByte
	categoryMethod // CompiledMethod: header + literal OOPs + raw bytecode tail
)

// slot is one object-table entry: the class, the payload shape, and the
// backing storage. Every live, non-immediate OOP maps to exactly one slot;
// slots never move, so an OOP stays valid across GC (I2).
type slot struct {
	class OOP
	cat   category
	odd   bool // true: the byte count is odd, so the last byte of the final word is unused (bytes holds only the used bytes)
	free  bool
	mark  bool // GC transient

	// The object body, in the slice matching cat: pointers holds the OOPs
	// of a categoryPointer object (decoded from the on-disk big-endian
	// words at load time), words the 16-bit words of a categoryWord
	// object, bytes the raw bytes of a categoryByte object.
	pointers []OOP
	words    []uint16
	bytes    []byte

	// methodHeader/methodLiterals/methodCode back a categoryMethod slot:
	// spec.md §3.3's "2-byte header, then k literal OOPs, then bytecodes"
	// kept as three typed slices instead of one undifferentiated payload,
	// since a CompiledMethod mixes pointer fields and raw bytes within a
	// single object in a way the pointer/word/byte split can't express.
	methodHeader   OOP
	methodLiterals []OOP
	methodCode     []byte
}

func newPointerSlot(class OOP, n int) *slot {
	s := &slot{class: class, cat: categoryPointer, pointers: make([]OOP, n)}
	for i := range s.pointers {
		s.pointers[i] = NilOOP
	}
	return s
}

func newWordSlot(class OOP, n int) *slot {
	return &slot{class: class, cat: categoryWord, words: make([]uint16, n)}
}

func newByteSlot(class OOP, n int, odd bool) *slot {
	return &slot{class: class, cat: categoryByte, bytes: make([]byte, n), odd: odd}
}

func newMethodSlot(class OOP, header OOP, literals []OOP, code []byte) *slot {
	return &slot{class: class, cat: categoryMethod, methodHeader: header, methodLiterals: literals, methodCode: code}
}

// wordSize returns the object-table "size" field: number of 16-bit words
// in the payload, header excluded (spec.md §3.2/§4.1).
func (s *slot) wordSize() int {
	switch s.cat {
	case categoryPointer:
		return len(s.pointers)
	case categoryWord:
		return len(s.words)
	case categoryMethod:
		return 1 + len(s.methodLiterals) + (len(s.methodCode)+1)/2
	default:
		n := len(s.bytes)
		if s.odd {
			return (n + 1) / 2
		}
		return n / 2
	}
}

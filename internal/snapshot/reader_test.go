package snapshot

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rochus-keller/st80vm/internal/memory"
)

// buildImage assembles a minimal, structurally valid V2 snapshot with a
// single pointer object (a 2-element Array whose slots point at the fixed
// nil/true OOPs) so the reader's framing and table decode can be tested
// without a real Goldberg image on disk.
func buildImage(t *testing.T) []byte {
	t.Helper()

	// One object: header (word_size=4, class=classArray) + 2 pointer slots.
	objSpace := make([]byte, 8)
	binary.BigEndian.PutUint16(objSpace[0:2], 4) // word_size incl. header
	binary.BigEndian.PutUint16(objSpace[2:4], uint16(memory.ClassArrayOOP))
	binary.BigEndian.PutUint16(objSpace[4:6], uint16(memory.NilOOP))
	binary.BigEndian.PutUint16(objSpace[6:8], uint16(memory.TrueOOP))

	tableEntry := make([]byte, 4)
	tableEntry[0] = 0                    // count, unused by this reader
	tableEntry[1] = 0x40                 // is_pointer set, not free, not odd, segment 0
	binary.BigEndian.PutUint16(tableEntry[2:4], 0) // location 0

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(objSpace)/2))
	binary.Write(&buf, binary.BigEndian, uint32(len(tableEntry)/2))
	binary.Write(&buf, binary.BigEndian, uint16(0))
	buf.Write(make([]byte, headerPadBytes))
	buf.Write(objSpace)

	// The object table always begins a full page past the object space,
	// even when the space is already a 512-byte multiple.
	numPages := len(objSpace) / alignmentBoundary
	padToBoundary := (numPages+1)*alignmentBoundary - len(objSpace)
	buf.Write(make([]byte, padToBoundary))

	buf.Write(tableEntry)

	trailer := make([]byte, trailerLength)
	for i, off := range trailerFixedOffsets {
		trailer[off] = trailerFixedValues[i]
	}
	buf.Write(trailer)

	return buf.Bytes()
}

func TestLoadParsesMinimalImage(t *testing.T) {
	img := buildImage(t)

	om, err := Load(bytes.NewReader(img))
	require.NoError(t, err)
	require.NotNil(t, om)

	root := memory.OOPFromSlotIndex(0)
	class, err := om.ClassOf(root)
	require.NoError(t, err)
	require.Equal(t, memory.ClassArrayOOP, class)

	v0, err := om.FetchPointer(root, 0)
	require.NoError(t, err)
	require.Equal(t, memory.NilOOP, v0)

	v1, err := om.FetchPointer(root, 1)
	require.NoError(t, err)
	require.Equal(t, memory.TrueOOP, v1)
}

func TestLoadRejectsBadTrailer(t *testing.T) {
	img := buildImage(t)
	img[len(img)-1] ^= 0xFF // corrupt trailer's last fixed byte

	_, err := Load(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestLoadRejectsNonZeroFormatTag(t *testing.T) {
	img := buildImage(t)
	img[8] = 1 // format tag lives right after the two length words

	_, err := Load(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestLoadRejectsOutOfBoundsTableEntry(t *testing.T) {
	img := buildImage(t)

	// Point the single table entry's location far past the object space.
	tableOff := len(img) - trailerLength - objectTableEntryBytes
	binary.BigEndian.PutUint16(img[tableOff+2:tableOff+4], 0xFFFF)

	_, err := Load(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrCorruptImage)
}

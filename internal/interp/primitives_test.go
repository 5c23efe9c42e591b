package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rochus-keller/st80vm/internal/memory"
)

func smallInt(t *testing.T, v int32) memory.OOP {
	t.Helper()
	oop, ok := memory.FromInt(v)
	require.True(t, ok)
	return oop
}

func popInt(t *testing.T, active Context) int32 {
	t.Helper()
	v := active.Pop()
	require.True(t, v.IsSmallInteger())
	return memory.ToInt(v)
}

// primitiveIndex 13 is quo: (truncated-toward-zero division), not
// bitShift: — the real Blue Book numbering per
// _examples/original_source/StInterpreter.cpp's dispatchIntegerPrimitives.
func TestPrimitiveQuoTruncatesTowardZero(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.primitiveSmallIntegerArith(active, 13, smallInt(t, 7), []memory.OOP{smallInt(t, 2)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(3), popInt(t, active))

	ok, err = in.primitiveSmallIntegerArith(active, 13, smallInt(t, -7), []memory.OOP{smallInt(t, 2)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(-3), popInt(t, active))

	ok, err = in.primitiveSmallIntegerArith(active, 13, smallInt(t, 7), []memory.OOP{smallInt(t, 0)})
	require.NoError(t, err)
	require.False(t, ok, "quo: by zero must fail the primitive")
}

func TestPrimitiveBitAndOrXor(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.primitiveSmallIntegerArith(active, 14, smallInt(t, 0xC), []memory.OOP{smallInt(t, 0xA)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(0x8), popInt(t, active))

	ok, err = in.primitiveSmallIntegerArith(active, 15, smallInt(t, 0xC), []memory.OOP{smallInt(t, 0xA)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(0xE), popInt(t, active))

	ok, err = in.primitiveSmallIntegerArith(active, 16, smallInt(t, 0xC), []memory.OOP{smallInt(t, 0xA)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(0x6), popInt(t, active))
}

// primitiveIndex 17 is bitShift:, one slot later than the pre-fix code
// mapped it to.
func TestPrimitiveBitShift(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.primitiveSmallIntegerArith(active, 17, smallInt(t, 1), []memory.OOP{smallInt(t, 3)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(8), popInt(t, active))

	ok, err = in.primitiveSmallIntegerArith(active, 17, smallInt(t, 8), []memory.OOP{smallInt(t, -3)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), popInt(t, active))
}

// A left shift whose exact result exceeds SmallInteger range must fail
// the primitive (falling through to the image's LargeInteger body) the
// same way primitive 9 (*) does on overflow, rather than wrapping to a
// wrong in-range value the way a naive int32 shift would.
func TestPrimitiveBitShiftOverflowFails(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.primitiveSmallIntegerArith(active, 17, smallInt(t, 1), []memory.OOP{smallInt(t, 14)})
	require.NoError(t, err)
	require.False(t, ok, "1 bitShift: 14 == 16384 is one past SmallInteger range")

	ok, err = in.primitiveSmallIntegerArith(active, 17, smallInt(t, 1), []memory.OOP{smallInt(t, 100)})
	require.NoError(t, err)
	require.False(t, ok, "a shift count past the operand's bit width must not be masked to 0")
}

// primitiveIndex 18 (makePoint:/@) is left to the image's fallback method.
func TestPrimitiveMakePointNotImplemented(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.primitiveSmallIntegerArith(active, 18, smallInt(t, 1), []memory.OOP{smallInt(t, 2)})
	require.NoError(t, err)
	require.False(t, ok)
}

// tryPrimitive must route index 13 through the SmallInteger range (1-18)
// rather than any other handler.
func TestTryPrimitiveRoutesSmallIntegerRange(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)

	ok, err := in.tryPrimitive(13, nil, smallInt(t, 9), []memory.OOP{smallInt(t, 2)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(4), popInt(t, active))
}

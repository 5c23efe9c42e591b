package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rochus-keller/st80vm/internal/memory"
)

// Regression test for the long-conditional-jump multiplier: the 2-bit
// cycle (bytecodes 168-175 repeat 0,1,2,3 every four opcodes, spec.md
// §4.3) must be masked out of the raw opcode-minus-base range before
// multiplying by 256, not used as-is.
func TestLongCondJumpMultiplierWraps(t *testing.T) {
	in, active, _ := newTestActiveContext([]byte{10})

	// b - longCondJumpBase == 7: "jump on false" (bit 2 set => wantTrue
	// false), low byte 10. Correct delta is (7&3)*256+10 = 778; the
	// pre-fix code computed 7*256+10 = 1802.
	b := byte(longCondJumpBase + 7)
	active.SetIP(0)
	active.Push(memory.FalseOOP)

	err := in.longCondJump(active, []byte{10}, b)
	require.NoError(t, err)
	require.Equal(t, 1+778, active.IP())
}

// A long conditional jump not taken (condition doesn't match wantTrue)
// must still just fall through to the byte past the low delta byte.
func TestLongCondJumpNotTaken(t *testing.T) {
	in, active, _ := newTestActiveContext([]byte{10})

	b := byte(longCondJumpBase + 7) // wantTrue == false
	active.SetIP(0)
	active.Push(memory.TrueOOP) // condition is true, wantTrue is false: not taken

	err := in.longCondJump(active, []byte{10}, b)
	require.NoError(t, err)
	require.Equal(t, 1, active.IP())
}

func TestLongJumpUnconditional(t *testing.T) {
	in, active, _ := newTestActiveContext([]byte{5})

	// b - longJumpBase == 4, so multiplier (4-4)=0, delta = 0*256+5 = 5.
	b := byte(longJumpBase + 4)
	active.SetIP(0)

	err := in.longJump(active, []byte{5}, b)
	require.NoError(t, err)
	require.Equal(t, 1+5, active.IP())
}

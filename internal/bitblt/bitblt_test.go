package bitblt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillPattern(b *Bitmap, seed uint16) {
	for i := range b.Words {
		b.Words[i] = seed + uint16(i)*7
	}
}

// rule 3 ("source") with no halftone and full source/dest overlap should
// reproduce the source bitmap exactly in the destination.
func TestCopyBitsRule3IsExactCopy(t *testing.T) {
	src := NewBitmap(32, 16)
	fillPattern(src, 0x1234)
	dst := NewBitmap(32, 16)

	dirty := CopyBits(Input{
		SourceBits: src, DestBits: dst, Rule: 3,
		Width: 32, Height: 16,
		ClipX: 0, ClipY: 0, ClipWidth: 32, ClipHeight: 16,
	})

	require.Equal(t, DirtyRect{X: 0, Y: 0, W: 32, H: 16}, dirty)
	assert.Equal(t, src.Words, dst.Words)
}

// rule 6 ("xor") is its own inverse: applying it twice with the same
// source restores the destination to its original contents.
func TestCopyBitsRule6XorIsInvolution(t *testing.T) {
	src := NewBitmap(16, 8)
	fillPattern(src, 0xabcd)
	dst := NewBitmap(16, 8)
	fillPattern(dst, 0x5a5a)
	original := append([]uint16(nil), dst.Words...)

	in := Input{
		SourceBits: src, DestBits: dst, Rule: 6,
		Width: 16, Height: 8,
		ClipX: 0, ClipY: 0, ClipWidth: 16, ClipHeight: 8,
	}
	CopyBits(in)
	CopyBits(in)

	assert.Equal(t, original, dst.Words)
}

// a destination rectangle that starts left of the clip region should be
// clipped on the left edge, with the source sampling offset by the same
// amount the destination origin was pushed right.
func TestCopyBitsClipsLeftEdge(t *testing.T) {
	src := NewBitmap(16, 16)
	for y := 0; y < 16; y++ {
		for w := 0; w < src.Width16(); w++ {
			src.Words[y*src.Width16()+w] = 0xffff
		}
	}
	dst := NewBitmap(16, 16)

	dirty := CopyBits(Input{
		SourceBits: src, DestBits: dst, Rule: 3,
		DestX: -4, DestY: 0, Width: 16, Height: 16,
		SourceX: 0, SourceY: 0,
		ClipX: 0, ClipY: 0, ClipWidth: 16, ClipHeight: 16,
	})

	assert.Equal(t, 0, dirty.X)
	assert.Equal(t, 12, dirty.W)
}

func TestMergeRulesMatchTruthTable(t *testing.T) {
	s := uint16(0xff00)
	d := uint16(0x0f0f)
	cases := map[int]uint16{
		0:  0,
		1:  s & d,
		3:  s,
		5:  d,
		6:  s ^ d,
		7:  s | d,
		10: ^d,
		12: ^s,
		15: allOnes,
	}
	for rule, want := range cases {
		assert.Equal(t, want, merge(rule, s, d), "rule %d", rule)
	}
}

func TestBitShift(t *testing.T) {
	assert.Equal(t, uint16(0x00f0), bitShift(0x000f, 4))
	assert.Equal(t, uint16(0x000f), bitShift(0x00f0, -4))
	assert.Equal(t, uint16(0), bitShift(0xffff, 16))
	assert.Equal(t, uint16(0), bitShift(0xffff, -16))
}

func TestWidth16Rounding(t *testing.T) {
	assert.Equal(t, 1, (&Bitmap{PixelWidth: 1}).Width16())
	assert.Equal(t, 1, (&Bitmap{PixelWidth: 16}).Width16())
	assert.Equal(t, 2, (&Bitmap{PixelWidth: 17}).Width16())
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildHeader packs a CompiledMethod header word the same way the
// interchange format does: literal count in bits 0-5, large-context flag
// in bit 6, temp count in bits 7-11, flag field in bits 12-14, tagged as
// a SmallInteger.
func buildHeader(litCount, tempCount, flags int, largeContext bool) OOP {
	bits := int32(litCount&headerLiteralCountMask) << headerLiteralCountShift
	if largeContext {
		bits |= 1 << headerLargeContextShift
	}
	bits |= int32(tempCount&headerTempCountMask) << headerTempCountShift
	bits |= int32(flags&headerFlagMask) << headerFlagShift
	return OOP(uint16(bits)<<1 | 1)
}

// buildExtensionWord packs the raw extension word the way
// StObjectMemory2.cpp's methodArgumentCount/methodPrimitiveIndex expect
// to decode it: primitive index in bits 1-8, argument count in bits 9-13,
// tagged as a SmallInteger (bit 0 set).
func buildExtensionWord(primitiveIndex, argCount int) OOP {
	bits := int32(1) // SmallInteger tag
	bits |= int32(primitiveIndex&extPrimitiveIndexMask) << extPrimitiveIndexShift
	bits |= int32(argCount&extArgCountMask) << extArgCountShift
	return OOP(uint16(bits))
}

// withExtensionMethod installs a two-literal CompiledMethod (extension
// word, method-class association) at a fresh slot and returns it loaded.
func withExtensionMethod(t *testing.T, primitiveIndex, argCount int) *CompiledMethod {
	t.Helper()
	om := New(8)

	assoc := om.InstantiateWithPointers(ClassArrayOOP, 2)
	require.NoError(t, om.StorePointer(assoc, 1, ClassSmallIntegerOOP))

	header := buildHeader(2, 0, 7, false)
	ext := buildExtensionWord(primitiveIndex, argCount)
	oop := om.InstallMethodAt(assoc.slotIndex()+1, ClassCompiledMethodOOP, header, []OOP{ext, assoc}, []byte{})

	cm, err := om.LoadCompiledMethod(oop)
	require.NoError(t, err)
	return cm
}

func TestPrimitiveIndexAndArgumentCountRoundTrip(t *testing.T) {
	cases := []struct {
		primitiveIndex, argCount int
	}{
		{1, 1},
		{17, 2},
		{255, 31},
		{0, 0},
	}
	for _, c := range cases {
		cm := withExtensionMethod(t, c.primitiveIndex, c.argCount)
		require.Equal(t, c.primitiveIndex, cm.PrimitiveIndex(), "primitiveIndex=%d argCount=%d", c.primitiveIndex, c.argCount)
		require.Equal(t, c.argCount, cm.ArgumentCount(), "primitiveIndex=%d argCount=%d", c.primitiveIndex, c.argCount)
	}
}

// Concrete regression case from the Blue Book's own bit numbering:
// primitiveIndex=1, argCount=1 packs to raw extension word 0x203 (515).
func TestExtensionWordConcreteEncoding(t *testing.T) {
	ext := buildExtensionWord(1, 1)
	require.Equal(t, OOP(0x203), ext)

	cm := withExtensionMethod(t, 1, 1)
	require.Equal(t, 1, cm.PrimitiveIndex())
	require.Equal(t, 1, cm.ArgumentCount())
}

func TestArgumentCountQuickForms(t *testing.T) {
	om := New(4)
	for flag, want := range map[int]int{0: 0, 1: 1, 2: 2} {
		header := buildHeader(0, 0, flag, false)
		oop := om.InstallMethodAt(0, ClassCompiledMethodOOP, header, nil, []byte{})
		cm, err := om.LoadCompiledMethod(oop)
		require.NoError(t, err)
		require.Equal(t, want, cm.ArgumentCount())
	}
}

func TestMethodClassReadsTrailingAssociationValue(t *testing.T) {
	cm := withExtensionMethod(t, 5, 0)
	class, err := cm.MethodClass()
	require.NoError(t, err)
	require.Equal(t, ClassSmallIntegerOOP, class)
}

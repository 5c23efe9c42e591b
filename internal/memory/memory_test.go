package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmallIntegerRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, MaxSmallInteger, MinSmallInteger, 100, -100}
	for _, v := range cases {
		oop, ok := FromInt(v)
		require.True(t, ok, "FromInt(%d) should succeed", v)
		require.True(t, oop.IsSmallInteger())
		require.Equal(t, v, ToInt(oop))
	}
}

func TestSmallIntegerBoundaryValues(t *testing.T) {
	// Blue Book boundary examples (spec.md §4.2, I1).
	require.Equal(t, int32(16383), ToInt(OOP(0x3FFF*2+1)))
	require.Equal(t, int32(-16384), ToInt(OOP(0x4000*2+1)))

	_, ok := FromInt(MaxSmallInteger + 1)
	require.False(t, ok, "FromInt(16384) must fail")
	_, ok = FromInt(MinSmallInteger - 1)
	require.False(t, ok, "FromInt(-16385) must fail")
}

func TestInstantiateAndFetchStorePointers(t *testing.T) {
	om := New(16)
	oop := om.InstantiateWithPointers(ClassArrayOOP, 3)

	class, err := om.ClassOf(oop)
	require.NoError(t, err)
	require.Equal(t, ClassArrayOOP, class)

	n, err := om.WordLengthOf(oop)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for i := 0; i < 3; i++ {
		v, err := om.FetchPointer(oop, i)
		require.NoError(t, err)
		require.Equal(t, NilOOP, v)
	}

	require.NoError(t, om.StorePointer(oop, 1, TrueOOP))
	v, err := om.FetchPointer(oop, 1)
	require.NoError(t, err)
	require.Equal(t, TrueOOP, v)

	_, err = om.FetchPointer(oop, 3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = om.FetchWord(oop, 0)
	require.ErrorIs(t, err, ErrNotWordObj)
}

func TestInstantiateBytesRoundTrip(t *testing.T) {
	om := New(16)
	oop := om.InstantiateWithBytes(ClassStringOOP, 5, false)

	for i, b := range []byte("hello") {
		require.NoError(t, om.StoreByte(oop, i, b))
	}
	n, err := om.ByteLengthOf(oop)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	got := make([]byte, n)
	for i := range got {
		b, err := om.FetchByte(oop, i)
		require.NoError(t, err)
		got[i] = b
	}
	require.Equal(t, "hello", string(got))
}

func TestSwapPointersPreservesOOPIdentity(t *testing.T) {
	om := New(16)
	a := om.InstantiateWithPointers(ClassArrayOOP, 1)
	b := om.InstantiateWithPointers(ClassArrayOOP, 1)
	require.NoError(t, om.StorePointer(a, 0, TrueOOP))
	require.NoError(t, om.StorePointer(b, 0, FalseOOP))

	require.NoError(t, om.SwapPointers(a, b))

	va, err := om.FetchPointer(a, 0)
	require.NoError(t, err)
	require.Equal(t, FalseOOP, va)

	vb, err := om.FetchPointer(b, 0)
	require.NoError(t, err)
	require.Equal(t, TrueOOP, vb)
}

func TestCollectFreesUnreachableObjects(t *testing.T) {
	om := New(16)
	garbage := om.InstantiateWithPointers(ClassArrayOOP, 1)
	kept := om.InstantiateWithPointers(ClassArrayOOP, 1)

	om.SetRegister(RegReceiver, kept)
	freed := om.Collect()
	require.GreaterOrEqual(t, freed, 1)

	_, err := om.ClassOf(garbage)
	require.ErrorIs(t, err, ErrBadOOP)

	_, err = om.ClassOf(kept)
	require.NoError(t, err)
}

func TestCollectHonorsTempRoots(t *testing.T) {
	om := New(16)
	oop := om.InstantiateWithPointers(ClassArrayOOP, 1)
	om.AddTemp(oop)

	om.Collect()
	_, err := om.ClassOf(oop)
	require.NoError(t, err, "temp-rooted object must survive a collection")

	om.RemoveTemp(oop)
	om.Collect()
	_, err = om.ClassOf(oop)
	require.ErrorIs(t, err, ErrBadOOP)
}

func TestBadOOPErrors(t *testing.T) {
	om := New(4)
	_, err := om.ClassOf(OOPFromSlotIndex(99))
	require.ErrorIs(t, err, ErrBadOOP)
}

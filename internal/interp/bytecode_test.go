package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rochus-keller/st80vm/internal/memory"
)

func TestDispatchPushConstants(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)
	cm, err := active.om.LoadCompiledMethod(active.Method())
	require.NoError(t, err)

	cases := []struct {
		b    byte
		want memory.OOP
	}{
		{pushTrue, memory.TrueOOP},
		{pushFalse, memory.FalseOOP},
		{pushNil, memory.NilOOP},
		{pushReceiver, active.Receiver()},
	}
	for _, c := range cases {
		err := in.dispatch(active, cm, nil, c.b)
		require.NoError(t, err)
		require.Equal(t, c.want, active.Pop())
	}
}

func TestDispatchPushSmallIntegerConstants(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)
	cm, err := active.om.LoadCompiledMethod(active.Method())
	require.NoError(t, err)

	cases := []struct {
		b    byte
		want int32
	}{
		{pushMinusOne, -1},
		{pushZero, 0},
		{pushOne, 1},
		{pushTwo, 2},
	}
	for _, c := range cases {
		err := in.dispatch(active, cm, nil, c.b)
		require.NoError(t, err)
		require.Equal(t, c.want, memory.ToInt(active.Pop()))
	}
}

func TestDispatchStackOps(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)
	cm, err := active.om.LoadCompiledMethod(active.Method())
	require.NoError(t, err)

	require.NoError(t, in.dispatch(active, cm, nil, pushOne))
	require.NoError(t, in.dispatch(active, cm, nil, duplicateStackTop))
	require.Equal(t, int32(1), memory.ToInt(active.Pop()))
	require.Equal(t, int32(1), memory.ToInt(active.Pop()))

	require.NoError(t, in.dispatch(active, cm, nil, pushOne))
	require.NoError(t, in.dispatch(active, cm, nil, popStackTop))
	require.Equal(t, 0, active.SP())

	require.NoError(t, in.dispatch(active, cm, nil, pushActiveContext))
	require.Equal(t, active.OOP, active.Pop())
}

func TestDispatchReceiverVariableAccess(t *testing.T) {
	in, active, om := newTestActiveContext(nil)
	cm, err := active.om.LoadCompiledMethod(active.Method())
	require.NoError(t, err)

	// Give the context's receiver one real instance-variable slot.
	receiver := om.InstantiateWithPointers(memory.ClassArrayOOP, 1)
	require.NoError(t, om.StorePointer(active.OOP, fieldReceiverOrHome, receiver))
	require.NoError(t, om.StorePointer(receiver, 0, memory.TrueOOP))

	require.NoError(t, in.dispatch(active, cm, nil, pushReceiverVarBase))
	require.Equal(t, memory.TrueOOP, active.Pop())

	require.NoError(t, in.dispatch(active, cm, nil, pushTwo))
	require.NoError(t, in.dispatch(active, cm, nil, popStoreReceiverBase))
	v, err := om.FetchPointer(receiver, 0)
	require.NoError(t, err)
	require.Equal(t, int32(2), memory.ToInt(v))
}

func TestDispatchShortJumpAndPopJumpFalse(t *testing.T) {
	in, active, _ := newTestActiveContext(nil)
	cm, err := active.om.LoadCompiledMethod(active.Method())
	require.NoError(t, err)

	active.SetIP(0)
	b := byte(shortJumpBase + 3) // jump forward 4
	require.NoError(t, in.dispatch(active, cm, nil, b))
	require.Equal(t, 4, active.IP())

	active.SetIP(0)
	active.Push(memory.FalseOOP)
	b = byte(popJumpFalseBase + 2) // delta 3
	require.NoError(t, in.dispatch(active, cm, nil, b))
	require.Equal(t, 3, active.IP())

	active.SetIP(0)
	active.Push(memory.TrueOOP)
	b = byte(popJumpFalseBase + 2)
	require.NoError(t, in.dispatch(active, cm, nil, b))
	require.Equal(t, 0, active.IP())
}

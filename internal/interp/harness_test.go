package interp

import (
	"github.com/rochus-keller/st80vm/internal/memory"
)

// buildMethodHeader packs a CompiledMethod header word following the bit
// layout spec.md §3.4 and internal/memory/compiledmethod.go both
// document: literal count in bits 0-5, large-context flag in bit 6, temp
// count in bits 7-11, the 3-bit flag field in bits 12-14, tagged as a
// SmallInteger.
func buildMethodHeader(litCount, tempCount, flags int) memory.OOP {
	bits := int32(litCount&0x3F) << 0
	bits |= int32(tempCount&0x1F) << 7
	bits |= int32(flags&0x7) << 12
	return memory.OOP(uint16(bits)<<1 | 1)
}

// newTestActiveContext builds an object memory with one trivial
// CompiledMethod (no primitive, flag field 0, zero temporaries) and a
// MethodContext activating it, wired as the current active context — a
// minimal fixture for exercising bytecode dispatch and primitives without
// a real snapshot image.
func newTestActiveContext(code []byte) (*Interpreter, Context, *memory.ObjectMemory) {
	om := memory.New(8)
	header := buildMethodHeader(0, 0, 0)
	method := om.InstallMethodAt(0, memory.ClassCompiledMethodOOP, header, nil, code)
	cm, err := om.LoadCompiledMethod(method)
	if err != nil {
		panic(err)
	}

	receiver := om.InstantiateWithPointers(memory.ClassArrayOOP, 0)
	active := NewMethodContext(om, Wrap(om, memory.NilOOP), method, receiver, nil, cm)

	om.SetRegister(memory.RegActiveContext, active.OOP)
	om.SetRegister(memory.RegHomeContext, active.OOP)
	om.SetRegister(memory.RegMethod, method)
	om.SetRegister(memory.RegReceiver, receiver)

	in := New(om, nil, nil, nil)
	return in, active, om
}

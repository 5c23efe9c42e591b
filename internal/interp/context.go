package interp

import (
	"github.com/rochus-keller/st80vm/internal/memory"
)

// Context field layout, spec.md §3.5. MethodContext and BlockContext
// share field 3's dual meaning (method OOP vs. immediate argument count)
// and both start their frame at index frameBase.
const (
	fieldSenderOrCaller = 0
	fieldIP             = 1
	fieldSP             = 2
	fieldMethodOrArgs   = 3
	fieldReceiverOrInit = 4
	fieldReceiverOrHome = 5
	frameBase           = 6

	smallFrameSize = 12
	largeFrameSize = 32
)

// Context is a thin view over a MethodContext or BlockContext OOP; it
// never copies the frame, every accessor reads/writes through the
// object memory so the context stays a live object across GC.
type Context struct {
	om  *memory.ObjectMemory
	OOP memory.OOP
}

// Wrap builds a Context view over an existing context OOP.
func Wrap(om *memory.ObjectMemory, oop memory.OOP) Context {
	return Context{om: om, OOP: oop}
}

// IsNil reports whether this Context wraps the nil OOP (used as the
// sentinel "no context" value, e.g. an abandoned home context).
func (c Context) IsNil() bool {
	return c.OOP == memory.NilOOP
}

// IsBlock reports whether this context is a BlockContext rather than a
// MethodContext, per the method/arguments-slot convention (spec.md §3.5).
func (c Context) IsBlock() bool {
	v, err := c.om.FetchPointer(c.OOP, fieldMethodOrArgs)
	if err != nil {
		return false
	}
	return v.IsSmallInteger()
}

func (c Context) IP() int {
	v, _ := c.om.FetchPointer(c.OOP, fieldIP)
	return int(memory.ToInt(v))
}

func (c Context) SetIP(ip int) {
	oop, ok := memory.FromInt(int32(ip))
	if !ok {
		panic("interp: instruction pointer out of SmallInteger range")
	}
	c.om.StorePointer(c.OOP, fieldIP, oop)
}

func (c Context) SP() int {
	v, _ := c.om.FetchPointer(c.OOP, fieldSP)
	return int(memory.ToInt(v))
}

func (c Context) SetSP(sp int) {
	oop, ok := memory.FromInt(int32(sp))
	if !ok {
		panic("interp: stack pointer out of SmallInteger range")
	}
	c.om.StorePointer(c.OOP, fieldSP, oop)
}

// Sender returns the sending context of a MethodContext.
func (c Context) Sender() Context {
	v, _ := c.om.FetchPointer(c.OOP, fieldSenderOrCaller)
	return Wrap(c.om, v)
}

// SetSender sets the sending/caller context field, used both for
// MethodContext's sender and BlockContext's caller (same slot).
func (c Context) SetSender(s Context) {
	c.om.StorePointer(c.OOP, fieldSenderOrCaller, s.OOP)
}

// Method returns the compiled method a MethodContext is activating.
// Calling this on a BlockContext is a programming error.
func (c Context) Method() memory.OOP {
	v, _ := c.om.FetchPointer(c.OOP, fieldMethodOrArgs)
	return v
}

// ArgumentCount returns a BlockContext's declared argument count.
func (c Context) ArgumentCount() int {
	v, _ := c.om.FetchPointer(c.OOP, fieldMethodOrArgs)
	return int(memory.ToInt(v))
}

// Receiver returns a MethodContext's receiver.
func (c Context) Receiver() memory.OOP {
	v, _ := c.om.FetchPointer(c.OOP, fieldReceiverOrHome)
	return v
}

// Home returns a BlockContext's home MethodContext.
func (c Context) Home() Context {
	v, _ := c.om.FetchPointer(c.OOP, fieldReceiverOrHome)
	return Wrap(c.om, v)
}

// InitialIP returns a BlockContext's initial instruction pointer, the ip
// value to install when the block is re-entered from scratch (`value`).
func (c Context) InitialIP() int {
	v, _ := c.om.FetchPointer(c.OOP, fieldReceiverOrInit)
	return int(memory.ToInt(v))
}

func (c Context) frameSize() int {
	n, _ := c.om.WordLengthOf(c.OOP)
	return n - frameBase
}

// Push appends a value to the context's operand/temp frame and advances sp.
func (c Context) Push(v memory.OOP) {
	sp := c.SP()
	c.om.StorePointer(c.OOP, frameBase+sp, v)
	c.SetSP(sp + 1)
}

// Pop removes and returns the top of the context's frame.
func (c Context) Pop() memory.OOP {
	sp := c.SP() - 1
	v, _ := c.om.FetchPointer(c.OOP, frameBase+sp)
	c.om.StorePointer(c.OOP, frameBase+sp, memory.NilOOP)
	c.SetSP(sp)
	return v
}

// Top returns the value at the top of the frame without removing it.
func (c Context) Top() memory.OOP {
	v, _ := c.om.FetchPointer(c.OOP, frameBase+c.SP()-1)
	return v
}

// At returns the frame slot i levels below the top (0 = top).
func (c Context) At(i int) memory.OOP {
	v, _ := c.om.FetchPointer(c.OOP, frameBase+c.SP()-1-i)
	return v
}

// PopN removes the top n values, returning them in push order (oldest
// first) — the receiver+argument convention used by message sends.
func (c Context) PopN(n int) []memory.OOP {
	out := make([]memory.OOP, n)
	sp := c.SP()
	for i := 0; i < n; i++ {
		out[i] = c.At(n - 1 - i)
		c.om.StorePointer(c.OOP, frameBase+sp-1-i, memory.NilOOP)
	}
	c.SetSP(sp - n)
	return out
}

// NewMethodContext allocates and initializes a MethodContext activating
// method for receiver, with the receiver stored in the receiver field,
// the caller-supplied argument values copied into the frame, and
// temporaries cleared to nil.
func NewMethodContext(om *memory.ObjectMemory, sender Context, method memory.OOP, receiver memory.OOP, args []memory.OOP, cm *memory.CompiledMethod) Context {
	frame := smallFrameSize
	if cm.LargeContext() {
		frame = largeFrameSize
	}
	oop := om.InstantiateWithPointers(memory.ClassMethodContextOOP, frameBase+frame)
	c := Wrap(om, oop)
	c.SetSender(sender)
	c.om.StorePointer(oop, fieldMethodOrArgs, method)
	c.om.StorePointer(oop, fieldReceiverOrHome, receiver)

	sp := 0
	for _, a := range args {
		c.om.StorePointer(oop, frameBase+sp, a)
		sp++
	}
	c.SetSP(cm.TemporaryCount())
	c.SetIP(initialInstructionPointer(cm))
	return c
}

// NewBlockContext allocates a BlockContext copying free/captured variables
// is the caller's responsibility (blockCopy: primitive); this only wires
// the fixed fields.
func NewBlockContext(om *memory.ObjectMemory, caller Context, argCount, initialIP int, home Context, frameSize int) Context {
	oop := om.InstantiateWithPointers(memory.ClassBlockContextOOP, frameBase+frameSize)
	c := Wrap(om, oop)
	c.SetSender(caller)
	argOOP, _ := memory.FromInt(int32(argCount))
	c.om.StorePointer(oop, fieldMethodOrArgs, argOOP)
	initOOP, _ := memory.FromInt(int32(initialIP))
	c.om.StorePointer(oop, fieldReceiverOrInit, initOOP)
	c.om.StorePointer(oop, fieldReceiverOrHome, home.OOP)
	c.SetSP(0)
	c.SetIP(initialIP)
	return c
}

// initialInstructionPointer is the ip value a freshly activated context
// starts at. spec.md §4.2 states this as a byte offset into the whole
// CompiledMethod object ("(literal_count+1)*2 + 1, one past the header"),
// a formula for implementations that keep literals and bytecodes in one
// combined byte-addressed object. This core's object memory exposes a
// method's bytecodes through their own accessor (memory.CompiledMethod.
// Bytecodes), already stripped of the header and literal frame, so the
// equivalent starting point is simply the first byte of that slice.
func initialInstructionPointer(cm *memory.CompiledMethod) int {
	return 0
}

package interp

import (
	"github.com/rochus-keller/st80vm/internal/bitblt"
	"github.com/rochus-keller/st80vm/internal/memory"
)

// tryPrimitive attempts the primitive response for a located method
// (spec.md §4.3 "Primitive response"). On success it pushes the result
// onto the (now receiver+args-popped) active context and returns
// (true, nil). On failure it returns (false, nil) and leaves the active
// context's stack exactly as the caller found it (I3), so the caller
// falls through to activating the method's bytecode body.
func (in *Interpreter) tryPrimitive(idx int, cm *memory.CompiledMethod, receiver memory.OOP, args []memory.OOP) (bool, error) {
	active := in.activeContext()

	if idx == 0 {
		switch cm.Flags() {
		case 5: // return self
			active.Push(receiver)
			return true, nil
		case 6: // return field (index is the method's single literal)
			lit, err := cm.Literal(0)
			if err == nil && lit.IsSmallInteger() {
				v, err := in.om.FetchPointer(receiver, int(memory.ToInt(lit)))
				if err == nil {
					active.Push(v)
					return true, nil
				}
			}
		}
		return false, nil
	}

	switch {
	case idx >= 1 && idx <= 18:
		return in.primitiveSmallIntegerArith(active, idx, receiver, args)
	case idx >= 21 && idx <= 37:
		// Large-integer primitives are deliberately left unimplemented:
		// the base image's LargePositiveInteger/LargeNegativeInteger
		// classes carry bytecode fallback methods for all of these
		// (SPEC_FULL.md §C.4, spec.md §9 open questions).
		return false, nil
	case idx >= 38 && idx <= 59:
		return in.primitiveFloat(active, idx, receiver, args)
	case idx >= 60 && idx <= 67:
		return in.primitiveSubscript(active, idx, receiver, args)
	case idx >= 68 && idx <= 79:
		return in.primitiveObject(active, idx, receiver, args)
	case idx >= 80 && idx <= 89:
		return in.primitiveControl(active, idx, cm, receiver, args)
	case idx >= 90 && idx <= 109:
		return in.primitiveIO(active, idx, receiver, args)
	case idx >= 110 && idx <= 127:
		return in.primitiveSystem(active, idx, receiver, args)
	default:
		// 128+: private/implementation-specific, none defined by this core.
		return false, nil
	}
}

func (in *Interpreter) primitiveSmallIntegerArith(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if !receiver.IsSmallInteger() || len(args) != 1 || !args[0].IsSmallInteger() {
		return false, nil
	}
	a := memory.ToInt(receiver)
	b := memory.ToInt(args[0])

	pushInt := func(v int32) bool {
		oop, ok := memory.FromInt(v)
		if !ok {
			return false
		}
		active.Push(oop)
		return true
	}
	pushBool := func(v bool) bool {
		if v {
			active.Push(memory.TrueOOP)
		} else {
			active.Push(memory.FalseOOP)
		}
		return true
	}

	switch idx {
	case 1: // +
		return pushInt(a + b), nil
	case 2: // -
		return pushInt(a - b), nil
	case 3: // <
		return pushBool(a < b), nil
	case 4: // >
		return pushBool(a > b), nil
	case 5: // <=
		return pushBool(a <= b), nil
	case 6: // >=
		return pushBool(a >= b), nil
	case 7: // =
		return pushBool(a == b), nil
	case 8: // ~=
		return pushBool(a != b), nil
	case 9: // *
		return pushInt(a * b), nil
	case 10: // /
		if b == 0 || a%b != 0 {
			return false, nil
		}
		return pushInt(a / b), nil
	case 11: // \\
		if b == 0 {
			return false, nil
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return pushInt(m), nil
	case 12: // //
		if b == 0 {
			return false, nil
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return pushInt(q), nil
	case 13: // quo: truncated-toward-zero division
		if b == 0 {
			return false, nil
		}
		return pushInt(a / b), nil
	case 14: // bitAnd:
		return pushInt(a & b), nil
	case 15: // bitOr:
		return pushInt(a | b), nil
	case 16: // bitXor:
		return pushInt(a ^ b), nil
	case 17: // bitShift: shift left if positive, arithmetic right if negative
		if b >= 0 {
			// A shift count beyond this is automatic overflow for any
			// nonzero a; capping it avoids relying on Go's defined-as-0
			// behavior for shift counts >= the operand's bit width,
			// which would otherwise mask a genuine overflow as 0.
			if b > 32 {
				if a == 0 {
					return pushInt(0), nil
				}
				return false, nil
			}
			wide := int64(a) << uint(b)
			if wide < memory.MinSmallInteger || wide > memory.MaxSmallInteger {
				return false, nil
			}
			return pushInt(int32(wide)), nil
		}
		shift := uint(-b)
		if shift > 31 {
			shift = 31
		}
		return pushInt(a >> shift), nil
	case 18:
		// makePoint:/@ builds a Point instance rather than a SmallInteger
		// result; this core leaves it to the image's own fallback method
		// rather than constructing Point objects at the primitive layer.
		return false, nil
	}
	return false, nil
}

func (in *Interpreter) primitiveFloat(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	// Floats are word objects holding two big-endian 16-bit halves of an
	// IEEE-754 double's high/low 32-bit words (spec.md §9 open questions
	// flag this encoding as non-obvious); arithmetic on them is left to
	// the image's own fallback methods in this core.
	return false, nil
}

func (in *Interpreter) primitiveSubscript(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	switch idx {
	case 60: // at:
		if len(args) != 1 || !args[0].IsSmallInteger() {
			return false, nil
		}
		i := int(memory.ToInt(args[0])) - 1
		if v, err := in.om.FetchPointer(receiver, i); err == nil {
			active.Push(v)
			return true, nil
		}
		if b, err := in.om.FetchByte(receiver, i); err == nil {
			oop, ok := memory.FromInt(int32(b))
			if ok {
				active.Push(oop)
				return true, nil
			}
		}
		return false, nil
	case 61: // at:put:
		if len(args) != 2 || !args[0].IsSmallInteger() {
			return false, nil
		}
		i := int(memory.ToInt(args[0])) - 1
		if err := in.om.StorePointer(receiver, i, args[1]); err == nil {
			active.Push(args[1])
			return true, nil
		}
		if args[1].IsSmallInteger() {
			v := memory.ToInt(args[1])
			if v >= 0 && v <= 255 {
				if err := in.om.StoreByte(receiver, i, byte(v)); err == nil {
					active.Push(args[1])
					return true, nil
				}
			}
		}
		return false, nil
	case 62: // size
		if n, err := in.om.ByteLengthOf(receiver); err == nil {
			oop, ok := memory.FromInt(int32(n))
			return ok && push(active, oop), nil
		}
		if n, err := in.om.WordLengthOf(receiver); err == nil {
			oop, ok := memory.FromInt(int32(n))
			return ok && push(active, oop), nil
		}
		return false, nil
	default:
		return false, nil
	}
}

// Object-protocol field layout assumptions (spec.md §4.3 index range
// 68-79). instVarAt:/instVarAt:put: use the ordinary pointer-field
// accessors already keyed 0-based internally but 1-based from Smalltalk.
func (in *Interpreter) primitiveObject(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	switch idx {
	case 68: // instVarAt:
		if len(args) != 1 || !args[0].IsSmallInteger() {
			return false, nil
		}
		i := int(memory.ToInt(args[0])) - 1
		v, err := in.om.FetchPointer(receiver, i)
		if err != nil {
			return false, nil
		}
		active.Push(v)
		return true, nil
	case 69: // instVarAt:put:
		if len(args) != 2 || !args[0].IsSmallInteger() {
			return false, nil
		}
		i := int(memory.ToInt(args[0])) - 1
		if err := in.om.StorePointer(receiver, i, args[1]); err != nil {
			return false, nil
		}
		active.Push(args[1])
		return true, nil
	case 70: // basicNew: receiver is the class being instantiated.
		// A full implementation reads the class's instance-format word to
		// size the new object; this core does not model class format
		// introspection, so new instances default to zero fields and rely
		// on the image's instance-creation methods to grow them via
		// instVarAt:put: fallbacks.
		active.Push(in.om.InstantiateWithPointers(receiver, 0))
		return true, nil
	case 71: // basicNew:
		if len(args) != 1 || !args[0].IsSmallInteger() {
			return false, nil
		}
		n := int(memory.ToInt(args[0]))
		if n < 0 {
			return false, nil
		}
		active.Push(in.om.InstantiateWithPointers(receiver, n))
		return true, nil
	case 72: // identityHash
		if len(args) != 0 {
			return false, nil
		}
		oop, ok := memory.FromInt(int32(uint16(receiver) & 0x3FFE >> 1))
		return ok && push(active, oop), nil
	case 75: // ==
		if len(args) == 1 {
			return push(active, boolOOP(receiver == args[0])), nil
		}
		return false, nil
	case 76: // class
		if class, err := in.om.ClassOf(receiver); err == nil {
			return push(active, class), nil
		}
		return false, nil
	default:
		return false, nil
	}
}

func (in *Interpreter) primitiveControl(active Context, idx int, cm *memory.CompiledMethod, receiver memory.OOP, args []memory.OOP) (bool, error) {
	switch idx {
	case 80: // blockCopy:
		return in.primitiveBlockCopy(active, receiver, args)
	case 81: // value (zero-arg block activation)
		return in.primitiveBlockValue(active, receiver, args)
	case 82, 83, 84: // value: / value:value: / value:value:value:
		return in.primitiveBlockValue(active, receiver, args)
	case 85: // perform:
		return in.primitivePerform(active, receiver, args)
	case 86: // signal
		in.scheduler.SignalSemaphore(receiver)
		active.Push(receiver)
		return true, nil
	case 87: // wait
		return in.primitiveWait(active, receiver)
	case 88: // resume
		return in.primitiveResume(active, receiver)
	case 89: // suspend
		return in.primitiveSuspend(active, receiver)
	default:
		return false, nil
	}
}

// primitiveBlockCopy implements Blue Book's BlockContext class>>
// primitiveBlockCopy, sent by the compiler-generated sequence
// "push active context; push numArgs; send #blockCopy:" at the start of
// every block literal (spec.md §4.3, §3.5). The receiver is therefore the
// enclosing context itself, and its current ip — already advanced past
// the blockCopy: send bytecode by the fetch cycle — is exactly where the
// block's own bytecodes begin.
func (in *Interpreter) primitiveBlockCopy(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if len(args) != 1 || !args[0].IsSmallInteger() {
		return false, nil
	}
	numArgs := int(memory.ToInt(args[0]))
	enclosing := Wrap(in.om, receiver)
	home := enclosing
	if enclosing.IsBlock() {
		home = enclosing.Home()
	}
	frame := enclosing.frameSize()
	if frame <= 0 {
		frame = smallFrameSize
	}
	block := NewBlockContext(in.om, Wrap(in.om, memory.NilOOP), numArgs, enclosing.IP(), home, frame)
	active.Push(block.OOP)
	return true, nil
}

// primitiveBlockValue activates a BlockContext with the supplied
// arguments copied into its frame (spec.md scenario 4).
func (in *Interpreter) primitiveBlockValue(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	class, err := in.om.ClassOf(receiver)
	if err != nil || class != memory.ClassBlockContextOOP {
		return false, nil
	}
	block := Wrap(in.om, receiver)
	if block.ArgumentCount() != len(args) {
		return false, nil
	}
	block.SetSender(active)
	block.SetIP(block.InitialIP())
	block.SetSP(0)
	for i, a := range args {
		in.om.StorePointer(receiver, frameBase+i, a)
	}
	block.SetSP(len(args))

	in.om.SetRegister(memory.RegActiveContext, receiver)
	home := block.Home()
	in.om.SetRegister(memory.RegHomeContext, home.OOP)
	m, _ := in.om.FetchPointer(home.OOP, fieldMethodOrArgs)
	in.om.SetRegister(memory.RegMethod, m)
	in.om.SetRegister(memory.RegReceiver, home.Receiver())
	return true, nil
}

// primitivePerform re-sends args[0] (a Symbol) to receiver with the
// remaining arguments, the ordinary lookup-and-activate machinery doing
// the rest (spec.md §4.3 "perform:").
func (in *Interpreter) primitivePerform(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if len(args) < 1 {
		return false, nil
	}
	selector := args[0]
	rest := args[1:]
	active.Push(receiver)
	for _, a := range rest {
		active.Push(a)
	}
	if err := in.send(selector, len(rest), false); err != nil {
		return false, err
	}
	return true, nil
}

// primitiveWait implements Semaphore>>wait: consume a banked excess
// signal if one is available, otherwise park the active process on the
// semaphore's wait list and switch to the next runnable one (spec.md
// §5 "Suspension points").
func (in *Interpreter) primitiveWait(active Context, receiver memory.OOP) (bool, error) {
	excess, err := in.om.FetchPointer(receiver, semaphoreExcessSignals)
	if err != nil {
		return false, nil
	}
	if excess.IsSmallInteger() && memory.ToInt(excess) > 0 {
		v, ok := memory.FromInt(memory.ToInt(excess) - 1)
		if !ok {
			return false, nil
		}
		in.om.StorePointer(receiver, semaphoreExcessSignals, v)
		active.Push(receiver)
		return true, nil
	}

	current := in.scheduler.active
	if current == memory.NilOOP || current == 0 {
		// No process has ever been switched in: nothing to park this
		// activation behind. Fail rather than silently deadlock.
		return false, nil
	}
	next, ok := in.scheduler.dequeueHighestReady()
	if !ok {
		return false, nil
	}
	in.scheduler.enqueueWaiter(receiver, current)
	in.suspendActiveInto(current)
	active.Push(receiver)
	in.switchToProcess(next)
	return true, nil
}

// primitiveResume makes receiver runnable, preempting the active process
// immediately when receiver outranks it (spec.md §4.3 "resume").
func (in *Interpreter) primitiveResume(active Context, receiver memory.OOP) (bool, error) {
	active.Push(receiver)
	in.makeRunnable(receiver)
	return true, nil
}

// primitiveSuspend suspends the process currently running, switching to
// the highest-priority ready process; it fails if none is ready. For any
// other receiver it only answers the receiver: the ready and semaphore
// wait queues are left unchanged.
func (in *Interpreter) primitiveSuspend(active Context, receiver memory.OOP) (bool, error) {
	if receiver != in.scheduler.active {
		active.Push(receiver)
		return true, nil
	}
	next, ok := in.scheduler.dequeueHighestReady()
	if !ok {
		return false, nil
	}
	in.suspendActiveInto(receiver)
	active.Push(receiver)
	in.switchToProcess(next)
	return true, nil
}

// Form field layout assumption: bits (a word object), width, height
// (spec.md §9 open questions — the interchange format does not itself
// fix how Form wraps a Bitmap, so this core picks the layout BitBlt's
// own fields already imply: something hands copyBits a bits array plus
// the dimensions needed to compute its raster width).
const (
	formBitsField   = 0
	formWidthField  = 1
	formHeightField = 2
)

// BitBlt instance-variable layout (spec.md §4.4, Blue Book chapter 18).
const (
	bbDestBits        = 0
	bbSourceBits      = 1
	bbHalftoneBits    = 2
	bbCombinationRule = 3
	bbDestX           = 4
	bbDestY           = 5
	bbWidth           = 6
	bbHeight          = 7
	bbSourceX         = 8
	bbSourceY         = 9
	bbClipX           = 10
	bbClipY           = 11
	bbClipWidth       = 12
	bbClipHeight      = 13
)

func (in *Interpreter) loadForm(oop memory.OOP) (*bitblt.Bitmap, error) {
	if oop == memory.NilOOP {
		return nil, nil
	}
	bits, err := in.om.FetchPointer(oop, formBitsField)
	if err != nil {
		return nil, err
	}
	width, err := in.om.FetchPointer(oop, formWidthField)
	if err != nil {
		return nil, err
	}
	height, err := in.om.FetchPointer(oop, formHeightField)
	if err != nil {
		return nil, err
	}
	if !width.IsSmallInteger() || !height.IsSmallInteger() {
		return nil, ErrCorruptMemory
	}
	n, err := in.om.WordLengthOf(bits)
	if err != nil {
		return nil, err
	}
	words := make([]uint16, n)
	for i := 0; i < n; i++ {
		w, err := in.om.FetchWord(bits, i)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return &bitblt.Bitmap{
		PixelWidth:  int(memory.ToInt(width)),
		PixelHeight: int(memory.ToInt(height)),
		Words:       words,
	}, nil
}

func (in *Interpreter) storeFormBits(form memory.OOP, bm *bitblt.Bitmap) error {
	bits, err := in.om.FetchPointer(form, formBitsField)
	if err != nil {
		return err
	}
	for i, w := range bm.Words {
		if err := in.om.StoreWord(bits, i, w); err != nil {
			return err
		}
	}
	return nil
}

// primitiveCopyBits drives internal/bitblt over the BitBlt object's own
// fields, then notifies the display adapter of whatever rectangle
// actually changed (spec.md §4.4 "Contract").
func (in *Interpreter) primitiveCopyBits(active Context, receiver memory.OOP) (bool, error) {
	destForm, err := in.om.FetchPointer(receiver, bbDestBits)
	if err != nil {
		return false, nil
	}
	dest, err := in.loadForm(destForm)
	if err != nil || dest == nil {
		return false, nil
	}

	var source *bitblt.Bitmap
	if sf, err := in.om.FetchPointer(receiver, bbSourceBits); err == nil && sf != memory.NilOOP {
		source, _ = in.loadForm(sf)
	}
	var halftone *bitblt.Bitmap
	if hf, err := in.om.FetchPointer(receiver, bbHalftoneBits); err == nil && hf != memory.NilOOP {
		halftone, _ = in.loadForm(hf)
	}

	field := func(i int) (int, bool) {
		v, err := in.om.FetchPointer(receiver, i)
		if err != nil || !v.IsSmallInteger() {
			return 0, false
		}
		return int(memory.ToInt(v)), true
	}
	rule, ok1 := field(bbCombinationRule)
	dx, ok2 := field(bbDestX)
	dy, ok3 := field(bbDestY)
	w, ok4 := field(bbWidth)
	h, ok5 := field(bbHeight)
	sx, ok6 := field(bbSourceX)
	sy, ok7 := field(bbSourceY)
	cx, ok8 := field(bbClipX)
	cy, ok9 := field(bbClipY)
	cw, ok10 := field(bbClipWidth)
	ch, ok11 := field(bbClipHeight)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10 && ok11) {
		return false, nil
	}

	dirty := bitblt.CopyBits(bitblt.Input{
		SourceBits: source, DestBits: dest, HalftoneBits: halftone,
		Rule: rule, DestX: dx, DestY: dy, Width: w, Height: h,
		SourceX: sx, SourceY: sy,
		ClipX: cx, ClipY: cy, ClipWidth: cw, ClipHeight: ch,
	})
	if err := in.storeFormBits(destForm, dest); err != nil {
		return false, nil
	}
	if in.display != nil && dirty.W > 0 && dirty.H > 0 {
		in.display.UpdateRect(dirty.X, dirty.Y, dirty.W, dirty.H)
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveIO(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	switch idx {
	case 90: // copyBits
		return in.primitiveCopyBits(active, receiver)
	case 91: // ticksNow
		if in.display == nil {
			return false, nil
		}
		oop, ok := memory.FromInt(int32(in.display.TicksMS()))
		return ok && push(active, oop), nil
	case 92: // secondsSince1901
		if in.display == nil {
			return false, nil
		}
		oop, ok := memory.FromInt(int32(in.display.SecondsSince1901()))
		return ok && push(active, oop), nil
	case 93: // nextEvent (keyboard/mouse), -1 if none pending
		if in.display == nil {
			return false, nil
		}
		in.display.ProcessEvents()
		oop, ok := memory.FromInt(in.display.NextEvent())
		return ok && push(active, oop), nil
	case 94: // file open (read/write existing)
		return in.primitiveFileOpen(active, receiver, false)
	case 95: // file create (truncate/create new)
		return in.primitiveFileOpen(active, receiver, true)
	case 96: // file close
		return in.primitiveFileClose(active, receiver)
	case 97: // file size
		return in.primitiveFileSize(active, receiver)
	case 98: // file seek
		return in.primitiveFileSeek(active, receiver, args)
	case 99: // file read: count -> String
		return in.primitiveFileRead(active, receiver, args)
	case 100: // file write: aString -> count written
		return in.primitiveFileWrite(active, receiver, args)
	case 101: // file truncate: newSize
		return in.primitiveFileTruncate(active, receiver, args)
	case 102: // file delete
		return in.primitiveFileDelete(active, receiver)
	case 103: // file rename: newName
		return in.primitiveFileRename(active, receiver, args)
	case 104: // clipboard copy
		return in.primitiveClipboardCopy(active, receiver)
	case 105: // clipboard paste
		return in.primitiveClipboardPaste(active)
	default:
		return false, nil
	}
}

func (in *Interpreter) primitiveFileOpen(active Context, receiver memory.OOP, create bool) (bool, error) {
	if in.files == nil {
		return false, nil
	}
	path, ok := stringFromOOP(in.om, receiver)
	if !ok {
		return false, nil
	}
	var fd int
	var err error
	if create {
		fd, err = in.files.Create(path)
	} else {
		fd, err = in.files.Open(path)
	}
	if err != nil {
		return false, nil
	}
	oop, ok := memory.FromInt(int32(fd))
	return ok && push(active, oop), nil
}

func (in *Interpreter) primitiveFileClose(active Context, receiver memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() {
		return false, nil
	}
	if err := in.files.Close(int(memory.ToInt(receiver))); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveFileSize(active Context, receiver memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() {
		return false, nil
	}
	n, err := in.files.Size(int(memory.ToInt(receiver)))
	if err != nil {
		return false, nil
	}
	oop, ok := memory.FromInt(int32(n))
	return ok && push(active, oop), nil
}

func (in *Interpreter) primitiveFileSeek(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() || len(args) != 1 || !args[0].IsSmallInteger() {
		return false, nil
	}
	if err := in.files.Seek(int(memory.ToInt(receiver)), int64(memory.ToInt(args[0]))); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveFileRead(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() || len(args) != 1 || !args[0].IsSmallInteger() {
		return false, nil
	}
	count := int(memory.ToInt(args[0]))
	if count < 0 {
		return false, nil
	}
	buf := make([]byte, count)
	n, err := in.files.Read(int(memory.ToInt(receiver)), buf)
	if err != nil && n == 0 {
		return false, nil
	}
	active.Push(in.newString(string(buf[:n])))
	return true, nil
}

func (in *Interpreter) primitiveFileWrite(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() || len(args) != 1 {
		return false, nil
	}
	s, ok := stringFromOOP(in.om, args[0])
	if !ok {
		return false, nil
	}
	n, err := in.files.Write(int(memory.ToInt(receiver)), []byte(s))
	if err != nil {
		return false, nil
	}
	oop, ok := memory.FromInt(int32(n))
	return ok && push(active, oop), nil
}

func (in *Interpreter) primitiveFileTruncate(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if in.files == nil || !receiver.IsSmallInteger() || len(args) != 1 || !args[0].IsSmallInteger() {
		return false, nil
	}
	if err := in.files.Truncate(int(memory.ToInt(receiver)), int64(memory.ToInt(args[0]))); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveFileDelete(active Context, receiver memory.OOP) (bool, error) {
	if in.files == nil {
		return false, nil
	}
	path, ok := stringFromOOP(in.om, receiver)
	if !ok {
		return false, nil
	}
	if err := in.files.Delete(path); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveFileRename(active Context, receiver memory.OOP, args []memory.OOP) (bool, error) {
	if in.files == nil || len(args) != 1 {
		return false, nil
	}
	from, ok1 := stringFromOOP(in.om, receiver)
	to, ok2 := stringFromOOP(in.om, args[0])
	if !ok1 || !ok2 {
		return false, nil
	}
	if err := in.files.Rename(from, to); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveClipboardCopy(active Context, receiver memory.OOP) (bool, error) {
	if in.clipboard == nil {
		return false, nil
	}
	s, ok := stringFromOOP(in.om, receiver)
	if !ok {
		return false, nil
	}
	if err := in.clipboard.CopyTo([]byte(s)); err != nil {
		return false, nil
	}
	active.Push(receiver)
	return true, nil
}

func (in *Interpreter) primitiveClipboardPaste(active Context) (bool, error) {
	if in.clipboard == nil {
		return false, nil
	}
	data, err := in.clipboard.PasteFrom()
	if err != nil {
		return false, nil
	}
	active.Push(in.newString(string(data)))
	return true, nil
}

func (in *Interpreter) primitiveSystem(active Context, idx int, receiver memory.OOP, args []memory.OOP) (bool, error) {
	switch idx {
	case 113: // quit
		in.Stop()
		return true, nil
	default:
		return false, nil
	}
}

func push(active Context, v memory.OOP) bool {
	active.Push(v)
	return true
}

func boolOOP(v bool) memory.OOP {
	if v {
		return memory.TrueOOP
	}
	return memory.FalseOOP
}

// stringFromOOP reads a byte object's contents out as a Go string,
// failing (ok=false) if oop isn't byte-indexable.
func stringFromOOP(om *memory.ObjectMemory, oop memory.OOP) (string, bool) {
	n, err := om.ByteLengthOf(oop)
	if err != nil {
		return "", false
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := om.FetchByte(oop, i)
		if err != nil {
			return "", false
		}
		buf[i] = b
	}
	return string(buf), true
}

// newString allocates a fresh String instance holding s's bytes.
func (in *Interpreter) newString(s string) memory.OOP {
	oop := in.om.InstantiateWithBytes(memory.ClassStringOOP, len(s), len(s)%2 == 1)
	for i := 0; i < len(s); i++ {
		in.om.StoreByte(oop, i, s[i])
	}
	return oop
}

package interp

import (
	"github.com/rochus-keller/st80vm/internal/hostadapter"
	"github.com/rochus-keller/st80vm/internal/memory"
	"github.com/rochus-keller/st80vm/internal/vmlog"
)

// Interpreter runs the fetch-decode-execute cycle over one object memory.
// Registers live inside the object memory (memory.Register*) rather than
// as separate interpreter fields, so GC can trace them uniformly with the
// temp-root set; that trades the micro-optimization spec.md §9 suggests
// for one less place a root can be forgotten.
type Interpreter struct {
	om       *memory.ObjectMemory
	display  hostadapter.Display
	files    hostadapter.Files
	clipboard hostadapter.Clipboard

	scheduler *scheduler
	inDNU     bool
	running   bool

	// cyclesToNextPoll counts down the bytecodes left before the next
	// process switch check, mirroring StInterpreter.cpp's interrupt-check
	// countdown (SPEC_FULL.md §C.2) instead of polling every cycle.
	cyclesToNextPoll int
}

const pollInterval = 400

// New builds an interpreter over om. display/files/clipboard may be nil;
// primitives that need them fail (success=false) rather than panic when
// no adapter was supplied, consistent with spec.md §7's HostIoError
// policy ("primitive failure, status returned to image").
func New(om *memory.ObjectMemory, display hostadapter.Display, files hostadapter.Files, clipboard hostadapter.Clipboard) *Interpreter {
	return &Interpreter{
		om:        om,
		display:   display,
		files:     files,
		clipboard: clipboard,
		scheduler: newScheduler(om),
	}
}

func (in *Interpreter) activeContext() Context {
	return Wrap(in.om, in.om.Register(memory.RegActiveContext))
}

// Run executes bytecodes until the active process requests shutdown or a
// host cancellation request is observed (spec.md §5 "Cancellation").
func (in *Interpreter) Run() error {
	in.running = true
	vmlog.L().Debug("interpreter run loop starting")
	for in.running {
		if in.display != nil && !in.display.Running() {
			in.running = false
			break
		}
		if err := in.Step(); err != nil {
			vmlog.L().Errorw("interpreter halted", "error", err)
			return err
		}
	}
	vmlog.L().Debug("interpreter run loop stopped")
	return nil
}

// Stop requests that Run return before it executes its next bytecode.
func (in *Interpreter) Stop() {
	in.running = false
}

// Step executes exactly one bytecode of the active context (spec.md
// §4.3 "Execution model").
func (in *Interpreter) Step() error {
	in.cyclesToNextPoll--
	if in.cyclesToNextPoll <= 0 {
		in.cyclesToNextPoll = pollInterval
		if err := in.checkProcessSwitch(); err != nil {
			return err
		}
	}

	active := in.activeContext()
	method := in.om.Register(memory.RegMethod)
	cm, err := in.om.LoadCompiledMethod(method)
	if err != nil {
		return err
	}
	code, err := cm.Bytecodes()
	if err != nil {
		return err
	}

	ip := active.IP()
	if ip < 0 || ip >= len(code) {
		return ErrCorruptMemory
	}
	b := code[ip]
	active.SetIP(ip + 1)

	return in.dispatch(active, cm, code, b)
}

func (in *Interpreter) dispatch(active Context, cm *memory.CompiledMethod, code []byte, b byte) error {
	switch {
	case b <= pushReceiverVarTop:
		return in.pushReceiverVariable(active, int(b))
	case b <= pushTempTop:
		return in.pushTemp(active, int(b-pushTempBase))
	case b <= pushLiteralConstTop:
		return in.pushLiteralConstant(active, cm, int(b-pushLiteralConstBase))
	case b <= pushLiteralVarTop:
		return in.pushLiteralVariable(active, cm, int(b-pushLiteralVarBase))
	case b <= popStoreReceiverTop:
		return in.popStoreReceiverVariable(active, int(b-popStoreReceiverBase))
	case b <= popStoreTempTop:
		return in.popStoreTemp(active, int(b-popStoreTempBase))
	case b == pushReceiver:
		active.Push(active.Receiver())
		return nil
	case b == pushTrue:
		active.Push(memory.TrueOOP)
		return nil
	case b == pushFalse:
		active.Push(memory.FalseOOP)
		return nil
	case b == pushNil:
		active.Push(memory.NilOOP)
		return nil
	case b == pushMinusOne, b == pushZero, b == pushOne, b == pushTwo:
		v, _ := memory.FromInt(int32(b) - pushZero)
		active.Push(v)
		return nil
	case b == returnReceiver:
		return in.doReturn(active, active.Receiver())
	case b == returnTrue:
		return in.doReturn(active, memory.TrueOOP)
	case b == returnFalse:
		return in.doReturn(active, memory.FalseOOP)
	case b == returnNil:
		return in.doReturn(active, memory.NilOOP)
	case b == returnStackTop:
		return in.doReturn(active, active.Pop())
	case b == returnStackTopToBlock:
		return in.doBlockReturn(active, active.Pop())
	case b == extendedPush:
		return in.extendedPush(active, cm, code)
	case b == extendedStore:
		return in.extendedStore(active, cm, code, false)
	case b == extendedStoreAndPop:
		return in.extendedStore(active, cm, code, true)
	case b >= sendSingleExtended && b <= sendDoubleExtendedSuper:
		return in.extendedSend(active, cm, code, b)
	case b == popStackTop:
		active.Pop()
		return nil
	case b == duplicateStackTop:
		active.Push(active.Top())
		return nil
	case b == pushActiveContext:
		active.Push(active.OOP)
		return nil
	case b >= shortJumpBase && b <= shortJumpTop:
		active.SetIP(active.IP() + int(b-shortJumpBase) + 1)
		return nil
	case b >= popJumpFalseBase && b <= popJumpFalseTop:
		return in.popJumpFalse(active, int(b-popJumpFalseBase)+1)
	case b >= longJumpBase && b <= longJumpTop:
		return in.longJump(active, code, b)
	case b >= longCondJumpBase && b <= longCondJumpTop:
		return in.longCondJump(active, code, b)
	case b >= specialArithBase && b <= specialCommonTop:
		return in.sendSpecialSelector(active, int(b-specialArithBase))
	default: // 208-255
		return in.sendLiteralSelectorByte(active, cm, b)
	}
}

func (in *Interpreter) pushReceiverVariable(active Context, i int) error {
	v, err := in.om.FetchPointer(active.Receiver(), i)
	if err != nil {
		return err
	}
	active.Push(v)
	return nil
}

func (in *Interpreter) pushTemp(active Context, i int) error {
	home := active
	if active.IsBlock() {
		home = active.Home()
	}
	v, err := in.om.FetchPointer(home.OOP, frameBase+i)
	if err != nil {
		return err
	}
	active.Push(v)
	return nil
}

func (in *Interpreter) pushLiteralConstant(active Context, cm *memory.CompiledMethod, i int) error {
	v, err := cm.Literal(i)
	if err != nil {
		return err
	}
	active.Push(v)
	return nil
}

func (in *Interpreter) pushLiteralVariable(active Context, cm *memory.CompiledMethod, i int) error {
	assoc, err := cm.Literal(i)
	if err != nil {
		return err
	}
	v, err := in.om.FetchPointer(assoc, 1) // Association: key@0, value@1
	if err != nil {
		return err
	}
	active.Push(v)
	return nil
}

func (in *Interpreter) popStoreReceiverVariable(active Context, i int) error {
	return in.om.StorePointer(active.Receiver(), i, active.Pop())
}

func (in *Interpreter) popStoreTemp(active Context, i int) error {
	home := active
	if active.IsBlock() {
		home = active.Home()
	}
	return in.om.StorePointer(home.OOP, frameBase+i, active.Pop())
}

func (in *Interpreter) popJumpFalse(active Context, delta int) error {
	v := active.Pop()
	switch v {
	case memory.FalseOOP:
		active.SetIP(active.IP() + delta)
	case memory.TrueOOP:
		// fall through: ip already advanced past the bytecode itself
	default:
		active.Push(v)
		return in.sendMustBeBoolean(active, v)
	}
	return nil
}

func (in *Interpreter) longJump(active Context, code []byte, b byte) error {
	ip := active.IP()
	low := code[ip]
	active.SetIP(ip + 1)
	delta := (int(b-longJumpBase)-4)*256 + int(low)
	active.SetIP(active.IP() + delta)
	return nil
}

func (in *Interpreter) longCondJump(active Context, code []byte, b byte) error {
	ip := active.IP()
	low := code[ip]
	active.SetIP(ip + 1)
	delta := (int(b-longCondJumpBase)&3)*256 + int(low)
	wantTrue := (b-longCondJumpBase)&4 == 0

	v := active.Pop()
	var branchTaken bool
	switch v {
	case memory.TrueOOP:
		branchTaken = wantTrue
	case memory.FalseOOP:
		branchTaken = !wantTrue
	default:
		active.Push(v)
		return in.sendMustBeBoolean(active, v)
	}
	if branchTaken {
		active.SetIP(active.IP() + delta)
	}
	return nil
}

// doReturn implements a method-level return (spec.md §4.3 "Return").
func (in *Interpreter) doReturn(active Context, value memory.OOP) error {
	home := active
	if active.IsBlock() {
		home = active.Home()
	}
	sender := home.Sender()
	if sender.IsNil() {
		return in.sendCannotReturn(active, value)
	}
	home.om.StorePointer(home.OOP, fieldSenderOrCaller, memory.NilOOP)
	home.SetIP(-1)

	in.om.SetRegister(memory.RegActiveContext, sender.OOP)
	in.om.SetRegister(memory.RegHomeContext, sender.OOP)
	m, _ := in.om.FetchPointer(sender.OOP, fieldMethodOrArgs)
	in.om.SetRegister(memory.RegMethod, m)
	in.om.SetRegister(memory.RegReceiver, sender.Receiver())

	sender.Push(value)
	return nil
}

// doBlockReturn implements the "return stack-top from block" bytecode: it
// returns to the block's own caller, not its home method (spec.md §4.3
// bytecode 125), leaving the home context's stack untouched (scenario 4).
func (in *Interpreter) doBlockReturn(active Context, value memory.OOP) error {
	caller := active.Sender()
	if caller.IsNil() {
		return in.sendCannotReturn(active, value)
	}
	in.om.SetRegister(memory.RegActiveContext, caller.OOP)
	home := caller
	if caller.IsBlock() {
		home = caller.Home()
	}
	in.om.SetRegister(memory.RegHomeContext, home.OOP)
	m, _ := in.om.FetchPointer(home.OOP, fieldMethodOrArgs)
	in.om.SetRegister(memory.RegMethod, m)
	in.om.SetRegister(memory.RegReceiver, home.Receiver())
	caller.Push(value)
	return nil
}

func (in *Interpreter) extendedPush(active Context, cm *memory.CompiledMethod, code []byte) error {
	ip := active.IP()
	ext := code[ip]
	active.SetIP(ip + 1)
	kind := extendedKind(ext >> 6)
	idx := int(ext & 0x3F)
	switch kind {
	case extendedReceiverVar:
		return in.pushReceiverVariable(active, idx)
	case extendedTempVar:
		return in.pushTemp(active, idx)
	case extendedLiteral:
		return in.pushLiteralConstant(active, cm, idx)
	default:
		return in.pushLiteralVariable(active, cm, idx)
	}
}

func (in *Interpreter) extendedStore(active Context, cm *memory.CompiledMethod, code []byte, andPop bool) error {
	ip := active.IP()
	ext := code[ip]
	active.SetIP(ip + 1)
	kind := extendedKind(ext >> 6)
	idx := int(ext & 0x3F)

	v := active.Top()
	var err error
	switch kind {
	case extendedReceiverVar:
		err = in.om.StorePointer(active.Receiver(), idx, v)
	case extendedTempVar:
		home := active
		if active.IsBlock() {
			home = active.Home()
		}
		err = in.om.StorePointer(home.OOP, frameBase+idx, v)
	default:
		lit, lerr := cm.Literal(idx)
		if lerr != nil {
			return lerr
		}
		err = in.om.StorePointer(lit, 1, v)
	}
	if err != nil {
		return err
	}
	if andPop {
		active.Pop()
	}
	return nil
}

func (in *Interpreter) extendedSend(active Context, cm *memory.CompiledMethod, code []byte, b byte) error {
	isSuper := b == sendSingleExtendedSuper || b == sendDoubleExtendedSuper

	var argCount, selIdx int
	switch b {
	case sendSingleExtended, sendSingleExtendedSuper:
		ip := active.IP()
		descriptor := code[ip]
		active.SetIP(ip + 1)
		argCount = int(descriptor >> 5)
		selIdx = int(descriptor & 0x1F)
	default: // sendDoubleExtended, sendDoubleExtendedSuper: two full bytes
		ip := active.IP()
		argCount = int(code[ip])
		selIdx = int(code[ip+1])
		active.SetIP(ip + 2)
	}
	sel, err := cm.Literal(selIdx)
	if err != nil {
		return err
	}
	return in.send(sel, argCount, isSuper)
}

func (in *Interpreter) sendSpecialSelector(active Context, idx int) error {
	sel := in.om.SpecialSelector(idx)
	argCount := in.om.SpecialSelectorArgCount(idx)
	return in.send(sel, argCount, false)
}

func (in *Interpreter) sendLiteralSelectorByte(active Context, cm *memory.CompiledMethod, b byte) error {
	argCount := int(b-literalSelectorBase) >> 4
	litIdx := int(b-literalSelectorBase) & 0x0F
	sel, err := cm.Literal(litIdx)
	if err != nil {
		return err
	}
	return in.send(sel, argCount, false)
}

package interp

import "github.com/rochus-keller/st80vm/internal/memory"

// RegisterSnapshot is a read-only copy of the six interpreter registers,
// for tools (the debugger console) that need to display them without
// reaching into the object memory directly.
type RegisterSnapshot struct {
	ActiveContext   memory.OOP
	HomeContext     memory.OOP
	Method          memory.OOP
	Receiver        memory.OOP
	MessageSelector memory.OOP
	NewMethod       memory.OOP
}

// RegisterSnapshot returns the current values of the six registers.
func (in *Interpreter) RegisterSnapshot() RegisterSnapshot {
	return RegisterSnapshot{
		ActiveContext:   in.om.Register(memory.RegActiveContext),
		HomeContext:     in.om.Register(memory.RegHomeContext),
		Method:          in.om.Register(memory.RegMethod),
		Receiver:        in.om.Register(memory.RegReceiver),
		MessageSelector: in.om.Register(memory.RegMessageSelector),
		NewMethod:       in.om.Register(memory.RegNewMethod),
	}
}

// ActiveContextIP returns the active context's current instruction
// pointer, the value a breakpoint compares against.
func (in *Interpreter) ActiveContextIP() (int, error) {
	active := in.activeContext()
	if active.OOP == memory.NilOOP {
		return -1, ErrCorruptMemory
	}
	return active.IP(), nil
}

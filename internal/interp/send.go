package interp

import (
	"github.com/rochus-keller/st80vm/internal/memory"
)

// classSuperclass and classMethodDict are the fixed instance-variable
// indices of a Class/Behavior object in the base image layout: slot 0 is
// the superclass, slot 1 the method dictionary. The rest of a class's
// instance variables (instance spec, name, etc.) are not needed by this
// core.
const (
	classSuperclassField = 0
	classMethodDictField = 1
)

// lookup walks class and its superclasses for selector, returning the
// CompiledMethod OOP and the class that defines it. found is false if no
// class in the chain defines the selector.
func (in *Interpreter) lookup(class, selector memory.OOP) (method memory.OOP, definingClass memory.OOP, found bool) {
	for class != memory.NilOOP {
		dict, err := in.om.FetchPointer(class, classMethodDictField)
		if err == nil && dict != memory.NilOOP {
			if m, ok := in.lookupInDictionary(dict, selector); ok {
				return m, class, true
			}
		}
		super, err := in.om.FetchPointer(class, classSuperclassField)
		if err != nil {
			break
		}
		class = super
	}
	return 0, 0, false
}

// lookupInDictionary finds selector in a method dictionary by a linear
// scan rather than the hash probe of spec.md §4.3: slot 0 holds the parallel values (methods) array, slots 2.. hold selectors.
// A linear scan is behavior-identical to the hash-probe original for any
// correctly built dictionary (spec.md §4.3 explicitly permits this).
func (in *Interpreter) lookupInDictionary(dict, selector memory.OOP) (memory.OOP, bool) {
	values, err := in.om.FetchPointer(dict, 0)
	if err != nil {
		return 0, false
	}
	n, err := in.om.WordLengthOf(dict)
	if err != nil {
		return 0, false
	}
	for i := 2; i < n; i++ {
		key, err := in.om.FetchPointer(dict, i)
		if err != nil {
			continue
		}
		if key == selector {
			slot := i - 2
			m, err := in.om.FetchPointer(values, slot)
			if err != nil || m == memory.NilOOP {
				return 0, false
			}
			return m, true
		}
	}
	return 0, false
}

// send performs a full message send: lookup, primitive attempt, and (on
// primitive failure or absent primitive) activation of the method's
// bytecodes. argCount does not include the receiver. superSend restricts
// lookup to start one class above the currently executing method's class
// (spec.md §4.3 step 2).
func (in *Interpreter) send(selector memory.OOP, argCount int, superSend bool) error {
	active := in.activeContext()
	args := active.PopN(argCount)
	receiver := active.Pop()

	var startClass memory.OOP
	if superSend {
		cm, err := in.om.LoadCompiledMethod(in.om.Register(memory.RegMethod))
		if err != nil {
			return err
		}
		methodClass, err := cm.MethodClass()
		if err != nil {
			return err
		}
		startClass, _ = in.om.FetchPointer(methodClass, classSuperclassField)
	} else {
		startClass, _ = in.om.ClassOf(receiver)
	}

	method, definingClass, ok := in.lookup(startClass, selector)
	if !ok {
		return in.sendDoesNotUnderstand(active, receiver, selector, args)
	}

	in.om.SetRegister(memory.RegNewMethod, method)
	cm, err := in.om.LoadCompiledMethod(method)
	if err != nil {
		return err
	}
	_ = definingClass

	if idx := cm.PrimitiveIndex(); idx != 0 || cm.Flags() == 5 || cm.Flags() == 6 {
		ok, err := in.tryPrimitive(idx, cm, receiver, args)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	in.activateMethod(method, cm, receiver, args)
	return nil
}

// sendDoesNotUnderstand synthesizes a Message object and retries the send
// with selector doesNotUnderstand: (spec.md §4.3 step 3, scenario 6). A
// second consecutive miss is fatal (ErrRecursiveDNU), matching spec.md §7.
func (in *Interpreter) sendDoesNotUnderstand(active Context, receiver, selector memory.OOP, args []memory.OOP) error {
	if in.inDNU {
		return ErrRecursiveDNU
	}
	in.inDNU = true
	defer func() { in.inDNU = false }()

	argArray := in.om.InstantiateWithPointers(memory.ClassArrayOOP, len(args))
	for i, a := range args {
		in.om.StorePointer(argArray, i, a)
	}
	message := in.om.InstantiateWithPointers(memory.ClassMessageOOP, 2)
	in.om.StorePointer(message, 0, selector)
	in.om.StorePointer(message, 1, argArray)

	active.Push(receiver)
	active.Push(message)
	return in.send(memory.SymbolDoesNotUnderstandOOP, 1, false)
}

// sendMustBeBoolean re-sends mustBeBoolean: to a non-boolean conditional
// jump operand (spec.md scenario 3).
func (in *Interpreter) sendMustBeBoolean(active Context, receiver memory.OOP) error {
	active.Push(receiver)
	return in.send(memory.SymbolMustBeBooleanOOP, 0, false)
}

// sendCannotReturn re-sends cannotReturn: when a method tries to return
// to a context whose sender chain has already unwound (spec.md §4.3
// "Return").
func (in *Interpreter) sendCannotReturn(active Context, value memory.OOP) error {
	active.Push(active.OOP)
	active.Push(value)
	return in.send(memory.SymbolCannotReturnOOP, 1, false)
}

// activateMethod allocates a fresh MethodContext for method against
// receiver and args and installs it as the active/home/method registers
// (spec.md §4.3 "Context switching on send").
func (in *Interpreter) activateMethod(method memory.OOP, cm *memory.CompiledMethod, receiver memory.OOP, args []memory.OOP) {
	sender := in.activeContext()
	ctx := NewMethodContext(in.om, sender, method, receiver, args, cm)

	in.om.SetRegister(memory.RegActiveContext, ctx.OOP)
	in.om.SetRegister(memory.RegHomeContext, ctx.OOP)
	in.om.SetRegister(memory.RegMethod, method)
	in.om.SetRegister(memory.RegReceiver, receiver)
}

package memory

// Register names the six interpreter registers the object memory tracks
// as GC roots in addition to the temp-root set (spec.md §3.6, §5).
type Register int

const (
	RegActiveContext Register = iota
	RegHomeContext
	RegMethod
	RegReceiver
	RegMessageSelector
	RegNewMethod
	numRegisters
)

// ObjectMemory is the Blue Book object table plus the bookkeeping the
// interpreter and snapshot reader need around it: a register file, the
// temporary-root set, and a free-slot list for allocation.
//
// Every live object is one *slot reached by table index; OOPs are never
// Go pointers, so nothing outside this package can hold a reference that
// survives a GC cycle apart from an OOP value (I2).
type ObjectMemory struct {
	table []*slot // index i holds the slot for OOPFromSlotIndex(i); nil means never allocated
	free  []int   // indices of free slots, LIFO reuse

	registers [numRegisters]OOP
	tempRoots map[OOP]int // oop -> reference count, spec.md §5 "temporary root set"
}

// New creates an object memory with no live objects. reserveSlots sizes
// the initial table (e.g. to the object count a snapshot header declares).
func New(reserveSlots int) *ObjectMemory {
	om := &ObjectMemory{
		table:     make([]*slot, 0, reserveSlots),
		tempRoots: make(map[OOP]int),
	}
	for i := range om.registers {
		om.registers[i] = NilOOP
	}
	return om
}

func (om *ObjectMemory) slotAt(oop OOP) (*slot, error) {
	if oop.IsSmallInteger() {
		return nil, ErrBadOOP
	}
	i := oop.slotIndex()
	if i < 0 || i >= len(om.table) || om.table[i] == nil || om.table[i].free {
		return nil, ErrBadOOP
	}
	return om.table[i], nil
}

// allocSlot installs s in a free index left by a prior Collect, or
// appends a new one, and returns the OOP addressing it.
func (om *ObjectMemory) allocSlot(s *slot) OOP {
	if n := len(om.free); n > 0 {
		i := om.free[n-1]
		om.free = om.free[:n-1]
		om.table[i] = s
		return OOPFromSlotIndex(i)
	}
	i := len(om.table)
	om.table = append(om.table, s)
	return OOPFromSlotIndex(i)
}

// growTableTo ensures slot index i is addressable.
func (om *ObjectMemory) growTableTo(i int) {
	for len(om.table) <= i {
		om.table = append(om.table, nil)
	}
}

// InstallPointersAt places a pointer object at the exact slot index the
// snapshot's object table entry reserved for it. Used only while loading
// an image, where OOP values are fixed by the file rather than chosen by
// the allocator.
func (om *ObjectMemory) InstallPointersAt(i int, class OOP, pointers []OOP) OOP {
	om.growTableTo(i)
	om.table[i] = &slot{class: class, cat: categoryPointer, pointers: pointers}
	return OOPFromSlotIndex(i)
}

// InstallWordsAt places a word object (e.g. a Bitmap) at a fixed slot index.
func (om *ObjectMemory) InstallWordsAt(i int, class OOP, words []uint16) OOP {
	om.growTableTo(i)
	om.table[i] = &slot{class: class, cat: categoryWord, words: words}
	return OOPFromSlotIndex(i)
}

// InstallBytesAt places a byte object (e.g. a String, Symbol, or
// LargePositiveInteger) at a fixed slot index.
func (om *ObjectMemory) InstallBytesAt(i int, class OOP, bytes []byte, odd bool) OOP {
	om.growTableTo(i)
	om.table[i] = &slot{class: class, cat: categoryByte, bytes: bytes, odd: odd}
	return OOPFromSlotIndex(i)
}

// InstallMethodAt places a CompiledMethod at a fixed slot index: its
// header word, its literal frame (including the trailing method-class
// Association, spec.md §3.4), and its raw bytecode tail.
func (om *ObjectMemory) InstallMethodAt(i int, class OOP, header OOP, literals []OOP, code []byte) OOP {
	om.growTableTo(i)
	om.table[i] = newMethodSlot(class, header, literals, code)
	return OOPFromSlotIndex(i)
}

// MethodHeader returns a CompiledMethod's header word, itself a
// SmallInteger OOP (spec.md §3.4).
func (om *ObjectMemory) MethodHeader(oop OOP) (OOP, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryMethod {
		return 0, ErrNotCompiledMethod
	}
	return s.methodHeader, nil
}

// MethodLiteralAt returns the i'th (0-based) literal of a CompiledMethod.
func (om *ObjectMemory) MethodLiteralAt(oop OOP, i int) (OOP, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryMethod {
		return 0, ErrNotCompiledMethod
	}
	if i < 0 || i >= len(s.methodLiterals) {
		return 0, ErrIndexOutOfRange
	}
	return s.methodLiterals[i], nil
}

// MethodBytecodes returns a CompiledMethod's raw bytecode bytes.
func (om *ObjectMemory) MethodBytecodes(oop OOP) ([]byte, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return nil, err
	}
	if s.cat != categoryMethod {
		return nil, ErrNotCompiledMethod
	}
	return s.methodCode, nil
}

// ClassOf returns the class of any OOP, immediate or not (spec.md §4.2).
func (om *ObjectMemory) ClassOf(oop OOP) (OOP, error) {
	if oop.IsSmallInteger() {
		return ClassSmallIntegerOOP, nil
	}
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	return s.class, nil
}

// WordLengthOf returns the object-table size field (spec.md §4.2).
func (om *ObjectMemory) WordLengthOf(oop OOP) (int, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	return s.wordSize(), nil
}

// ByteLengthOf returns the size of a byte object in bytes.
func (om *ObjectMemory) ByteLengthOf(oop OOP) (int, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryByte {
		return 0, ErrNotByteObj
	}
	return len(s.bytes), nil
}

// FetchPointer returns the i'th (0-based) indexable pointer field.
func (om *ObjectMemory) FetchPointer(oop OOP, i int) (OOP, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryPointer {
		return 0, ErrNotPointerObj
	}
	if i < 0 || i >= len(s.pointers) {
		return 0, ErrIndexOutOfRange
	}
	return s.pointers[i], nil
}

// StorePointer sets the i'th pointer field to value.
func (om *ObjectMemory) StorePointer(oop OOP, i int, value OOP) error {
	s, err := om.slotAt(oop)
	if err != nil {
		return err
	}
	if s.cat != categoryPointer {
		return ErrNotPointerObj
	}
	if i < 0 || i >= len(s.pointers) {
		return ErrIndexOutOfRange
	}
	s.pointers[i] = value
	return nil
}

// FetchWord returns the i'th 16-bit word of a word object.
func (om *ObjectMemory) FetchWord(oop OOP, i int) (uint16, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryWord {
		return 0, ErrNotWordObj
	}
	if i < 0 || i >= len(s.words) {
		return 0, ErrIndexOutOfRange
	}
	return s.words[i], nil
}

// StoreWord sets the i'th word of a word object.
func (om *ObjectMemory) StoreWord(oop OOP, i int, value uint16) error {
	s, err := om.slotAt(oop)
	if err != nil {
		return err
	}
	if s.cat != categoryWord {
		return ErrNotWordObj
	}
	if i < 0 || i >= len(s.words) {
		return ErrIndexOutOfRange
	}
	s.words[i] = value
	return nil
}

// FetchByte returns the i'th byte of a byte object.
func (om *ObjectMemory) FetchByte(oop OOP, i int) (byte, error) {
	s, err := om.slotAt(oop)
	if err != nil {
		return 0, err
	}
	if s.cat != categoryByte {
		return 0, ErrNotByteObj
	}
	if i < 0 || i >= len(s.bytes) {
		return 0, ErrIndexOutOfRange
	}
	return s.bytes[i], nil
}

// StoreByte sets the i'th byte of a byte object.
func (om *ObjectMemory) StoreByte(oop OOP, i int, value byte) error {
	s, err := om.slotAt(oop)
	if err != nil {
		return err
	}
	if s.cat != categoryByte {
		return ErrNotByteObj
	}
	if i < 0 || i >= len(s.bytes) {
		return ErrIndexOutOfRange
	}
	s.bytes[i] = value
	return nil
}

// InstantiateWithPointers creates a new instance of class with n pointer
// fields, all initialized to nil.
func (om *ObjectMemory) InstantiateWithPointers(class OOP, n int) OOP {
	return om.allocSlot(newPointerSlot(class, n))
}

// InstantiateWithWords creates a new word-indexable instance (e.g. Bitmap).
func (om *ObjectMemory) InstantiateWithWords(class OOP, n int) OOP {
	return om.allocSlot(newWordSlot(class, n))
}

// InstantiateWithBytes creates a new byte-indexable instance (e.g. String,
// Symbol, LargePositiveInteger). odd records whether the logical length is
// odd, so the object-table "odd" bit round-trips through a snapshot write.
func (om *ObjectMemory) InstantiateWithBytes(class OOP, n int, odd bool) OOP {
	return om.allocSlot(newByteSlot(class, n, odd))
}

// SwapPointers exchanges the object-table entries of two OOPs, so become:
// style effects are visible to every existing holder of either OOP without
// those OOPs themselves changing value. No primitive calls it; full
// become: identity-swap semantics are out of scope (SPEC_FULL.md §C.3).
func (om *ObjectMemory) SwapPointers(a, b OOP) error {
	sa, err := om.slotAt(a)
	if err != nil {
		return err
	}
	sb, err := om.slotAt(b)
	if err != nil {
		return err
	}
	ia, ib := a.slotIndex(), b.slotIndex()
	om.table[ia], om.table[ib] = sb, sa
	return nil
}

// SpecialSelector returns the selector symbol at index i (0-based) of the
// fixed specialSelectors array (OOP 48), which interleaves selector and
// argument-count pairs in Blue Book layout: slot 2i is the selector, slot
// 2i+1 its argument count.
func (om *ObjectMemory) SpecialSelector(i int) OOP {
	v, err := om.FetchPointer(SpecialSelectorsOOP, i*2)
	if err != nil {
		return NilOOP
	}
	return v
}

// SpecialSelectorArgCount returns the declared argument count for the
// special selector at index i.
func (om *ObjectMemory) SpecialSelectorArgCount(i int) int {
	v, err := om.FetchPointer(SpecialSelectorsOOP, i*2+1)
	if err != nil || !v.IsSmallInteger() {
		return 1
	}
	return int(ToInt(v))
}

// Register returns the current value of a named interpreter register.
func (om *ObjectMemory) Register(r Register) OOP {
	return om.registers[r]
}

// SetRegister updates a named interpreter register.
func (om *ObjectMemory) SetRegister(r Register, oop OOP) {
	om.registers[r] = oop
}

// AddTemp adds oop to the temporary root set the GC must trace in addition
// to the registers and well-known OOPs (spec.md §5). Reference-counted so
// nested save/restore pairs compose.
func (om *ObjectMemory) AddTemp(oop OOP) {
	if oop.IsSmallInteger() {
		return
	}
	om.tempRoots[oop]++
}

// RemoveTemp releases one reference added by AddTemp.
func (om *ObjectMemory) RemoveTemp(oop OOP) {
	if oop.IsSmallInteger() {
		return
	}
	if n := om.tempRoots[oop]; n > 1 {
		om.tempRoots[oop] = n - 1
	} else {
		delete(om.tempRoots, oop)
	}
}

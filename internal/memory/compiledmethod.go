package memory

// CompiledMethod header bit layout, spec.md §3.4: a 16-bit SmallInteger
// OOP whose bit 0 is the SmallInteger tag, and whose remaining 15 bits
// pack two logical bytes low-to-high: byte 1 (bits 1-7 of the OOP) holds
// the 6-bit literal count then the 1-bit large-context flag; byte 0
// (bits 8-15) holds the 5-bit temporary count then the 3-bit flag field.
// Decoding works on the header's raw bit pattern with the tag stripped
// (headerBits), not on its signed arithmetic value (ToInt) — these are
// packed flag fields, not a two's-complement integer.
const (
	headerLiteralCountShift = 0
	headerLiteralCountMask  = 0x3F // 6 bits
	headerLargeContextShift = 6
	headerLargeContextMask  = 0x1

	headerTempCountShift = 7
	headerTempCountMask  = 0x1F // 5 bits
	headerFlagShift      = 12
	headerFlagMask       = 0x7 // 3 bits: 0-4 arg count, 5/6 quick return, 7 extension

	extPrimitiveIndexShift = 1
	extPrimitiveIndexMask  = 0xFF // bits 1-8
	extArgCountShift       = 9
	extArgCountMask        = 0x1F // bits 9-13
)

// headerBits strips the SmallInteger tag from a header OOP, yielding the
// raw 15-bit field pattern described above.
func headerBits(header OOP) int32 {
	return int32(uint16(header) >> 1)
}

// LiteralCountFromHeader decodes the literal-frame length out of a raw
// CompiledMethod header word, for callers (the snapshot reader) that need
// it before a full CompiledMethod/slot exists to wrap.
func LiteralCountFromHeader(header OOP) int {
	return int((headerBits(header) >> headerLiteralCountShift) & headerLiteralCountMask)
}

// CompiledMethod exposes the field accessors the interpreter needs
// (spec.md §4.3) without requiring callers to hand-decode the packed
// header words each time.
type CompiledMethod struct {
	om  *ObjectMemory
	oop OOP

	header   int32
	litCount int
}

// LoadCompiledMethod decodes the header of the CompiledMethod at oop.
func (om *ObjectMemory) LoadCompiledMethod(oop OOP) (*CompiledMethod, error) {
	class, err := om.ClassOf(oop)
	if err != nil {
		return nil, err
	}
	if class != ClassCompiledMethodOOP {
		return nil, ErrNotCompiledMethod
	}
	headerOOP, err := om.MethodHeader(oop)
	if err != nil {
		return nil, err
	}
	if !headerOOP.IsSmallInteger() {
		return nil, ErrNotCompiledMethod
	}

	cm := &CompiledMethod{om: om, oop: oop, header: headerBits(headerOOP)}
	cm.litCount = LiteralCountFromHeader(headerOOP)
	return cm, nil
}

// TemporaryCount returns the method's declared temporary-variable count.
func (cm *CompiledMethod) TemporaryCount() int {
	return int((cm.header >> headerTempCountShift) & headerTempCountMask)
}

// Flags returns the 3-bit method-header flag field, used by the
// interpreter's quick-return detection.
func (cm *CompiledMethod) Flags() int {
	return int((cm.header >> headerFlagShift) & headerFlagMask)
}

// LargeContext reports whether activations of this method need a
// large (32-word) context rather than the small (12-word) default.
func (cm *CompiledMethod) LargeContext() bool {
	return (cm.header>>headerLargeContextShift)&headerLargeContextMask != 0
}

// LiteralCount returns the number of literal frame entries.
func (cm *CompiledMethod) LiteralCount() int {
	return cm.litCount
}

// Literal returns the i'th literal (0-based, following the header word).
func (cm *CompiledMethod) Literal(i int) (OOP, error) {
	if i < 0 || i >= cm.litCount {
		return 0, ErrIndexOutOfRange
	}
	return cm.om.MethodLiteralAt(cm.oop, i)
}

// Bytecodes returns the method's bytecode stream as raw bytes, the tail
// of the CompiledMethod object following its header and literal frame
// (spec.md §3.3).
func (cm *CompiledMethod) Bytecodes() ([]byte, error) {
	return cm.om.MethodBytecodes(cm.oop)
}

// ArgumentCount returns the method's declared argument count: the flag
// field itself when it is 0-4, the extension word's argument-count field
// when the flag is 7, and 0 for the quick-return flags 5 and 6.
func (cm *CompiledMethod) ArgumentCount() int {
	f := cm.Flags()
	if f <= 4 {
		return f
	}
	if f == 7 {
		return (int(cm.primitiveExtWord()) >> extArgCountShift) & extArgCountMask
	}
	return 0
}

// PrimitiveIndex returns the primitive number this method invokes, or 0
// if it has none.
func (cm *CompiledMethod) PrimitiveIndex() int {
	return (int(cm.primitiveExtWord()) >> extPrimitiveIndexShift) & extPrimitiveIndexMask
}

// primitiveExtWord reads the penultimate literal as the extension word
// when the header's flag field (7, "has primitive/extension") signals
// its presence: the last literal is always the method-class Association
// (spec.md §3.4), so the extension word is the one before it. Like
// headerBits, this returns the raw un-detagged 16-bit word — ToInt's
// sign-extending decode does not apply to these packed bit fields.
func (cm *CompiledMethod) primitiveExtWord() int32 {
	if cm.Flags() != 7 || cm.litCount < 2 {
		return 0
	}
	litOOP, err := cm.om.MethodLiteralAt(cm.oop, cm.litCount-2)
	if err != nil || !litOOP.IsSmallInteger() {
		return 0
	}
	return int32(uint16(litOOP))
}

// MethodClass returns the class this method was compiled for: the value
// of the Association stored as this method's last literal (spec.md §3.4,
// §4.3 "used for super sends").
func (cm *CompiledMethod) MethodClass() (OOP, error) {
	if cm.litCount == 0 {
		return NilOOP, nil
	}
	assoc, err := cm.om.MethodLiteralAt(cm.oop, cm.litCount-1)
	if err != nil {
		return 0, err
	}
	return cm.om.FetchPointer(assoc, 1)
}

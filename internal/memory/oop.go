// Package memory implements the Blue Book object memory: a tagged-pointer
// heap with an object table, typed accessors, allocation and mark-sweep
// garbage collection.
//
// The teacher VM (gvm) represents its whole address space as a flat byte
// array indexed by 32-bit registers; this package keeps that same
// "everything is indices into a flat table, never a raw pointer held
// across an allocation" discipline, just one level up: every live object
// is reached through an OOP -> object-table-slot lookup, never through a
// Go pointer a caller could hold across a GC.
package memory

import "fmt"

// OOP is a 16-bit tagged object pointer: bit 0 is the tag (1 = SmallInteger,
// 0 = object-table index shifted left by one), mirroring spec.md §3.1.
type OOP uint16

const (
	tagSmallInteger OOP = 1
)

// Reserved OOPs, fixed by the interchange format (spec.md §6.1).
const (
	NilOOP                       OOP = 2
	FalseOOP                     OOP = 4
	TrueOOP                      OOP = 6
	ProcessorOOP                 OOP = 8
	ClassSmallIntegerOOP         OOP = 12
	ClassStringOOP               OOP = 14
	ClassArrayOOP                OOP = 16
	SmalltalkOOP                 OOP = 18
	ClassFloatOOP                OOP = 20
	ClassMethodContextOOP        OOP = 22
	ClassBlockContextOOP         OOP = 24
	ClassPointOOP                OOP = 26
	ClassLargePositiveIntegerOOP OOP = 28
	ClassDisplayBitmapOOP        OOP = 30
	ClassMessageOOP              OOP = 32
	ClassCompiledMethodOOP       OOP = 34
	SymbolUnusedOop18OOP         OOP = 36
	ClassSemaphoreOOP            OOP = 38
	ClassCharacterOOP            OOP = 40
	SymbolDoesNotUnderstandOOP   OOP = 42
	SymbolCannotReturnOOP        OOP = 44
	SymbolMonitorOOP             OOP = 46
	SpecialSelectorsOOP          OOP = 48
	CharacterTableOOP            OOP = 50
	SymbolMustBeBooleanOOP       OOP = 52
	ClassSymbolOOP               OOP = 56
	ClassMethodDictionaryOOP     OOP = 76
)

// SmallInteger bounds, spec.md §3.1 / §8.
const (
	MinSmallInteger = -16384
	MaxSmallInteger = 16383
)

// IsSmallInteger reports whether oop is an immediate SmallInteger.
func (oop OOP) IsSmallInteger() bool {
	return oop&tagSmallInteger == tagSmallInteger
}

// slotIndex returns the object-table index this OOP addresses. Only
// meaningful when !IsSmallInteger().
func (oop OOP) slotIndex() int {
	return int(oop >> 1)
}

// OOPFromSlotIndex builds the non-immediate OOP that addresses table slot i.
func OOPFromSlotIndex(i int) OOP {
	return OOP(i << 1)
}

// ToInt sign-extends bits 1-15 of a SmallInteger OOP through bit 14, the
// Blue Book's "arithmetic shift" decode (spec.md §4.2, I1).
func ToInt(oop OOP) int32 {
	v := int32(oop >> 1)
	// oop>>1 is 15 bits wide (0..32767); sign-extend bit 14.
	if v&0x4000 != 0 {
		v -= 0x8000
	}
	return v
}

// FromInt encodes a signed value as a SmallInteger OOP. Fails (ok=false)
// when v is outside [MinSmallInteger, MaxSmallInteger]; callers must then
// box the value in a LargePositiveInteger/LargeNegativeInteger.
func FromInt(v int32) (OOP, bool) {
	if v < MinSmallInteger || v > MaxSmallInteger {
		return 0, false
	}
	return OOP(uint16(v<<1) | 1), true
}

func (oop OOP) String() string {
	if oop.IsSmallInteger() {
		return fmt.Sprintf("SmallInteger(%d)", ToInt(oop))
	}
	return fmt.Sprintf("OOP(%d)", oop.slotIndex())
}

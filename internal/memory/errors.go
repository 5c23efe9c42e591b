package memory

import "errors"

// Sentinel errors returned by object memory operations, compared with
// errors.Is the way the teacher VM compares its errcode values.
var (
	ErrBadOOP            = errors.New("memory: oop does not address a live slot")
	ErrNotPointerObj     = errors.New("memory: fetch_pointer/store_pointer on a non-pointer object")
	ErrNotWordObj        = errors.New("memory: fetch_word/store_word on a non-word object")
	ErrNotByteObj        = errors.New("memory: fetch_byte/store_byte on a non-byte object")
	ErrIndexOutOfRange   = errors.New("memory: index out of range for object")
	ErrOutOfMemory       = errors.New("memory: object table exhausted")
	ErrNotCompiledMethod = errors.New("memory: accessor requires a CompiledMethod")
)

package proj

import (
	"math"
)

// An address inside a loaded PROJ module. Zero is NULL.
type Ptr uint64

// Memory is the raw memory surface of a loaded module.
type Memory interface {
	// Malloc returns a zero-filled block of size bytes, or an error.
	Malloc(size int) (Ptr, error)
	Free(p Ptr) error

	// NewString copies s into a fresh NUL-terminated block that must be
	// released with Free.
	NewString(s string) (Ptr, error)

	// ReadString reads the NUL-terminated string at p. Reading NULL yields "".
	ReadString(p Ptr) (string, error)

	ReadPtr(p Ptr) (Ptr, error)
	WritePtr(p Ptr, v Ptr) error
	ReadInt32(p Ptr) (int32, error)
	ReadFloat64(p Ptr) (float64, error)
	WriteFloat64(p Ptr, v float64) error

	// PtrSize is the size of a pointer (and of size_t) inside the module.
	PtrSize() int
}

// Module is a loaded instance of the PROJ library.
//
// Arguments and results of Call are raw 64-bit words: addresses, 32-bit
// integers encoded with I32, or doubles encoded with F64. Calls returning
// void yield 0.
type Module interface {
	Memory
	Call(fn Func, args ...uint64) (uint64, error)
	Close() error
}

// LogCapturer is implemented by modules that can route the diagnostic
// messages of a PROJ context to a Go function.
type LogCapturer interface {
	SetLogFunc(ctx Ptr, fn func(level int, msg string)) error
	ClearLogFunc(ctx Ptr)
}

// BuildDater is implemented by modules that report when the library was
// compiled.
type BuildDater interface {
	CompilationDate() (string, error)
}

// Encode an integer argument
func I32(v int) uint64 {
	return uint64(uint32(int32(v)))
}

// Encode a double argument
func F64(v float64) uint64 {
	return math.Float64bits(v)
}

// Decode an integer result
func AsInt(r uint64) int {
	return int(int32(uint32(r)))
}

// Decode a double result
func AsFloat(r uint64) float64 {
	return math.Float64frombits(r)
}

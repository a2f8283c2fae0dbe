//go:build cgo && !noproj

package native

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"

	"github.com/pebbe/proj/v9"
)

func (m *Module) PtrSize() int {
	return int(unsafe.Sizeof(uintptr(0)))
}

func (m *Module) Malloc(size int) (proj.Ptr, error) {
	if m.closed {
		return 0, errClosed
	}
	if size < 1 {
		size = 1
	}
	return proj.Ptr(uintptr(C.calloc(1, C.size_t(size)))), nil
}

func (m *Module) Free(p proj.Ptr) error {
	C.free(ptr(uint64(p)))
	return nil
}

func (m *Module) NewString(s string) (proj.Ptr, error) {
	if m.closed {
		return 0, errClosed
	}
	return proj.Ptr(uintptr(unsafe.Pointer(C.CString(s)))), nil
}

func (m *Module) ReadString(p proj.Ptr) (string, error) {
	if p == 0 {
		return "", nil
	}
	return C.GoString(str(uint64(p))), nil
}

func (m *Module) ReadPtr(p proj.Ptr) (proj.Ptr, error) {
	if p == 0 {
		return 0, proj.ErrNullPointer
	}
	return proj.Ptr(*(*uintptr)(ptr(uint64(p)))), nil
}

func (m *Module) WritePtr(p proj.Ptr, v proj.Ptr) error {
	if p == 0 {
		return proj.ErrNullPointer
	}
	*(*uintptr)(ptr(uint64(p))) = uintptr(v)
	return nil
}

func (m *Module) ReadInt32(p proj.Ptr) (int32, error) {
	if p == 0 {
		return 0, proj.ErrNullPointer
	}
	return *(*int32)(ptr(uint64(p))), nil
}

func (m *Module) ReadFloat64(p proj.Ptr) (float64, error) {
	if p == 0 {
		return 0, proj.ErrNullPointer
	}
	return *(*float64)(ptr(uint64(p))), nil
}

func (m *Module) WriteFloat64(p proj.Ptr, v float64) error {
	if p == 0 {
		return proj.ErrNullPointer
	}
	*(*float64)(ptr(uint64(p))) = v
	return nil
}

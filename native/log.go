//go:build cgo && !noproj

package native

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

//export goProjLog
func goProjLog(appData unsafe.Pointer, level C.int, msg *C.char) {
	if appData == nil {
		return
	}
	fn, ok := cgo.Handle(uintptr(appData)).Value().(func(int, string))
	if !ok {
		return
	}
	fn(int(level), C.GoString(msg))
}

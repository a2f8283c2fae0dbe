//go:build cgo && !noproj

// Package native runs PROJ as a shared library linked with cgo.
package native

/*
#cgo darwin pkg-config: proj
#cgo !darwin LDFLAGS: -lproj
#include "proj_go.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/pebbe/proj/v9"
)

var errClosed = errors.New("native: module is closed")

// Module is libproj as linked into the process. Addresses are C pointers.
type Module struct {
	handles map[proj.Ptr]cgo.Handle
	closed  bool
}

var (
	_ proj.Module      = (*Module)(nil)
	_ proj.LogCapturer = (*Module)(nil)
)

// Open the linked library
func Open() (*Module, error) {
	return &Module{handles: make(map[proj.Ptr]cgo.Handle)}, nil
}

func ptr(a uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(a))
}

func addr[T any](p *T) uint64 {
	return uint64(uintptr(unsafe.Pointer(p)))
}

func cint(a uint64) C.int {
	return C.int(proj.AsInt(a))
}

func ctx(a uint64) *C.PJ_CONTEXT {
	return (*C.PJ_CONTEXT)(ptr(a))
}

func pj(a uint64) *C.PJ {
	return (*C.PJ)(ptr(a))
}

func str(a uint64) *C.char {
	return (*C.char)(ptr(a))
}

func strs(a uint64) **C.char {
	return (**C.char)(ptr(a))
}

func factory(a uint64) *C.PJ_OPERATION_FACTORY_CONTEXT {
	return (*C.PJ_OPERATION_FACTORY_CONTEXT)(ptr(a))
}

func list(a uint64) *C.PJ_OBJ_LIST {
	return (*C.PJ_OBJ_LIST)(ptr(a))
}

func double(a uint64) *C.double {
	return (*C.double)(ptr(a))
}

func (m *Module) Call(fn proj.Func, args ...uint64) (uint64, error) {
	if m.closed {
		return 0, errClosed
	}
	if err := fn.CheckArgs(args); err != nil {
		return 0, err
	}
	a := args

	switch fn {
	case proj.FnInfo:
		*(*C.PJ_INFO)(ptr(a[0])) = C.proj_info()
		return 0, nil
	case proj.FnContextCreate:
		return addr(C.proj_context_create()), nil
	case proj.FnContextDestroy:
		C.proj_context_destroy(ctx(a[0]))
		return 0, nil
	case proj.FnContextErrno:
		return proj.I32(int(C.proj_context_errno(ctx(a[0])))), nil
	case proj.FnContextErrnoString:
		return addr(C.proj_context_errno_string(ctx(a[0]), cint(a[1]))), nil
	case proj.FnContextSetSearchPaths:
		C.proj_context_set_search_paths(ctx(a[0]), cint(a[1]), strs(a[2]))
		return 0, nil
	case proj.FnCreate:
		return addr(C.proj_create(ctx(a[0]), str(a[1]))), nil
	case proj.FnCreateCRSToCRS:
		return addr(C.proj_create_crs_to_crs(ctx(a[0]), str(a[1]), str(a[2]), (*C.PJ_AREA)(ptr(a[3])))), nil
	case proj.FnDestroy:
		C.proj_destroy(pj(a[0]))
		return 0, nil
	case proj.FnErrno:
		return proj.I32(int(C.proj_errno(pj(a[0])))), nil
	case proj.FnTransArray:
		r := C.proj_trans_array(pj(a[0]), C.PJ_DIRECTION(cint(a[1])), C.size_t(proj.AsInt(a[2])), (*C.PJ_COORD)(ptr(a[3])))
		return proj.I32(int(r)), nil
	case proj.FnGetName:
		return addr(C.proj_get_name(pj(a[0]))), nil
	case proj.FnGetType:
		return proj.I32(int(C.proj_get_type(pj(a[0])))), nil
	case proj.FnGetIDAuthName:
		return addr(C.proj_get_id_auth_name(pj(a[0]), cint(a[1]))), nil
	case proj.FnGetIDCode:
		return addr(C.proj_get_id_code(pj(a[0]), cint(a[1]))), nil
	case proj.FnIsDeprecated:
		return proj.I32(int(C.proj_is_deprecated(pj(a[0])))), nil
	case proj.FnGetAreaOfUse:
		r := C.proj_get_area_of_use(ctx(a[0]), pj(a[1]), double(a[2]), double(a[3]), double(a[4]), double(a[5]), strs(a[6]))
		return proj.I32(int(r)), nil
	case proj.FnAsWKT:
		return addr(C.proj_as_wkt(ctx(a[0]), pj(a[1]), C.PJ_WKT_TYPE(cint(a[2])), strs(a[3]))), nil
	case proj.FnAsPROJString:
		return addr(C.proj_as_proj_string(ctx(a[0]), pj(a[1]), C.PJ_PROJ_STRING_TYPE(cint(a[2])), strs(a[3]))), nil
	case proj.FnAsPROJJSON:
		return addr(C.proj_as_projjson(ctx(a[0]), pj(a[1]), strs(a[2]))), nil
	case proj.FnCRSGetCoordinateSystem:
		return addr(C.proj_crs_get_coordinate_system(ctx(a[0]), pj(a[1]))), nil
	case proj.FnCSGetAxisCount:
		return proj.I32(int(C.proj_cs_get_axis_count(ctx(a[0]), pj(a[1])))), nil
	case proj.FnCSGetAxisInfo:
		r := C.proj_cs_get_axis_info(ctx(a[0]), pj(a[1]), cint(a[2]),
			strs(a[3]), strs(a[4]), strs(a[5]), double(a[6]), strs(a[7]), strs(a[8]), strs(a[9]))
		return proj.I32(int(r)), nil
	case proj.FnCreateOperationFactoryContext:
		return addr(C.proj_create_operation_factory_context(ctx(a[0]), str(a[1]))), nil
	case proj.FnOperationFactoryContextDestroy:
		C.proj_operation_factory_context_destroy(factory(a[0]))
		return 0, nil
	case proj.FnOperationFactoryContextSetSpatialCriterion:
		C.proj_operation_factory_context_set_spatial_criterion(ctx(a[0]), factory(a[1]), C.PROJ_SPATIAL_CRITERION(cint(a[2])))
		return 0, nil
	case proj.FnOperationFactoryContextSetGridAvailabilityUse:
		C.proj_operation_factory_context_set_grid_availability_use(ctx(a[0]), factory(a[1]), C.PROJ_GRID_AVAILABILITY_USE(cint(a[2])))
		return 0, nil
	case proj.FnOperationFactoryContextSetAllowUseIntermediateCRS:
		C.proj_operation_factory_context_set_allow_use_intermediate_crs(ctx(a[0]), factory(a[1]), C.PROJ_INTERMEDIATE_CRS_USE(cint(a[2])))
		return 0, nil
	case proj.FnOperationFactoryContextSetCRSExtentUse:
		C.proj_operation_factory_context_set_crs_extent_use(ctx(a[0]), factory(a[1]), C.PROJ_CRS_EXTENT_USE(cint(a[2])))
		return 0, nil
	case proj.FnOperationFactoryContextSetAllowBallparkTransformations:
		C.proj_operation_factory_context_set_allow_ballpark_transformations(ctx(a[0]), factory(a[1]), cint(a[2]))
		return 0, nil
	case proj.FnOperationFactoryContextSetDiscardSuperseded:
		C.proj_operation_factory_context_set_discard_superseded(ctx(a[0]), factory(a[1]), cint(a[2]))
		return 0, nil
	case proj.FnOperationFactoryContextSetDesiredAccuracy:
		C.proj_operation_factory_context_set_desired_accuracy(ctx(a[0]), factory(a[1]), C.double(proj.AsFloat(a[2])))
		return 0, nil
	case proj.FnCreateOperations:
		return addr(C.proj_create_operations(ctx(a[0]), pj(a[1]), pj(a[2]), factory(a[3]))), nil
	case proj.FnListGetCount:
		return proj.I32(int(C.proj_list_get_count(list(a[0])))), nil
	case proj.FnListGet:
		return addr(C.proj_list_get(ctx(a[0]), list(a[1]), cint(a[2]))), nil
	case proj.FnListDestroy:
		C.proj_list_destroy(list(a[0]))
		return 0, nil
	case proj.FnCoordOperationGetAccuracy:
		return proj.F64(float64(C.proj_coordoperation_get_accuracy(ctx(a[0]), pj(a[1])))), nil
	case proj.FnCoordOperationHasBallparkTransformation:
		return proj.I32(int(C.proj_coordoperation_has_ballpark_transformation(ctx(a[0]), pj(a[1])))), nil
	}
	return 0, fmt.Errorf("native: %s not supported", fn)
}

func (m *Module) SetLogFunc(c proj.Ptr, fn func(level int, msg string)) error {
	if m.closed {
		return errClosed
	}
	m.ClearLogFunc(c)
	h := cgo.NewHandle(fn)
	m.handles[c] = h
	C.go_set_log(ctx(uint64(c)), C.uintptr_t(h))
	return nil
}

// ClearLogFunc detaches the Go function from the context and drops it.
// The context must not have been destroyed yet.
func (m *Module) ClearLogFunc(c proj.Ptr) {
	h, ok := m.handles[c]
	if !ok {
		return
	}
	C.go_clear_log(ctx(uint64(c)))
	h.Delete()
	delete(m.handles, c)
}

// Close releases the log handles. The library itself stays linked.
func (m *Module) Close() error {
	for c, h := range m.handles {
		h.Delete()
		delete(m.handles, c)
	}
	m.closed = true
	return nil
}

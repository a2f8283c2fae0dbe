package proj

import "fmt"

// Func names an entry point of the PROJ C API.
type Func int

const (
	FnInfo Func = iota // proj_info, written through a PJ_INFO sized out-block
	FnContextCreate
	FnContextDestroy
	FnContextErrno
	FnContextErrnoString
	FnContextSetSearchPaths
	FnCreate
	FnCreateCRSToCRS
	FnDestroy
	FnErrno
	FnTransArray
	FnGetName
	FnGetType
	FnGetIDAuthName
	FnGetIDCode
	FnIsDeprecated
	FnGetAreaOfUse
	FnAsWKT
	FnAsPROJString
	FnAsPROJJSON
	FnCRSGetCoordinateSystem
	FnCSGetAxisCount
	FnCSGetAxisInfo
	FnCreateOperationFactoryContext
	FnOperationFactoryContextDestroy
	FnOperationFactoryContextSetSpatialCriterion
	FnOperationFactoryContextSetGridAvailabilityUse
	FnOperationFactoryContextSetAllowUseIntermediateCRS
	FnOperationFactoryContextSetCRSExtentUse
	FnOperationFactoryContextSetAllowBallparkTransformations
	FnOperationFactoryContextSetDiscardSuperseded
	FnOperationFactoryContextSetDesiredAccuracy
	FnCreateOperations
	FnListGetCount
	FnListGet
	FnListDestroy
	FnCoordOperationGetAccuracy
	FnCoordOperationHasBallparkTransformation

	NumFuncs
)

var funcTable = [NumFuncs]struct {
	symbol string
	arity  int
}{
	FnInfo:                           {"proj_info", 1},
	FnContextCreate:                  {"proj_context_create", 0},
	FnContextDestroy:                 {"proj_context_destroy", 1},
	FnContextErrno:                   {"proj_context_errno", 1},
	FnContextErrnoString:             {"proj_context_errno_string", 2},
	FnContextSetSearchPaths:          {"proj_context_set_search_paths", 3},
	FnCreate:                         {"proj_create", 2},
	FnCreateCRSToCRS:                 {"proj_create_crs_to_crs", 4},
	FnDestroy:                        {"proj_destroy", 1},
	FnErrno:                          {"proj_errno", 1},
	FnTransArray:                     {"proj_trans_array", 4},
	FnGetName:                        {"proj_get_name", 1},
	FnGetType:                        {"proj_get_type", 1},
	FnGetIDAuthName:                  {"proj_get_id_auth_name", 2},
	FnGetIDCode:                      {"proj_get_id_code", 2},
	FnIsDeprecated:                   {"proj_is_deprecated", 1},
	FnGetAreaOfUse:                   {"proj_get_area_of_use", 7},
	FnAsWKT:                          {"proj_as_wkt", 4},
	FnAsPROJString:                   {"proj_as_proj_string", 4},
	FnAsPROJJSON:                     {"proj_as_projjson", 3},
	FnCRSGetCoordinateSystem:         {"proj_crs_get_coordinate_system", 2},
	FnCSGetAxisCount:                 {"proj_cs_get_axis_count", 2},
	FnCSGetAxisInfo:                  {"proj_cs_get_axis_info", 10},
	FnCreateOperationFactoryContext:  {"proj_create_operation_factory_context", 2},
	FnOperationFactoryContextDestroy: {"proj_operation_factory_context_destroy", 1},
	FnOperationFactoryContextSetSpatialCriterion:             {"proj_operation_factory_context_set_spatial_criterion", 3},
	FnOperationFactoryContextSetGridAvailabilityUse:          {"proj_operation_factory_context_set_grid_availability_use", 3},
	FnOperationFactoryContextSetAllowUseIntermediateCRS:      {"proj_operation_factory_context_set_allow_use_intermediate_crs", 3},
	FnOperationFactoryContextSetCRSExtentUse:                 {"proj_operation_factory_context_set_crs_extent_use", 3},
	FnOperationFactoryContextSetAllowBallparkTransformations: {"proj_operation_factory_context_set_allow_ballpark_transformations", 3},
	FnOperationFactoryContextSetDiscardSuperseded:            {"proj_operation_factory_context_set_discard_superseded", 3},
	FnOperationFactoryContextSetDesiredAccuracy:              {"proj_operation_factory_context_set_desired_accuracy", 3},
	FnCreateOperations:          {"proj_create_operations", 4},
	FnListGetCount:              {"proj_list_get_count", 1},
	FnListGet:                   {"proj_list_get", 3},
	FnListDestroy:               {"proj_list_destroy", 1},
	FnCoordOperationGetAccuracy: {"proj_coordoperation_get_accuracy", 2},
	FnCoordOperationHasBallparkTransformation: {"proj_coordoperation_has_ballpark_transformation", 2},
}

// Symbol is the exported C name of the entry point, e.g. “proj_create”.
func (f Func) Symbol() string {
	if f < 0 || f >= NumFuncs {
		return fmt.Sprintf("Func(%d)", int(f))
	}
	return funcTable[f].symbol
}

// Arity is the number of arguments the entry point takes.
func (f Func) Arity() int {
	if f < 0 || f >= NumFuncs {
		return -1
	}
	return funcTable[f].arity
}

func (f Func) String() string {
	return f.Symbol()
}

// CheckArgs verifies that args matches the arity of f.
func (f Func) CheckArgs(args []uint64) error {
	if f < 0 || f >= NumFuncs {
		return fmt.Errorf("proj: unknown entry point %d", int(f))
	}
	if n := f.Arity(); len(args) != n {
		return fmt.Errorf("proj: %s takes %d arguments, got %d", f.Symbol(), n, len(args))
	}
	return nil
}

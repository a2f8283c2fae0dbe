package proj

import (
	"errors"
	"fmt"
)

var (
	ErrContextClosed      = errors.New("Context is closed")
	ErrClosed             = errors.New("Projection is closed")
	ErrNullPointer        = errors.New("null pointer")
	ErrNoCoordinateSystem = errors.New("object has no coordinate system")

	errDataSizeMismatch = errors.New("Data size mismatch")
	errMissingData      = errors.New("Missing data")
)

// Error is a failure reported by the PROJ library.
type Error struct {
	Op   string // entry point or operation, e.g. “proj_create”
	Code int    // PROJ error number, 0 if unknown
	Msg  string // diagnostic text from the library
	Null bool   // the call returned NULL
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		if e.Null {
			msg = "returned NULL"
		} else {
			msg = fmt.Sprintf("error %d", e.Code)
		}
	} else if e.Null {
		msg = "returned NULL: " + msg
	}
	return "proj: " + e.Op + " " + msg
}

// Is reports NULL results as ErrNullPointer.
func (e *Error) Is(target error) bool {
	return target == ErrNullPointer && e.Null
}

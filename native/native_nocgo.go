//go:build !cgo || noproj

// Package native runs PROJ as a shared library linked with cgo.
package native

import (
	"errors"

	"github.com/pebbe/proj/v9"
)

// Module is unavailable without cgo.
type Module struct {
	proj.Module
}

// Open always fails: this binary was built without cgo or with the noproj tag.
func Open() (*Module, error) {
	return nil, errors.New("native: libproj not linked, use the wasm backend")
}

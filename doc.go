/*
Package proj provides an interface to the Cartographic Projections Library PROJ [cartography].

See: https://proj.org/

The library is reached through a Module: either libproj linked with cgo
(package native) or a WebAssembly build of PROJ run inside the process
(package wasm). Both expose the same entry points, and everything in this
package works the same on either.

	m, err := native.Open()
	...
	ctx, err := proj.NewContext(m)
	...
	defer ctx.Close()

	pj, err := ctx.CreateCRSToCRS("EPSG:4326", "EPSG:32633")
	...
	c, err := pj.Fwd(proj.Coord{U: 52, V: 13.5})

Addresses handed out by a Module are not garbage collected. Objects of a
Context are destroyed when it is closed; scratch memory is released with a
Keeper.

This package supports PROJ version 9.8 and above.
*/
package proj

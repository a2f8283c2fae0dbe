package proj

import (
	"errors"
	"fmt"
)

// One axis of a coordinate system
type AxisInfo struct {
	Name         string  // e.g. “Geodetic latitude”
	Abbrev       string  // e.g. “Lat”
	Direction    string  // e.g. “north”
	ConvFactor   float64 // Factor to convert the unit to its SI unit
	UnitName     string  // e.g. “degree”
	UnitAuthName string  // e.g. “EPSG”
	UnitCode     string  // e.g. “9122”
}

// The coordinate system of a CRS
func (p *PJ) CoordinateSystem() (*PJ, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	ctx := p.context
	mark := ctx.sink.logged
	r, err := ctx.m.Call(FnCRSGetCoordinateSystem, uint64(ctx.ptr), uint64(p.ptr))
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoCoordinateSystem, ctx.lastError(FnCRSGetCoordinateSystem.Symbol(), true, mark))
	}
	return ctx.adopt(Ptr(r)), nil
}

// Axes of a CRS, or of a coordinate system
func (p *PJ) Axes() ([]AxisInfo, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	typ, err := p.Type()
	if err != nil {
		return nil, err
	}
	if typ.IsCRS() {
		cs, err := p.CoordinateSystem()
		if err != nil {
			return nil, err
		}
		defer cs.Close()
		return axes(p.context, cs.ptr)
	}
	return axes(p.context, p.ptr)
}

// Axes of the CRS given by definition. All intermediate objects are
// released before returning.
func (ctx *Context) Axes(definition string) ([]AxisInfo, error) {
	if !ctx.opened {
		return nil, ErrContextClosed
	}

	k := ctx.keeper()
	defer k.Release()

	def, err := k.String(definition)
	if err != nil {
		return nil, err
	}
	mark := ctx.sink.logged
	crs, err := k.Call(FnCreate, uint64(ctx.ptr), uint64(def))
	if err != nil {
		if errors.Is(err, ErrNullPointer) {
			return nil, ctx.lastError(FnCreate.Symbol(), true, mark)
		}
		return nil, err
	}
	cs, err := k.Call(FnCRSGetCoordinateSystem, uint64(ctx.ptr), uint64(crs))
	if err != nil {
		if errors.Is(err, ErrNullPointer) {
			return nil, fmt.Errorf("%w: %s", ErrNoCoordinateSystem, definition)
		}
		return nil, err
	}
	return axes(ctx, cs)
}

func axes(ctx *Context, cs Ptr) ([]AxisInfo, error) {
	m := ctx.m

	r, err := m.Call(FnCSGetAxisCount, uint64(ctx.ptr), uint64(cs))
	if err != nil {
		return nil, err
	}
	count := AsInt(r)
	if count < 0 {
		return nil, ctx.lastError(FnCSGetAxisCount.Symbol(), false, ctx.sink.logged)
	}

	k := ctx.keeper()
	defer k.Release()

	ptrSize := m.PtrSize()
	var name, abbrev, direction, factor, unitName, unitAuth, unitCode Ptr
	for _, out := range []*Ptr{&name, &abbrev, &direction, &unitName, &unitAuth, &unitCode} {
		if *out, err = k.Malloc(ptrSize); err != nil {
			return nil, err
		}
	}
	if factor, err = k.Malloc(8); err != nil {
		return nil, err
	}

	res := make([]AxisInfo, 0, count)
	for i := 0; i < count; i++ {
		r, err := m.Call(FnCSGetAxisInfo, uint64(ctx.ptr), uint64(cs), I32(i),
			uint64(name), uint64(abbrev), uint64(direction), uint64(factor),
			uint64(unitName), uint64(unitAuth), uint64(unitCode))
		if err != nil {
			return nil, err
		}
		if AsInt(r) != 1 {
			return nil, &Error{Op: FnCSGetAxisInfo.Symbol(), Msg: fmt.Sprintf("axis %d", i)}
		}

		var axis AxisInfo
		for _, f := range []struct {
			out Ptr
			dst *string
		}{
			{name, &axis.Name},
			{abbrev, &axis.Abbrev},
			{direction, &axis.Direction},
			{unitName, &axis.UnitName},
			{unitAuth, &axis.UnitAuthName},
			{unitCode, &axis.UnitCode},
		} {
			s, err := m.ReadPtr(f.out)
			if err != nil {
				return nil, err
			}
			if *f.dst, err = m.ReadString(s); err != nil {
				return nil, err
			}
		}
		if axis.ConvFactor, err = m.ReadFloat64(factor); err != nil {
			return nil, err
		}
		res = append(res, axis)
	}
	return res, nil
}

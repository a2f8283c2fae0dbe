package proj

import (
	"math"
)

// A PROJ object: a CRS, a coordinate system, or a coordinate operation
type PJ struct {
	ptr     Ptr
	context *Context
	index   uint64
	opened  bool
}

// A coordinate, in the axis order and units of the object that consumes it.
// T is the epoch in decimal years; math.Inf(1) means none.
type Coord struct {
	U, V, W, T float64
}

// A coordinate without epoch
func Point(u, v, w float64) Coord {
	return Coord{U: u, V: v, W: w, T: math.Inf(1)}
}

// The direction of a transformation
type Direction int

const (
	Fwd   = Direction(1)  // Forward transformation
	Ident = Direction(0)  // Do nothing
	Inv   = Direction(-1) // Inverse transformation
)

// Size of a PJ_COORD in module memory
const coordSize = 4 * 8

// Close the object
func (p *PJ) Close() {
	if p.opened {
		if p.context.opened {
			p.context.destroy(p.ptr)
			delete(p.context.projections, p.index)
		}
		p.context = nil
		p.opened = false
	}
}

// The address of the PJ
func (p *PJ) Ptr() Ptr {
	return p.ptr
}

// The context the object was created in
func (p *PJ) Context() *Context {
	return p.context
}

func (p *PJ) check() error {
	if !p.opened {
		return ErrClosed
	}
	if !p.context.opened {
		return ErrContextClosed
	}
	return nil
}

func (p *PJ) Fwd(coord Coord) (Coord, error) {
	return p.Trans(Fwd, coord)
}

func (p *PJ) Inv(coord Coord) (Coord, error) {
	return p.Trans(Inv, coord)
}

// Transform a single coordinate
func (p *PJ) Trans(direction Direction, coord Coord) (Coord, error) {
	coords := []Coord{coord}
	if err := p.TransArray(direction, coords); err != nil {
		return Coord{}, err
	}
	return coords[0], nil
}

// Transform coords in place. A coordinate with no T component should use
// math.Inf(1) as time, as PROJ expects HUGE_VAL for “no epoch”.
func (p *PJ) TransArray(direction Direction, coords []Coord) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(coords) == 0 {
		return nil
	}
	m := p.context.m

	k := p.context.keeper()
	defer k.Release()

	buf, err := k.Malloc(len(coords) * coordSize)
	if err != nil {
		return err
	}
	for i, c := range coords {
		base := buf + Ptr(i*coordSize)
		for j, v := range [4]float64{c.U, c.V, c.W, c.T} {
			if err := m.WriteFloat64(base+Ptr(j*8), v); err != nil {
				return err
			}
		}
	}

	r, err := m.Call(FnTransArray, uint64(p.ptr), I32(int(direction)), I32(len(coords)), uint64(buf))
	if err != nil {
		return err
	}
	if code := AsInt(r); code != 0 {
		return &Error{
			Op:   FnTransArray.Symbol(),
			Code: code,
			Msg:  p.context.ErrnoString(code),
		}
	}

	for i := range coords {
		base := buf + Ptr(i*coordSize)
		var v [4]float64
		for j := range v {
			if v[j], err = m.ReadFloat64(base + Ptr(j*8)); err != nil {
				return err
			}
		}
		coords[i] = Coord{U: v[0], V: v[1], W: v[2], T: v[3]}
	}
	return nil
}

/*
Transform a series of coordinates, where the individual coordinate dimension may be represented by a slice that is either

1. fully populated

2. nil and/or a length of zero, which will be treated as a fully populated slice of zeroes

3. of length one, i.e. a constant, which will be treated as a fully populated slice of that constant value

The output slices are always fully populated. A nil t1 is treated as “no
epoch” rather than as zero.
*/
func (p *PJ) TransSlice(direction Direction, u1, v1, w1, t1 []float64) (u2, v2, w2, t2 []float64, err error) {
	if err := p.check(); err != nil {
		return nil, nil, nil, nil, err
	}
	if u1 == nil || v1 == nil {
		return nil, nil, nil, nil, errMissingData
	}

	r := []int{len(u1), len(v1), len(w1), len(t1)}
	var n int
	for _, i := range r {
		if i > n {
			n = i
		}
	}
	for _, i := range r {
		if i > 1 && i < n {
			return nil, nil, nil, nil, errDataSizeMismatch
		}
	}

	at := func(s []float64, i int, zero float64) float64 {
		switch len(s) {
		case 0:
			return zero
		case 1:
			return s[0]
		}
		return s[i]
	}

	coords := make([]Coord, n)
	for i := range coords {
		coords[i] = Coord{
			U: at(u1, i, 0),
			V: at(v1, i, 0),
			W: at(w1, i, 0),
			T: at(t1, i, math.Inf(1)),
		}
	}
	if err := p.TransArray(direction, coords); err != nil {
		return nil, nil, nil, nil, err
	}

	u2 = make([]float64, n)
	v2 = make([]float64, n)
	w2 = make([]float64, n)
	t2 = make([]float64, n)
	for i, c := range coords {
		u2[i], v2[i], w2[i], t2[i] = c.U, c.V, c.W, c.T
	}
	return
}

// Convert degrees to radians
func DegToRad(deg float64) float64 {
	return deg / 180 * math.Pi
}

// Convert radians to degrees
func RadToDeg(rad float64) float64 {
	return rad / math.Pi * 180
}

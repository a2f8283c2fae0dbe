package proj

// How the area of use of an operation is tested against the area of
// interest
type SpatialCriterion int

const (
	StrictContainment SpatialCriterion = iota
	PartialIntersection
)

// How grid availability affects the candidate operations
type GridAvailability int

const (
	GridUsedForSorting GridAvailability = iota
	GridDiscardIfMissing
	GridIgnored
	GridKnownAvailable
)

// Whether operations may go through an intermediate CRS
type IntermediateCRS int

const (
	IntermediateIfNoDirect IntermediateCRS = iota
	IntermediateAlways
	IntermediateNever
)

// How the extents of the source and target CRS make up the area of interest
type CRSExtentUse int

const (
	ExtentSmallest CRSExtentUse = iota
	ExtentNone
	ExtentBoth
	ExtentIntersection
)

// Options of Operations. The zero value gives the defaults of projinfo.
type OperationOptions struct {
	Authority        string // Empty for any authority
	SpatialCriterion SpatialCriterion
	GridAvailability GridAvailability
	IntermediateCRS  IntermediateCRS
	CRSExtentUse     CRSExtentUse
	HideBallpark     bool
	ShowSuperseded   bool
	DesiredAccuracy  *float64 // Metres, nil for no limit
}

func (c IntermediateCRS) cValue() int {
	switch c {
	case IntermediateAlways:
		return 0
	case IntermediateNever:
		return 2
	}
	return 1
}

func (e CRSExtentUse) cValue() int {
	switch e {
	case ExtentNone:
		return 0
	case ExtentBoth:
		return 1
	case ExtentIntersection:
		return 2
	}
	return 3
}

// Candidate operations between two CRS, most relevant first. The caller
// owns the returned objects.
func (ctx *Context) Operations(source, target *PJ, opts OperationOptions) ([]*PJ, error) {
	if !ctx.opened {
		return nil, ErrContextClosed
	}
	if err := source.check(); err != nil {
		return nil, err
	}
	if err := target.check(); err != nil {
		return nil, err
	}
	m := ctx.m
	c := uint64(ctx.ptr)

	k := ctx.keeper()
	defer k.Release()

	var auth Ptr
	if opts.Authority != "" {
		var err error
		if auth, err = k.String(opts.Authority); err != nil {
			return nil, err
		}
	}

	mark := ctx.sink.logged
	r, err := m.Call(FnCreateOperationFactoryContext, c, uint64(auth))
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, ctx.lastError(FnCreateOperationFactoryContext.Symbol(), true, mark)
	}
	factory := r
	defer m.Call(FnOperationFactoryContextDestroy, factory)

	settings := []struct {
		fn  Func
		arg uint64
	}{
		{FnOperationFactoryContextSetSpatialCriterion, I32(int(opts.SpatialCriterion))},
		{FnOperationFactoryContextSetGridAvailabilityUse, I32(int(opts.GridAvailability))},
		{FnOperationFactoryContextSetAllowUseIntermediateCRS, I32(opts.IntermediateCRS.cValue())},
		{FnOperationFactoryContextSetCRSExtentUse, I32(opts.CRSExtentUse.cValue())},
		{FnOperationFactoryContextSetAllowBallparkTransformations, I32(boolInt(!opts.HideBallpark))},
		{FnOperationFactoryContextSetDiscardSuperseded, I32(boolInt(!opts.ShowSuperseded))},
	}
	if opts.DesiredAccuracy != nil {
		settings = append(settings, struct {
			fn  Func
			arg uint64
		}{FnOperationFactoryContextSetDesiredAccuracy, F64(*opts.DesiredAccuracy)})
	}
	for _, s := range settings {
		if _, err := m.Call(s.fn, c, factory, s.arg); err != nil {
			return nil, err
		}
	}

	mark = ctx.sink.logged
	list, err := m.Call(FnCreateOperations, c, uint64(source.ptr), uint64(target.ptr), factory)
	if err != nil {
		return nil, err
	}
	if list == 0 {
		return nil, ctx.lastError(FnCreateOperations.Symbol(), true, mark)
	}
	defer m.Call(FnListDestroy, list)

	r, err = m.Call(FnListGetCount, list)
	if err != nil {
		return nil, err
	}
	n := AsInt(r)
	ops := make([]*PJ, 0, n)
	for i := 0; i < n; i++ {
		r, err := m.Call(FnListGet, c, list, I32(i))
		if err == nil && r == 0 {
			err = ctx.lastError(FnListGet.Symbol(), true, ctx.sink.logged)
		}
		if err != nil {
			CloseAll(ops)
			return nil, err
		}
		ops = append(ops, ctx.adopt(Ptr(r)))
	}
	return ops, nil
}

// Accuracy of a coordinate operation in metres, -1 if unknown
func (p *PJ) Accuracy() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	r, err := p.context.m.Call(FnCoordOperationGetAccuracy, uint64(p.context.ptr), uint64(p.ptr))
	if err != nil {
		return 0, err
	}
	return AsFloat(r), nil
}

// Whether a coordinate operation contains a ballpark transformation
func (p *PJ) HasBallparkTransformation() (bool, error) {
	if err := p.check(); err != nil {
		return false, err
	}
	r, err := p.context.m.Call(FnCoordOperationHasBallparkTransformation, uint64(p.context.ptr), uint64(p.ptr))
	if err != nil {
		return false, err
	}
	return AsInt(r) != 0, nil
}

// Close every object of list
func CloseAll(list []*PJ) {
	for _, p := range list {
		if p != nil {
			p.Close()
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

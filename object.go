package proj

import "strconv"

// The kind of a PROJ object (PJ_TYPE)
type ObjectType int

const (
	TypeUnknown ObjectType = iota
	TypeEllipsoid
	TypePrimeMeridian
	TypeGeodeticReferenceFrame
	TypeDynamicGeodeticReferenceFrame
	TypeVerticalReferenceFrame
	TypeDynamicVerticalReferenceFrame
	TypeDatumEnsemble
	TypeCRS
	TypeGeodeticCRS
	TypeGeocentricCRS
	TypeGeographicCRS
	TypeGeographic2DCRS
	TypeGeographic3DCRS
	TypeVerticalCRS
	TypeProjectedCRS
	TypeCompoundCRS
	TypeTemporalCRS
	TypeEngineeringCRS
	TypeBoundCRS
	TypeOtherCRS
	TypeConversion
	TypeTransformation
	TypeConcatenatedOperation
	TypeOtherCoordinateOperation
	TypeTemporalDatum
	TypeEngineeringDatum
	TypeParametricDatum
	TypeDerivedProjectedCRS
	TypeCoordinateMetadata
)

func (t ObjectType) IsCRS() bool {
	switch t {
	case TypeCRS, TypeGeodeticCRS, TypeGeocentricCRS, TypeGeographicCRS,
		TypeGeographic2DCRS, TypeGeographic3DCRS, TypeVerticalCRS,
		TypeProjectedCRS, TypeCompoundCRS, TypeTemporalCRS,
		TypeEngineeringCRS, TypeBoundCRS, TypeOtherCRS, TypeDerivedProjectedCRS:
		return true
	}
	return false
}

func (t ObjectType) IsOperation() bool {
	switch t {
	case TypeConversion, TypeTransformation, TypeConcatenatedOperation,
		TypeOtherCoordinateOperation:
		return true
	}
	return false
}

// WKT flavours accepted by AsWKT (PJ_WKT_TYPE)
type WKTType int

const (
	WKT2_2015 WKTType = iota
	WKT2_2015Simplified
	WKT2_2019
	WKT2_2019Simplified
	WKT1GDAL
	WKT1ESRI
)

// Options of AsWKT. The zero value gives the library defaults.
type WKTOptions struct {
	SingleLine       bool
	IndentationWidth int // 0 keeps the default of 4
	Lax              bool
	// Allow a CRS with ellipsoidal height to be exported as a compound
	// CRS in WKT1:GDAL
	AllowEllipsoidalHeightAsVerticalCRS bool
}

func (o WKTOptions) list() []string {
	var opts []string
	if o.SingleLine {
		opts = append(opts, "MULTILINE=NO")
	}
	if o.IndentationWidth > 0 {
		opts = append(opts, "INDENTATION_WIDTH="+strconv.Itoa(o.IndentationWidth))
	}
	if o.Lax {
		opts = append(opts, "STRICT=NO")
	}
	if o.AllowEllipsoidalHeightAsVerticalCRS {
		opts = append(opts, "ALLOW_ELLIPSOIDAL_HEIGHT_AS_VERTICAL_CRS=YES")
	}
	return opts
}

// PROJ string flavours accepted by AsPROJString (PJ_PROJ_STRING_TYPE)
type PROJStringType int

const (
	PROJ5 PROJStringType = iota
	PROJ4
)

// Geographic extent of an object, in degrees
type Area struct {
	West, South, East, North float64
	Name                     string
}

// Name of the object
func (p *PJ) Name() (string, error) {
	return p.stringResult(FnGetName, uint64(p.ptr))
}

// Type of the object
func (p *PJ) Type() (ObjectType, error) {
	if err := p.check(); err != nil {
		return TypeUnknown, err
	}
	r, err := p.context.m.Call(FnGetType, uint64(p.ptr))
	if err != nil {
		return TypeUnknown, err
	}
	return ObjectType(AsInt(r)), nil
}

// First identifier of the object, e.g. “EPSG” and “4326”. Empty strings if
// the object has no identifier.
func (p *PJ) ID() (auth, code string, err error) {
	if auth, err = p.stringResult(FnGetIDAuthName, uint64(p.ptr), I32(0)); err != nil {
		return "", "", err
	}
	if code, err = p.stringResult(FnGetIDCode, uint64(p.ptr), I32(0)); err != nil {
		return "", "", err
	}
	return auth, code, nil
}

func (p *PJ) IsDeprecated() (bool, error) {
	if err := p.check(); err != nil {
		return false, err
	}
	r, err := p.context.m.Call(FnIsDeprecated, uint64(p.ptr))
	if err != nil {
		return false, err
	}
	return AsInt(r) != 0, nil
}

// Area of use of the object. ok is false if it has none.
func (p *PJ) AreaOfUse() (area Area, ok bool, err error) {
	if err := p.check(); err != nil {
		return Area{}, false, err
	}
	m := p.context.m

	k := p.context.keeper()
	defer k.Release()

	var out [4]Ptr
	for i := range out {
		if out[i], err = k.Malloc(8); err != nil {
			return Area{}, false, err
		}
	}
	name, err := k.Malloc(m.PtrSize())
	if err != nil {
		return Area{}, false, err
	}

	r, err := m.Call(FnGetAreaOfUse, uint64(p.context.ptr), uint64(p.ptr),
		uint64(out[0]), uint64(out[1]), uint64(out[2]), uint64(out[3]), uint64(name))
	if err != nil {
		return Area{}, false, err
	}
	if AsInt(r) == 0 {
		return Area{}, false, nil
	}

	var v [4]float64
	for i := range v {
		if v[i], err = m.ReadFloat64(out[i]); err != nil {
			return Area{}, false, err
		}
	}
	s, err := m.ReadPtr(name)
	if err != nil {
		return Area{}, false, err
	}
	area = Area{West: v[0], South: v[1], East: v[2], North: v[3]}
	if area.Name, err = m.ReadString(s); err != nil {
		return Area{}, false, err
	}
	return area, true, nil
}

// Export the object as WKT
func (p *PJ) AsWKT(typ WKTType, opts WKTOptions) (string, error) {
	return p.export(FnAsWKT, I32(int(typ)), opts.list())
}

// Export the object as a PROJ string
func (p *PJ) AsPROJString(typ PROJStringType, multiline bool) (string, error) {
	var opts []string
	if multiline {
		opts = append(opts, "MULTILINE=YES")
	}
	return p.export(FnAsPROJString, I32(int(typ)), opts)
}

// Export the object as PROJJSON
func (p *PJ) AsPROJJSON(multiline bool) (string, error) {
	opts := []string{"MULTILINE=NO"}
	if multiline {
		opts = nil
	}
	return p.export(FnAsPROJJSON, 0, opts)
}

func (p *PJ) export(fn Func, typ uint64, opts []string) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	m := p.context.m

	k := p.context.keeper()
	defer k.Release()

	arr, err := k.StringArray(opts)
	if err != nil {
		return "", err
	}

	mark := p.context.sink.logged
	var r uint64
	if fn == FnAsPROJJSON {
		r, err = m.Call(fn, uint64(p.context.ptr), uint64(p.ptr), uint64(arr))
	} else {
		r, err = m.Call(fn, uint64(p.context.ptr), uint64(p.ptr), typ, uint64(arr))
	}
	if err != nil {
		return "", err
	}
	if r == 0 {
		return "", p.context.lastError(fn.Symbol(), true, mark)
	}
	// The string belongs to the object
	return m.ReadString(Ptr(r))
}

func (p *PJ) stringResult(fn Func, args ...uint64) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	r, err := p.context.m.Call(fn, args...)
	if err != nil {
		return "", err
	}
	return p.context.m.ReadString(Ptr(r))
}

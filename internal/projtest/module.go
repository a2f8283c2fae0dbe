// Package projtest provides an in-memory stand-in for a loaded PROJ
// library. It knows a handful of CRS and operations, keeps a 32-bit heap
// that detects invalid frees, and logs every release so tests can check
// the order in which resources are given back.
package projtest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pebbe/proj/v9"
)

// Error numbers of the library
const (
	ErrInvalidSyntax   = 1025
	ErrInvalidArgument = 1027
	ErrInvalidCoord    = 2049
	ErrOther           = 4096
)

var errnoStrings = map[int]string{
	ErrInvalidSyntax:   "Invalid PROJ string syntax",
	ErrInvalidArgument: "Invalid value for an argument",
	ErrInvalidCoord:    "Invalid coordinate",
	ErrOther:           "Unknown error (code 4096)",
}

type kind int

const (
	kindCRS kind = iota + 1
	kindCS
	kindOperation
	kindFactory
	kindList
)

type object struct {
	kind kind
	ctx  proj.Ptr
	crs  *CRS
	op   *Operation
	list []*Operation
	opts FactorySettings
}

type context struct {
	errno int
	log   func(level int, msg string)
}

// The settings of an operation factory, as last seen by proj_create_operations
type FactorySettings struct {
	Authority         string
	SpatialCriterion  int
	GridAvailability  int
	IntermediateCRS   int
	CRSExtentUse      int
	AllowBallpark     int
	DiscardSuperseded int
	DesiredAccuracy   float64
}

// Module is a fake PROJ library. The zero value is not usable; call New.
type Module struct {
	Major, Minor, Patch int
	BuildDate           string // empty: CompilationDate is unsupported
	SearchPath          string

	CRS        map[string]*CRS
	Operations []*Operation

	// Releases in the order they happened: “destroy N”, “free N”,
	// “list_destroy N”, “factory_destroy N”, “clear_log N”,
	// “context_destroy N”
	Events []string
	// Every entry point called, in order
	Calls []proj.Func
	// Search paths set on any context
	SearchPaths []string
	// Settings of the last operation factory used
	LastFactory FactorySettings

	// Number of successful Malloc calls still allowed, -1 for no limit
	MallocBudget int

	heap     []byte
	allocs   map[proj.Ptr]int
	statics  map[string]proj.Ptr
	objects  map[proj.Ptr]*object
	contexts map[proj.Ptr]*context
	closed   bool
}

// A fake of PROJ 9.8.0 with the default CRS and operations
func New() *Module {
	m := &Module{
		Major:        9,
		Minor:        8,
		Patch:        0,
		BuildDate:    "Jan 15 2026 10:00:00",
		SearchPath:   "/usr/share/proj",
		CRS:          make(map[string]*CRS),
		Operations:   DefaultOperations(),
		MallocBudget: -1,
		heap:         make([]byte, 8),
		allocs:       make(map[proj.Ptr]int),
		statics:      make(map[string]proj.Ptr),
		objects:      make(map[proj.Ptr]*object),
		contexts:     make(map[proj.Ptr]*context),
	}
	for _, c := range DefaultCRS() {
		m.CRS[c.Key()] = c
	}
	return m
}

var (
	_ proj.Module      = (*Module)(nil)
	_ proj.LogCapturer = (*Module)(nil)
	_ proj.BuildDater  = (*Module)(nil)
)

//
// Memory
//

func (m *Module) PtrSize() int {
	return 4
}

func (m *Module) grow(size int) proj.Ptr {
	if size < 1 {
		size = 1
	}
	p := len(m.heap)
	n := (size + 7) &^ 7
	m.heap = append(m.heap, make([]byte, n)...)
	return proj.Ptr(p)
}

func (m *Module) Malloc(size int) (proj.Ptr, error) {
	if m.MallocBudget == 0 {
		return 0, nil
	}
	if m.MallocBudget > 0 {
		m.MallocBudget--
	}
	p := m.grow(size)
	m.allocs[p] = size
	return p, nil
}

func (m *Module) Free(p proj.Ptr) error {
	if p == 0 {
		return nil
	}
	if _, ok := m.allocs[p]; !ok {
		return fmt.Errorf("projtest: free of unallocated block %d", p)
	}
	delete(m.allocs, p)
	m.Events = append(m.Events, fmt.Sprintf("free %d", p))
	return nil
}

func (m *Module) NewString(s string) (proj.Ptr, error) {
	p, err := m.Malloc(len(s) + 1)
	if err != nil || p == 0 {
		return p, err
	}
	copy(m.heap[p:], s)
	return p, nil
}

func (m *Module) ReadString(p proj.Ptr) (string, error) {
	if p == 0 {
		return "", nil
	}
	if err := m.bounds(p, 1); err != nil {
		return "", err
	}
	end := int(p)
	for end < len(m.heap) && m.heap[end] != 0 {
		end++
	}
	return string(m.heap[p:end]), nil
}

func (m *Module) ReadPtr(p proj.Ptr) (proj.Ptr, error) {
	if err := m.bounds(p, 4); err != nil {
		return 0, err
	}
	return proj.Ptr(binary.LittleEndian.Uint32(m.heap[p:])), nil
}

func (m *Module) WritePtr(p proj.Ptr, v proj.Ptr) error {
	if err := m.bounds(p, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.heap[p:], uint32(v))
	return nil
}

func (m *Module) ReadInt32(p proj.Ptr) (int32, error) {
	if err := m.bounds(p, 4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(m.heap[p:])), nil
}

func (m *Module) writeInt32(p proj.Ptr, v int32) {
	binary.LittleEndian.PutUint32(m.heap[p:], uint32(v))
}

func (m *Module) ReadFloat64(p proj.Ptr) (float64, error) {
	if err := m.bounds(p, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(m.heap[p:])), nil
}

func (m *Module) WriteFloat64(p proj.Ptr, v float64) error {
	if err := m.bounds(p, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.heap[p:], math.Float64bits(v))
	return nil
}

func (m *Module) bounds(p proj.Ptr, n int) error {
	if p == 0 || int(p)+n > len(m.heap) {
		return fmt.Errorf("projtest: access of %d bytes at %d out of range", n, p)
	}
	return nil
}

// A string owned by the library
func (m *Module) static(s string) proj.Ptr {
	if p, ok := m.statics[s]; ok {
		return p
	}
	p := m.grow(len(s) + 1)
	copy(m.heap[p:], s)
	m.statics[s] = p
	return p
}

// Number of blocks allocated with Malloc and not yet freed
func (m *Module) Live() int {
	return len(m.allocs)
}

// Number of objects not yet destroyed, contexts excluded
func (m *Module) LiveObjects() int {
	return len(m.objects)
}

// Number of contexts not yet destroyed
func (m *Module) LiveContexts() int {
	return len(m.contexts)
}

func (m *Module) Close() error {
	m.closed = true
	return nil
}

//
// Optional interfaces
//

func (m *Module) SetLogFunc(ctx proj.Ptr, fn func(level int, msg string)) error {
	c, ok := m.contexts[ctx]
	if !ok {
		return fmt.Errorf("projtest: unknown context %d", ctx)
	}
	c.log = fn
	return nil
}

func (m *Module) ClearLogFunc(ctx proj.Ptr) {
	if c, ok := m.contexts[ctx]; ok && c.log != nil {
		c.log = nil
		m.Events = append(m.Events, fmt.Sprintf("clear_log %d", ctx))
	}
}

func (m *Module) CompilationDate() (string, error) {
	if m.BuildDate == "" {
		return "", fmt.Errorf("projtest: no compilation date: %w", errors.ErrUnsupported)
	}
	return m.BuildDate, nil
}

//
// Entry points
//

func (m *Module) Call(fn proj.Func, args ...uint64) (uint64, error) {
	if m.closed {
		return 0, fmt.Errorf("projtest: module is closed")
	}
	if err := fn.CheckArgs(args); err != nil {
		return 0, err
	}
	m.Calls = append(m.Calls, fn)
	a := func(i int) proj.Ptr { return proj.Ptr(args[i]) }

	switch fn {
	case proj.FnInfo:
		return 0, m.info(a(0))

	case proj.FnContextCreate:
		p := m.grow(8)
		m.contexts[p] = &context{}
		return uint64(p), nil

	case proj.FnContextDestroy:
		if _, ok := m.contexts[a(0)]; !ok {
			return 0, fmt.Errorf("projtest: destroy of unknown context %d", a(0))
		}
		delete(m.contexts, a(0))
		m.Events = append(m.Events, fmt.Sprintf("context_destroy %d", a(0)))
		return 0, nil

	case proj.FnContextErrno:
		c, err := m.context(a(0))
		if err != nil {
			return 0, err
		}
		return proj.I32(c.errno), nil

	case proj.FnContextErrnoString:
		code := proj.AsInt(args[1])
		if code == 0 {
			return uint64(m.static("Success")), nil
		}
		s, ok := errnoStrings[code]
		if !ok {
			s = fmt.Sprintf("Unknown error (code %d)", code)
		}
		return uint64(m.static(s)), nil

	case proj.FnContextSetSearchPaths:
		n := proj.AsInt(args[1])
		for i := 0; i < n; i++ {
			p, err := m.ReadPtr(a(2) + proj.Ptr(4*i))
			if err != nil {
				return 0, err
			}
			s, err := m.ReadString(p)
			if err != nil {
				return 0, err
			}
			m.SearchPaths = append(m.SearchPaths, s)
		}
		return 0, nil

	case proj.FnCreate:
		def, err := m.ReadString(a(1))
		if err != nil {
			return 0, err
		}
		return m.create(a(0), def), nil

	case proj.FnCreateCRSToCRS:
		return m.createCRSToCRS(a(0), a(1), a(2))

	case proj.FnDestroy:
		if a(0) == 0 {
			return 0, nil
		}
		o, ok := m.objects[a(0)]
		if !ok || o.kind == kindList || o.kind == kindFactory {
			return 0, fmt.Errorf("projtest: destroy of unknown object %d", a(0))
		}
		delete(m.objects, a(0))
		m.Events = append(m.Events, fmt.Sprintf("destroy %d", a(0)))
		return 0, nil

	case proj.FnErrno:
		o, ok := m.objects[a(0)]
		if !ok {
			return 0, nil
		}
		return proj.I32(m.contexts[o.ctx].errno), nil

	case proj.FnTransArray:
		return m.transArray(a(0), proj.AsInt(args[1]), proj.AsInt(args[2]), a(3))

	case proj.FnGetName:
		o, err := m.object(a(0))
		if err != nil {
			return 0, err
		}
		if o.crs != nil {
			return uint64(m.static(o.crs.Name)), nil
		}
		if o.op != nil {
			return uint64(m.static(o.op.Name)), nil
		}
		return 0, nil

	case proj.FnGetType:
		o, err := m.object(a(0))
		if err != nil {
			return 0, err
		}
		switch {
		case o.kind == kindCRS:
			return proj.I32(int(o.crs.Type)), nil
		case o.kind == kindOperation:
			return proj.I32(int(o.op.Type)), nil
		}
		return proj.I32(int(proj.TypeUnknown)), nil

	case proj.FnGetIDAuthName, proj.FnGetIDCode:
		o, err := m.object(a(0))
		if err != nil {
			return 0, err
		}
		auth, code := "", ""
		switch o.kind {
		case kindCRS:
			auth, code = o.crs.Auth, o.crs.Code
		case kindOperation:
			auth, code = o.op.Auth, o.op.Code
		}
		if auth == "" || proj.AsInt(args[1]) != 0 {
			return 0, nil
		}
		if fn == proj.FnGetIDAuthName {
			return uint64(m.static(auth)), nil
		}
		return uint64(m.static(code)), nil

	case proj.FnIsDeprecated:
		o, err := m.object(a(0))
		if err != nil {
			return 0, err
		}
		if o.kind == kindCRS && o.crs.Deprecated {
			return 1, nil
		}
		return 0, nil

	case proj.FnGetAreaOfUse:
		return m.areaOfUse(a(1), args[2:])

	case proj.FnAsWKT, proj.FnAsPROJString, proj.FnAsPROJJSON:
		return m.export(fn, a(0), a(1), args[2:])

	case proj.FnCRSGetCoordinateSystem:
		o, err := m.object(a(1))
		if err != nil {
			return 0, err
		}
		if o.kind != kindCRS || o.crs.Axes == nil {
			m.fail(a(0), ErrOther, "proj_crs_get_coordinate_system: Object is not a SingleCRS")
			return 0, nil
		}
		return uint64(m.newObject(&object{kind: kindCS, ctx: a(0), crs: o.crs})), nil

	case proj.FnCSGetAxisCount:
		o, err := m.object(a(1))
		if err != nil {
			return 0, err
		}
		if o.kind != kindCS {
			m.fail(a(0), ErrOther, "proj_cs_get_axis_count: Object is not a CoordinateSystem")
			return proj.I32(-1), nil
		}
		return proj.I32(len(o.crs.Axes)), nil

	case proj.FnCSGetAxisInfo:
		return m.axisInfo(a(1), proj.AsInt(args[2]), args[3:])

	case proj.FnCreateOperationFactoryContext:
		o := &object{kind: kindFactory, ctx: a(0)}
		if a(1) != 0 {
			auth, err := m.ReadString(a(1))
			if err != nil {
				return 0, err
			}
			o.opts.Authority = auth
		}
		o.opts.AllowBallpark = 1
		o.opts.DiscardSuperseded = 1
		o.opts.CRSExtentUse = 3
		o.opts.IntermediateCRS = 1
		return uint64(m.newObject(o)), nil

	case proj.FnOperationFactoryContextDestroy:
		if o, ok := m.objects[a(0)]; !ok || o.kind != kindFactory {
			return 0, fmt.Errorf("projtest: destroy of unknown factory %d", a(0))
		}
		delete(m.objects, a(0))
		m.Events = append(m.Events, fmt.Sprintf("factory_destroy %d", a(0)))
		return 0, nil

	case proj.FnOperationFactoryContextSetSpatialCriterion,
		proj.FnOperationFactoryContextSetGridAvailabilityUse,
		proj.FnOperationFactoryContextSetAllowUseIntermediateCRS,
		proj.FnOperationFactoryContextSetCRSExtentUse,
		proj.FnOperationFactoryContextSetAllowBallparkTransformations,
		proj.FnOperationFactoryContextSetDiscardSuperseded,
		proj.FnOperationFactoryContextSetDesiredAccuracy:
		return 0, m.setFactory(fn, a(1), args[2])

	case proj.FnCreateOperations:
		return m.createOperations(a(0), a(1), a(2), a(3))

	case proj.FnListGetCount:
		o, err := m.object(a(0))
		if err != nil {
			return 0, err
		}
		return proj.I32(len(o.list)), nil

	case proj.FnListGet:
		o, err := m.object(a(1))
		if err != nil {
			return 0, err
		}
		i := proj.AsInt(args[2])
		if o.kind != kindList || i < 0 || i >= len(o.list) {
			m.fail(a(0), ErrInvalidArgument, "proj_list_get: Invalid index")
			return 0, nil
		}
		return uint64(m.newObject(&object{kind: kindOperation, ctx: a(0), op: o.list[i]})), nil

	case proj.FnListDestroy:
		if o, ok := m.objects[a(0)]; !ok || o.kind != kindList {
			return 0, fmt.Errorf("projtest: destroy of unknown list %d", a(0))
		}
		delete(m.objects, a(0))
		m.Events = append(m.Events, fmt.Sprintf("list_destroy %d", a(0)))
		return 0, nil

	case proj.FnCoordOperationGetAccuracy:
		o, err := m.object(a(1))
		if err != nil {
			return 0, err
		}
		if o.kind != kindOperation {
			return proj.F64(-1), nil
		}
		return proj.F64(o.op.Accuracy), nil

	case proj.FnCoordOperationHasBallparkTransformation:
		o, err := m.object(a(1))
		if err != nil {
			return 0, err
		}
		if o.kind == kindOperation && o.op.Ballpark {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("projtest: %s not implemented", fn)
}

func (m *Module) context(p proj.Ptr) (*context, error) {
	c, ok := m.contexts[p]
	if !ok {
		return nil, fmt.Errorf("projtest: unknown context %d", p)
	}
	return c, nil
}

func (m *Module) object(p proj.Ptr) (*object, error) {
	o, ok := m.objects[p]
	if !ok {
		return nil, fmt.Errorf("projtest: unknown object %d", p)
	}
	return o, nil
}

func (m *Module) newObject(o *object) proj.Ptr {
	p := m.grow(8)
	m.objects[p] = o
	return p
}

// Set the errno of a context and log msg through it
func (m *Module) fail(ctx proj.Ptr, code int, msg string) {
	c, ok := m.contexts[ctx]
	if !ok {
		return
	}
	c.errno = code
	if c.log != nil {
		c.log(1, msg)
	}
}

func (m *Module) info(out proj.Ptr) error {
	if err := m.bounds(out, 24); err != nil {
		return err
	}
	version := fmt.Sprintf("%d.%d.%d", m.Major, m.Minor, m.Patch)
	m.writeInt32(out, int32(m.Major))
	m.writeInt32(out+4, int32(m.Minor))
	m.writeInt32(out+8, int32(m.Patch))
	for i, s := range []string{
		"Rel. " + version + ", January 1st, 2026",
		version,
		m.SearchPath,
	} {
		if err := m.WritePtr(out+proj.Ptr(12+4*i), m.static(s)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) lookupCRS(def string) *CRS {
	return m.CRS[strings.ToUpper(strings.TrimSpace(def))]
}

func (m *Module) create(ctx proj.Ptr, def string) uint64 {
	if c := m.lookupCRS(def); c != nil {
		return uint64(m.newObject(&object{kind: kindCRS, ctx: ctx, crs: c}))
	}
	def = strings.Join(strings.Fields(def), " ")
	for _, op := range m.Operations {
		urn := "urn:ogc:def:coordinateOperation:" + op.Auth + "::" + op.Code
		if op.PROJ == def || (op.Auth != "" && strings.EqualFold(urn, def)) {
			return uint64(m.newObject(&object{kind: kindOperation, ctx: ctx, op: op}))
		}
	}
	if strings.HasPrefix(def, "+") || def == "" {
		m.fail(ctx, ErrInvalidSyntax, "proj_create: Error 1025 (Invalid PROJ string syntax)")
	} else {
		m.fail(ctx, ErrOther, "proj_create: crs not found")
	}
	return 0
}

func (m *Module) createCRSToCRS(ctx, src, dst proj.Ptr) (uint64, error) {
	var keys [2]string
	for i, p := range []proj.Ptr{src, dst} {
		def, err := m.ReadString(p)
		if err != nil {
			return 0, err
		}
		c := m.lookupCRS(def)
		if c == nil {
			m.fail(ctx, ErrOther, "proj_create: crs not found")
			return 0, nil
		}
		keys[i] = c.Key()
	}
	for _, op := range m.Operations {
		if op.Source == keys[0] && op.Target == keys[1] {
			return uint64(m.newObject(&object{kind: kindOperation, ctx: ctx, op: op})), nil
		}
	}
	m.fail(ctx, ErrOther, "proj_create_operations: cannot find operation")
	return 0, nil
}

func (m *Module) transArray(p proj.Ptr, direction, n int, coords proj.Ptr) (uint64, error) {
	o, err := m.object(p)
	if err != nil {
		return 0, err
	}
	if o.kind != kindOperation {
		m.fail(o.ctx, ErrInvalidArgument, "proj_trans_array: Object is not a coordinate operation")
		return proj.I32(ErrInvalidArgument), nil
	}
	if err := m.bounds(coords, n*32); err != nil {
		return 0, err
	}
	status := 0
	for i := 0; i < n; i++ {
		base := coords + proj.Ptr(i*32)
		u, _ := m.ReadFloat64(base)
		v, _ := m.ReadFloat64(base + 8)
		x, y, ok := o.op.apply(direction, u, v)
		if !ok {
			status = ErrInvalidCoord
			x, y = math.Inf(1), math.Inf(1)
		}
		m.WriteFloat64(base, x)
		m.WriteFloat64(base+8, y)
	}
	if status != 0 {
		m.fail(o.ctx, status, "proj_trans: Invalid coordinate")
	}
	return proj.I32(status), nil
}

func (op *Operation) apply(direction int, u, v float64) (float64, float64, bool) {
	const eps = 1e-6
	switch {
	case direction == 0:
		return u, v, true
	case direction > 0:
		for in, out := range op.Points {
			if math.Abs(in[0]-u) < eps && math.Abs(in[1]-v) < eps {
				return out[0], out[1], true
			}
		}
	default:
		for in, out := range op.Points {
			if math.Abs(out[0]-u) < eps && math.Abs(out[1]-v) < eps {
				return in[0], in[1], true
			}
		}
	}
	return 0, 0, false
}

func (m *Module) areaOfUse(p proj.Ptr, out []uint64) (uint64, error) {
	o, err := m.object(p)
	if err != nil {
		return 0, err
	}
	var area *proj.Area
	switch o.kind {
	case kindCRS:
		area = o.crs.Area
	case kindOperation:
		area = o.op.Area
	}
	if area == nil {
		return 0, nil
	}
	for i, v := range []float64{area.West, area.South, area.East, area.North} {
		if out[i] != 0 {
			if err := m.WriteFloat64(proj.Ptr(out[i]), v); err != nil {
				return 0, err
			}
		}
	}
	if out[4] != 0 {
		if err := m.WritePtr(proj.Ptr(out[4]), m.static(area.Name)); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func (m *Module) options(arr proj.Ptr) (map[string]string, error) {
	opts := make(map[string]string)
	for p := arr; p != 0; p += 4 {
		s, err := m.ReadPtr(p)
		if err != nil {
			return nil, err
		}
		if s == 0 {
			break
		}
		kv, err := m.ReadString(s)
		if err != nil {
			return nil, err
		}
		k, v, _ := strings.Cut(kv, "=")
		opts[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return opts, nil
}

func (m *Module) export(fn proj.Func, ctx, p proj.Ptr, rest []uint64) (uint64, error) {
	o, err := m.object(p)
	if err != nil {
		return 0, err
	}
	arr := proj.Ptr(rest[len(rest)-1])
	opts, err := m.options(arr)
	if err != nil {
		return 0, err
	}

	var s string
	switch fn {
	case proj.FnAsWKT:
		typ := proj.WKTType(proj.AsInt(rest[0]))
		switch {
		case o.crs != nil && (typ == proj.WKT1GDAL || typ == proj.WKT1ESRI):
			s = o.crs.WKT1
		case o.crs != nil:
			s = o.crs.WKT2
		case o.op != nil && typ != proj.WKT1GDAL && typ != proj.WKT1ESRI:
			s = o.op.WKT2
		}
		if s != "" && opts["MULTILINE"] == "NO" {
			s = singleLine(s)
		}
	case proj.FnAsPROJString:
		if o.crs != nil {
			s = o.crs.PROJ
		} else if o.op != nil {
			s = o.op.PROJ
		}
	case proj.FnAsPROJJSON:
		if o.crs != nil {
			s = o.crs.PROJJSON
		}
	}
	if s == "" {
		m.fail(ctx, ErrOther, fn.Symbol()+": Object type not exportable")
		return 0, nil
	}
	return uint64(m.static(s)), nil
}

func singleLine(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "")
}

func (m *Module) axisInfo(p proj.Ptr, index int, out []uint64) (uint64, error) {
	o, err := m.object(p)
	if err != nil {
		return 0, err
	}
	if o.kind != kindCS || index < 0 || index >= len(o.crs.Axes) {
		m.fail(o.ctx, ErrInvalidArgument, "proj_cs_get_axis_info: Invalid index")
		return 0, nil
	}
	axis := o.crs.Axes[index]
	strs := []struct {
		i int
		s string
	}{
		{0, axis.Name}, {1, axis.Abbrev}, {2, axis.Direction},
		{4, axis.UnitName}, {5, axis.UnitAuthName}, {6, axis.UnitCode},
	}
	for _, f := range strs {
		if out[f.i] != 0 {
			if err := m.WritePtr(proj.Ptr(out[f.i]), m.static(f.s)); err != nil {
				return 0, err
			}
		}
	}
	if out[3] != 0 {
		if err := m.WriteFloat64(proj.Ptr(out[3]), axis.ConvFactor); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func (m *Module) setFactory(fn proj.Func, p proj.Ptr, arg uint64) error {
	o, err := m.object(p)
	if err != nil {
		return err
	}
	if o.kind != kindFactory {
		return fmt.Errorf("projtest: %d is not an operation factory", p)
	}
	switch fn {
	case proj.FnOperationFactoryContextSetSpatialCriterion:
		o.opts.SpatialCriterion = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetGridAvailabilityUse:
		o.opts.GridAvailability = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetAllowUseIntermediateCRS:
		o.opts.IntermediateCRS = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetCRSExtentUse:
		o.opts.CRSExtentUse = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetAllowBallparkTransformations:
		o.opts.AllowBallpark = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetDiscardSuperseded:
		o.opts.DiscardSuperseded = proj.AsInt(arg)
	case proj.FnOperationFactoryContextSetDesiredAccuracy:
		o.opts.DesiredAccuracy = proj.AsFloat(arg)
	}
	return nil
}

func (m *Module) createOperations(ctx, src, dst, factory proj.Ptr) (uint64, error) {
	s, err := m.object(src)
	if err != nil {
		return 0, err
	}
	t, err := m.object(dst)
	if err != nil {
		return 0, err
	}
	f, err := m.object(factory)
	if err != nil {
		return 0, err
	}
	if s.kind != kindCRS || t.kind != kindCRS {
		m.fail(ctx, ErrInvalidArgument, "proj_create_operations: source_crs and target_crs should be CRS")
		return 0, nil
	}
	m.LastFactory = f.opts

	list := &object{kind: kindList, ctx: ctx}
	for _, op := range m.Operations {
		if op.Source != s.crs.Key() || op.Target != t.crs.Key() {
			continue
		}
		if op.Ballpark && f.opts.AllowBallpark == 0 {
			continue
		}
		if a := f.opts.Authority; a != "" && a != "any" && !strings.EqualFold(a, op.Auth) {
			continue
		}
		if f.opts.DesiredAccuracy > 0 && (op.Accuracy < 0 || op.Accuracy > f.opts.DesiredAccuracy) && op.Type != proj.TypeConversion {
			continue
		}
		list.list = append(list.list, op)
	}
	return uint64(m.newObject(list)), nil
}

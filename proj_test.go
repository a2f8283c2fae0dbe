package proj_test

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pebbe/proj/v9"
	"github.com/pebbe/proj/v9/internal/projtest"
)

func newContext(t *testing.T) (*proj.Context, *projtest.Module) {
	t.Helper()
	m := projtest.New()
	ctx, err := proj.NewContext(m)
	require.NoError(t, err)
	t.Cleanup(ctx.Close)
	return ctx, m
}

func TestInfo(t *testing.T) {
	m := projtest.New()
	info, err := proj.Info(m)
	require.NoError(t, err)

	assert.Equal(t, 9, info.Major)
	assert.Equal(t, 8, info.Minor)
	assert.Equal(t, 0, info.Patch)
	assert.Equal(t, "9.8.0", info.Triple())
	assert.Contains(t, info.Release, "9.8.0")
	assert.Equal(t, "9.8.0", info.Version)
	assert.Equal(t, "/usr/share/proj", info.Searchpath)
	assert.Zero(t, m.Live())

	assert.True(t, info.AtLeast(9, 8))
	assert.True(t, info.AtLeast(8, 10))
	assert.False(t, info.AtLeast(9, 9))
	assert.False(t, info.AtLeast(10, 0))
}

func TestLatlongToUTM(t *testing.T) {
	ctx, m := newContext(t)

	pj, err := ctx.CreateCRSToCRS("EPSG:4326", "EPSG:32633")
	require.NoError(t, err)
	defer pj.Close()

	c, err := pj.Fwd(proj.Coord{U: 52, V: 13.5})
	require.NoError(t, err)
	s := fmt.Sprintf("%.4f %.4f", c.U, c.V)
	s1 := "397027.0183 5762100.4897"
	if s != s1 {
		t.Fatalf("LatlongToUTM = %v, want %v", s, s1)
	}

	c, err = pj.Inv(c)
	require.NoError(t, err)
	assert.InDelta(t, 52, c.U, 1e-9)
	assert.InDelta(t, 13.5, c.V, 1e-9)

	u2, v2, _, t2, err := pj.TransSlice(proj.Fwd, []float64{52, 0}, []float64{13.5, 15}, nil, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{397027.0183, 500000}, u2, 1e-3)
	assert.InDeltaSlice(t, []float64{5762100.4897, 0}, v2, 1e-3)
	assert.True(t, math.IsInf(t2[0], 1))

	_, _, _, _, err = pj.TransSlice(proj.Fwd, []float64{52, 0, 1}, []float64{13.5, 15}, nil, nil)
	assert.EqualError(t, err, "Data size mismatch")
	_, _, _, _, err = pj.TransSlice(proj.Fwd, nil, []float64{13.5}, nil, nil)
	assert.EqualError(t, err, "Missing data")

	assert.Zero(t, m.Live(), "scratch memory left behind")
}

func TestInvalidCoordinate(t *testing.T) {
	ctx, _ := newContext(t)

	pj, err := ctx.CreateCRSToCRS("EPSG:4326", "EPSG:32633")
	require.NoError(t, err)
	defer pj.Close()

	_, err = pj.Fwd(proj.Coord{U: 95, V: 13.5})
	require.Error(t, err)
	var perr *proj.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, projtest.ErrInvalidCoord, perr.Code)
	assert.Equal(t, "proj: proj_trans_array Invalid coordinate", err.Error())

	// The object stays usable
	_, err = pj.Fwd(proj.Coord{U: 52, V: 13.5})
	assert.NoError(t, err)
}

func TestCreateAfterError(t *testing.T) {
	ctx, _ := newContext(t)

	_, err := ctx.Create("EPSG:999999")
	require.Error(t, err)
	assert.ErrorIs(t, err, proj.ErrNullPointer)
	assert.Contains(t, err.Error(), "crs not found")
	assert.NotEmpty(t, ctx.Diagnostics())

	pj, err := ctx.Create("EPSG:4326")
	require.NoError(t, err)
	defer pj.Close()
	name, err := pj.Name()
	require.NoError(t, err)
	assert.Equal(t, "WGS 84", name)
}

func TestStaleDiagnosticsNotReported(t *testing.T) {
	ctx, m := newContext(t)

	_, err := ctx.Create("EPSG:999999")
	require.Error(t, err)

	m.Operations = nil
	_, err = ctx.CreateCRSToCRS("EPSG:32633", "EPSG:25833")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot find operation")
	assert.NotContains(t, err.Error(), "crs not found")
}

func TestContextClose(t *testing.T) {
	m := projtest.New()
	ctx, err := proj.NewContext(m)
	require.NoError(t, err)

	a, err := ctx.Create("EPSG:4326")
	require.NoError(t, err)
	b, err := ctx.Create("EPSG:32633")
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Open())

	a.Close()
	a.Close()
	assert.Equal(t, 1, ctx.Open())
	assert.Equal(t, 1, m.LiveObjects())

	ctx.Close()
	ctx.Close()
	assert.Zero(t, m.LiveObjects())
	assert.Zero(t, m.LiveContexts())

	b.Close()
	_, err = b.Name()
	assert.ErrorIs(t, err, proj.ErrClosed)
	_, err = ctx.Create("EPSG:4326")
	assert.ErrorIs(t, err, proj.ErrContextClosed)
	assert.ErrorIs(t, ctx.SetSearchPaths([]string{"/tmp"}), proj.ErrContextClosed)
}

func TestContextCloseDetachesLogFirst(t *testing.T) {
	m := projtest.New()
	ctx, err := proj.NewContext(m)
	require.NoError(t, err)
	c := ctx.Ptr()
	ctx.Close()
	assert.Equal(t, []string{
		fmt.Sprintf("clear_log %d", c),
		fmt.Sprintf("context_destroy %d", c),
	}, m.Events)
}

func dropContext(t *testing.T, m proj.Module) {
	ctx, err := proj.NewContext(m)
	require.NoError(t, err)
	_, err = ctx.Create("EPSG:999999")
	require.Error(t, err)
}

func TestContextFinalizer(t *testing.T) {
	m := projtest.New()
	dropContext(t, m)
	require.Equal(t, 1, m.LiveContexts())

	for i := 0; i < 50 && m.LiveContexts() > 0; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, m.LiveContexts(), "unclosed context not finalized")
}

// Records every double written to module memory
type floatSpy struct {
	*projtest.Module
	floats []float64
}

func (s *floatSpy) WriteFloat64(p proj.Ptr, v float64) error {
	s.floats = append(s.floats, v)
	return s.Module.WriteFloat64(p, v)
}

func TestPointHasNoEpoch(t *testing.T) {
	m := &floatSpy{Module: projtest.New()}
	ctx, err := proj.NewContext(m)
	require.NoError(t, err)
	defer ctx.Close()

	pj, err := ctx.CreateCRSToCRS("EPSG:4326", "EPSG:32633")
	require.NoError(t, err)

	c, err := pj.Fwd(proj.Point(52, 13.5, 0))
	require.NoError(t, err)
	assert.InDelta(t, 397027.0183, c.U, 1e-3)
	require.Len(t, m.floats, 4)
	assert.Equal(t, []float64{52, 13.5, 0}, m.floats[:3])
	assert.True(t, math.IsInf(m.floats[3], 1), "T = %v", m.floats[3])
	assert.True(t, math.IsInf(c.T, 1))
}

func TestObjectProperties(t *testing.T) {
	ctx, m := newContext(t)

	pj, err := ctx.Create("EPSG:32633")
	require.NoError(t, err)
	defer pj.Close()

	typ, err := pj.Type()
	require.NoError(t, err)
	assert.Equal(t, proj.TypeProjectedCRS, typ)
	assert.True(t, typ.IsCRS())
	assert.False(t, typ.IsOperation())

	auth, code, err := pj.ID()
	require.NoError(t, err)
	assert.Equal(t, "EPSG", auth)
	assert.Equal(t, "32633", code)

	dep, err := pj.IsDeprecated()
	require.NoError(t, err)
	assert.False(t, dep)

	area, ok, err := pj.AreaOfUse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12.0, area.West)
	assert.Equal(t, 84.0, area.North)
	assert.True(t, strings.HasPrefix(area.Name, "Between 12°E and 18°E"))

	nad, err := ctx.Create("EPSG:4269")
	require.NoError(t, err)
	defer nad.Close()
	_, ok, err = nad.AreaOfUse()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, m.Live())
}

func TestExport(t *testing.T) {
	ctx, m := newContext(t)

	pj, err := ctx.Create("EPSG:32633")
	require.NoError(t, err)
	defer pj.Close()

	wkt, err := pj.AsWKT(proj.WKT1GDAL, proj.WKTOptions{})
	require.NoError(t, err)
	assert.Contains(t, wkt, `PROJCS["WGS 84 / UTM zone 33N"`)
	assert.Contains(t, wkt, `AUTHORITY["EPSG","32633"]`)

	wkt, err = pj.AsWKT(proj.WKT2_2019, proj.WKTOptions{SingleLine: true})
	require.NoError(t, err)
	assert.NotContains(t, wkt, "\n")
	assert.True(t, strings.HasPrefix(wkt, `PROJCRS["WGS 84 / UTM zone 33N",BASEGEOGCRS`))

	s, err := pj.AsPROJString(proj.PROJ5, false)
	require.NoError(t, err)
	assert.Equal(t, "+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs +type=crs", s)

	js, err := pj.AsPROJJSON(false)
	require.NoError(t, err)
	assert.Contains(t, js, `"code":32633`)

	compound, err := ctx.Create("EPSG:7415")
	require.NoError(t, err)
	defer compound.Close()
	_, err = compound.AsPROJJSON(true)
	assert.ErrorIs(t, err, proj.ErrNullPointer)

	assert.Zero(t, m.Live())
}

var geographicAxes = []proj.AxisInfo{
	{Name: "Geodetic latitude", Abbrev: "Lat", Direction: "north", ConvFactor: 0.017453292519943295, UnitName: "degree", UnitAuthName: "EPSG", UnitCode: "9122"},
	{Name: "Geodetic longitude", Abbrev: "Lon", Direction: "east", ConvFactor: 0.017453292519943295, UnitName: "degree", UnitAuthName: "EPSG", UnitCode: "9122"},
}

func TestAxes(t *testing.T) {
	ctx, m := newContext(t)

	axes, err := ctx.Axes("EPSG:4326")
	require.NoError(t, err)
	if diff := cmp.Diff(geographicAxes, axes); diff != "" {
		t.Errorf("Axes(EPSG:4326) mismatch (-want +got):\n%s", diff)
	}

	axes, err = ctx.Axes("EPSG:3855")
	require.NoError(t, err)
	want := []proj.AxisInfo{
		{Name: "Gravity-related height", Abbrev: "H", Direction: "up", ConvFactor: 1, UnitName: "metre", UnitAuthName: "EPSG", UnitCode: "9001"},
	}
	if diff := cmp.Diff(want, axes); diff != "" {
		t.Errorf("Axes(EPSG:3855) mismatch (-want +got):\n%s", diff)
	}

	_, err = ctx.Axes("EPSG:7415")
	assert.ErrorIs(t, err, proj.ErrNoCoordinateSystem)

	_, err = ctx.Axes("EPSG:999999")
	assert.Error(t, err)

	assert.Zero(t, m.Live())
	assert.Zero(t, m.LiveObjects())
	assert.Zero(t, ctx.Open())
}

func TestPJAxes(t *testing.T) {
	ctx, _ := newContext(t)

	pj, err := ctx.Create("EPSG:4326")
	require.NoError(t, err)
	defer pj.Close()

	axes, err := pj.Axes()
	require.NoError(t, err)
	if diff := cmp.Diff(geographicAxes, axes); diff != "" {
		t.Errorf("Axes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, ctx.Open(), "coordinate system not closed")

	cs, err := pj.CoordinateSystem()
	require.NoError(t, err)
	defer cs.Close()
	axes, err = cs.Axes()
	require.NoError(t, err)
	assert.Len(t, axes, 2)
}

func TestOperations(t *testing.T) {
	ctx, m := newContext(t)

	src, err := ctx.Create("EPSG:4326")
	require.NoError(t, err)
	dst, err := ctx.Create("EPSG:32633")
	require.NoError(t, err)

	ops, err := ctx.Operations(src, dst, proj.OperationOptions{})
	require.NoError(t, err)
	defer proj.CloseAll(ops)
	require.Len(t, ops, 1)

	assert.Equal(t, projtest.FactorySettings{
		SpatialCriterion:  0,
		GridAvailability:  0,
		IntermediateCRS:   1,
		CRSExtentUse:      3,
		AllowBallpark:     1,
		DiscardSuperseded: 1,
	}, m.LastFactory)

	name, err := ops[0].Name()
	require.NoError(t, err)
	assert.Equal(t, "UTM zone 33N", name)
	acc, err := ops[0].Accuracy()
	require.NoError(t, err)
	assert.Equal(t, -1.0, acc)
	s, err := ops[0].AsPROJString(proj.PROJ5, false)
	require.NoError(t, err)
	assert.Equal(t, projtest.UTM33Pipeline, s)

	assert.Zero(t, m.Live())
	assert.NotEmpty(t, findEvent(m.Events, "factory_destroy "))
	assert.NotEmpty(t, findEvent(m.Events, "list_destroy "))
}

func findEvent(events []string, prefix string) string {
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			return e
		}
	}
	return ""
}

func TestOperationsOptions(t *testing.T) {
	ctx, m := newContext(t)

	src, err := ctx.Create("EPSG:4269")
	require.NoError(t, err)
	dst, err := ctx.Create("EPSG:4326")
	require.NoError(t, err)

	ops, err := ctx.Operations(src, dst, proj.OperationOptions{})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	ballpark, err := ops[1].HasBallparkTransformation()
	require.NoError(t, err)
	assert.True(t, ballpark)
	acc, err := ops[0].Accuracy()
	require.NoError(t, err)
	assert.Equal(t, 4.0, acc)
	proj.CloseAll(ops)

	accuracy := 5.0
	ops, err = ctx.Operations(src, dst, proj.OperationOptions{
		Authority:        "EPSG",
		SpatialCriterion: proj.PartialIntersection,
		GridAvailability: proj.GridIgnored,
		IntermediateCRS:  proj.IntermediateNever,
		CRSExtentUse:     proj.ExtentBoth,
		HideBallpark:     true,
		ShowSuperseded:   true,
		DesiredAccuracy:  &accuracy,
	})
	require.NoError(t, err)
	defer proj.CloseAll(ops)
	require.Len(t, ops, 1)
	assert.Equal(t, projtest.FactorySettings{
		Authority:         "EPSG",
		SpatialCriterion:  1,
		GridAvailability:  2,
		IntermediateCRS:   2,
		CRSExtentUse:      1,
		AllowBallpark:     0,
		DiscardSuperseded: 0,
		DesiredAccuracy:   5,
	}, m.LastFactory)
}

func TestSetSearchPaths(t *testing.T) {
	ctx, m := newContext(t)
	require.NoError(t, ctx.SetSearchPaths([]string{"/opt/proj", "/usr/share/proj"}))
	assert.Equal(t, []string{"/opt/proj", "/usr/share/proj"}, m.SearchPaths)
	assert.Zero(t, m.Live())
}

func TestFuncArity(t *testing.T) {
	for f := proj.Func(0); f < proj.NumFuncs; f++ {
		assert.NotEmpty(t, f.Symbol(), "Func %d", int(f))
		assert.True(t, strings.HasPrefix(f.Symbol(), "proj_"), f.Symbol())
		assert.GreaterOrEqual(t, f.Arity(), 0, f.Symbol())
	}
	assert.EqualError(t, proj.FnCreate.CheckArgs([]uint64{1}), "proj: proj_create takes 2 arguments, got 1")
	assert.NoError(t, proj.FnContextCreate.CheckArgs(nil))
	assert.Error(t, proj.NumFuncs.CheckArgs(nil))
}

func TestDegRad(t *testing.T) {
	assert.InDelta(t, math.Pi, proj.DegToRad(180), 1e-15)
	assert.InDelta(t, 90, proj.RadToDeg(math.Pi/2), 1e-12)
}

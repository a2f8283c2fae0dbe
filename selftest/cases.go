package selftest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/pebbe/proj/v9"
	"github.com/pebbe/proj/v9/projinfo"
)

// Oldest release the cases accept
const (
	MinMajor = 9
	MinMinor = 8
)

// The conversion checked by the convert case
var (
	ConvertSource = "EPSG:4326"
	ConvertTarget = "EPSG:32633"
	ConvertInput  = proj.Point(52, 13.5, 0)
	ConvertWant   = proj.Coord{U: 397027.0183, V: 5762100.4897}
)

// Axis as checked by the axes case
type Axis struct {
	Name       string
	Abbrev     string
	Direction  string
	ConvFactor float64
	Unit       string
}

// Axes expected per CRS, checked in this order
var ExpectedAxes = []struct {
	CRS  string
	Axes []Axis
}{
	{"EPSG:4326", []Axis{
		{"Geodetic latitude", "Lat", "north", 0.017453292519943295, "degree"},
		{"Geodetic longitude", "Lon", "east", 0.017453292519943295, "degree"},
	}},
	{"EPSG:25833", []Axis{
		{"Easting", "E", "east", 1, "metre"},
		{"Northing", "N", "north", 1, "metre"},
	}},
	{"EPSG:3855", []Axis{
		{"Gravity-related height", "H", "up", 1, "metre"},
	}},
}

// A code no authority has
const InvalidCRS = "EPSG:999999"

// Every case, in the order they run
func Cases() []Case {
	return []Case{
		{Name: "proj_info", Run: checkInfo},
		{Name: "projinfo", Run: checkProjinfo},
		{Name: "convert", Run: checkConvert},
		{Name: "axes", Run: checkAxes},
		{Name: "invalid_crs", Run: checkInvalidCRS},
	}
}

func checkInfo(env *Env) error {
	info, err := proj.Info(env.Module)
	if err != nil {
		return err
	}
	env.Log.Info("library",
		zap.String("release", info.Release),
		zap.String("version", info.Version),
		zap.String("searchpath", info.Searchpath))

	if !info.AtLeast(MinMajor, MinMinor) {
		return fmt.Errorf("PROJ %s is older than %d.%d", info.Triple(), MinMajor, MinMinor)
	}
	rel := info.Triple()
	if !strings.Contains(info.Release, rel) {
		return fmt.Errorf("release %q does not contain %s", info.Release, rel)
	}
	if !strings.Contains(info.Version, rel) {
		return fmt.Errorf("version %q does not contain %s", info.Version, rel)
	}

	bd, ok := env.Module.(proj.BuildDater)
	if !ok {
		env.Log.Info("no compilation date")
		return nil
	}
	date, err := bd.CompilationDate()
	if errors.Is(err, errors.ErrUnsupported) {
		env.Log.Info("no compilation date")
		return nil
	}
	if err != nil {
		return err
	}
	env.Log.Info("compiled", zap.String("date", date))
	if len(date) <= 5 {
		return fmt.Errorf("compilation date %q too short", date)
	}
	return nil
}

// Output of one projinfo run, messages concatenated
func runProjinfo(ctx *proj.Context, args ...string) (int, string) {
	var b strings.Builder
	rc := projinfo.Run(ctx, args, func(_ projinfo.Level, s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	})
	return rc, b.String()
}

func checkProjinfo(env *Env) error {
	ctx, err := env.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	for _, check := range []struct {
		args []string
		rc   int
		want []string
	}{
		{
			args: []string{"EPSG:32633", "-o", "WKT1:GDAL"},
			want: []string{`PROJCS["WGS 84 / UTM zone 33N"`, `AUTHORITY["EPSG","32633"]`},
		},
		{
			args: []string{"EPSG:32633", "-o", "invalid"},
			rc:   1,
			want: []string{"Unrecognized value "},
		},
		{
			args: []string{"EPSG:4326", "EPSG:32633", "-o", "proj", "--single-line"},
			want: []string{
				"Candidate operations",
				"+proj=pipeline +step +proj=axisswap +order=2,1 " +
					"+step +proj=unitconvert +xy_in=deg +xy_out=rad " +
					"+step +proj=utm +zone=33 +ellps=WGS84",
			},
		},
	} {
		rc, msg := runProjinfo(ctx, check.args...)
		if rc != check.rc {
			return fmt.Errorf("projinfo %s: exit code %d, want %d\n%s", strings.Join(check.args, " "), rc, check.rc, msg)
		}
		for _, w := range check.want {
			if !strings.Contains(msg, w) {
				return fmt.Errorf("projinfo %s: output lacks %q\n%s", strings.Join(check.args, " "), w, msg)
			}
		}
	}
	return nil
}

func checkConvert(env *Env) error {
	ctx, err := env.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	pj, err := ctx.CreateCRSToCRS(ConvertSource, ConvertTarget)
	if err != nil {
		return err
	}
	defer pj.Close()

	c, err := pj.Fwd(ConvertInput)
	if err != nil {
		return err
	}
	env.Log.Debug("converted", zap.Float64("x", c.U), zap.Float64("y", c.V))
	if err := CheckTolerance("x", c.U, ConvertWant.U, env.Tolerance); err != nil {
		return err
	}
	return CheckTolerance("y", c.V, ConvertWant.V, env.Tolerance)
}

func checkAxes(env *Env) error {
	ctx, err := env.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	for _, want := range ExpectedAxes {
		info, err := ctx.Axes(want.CRS)
		if err != nil {
			return err
		}
		got := make([]Axis, len(info))
		for i, a := range info {
			got[i] = Axis{a.Name, a.Abbrev, a.Direction, a.ConvFactor, a.UnitName}
		}
		if diff := cmp.Diff(want.Axes, got); diff != "" {
			return fmt.Errorf("axes of %s (-want +got):\n%s", want.CRS, diff)
		}
	}
	return nil
}

func checkInvalidCRS(env *Env) error {
	ctx, err := env.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	pj, err := ctx.Create(InvalidCRS)
	if err == nil {
		pj.Close()
		return fmt.Errorf("creating %s did not fail", InvalidCRS)
	}
	if err.Error() == "" {
		return errors.New("empty error message")
	}
	env.Log.Debug("expected failure", zap.Error(err))

	// The context must still work
	pj, err = ctx.Create(ConvertSource)
	if err != nil {
		return fmt.Errorf("context unusable after error: %w", err)
	}
	pj.Close()
	return nil
}

package projinfo

import (
	"strconv"
	"strings"

	"github.com/pebbe/proj/v9"
)

const separator = "-------------------------------------"

type runner struct {
	ctx  *proj.Context
	opts *options
	p    *printer
}

func (r *runner) build(user, kind, context string) (*proj.PJ, error) {
	def, err := definition(user, kind, context)
	if err != nil {
		return nil, err
	}
	return r.ctx.Create(def)
}

func (r *runner) object() int {
	pj, err := r.build(r.opts.user, r.opts.kind, "input string")
	if err != nil {
		r.p.errorf("buildObject failed: %v", err)
		return 1
	}
	defer pj.Close()

	if err := r.output(pj); err != nil {
		r.p.errorf("buildObject failed: %v", err)
		return 1
	}
	return 0
}

func (r *runner) crs(user, context string) (*proj.PJ, bool) {
	pj, err := r.build(user, "crs", context)
	if err != nil {
		r.p.errorf("%s: parsing of user string failed: %v", context, err)
		return nil, false
	}
	typ, err := pj.Type()
	if err != nil || !typ.IsCRS() {
		pj.Close()
		r.p.errorf("%s string is not a CRS", context)
		return nil, false
	}
	return pj, true
}

func (r *runner) operations() int {
	source, ok := r.crs(r.opts.source, "source CRS")
	if !ok {
		return 1
	}
	defer source.Close()
	target, ok := r.crs(r.opts.target, "target CRS")
	if !ok {
		return 1
	}
	defer target.Close()

	list, err := r.ctx.Operations(source, target, r.opts.operation)
	if err != nil {
		r.p.errorf("createOperations() failed with: %v", err)
		return 1
	}
	defer proj.CloseAll(list)

	// Tell when a looser spatial test would find more
	var wider int
	moreRelevant := false
	if !r.opts.spatialExplicit && r.opts.operation.SpatialCriterion == proj.StrictContainment {
		o := r.opts.operation
		o.SpatialCriterion = proj.PartialIntersection
		if list2, err := r.ctx.Operations(source, target, o); err == nil {
			wider = len(list2)
			if len(list2) == 1 && len(list) == 1 {
				n1, _ := list[0].Name()
				n2, _ := list2[0].Name()
				moreRelevant = n1 != n2
			}
			proj.CloseAll(list2)
		}
	}

	if r.opts.quiet && len(list) > 0 {
		if err := r.output(list[0]); err != nil {
			r.p.errorf("outputOperations() failed with: %v", err)
			return 1
		}
		return 0
	}

	r.p.infof("Candidate operations found: %d", len(list))
	if wider > len(list) {
		r.p.infof("Note: using '--spatial-test intersects' would bring more results (%d)", wider)
	} else if moreRelevant {
		r.p.infof("Note: using '--spatial-test intersects' would bring more relevant results.")
	}

	for i, op := range list {
		if r.opts.summary {
			r.summary(op)
			continue
		}
		if i > 0 {
			r.p.infof("")
		}
		r.p.infof("%s", separator)
		r.p.infof("Operation No. %d:", i+1)
		r.p.infof("")
		r.summary(op)
		r.p.infof("")
		if err := r.output(op); err != nil {
			r.p.errorf("outputOperations() failed with: %v", err)
			return 1
		}
	}
	return 0
}

// One line: id, name, accuracy, area of use and whether the operation is
// a ballpark one
func (r *runner) summary(op *proj.PJ) {
	var b strings.Builder

	auth, code, err := op.ID()
	if err == nil && auth != "" {
		b.WriteString(auth + ":" + code)
	} else {
		b.WriteString("unknown id")
	}
	b.WriteString(", ")

	if name, err := op.Name(); err == nil && name != "" {
		b.WriteString(name)
	} else {
		b.WriteString("unknown name")
	}
	b.WriteString(", ")

	typ, _ := op.Type()
	switch acc, err := op.Accuracy(); {
	case err == nil && acc >= 0:
		b.WriteString(strconv.FormatFloat(acc, 'g', -1, 64) + " m")
	case typ == proj.TypeConversion:
		b.WriteString("0 m")
	default:
		b.WriteString("unknown accuracy")
	}
	b.WriteString(", ")

	if area, ok, err := op.AreaOfUse(); err == nil && ok && area.Name != "" {
		b.WriteString(area.Name)
	} else {
		b.WriteString("unknown domain of validity")
	}

	if ballpark, err := op.HasBallparkTransformation(); err == nil && ballpark {
		b.WriteString(", has ballpark transformation")
	}
	r.p.infof("%s", b.String())
}

func (r *runner) text(s string) string {
	if r.opts.cify {
		return cify(s)
	}
	return s
}

// Writes the object in every selected format. A format that cannot be
// exported is reported as a warning and does not stop the others.
func (r *runner) output(pj *proj.PJ) error {
	opts := r.opts
	out := opts.out

	typ, err := pj.Type()
	if err != nil {
		return err
	}
	isCRS := typ.IsCRS()

	if !opts.quiet {
		if deprecated, err := pj.IsDeprecated(); err == nil && deprecated {
			r.p.infof("Warning: object is deprecated")
			r.p.infof("")
		}
	}

	written := false
	section := func(title, format string, export func() (string, error), trailingBlank bool) {
		if written {
			r.p.infof("")
		}
		written = true
		if !opts.quiet {
			r.p.infof("%s", title+":")
		}
		s, err := export()
		if err != nil {
			r.p.warnf("Error when exporting to %s: %v", format, err)
			return
		}
		r.p.infof("%s", r.text(s))
		if trailingBlank {
			r.p.infof("")
		}
	}

	if out.proj {
		title := "PROJ string"
		if isCRS {
			title = "PROJ.4 string"
		}
		// Only operations are split over several lines
		section(title, "PROJ string", func() (string, error) {
			return pj.AsPROJString(proj.PROJ5, !opts.singleLine && !isCRS)
		}, false)
	}

	wkt := func(typ proj.WKTType, singleLine bool) func() (string, error) {
		return func() (string, error) {
			return pj.AsWKT(typ, proj.WKTOptions{
				SingleLine:                          singleLine,
				Lax:                                 opts.lax,
				AllowEllipsoidalHeightAsVerticalCRS: out.allowEllipsoidHeight && typ == proj.WKT1GDAL,
			})
		}
	}
	if out.wkt2015 {
		section("WKT2:2015 string", "WKT2:2015", wkt(proj.WKT2_2015, opts.singleLine), false)
	}
	if out.wkt2015Simplified {
		section("WKT2:2015_SIMPLIFIED string", "WKT2:2015_SIMPLIFIED", wkt(proj.WKT2_2015Simplified, opts.singleLine), false)
	}
	if out.wkt2019 {
		section("WKT2:2019 string", "WKT2:2019", wkt(proj.WKT2_2019, opts.singleLine), false)
	}
	if out.wkt2019Simplified {
		section("WKT2:2019_SIMPLIFIED string", "WKT2:2019_SIMPLIFIED", wkt(proj.WKT2_2019Simplified, opts.singleLine), false)
	}
	// Conversions have no WKT1 form
	if out.wkt1GDAL && typ != proj.TypeConversion {
		section("WKT1:GDAL string", "WKT1:GDAL", wkt(proj.WKT1GDAL, opts.singleLine), true)
	}
	if out.wkt1ESRI && typ != proj.TypeConversion {
		section("WKT1:ESRI string", "WKT1:ESRI", wkt(proj.WKT1ESRI, false), true)
	}

	if out.projjson {
		section("PROJJSON", "PROJJSON", func() (string, error) {
			return pj.AsPROJJSON(!opts.singleLine)
		}, false)
	}
	return nil
}

// Package projinfo is the projinfo command line of PROJ, running against
// any proj.Module. Output goes to a callback instead of the standard
// streams, so it works the same for the native library and for a
// WebAssembly build.
package projinfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pebbe/proj/v9"
)

// Level of an output line. Info is what projinfo writes to standard output,
// Err what it writes to standard error.
type Level int

const (
	LevelInfo Level = 1
	LevelWarn Level = 2
	LevelErr  Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelErr:
		return "error"
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

var usageText = []string{
	"usage: projinfo [-o formats] [-k crs|operation|datum|ensemble|ellipsoid] [--summary] [-q]",
	"                [--spatial-test contains|intersects]",
	"                [--crs-extent-use none|both|intersection|smallest]",
	"                [--grid-check none|discard_missing|sort|known_available]",
	"                [--pivot-crs always|if_no_direct_transformation|never]",
	"                [--show-superseded] [--hide-ballpark] [--accuracy {accuracy}]",
	"                [--allow-ellipsoidal-height-as-vertical-crs]",
	"                [--authority name]",
	"                [--c-ify] [--single-line] [--lax]",
	"                --searchpaths |",
	"                {object_definition} | {object_reference} | (-s {srs_def} -t {srs_def}) |",
	"                {srs_def} {srs_def}",
	"",
	"-o: formats is a comma separated combination of: all,default,PROJ,WKT_ALL,WKT2:2015,WKT2:2019,WKT1:GDAL,WKT1:ESRI,PROJJSON",
	"    Except 'all' and 'default', other format can be preceded by '-' to disable them",
}

// Raised by argument errors. Run reports the message followed by the usage.
type usageError string

func (e usageError) Error() string { return string(e) }

// Run executes projinfo with args, which do not include the program name.
// Every call of cb receives one line of output without its terminator. cb
// may be nil. The result is the exit code of projinfo: 0 on success, 1 on
// error.
func Run(ctx *proj.Context, args []string, cb func(Level, string)) int {
	p := &printer{cb: cb}

	opts, err := parse(args)
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			if ue != "" {
				p.errorf("%s", ue)
			}
			for _, line := range usageText {
				p.errorf("%s", line)
			}
		} else {
			p.errorf("%v", err)
		}
		return 1
	}

	if opts.searchpaths {
		info, err := proj.Info(ctx.Module())
		if err != nil {
			p.errorf("proj_info failed: %v", err)
			return 1
		}
		for _, path := range filepath.SplitList(info.Searchpath) {
			p.infof("%s", path)
		}
		return 0
	}

	r := &runner{ctx: ctx, opts: opts, p: p}
	if opts.user != "" {
		return r.object()
	}
	return r.operations()
}

type printer struct {
	cb func(Level, string)
}

func (p *printer) print(level Level, s string) {
	if p.cb == nil {
		return
	}
	for _, line := range strings.Split(s, "\n") {
		p.cb(level, line)
	}
}

func (p *printer) infof(format string, args ...any) {
	p.print(LevelInfo, fmt.Sprintf(format, args...))
}

func (p *printer) warnf(format string, args ...any) {
	p.print(LevelWarn, fmt.Sprintf(format, args...))
}

func (p *printer) errorf(format string, args ...any) {
	p.print(LevelErr, fmt.Sprintf(format, args...))
}

// Output formats selected with -o
type formats struct {
	proj                 bool
	wkt2015              bool
	wkt2015Simplified    bool
	wkt2019              bool
	wkt2019Simplified    bool
	wkt1GDAL             bool
	wkt1ESRI             bool
	projjson             bool
	allowEllipsoidHeight bool
}

func (f formats) count() int {
	n := 0
	for _, b := range []bool{f.proj, f.wkt2015, f.wkt2015Simplified, f.wkt2019,
		f.wkt2019Simplified, f.wkt1GDAL, f.wkt1ESRI, f.projjson} {
		if b {
			n++
		}
	}
	return n
}

type options struct {
	out        formats
	outSet     bool
	kind       string
	user       string
	source     string
	target     string
	quiet      bool
	singleLine bool
	summary    bool
	cify       bool
	lax        bool

	operation       proj.OperationOptions
	spatialExplicit bool

	searchpaths bool
}

// Setters of -o, by normalised name. The flag tells whether the name was
// preceded by '-'.
var formatSetters = map[string]func(f *formats, on bool){
	"PROJ":      func(f *formats, on bool) { f.proj = on },
	"WKT2_2015": func(f *formats, on bool) { f.wkt2015 = on },
	"WKT2_2019": func(f *formats, on bool) { f.wkt2019 = on },
	"WKT2_2018": func(f *formats, on bool) { f.wkt2019 = on },
	"WKT1_GDAL": func(f *formats, on bool) { f.wkt1GDAL = on },
	"WKT1_ESRI": func(f *formats, on bool) { f.wkt1ESRI = on },
	"PROJJSON":  func(f *formats, on bool) { f.projjson = on },
	"WKT_ALL": func(f *formats, on bool) {
		f.wkt2019 = on
		f.wkt2015 = on
		f.wkt1GDAL = on
	},
}

// Formats that can only be switched on
var formatEnablers = map[string]func(f *formats){
	"ALL": func(f *formats) {
		f.proj = true
		f.wkt2019 = true
		f.wkt2015 = true
		f.wkt1GDAL = true
		f.wkt1ESRI = true
		f.projjson = true
	},
	"DEFAULT": func(f *formats) {
		f.proj = true
		f.wkt2019 = true
		f.wkt2015 = false
		f.wkt1GDAL = false
	},
	"WKT2_2015_SIMPLIFIED": func(f *formats) { f.wkt2015Simplified = true },
	"WKT2_2019_SIMPLIFIED": func(f *formats) { f.wkt2019Simplified = true },
	"WKT2_2018_SIMPLIFIED": func(f *formats) { f.wkt2019Simplified = true },
}

// "wkt2:2019", "WKT2-2019" and "WKT2_2019" are the same format
func normaliseFormat(s string) string {
	return strings.NewReplacer("-", "_", ":", "_").Replace(strings.ToUpper(s))
}

func (f *formats) set(format string) error {
	name := normaliseFormat(format)
	if enable, ok := formatEnablers[name]; ok {
		enable(f)
		return nil
	}
	on := true
	if strings.HasPrefix(format, "-") {
		on = false
		name = normaliseFormat(format[1:])
	}
	if set, ok := formatSetters[name]; ok {
		set(f, on)
		return nil
	}
	return usageError("Unrecognized value for option -o: " + format)
}

func parse(args []string) (*options, error) {
	opts := &options{}
	var positional []string

	// value returns the argument following the option at i, if any
	value := func(i int) (string, bool) {
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		v, hasValue := value(i)
		if hasValue {
			switch arg {
			case "-o", "-k", "-s", "--source-crs", "-t", "--target-crs",
				"--spatial-test", "--crs-extent-use", "--grid-check",
				"--pivot-crs", "--authority", "--accuracy":
				i++
			}
		}

		switch {
		case arg == "-o" && hasValue:
			opts.outSet = true
			for _, format := range strings.Split(v, ",") {
				if err := opts.out.set(format); err != nil {
					return nil, err
				}
			}
		case arg == "-k" && hasValue:
			switch strings.ToLower(v) {
			case "crs", "srs":
				opts.kind = "crs"
			case "operation", "ellipsoid", "datum", "ensemble":
				opts.kind = strings.ToLower(v)
			default:
				return nil, usageError("Unrecognized value for option -k: " + v)
			}
		case (arg == "-s" || arg == "--source-crs") && hasValue:
			opts.source = v
		case (arg == "-t" || arg == "--target-crs") && hasValue:
			opts.target = v
		case arg == "--spatial-test" && hasValue:
			opts.spatialExplicit = true
			switch strings.ToLower(v) {
			case "contains":
				opts.operation.SpatialCriterion = proj.StrictContainment
			case "intersects":
				opts.operation.SpatialCriterion = proj.PartialIntersection
			default:
				return nil, usageError("Unrecognized value for option --spatial-test: " + v)
			}
		case arg == "--crs-extent-use" && hasValue:
			switch strings.ToLower(v) {
			case "none":
				opts.operation.CRSExtentUse = proj.ExtentNone
			case "both":
				opts.operation.CRSExtentUse = proj.ExtentBoth
			case "intersection":
				opts.operation.CRSExtentUse = proj.ExtentIntersection
			case "smallest":
				opts.operation.CRSExtentUse = proj.ExtentSmallest
			default:
				return nil, usageError("Unrecognized value for option --crs-extent-use: " + v)
			}
		case arg == "--grid-check" && hasValue:
			switch strings.ToLower(v) {
			case "none":
				opts.operation.GridAvailability = proj.GridIgnored
			case "discard_missing":
				opts.operation.GridAvailability = proj.GridDiscardIfMissing
			case "sort":
				opts.operation.GridAvailability = proj.GridUsedForSorting
			case "known_available":
				opts.operation.GridAvailability = proj.GridKnownAvailable
			default:
				return nil, usageError("Unrecognized value for option --grid-check: " + v)
			}
		case arg == "--pivot-crs" && hasValue:
			switch strings.ToLower(v) {
			case "always":
				opts.operation.IntermediateCRS = proj.IntermediateAlways
			case "if_no_direct_transformation":
				opts.operation.IntermediateCRS = proj.IntermediateIfNoDirect
			case "never":
				opts.operation.IntermediateCRS = proj.IntermediateNever
			default:
				return nil, usageError("Unrecognized value for option --pivot-crs: " + v)
			}
		case arg == "--authority" && hasValue:
			opts.operation.Authority = v
		case arg == "--accuracy" && hasValue:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, usageError("Invalid value for option --accuracy: " + v)
			}
			// Negative values leave the accuracy unrestricted
			if f >= 0 {
				opts.operation.DesiredAccuracy = &f
			} else {
				opts.operation.DesiredAccuracy = nil
			}
		case arg == "-q" || arg == "--quiet":
			opts.quiet = true
		case arg == "--c-ify":
			opts.cify = true
		case arg == "--single-line":
			opts.singleLine = true
		case arg == "--summary":
			opts.summary = true
		case arg == "--lax":
			opts.lax = true
		case arg == "--hide-ballpark":
			opts.operation.HideBallpark = true
		case arg == "--show-superseded":
			opts.operation.ShowSuperseded = true
		case arg == "--allow-ellipsoidal-height-as-vertical-crs":
			opts.out.allowEllipsoidHeight = true
		case strings.EqualFold(arg, "--searchpaths"):
			opts.searchpaths = true
			return opts, nil
		case arg == "-?" || arg == "--help":
			return nil, usageError("")
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return nil, usageError("Unrecognized option: " + arg)
		default:
			// A second definition makes the pair source and target
			if len(positional) == 2 {
				return nil, usageError("Too many parameters: " + arg)
			}
			positional = append(positional, arg)
		}
	}

	switch len(positional) {
	case 1:
		opts.user = positional[0]
	case 2:
		if opts.source != "" || opts.target != "" {
			return nil, usageError("Too many parameters: " + positional[1])
		}
		opts.source, opts.target = positional[0], positional[1]
	}

	switch {
	case opts.source != "" && opts.target == "":
		return nil, usageError("Source CRS specified, but missing target CRS")
	case opts.source == "" && opts.target != "":
		return nil, usageError("Target CRS specified, but missing source CRS")
	case opts.source != "" && opts.target != "":
		if opts.user != "" {
			return nil, usageError("Unused extra value")
		}
	case opts.user == "":
		return nil, usageError("Missing user string")
	}

	if !opts.outSet {
		opts.out.proj = true
		opts.out.wkt2019 = true
	}
	if opts.quiet && opts.out.count() != 1 {
		return nil, usageError("-q can only be used with a single output format")
	}
	return opts, nil
}

// Reads @file definitions and turns AUTH:CODE of non-CRS kinds into URNs
func definition(user, kind, context string) (string, error) {
	s := user
	if strings.HasPrefix(s, "@") {
		b, err := os.ReadFile(s[1:])
		if err != nil {
			return "", fmt.Errorf("%s: cannot open %s", context, s[1:])
		}
		s = string(b)
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")

	if tokens := strings.Split(s, ":"); len(tokens) == 2 {
		switch kind {
		case "operation":
			return "urn:ogc:def:coordinateOperation:" + tokens[0] + "::" + tokens[1], nil
		case "ellipsoid", "datum", "ensemble":
			return "urn:ogc:def:" + kind + ":" + tokens[0] + "::" + tokens[1], nil
		}
	}
	if len(s) > 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.Contains(s, `\"`) {
		s = unCify(s)
	}
	return s, nil
}

// Formats s as a C string literal, one source line per line of s
func cify(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", "\\n\"\n\"")
	return `"` + s + `"`
}

func unCify(s string) string {
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, `\"`, "\x00")
	s = strings.ReplaceAll(s, "\\n\"", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.ReplaceAll(s, "\x00", `"`)
}

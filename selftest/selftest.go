// Package selftest checks that a loaded PROJ module works: library
// version, the projinfo command line, a coordinate conversion, axis
// descriptions and recovery from an invalid definition.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pebbe/proj/v9"
)

// Default tolerance of coordinate comparisons, in metres
const DefaultTolerance = 1e-3

// Env is what every case gets to work with
type Env struct {
	Module    proj.Module
	Log       *zap.Logger
	Tolerance float64
	// Trace scratch allocations at debug level
	KeeperDebug bool
	// Replaces the resource search path of every context, if not empty
	SearchPaths []string
}

// NewContext creates a context on the module of the environment. The
// caller closes it.
func (e *Env) NewContext() (*proj.Context, error) {
	opts := []proj.Option{proj.WithLogger(e.Log)}
	if e.KeeperDebug {
		opts = append(opts, proj.WithKeeperDebug())
	}
	ctx, err := proj.NewContext(e.Module, opts...)
	if err != nil {
		return nil, err
	}
	if len(e.SearchPaths) > 0 {
		if err := ctx.SetSearchPaths(e.SearchPaths); err != nil {
			ctx.Close()
			return nil, err
		}
	}
	return ctx, nil
}

// Case is one regression check
type Case struct {
	Name string
	Run  func(env *Env) error
}

// Select returns the cases named, in table order. No names selects all.
func Select(cases []Case, names []string) ([]Case, error) {
	if len(names) == 0 {
		return cases, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var selected []Case
	for _, c := range cases {
		if want[c.Name] {
			selected = append(selected, c)
			delete(want, c.Name)
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, fmt.Errorf("selftest: unknown case %q", n)
		}
	}
	return selected, nil
}

// CheckTolerance fails if got is further than tol from want
func CheckTolerance(what string, got, want, tol float64) error {
	if math.IsNaN(got) || math.Abs(got-want) >= tol {
		return fmt.Errorf("%s: got %.10g, want %.10g within %g", what, got, want, tol)
	}
	return nil
}

// Report of a run
type Report struct {
	Run      int      // cases started
	Passed   []string // names of the cases that passed
	Failed   string   // name of the failed case, if any
	Duration time.Duration
}

// Runner runs cases in order and stops at the first failure
type Runner struct {
	Env   Env
	Cases []Case
	// Console output in the format of the PROJ test harness. Discarded if nil.
	Out io.Writer
}

// Run executes the cases. The error names the case that failed. ctx is
// checked between cases; a case itself runs to completion.
func (r *Runner) Run(ctx context.Context) (report Report, err error) {
	env := r.Env
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	if env.Tolerance <= 0 {
		env.Tolerance = DefaultTolerance
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	if env.Module == nil {
		return Report{}, errors.New("selftest: no module")
	}

	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	fmt.Fprintln(out, "Starting tests")
	for _, c := range r.Cases {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("selftest: %w", err)
		}
		fmt.Fprintf(out, "+++++ Running test %q\n", c.Name)
		log := env.Log.With(zap.String("case", c.Name))
		log.Info("running test")

		report.Run++
		caseStart := time.Now()
		caseEnv := env
		caseEnv.Log = log
		if err := c.Run(&caseEnv); err != nil {
			report.Failed = c.Name
			log.Error("test failed", zap.Error(err), zap.Duration("elapsed", time.Since(caseStart)))
			err = fmt.Errorf("selftest: %s: %w", c.Name, err)
			fmt.Fprintf(out, "Tests failed: %v\n", err)
			return report, err
		}
		log.Debug("test passed", zap.Duration("elapsed", time.Since(caseStart)))
		report.Passed = append(report.Passed, c.Name)
	}
	fmt.Fprintf(out, "Number of tests run: %d\n", report.Run)
	env.Log.Info("tests done", zap.Int("count", report.Run))
	return report, nil
}

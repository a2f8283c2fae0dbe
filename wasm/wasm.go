// Package wasm runs a WebAssembly build of PROJ inside the process with
// wazero. The module is expected to be an emscripten build exporting the
// PROJ C API together with malloc and free.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/emscripten"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/pebbe/proj/v9"
)

// Where WithDataDir is mounted inside the module
const dataMount = "/proj"

// Entry points without which the module is useless
var required = []proj.Func{
	proj.FnInfo,
	proj.FnContextCreate,
	proj.FnContextDestroy,
	proj.FnContextErrno,
	proj.FnContextErrnoString,
	proj.FnCreate,
	proj.FnCreateCRSToCRS,
	proj.FnDestroy,
	proj.FnTransArray,
	proj.FnCRSGetCoordinateSystem,
	proj.FnCSGetAxisCount,
	proj.FnCSGetAxisInfo,
}

type config struct {
	log         *zap.Logger
	memoryPages uint32
	dataDir     string
	interpreter bool
	stdout      io.Writer
	stderr      io.Writer
}

type Option func(*config)

func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Limit the linear memory of the module, in pages of 64 KiB
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) {
		c.memoryPages = pages
	}
}

// Make dir, holding proj.db and grids, visible to the module as PROJ_DATA
func WithDataDir(dir string) Option {
	return func(c *config) {
		c.dataDir = dir
	}
}

// Run the module in the interpreter instead of compiling it
func WithInterpreter() Option {
	return func(c *config) {
		c.interpreter = true
	}
}

// Where the module writes its standard output and error. Discarded by default.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(c *config) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// Module is one instance of PROJ compiled to WebAssembly. Calls are
// serialised. Addresses are offsets in the linear memory of the module.
type Module struct {
	mu      sync.Mutex
	ctx     context.Context
	runtime wazero.Runtime
	mod     api.Module
	mem     api.Memory
	log     *zap.Logger

	funcs  [proj.NumFuncs]api.Function
	malloc api.Function
	free   api.Function
	date   api.Function
}

var (
	_ proj.Module     = (*Module)(nil)
	_ proj.BuildDater = (*Module)(nil)
)

// Load reads a PROJ module from a file
func LoadFile(ctx context.Context, filename string, opts ...Option) (*Module, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("wasm: %w", err)
	}
	return Load(ctx, b, opts...)
}

// Load compiles and instantiates a PROJ module. This is the only step that
// takes a context; every later call runs to completion.
func Load(ctx context.Context, wasmBytes []byte, opts ...Option) (*Module, error) {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.interpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	}
	if cfg.memoryPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rc)

	m, err := instantiate(ctx, r, wasmBytes, cfg)
	if err != nil {
		r.Close(ctx)
		return nil, err
	}
	return m, nil
}

func instantiate(ctx context.Context, r wazero.Runtime, wasmBytes []byte, cfg config) (*Module, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return nil, fmt.Errorf("wasm: instantiate WASI: %w", err)
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wasm: compile: %w", err)
	}

	env := r.NewHostModuleBuilder("env")
	exporter, err := emscripten.NewFunctionExporterForModule(compiled)
	if err != nil {
		return nil, fmt.Errorf("wasm: emscripten imports: %w", err)
	}
	exporter.ExportFunctions(env)
	if _, err := env.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("wasm: instantiate env: %w", err)
	}

	mc := wazero.NewModuleConfig().
		WithName("proj").
		WithStartFunctions()
	if cfg.stdout != nil {
		mc = mc.WithStdout(cfg.stdout)
	}
	if cfg.stderr != nil {
		mc = mc.WithStderr(cfg.stderr)
	}
	if cfg.dataDir != "" {
		mc = mc.
			WithFSConfig(wazero.NewFSConfig().WithReadOnlyDirMount(cfg.dataDir, dataMount)).
			WithEnv("PROJ_DATA", dataMount)
	}

	mod, err := r.InstantiateModule(ctx, compiled, mc)
	if err != nil {
		return nil, fmt.Errorf("wasm: instantiate: %w", err)
	}

	for _, start := range []string{"_initialize", "__wasm_call_ctors"} {
		if fn := mod.ExportedFunction(start); fn != nil {
			if _, err := fn.Call(ctx); err != nil {
				return nil, fmt.Errorf("wasm: %s: %w", start, err)
			}
			break
		}
	}

	m := &Module{
		ctx:     context.WithoutCancel(ctx),
		runtime: r,
		mod:     mod,
		log:     cfg.log,
		malloc:  mod.ExportedFunction("malloc"),
		free:    mod.ExportedFunction("free"),
		date:    mod.ExportedFunction("get_compilation_date"),
	}
	for f := proj.Func(0); f < proj.NumFuncs; f++ {
		m.funcs[f] = mod.ExportedFunction(f.Symbol())
	}

	var missing []string
	if m.malloc == nil {
		missing = append(missing, "malloc")
	}
	if m.free == nil {
		missing = append(missing, "free")
	}
	for _, f := range required {
		if m.funcs[f] == nil {
			missing = append(missing, f.Symbol())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("wasm: module does not export %s", strings.Join(missing, ", "))
	}

	if m.mem = mod.Memory(); m.mem == nil {
		return nil, errors.New("wasm: module has no memory")
	}

	for f := proj.Func(0); f < proj.NumFuncs; f++ {
		if m.funcs[f] == nil {
			m.log.Debug("optional entry point not exported", zap.Stringer("func", f))
		}
	}
	m.log.Info("PROJ module loaded",
		zap.Uint32("memory_bytes", m.mem.Size()),
		zap.Bool("data_dir", cfg.dataDir != ""))
	return m, nil
}

func (m *Module) call(fn api.Function, name string, args ...uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mod == nil {
		return 0, errClosed
	}
	res, err := fn.Call(m.ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("wasm: %s: %w", name, err)
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

var errClosed = errors.New("wasm: module is closed")

func (m *Module) Call(fn proj.Func, args ...uint64) (uint64, error) {
	if err := fn.CheckArgs(args); err != nil {
		return 0, err
	}
	f := m.funcs[fn]
	if f == nil {
		return 0, fmt.Errorf("wasm: %s not exported: %w", fn, errors.ErrUnsupported)
	}
	return m.call(f, fn.Symbol(), args...)
}

// CompilationDate returns the build date of the module if it exports
// get_compilation_date, and an error wrapping errors.ErrUnsupported if not.
func (m *Module) CompilationDate() (string, error) {
	if m.date == nil {
		return "", fmt.Errorf("wasm: get_compilation_date not exported: %w", errors.ErrUnsupported)
	}
	r, err := m.call(m.date, "get_compilation_date")
	if err != nil {
		return "", err
	}
	return m.ReadString(proj.Ptr(r))
}

func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mod == nil {
		return nil
	}
	m.mod = nil
	return m.runtime.Close(m.ctx)
}

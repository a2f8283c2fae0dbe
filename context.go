package proj

import (
	"runtime"

	"go.uber.org/zap"
)

// A threading context of the PROJ library, holding every object created
// through it.
type Context struct {
	m           Module
	ptr         Ptr
	opened      bool
	counter     uint64
	projections map[uint64]*PJ
	log         *zap.Logger
	sink        *logSink
	keeperDebug bool
}

// Library log lines of one context. The module holds the callback that
// fills it, so it must not refer back to the Context.
type logSink struct {
	log         *zap.Logger
	diagnostics []string
	logged      uint64
}

func (s *logSink) add(level int, msg string) {
	s.log.Debug("proj", zap.Int("level", level), zap.String("msg", msg))
	if len(s.diagnostics) == maxDiagnostics {
		s.diagnostics = s.diagnostics[1:]
	}
	s.diagnostics = append(s.diagnostics, msg)
	s.logged++
}

type Option func(*Context)

// Log library diagnostics and object lifetimes to log
func WithLogger(log *zap.Logger) Option {
	return func(ctx *Context) {
		if log != nil {
			ctx.log = log
		}
	}
}

// Log the scratch allocations of every call, through the logger of the
// context
func WithKeeperDebug() Option {
	return func(ctx *Context) {
		ctx.keeperDebug = true
	}
}

const maxDiagnostics = 64

// Create a context
func NewContext(m Module, opts ...Option) (*Context, error) {
	r, err := m.Call(FnContextCreate)
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, &Error{Op: FnContextCreate.Symbol(), Null: true}
	}
	ctx := &Context{
		m:           m,
		ptr:         Ptr(r),
		counter:     0,
		projections: make(map[uint64]*PJ),
		opened:      true,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ctx)
	}

	ctx.sink = &logSink{log: ctx.log}
	if lc, ok := m.(LogCapturer); ok {
		if err := lc.SetLogFunc(ctx.ptr, ctx.sink.add); err != nil {
			ctx.log.Warn("cannot capture library log", zap.Error(err))
		}
	}

	runtime.SetFinalizer(ctx, (*Context).Close)
	return ctx, nil
}

// Close a context and every object still open in it
func (ctx *Context) Close() {
	if ctx.opened {
		indexen := make([]uint64, 0, len(ctx.projections))
		for i := range ctx.projections {
			indexen = append(indexen, i)
		}
		for _, i := range indexen {
			p := ctx.projections[i]
			if p.opened {
				ctx.destroy(p.ptr)
				p.context = nil
				p.opened = false
			}
			delete(ctx.projections, i)
		}

		if lc, ok := ctx.m.(LogCapturer); ok {
			lc.ClearLogFunc(ctx.ptr)
		}
		if _, err := ctx.m.Call(FnContextDestroy, uint64(ctx.ptr)); err != nil {
			ctx.log.Warn("proj_context_destroy failed", zap.Error(err))
		}
		ctx.ptr = 0
		ctx.opened = false
		runtime.SetFinalizer(ctx, nil)
	}
}

// The module the context lives in
func (ctx *Context) Module() Module {
	return ctx.m
}

// The address of the PJ_CONTEXT
func (ctx *Context) Ptr() Ptr {
	return ctx.ptr
}

// Number of objects still open
func (ctx *Context) Open() int {
	return len(ctx.projections)
}

// Create a transformation object or a CRS from a proj-string, a WKT string,
// an AUTH:CODE or any other input accepted by proj_create
func (ctx *Context) Create(definition string) (*PJ, error) {
	if !ctx.opened {
		return nil, ErrContextClosed
	}

	k := ctx.keeper()
	defer k.Release()

	cs, err := k.String(definition)
	if err != nil {
		return nil, err
	}
	mark := ctx.sink.logged
	r, err := ctx.m.Call(FnCreate, uint64(ctx.ptr), uint64(cs))
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, ctx.lastError(FnCreate.Symbol(), true, mark)
	}
	return ctx.adopt(Ptr(r)), nil
}

// Create a transformation object between two CRS
func (ctx *Context) CreateCRSToCRS(source, target string) (*PJ, error) {
	if !ctx.opened {
		return nil, ErrContextClosed
	}

	k := ctx.keeper()
	defer k.Release()

	src, err := k.String(source)
	if err != nil {
		return nil, err
	}
	dst, err := k.String(target)
	if err != nil {
		return nil, err
	}
	mark := ctx.sink.logged
	r, err := ctx.m.Call(FnCreateCRSToCRS, uint64(ctx.ptr), uint64(src), uint64(dst), 0)
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, ctx.lastError(FnCreateCRSToCRS.Symbol(), true, mark)
	}
	return ctx.adopt(Ptr(r)), nil
}

// Set the directories searched for proj.db and grids
func (ctx *Context) SetSearchPaths(paths []string) error {
	if !ctx.opened {
		return ErrContextClosed
	}

	k := ctx.keeper()
	defer k.Release()

	arr, err := k.StringArray(paths)
	if err != nil {
		return err
	}
	_, err = ctx.m.Call(FnContextSetSearchPaths, uint64(ctx.ptr), I32(len(paths)), uint64(arr))
	return err
}

// Last error number of the context
func (ctx *Context) Errno() int {
	if !ctx.opened {
		return 0
	}
	r, err := ctx.m.Call(FnContextErrno, uint64(ctx.ptr))
	if err != nil {
		return 0
	}
	return AsInt(r)
}

// Text of an error number
func (ctx *Context) ErrnoString(code int) string {
	if !ctx.opened {
		return ""
	}
	r, err := ctx.m.Call(FnContextErrnoString, uint64(ctx.ptr), I32(code))
	if err != nil {
		return ""
	}
	s, _ := ctx.m.ReadString(Ptr(r))
	return s
}

// Diagnostic messages emitted by the library, oldest first. Empty if the
// module cannot route them to Go.
func (ctx *Context) Diagnostics() []string {
	return append([]string(nil), ctx.sink.diagnostics...)
}

// The error of the last failed call. Diagnostics logged after mark are
// appended to the message.
func (ctx *Context) lastError(op string, null bool, mark uint64) error {
	code := ctx.Errno()
	e := &Error{Op: op, Code: code, Null: null}
	if code != 0 {
		e.Msg = ctx.ErrnoString(code)
	}
	if n := len(ctx.sink.diagnostics); n > 0 && ctx.sink.logged > mark {
		last := ctx.sink.diagnostics[n-1]
		if e.Msg == "" {
			e.Msg = last
		} else {
			e.Msg += ": " + last
		}
	}
	return e
}

func (ctx *Context) adopt(ptr Ptr) *PJ {
	p := &PJ{
		opened:  true,
		context: ctx,
		index:   ctx.counter,
		ptr:     ptr,
	}
	ctx.projections[ctx.counter] = p
	ctx.counter++

	runtime.SetFinalizer(p, (*PJ).Close)
	return p
}

func (ctx *Context) destroy(ptr Ptr) {
	if _, err := ctx.m.Call(FnDestroy, uint64(ptr)); err != nil {
		ctx.log.Warn("proj_destroy failed", zap.Uint64("ptr", uint64(ptr)), zap.Error(err))
	}
}

func (ctx *Context) keeper() *Keeper {
	opts := []KeeperOption{WithErrno(ctx.ptr)}
	if ctx.keeperDebug {
		opts = append(opts, WithDebug(ctx.log))
	}
	return NewKeeper(ctx.m, opts...)
}

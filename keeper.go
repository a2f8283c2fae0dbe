package proj

import (
	"go.uber.org/zap"
)

// Keeper records addresses obtained from a module and releases them all at
// once. Objects are released with proj_destroy, raw blocks with Free. On
// Release, objects go first, then blocks, each in reverse order of
// acquisition.
//
// A Keeper is meant to live for one scope:
//
//	k := proj.NewKeeper(m)
//	defer k.Release()
//
// Addresses that are never released leak inside the module.
type Keeper struct {
	m         Module
	log       *zap.Logger
	debug     bool
	ctx       Ptr // for the text of errors, may be 0
	toDestroy []Ptr
	toFree    []Ptr
}

type KeeperOption func(*Keeper)

// Log every add and release at debug level
func WithDebug(log *zap.Logger) KeeperOption {
	return func(k *Keeper) {
		if log != nil {
			k.log = log
			k.debug = true
		}
	}
}

// Describe NULL results of Call with the errno of context c
func WithErrno(c Ptr) KeeperOption {
	return func(k *Keeper) {
		k.ctx = c
	}
}

func NewKeeper(m Module, opts ...KeeperOption) *Keeper {
	if m == nil {
		panic("proj: module cannot be nil in Keeper")
	}
	k := &Keeper{
		m:   m,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Add records p for release and returns it unchanged. If destroy is true,
// p is released with proj_destroy, otherwise with Free. NULL is ignored.
func (k *Keeper) Add(p Ptr, destroy bool) Ptr {
	if p == 0 {
		return 0
	}
	if destroy {
		if k.debug {
			k.log.Debug("add destroy", zap.Uint64("ptr", uint64(p)))
		}
		k.toDestroy = append(k.toDestroy, p)
	} else {
		if k.debug {
			k.log.Debug("add free", zap.Uint64("ptr", uint64(p)))
		}
		k.toFree = append(k.toFree, p)
	}
	return p
}

// Call an entry point that returns a PJ object and record the result. A
// NULL result is an error, with the errno text if the keeper has a context.
func (k *Keeper) Call(fn Func, args ...uint64) (Ptr, error) {
	r, err := k.m.Call(fn, args...)
	if err != nil {
		return 0, err
	}
	if r == 0 {
		return 0, k.nullError(fn)
	}
	return k.Add(Ptr(r), true), nil
}

func (k *Keeper) nullError(fn Func) error {
	e := &Error{Op: fn.Symbol(), Null: true}
	if k.ctx == 0 {
		return e
	}
	r, err := k.m.Call(FnContextErrno, uint64(k.ctx))
	if err != nil || AsInt(r) == 0 {
		return e
	}
	e.Code = AsInt(r)
	if r, err = k.m.Call(FnContextErrnoString, uint64(k.ctx), I32(e.Code)); err == nil {
		e.Msg, _ = k.m.ReadString(Ptr(r))
	}
	return e
}

// Allocate size bytes and record the block.
func (k *Keeper) Malloc(size int) (Ptr, error) {
	p, err := k.m.Malloc(size)
	if err != nil {
		return 0, err
	}
	if p == 0 {
		return 0, &Error{Op: "malloc", Null: true}
	}
	return k.Add(p, false), nil
}

// Copy s into the module and record the block.
func (k *Keeper) String(s string) (Ptr, error) {
	p, err := k.m.NewString(s)
	if err != nil {
		return 0, err
	}
	if p == 0 {
		return 0, &Error{Op: "string", Null: true}
	}
	return k.Add(p, false), nil
}

// Build a NULL-terminated array of C strings, as taken by the options
// argument of the PROJ API. An empty list yields NULL.
func (k *Keeper) StringArray(list []string) (Ptr, error) {
	if len(list) == 0 {
		return 0, nil
	}
	size := k.m.PtrSize()
	arr, err := k.Malloc((len(list) + 1) * size)
	if err != nil {
		return 0, err
	}
	for i, s := range list {
		p, err := k.String(s)
		if err != nil {
			return 0, err
		}
		if err := k.m.WritePtr(arr+Ptr(i*size), p); err != nil {
			return 0, err
		}
	}
	return arr, nil
}

// Pending is the number of addresses not yet released.
func (k *Keeper) Pending() int {
	return len(k.toDestroy) + len(k.toFree)
}

// Release everything recorded so far. It is safe to call more than once;
// later calls only release what was added in between. Every address is
// released even if some fail; the first failure is returned.
func (k *Keeper) Release() error {
	var first error
	for i := len(k.toDestroy) - 1; i >= 0; i-- {
		p := k.toDestroy[i]
		if k.debug {
			k.log.Debug("call destroy", zap.Uint64("ptr", uint64(p)))
		}
		if _, err := k.m.Call(FnDestroy, uint64(p)); err != nil && first == nil {
			first = err
		}
	}
	k.toDestroy = nil

	for i := len(k.toFree) - 1; i >= 0; i-- {
		p := k.toFree[i]
		if k.debug {
			k.log.Debug("call free", zap.Uint64("ptr", uint64(p)))
		}
		if err := k.m.Free(p); err != nil && first == nil {
			first = err
		}
	}
	k.toFree = nil
	return first
}

package wasm

import (
	"bytes"
	"fmt"

	"github.com/pebbe/proj/v9"
)

func (m *Module) PtrSize() int {
	return 4
}

func (m *Module) Malloc(size int) (proj.Ptr, error) {
	if size < 1 {
		size = 1
	}
	r, err := m.call(m.malloc, "malloc", uint64(uint32(size)))
	if err != nil || r == 0 {
		return 0, err
	}
	p := uint32(r)
	if !m.mem.Write(p, make([]byte, size)) {
		return 0, outOfRange(proj.Ptr(p), size)
	}
	return proj.Ptr(p), nil
}

func (m *Module) Free(p proj.Ptr) error {
	if p == 0 {
		return nil
	}
	_, err := m.call(m.free, "free", uint64(p))
	return err
}

func (m *Module) NewString(s string) (proj.Ptr, error) {
	r, err := m.call(m.malloc, "malloc", uint64(uint32(len(s)+1)))
	if err != nil || r == 0 {
		return 0, err
	}
	p := uint32(r)
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if !m.mem.Write(p, buf) {
		return 0, outOfRange(proj.Ptr(p), len(buf))
	}
	return proj.Ptr(p), nil
}

func (m *Module) ReadString(p proj.Ptr) (string, error) {
	if p == 0 {
		return "", nil
	}
	size := m.mem.Size()
	if uint64(p) >= uint64(size) {
		return "", outOfRange(p, 1)
	}
	buf, ok := m.mem.Read(uint32(p), size-uint32(p))
	if !ok {
		return "", outOfRange(p, 1)
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return "", fmt.Errorf("wasm: unterminated string at %d", p)
}

func (m *Module) ReadPtr(p proj.Ptr) (proj.Ptr, error) {
	v, ok := m.mem.ReadUint32Le(uint32(p))
	if !ok {
		return 0, outOfRange(p, 4)
	}
	return proj.Ptr(v), nil
}

func (m *Module) WritePtr(p proj.Ptr, v proj.Ptr) error {
	if !m.mem.WriteUint32Le(uint32(p), uint32(v)) {
		return outOfRange(p, 4)
	}
	return nil
}

func (m *Module) ReadInt32(p proj.Ptr) (int32, error) {
	v, ok := m.mem.ReadUint32Le(uint32(p))
	if !ok {
		return 0, outOfRange(p, 4)
	}
	return int32(v), nil
}

func (m *Module) ReadFloat64(p proj.Ptr) (float64, error) {
	v, ok := m.mem.ReadFloat64Le(uint32(p))
	if !ok {
		return 0, outOfRange(p, 8)
	}
	return v, nil
}

func (m *Module) WriteFloat64(p proj.Ptr, v float64) error {
	if !m.mem.WriteFloat64Le(uint32(p), v) {
		return outOfRange(p, 8)
	}
	return nil
}

func outOfRange(p proj.Ptr, n int) error {
	return fmt.Errorf("wasm: access of %d bytes at %d out of range", n, p)
}

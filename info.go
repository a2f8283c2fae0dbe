package proj

import (
	"fmt"
)

type LibInfo struct {
	Major      int    // Major version number.
	Minor      int    // Minor version number.
	Patch      int    // Patch level of release.
	Release    string // Release info. Version number and release date, e.g. “Rel. 9.8.0, March 1st, 2026”.
	Version    string // Text representation of the full version number, e.g. “9.8.0”.
	Searchpath string // Search path for PROJ. List of directories separated by semicolons (Windows) or colons (non-Windows).
}

// Space reserved for a PJ_INFO, on any pointer size
const infoSize = 64

// Get information about the PROJ library in m
func Info(m Module) (LibInfo, error) {
	k := NewKeeper(m)
	defer k.Release()

	out, err := k.Malloc(infoSize)
	if err != nil {
		return LibInfo{}, err
	}
	if _, err := m.Call(FnInfo, uint64(out)); err != nil {
		return LibInfo{}, err
	}

	var v [3]int32
	for i := range v {
		if v[i], err = m.ReadInt32(out + Ptr(4*i)); err != nil {
			return LibInfo{}, err
		}
	}

	// The three string pointers follow the ints, aligned to pointer size
	size := m.PtrSize()
	base := (12 + size - 1) / size * size
	var s [3]string
	for i := range s {
		p, err := m.ReadPtr(out + Ptr(base+i*size))
		if err != nil {
			return LibInfo{}, err
		}
		if s[i], err = m.ReadString(p); err != nil {
			return LibInfo{}, err
		}
	}

	return LibInfo{
		Major:      int(v[0]),
		Minor:      int(v[1]),
		Patch:      int(v[2]),
		Release:    s[0],
		Version:    s[1],
		Searchpath: s[2],
	}, nil
}

// Whether the library is at least version major.minor
func (info LibInfo) AtLeast(major, minor int) bool {
	return info.Major > major || info.Major == major && info.Minor >= minor
}

// “major.minor.patch”
func (info LibInfo) Triple() string {
	return fmt.Sprintf("%d.%d.%d", info.Major, info.Minor, info.Patch)
}

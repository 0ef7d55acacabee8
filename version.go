package olecf

import "fmt"

const (
	V3 Version = 3
	V4 Version = 4
)

// Version is the major format version; it fixes the sector geometry.
type Version int

func VersionNumber(v uint16) (Version, error) {
	switch v {
	case 3:
		return V3, nil
	case 4:
		return V4, nil
	default:
		return 0, fmt.Errorf("major version %d: %w", v, ErrUnsupportedVersion)
	}
}

// SectorShift returns the sector size shift for this version (9 or 12).
func (v Version) SectorShift() uint16 {
	return uint16(v * 3)
}

// SectorLen returns the sector size in bytes (512 or 4096).
func (v Version) SectorLen() int {
	return 1 << v.SectorShift()
}

// StreamSizeMask masks the stream size field; version 3 keeps only the
// low 32 bits.
func (v Version) StreamSizeMask() uint64 {
	if v == V3 {
		return 0xffffffff
	}
	return 0xffffffffffffffff
}

func (v Version) DirEntriesPerSector() int {
	return v.SectorLen() / DIR_ENTRY_LEN
}

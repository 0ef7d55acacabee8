package olecf

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

// dirEntry is one decoded 128-byte directory record. Entries form an
// arena; LeftSibling, RightSibling and Child are positional indices
// into it, exactly as the format stores them.
type dirEntry struct {
	Name         string
	Type         EntryType
	Color        Color
	LeftSibling  uint32
	RightSibling uint32
	Child        uint32
	CLSID        uuid.UUID
	StateBits    uint32
	Created      time.Time
	Modified     time.Time
	StartSector  uint32
	StreamSize   uint64
}

// Record field offsets, per MS-CFB.
const (
	recOffNameLen     = 64
	recOffType        = 66
	recOffColor       = 67
	recOffLeft        = 68
	recOffRight       = 72
	recOffChild       = 76
	recOffCLSID       = 80
	recOffStateBits   = 96
	recOffCreated     = 100
	recOffModified    = 108
	recOffStartSector = 116
	recOffStreamSize  = 120
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func parseDirEntry(rec []byte, v Version, mode Mode, log *zap.Logger) (*dirEntry, error) {
	if len(rec) < DIR_ENTRY_LEN {
		return nil, fmt.Errorf("directory record is %d bytes: %w", len(rec), ErrCorruptDirectory)
	}

	typ, knownType := entryTypeFromByte(rec[recOffType])
	if !knownType {
		if mode.IsStrict() {
			return nil, fmt.Errorf("directory record with type tag %d: %w", rec[recOffType], ErrCorruptDirectory)
		}
		log.Warn("unknown directory entry type, treating as unallocated",
			zap.Uint8("type", rec[recOffType]))
	}
	if typ == TypeUnallocated {
		// Unallocated slots stay reserved so indices keep their meaning,
		// but nothing else in the record is trustworthy.
		return &dirEntry{
			Type:         TypeUnallocated,
			LeftSibling:  NO_STREAM,
			RightSibling: NO_STREAM,
			Child:        NO_STREAM,
		}, nil
	}

	nameLen := int(binary.LittleEndian.Uint16(rec[recOffNameLen:]))
	if nameLen > 2*(MAX_NAME_LEN+1) {
		if mode.IsStrict() {
			return nil, fmt.Errorf("name length %d bytes: %w", nameLen, ErrNameTooLong)
		}
		log.Warn("truncating oversized directory entry name", zap.Int("bytes", nameLen))
		nameLen = 2 * (MAX_NAME_LEN + 1)
	}
	if nameLen%2 != 0 {
		if mode.IsStrict() {
			return nil, fmt.Errorf("odd name length %d: %w", nameLen, ErrCorruptDirectory)
		}
		nameLen--
	}
	// Drop the UTF-16 terminating NUL.
	if nameLen >= 2 && rec[nameLen-2] == 0 && rec[nameLen-1] == 0 {
		nameLen -= 2
	}
	name, err := utf16le.NewDecoder().Bytes(rec[:nameLen])
	if err != nil {
		return nil, fmt.Errorf("decoding entry name: %v: %w", err, ErrCorruptDirectory)
	}

	color, knownColor := colorFromByte(rec[recOffColor])
	if !knownColor && mode.IsStrict() {
		return nil, fmt.Errorf("directory record with color flag %d: %w", rec[recOffColor], ErrCorruptDirectory)
	}

	return &dirEntry{
		Name:         string(name),
		Type:         typ,
		Color:        color,
		LeftSibling:  binary.LittleEndian.Uint32(rec[recOffLeft:]),
		RightSibling: binary.LittleEndian.Uint32(rec[recOffRight:]),
		Child:        binary.LittleEndian.Uint32(rec[recOffChild:]),
		CLSID:        clsidFromBytes(rec[recOffCLSID : recOffCLSID+16]),
		StateBits:    binary.LittleEndian.Uint32(rec[recOffStateBits:]),
		Created:      filetimeToTime(binary.LittleEndian.Uint64(rec[recOffCreated:])),
		Modified:     filetimeToTime(binary.LittleEndian.Uint64(rec[recOffModified:])),
		StartSector:  binary.LittleEndian.Uint32(rec[recOffStartSector:]),
		StreamSize:   binary.LittleEndian.Uint64(rec[recOffStreamSize:]) & v.StreamSizeMask(),
	}, nil
}

// clsidFromBytes converts the mixed-endian on-disk GUID layout into the
// canonical big-endian form uuid expects.
func clsidFromBytes(b []byte) uuid.UUID {
	var g uuid.UUID
	g[0], g[1], g[2], g[3] = b[3], b[2], b[1], b[0]
	g[4], g[5] = b[5], b[4]
	g[6], g[7] = b[7], b[6]
	copy(g[8:], b[8:16])
	return g
}

var filetimeEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// filetimeToTime converts a Windows FILETIME (100ns ticks since 1601)
// to a time.Time; the all-zero value means "not recorded" and maps to
// the zero time.
func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return filetimeEpoch.Add(time.Duration(ft) * 100)
}

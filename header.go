package olecf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// Header carries the format parameters decoded from the fixed 512-byte
// region at the front of the container.
type Header struct {
	Version            Version
	NumDirSectors      uint32
	NumFATSectors      uint32
	FirstDirSector     uint32
	FirstMiniFATSector uint32
	NumMiniFATSectors  uint32
	FirstDIFATSector   uint32
	NumDIFATSectors    uint32
	MiniStreamCutoff   uint32

	// DIFATHead holds the up to 109 FAT sector ids stored inline in the
	// header, the first segment of the DIFAT.
	DIFATHead []uint32
}

// Field offsets within the header region, per MS-CFB.
const (
	hdrOffMinorVersion   = 24
	hdrOffMajorVersion   = 26
	hdrOffByteOrder      = 28
	hdrOffSectorShift    = 30
	hdrOffMiniShift      = 32
	hdrOffNumDirSectors  = 40
	hdrOffNumFATSectors  = 44
	hdrOffFirstDirSector = 48
	hdrOffCutoff         = 56
	hdrOffFirstMiniFAT   = 60
	hdrOffNumMiniFAT     = 64
	hdrOffFirstDIFAT     = 68
	hdrOffNumDIFAT       = 72
	hdrOffDIFATHead      = 76
)

// parseHeader is a pure decode of the header region; it touches no
// sectors.
func parseHeader(buf []byte, mode Mode, log *zap.Logger) (*Header, error) {
	if len(buf) < HEADER_LEN {
		return nil, fmt.Errorf("header region is %d bytes: %w", len(buf), ErrMalformedHeader)
	}

	if !bytes.Equal(buf[:len(MAGIC)], MAGIC) {
		return nil, fmt.Errorf("magic is % x: %w", buf[:len(MAGIC)], ErrInvalidSignature)
	}

	version, err := VersionNumber(binary.LittleEndian.Uint16(buf[hdrOffMajorVersion:]))
	if err != nil {
		return nil, err
	}

	if bom := binary.LittleEndian.Uint16(buf[hdrOffByteOrder:]); bom != BYTE_ORDER_MARK {
		return nil, fmt.Errorf("byte order mark %#04x: %w", bom, ErrMalformedHeader)
	}

	if shift := binary.LittleEndian.Uint16(buf[hdrOffSectorShift:]); shift != version.SectorShift() {
		return nil, fmt.Errorf("sector shift %d for version %d: %w", shift, version, ErrMalformedHeader)
	}

	if shift := binary.LittleEndian.Uint16(buf[hdrOffMiniShift:]); shift != MINI_SECTOR_SHIFT {
		return nil, fmt.Errorf("mini sector shift %d: %w", shift, ErrMalformedHeader)
	}

	cutoff := binary.LittleEndian.Uint32(buf[hdrOffCutoff:])
	if cutoff != MINI_STREAM_CUTOFF {
		if mode.IsStrict() {
			return nil, fmt.Errorf("mini stream cutoff %d: %w", cutoff, ErrMalformedHeader)
		}
		log.Warn("nonstandard mini stream cutoff, assuming default",
			zap.Uint32("cutoff", cutoff))
		cutoff = MINI_STREAM_CUTOFF
	}

	h := &Header{
		Version:            version,
		NumDirSectors:      binary.LittleEndian.Uint32(buf[hdrOffNumDirSectors:]),
		NumFATSectors:      binary.LittleEndian.Uint32(buf[hdrOffNumFATSectors:]),
		FirstDirSector:     binary.LittleEndian.Uint32(buf[hdrOffFirstDirSector:]),
		FirstMiniFATSector: binary.LittleEndian.Uint32(buf[hdrOffFirstMiniFAT:]),
		NumMiniFATSectors:  binary.LittleEndian.Uint32(buf[hdrOffNumMiniFAT:]),
		FirstDIFATSector:   binary.LittleEndian.Uint32(buf[hdrOffFirstDIFAT:]),
		NumDIFATSectors:    binary.LittleEndian.Uint32(buf[hdrOffNumDIFAT:]),
		MiniStreamCutoff:   cutoff,
	}

	// Some writers use FREE_SECTOR where END_OF_CHAIN is meant.
	if h.FirstDIFATSector == FREE_SECTOR {
		h.FirstDIFATSector = END_OF_CHAIN
	}

	h.DIFATHead = make([]uint32, NUM_HEADER_DIFAT_ENTRIES)
	for i := range h.DIFATHead {
		h.DIFATHead[i] = binary.LittleEndian.Uint32(buf[hdrOffDIFATHead+i*4:])
	}

	return h, nil
}

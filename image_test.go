package olecf

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

// Helpers assembling synthetic containers in memory, in the spirit of
// a mock block device: every test image is built sector by sector so a
// test can corrupt a single field at a known offset.

func put16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func put32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func put64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }

type headerSpec struct {
	version    Version
	numFat     uint32
	firstDir   uint32
	firstMini  uint32
	numMini    uint32
	firstDifat uint32
	numDifat   uint32
	difatHead  []uint32
}

func buildHeader(spec headerSpec) []byte {
	h := make([]byte, HEADER_LEN)
	copy(h, MAGIC)
	put16(h, hdrOffMinorVersion, 0x3e)
	put16(h, hdrOffMajorVersion, uint16(spec.version))
	put16(h, hdrOffByteOrder, BYTE_ORDER_MARK)
	put16(h, hdrOffSectorShift, spec.version.SectorShift())
	put16(h, hdrOffMiniShift, MINI_SECTOR_SHIFT)
	put32(h, hdrOffNumFATSectors, spec.numFat)
	put32(h, hdrOffFirstDirSector, spec.firstDir)
	put32(h, hdrOffCutoff, MINI_STREAM_CUTOFF)
	put32(h, hdrOffFirstMiniFAT, spec.firstMini)
	put32(h, hdrOffNumMiniFAT, spec.numMini)
	put32(h, hdrOffFirstDIFAT, spec.firstDifat)
	put32(h, hdrOffNumDIFAT, spec.numDifat)
	for i := 0; i < NUM_HEADER_DIFAT_ENTRIES; i++ {
		v := FREE_SECTOR
		if i < len(spec.difatHead) {
			v = spec.difatHead[i]
		}
		put32(h, hdrOffDIFATHead+i*4, v)
	}
	return h
}

// idSector builds a FAT/MiniFAT/DIFAT sector: all FREE except the given
// entries.
func idSector(sectorLen int, entries map[uint32]uint32) []byte {
	s := make([]byte, sectorLen)
	for i := 0; i < sectorLen/4; i++ {
		put32(s, i*4, FREE_SECTOR)
	}
	for idx, v := range entries {
		put32(s, int(idx)*4, v)
	}
	return s
}

func dirRecord(name string, typ uint8, left, right, child, start uint32, size uint64) []byte {
	rec := make([]byte, DIR_ENTRY_LEN)
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		put16(rec, i*2, u)
	}
	put16(rec, recOffNameLen, uint16((len(units)+1)*2))
	rec[recOffType] = typ
	rec[recOffColor] = COLOR_BLACK
	put32(rec, recOffLeft, left)
	put32(rec, recOffRight, right)
	put32(rec, recOffChild, child)
	put32(rec, recOffStartSector, start)
	put64(rec, recOffStreamSize, size)
	return rec
}

// dirSector packs records into one sector; the rest reads back as
// unallocated entries.
func dirSector(sectorLen int, records ...[]byte) []byte {
	s := make([]byte, sectorLen)
	off := 0
	for _, rec := range records {
		copy(s[off:], rec)
		off += DIR_ENTRY_LEN
	}
	return s
}

func assembleImage(header []byte, sectorLen int, sectors [][]byte) []byte {
	img := make([]byte, 0, sectorLen*(len(sectors)+1))
	img = append(img, header...)
	img = append(img, make([]byte, sectorLen-len(header))...)
	for _, s := range sectors {
		img = append(img, s...)
	}
	return img
}

var (
	smallPayload = []byte("small one")             // below the mini cutoff
	innerPayload = []byte("inner stream bytes-21") // mini allocated, nested
	bigPayload   = buildBigPayload()               // 9 regular sectors, above the cutoff
)

func buildBigPayload() []byte {
	p := make([]byte, 9*512)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

// buildBasicImage lays out a version 3 container with this tree:
//
//	/big        stream, 4608 bytes, regular chain
//	/sto        storage
//	/sto/inner  stream, 21 bytes, mini chain
//	/small      stream, 9 bytes, mini chain
//
// Sector map: 0 FAT, 1 directory, 2 MiniFAT, 3 mini stream, 4..12 big
// stream, 13 directory continuation.
func buildBasicImage() []byte {
	sectorLen := V3.SectorLen()

	fat := map[uint32]uint32{
		0:  FAT_SECTOR,
		1:  13,
		2:  END_OF_CHAIN,
		3:  END_OF_CHAIN,
		12: END_OF_CHAIN,
		13: END_OF_CHAIN,
	}
	for s := uint32(4); s < 12; s++ {
		fat[s] = s + 1
	}

	miniStream := make([]byte, sectorLen)
	copy(miniStream, smallPayload)
	copy(miniStream[MINI_SECTOR_LEN:], innerPayload)

	dirA := dirSector(sectorLen,
		dirRecord(ROOT_DIR_NAME, OBJ_TYPE_ROOT, NO_STREAM, NO_STREAM, 3, 3, 128),
		dirRecord("big", OBJ_TYPE_STREAM, NO_STREAM, NO_STREAM, NO_STREAM, 4, uint64(len(bigPayload))),
		dirRecord("small", OBJ_TYPE_STREAM, NO_STREAM, NO_STREAM, NO_STREAM, 0, uint64(len(smallPayload))),
		dirRecord("sto", OBJ_TYPE_STORAGE, 1, 2, 4, 0, 0),
	)
	dirB := dirSector(sectorLen,
		dirRecord("inner", OBJ_TYPE_STREAM, NO_STREAM, NO_STREAM, NO_STREAM, 1, uint64(len(innerPayload))),
	)

	sectors := [][]byte{
		idSector(sectorLen, fat),
		dirA,
		idSector(sectorLen, map[uint32]uint32{0: END_OF_CHAIN, 1: END_OF_CHAIN}),
		miniStream,
	}
	for i := 0; i < len(bigPayload); i += sectorLen {
		sectors = append(sectors, bigPayload[i:i+sectorLen])
	}
	sectors = append(sectors, dirB)

	header := buildHeader(headerSpec{
		version:    V3,
		numFat:     1,
		firstDir:   1,
		firstMini:  2,
		numMini:    1,
		firstDifat: END_OF_CHAIN,
		difatHead:  []uint32{0},
	})
	return assembleImage(header, sectorLen, sectors)
}

// Offsets into the basic image used by corruption tests. Sector n
// starts at (n+1)*512; directory entry i sits 128*i into its sector.
const (
	basicFATSectorOff = 512
	basicDirSectorOff = 2 * 512
	basicRootOff      = basicDirSectorOff
	basicStoOff       = basicDirSectorOff + 3*DIR_ENTRY_LEN
)

func openImage(t *testing.T, img []byte, opts ...Option) *File {
	t.Helper()
	f, err := Open(bytes.NewReader(img), int64(len(img)), opts...)
	require.NoError(t, err)
	return f
}

func openImageErr(img []byte, opts ...Option) error {
	_, err := Open(bytes.NewReader(img), int64(len(img)), opts...)
	return err
}

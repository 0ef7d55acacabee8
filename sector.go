package olecf

import (
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// SectorSource is the only abstraction allowed to touch the raw byte
// container. Everything above it addresses data by sector id. A
// transport that suspends (network, userspace fs) plugs in by providing
// its own io.ReaderAt to Open, or by implementing this interface
// directly; the resolution algorithms are written against it once.
type SectorSource interface {
	// ReadSector returns the full contents of the given sector. A
	// trailing partial sector reads back zero padded to full length.
	ReadSector(id uint32) ([]byte, error)
	// SectorCount is the number of sectors the container holds.
	SectorCount() uint32
}

type readerSource struct {
	r         io.ReaderAt
	sectorLen int
	count     uint32
}

func newReaderSource(r io.ReaderAt, size int64, v Version) *readerSource {
	sectorLen := v.SectorLen()
	// The header occupies the first sector-sized slot; sector 0 starts
	// right after it.
	count := (size+int64(sectorLen)-1)/int64(sectorLen) - 1
	if count < 0 {
		count = 0
	}
	return &readerSource{
		r:         r,
		sectorLen: sectorLen,
		count:     uint32(count),
	}
}

func (s *readerSource) SectorCount() uint32 {
	return s.count
}

func (s *readerSource) ReadSector(id uint32) ([]byte, error) {
	if id >= s.count {
		return nil, fmt.Errorf("sector %d of %d: %w", id, s.count, ErrOutOfRangeSector)
	}

	buf := make([]byte, s.sectorLen)
	n, err := s.r.ReadAt(buf, (int64(id)+1)*int64(s.sectorLen))
	if err != nil && err != io.EOF {
		return nil, pkgerrors.Wrapf(err, "reading sector %d", id)
	}
	if err == io.EOF && n == 0 {
		return nil, pkgerrors.Wrapf(io.ErrUnexpectedEOF, "reading sector %d", id)
	}

	return buf, nil
}

// readHeaderRegion fetches the fixed 512-byte header from the front of
// the container.
func readHeaderRegion(r io.ReaderAt) ([]byte, error) {
	buf := make([]byte, HEADER_LEN)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("file shorter than the header region: %w", ErrMalformedHeader)
		}
		return nil, pkgerrors.Wrap(err, "reading header region")
	}
	return buf, nil
}

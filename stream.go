package olecf

import (
	"fmt"
	"io"
)

// extent is one contiguous physical byte range of a stream: a slice of
// a regular sector. A stream's chain resolves into an ordered extent
// list once, when the stream is opened; reads index into that list and
// never re-walk the chain.
type extent struct {
	sector uint32
	offset uint32
	length uint32
}

// Stream reads the bytes of one directory entry. It implements
// io.Reader, io.ReaderAt and io.Seeker. ReadAt is safe for concurrent
// use; Read and Seek share the stream's cursor.
type Stream struct {
	entry   *Entry
	source  SectorSource
	extents []extent
	size    uint64 // declared stream length
	covered uint64 // bytes the resolved chain actually backs
	pos     int64
}

func (s *Stream) Entry() *Entry {
	return s.entry
}

func (s *Stream) Size() int64 {
	return int64(s.size)
}

func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("olecf: negative stream offset %d", off)
	}
	if uint64(off) >= s.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	want := uint64(len(p))
	if uint64(off)+want > s.size {
		want = s.size - uint64(off)
	}

	short := false
	if uint64(off)+want > s.covered {
		if uint64(off) >= s.covered {
			return 0, fmt.Errorf("chain covers %d of %d bytes: %w", s.covered, s.size, ErrShortRead)
		}
		want = s.covered - uint64(off)
		short = true
	}

	pos := uint64(off)
	end := pos + want
	var base uint64
	n := 0
	for _, ext := range s.extents {
		extEnd := base + uint64(ext.length)
		if extEnd <= pos {
			base = extEnd
			continue
		}
		if base >= end {
			break
		}

		lo, hi := pos, end
		if base > lo {
			lo = base
		}
		if extEnd < hi {
			hi = extEnd
		}

		buf, err := s.source.ReadSector(ext.sector)
		if err != nil {
			return n, err
		}
		copy(p[lo-uint64(off):hi-uint64(off)],
			buf[uint64(ext.offset)+(lo-base):uint64(ext.offset)+(hi-base)])
		n += int(hi - lo)
		base = extEnd
	}

	if short {
		return n, fmt.Errorf("chain covers %d of %d bytes: %w", s.covered, s.size, ErrShortRead)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	if uint64(s.pos) >= s.size {
		return 0, io.EOF
	}
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(s.size) + offset
	default:
		return 0, fmt.Errorf("olecf: invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("olecf: seek to negative offset %d", pos)
	}
	s.pos = pos
	return pos, nil
}

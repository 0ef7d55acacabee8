package olecf

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// miniAllocator owns the MiniFAT successor table plus the regular
// sector chain backing the mini stream, and maps mini sector ids onto
// byte ranges of that backing storage.
type miniAllocator struct {
	source      SectorSource
	sectorLen   int
	minifat     []uint32
	miniSectors []uint32 // regular sectors holding the mini stream, in order
	mode        Mode
	log         *zap.Logger
}

// newMiniAllocator resolves the mini stream's own chain through the
// regular FAT (never the MiniFAT) from the root entry's starting
// sector, then reads the MiniFAT chain the same way the FAT is read.
func newMiniAllocator(source SectorSource, alloc *allocator, header *Header, root *dirEntry, mode Mode, log *zap.Logger) (*miniAllocator, error) {
	m := &miniAllocator{
		source:    source,
		sectorLen: header.Version.SectorLen(),
		mode:      mode,
		log:       log,
	}

	miniSectors, err := alloc.chain(root.StartSector)
	if err != nil {
		// The format leaves this unspecified; follow the open mode.
		if mode.IsStrict() {
			return nil, fmt.Errorf("mini stream chain (%v): %w", err, ErrCorruptMiniFAT)
		}
		log.Warn("mini stream chain unresolvable, treating as empty", zap.Error(err))
		miniSectors = nil
	}
	m.miniSectors = miniSectors

	raw, err := alloc.readChain(header.FirstMiniFATSector)
	if err != nil {
		return nil, fmt.Errorf("MiniFAT chain (%v): %w", err, ErrCorruptMiniFAT)
	}

	if chainSectors := uint32(len(raw) / m.sectorLen); mode.IsStrict() && header.NumMiniFATSectors != chainSectors {
		return nil, fmt.Errorf("header claims %d MiniFAT sectors, FAT resolves %d: %w",
			header.NumMiniFATSectors, chainSectors, ErrCorruptMiniFAT)
	}

	minifat := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		minifat = append(minifat, binary.LittleEndian.Uint32(raw[i:]))
	}
	for len(minifat) > 0 && minifat[len(minifat)-1] == FREE_SECTOR {
		minifat = minifat[:len(minifat)-1]
	}

	// The mini stream can hold at most rootSize/64 mini sectors.
	capacity := root.StreamSize / uint64(MINI_SECTOR_LEN)
	if uint64(len(minifat)) > capacity {
		if mode.IsStrict() {
			return nil, fmt.Errorf("MiniFAT has %d entries, mini stream holds %d mini sectors: %w",
				len(minifat), capacity, ErrCorruptMiniFAT)
		}
		log.Warn("truncating MiniFAT to mini stream capacity",
			zap.Int("entries", len(minifat)), zap.Uint64("capacity", capacity))
		minifat = minifat[:capacity]
	}
	m.minifat = minifat

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *miniAllocator) validate() error {
	pointees := make(map[uint32]bool)
	for idx, next := range m.minifat {
		if next > MAX_REGULAR_SECTOR {
			continue
		}
		if next >= uint32(len(m.minifat)) {
			return fmt.Errorf("MiniFAT entry %d points to mini sector %d of %d: %w",
				idx, next, len(m.minifat), ErrCorruptMiniFAT)
		}
		if pointees[next] {
			return fmt.Errorf("mini sector %d is the successor of two chains: %w", next, ErrCorruptMiniFAT)
		}
		pointees[next] = true
	}
	return nil
}

func (m *miniAllocator) next(id uint32) (uint32, error) {
	if id >= uint32(len(m.minifat)) {
		return 0, fmt.Errorf("mini sector %d has no MiniFAT entry: %w", id, ErrCorruptMiniFAT)
	}
	next := m.minifat[id]
	if next != END_OF_CHAIN && (next > MAX_REGULAR_SECTOR || next >= uint32(len(m.minifat))) {
		return 0, fmt.Errorf("successor of mini sector %d is %#x: %w", id, next, ErrCorruptMiniFAT)
	}
	return next, nil
}

// chain resolves a mini-sector chain; bounded the same way as the
// regular walk, with the MiniFAT length as the cap.
func (m *miniAllocator) chain(start uint32) ([]uint32, error) {
	if start == END_OF_CHAIN || start == FREE_SECTOR {
		return nil, nil
	}

	var ids []uint32
	seen := make(map[uint32]bool)
	for cur := start; cur != END_OF_CHAIN; {
		if cur > MAX_REGULAR_SECTOR {
			return nil, fmt.Errorf("mini chain hit sentinel %#x: %w", cur, ErrCorruptMiniFAT)
		}
		if cur >= uint32(len(m.minifat)) {
			return nil, fmt.Errorf("mini chain includes mini sector %d of %d: %w",
				cur, len(m.minifat), ErrCorruptMiniFAT)
		}
		if seen[cur] {
			return nil, fmt.Errorf("mini chain cycles back to mini sector %d: %w", cur, ErrCorruptMiniFAT)
		}
		seen[cur] = true
		ids = append(ids, cur)

		var err error
		cur, err = m.next(cur)
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// extent translates a mini sector id into a byte range of the regular
// sector that physically holds it. Mini sectors never straddle regular
// sectors since both sizes are powers of two. ok is false when the
// backing chain is too short to hold the mini sector.
func (m *miniAllocator) extent(miniID uint32, length uint32) (extent, bool) {
	byteOff := uint64(miniID) * uint64(MINI_SECTOR_LEN)
	idx := byteOff / uint64(m.sectorLen)
	if idx >= uint64(len(m.miniSectors)) {
		return extent{}, false
	}
	return extent{
		sector: m.miniSectors[idx],
		offset: uint32(byteOff % uint64(m.sectorLen)),
		length: length,
	}, true
}

package olecf

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// allocator owns the resolved FAT successor table and answers chain
// queries over regular sectors.
type allocator struct {
	source       SectorSource
	difatSectors []uint32 // sectors the spilled DIFAT itself occupies
	fatSectors   []uint32 // sectors holding FAT entries, in DIFAT order
	fat          []uint32
	mode         Mode
	log          *zap.Logger
}

// newAllocator collects the FAT sector ids from the header's inline
// DIFAT plus the spilled DIFAT chain, concatenates every FAT sector
// into one successor table and cross-checks the result. The DIFAT walk
// is bounded by the sector count, so a cycle or runaway chain fails
// instead of spinning.
func newAllocator(source SectorSource, header *Header, mode Mode, log *zap.Logger) (*allocator, error) {
	fatSectors := make([]uint32, len(header.DIFATHead))
	copy(fatSectors, header.DIFATHead)

	count := source.SectorCount()
	seen := make(map[uint32]bool)
	difatSectors := make([]uint32, 0)

	for cur := header.FirstDIFATSector; cur != END_OF_CHAIN; {
		if uint32(len(difatSectors)) >= count {
			return nil, fmt.Errorf("DIFAT chain longer than the %d-sector file: %w", count, ErrCorruptDIFAT)
		}
		if cur > MAX_REGULAR_SECTOR {
			return nil, fmt.Errorf("DIFAT chain hit sentinel %#x: %w", cur, ErrCorruptDIFAT)
		}
		if cur >= count {
			return nil, fmt.Errorf("DIFAT sector %d, file has %d: %w", cur, count, ErrOutOfRangeSector)
		}
		if seen[cur] {
			return nil, fmt.Errorf("DIFAT chain revisits sector %d: %w", cur, ErrCorruptDIFAT)
		}
		seen[cur] = true
		difatSectors = append(difatSectors, cur)

		buf, err := source.ReadSector(cur)
		if err != nil {
			return nil, err
		}

		// Each DIFAT sector holds sectorLen/4 - 1 FAT sector ids plus a
		// trailing next-DIFAT-sector id.
		n := len(buf)/4 - 1
		for i := 0; i < n; i++ {
			id := binary.LittleEndian.Uint32(buf[i*4:])
			if id != FREE_SECTOR && id > MAX_REGULAR_SECTOR {
				return nil, fmt.Errorf("DIFAT entry holds sentinel %#x: %w", id, ErrCorruptDIFAT)
			}
			fatSectors = append(fatSectors, id)
		}
		cur = binary.LittleEndian.Uint32(buf[n*4:])
	}

	if mode.IsStrict() && header.NumDIFATSectors != uint32(len(difatSectors)) {
		return nil, fmt.Errorf("header claims %d DIFAT sectors, walk found %d: %w",
			header.NumDIFATSectors, len(difatSectors), ErrCorruptDIFAT)
	}

	for len(fatSectors) > 0 && fatSectors[len(fatSectors)-1] == FREE_SECTOR {
		fatSectors = fatSectors[:len(fatSectors)-1]
	}

	if mode.IsStrict() && header.NumFATSectors != uint32(len(fatSectors)) {
		return nil, fmt.Errorf("header claims %d FAT sectors, DIFAT lists %d: %w",
			header.NumFATSectors, len(fatSectors), ErrCorruptFAT)
	}

	fat := make([]uint32, 0, len(fatSectors)*DIR_ENTRY_LEN)
	for _, id := range fatSectors {
		if id == FREE_SECTOR {
			return nil, fmt.Errorf("FREE sector id inside the DIFAT: %w", ErrCorruptDIFAT)
		}
		if id >= count {
			return nil, fmt.Errorf("FAT sector %d, file has %d: %w", id, count, ErrOutOfRangeSector)
		}
		buf, err := source.ReadSector(id)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(buf)/4; i++ {
			fat = append(fat, binary.LittleEndian.Uint32(buf[i*4:]))
		}
	}

	// The last FAT sector may describe allocation slack past the end of
	// the file; only entries for sectors that exist are meaningful.
	if uint32(len(fat)) > count {
		fat = fat[:count]
	}
	for len(fat) > 0 && fat[len(fat)-1] == FREE_SECTOR {
		fat = fat[:len(fat)-1]
	}

	a := &allocator{
		source:       source,
		difatSectors: difatSectors,
		fatSectors:   fatSectors,
		fat:          fat,
		mode:         mode,
		log:          log,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// validate cross-checks the assembled table: the DIFAT and FAT sectors
// must be self-marked, and no sector may be the successor of two
// chains.
func (a *allocator) validate() error {
	for _, id := range a.difatSectors {
		if id >= uint32(len(a.fat)) {
			return fmt.Errorf("DIFAT sector %d outside the %d-entry FAT: %w", id, len(a.fat), ErrCorruptDIFAT)
		}
		if a.fat[id] != DIFAT_SECTOR {
			if a.mode.IsStrict() {
				return fmt.Errorf("sector %d not marked as DIFAT in the FAT: %w", id, ErrCorruptDIFAT)
			}
			a.log.Warn("patching FAT mark for DIFAT sector", zap.Uint32("sector", id))
			a.fat[id] = DIFAT_SECTOR
		}
	}

	for _, id := range a.fatSectors {
		if id >= uint32(len(a.fat)) {
			return fmt.Errorf("FAT sector %d outside the %d-entry FAT: %w", id, len(a.fat), ErrCorruptFAT)
		}
		if a.fat[id] != FAT_SECTOR {
			if a.mode.IsStrict() {
				return fmt.Errorf("sector %d not marked as FAT in the FAT: %w", id, ErrCorruptFAT)
			}
			a.log.Warn("patching FAT mark for FAT sector", zap.Uint32("sector", id))
			a.fat[id] = FAT_SECTOR
		}
	}

	pointees := make(map[uint32]bool)
	for idx, next := range a.fat {
		switch {
		case next <= MAX_REGULAR_SECTOR:
			if next >= uint32(len(a.fat)) {
				return fmt.Errorf("FAT entry %d points to sector %d of %d: %w",
					idx, next, len(a.fat), ErrCorruptFAT)
			}
			if pointees[next] {
				return fmt.Errorf("sector %d is the successor of two chains: %w", next, ErrCorruptFAT)
			}
			pointees[next] = true
		case next == INVALID_SECTOR:
			return fmt.Errorf("FAT entry %d holds INVALID_SECTOR: %w", idx, ErrCorruptFAT)
		}
	}

	return nil
}

func (a *allocator) next(id uint32) (uint32, error) {
	if id >= uint32(len(a.fat)) {
		return 0, fmt.Errorf("sector %d has no FAT entry: %w", id, ErrCorruptFAT)
	}
	next := a.fat[id]
	if next != END_OF_CHAIN && (next > MAX_REGULAR_SECTOR || next >= uint32(len(a.fat))) {
		return 0, fmt.Errorf("successor of sector %d is %#x: %w", id, next, ErrCorruptFAT)
	}
	return next, nil
}

// chain resolves the full sector-id list starting at start. The walk
// keeps a visited set, so chains are finite even on adversarial input.
func (a *allocator) chain(start uint32) ([]uint32, error) {
	if start == END_OF_CHAIN || start == FREE_SECTOR {
		return nil, nil
	}

	var ids []uint32
	seen := make(map[uint32]bool)
	for cur := start; cur != END_OF_CHAIN; {
		if cur > MAX_REGULAR_SECTOR {
			return nil, fmt.Errorf("chain hit sentinel %#x: %w", cur, ErrCorruptFAT)
		}
		if cur >= a.source.SectorCount() {
			return nil, fmt.Errorf("chain includes sector %d of %d: %w",
				cur, a.source.SectorCount(), ErrOutOfRangeSector)
		}
		if seen[cur] {
			return nil, fmt.Errorf("chain cycles back to sector %d: %w", cur, ErrCorruptFAT)
		}
		seen[cur] = true
		ids = append(ids, cur)

		var err error
		cur, err = a.next(cur)
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// readChain materializes the bytes of a whole regular chain.
func (a *allocator) readChain(start uint32) ([]byte, error) {
	ids, err := a.chain(start)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, id := range ids {
		buf, err := a.source.ReadSector(id)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Package olecf reads Compound File Binary Format (CFBF/OLE2)
// containers, the filesystem-in-a-file underlying legacy Microsoft
// Office documents and embedded-object payloads. The reader trusts
// none of the file's internal sector pointers: every indirection is
// bounds-checked and every chain walk is bounded, so adversarial input
// fails in finite time instead of looping or reading out of range.
package olecf

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Option configures an Open call.
type Option func(*options)

type options struct {
	mode Mode
	log  *zap.Logger
}

// WithMode selects strict or lenient parsing; the default is strict.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithLogger sets the logger lenient-mode degradations are reported
// through; the default discards them.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// File is an opened, immutable compound file. Once Open returns, the
// file is read-only and safe for concurrent readers.
type File struct {
	source SectorSource
	header *Header
	alloc  *allocator
	mini   *miniAllocator
	dir    *directory
	closer io.Closer
}

// Open parses the container held by r. A failed open returns no file;
// there is no partially-usable state. The reader must stay usable for
// the lifetime of the returned File.
func Open(r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	o := options{
		mode: ModeStrict,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if size < int64(HEADER_LEN) {
		return nil, fmt.Errorf("file is %d bytes: %w", size, ErrMalformedHeader)
	}

	region, err := readHeaderRegion(r)
	if err != nil {
		return nil, err
	}
	header, err := parseHeader(region, o.mode, o.log)
	if err != nil {
		return nil, err
	}

	sectorLen := header.Version.SectorLen()
	if size < int64(sectorLen) {
		return nil, fmt.Errorf("file smaller than one %d-byte sector: %w", sectorLen, ErrMalformedHeader)
	}
	if size > (int64(MAX_REGULAR_SECTOR)+1)*int64(sectorLen) {
		return nil, fmt.Errorf("file larger than the sector id space: %w", ErrMalformedHeader)
	}

	source := newReaderSource(r, size, header.Version)

	alloc, err := newAllocator(source, header, o.mode, o.log)
	if err != nil {
		return nil, err
	}

	dirBytes, err := alloc.readChain(header.FirstDirSector)
	if err != nil {
		return nil, err
	}
	if len(dirBytes) == 0 {
		return nil, fmt.Errorf("directory chain is empty: %w", ErrCorruptDirectory)
	}

	entries := make([]*dirEntry, 0, len(dirBytes)/DIR_ENTRY_LEN)
	for off := 0; off+DIR_ENTRY_LEN <= len(dirBytes); off += DIR_ENTRY_LEN {
		entry, err := parseDirEntry(dirBytes[off:off+DIR_ENTRY_LEN], header.Version, o.mode, o.log)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	dir, err := newDirectory(entries, o.mode, o.log)
	if err != nil {
		return nil, err
	}

	mini, err := newMiniAllocator(source, alloc, header, dir.root(), o.mode, o.log)
	if err != nil {
		return nil, err
	}

	return &File{
		source: source,
		header: header,
		alloc:  alloc,
		mini:   mini,
		dir:    dir,
	}, nil
}

// Version reports the container's major format version.
func (f *File) Version() Version {
	return f.header.Version
}

// Root returns the root storage entry.
func (f *File) Root() *Entry {
	return newEntry(f.dir.root(), "/")
}

// Walk visits every entry below the root in deterministic tree order:
// each storage's children in name order, depth first. Returning an
// error from fn stops the walk.
func (f *File) Walk(fn func(*Entry) error) error {
	return f.walk(ROOT_STREAM_ID, nil, fn)
}

func (f *File) walk(id uint32, prefix []string, fn func(*Entry) error) error {
	for _, cid := range f.dir.children(id) {
		de := f.dir.entries[cid]
		names := append(append([]string{}, prefix...), de.Name)
		if err := fn(newEntry(de, pathFromNameChain(names))); err != nil {
			return err
		}
		if de.Type == TypeStorage {
			if err := f.walk(cid, names, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *File) entries() []*Entry {
	var out []*Entry
	_ = f.Walk(func(e *Entry) error {
		out = append(out, e)
		return nil
	})
	return out
}

// ListStreams returns the full path of every stream, in walk order.
func (f *File) ListStreams() []string {
	return lo.FilterMap(f.entries(), func(e *Entry, _ int) (string, bool) {
		return e.Path, e.Type == TypeStream
	})
}

// ListStorages returns the full path of every storage below the root,
// in walk order.
func (f *File) ListStorages() []string {
	return lo.FilterMap(f.entries(), func(e *Entry, _ int) (string, bool) {
		return e.Path, e.Type == TypeStorage
	})
}

// Exists reports whether a storage or stream lives at path.
func (f *File) Exists(path string) bool {
	_, err := f.dir.lookup(nameChainFromPath(path))
	return err == nil
}

// Metadata returns the entry at path, or ErrStreamNotFound.
func (f *File) Metadata(path string) (*Entry, error) {
	names := nameChainFromPath(path)
	id, err := f.dir.lookup(names)
	if err != nil {
		return nil, err
	}
	return newEntry(f.dir.entries[id], pathFromNameChain(names)), nil
}

// OpenStream resolves the stream at path into a Stream. The stream's
// sector chain is resolved here, once; reads afterwards index into the
// resolved extents.
func (f *File) OpenStream(path string) (*Stream, error) {
	names := nameChainFromPath(path)
	id, err := f.dir.lookup(names)
	if err != nil {
		return nil, err
	}

	de := f.dir.entries[id]
	if de.Type != TypeStream {
		return nil, fmt.Errorf("%s is a %v: %w", pathFromNameChain(names), de.Type, ErrNotAStream)
	}

	extents, covered, err := f.resolveExtents(de)
	if err != nil {
		return nil, err
	}

	return &Stream{
		entry:   newEntry(de, pathFromNameChain(names)),
		source:  f.source,
		extents: extents,
		size:    de.StreamSize,
		covered: covered,
	}, nil
}

// resolveExtents picks the allocation space by the declared size (the
// mini stream itself always lives in regular sectors) and flattens the
// chain into physical byte ranges. A chain shorter than the declared
// size yields a shorter covered length; the gap surfaces as ErrShortRead
// when a read touches it.
func (f *File) resolveExtents(de *dirEntry) ([]extent, uint64, error) {
	if de.StreamSize == 0 {
		return nil, 0, nil
	}

	var exts []extent
	var covered uint64
	remaining := de.StreamSize

	if de.StreamSize < uint64(f.header.MiniStreamCutoff) && de.Type != TypeRoot {
		ids, err := f.mini.chain(de.StartSector)
		if err != nil {
			return nil, 0, err
		}
		for _, mid := range ids {
			if remaining == 0 {
				break
			}
			n := uint32(min(remaining, uint64(MINI_SECTOR_LEN)))
			ext, ok := f.mini.extent(mid, n)
			if !ok {
				break // backing mini stream shorter than the chain
			}
			exts = append(exts, ext)
			covered += uint64(n)
			remaining -= uint64(n)
		}
		return exts, covered, nil
	}

	ids, err := f.alloc.chain(de.StartSector)
	if err != nil {
		return nil, 0, err
	}
	sectorLen := uint64(f.header.Version.SectorLen())
	for _, id := range ids {
		if remaining == 0 {
			break
		}
		n := min(remaining, sectorLen)
		exts = append(exts, extent{sector: id, length: uint32(n)})
		covered += n
		remaining -= n
	}
	return exts, covered, nil
}

package olecf

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// OpenFile opens name through fsys and parses it as a compound file.
// The returned File owns the handle; Close releases it.
func OpenFile(fsys afero.Fs, name string, opts ...Option) (*File, error) {
	fh, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	fi, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, errors.Wrapf(err, "stat %s", name)
	}

	f, err := Open(fh, fi.Size(), opts...)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// OpenPath opens a compound file from the OS filesystem.
func OpenPath(name string, opts ...Option) (*File, error) {
	return OpenFile(afero.NewOsFs(), name, opts...)
}

// Close releases the underlying handle when the File was opened through
// OpenFile or OpenPath; otherwise it is a no-op.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

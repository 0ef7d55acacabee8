package olecf

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the public metadata of one storage or stream node.
type Entry struct {
	Name      string
	Path      string
	Type      EntryType
	CLSID     uuid.UUID
	StateBits uint32
	Created   time.Time
	Modified  time.Time
	Size      uint64
}

func newEntry(de *dirEntry, path string) *Entry {
	return &Entry{
		Name:      de.Name,
		Path:      path,
		Type:      de.Type,
		CLSID:     de.CLSID,
		StateBits: de.StateBits,
		Created:   de.Created,
		Modified:  de.Modified,
		Size:      de.StreamSize,
	}
}

func (e *Entry) IsStream() bool {
	return e.Type == TypeStream
}

func (e *Entry) IsStorage() bool {
	return e.Type == TypeStorage || e.Type == TypeRoot
}

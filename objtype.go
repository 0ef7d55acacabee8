package olecf

// EntryType is the kind tag of a directory entry.
type EntryType int

const (
	TypeUnallocated EntryType = iota
	TypeStorage
	TypeStream
	TypeRoot
)

func entryTypeFromByte(b byte) (EntryType, bool) {
	switch b {
	case OBJ_TYPE_UNALLOCATED:
		return TypeUnallocated, true
	case OBJ_TYPE_STORAGE:
		return TypeStorage, true
	case OBJ_TYPE_STREAM:
		return TypeStream, true
	case OBJ_TYPE_ROOT:
		return TypeRoot, true
	default:
		return TypeUnallocated, false
	}
}

func (t EntryType) String() string {
	switch t {
	case TypeStorage:
		return "storage"
	case TypeStream:
		return "stream"
	case TypeRoot:
		return "root storage"
	default:
		return "unallocated"
	}
}

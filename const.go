package olecf

const (
	HEADER_LEN               int = 512 // length of the CFB header region, in bytes
	DIR_ENTRY_LEN            int = 128 // length of a directory entry record, in bytes
	NUM_HEADER_DIFAT_ENTRIES int = 109 // DIFAT entries stored inline in the header
)

// Magic signature at offset 0 of every compound file.
var MAGIC = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

const (
	BYTE_ORDER_MARK    uint16 = 0xfffe
	MINI_SECTOR_SHIFT  uint16 = 6 // 64-byte mini sectors
	MINI_SECTOR_LEN    int    = 1 << MINI_SECTOR_SHIFT
	MINI_STREAM_CUTOFF uint32 = 4096
)

// Sentinel values of the 32-bit sector id space.
const (
	MAX_REGULAR_SECTOR uint32 = 0xfffffffa
	INVALID_SECTOR     uint32 = 0xfffffffb
	DIFAT_SECTOR       uint32 = 0xfffffffc
	FAT_SECTOR         uint32 = 0xfffffffd
	END_OF_CHAIN       uint32 = 0xfffffffe
	FREE_SECTOR        uint32 = 0xffffffff
)

// Directory entry constants.
const (
	ROOT_DIR_NAME         string = "Root Entry"
	ROOT_STREAM_ID        uint32 = 0
	MAX_REGULAR_STREAM_ID uint32 = 0xfffffffa
	NO_STREAM             uint32 = 0xffffffff
	MAX_NAME_LEN          int    = 31 // UTF-16 code units, terminating NUL excluded

	OBJ_TYPE_UNALLOCATED uint8 = 0
	OBJ_TYPE_STORAGE     uint8 = 1
	OBJ_TYPE_STREAM      uint8 = 2
	OBJ_TYPE_ROOT        uint8 = 5
	COLOR_RED            uint8 = 0
	COLOR_BLACK          uint8 = 1
)

package olecf

import "errors"

// Structural errors abort an Open entirely; ErrStreamNotFound,
// ErrNotAStream and ErrShortRead are per-operation and leave the opened
// file usable. In lenient mode directory link errors degrade to dropped
// subtrees instead of surfacing ErrCorruptDirectory.
var (
	ErrInvalidSignature   = errors.New("olecf: invalid signature")
	ErrUnsupportedVersion = errors.New("olecf: unsupported version")
	ErrMalformedHeader    = errors.New("olecf: malformed header")
	ErrOutOfRangeSector   = errors.New("olecf: sector id out of range")
	ErrCorruptFAT         = errors.New("olecf: corrupt FAT")
	ErrCorruptDIFAT       = errors.New("olecf: corrupt DIFAT")
	ErrCorruptMiniFAT     = errors.New("olecf: corrupt MiniFAT")
	ErrCorruptDirectory   = errors.New("olecf: corrupt directory")
	ErrStreamNotFound     = errors.New("olecf: stream not found")
	ErrNotAStream         = errors.New("olecf: not a stream")
	ErrShortRead          = errors.New("olecf: stream truncated")
	ErrNameTooLong        = errors.New("olecf: name too long")
)

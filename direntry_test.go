package olecf

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDirEntryFields(t *testing.T) {
	rec := dirRecord("héllo", OBJ_TYPE_STREAM, 1, 2, NO_STREAM, 7, 42)
	for i := 0; i < 16; i++ {
		rec[recOffCLSID+i] = byte(i)
	}
	put32(rec, recOffStateBits, 0xdeadbeef)
	put64(rec, recOffCreated, 116444736000000000) // 1970-01-01T00:00:00Z

	de, err := parseDirEntry(rec, V3, ModeStrict, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "héllo", de.Name)
	assert.Equal(t, TypeStream, de.Type)
	assert.Equal(t, uint32(1), de.LeftSibling)
	assert.Equal(t, uint32(2), de.RightSibling)
	assert.Equal(t, NO_STREAM, de.Child)
	assert.Equal(t, uint32(7), de.StartSector)
	assert.Equal(t, uint64(42), de.StreamSize)
	assert.Equal(t, uint32(0xdeadbeef), de.StateBits)
	assert.Equal(t, time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), de.Created)
	assert.True(t, de.Modified.IsZero())
	assert.Equal(t, uuid.MustParse("03020100-0504-0706-0809-0a0b0c0d0e0f"), de.CLSID)
}

func TestParseDirEntryUnallocated(t *testing.T) {
	de, err := parseDirEntry(make([]byte, DIR_ENTRY_LEN), V3, ModeStrict, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, TypeUnallocated, de.Type)
	assert.Equal(t, NO_STREAM, de.LeftSibling)
	assert.Equal(t, NO_STREAM, de.RightSibling)
	assert.Equal(t, NO_STREAM, de.Child)
}

func TestParseDirEntryOversizedName(t *testing.T) {
	rec := dirRecord(strings.Repeat("x", MAX_NAME_LEN+1), OBJ_TYPE_STREAM,
		NO_STREAM, NO_STREAM, NO_STREAM, 0, 0)

	_, err := parseDirEntry(rec, V3, ModeStrict, zap.NewNop())
	assert.ErrorIs(t, err, ErrNameTooLong)

	de, err := parseDirEntry(rec, V3, ModeLenient, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, de.Name, MAX_NAME_LEN+1)
}

func TestParseDirEntryOddNameLength(t *testing.T) {
	rec := dirRecord("big", OBJ_TYPE_STREAM, NO_STREAM, NO_STREAM, NO_STREAM, 0, 0)
	put16(rec, recOffNameLen, 7)

	_, err := parseDirEntry(rec, V3, ModeStrict, zap.NewNop())
	assert.ErrorIs(t, err, ErrCorruptDirectory)

	de, err := parseDirEntry(rec, V3, ModeLenient, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "big", de.Name)
}

func TestParseDirEntryUnknownType(t *testing.T) {
	rec := dirRecord("x", 9, NO_STREAM, NO_STREAM, NO_STREAM, 0, 0)

	_, err := parseDirEntry(rec, V3, ModeStrict, zap.NewNop())
	assert.ErrorIs(t, err, ErrCorruptDirectory)

	de, err := parseDirEntry(rec, V3, ModeLenient, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, TypeUnallocated, de.Type)
}

func TestParseDirEntryStreamSizeMask(t *testing.T) {
	rec := dirRecord("x", OBJ_TYPE_STREAM, NO_STREAM, NO_STREAM, NO_STREAM, 0, 0)
	put64(rec, recOffStreamSize, 1<<32|9)

	de, err := parseDirEntry(rec, V3, ModeStrict, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), de.StreamSize)

	de, err = parseDirEntry(rec, V4, ModeStrict, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<32|9), de.StreamSize)
}

func TestFiletimeToTime(t *testing.T) {
	assert.True(t, filetimeToTime(0).IsZero())
	assert.Equal(t,
		time.Date(1601, time.January, 1, 0, 0, 0, 100, time.UTC),
		filetimeToTime(1))
}

package step_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adalundhe/rewind/core/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	rec := &step.Record{
		UserID:    7,
		Timestamp: 1754400000000123,
		Command:   "-Move -T 10 20",
		Data:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}

	require.NoError(t, rec.WriteFile(dir))

	got, err := step.ReadFile(dir, rec.Timestamp, step.SectionAll)
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Timestamp, got.Timestamp)
	assert.Equal(t, rec.Command, got.Command)
	assert.Equal(t, rec.Data, got.Data)
}

func TestRecord_KeyOnlySkipsData(t *testing.T) {
	dir := t.TempDir()
	rec := &step.Record{
		UserID:    -3,
		Timestamp: 42,
		Command:   "-Move -T 1 2",
		Data:      []byte("backup blob bytes"),
	}
	require.NoError(t, rec.WriteFile(dir))

	got, err := step.ReadFile(dir, 42, step.SectionKey)
	require.NoError(t, err)
	assert.Equal(t, int32(-3), got.UserID)
	assert.Equal(t, uint64(42), got.Timestamp)
	assert.Equal(t, rec.Command, got.Command)
	assert.Nil(t, got.Data)
}

func TestRecord_DataOnlySkipsKey(t *testing.T) {
	dir := t.TempDir()
	rec := &step.Record{
		UserID:    9,
		Timestamp: 43,
		Command:   "-Move -T 5 6",
		Data:      []byte{0xde, 0xad},
	}
	require.NoError(t, rec.WriteFile(dir))

	got, err := step.ReadFile(dir, 43, step.SectionData)
	require.NoError(t, err)
	assert.Equal(t, rec.Data, got.Data)
	assert.Equal(t, uint64(43), got.Timestamp)
	assert.Empty(t, got.Command)
	assert.Zero(t, got.UserID)
}

func TestRecord_EmptyData(t *testing.T) {
	dir := t.TempDir()
	rec := &step.Record{Timestamp: 44, Command: "-Noop"}
	require.NoError(t, rec.WriteFile(dir))

	got, err := step.ReadFile(dir, 44, step.SectionAll)
	require.NoError(t, err)
	assert.Empty(t, got.Data)
	assert.Equal(t, "-Noop", got.Command)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := step.ReadFile(t.TempDir(), 999, step.SectionAll)
	assert.True(t, os.IsNotExist(err))
}

func TestReadFile_Truncated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(step.FilePath(dir, 50), []byte{9, 0, 0, 0, 1}, 0644))

	_, err := step.ReadFile(dir, 50, step.SectionAll)
	assert.ErrorIs(t, err, step.ErrTruncated)
}

func TestParseFileName(t *testing.T) {
	ts, ok := step.ParseFileName("UndoStep-1754400000000123")
	require.True(t, ok)
	assert.Equal(t, uint64(1754400000000123), ts)

	_, ok = step.ParseFileName("UndoTimestamps.bin")
	assert.False(t, ok)

	_, ok = step.ParseFileName("UndoStep-notanumber")
	assert.False(t, ok)
}

func TestFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("u", "UndoStep-7"), step.FilePath("u", 7))
}

func TestRemove_Idempotent(t *testing.T) {
	dir := t.TempDir()
	rec := &step.Record{Timestamp: 60}
	require.NoError(t, rec.WriteFile(dir))

	require.NoError(t, step.Remove(dir, 60))
	require.NoError(t, step.Remove(dir, 60))
	_, err := os.Stat(step.FilePath(dir, 60))
	assert.True(t, os.IsNotExist(err))
}

package history_test

import (
	"os"
	"testing"

	"github.com/adalundhe/rewind/core/demo"
	"github.com/adalundhe/rewind/core/history"
	"github.com/adalundhe/rewind/core/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_PersistsStepsToDisk(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}
	engine := newDiskEngine(t, dir, board, nil)

	require.NoError(t, engine.ExecuteAs("-Move -T 10 20", 1))
	engine.Flush()

	ts := engine.At(0).Timestamp()
	assert.True(t, engine.At(0).Saved())

	rec, err := step.ReadFile(dir, ts, step.SectionAll)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rec.UserID)
	assert.Equal(t, "-Move -T 10 20", rec.Command)
	assert.Len(t, rec.Data, 8)
}

func TestEngine_SaveShutdownReload(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}

	var stamps []uint64
	var commands []string
	{
		engine := newDiskEngine(t, dir, board, nil)
		for i := int32(0); i < 500; i++ {
			require.NoError(t, engine.Execute(demo.Line(i, i)))
		}
		assert.Equal(t, 500, engine.Len())
		assert.Equal(t, 500, engine.Cursor())
		assert.Equal(t, int32(499), board.X)

		for i := 0; i < 100; i++ {
			require.NoError(t, engine.Undo())
		}
		assert.Equal(t, 400, engine.Cursor())
		assert.Equal(t, int32(399), board.X)
		assert.Equal(t, int32(399), board.Y)

		for i := 0; i < 400; i++ {
			stamps = append(stamps, engine.At(i).Timestamp())
			commands = append(commands, engine.At(i).Command())
		}

		require.NoError(t, engine.SaveTimestamps())
		require.NoError(t, engine.Close())
	}

	engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
	})
	engine.Flush()

	require.Equal(t, 400, engine.Len())
	assert.Equal(t, 400, engine.Cursor())
	assert.Equal(t, int32(399), board.X)
	assert.Equal(t, int32(399), board.Y)

	for i := 0; i < 400; i++ {
		assert.Equal(t, stamps[i], engine.At(i).Timestamp())
		assert.Equal(t, commands[i], engine.At(i).Command())
	}

	// Undo works against the reloaded history: blobs round-tripped.
	require.NoError(t, engine.Undo())
	assert.Equal(t, int32(398), board.X)
	require.NoError(t, engine.Redo())
	assert.Equal(t, int32(399), board.X)
}

func TestEngine_MidStackExecuteDeletesPrunedFiles(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}

	{
		engine := newDiskEngine(t, dir, board, nil)
		for i := int32(0); i < 500; i++ {
			require.NoError(t, engine.Execute(demo.Line(i, i)))
		}
		for i := 0; i < 100; i++ {
			require.NoError(t, engine.Undo())
		}
		require.NoError(t, engine.SaveTimestamps())
		require.NoError(t, engine.Close())
	}

	engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
	})
	require.Equal(t, 400, engine.Len())

	for i := int32(0); i < 50; i++ {
		require.NoError(t, engine.Execute(demo.Line(1000+i, 1000+i)))
	}
	assert.Equal(t, 450, engine.Len())
	assert.Equal(t, 450, engine.Cursor())
	assert.Equal(t, int32(1049), board.X)

	for i := 0; i < 20; i++ {
		require.NoError(t, engine.Undo())
	}
	assert.Equal(t, 430, engine.Cursor())
	assert.Equal(t, int32(1029), board.X)

	// Settle all pending saves before forcing the truncation so the
	// delete job cannot race an in-flight save for the same step.
	engine.Flush()
	var pruned []uint64
	for i := 430; i < 450; i++ {
		pruned = append(pruned, engine.At(i).Timestamp())
	}

	for i := int32(0); i < 10; i++ {
		require.NoError(t, engine.Execute(demo.Line(2000+i, 2000+i)))
	}
	engine.Flush()

	assert.Equal(t, 440, engine.Len())
	assert.Equal(t, 440, engine.Cursor())
	assert.Equal(t, int32(2009), board.X)

	for _, ts := range pruned {
		_, err := os.Stat(step.FilePath(dir, ts))
		assert.True(t, os.IsNotExist(err), "pruned step %d should be deleted", ts)
	}
}

func TestEngine_AutoLoadSaveAtClose(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}

	{
		engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
			cfg.AutoLoadSave = true
		})
		require.NoError(t, engine.Execute(demo.Line(10, 20)))
		require.NoError(t, engine.Execute(demo.Line(20, 30)))
		require.NoError(t, engine.Undo())
		require.NoError(t, engine.Close())
	}

	// Only the applied prefix survives: the manifest defines the
	// future's history.
	engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
	})
	assert.Equal(t, 1, engine.Len())
	assert.Equal(t, 1, engine.Cursor())
}

func TestEngine_MissingManifestIsEmptyHistory(t *testing.T) {
	board := &demo.Board{}
	engine := newDiskEngine(t, t.TempDir(), board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
	})
	assert.Equal(t, 0, engine.Len())
}

func TestEngine_LoadRejectsDuplicateTimestamps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, step.WriteManifest(step.ManifestPath(dir), []uint64{5, 9, 5}))

	board := &demo.Board{}
	engine := newDiskEngine(t, dir, board, nil)
	assert.ErrorIs(t, engine.LoadTimestamps(), history.ErrDuplicateTimestamp)
}

func TestEngine_ColdUndoWarmsSynchronously(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}

	{
		engine := newDiskEngine(t, dir, board, nil)
		for i := int32(0); i < 200; i++ {
			require.NoError(t, engine.Execute(demo.Line(i, i)))
		}
		require.NoError(t, engine.SaveTimestamps())
		require.NoError(t, engine.Close())
	}

	engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
		cfg.MaxCachedSteps = 12
		cfg.LookAheadSteps = 2
	})
	engine.Flush()

	// Walk far past the warm window; every undo must land regardless
	// of cache state.
	for i := 0; i < 150; i++ {
		require.NoError(t, engine.Undo())
	}
	assert.Equal(t, 50, engine.Cursor())
	assert.Equal(t, int32(49), board.X)
	assert.Equal(t, int32(49), board.Y)
}

func TestEngine_TimestampsIncreaseAcrossReload(t *testing.T) {
	dir := t.TempDir()
	board := &demo.Board{}

	{
		engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
			cfg.AutoLoadSave = true
		})
		for i := int32(0); i < 50; i++ {
			require.NoError(t, engine.Execute(demo.Line(i, i)))
		}
		require.NoError(t, engine.Close())
	}

	engine := newDiskEngine(t, dir, board, func(cfg *history.Config) {
		cfg.AutoLoadSave = true
	})
	last := engine.At(engine.Len() - 1).Timestamp()

	require.NoError(t, engine.Execute(demo.Line(100, 100)))
	assert.Greater(t, engine.At(engine.Len()-1).Timestamp(), last)
}

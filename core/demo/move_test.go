package demo_test

import (
	"testing"

	"github.com/adalundhe/rewind/core/command"
	"github.com/adalundhe/rewind/core/demo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveCommand_BackupUndoMirror(t *testing.T) {
	board := &demo.Board{X: 3, Y: 4}
	move := demo.NewMoveCommand(board)

	var blob []byte
	move.Backup(command.NewCursor(&blob))

	require.NoError(t, move.Options().Parse(demo.Line(10, 20)))
	require.NoError(t, move.Redo())
	assert.Equal(t, int32(10), board.X)
	assert.Equal(t, int32(20), board.Y)

	require.NoError(t, move.Undo(command.NewCursor(&blob)))
	assert.Equal(t, int32(3), board.X)
	assert.Equal(t, int32(4), board.Y)
}

func TestMoveCommand_UndoEmptyBlob(t *testing.T) {
	board := &demo.Board{}
	move := demo.NewMoveCommand(board)

	var blob []byte
	assert.ErrorIs(t, move.Undo(command.NewCursor(&blob)), command.ErrShortRead)
}

func TestLine(t *testing.T) {
	assert.Equal(t, "-Move -T 10 20", demo.Line(10, 20))
	assert.Equal(t, "-Move -T -5 0", demo.Line(-5, 0))
}

// Package demo provides the example application used by the CLI and
// the engine tests: a cursor board and a -Move command that records
// its pre-image position as the backup blob.
package demo

import (
	"fmt"

	"github.com/adalundhe/rewind/core/command"
)

// Board is the application state the move command operates on.
type Board struct {
	X, Y int32
}

// MoveCommand moves the board cursor to an absolute position.
type MoveCommand struct {
	board *Board
	opts  *command.Parser
	to    command.Handle
}

// NewMoveCommand creates a move command bound to board.
func NewMoveCommand(board *Board) *MoveCommand {
	c := &MoveCommand{
		board: board,
		opts:  command.NewParser("-Move", "Move the cursor to a new position"),
	}
	c.to = c.opts.AddOption("T", "Translate to X, Y position in abs values", true, 2)
	return c
}

// Name returns the registered command name.
func (c *MoveCommand) Name() string { return "-Move" }

// Help returns the command description.
func (c *MoveCommand) Help() string { return "Move the cursor to a new position" }

// Options returns the command's parser.
func (c *MoveCommand) Options() *command.Parser { return c.opts }

// Redo applies the last parsed target position.
func (c *MoveCommand) Redo() error {
	x, err := c.opts.IntArg(c.to, 0)
	if err != nil {
		return fmt.Errorf("failed to get parameter X: %w", err)
	}
	y, err := c.opts.IntArg(c.to, 1)
	if err != nil {
		return fmt.Errorf("failed to get parameter Y: %w", err)
	}
	c.board.X = int32(x)
	c.board.Y = int32(y)
	return nil
}

// Backup records the current position.
func (c *MoveCommand) Backup(cur *command.Cursor) {
	cur.WriteInt32(c.board.X)
	cur.WriteInt32(c.board.Y)
}

// Undo restores the recorded position.
func (c *MoveCommand) Undo(cur *command.Cursor) error {
	x, err := cur.ReadInt32()
	if err != nil {
		return err
	}
	y, err := cur.ReadInt32()
	if err != nil {
		return err
	}
	c.board.X = x
	c.board.Y = y
	return nil
}

// Line formats the command line that moves the cursor to (x, y).
func Line(x, y int32) string {
	return fmt.Sprintf("-Move -T %d %d", x, y)
}

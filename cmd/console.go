package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adalundhe/rewind/core/command"
	"github.com/adalundhe/rewind/core/demo"
	"github.com/adalundhe/rewind/core/history"
	"github.com/spf13/cobra"
)

var consoleUserID int32

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console driving a single undo engine",
	Long: `Starts a REPL over a move board. Any input line is executed as a
command; lines starting with a colon are console controls:

  :undo        undo one step
  :redo        redo one step
  :history     display the history and cursor
  :suggest N   suggest the next move for user N
  :save        write the timestamp manifest
  :flush       wait for pending background I/O
  :quit        exit`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().Int32Var(&consoleUserID, "user", -1, "User id recorded on executed steps")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := engineConfig(cmd)
	if err != nil {
		return err
	}

	board := &demo.Board{}
	reg := command.NewRegistry()
	if err := reg.Register(demo.NewMoveCommand(board)); err != nil {
		return err
	}

	engine, err := history.New(reg, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rewind console (dir=%q). :quit to exit.\n", engine.Dir())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":quit" {
			return nil
		}
		if err := consoleDispatch(engine, board, line, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func consoleDispatch(engine *history.Engine, board *demo.Board, line string, out io.Writer) error {
	switch {
	case line == ":undo":
		if err := engine.Undo(); err != nil {
			return err
		}
	case line == ":redo":
		if err := engine.Redo(); err != nil {
			return err
		}
	case line == ":history":
		engine.DisplayHistory(out)
		return nil
	case strings.HasPrefix(line, ":suggest"):
		userID := int64(1)
		if fields := strings.Fields(line); len(fields) > 1 {
			parsed, err := strconv.ParseInt(fields[1], 10, 32)
			if err != nil {
				return err
			}
			userID = parsed
		}
		fmt.Fprintf(out, "%s\n", engine.SuggestNext(int32(userID)))
		return nil
	case line == ":save":
		return engine.SaveTimestamps()
	case line == ":flush":
		engine.Flush()
		return nil
	default:
		if err := engine.ExecuteAs(line, consoleUserID); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "board: (%d, %d) cursor: %d/%d\n",
		board.X, board.Y, engine.Cursor(), engine.Len())
	return nil
}

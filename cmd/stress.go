package cmd

import (
	"fmt"
	"io"

	"github.com/adalundhe/rewind/core/command"
	"github.com/adalundhe/rewind/core/demo"
	"github.com/adalundhe/rewind/core/history"
	"github.com/spf13/cobra"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Exercise the engine across a save/destroy/reload lifecycle",
	Long: `Runs two engine instances against the same undo directory: the first
builds 500 steps, undoes 100 and saves the manifest; the second reloads
the surviving 400, extends the history, and executes mid-stack to force
a tail truncation.`,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := engineConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Dir == "" {
		return fmt.Errorf("stress requires an undo directory")
	}

	out := cmd.OutOrStdout()
	board := &demo.Board{}

	if err := stressBuild(cfg, board, out); err != nil {
		return err
	}
	return stressReload(cfg, board, out)
}

// stressBuild runs the first instance: 500 moves, 100 undos, manifest
// save without auto load/save.
func stressBuild(cfg history.Config, board *demo.Board, out io.Writer) error {
	cfg.AutoLoadSave = false

	reg := command.NewRegistry()
	if err := reg.Register(demo.NewMoveCommand(board)); err != nil {
		return err
	}
	engine, err := history.New(reg, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	for i := int32(0); i < 500; i++ {
		if err := engine.Execute(demo.Line(i, i)); err != nil {
			return fmt.Errorf("execute %d: %w", i, err)
		}
	}
	fmt.Fprintf(out, "after 500 commands: history=%d cursor=%d board=(%d,%d)\n",
		engine.Len(), engine.Cursor(), board.X, board.Y)

	for i := 0; i < 100; i++ {
		if err := engine.Undo(); err != nil {
			return fmt.Errorf("undo %d: %w", i, err)
		}
	}
	fmt.Fprintf(out, "after 100 undos: cursor=%d board=(%d,%d)\n",
		engine.Cursor(), board.X, board.Y)

	return engine.SaveTimestamps()
}

// stressReload runs the second instance: reload, 50 new moves, 20
// undos, 10 mid-stack inserts that truncate the tail.
func stressReload(cfg history.Config, board *demo.Board, out io.Writer) error {
	cfg.AutoLoadSave = true

	reg := command.NewRegistry()
	if err := reg.Register(demo.NewMoveCommand(board)); err != nil {
		return err
	}
	engine, err := history.New(reg, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(out, "after reload: history=%d cursor=%d\n", engine.Len(), engine.Cursor())

	for i := int32(0); i < 50; i++ {
		if err := engine.Execute(demo.Line(1000+i, 1000+i)); err != nil {
			return fmt.Errorf("execute %d: %w", 1000+i, err)
		}
	}
	for i := 0; i < 20; i++ {
		if err := engine.Undo(); err != nil {
			return fmt.Errorf("undo: %w", err)
		}
	}
	for i := int32(0); i < 10; i++ {
		if err := engine.Execute(demo.Line(2000+i, 2000+i)); err != nil {
			return fmt.Errorf("execute %d: %w", 2000+i, err)
		}
	}
	engine.Flush()

	fmt.Fprintf(out, "after mid-stack inserts: history=%d cursor=%d board=(%d,%d)\n",
		engine.Len(), engine.Cursor(), board.X, board.Y)
	fmt.Fprintf(out, "suggestion for user 1: %s\n", engine.SuggestNext(1))
	return nil
}

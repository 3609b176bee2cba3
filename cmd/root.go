// Package cmd provides the CLI for the rewind undo engine.
package cmd

import (
	"log/slog"
	"os"

	"github.com/adalundhe/rewind/core/config"
	"github.com/adalundhe/rewind/core/history"
	"github.com/spf13/cobra"
)

var (
	configPath string
	undoDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Rewind - a persistent multi-user undo/redo engine",
	Long:  `Rewind maintains an on-disk history of reversible commands with a warm in-memory cache around the cursor.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "rewind.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&undoDir, "dir", "", "Undo directory (overrides the config file; empty keeps history in memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// engineConfig resolves the engine configuration from the config file
// and command-line overrides.
func engineConfig(cmd *cobra.Command) (history.Config, error) {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return history.Config{}, err
	}

	cfg := history.DefaultConfig()
	cfg.Dir = fileCfg.Undo.Dir
	cfg.AutoLoadSave = fileCfg.Undo.AutoLoadSave
	cfg.MaxCachedSteps = fileCfg.Undo.MaxCachedSteps
	cfg.LookAheadSteps = fileCfg.Undo.LookAheadSteps
	cfg.Workers = fileCfg.Undo.Workers
	cfg.DefaultUserID = fileCfg.Undo.DefaultUserID
	cfg.WatchExternal = fileCfg.Undo.WatchExternal
	cfg.Output = cmd.OutOrStdout()

	if cmd.Flags().Changed("dir") {
		cfg.Dir = undoDir
		if cfg.Dir == "" {
			cfg.AutoLoadSave = false
		}
	}
	return cfg, nil
}

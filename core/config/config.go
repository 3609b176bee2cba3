// Package config loads the CLI configuration file. Settings mirror
// the engine's Config with yaml tags; a missing file yields defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level file configuration.
type Config struct {
	Undo UndoConfig `yaml:"undo"`
}

// UndoConfig configures the history engine.
type UndoConfig struct {
	Dir            string `yaml:"dir"`
	AutoLoadSave   bool   `yaml:"auto_load_save"`
	MaxCachedSteps int    `yaml:"max_cached_steps"`
	LookAheadSteps int    `yaml:"look_ahead_steps"`
	Workers        int    `yaml:"workers"`
	DefaultUserID  int32  `yaml:"default_user_id"`
	WatchExternal  bool   `yaml:"watch_external"`
}

// Default returns the built-in configuration: a persistent engine
// rooted in ./undo with auto load/save enabled.
func Default() *Config {
	return &Config{
		Undo: UndoConfig{
			Dir:            filepath.Join(".", "undo"),
			AutoLoadSave:   true,
			MaxCachedSteps: 50,
			LookAheadSteps: 5,
			Workers:        4,
			DefaultUserID:  1,
		},
	}
}

// Load reads the yaml file at path over the defaults. A missing file
// is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

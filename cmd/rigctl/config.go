package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is rigctl's TOML configuration, read from
// ~/.config/quantrig/config.toml when present.
type Config struct {
	StrategiesDir string `toml:"strategies_dir"`
}

// loadConfig reads the config file, falling back to the editor's default
// strategies directory. A missing or unreadable file is not an error;
// flags can override everything anyway.
func loadConfig() Config {
	cfg := Config{StrategiesDir: "strategies"}
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}
	cfg.StrategiesDir = filepath.Join(home, ".quantrig", "strategies")
	path := filepath.Join(home, ".config", "quantrig", "config.toml")
	_, _ = toml.DecodeFile(path, &cfg)
	return cfg
}

// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/config/config.go
// Summary: Ambient configuration loading from ~/.config/semblock/config.json.
// Notes: Grounded on config/config.go's os.UserConfigDir() + encoding/json flow.

package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/framegrace/semblock/semblock"
)

// Config holds the demo harness's ambient configuration. None of these
// values are owned by the semblock package itself (SPEC_FULL §6: "No
// CLI flags are owned by this core") — they configure the surrounding
// application that embeds it.
type Config struct {
	// MaxBlocks caps the BlockTracker's completed history.
	MaxBlocks int `json:"maxBlocks"`
	// Debug enables the demo harness's transition log file.
	Debug bool `json:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{MaxBlocks: semblock.DefaultMaxBlocks, Debug: false}
}

// Load loads configuration from ~/.config/semblock/config.json. If the
// file doesn't exist, it returns the default config.
func Load() (*Config, error) {
	cfg := Default()

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("config: failed to get user config dir: %v", err)
		return cfg, nil
	}

	configPath := filepath.Join(configDir, "semblock", "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: no config file at %s, using defaults", configPath)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = semblock.DefaultMaxBlocks
	}

	log.Printf("config: loaded from %s", configPath)
	return cfg, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete localchat configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Chat settings
	Chat ChatConfig `toml:"chat"`

	// UI settings
	UI UIConfig `toml:"ui"`

	// Export settings
	Export ExportConfig `toml:"export"`

	// path is the file this config was loaded from, for write-back.
	path string
}

// ServerConfig points at the Ollama server.
type ServerConfig struct {
	// URL of the Ollama server.
	URL string `toml:"url"`
	// TimeoutSecs bounds requests and per-chunk stream silence.
	TimeoutSecs int `toml:"timeout_secs"`
	// DefaultModel used when none is picked in the selector.
	DefaultModel string `toml:"default_model"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	// UserName is the display name for the local user.
	UserName string `toml:"user_name"`
	// ThinkingMessage is shown while waiting for the first fragment.
	ThinkingMessage string `toml:"thinking_message"`
	// HistoryPath is the chat history JSON file. Empty means
	// <config dir>/chat_history.json.
	HistoryPath string `toml:"history_path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Theme name: "dark" or "light".
	Theme string `toml:"theme"`
	// TypingEffect reveals streamed text at a fixed character rate
	// instead of rendering each fragment as it arrives. Cosmetic only;
	// the underlying text order is identical either way.
	TypingEffect bool `toml:"typing_effect"`
	// TypingCharsPerSec is the reveal rate when TypingEffect is on.
	TypingCharsPerSec int `toml:"typing_chars_per_sec"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Dir receives export files. Empty means the current directory.
	Dir string `toml:"dir"`
	// OpenAfterExport opens exports in the default viewer.
	OpenAfterExport bool `toml:"open_after_export"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "http://127.0.0.1:11434",
			TimeoutSecs: 30,
		},
		Chat: ChatConfig{
			UserName:        "You",
			ThinkingMessage: "Thinking...",
		},
		UI: UIConfig{
			Theme:             "dark",
			TypingEffect:      false,
			TypingCharsPerSec: 240,
		},
		Export: ExportConfig{
			OpenAfterExport: true,
		},
	}
}

// Timeout returns the server timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the localchat config directory (~/.local-ai-chat), creating
// it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".local-ai-chat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves the history file location: the configured path, or
// chat_history.json in the config directory.
func (c *Config) HistoryPath() (string, error) {
	if c.Chat.HistoryPath != "" {
		return c.Chat.HistoryPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chat_history.json"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config at the default path. A missing file yields the
// defaults, not an error. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a specific config file, tolerating absence.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()
	cfg.path = path
	return cfg, nil
}

// applyEnv applies LOCALCHAT_* environment overrides.
func (c *Config) applyEnv() {
	if url := os.Getenv("LOCALCHAT_OLLAMA_URL"); url != "" {
		c.Server.URL = url
	}
	if model := os.Getenv("LOCALCHAT_MODEL"); model != "" {
		c.Server.DefaultModel = model
	}
	if history := os.Getenv("LOCALCHAT_HISTORY"); history != "" {
		c.Chat.HistoryPath = history
	}
}

// setDefaults backfills zero values left by a sparse config file.
func (c *Config) setDefaults() {
	def := Default()
	if c.Server.URL == "" {
		c.Server.URL = def.Server.URL
	}
	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if c.Chat.UserName == "" {
		c.Chat.UserName = def.Chat.UserName
	}
	if c.Chat.ThinkingMessage == "" {
		c.Chat.ThinkingMessage = def.Chat.ThinkingMessage
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.TypingCharsPerSec <= 0 {
		c.UI.TypingCharsPerSec = def.UI.TypingCharsPerSec
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Persist writes the config back to the file it was loaded from. A config
// built in memory with no source file is left untouched.
func (c *Config) Persist() error {
	if c.path == "" {
		return nil
	}
	return SaveToPath(c, c.path)
}

// SaveToPath writes the config to a specific path atomically.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

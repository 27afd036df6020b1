// Package config handles configuration loading, validation, and hot
// reloading for turnkeyd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"turnkeyd/internal/hotkey"
	"turnkeyd/internal/logging"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Hotkeys are the global key binding specs.
	Hotkeys HotkeysConfig `toml:"hotkeys" yaml:"hotkeys"`

	// Sinks configures turn delivery targets.
	Sinks SinksConfig `toml:"sinks" yaml:"sinks"`

	// Registry locates the session registry socket.
	Registry RegistryConfig `toml:"registry" yaml:"registry"`

	// Journal configures the delivery journal database.
	Journal JournalConfig `toml:"journal" yaml:"journal"`

	// Notify toggles desktop notifications.
	Notify NotifyConfig `toml:"notify" yaml:"notify"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// HotkeysConfig holds the binding spec strings. Specs are opaque here;
// the hotkey provider parses them at registration time.
type HotkeysConfig struct {
	// Capture captures the focused session's current turn.
	Capture string `toml:"capture" yaml:"capture"`

	// Paste pastes the last captured turn into the focused session.
	Paste string `toml:"paste" yaml:"paste"`

	// Clipboard captures to the system clipboard. Empty disables the
	// clipboard hotkey entirely.
	Clipboard string `toml:"clipboard" yaml:"clipboard"`
}

// SinksConfig configures delivery targets.
type SinksConfig struct {
	// Directory receives one file per captured turn.
	Directory string `toml:"directory" yaml:"directory"`
}

// RegistryConfig locates the external session registry.
type RegistryConfig struct {
	Socket string `toml:"socket" yaml:"socket"`
}

// JournalConfig configures the delivery journal.
type JournalConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// NotifyConfig toggles desktop notifications for ambiguous focus and
// delivery failures.
type NotifyConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `toml:"level" yaml:"level"`
	Format   string `toml:"format" yaml:"format"`
	Output   string `toml:"output" yaml:"output"`
	FilePath string `toml:"file_path" yaml:"file_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			Capture:   "Super+Shift+C",
			Paste:     "Super+Shift+V",
			Clipboard: "Super+Shift+X",
		},
		Sinks: SinksConfig{
			Directory: filepath.Join(dataHome(), "turnkeyd", "turns"),
		},
		Registry: RegistryConfig{
			Socket: "", // empty selects the registry client default
		},
		Journal: JournalConfig{
			Path: filepath.Join(dataHome(), "turnkeyd", "journal.db"),
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, _ := os.UserHomeDir()
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "turnkeyd", "config.toml")
}

func dataHome() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, _ := os.UserHomeDir()
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return dataHome
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Hotkeys.Capture == "" {
		errs = append(errs, errors.New("hotkeys.capture must be set"))
	} else if err := hotkey.ValidateSpec(c.Hotkeys.Capture); err != nil {
		errs = append(errs, fmt.Errorf("hotkeys.capture: %w", err))
	}
	if c.Hotkeys.Paste == "" {
		errs = append(errs, errors.New("hotkeys.paste must be set"))
	} else if err := hotkey.ValidateSpec(c.Hotkeys.Paste); err != nil {
		errs = append(errs, fmt.Errorf("hotkeys.paste: %w", err))
	}
	if c.Hotkeys.Clipboard != "" {
		if err := hotkey.ValidateSpec(c.Hotkeys.Clipboard); err != nil {
			errs = append(errs, fmt.Errorf("hotkeys.clipboard: %w", err))
		}
	}
	if c.Sinks.Directory == "" {
		errs = append(errs, errors.New("sinks.directory must be set"))
	}
	if c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path must be set"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	return errors.Join(errs...)
}

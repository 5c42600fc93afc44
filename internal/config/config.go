package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by the backend setting.
const (
	BackendAuto     = "auto"
	BackendX11      = "x11"
	BackendHeadless = "headless"
)

const (
	DefaultTickRate    = 20
	DefaultLoadWorkers = 5
	DefaultHotkey      = "Mod4-Shift-o"
)

// MonitorConfig describes one virtual monitor for the headless backend.
type MonitorConfig struct {
	Name   string `yaml:"name"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// PointConfig is a screen position.
type PointConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is auto, text or json. Auto picks text on a terminal.
	Format string `yaml:"format"`
	// File optionally tees records into a size-rotated file.
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Config holds the host configuration.
type Config struct {
	AddonsDir        string          `yaml:"addons_dir"`
	PackagesDir      string          `yaml:"packages_dir"`
	TickRate         int             `yaml:"tick_rate"`
	LoadWorkers      int             `yaml:"load_workers"`
	Backend          string          `yaml:"backend"`
	HeadlessMonitors []MonitorConfig `yaml:"headless_monitors,omitempty"`
	HeadlessPointer  PointConfig     `yaml:"headless_pointer"`
	ToggleHotkey     string          `yaml:"toggle_hotkey"`
	Logging          LoggingConfig   `yaml:"logging"`
}

// ValidationError reports an invalid setting. Source is filled in when the
// value came from a file or the environment.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceEnv && e.Source.Name != "" {
		return fmt.Sprintf("%s (from $%s): %v", e.Path, e.Source.Name, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigDir returns the deskmod configuration directory, honouring
// XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "deskmod"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "deskmod"), nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = filepath.Join(".", ".deskmod")
	}
	return &Config{
		AddonsDir:    filepath.Join(dir, "addons"),
		PackagesDir:  filepath.Join(dir, "packages"),
		TickRate:     DefaultTickRate,
		LoadWorkers:  DefaultLoadWorkers,
		Backend:      BackendAuto,
		ToggleHotkey: DefaultHotkey,
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "auto",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// TickInterval returns the time between scheduler passes.
func (c *Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / DefaultTickRate
	}
	return time.Second / time.Duration(c.TickRate)
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AddonsDir) == "" {
		return &ValidationError{Path: "addons_dir", Err: fmt.Errorf("addons_dir is required")}
	}
	if strings.TrimSpace(c.PackagesDir) == "" {
		return &ValidationError{Path: "packages_dir", Err: fmt.Errorf("packages_dir is required")}
	}
	if c.TickRate < 1 || c.TickRate > 240 {
		return &ValidationError{Path: "tick_rate", Err: fmt.Errorf("tick_rate must be between 1 and 240")}
	}
	if c.LoadWorkers < 1 || c.LoadWorkers > 64 {
		return &ValidationError{Path: "load_workers", Err: fmt.Errorf("load_workers must be between 1 and 64")}
	}
	switch c.Backend {
	case BackendAuto, BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, headless")}
	}
	for i, m := range c.HeadlessMonitors {
		if m.Width <= 0 || m.Height <= 0 {
			return &ValidationError{Path: fmt.Sprintf("headless_monitors.%d", i), Err: fmt.Errorf("monitor width and height must be > 0")}
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("logging.format must be one of: auto, text, json")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides are read from the process environment after the file.
// Empty values leave the file or default in place.
type envOverrides struct {
	AddonsDir   string `env:"DESKMOD_ADDONS_DIR"`
	PackagesDir string `env:"DESKMOD_PACKAGES_DIR"`
	TickRate    int    `env:"DESKMOD_TICK_RATE"`
	Backend     string `env:"DESKMOD_BACKEND"`
	LogLevel    string `env:"DESKMOD_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// applyEnv overlays environment overrides and records their sources.
func applyEnv(cfg *Config, sources map[string]Source) error {
	var ov envOverrides
	if err := ParseEnv(&ov); err != nil {
		return err
	}

	if ov.AddonsDir != "" {
		cfg.AddonsDir = expandHome(ov.AddonsDir)
		sources["addons_dir"] = Source{Kind: SourceEnv, Name: "DESKMOD_ADDONS_DIR"}
	}
	if ov.PackagesDir != "" {
		cfg.PackagesDir = expandHome(ov.PackagesDir)
		sources["packages_dir"] = Source{Kind: SourceEnv, Name: "DESKMOD_PACKAGES_DIR"}
	}
	if ov.TickRate != 0 {
		cfg.TickRate = ov.TickRate
		sources["tick_rate"] = Source{Kind: SourceEnv, Name: "DESKMOD_TICK_RATE"}
	}
	if ov.Backend != "" {
		cfg.Backend = ov.Backend
		sources["backend"] = Source{Kind: SourceEnv, Name: "DESKMOD_BACKEND"}
	}
	if ov.LogLevel != "" {
		cfg.Logging.Level = ov.LogLevel
		sources["logging.level"] = Source{Kind: SourceEnv, Name: "DESKMOD_LOG_LEVEL"}
	}
	return nil
}

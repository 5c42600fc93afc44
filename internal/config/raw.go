package config

// RawConfig is the on-disk shape. Nil fields keep their defaults.
type RawConfig struct {
	AddonsDir        *string          `yaml:"addons_dir"`
	PackagesDir      *string          `yaml:"packages_dir"`
	TickRate         *int             `yaml:"tick_rate"`
	LoadWorkers      *int             `yaml:"load_workers"`
	Backend          *string          `yaml:"backend"`
	HeadlessMonitors *[]MonitorConfig `yaml:"headless_monitors"`
	HeadlessPointer  *PointConfig     `yaml:"headless_pointer"`
	ToggleHotkey     *string          `yaml:"toggle_hotkey"`
	Logging          *RawLogging      `yaml:"logging"`
}

type RawLogging struct {
	Level     *string `yaml:"level"`
	Format    *string `yaml:"format"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// BuildEffectiveConfig overlays raw onto the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.AddonsDir != nil {
		cfg.AddonsDir = expandHome(*raw.AddonsDir)
	}
	if raw.PackagesDir != nil {
		cfg.PackagesDir = expandHome(*raw.PackagesDir)
	}
	if raw.TickRate != nil {
		cfg.TickRate = *raw.TickRate
	}
	if raw.LoadWorkers != nil {
		cfg.LoadWorkers = *raw.LoadWorkers
	}
	if raw.Backend != nil {
		cfg.Backend = *raw.Backend
	}
	if raw.HeadlessMonitors != nil {
		cfg.HeadlessMonitors = append([]MonitorConfig(nil), (*raw.HeadlessMonitors)...)
	}
	if raw.HeadlessPointer != nil {
		cfg.HeadlessPointer = *raw.HeadlessPointer
	}
	if raw.ToggleHotkey != nil {
		cfg.ToggleHotkey = *raw.ToggleHotkey
	}
	if l := raw.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		if l.Format != nil {
			cfg.Logging.Format = *l.Format
		}
		if l.File != nil {
			cfg.Logging.File = expandHome(*l.File)
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxFiles != nil {
			cfg.Logging.MaxFiles = *l.MaxFiles
		}
	}
	return cfg
}

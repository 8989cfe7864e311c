package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load decodes the TOML file at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// with environment overrides otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		ApplyEnvOverrides(cfg)
		applyDefaults(cfg)
		if errs := Validate(cfg); len(errs) > 0 {
			return nil, errs[0]
		}
		return cfg, nil
	}
	return Load(path)
}

// FunctionsRoot returns the absolute-or-relative directory holding the
// function sources.
func (c *Config) FunctionsRoot() string {
	if filepath.IsAbs(c.Paths.FunctionsDir) {
		return c.Paths.FunctionsDir
	}
	return filepath.Join(c.Paths.SourceRoot, c.Paths.FunctionsDir)
}

// ReportPath returns where the migration report is written.
func (c *Config) ReportPath() string {
	return resolveUnder(c.Paths.OutputDir, c.Output.Report)
}

// MarkdownPath returns the markdown report location, or "" when disabled.
func (c *Config) MarkdownPath() string {
	if strings.TrimSpace(c.Output.Markdown) == "" {
		return ""
	}
	return resolveUnder(c.Paths.OutputDir, c.Output.Markdown)
}

// HistoryPath returns the sqlite history database location.
func (c *Config) HistoryPath() string {
	return resolveUnder(c.Paths.StateDir, c.History.Path)
}

func resolveUnder(base, value string) string {
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(base, value)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variables that take precedence over the config file.
const (
	EnvLogLevel   = "VOXSCRIBE_LOG_LEVEL"
	EnvServerAddr = "VOXSCRIBE_SERVER_ADDR"
	EnvOutputDir  = "VOXSCRIBE_OUTPUT_DIR"
)

// Loaded is the outcome of Load: where the config came from and what it said.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath (or the default location), falls back
// to defaults when the file is absent, and layers environment overrides on top.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded, err := readFile(path)
	if err != nil {
		return Loaded{}, err
	}

	loaded.Warnings = append(loaded.Warnings, applyEnv(&loaded.Config)...)
	return loaded, nil
}

func readFile(path string) (Loaded, error) {
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Loaded{
			Path:     path,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}},
		}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), FormatForPath(path), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

func applyEnv(cfg *Config) []Warning {
	var warnings []Warning
	if level, ok := lookupEnv(EnvLogLevel); ok {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			warnings = append(warnings, Warning{Message: fmt.Sprintf("%s=%q is not a log level; keeping %q", EnvLogLevel, level, cfg.LogLevel)})
		}
	}
	if addr, ok := lookupEnv(EnvServerAddr); ok {
		cfg.Server.Addr = addr
	}
	if dir, ok := lookupEnv(EnvOutputDir); ok {
		cfg.Output.Dir = dir
	}
	return warnings
}

func lookupEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

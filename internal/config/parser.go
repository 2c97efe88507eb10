package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a supported configuration file syntax.
type Format string

const (
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// FormatForPath selects the parser from a config file extension.
// Unknown extensions are treated as JSONC.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSONC
	}
}

// Parse decodes content in the given format over base and validates the result.
func Parse(content string, format Format, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	var (
		payload fileConfig
		err     error
	)
	switch format {
	case FormatJSONC:
		payload, err = parseJSONC(content)
	case FormatYAML:
		payload, err = parseYAML(content)
	case FormatTOML:
		payload, err = parseTOML(content)
	default:
		return Config{}, nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return Config{}, nil, err
	}

	cfg := base
	cfg.Commands = base.Commands.Clone()
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

func (l *stringList) UnmarshalTOML(data any) error {
	switch value := data.(type) {
	case string:
		*l = splitCommaList(value)
		return nil
	case []any:
		out := make(stringList, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string array or comma-delimited string")
			}
			out = append(out, text)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("expected string array or comma-delimited string")
	}
}

func parseTOML(content string) (fileConfig, error) {
	var payload fileConfig
	meta, err := toml.Decode(content, &payload)
	if err != nil {
		return fileConfig{}, fmt.Errorf("toml: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fileConfig{}, fmt.Errorf("toml: unknown keys: %s", strings.Join(keys, ", "))
	}
	return payload, nil
}

package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// TTSPlaceholders are the tokens expanded in tts.command before each call.
var TTSPlaceholders = []string{"{rate}", "{amplitude}", "{volume}", "{text}"}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// parseCommand splits raw into argv for the config key named field.
func parseCommand(field string, raw string) (CommandConfig, error) {
	argv, err := splitArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

// defaultCommand parses a built-in command line; raw must be well formed.
func defaultCommand(raw string) CommandConfig {
	cmd, err := parseCommand("default command", raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// splitArgv tokenizes a shell-like command line. Single and double quotes
// group words and a backslash escapes the next rune. A line starting with #
// is treated as commented out.
func splitArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range input {
		if escaped {
			word.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			inWord = true
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord && word.Len() > 0 {
				argv = append(argv, word.String())
			}
			word.Reset()
			inWord = false
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if word.Len() > 0 {
		argv = append(argv, word.String())
	}
	return argv, nil
}

// unknownPlaceholders lists {name} tokens in argv that are not in known.
func unknownPlaceholders(argv []string, known []string) []string {
	var unknown []string
	for _, arg := range argv {
		for _, token := range placeholderPattern.FindAllString(arg, -1) {
			if !slices.Contains(known, token) && !slices.Contains(unknown, token) {
				unknown = append(unknown, token)
			}
		}
	}
	return unknown
}

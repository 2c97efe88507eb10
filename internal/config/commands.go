package config

import (
	"fmt"
	"strings"
)

// CommandID names one voice command.
type CommandID string

const (
	CommandStart           CommandID = "start"
	CommandStop            CommandID = "stop"
	CommandSave            CommandID = "save"
	CommandEndConversation CommandID = "end_conversation"
	CommandClear           CommandID = "clear"
	CommandExit            CommandID = "exit"
)

// CommandOrder is the fixed phrase lookup order; the first command with a
// matching phrase wins. Longer phrases that embed another command's phrase
// ("stop recording" holds "record", "close conversation" holds "close") must
// be checked first.
var CommandOrder = []CommandID{
	CommandEndConversation,
	CommandStop,
	CommandStart,
	CommandSave,
	CommandClear,
	CommandExit,
}

// CommandTable maps each command to its trigger phrases.
type CommandTable map[CommandID][]string

// ParseCommandID resolves a command name, accepting "end" as shorthand.
func ParseCommandID(raw string) (CommandID, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "end" {
		return CommandEndConversation, nil
	}
	for _, id := range CommandOrder {
		if string(id) == normalized {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown voice command %q", raw)
}

// DefaultCommandTable returns the built-in English and Icelandic phrases.
func DefaultCommandTable() CommandTable {
	return CommandTable{
		CommandStart:           {"start recording", "begin recording", "record", "start", "byrja upptöku", "byrja að taka upp"},
		CommandStop:            {"stop recording", "end recording", "stop", "finish", "stöðva upptöku", "hætta upptöku"},
		CommandSave:            {"save transcript", "save text", "save", "vista texta", "vista ritun"},
		CommandEndConversation: {"end conversation", "finish conversation", "close conversation", "loka samtal"},
		CommandClear:           {"clear transcript", "clear text", "clear", "hreinsa texta", "eyða texta"},
		CommandExit:            {"exit", "quit", "close", "goodbye"},
	}
}

// Clone returns a deep copy so callers can override phrases without aliasing defaults.
func (t CommandTable) Clone() CommandTable {
	out := make(CommandTable, len(t))
	for id, phrases := range t {
		out[id] = append([]string(nil), phrases...)
	}
	return out
}

// Phrases returns the normalized phrases for id.
func (t CommandTable) Phrases(id CommandID) []string {
	return t[id]
}

// AllPhrases flattens the table in match order.
func (t CommandTable) AllPhrases() []string {
	out := make([]string, 0)
	for _, id := range CommandOrder {
		out = append(out, t[id]...)
	}
	return out
}

func normalizePhrases(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, phrase := range raw {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		out = append(out, phrase)
	}
	return out
}

// Package cli parses voxscribe command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun        Command = "run"
	CommandServe      Command = "serve"
	CommandTranscribe Command = "transcribe"
	CommandStart      Command = "start"
	CommandStop       Command = "stop"
	CommandToggle     Command = "toggle"
	CommandSave       Command = "save"
	CommandEnd        Command = "end"
	CommandClear      Command = "clear"
	CommandExit       Command = "exit"
	CommandStatus     Command = "status"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// Mode values accepted by --mode.
const (
	ModeManual = "manual"
	ModeVoice  = "voice"
)

var validCommands = map[Command]struct{}{
	CommandRun:        {},
	CommandServe:      {},
	CommandTranscribe: {},
	CommandStart:      {},
	CommandStop:       {},
	CommandToggle:     {},
	CommandSave:       {},
	CommandEnd:        {},
	CommandClear:      {},
	CommandExit:       {},
	CommandStatus:     {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// forwarded commands act on a running session over IPC.
var forwarded = map[Command]struct{}{
	CommandStart:  {},
	CommandStop:   {},
	CommandToggle: {},
	CommandSave:   {},
	CommandEnd:    {},
	CommandClear:  {},
	CommandExit:   {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	// Mode is empty when --mode was not given; run then prompts.
	Mode     string
	Plain    bool
	File     string
	ShowHelp bool
}

// Forwarded reports whether the command is sent to a running session.
func (p Parsed) Forwarded() bool {
	_, ok := forwarded[p.Command]
	return ok
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
		case arg == "--version":
			parsed.Command = CommandVersion
			return parsed, nil
		case arg == "--plain":
			parsed.Plain = true
		case arg == "--config" || arg == "--mode":
			i++
			if i >= len(args) {
				if arg == "--config" {
					return Parsed{}, errors.New("--config requires a path")
				}
				return Parsed{}, errors.New("--mode requires manual or voice")
			}
			if err := parsed.setValue(arg, args[i]); err != nil {
				return Parsed{}, err
			}
		case strings.HasPrefix(arg, "--config=") || strings.HasPrefix(arg, "--mode="):
			name, value, _ := strings.Cut(arg, "=")
			if err := parsed.setValue(name, value); err != nil {
				return Parsed{}, err
			}
		case strings.HasPrefix(arg, "-") && arg != "-":
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) > 0 {
		cmd := Command(positional[0])
		if _, ok := validCommands[cmd]; !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", positional[0])
		}
		parsed.Command = cmd
		positional = positional[1:]
	}

	switch parsed.Command {
	case CommandTranscribe:
		if len(positional) != 1 {
			return Parsed{}, errors.New("transcribe requires exactly one WAV file")
		}
		parsed.File = positional[0]
	case CommandHelp:
		parsed.ShowHelp = true
		if len(positional) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	default:
		if len(positional) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	}

	if parsed.Mode != "" && parsed.Command != CommandRun {
		return Parsed{}, fmt.Errorf("--mode only applies to %q", CommandRun)
	}
	if parsed.Plain && parsed.Command != CommandRun {
		return Parsed{}, fmt.Errorf("--plain only applies to %q", CommandRun)
	}

	return parsed, nil
}

func (p *Parsed) setValue(flag string, value string) error {
	switch flag {
	case "--config":
		if strings.TrimSpace(value) == "" {
			return errors.New("--config requires a path")
		}
		p.ConfigPath = value
	case "--mode":
		mode := strings.ToLower(strings.TrimSpace(value))
		if mode != ModeManual && mode != ModeVoice {
			return fmt.Errorf("--mode must be manual or voice, got %q", value)
		}
		p.Mode = mode
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command] [args]

Commands:
  run              Start an interactive session (default)
  serve            Serve static files, the live event feed, and a headless session
  transcribe FILE  Transcribe one WAV file and print the text
  start            Start recording in the running session
  stop             Stop recording and transcribe
  toggle           Start or stop recording
  save             Save the conversation to a JSON transcript
  end              Save and clear the conversation
  clear            Clear the conversation without saving
  exit             Stop the running session
  status           Print the running session state
  devices          List available input devices
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Flags:
  --config PATH          Config file path (default: $XDG_CONFIG_HOME/voxscribe/config.jsonc)
  --mode manual|voice    Session control mode for run (prompts when omitted)
  --plain                Line-oriented console instead of the full-screen UI
  -h, --help             Show help
  --version              Show version
`, binaryName)
}

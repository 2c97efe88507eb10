package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToRun(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.False(t, parsed.ShowHelp)
	require.Equal(t, CommandRun, parsed.Command)
	require.Empty(t, parsed.Mode)
}

func TestParseFlagsOnlyRuns(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/voxscribe.jsonc", "--mode", "voice", "--plain"})
	require.NoError(t, err)
	require.Equal(t, CommandRun, parsed.Command)
	require.Equal(t, "/tmp/voxscribe.jsonc", parsed.ConfigPath)
	require.Equal(t, ModeVoice, parsed.Mode)
	require.True(t, parsed.Plain)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
		wantFile string
		wantMode string
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandRun, wantHelp: true},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantCmd: CommandStatus, wantPath: "/tmp/cfg"},
		{name: "config equals form", args: []string{"--config=/tmp/cfg", "doctor"}, wantCmd: CommandDoctor, wantPath: "/tmp/cfg"},
		{name: "mode equals form", args: []string{"run", "--mode=Manual"}, wantCmd: CommandRun, wantMode: ModeManual},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "missing mode", args: []string{"--mode"}, wantErr: "--mode requires"},
		{name: "invalid mode", args: []string{"--mode", "auto"}, wantErr: "must be manual or voice"},
		{name: "mode on other command", args: []string{"serve", "--mode", "voice"}, wantErr: "only applies"},
		{name: "plain on other command", args: []string{"doctor", "--plain"}, wantErr: "only applies"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "transcribe file", args: []string{"transcribe", "clip.wav"}, wantCmd: CommandTranscribe, wantFile: "clip.wav"},
		{name: "transcribe without file", args: []string{"transcribe"}, wantErr: "exactly one WAV file"},
		{name: "transcribe two files", args: []string{"transcribe", "a.wav", "b.wav"}, wantErr: "exactly one WAV file"},
		{name: "forwarded end", args: []string{"end"}, wantCmd: CommandEnd},
		{name: "serve", args: []string{"--config", "/tmp/cfg", "serve"}, wantCmd: CommandServe, wantPath: "/tmp/cfg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantFile, parsed.File)
			require.Equal(t, tc.wantMode, parsed.Mode)
		})
	}
}

func TestForwardedCommands(t *testing.T) {
	for _, cmd := range []Command{CommandStart, CommandStop, CommandToggle, CommandSave, CommandEnd, CommandClear, CommandExit} {
		require.True(t, Parsed{Command: cmd}.Forwarded(), cmd)
	}
	for _, cmd := range []Command{CommandRun, CommandServe, CommandStatus, CommandDoctor, CommandTranscribe} {
		require.False(t, Parsed{Command: cmd}.Forwarded(), cmd)
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("voxscribe")
	for _, want := range []string{"run", "serve", "transcribe FILE", "toggle", "end", "doctor", "--config PATH", "--mode manual|voice", "--plain"} {
		require.Contains(t, text, want)
	}
}

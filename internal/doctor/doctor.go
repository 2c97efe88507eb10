// Package doctor runs readiness diagnostics for config, audio, recognition, and helper commands.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/indicator"
	"github.com/rbright/voxscribe/internal/recognize"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkAPIKey(cfg.Config.Recognition))
	checks = append(checks, checkEndpoint(cfg.Config.Recognition))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkOutputDir(cfg.Config.Output.Dir))

	if cfg.Config.TTS.Enable {
		checks = append(checks, checkCommand(cfg.Config.TTS.Command.Argv, "tts.command"))
	}
	if len(cfg.Config.Output.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Output.Clipboard.Argv, "output.clipboard_cmd"))
	}
	checks = append(checks, checkCueFiles(cfg.Config.Indicator)...)

	return Report{Checks: checks}
}

// checkAPIKey reports whether recognition credentials resolve.
func checkAPIKey(rc config.RecognitionConfig) Check {
	if recognize.ResolveAPIKey(rc) != "" {
		source := "recognition.api_key"
		if strings.TrimSpace(rc.APIKey) == "" {
			source = "$" + rc.APIKeyEnv
		}
		return Check{Name: "recognition.api_key", Pass: true, Message: "resolved from " + source}
	}
	return Check{
		Name:    "recognition.api_key",
		Pass:    false,
		Message: fmt.Sprintf("no key; set recognition.api_key or $%s", rc.APIKeyEnv),
	}
}

// checkEndpoint verifies the recognition host answers HTTP at all.
func checkEndpoint(rc config.RecognitionConfig) Check {
	endpoint := strings.TrimSpace(rc.Endpoint)
	if endpoint == "" {
		endpoint = recognize.DefaultEndpoint(rc.Backend)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return Check{Name: "recognition.endpoint", Pass: false, Message: fmt.Sprintf("invalid endpoint %q", endpoint)}
	}

	probe := parsed.Scheme + "://" + parsed.Host + "/"
	client := http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(probe)
	if err != nil {
		return Check{Name: "recognition.endpoint", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "recognition.endpoint", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, probe)}
	}
	return Check{Name: "recognition.endpoint", Pass: true, Message: fmt.Sprintf("%s reachable (%s backend)", parsed.Host, rc.Backend)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	if cfg.Audio.Backend == "miniaudio" {
		return Check{Name: "audio.device", Pass: true, Message: "miniaudio captures from the system default device"}
	}

	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkOutputDir confirms transcripts can be written.
func checkOutputDir(dir string) Check {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "output.dir", Pass: false, Message: err.Error()}
	}
	probe, err := os.CreateTemp(dir, ".voxscribe-doctor-*")
	if err != nil {
		return Check{Name: "output.dir", Pass: false, Message: fmt.Sprintf("not writable: %v", err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return Check{Name: "output.dir", Pass: true, Message: fmt.Sprintf("writable at %s", abs)}
}

// checkCueFiles verifies configured cue overrides exist.
func checkCueFiles(cfg config.IndicatorConfig) []Check {
	if !cfg.SoundEnable {
		return nil
	}

	files := []struct {
		name string
		path string
	}{
		{"indicator.sound_start_file", cfg.SoundStartFile},
		{"indicator.sound_stop_file", cfg.SoundStopFile},
		{"indicator.sound_complete_file", cfg.SoundCompleteFile},
		{"indicator.sound_error_file", cfg.SoundErrorFile},
	}

	var checks []Check
	for _, file := range files {
		if strings.TrimSpace(file.path) == "" {
			continue
		}
		path := indicator.ExpandPath(file.path)
		if _, err := os.Stat(path); err != nil {
			checks = append(checks, Check{Name: file.name, Pass: false, Message: fmt.Sprintf("cannot read %s: %v", path, err)})
			continue
		}
		checks = append(checks, Check{Name: file.name, Pass: true, Message: path})
	}
	return checks
}

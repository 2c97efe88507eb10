package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
)

const maxRecordingLimit = time.Hour

var supportedSampleRates = []int{8000, 16000, 44100, 48000}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	switch strings.ToLower(cfg.Audio.Backend) {
	case "pulse", "miniaudio":
	default:
		return nil, fmt.Errorf("audio.backend must be one of: pulse, miniaudio")
	}
	if !slices.Contains(supportedSampleRates, cfg.Audio.SampleRate) {
		return nil, fmt.Errorf("audio.sample_rate %d is not supported (use 8000, 16000, 44100, or 48000)", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		return nil, fmt.Errorf("audio.channels must be 1 or 2")
	}
	if cfg.Audio.BlockSize <= 0 {
		return nil, fmt.Errorf("audio.block_size must be > 0")
	}
	if cfg.Audio.MaxDuration <= 0 {
		return nil, fmt.Errorf("audio.max_duration_seconds must be > 0")
	}
	if cfg.Audio.MaxDuration > maxRecordingLimit {
		return nil, fmt.Errorf("audio.max_duration_seconds must not exceed %d", int(maxRecordingLimit.Seconds()))
	}

	switch strings.ToLower(cfg.Recognition.Backend) {
	case "google", "openai", "gemini":
	default:
		return nil, fmt.Errorf("recognition.backend must be one of: google, openai, gemini")
	}
	if strings.TrimSpace(cfg.Recognition.LanguageCode) == "" {
		return nil, fmt.Errorf("recognition.language_code must not be empty")
	}
	if cfg.Recognition.Timeout < 0 {
		return nil, fmt.Errorf("recognition.timeout_seconds must be >= 0")
	}

	if cfg.Listener.EnergyThreshold <= 0 {
		return nil, fmt.Errorf("listener.energy_threshold must be > 0")
	}
	if cfg.Listener.PauseThreshold <= 0 {
		return nil, fmt.Errorf("listener.pause_threshold must be > 0")
	}
	if cfg.Listener.DynamicDamping <= 0 || cfg.Listener.DynamicDamping >= 1 {
		return nil, fmt.Errorf("listener.dynamic_damping must be between 0 and 1")
	}
	if cfg.Listener.AdjustmentRatio < 1 {
		return nil, fmt.Errorf("listener.adjustment_ratio must be >= 1")
	}
	if cfg.Listener.ListenTimeout < 0 || cfg.Listener.PhraseTimeLimit < 0 || cfg.Listener.RetryBackoff < 0 {
		return nil, fmt.Errorf("listener durations must be >= 0")
	}

	for _, id := range CommandOrder {
		if len(cfg.Commands[id]) == 0 {
			return nil, fmt.Errorf("commands.%s must contain at least one phrase", id)
		}
	}

	if len(cfg.Output.AllowedExtensions) == 0 {
		return nil, fmt.Errorf("output.allowed_extensions must not be empty")
	}
	for _, ext := range cfg.Output.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return nil, fmt.Errorf("output.allowed_extensions entry %q must start with '.'", ext)
		}
	}
	if strings.TrimSpace(cfg.Output.TranscriptFile) == "" {
		return nil, fmt.Errorf("output.transcript_file must not be empty")
	}
	ext := strings.ToLower(filepath.Ext(cfg.Output.TranscriptFile))
	if !slices.Contains(cfg.Output.AllowedExtensions, ext) {
		return nil, fmt.Errorf("output.transcript_file extension %q is not in output.allowed_extensions", ext)
	}
	if cfg.Output.MaxFileSize <= 0 {
		return nil, fmt.Errorf("output.max_file_size must be > 0")
	}

	if cfg.TTS.Enable && len(cfg.TTS.Command.Argv) == 0 {
		return nil, fmt.Errorf("tts.command must not be empty when tts.enable=true")
	}
	if cfg.TTS.Volume < 0 || cfg.TTS.Volume > 1 {
		return nil, fmt.Errorf("tts.volume must be between 0 and 1")
	}
	if cfg.TTS.Rate <= 0 {
		return nil, fmt.Errorf("tts.rate must be > 0")
	}
	if unknown := unknownPlaceholders(cfg.TTS.Command.Argv, TTSPlaceholders); len(unknown) > 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("tts.command placeholders %s are not expanded", strings.Join(unknown, ", "))})
	}
	if unknown := unknownPlaceholders(cfg.Output.Clipboard.Argv, nil); len(unknown) > 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("output.clipboard_cmd placeholders %s are not expanded; text is sent on stdin", strings.Join(unknown, ", "))})
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return nil, fmt.Errorf("server.addr must not be empty")
	}
	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}

	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

// BuildSpeechPhrases merges enabled vocab sets into deterministic ASR phrase payloads.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	enabledSets := cfg.Vocab.GlobalSets
	if len(enabledSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range enabledSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if existing, exists := selected[phrase]; exists {
				if set.Boost > existing.boost {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
					selected[phrase] = candidate{boost: set.Boost, from: name}
				}
				continue
			}
			selected[phrase] = candidate{boost: set.Boost, from: name}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}

	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Phrase == phrases[j].Phrase {
			return phrases[i].Boost < phrases[j].Boost
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	return phrases, warnings, nil
}

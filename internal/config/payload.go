package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// fileConfig is the on-disk shape shared by the JSONC, YAML, and TOML decoders.
// Pointer fields distinguish "unset" from zero so defaults survive partial files.
type fileConfig struct {
	LogLevel    *string               `json:"log_level" yaml:"log_level" toml:"log_level"`
	Audio       *fileAudio            `json:"audio" yaml:"audio" toml:"audio"`
	Recognition *fileRecognition      `json:"recognition" yaml:"recognition" toml:"recognition"`
	Listener    *fileListener         `json:"listener" yaml:"listener" toml:"listener"`
	Commands    map[string]stringList `json:"commands" yaml:"commands" toml:"commands"`
	Output      *fileOutput           `json:"output" yaml:"output" toml:"output"`
	TTS         *fileTTS              `json:"tts" yaml:"tts" toml:"tts"`
	Indicator   *fileIndicator        `json:"indicator" yaml:"indicator" toml:"indicator"`
	Server      *fileServer           `json:"server" yaml:"server" toml:"server"`
	Vocab       *fileVocab            `json:"vocab" yaml:"vocab" toml:"vocab"`
	Debug       *fileDebug            `json:"debug" yaml:"debug" toml:"debug"`
}

type fileAudio struct {
	Backend            *string  `json:"backend" yaml:"backend" toml:"backend"`
	Input              *string  `json:"input" yaml:"input" toml:"input"`
	Fallback           *string  `json:"fallback" yaml:"fallback" toml:"fallback"`
	SampleRate         *int     `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`
	Channels           *int     `json:"channels" yaml:"channels" toml:"channels"`
	BlockSize          *int     `json:"block_size" yaml:"block_size" toml:"block_size"`
	MaxDurationSeconds *float64 `json:"max_duration_seconds" yaml:"max_duration_seconds" toml:"max_duration_seconds"`
}

type fileRecognition struct {
	Backend        *string  `json:"backend" yaml:"backend" toml:"backend"`
	Endpoint       *string  `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	APIKey         *string  `json:"api_key" yaml:"api_key" toml:"api_key"`
	APIKeyEnv      *string  `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
	Model          *string  `json:"model" yaml:"model" toml:"model"`
	LanguageCode   *string  `json:"language_code" yaml:"language_code" toml:"language_code"`
	TimeoutSeconds *float64 `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type fileListener struct {
	PauseThreshold     *float64 `json:"pause_threshold" yaml:"pause_threshold" toml:"pause_threshold"`
	EnergyThreshold    *float64 `json:"energy_threshold" yaml:"energy_threshold" toml:"energy_threshold"`
	DynamicEnergy      *bool    `json:"dynamic_energy" yaml:"dynamic_energy" toml:"dynamic_energy"`
	DynamicDamping     *float64 `json:"dynamic_damping" yaml:"dynamic_damping" toml:"dynamic_damping"`
	AdjustmentRatio    *float64 `json:"adjustment_ratio" yaml:"adjustment_ratio" toml:"adjustment_ratio"`
	CalibrationSeconds *float64 `json:"calibration_seconds" yaml:"calibration_seconds" toml:"calibration_seconds"`
	ListenTimeout      *float64 `json:"listen_timeout_seconds" yaml:"listen_timeout_seconds" toml:"listen_timeout_seconds"`
	PhraseTimeLimit    *float64 `json:"phrase_time_limit_seconds" yaml:"phrase_time_limit_seconds" toml:"phrase_time_limit_seconds"`
	RetryBackoff       *float64 `json:"retry_backoff_seconds" yaml:"retry_backoff_seconds" toml:"retry_backoff_seconds"`
}

type fileOutput struct {
	Dir               *string     `json:"dir" yaml:"dir" toml:"dir"`
	TranscriptFile    *string     `json:"transcript_file" yaml:"transcript_file" toml:"transcript_file"`
	AllowedExtensions *stringList `json:"allowed_extensions" yaml:"allowed_extensions" toml:"allowed_extensions"`
	MaxFileSize       *int64      `json:"max_file_size" yaml:"max_file_size" toml:"max_file_size"`
	ClipboardCmd      *string     `json:"clipboard_cmd" yaml:"clipboard_cmd" toml:"clipboard_cmd"`
}

type fileTTS struct {
	Enable  *bool    `json:"enable" yaml:"enable" toml:"enable"`
	Command *string  `json:"command" yaml:"command" toml:"command"`
	Rate    *int     `json:"rate" yaml:"rate" toml:"rate"`
	Volume  *float64 `json:"volume" yaml:"volume" toml:"volume"`
}

type fileIndicator struct {
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable" toml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" yaml:"sound_start_file" toml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" yaml:"sound_stop_file" toml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file" toml:"sound_complete_file"`
	SoundErrorFile    *string `json:"sound_error_file" yaml:"sound_error_file" toml:"sound_error_file"`
}

type fileServer struct {
	Addr      *string `json:"addr" yaml:"addr" toml:"addr"`
	StaticDir *string `json:"static_dir" yaml:"static_dir" toml:"static_dir"`
}

type fileVocab struct {
	Global     *stringList             `json:"global" yaml:"global" toml:"global"`
	MaxPhrases *int                    `json:"max_phrases" yaml:"max_phrases" toml:"max_phrases"`
	Sets       map[string]fileVocabSet `json:"sets" yaml:"sets" toml:"sets"`
}

type fileVocabSet struct {
	Boost   *float64 `json:"boost" yaml:"boost" toml:"boost"`
	Phrases []string `json:"phrases" yaml:"phrases" toml:"phrases"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump" toml:"audio_dump"`
}

// stringList accepts either a list or a comma-delimited string in every format.
type stringList []string

func splitCommaList(single string) stringList {
	parts := strings.Split(single, ",")
	out := make(stringList, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func seconds(value float64) time.Duration {
	return time.Duration(math.Round(value * float64(time.Second)))
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	setString(&cfg.LogLevel, payload.LogLevel)

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Backend, a.Backend)
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		if a.SampleRate != nil {
			cfg.Audio.SampleRate = *a.SampleRate
		}
		if a.Channels != nil {
			cfg.Audio.Channels = *a.Channels
		}
		if a.BlockSize != nil {
			cfg.Audio.BlockSize = *a.BlockSize
		}
		if a.MaxDurationSeconds != nil {
			cfg.Audio.MaxDuration = seconds(*a.MaxDurationSeconds)
		}
	}

	if r := payload.Recognition; r != nil {
		setString(&cfg.Recognition.Backend, r.Backend)
		setString(&cfg.Recognition.Endpoint, r.Endpoint)
		setString(&cfg.Recognition.APIKey, r.APIKey)
		setString(&cfg.Recognition.APIKeyEnv, r.APIKeyEnv)
		setString(&cfg.Recognition.Model, r.Model)
		setString(&cfg.Recognition.LanguageCode, r.LanguageCode)
		if r.TimeoutSeconds != nil {
			cfg.Recognition.Timeout = seconds(*r.TimeoutSeconds)
		}
		if r.APIKey != nil && strings.TrimSpace(*r.APIKey) != "" {
			warnings = append(warnings, Warning{Message: "recognition.api_key is stored in plain text; prefer recognition.api_key_env"})
		}
	}

	if l := payload.Listener; l != nil {
		if l.PauseThreshold != nil {
			cfg.Listener.PauseThreshold = seconds(*l.PauseThreshold)
		}
		if l.EnergyThreshold != nil {
			cfg.Listener.EnergyThreshold = *l.EnergyThreshold
		}
		if l.DynamicEnergy != nil {
			cfg.Listener.DynamicEnergy = *l.DynamicEnergy
		}
		if l.DynamicDamping != nil {
			cfg.Listener.DynamicDamping = *l.DynamicDamping
		}
		if l.AdjustmentRatio != nil {
			cfg.Listener.AdjustmentRatio = *l.AdjustmentRatio
		}
		if l.CalibrationSeconds != nil {
			cfg.Listener.CalibrationPeriod = seconds(*l.CalibrationSeconds)
		}
		if l.ListenTimeout != nil {
			cfg.Listener.ListenTimeout = seconds(*l.ListenTimeout)
		}
		if l.PhraseTimeLimit != nil {
			cfg.Listener.PhraseTimeLimit = seconds(*l.PhraseTimeLimit)
		}
		if l.RetryBackoff != nil {
			cfg.Listener.RetryBackoff = seconds(*l.RetryBackoff)
		}
	}

	if payload.Commands != nil {
		table := cfg.Commands.Clone()
		for name, phrases := range payload.Commands {
			id, err := ParseCommandID(name)
			if err != nil {
				return nil, fmt.Errorf("commands: %w", err)
			}
			normalized := normalizePhrases(phrases)
			if len(normalized) == 0 {
				return nil, fmt.Errorf("commands.%s must contain at least one phrase", id)
			}
			table[id] = normalized
		}
		cfg.Commands = table
	}

	if o := payload.Output; o != nil {
		setString(&cfg.Output.Dir, o.Dir)
		setString(&cfg.Output.TranscriptFile, o.TranscriptFile)
		if o.AllowedExtensions != nil {
			cfg.Output.AllowedExtensions = cfg.Output.AllowedExtensions[:0:0]
			for _, ext := range *o.AllowedExtensions {
				ext = strings.ToLower(strings.TrimSpace(ext))
				if ext == "" {
					continue
				}
				cfg.Output.AllowedExtensions = append(cfg.Output.AllowedExtensions, ext)
			}
		}
		if o.MaxFileSize != nil {
			cfg.Output.MaxFileSize = *o.MaxFileSize
		}
		if o.ClipboardCmd != nil {
			cmd, err := parseCommand("output.clipboard_cmd", *o.ClipboardCmd)
			if err != nil {
				return nil, err
			}
			cfg.Output.Clipboard = cmd
		}
	}

	if t := payload.TTS; t != nil {
		if t.Enable != nil {
			cfg.TTS.Enable = *t.Enable
		}
		if t.Command != nil {
			cmd, err := parseCommand("tts.command", *t.Command)
			if err != nil {
				return nil, err
			}
			cfg.TTS.Command = cmd
		}
		if t.Rate != nil {
			cfg.TTS.Rate = *t.Rate
		}
		if t.Volume != nil {
			cfg.TTS.Volume = *t.Volume
		}
	}

	if i := payload.Indicator; i != nil {
		if i.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *i.SoundEnable
		}
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
	}

	if s := payload.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
		setString(&cfg.Server.StaticDir, s.StaticDir)
	}

	if v := payload.Vocab; v != nil {
		if v.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0:0]
			for _, name := range *v.Global {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
			}
		}
		if v.MaxPhrases != nil {
			cfg.Vocab.MaxPhrases = *v.MaxPhrases
		}
		if v.Sets != nil {
			sets := make(map[string]VocabSet, len(cfg.Vocab.Sets)+len(v.Sets))
			for name, set := range cfg.Vocab.Sets {
				sets[name] = set
			}
			for name, set := range v.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}
				entry := VocabSet{Name: trimmedName, Phrases: append([]string(nil), set.Phrases...)}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				sets[trimmedName] = entry
			}
			cfg.Vocab.Sets = sets
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}

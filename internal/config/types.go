// Package config resolves, parses, validates, and defaults voxscribe configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by voxscribe.
type Config struct {
	LogLevel    string
	Audio       AudioConfig
	Recognition RecognitionConfig
	Listener    ListenerConfig
	Commands    CommandTable
	Output      OutputConfig
	TTS         TTSConfig
	Indicator   IndicatorConfig
	Server      ServerConfig
	Vocab       VocabConfig
	Debug       DebugConfig
}

// AudioConfig controls the capture backend, source selection, and stream format.
type AudioConfig struct {
	Backend     string
	Input       string
	Fallback    string
	SampleRate  int
	Channels    int
	BlockSize   int
	MaxDuration time.Duration
}

// RecognitionConfig selects and parameterizes the cloud speech backend.
type RecognitionConfig struct {
	Backend string
	// Endpoint overrides the backend's public URL; empty uses the backend default.
	Endpoint     string
	APIKey       string
	APIKeyEnv    string
	Model        string
	LanguageCode string
	// Timeout bounds one recognition request; zero leaves it to the backend.
	Timeout time.Duration
}

// ListenerConfig tunes the energy-threshold utterance segmenter used in voice mode.
type ListenerConfig struct {
	PauseThreshold     time.Duration
	EnergyThreshold    float64
	DynamicEnergy      bool
	DynamicDamping     float64
	AdjustmentRatio    float64
	CalibrationPeriod  time.Duration
	ListenTimeout      time.Duration
	PhraseTimeLimit    time.Duration
	RetryBackoff       time.Duration
	NonSpeakingPadding time.Duration
}

// OutputConfig controls where transcripts are written and which files are allowed.
type OutputConfig struct {
	Dir               string
	TranscriptFile    string
	AllowedExtensions []string
	MaxFileSize       int64
	Clipboard         CommandConfig
}

// TTSConfig controls spoken acknowledgements in voice mode.
type TTSConfig struct {
	Enable  bool
	Command CommandConfig
	Rate    int
	Volume  float64
}

// IndicatorConfig controls audio cue behavior.
type IndicatorConfig struct {
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile    string
}

// ServerConfig controls the static file server and live event feed.
type ServerConfig struct {
	Addr      string
	StaticDir string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig controls enabled speech phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to recognition backends.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

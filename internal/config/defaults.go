package config

import "time"

const (
	defaultTTSCommand = "espeak-ng -s {rate} -a {amplitude}"
	defaultMaxFile    = 100 * 1024 * 1024
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:     "pulse",
			Input:       "default",
			Fallback:    "default",
			SampleRate:  44100,
			Channels:    1,
			BlockSize:   1024,
			MaxDuration: 300 * time.Second,
		},
		Recognition: RecognitionConfig{
			Backend:      "google",
			APIKeyEnv:    "VOXSCRIBE_API_KEY",
			LanguageCode: "en-US",
		},
		Listener: ListenerConfig{
			PauseThreshold:     500 * time.Millisecond,
			EnergyThreshold:    4000,
			DynamicEnergy:      true,
			DynamicDamping:     0.15,
			AdjustmentRatio:    1.5,
			CalibrationPeriod:  time.Second,
			ListenTimeout:      2 * time.Second,
			RetryBackoff:       time.Second,
			NonSpeakingPadding: 500 * time.Millisecond,
		},
		Commands: DefaultCommandTable(),
		Output: OutputConfig{
			Dir:               ".",
			TranscriptFile:    "user_message.txt",
			AllowedExtensions: []string{".txt"},
			MaxFileSize:       defaultMaxFile,
		},
		TTS: TTSConfig{
			Enable:  true,
			Command: defaultCommand(defaultTTSCommand),
			Rate:    180,
			Volume:  0.9,
		},
		Indicator: IndicatorConfig{SoundEnable: true},
		Server: ServerConfig{
			Addr:      ":8000",
			StaticDir: ".",
		},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
	}
}

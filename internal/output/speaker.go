package output

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voxscribe/internal/config"
)

const speakTimeout = 30 * time.Second

// Speaker reads acknowledgements aloud through an external TTS command.
// Calls are synchronous and serialized.
type Speaker struct {
	enabled bool
	argv    []string
	rate    int
	volume  float64
	logger  *slog.Logger
	run     func(context.Context, []string, string) error

	mu sync.Mutex
}

// NewSpeaker builds a speaker from tts config.
func NewSpeaker(cfg config.TTSConfig, logger *slog.Logger) *Speaker {
	return &Speaker{
		enabled: cfg.Enable && len(cfg.Command.Argv) > 0,
		argv:    append([]string(nil), cfg.Command.Argv...),
		rate:    cfg.Rate,
		volume:  cfg.Volume,
		logger:  logger,
		run:     runCommandWithInput,
	}
}

// Enabled reports whether Say produces audio.
func (s *Speaker) Enabled() bool {
	return s != nil && s.enabled
}

// Say speaks text and returns once the command exits.
func (s *Speaker) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if !s.Enabled() || text == "" {
		return nil
	}

	argv, stdin := expandTTSArgv(s.argv, s.rate, s.volume, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	speakCtx, cancel := context.WithTimeout(ctx, speakTimeout)
	defer cancel()
	if err := s.run(speakCtx, argv, stdin); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("spoke acknowledgement", "text", text)
	}
	return nil
}

// expandTTSArgv substitutes {rate}, {amplitude}, {volume} and {text}. Text
// goes on stdin unless the command names {text} explicitly.
func expandTTSArgv(argv []string, rate int, volume float64, text string) ([]string, string) {
	amplitude := strconv.Itoa(int(math.Round(volume * 100)))
	replacer := strings.NewReplacer(
		"{rate}", strconv.Itoa(rate),
		"{amplitude}", amplitude,
		"{volume}", strconv.FormatFloat(volume, 'f', -1, 64),
	)

	out := make([]string, 0, len(argv))
	inline := false
	for _, arg := range argv {
		if strings.Contains(arg, "{text}") {
			inline = true
			arg = strings.ReplaceAll(arg, "{text}", text)
		}
		out = append(out, replacer.Replace(arg))
	}
	if inline {
		return out, ""
	}
	return out, text
}

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/voxscribe/internal/config"
)

// Stream is one open capture stream. Close stops block delivery.
type Stream interface {
	Close() error
}

// Opener starts capture streams that deliver interleaved float32 blocks to
// onBlock. onBlock runs on the backend's audio goroutine and must not block.
type Opener interface {
	Open(ctx context.Context, format Format, onBlock func([]float32)) (Stream, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(context.Context, Format, func([]float32)) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context, format Format, onBlock func([]float32)) (Stream, error) {
	return f(ctx, format, onBlock)
}

// NewOpener builds the capture backend named by audio.backend.
func NewOpener(cfg config.AudioConfig, logger *slog.Logger) (Opener, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "pulse":
		return PulseOpener{Input: cfg.Input, Fallback: cfg.Fallback, BlockSize: cfg.BlockSize, Logger: logger}, nil
	case "miniaudio":
		return MalgoOpener{BlockSize: cfg.BlockSize}, nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Backend)
	}
}

// FormatFromConfig returns the stream format configured for capture.
func FormatFromConfig(cfg config.AudioConfig) Format {
	return Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
}

// Package recognize turns captured audio into text through a cloud speech backend.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
)

// Outcome classifies one recognition attempt.
type Outcome string

const (
	OutcomeRecognized     Outcome = "recognized"
	OutcomeUnintelligible Outcome = "unintelligible"
	OutcomeUnavailable    Outcome = "unavailable"
)

// Result is the text and classification of one recognition attempt.
type Result struct {
	Text    string
	Outcome Outcome
}

// Recognized reports whether Text carries usable speech.
func (r Result) Recognized() bool {
	return r.Outcome == OutcomeRecognized
}

var (
	// ErrNoSpeech is returned by backends when the audio held no recognizable speech.
	ErrNoSpeech     = errors.New("no speech recognized")
	ErrFileTooLarge = errors.New("audio file exceeds maximum size")
)

// Request is one WAV payload submitted to a backend.
type Request struct {
	WAV          []byte
	Format       audio.Format
	LanguageCode string
}

// Backend submits audio to one speech service.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, req Request) (string, error)
}

// Input is either an in-memory buffer or a WAV file on disk.
type Input struct {
	buffer *audio.Buffer
	path   string
}

// FromBuffer wraps captured audio for transcription.
func FromBuffer(buf audio.Buffer) Input {
	return Input{buffer: &buf}
}

// FromFile wraps an existing WAV file for transcription.
func FromFile(path string) Input {
	return Input{path: path}
}

// Options tune a Transcriber independent of its backend.
type Options struct {
	LanguageCode string
	Timeout      time.Duration
	MaxFileSize  int64
	DebugDump    bool
	Logger       *slog.Logger
}

// Transcriber resolves inputs to WAV bytes and classifies backend replies.
type Transcriber struct {
	backend Backend
	opts    Options
}

// New builds a Transcriber from runtime config.
func New(cfg config.Config, logger *slog.Logger) (*Transcriber, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(backend, Options{
		LanguageCode: cfg.Recognition.LanguageCode,
		Timeout:      cfg.Recognition.Timeout,
		MaxFileSize:  cfg.Output.MaxFileSize,
		DebugDump:    cfg.Debug.EnableAudioDump,
		Logger:       logger,
	}), nil
}

// NewWithBackend builds a Transcriber around an explicit backend.
func NewWithBackend(backend Backend, opts Options) *Transcriber {
	if strings.TrimSpace(opts.LanguageCode) == "" {
		opts.LanguageCode = "en-US"
	}
	return &Transcriber{backend: backend, opts: opts}
}

// Transcribe submits in and classifies the reply. Unintelligible audio and
// service failures are reported through Result.Outcome; the error is reserved
// for inputs that could not be read.
func (t *Transcriber) Transcribe(ctx context.Context, in Input) (Result, error) {
	path := in.path
	if in.buffer != nil {
		written, err := audio.SaveWAV(*in.buffer, "")
		if errors.Is(err, audio.ErrEmptyBuffer) {
			t.logDebug("empty audio buffer; nothing to recognize")
			return Result{Outcome: OutcomeUnintelligible}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("persist audio: %w", err)
		}
		defer os.Remove(written)
		path = written
	}

	req, err := t.loadRequest(path)
	if err != nil {
		return Result{}, err
	}
	if len(req.WAV) == 0 {
		return Result{Outcome: OutcomeUnintelligible}, nil
	}
	t.writeDebugAudio(req.WAV)

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := t.backend.Recognize(ctx, req)
	latency := time.Since(started)
	switch {
	case errors.Is(err, ErrNoSpeech):
		t.logInfo("speech not understood", "backend", t.backend.Name(), "latency_ms", latency.Milliseconds())
		return Result{Outcome: OutcomeUnintelligible}, nil
	case err != nil:
		t.logError("speech service unavailable", "backend", t.backend.Name(), "error", err.Error())
		return Result{Outcome: OutcomeUnavailable}, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Outcome: OutcomeUnintelligible}, nil
	}
	t.logInfo("speech recognized", "backend", t.backend.Name(), "chars", len(text), "latency_ms", latency.Milliseconds())
	return Result{Text: text, Outcome: OutcomeRecognized}, nil
}

// loadRequest enforces the size limit, validates the WAV and reads its bytes.
func (t *Transcriber) loadRequest(path string) (Request, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Request{}, fmt.Errorf("stat audio file: %w", err)
	}
	if t.opts.MaxFileSize > 0 && info.Size() > t.opts.MaxFileSize {
		return Request{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), t.opts.MaxFileSize)
	}

	buf, err := audio.LoadWAV(path)
	if err != nil {
		return Request{}, err
	}
	if buf.Empty() {
		return Request{Format: buf.Format, LanguageCode: t.opts.LanguageCode}, nil
	}

	wav, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("read audio file: %w", err)
	}
	return Request{WAV: wav, Format: buf.Format, LanguageCode: t.opts.LanguageCode}, nil
}

func (t *Transcriber) logDebug(message string, args ...any) {
	if t.opts.Logger != nil {
		t.opts.Logger.Debug(message, args...)
	}
}

func (t *Transcriber) logInfo(message string, args ...any) {
	if t.opts.Logger != nil {
		t.opts.Logger.Info(message, args...)
	}
}

func (t *Transcriber) logError(message string, args ...any) {
	if t.opts.Logger != nil {
		t.opts.Logger.Error(message, args...)
	}
}

func (t *Transcriber) logWarn(message string, args ...any) {
	if t.opts.Logger != nil {
		t.opts.Logger.Warn(message, args...)
	}
}

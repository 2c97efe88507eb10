// Package spotter listens continuously for spoken commands and resolves each
// utterance against the configured phrase table.
package spotter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/listen"
	"github.com/rbright/voxscribe/internal/recognize"
)

var (
	ErrNoMicrophone = errors.New("no microphone available")
	// ErrStopping is returned by StartListening while a stopped loop is
	// still finishing its current listen.
	ErrStopping = errors.New("voice command listener is still stopping")
)

// State is the spotter lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

// Command is one resolved voice command.
type Command struct {
	ID     config.CommandID
	Phrase string
	Text   string
}

// Transcriber converts one utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, in recognize.Input) (recognize.Result, error)
}

// Options wires a Spotter to its device, recognizer, and phrase table.
type Options struct {
	Opener      audio.Opener
	Format      audio.Format
	Listener    config.ListenerConfig
	Commands    config.CommandTable
	Transcriber Transcriber
	// OnCommand runs on the utterance worker after the command is queued.
	OnCommand func(Command)
	Logger    *slog.Logger
}

// Spotter owns one listen loop and the queue of commands it resolved.
type Spotter struct {
	opts     Options
	listener *listen.Listener

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	stopping atomic.Bool
	inFlight atomic.Int32
	wg       sync.WaitGroup

	qmu     sync.Mutex
	queue   []Command
	notify  chan struct{}
	stopped bool
}

// New constructs an idle spotter.
func New(opts Options) *Spotter {
	return &Spotter{
		opts:     opts,
		listener: listen.New(opts.Listener, opts.Logger),
		state:    StateIdle,
		notify:   make(chan struct{}),
	}
}

// StartListening opens the microphone, calibrates once, and starts the
// listen loop in the background. It is a no-op while already listening and
// fails with ErrStopping until a stopped loop has exited.
func (s *Spotter) StartListening(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateListening {
		if s.stopping.Load() {
			return ErrStopping
		}
		return nil
	}

	src, err := listen.Open(ctx, s.opts.Opener, s.opts.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoMicrophone, err)
	}

	if period := s.opts.Listener.CalibrationPeriod; period > 0 {
		if err := s.listener.Calibrate(ctx, src, period); err != nil {
			_ = src.Close()
			return fmt.Errorf("calibrate ambient noise: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateListening
	s.stopping.Store(false)

	s.qmu.Lock()
	s.stopped = false
	s.qmu.Unlock()

	s.logInfo("voice command listener started", "energy_threshold", s.listener.Threshold())

	s.wg.Add(1)
	go s.loop(loopCtx, src)
	return nil
}

// StopListening asks the loop to exit after the current listen completes.
// Blocked GetCommand calls with no queued commands return false.
func (s *Spotter) StopListening() {
	s.stopping.Store(true)

	s.qmu.Lock()
	s.stopped = true
	s.broadcastLocked()
	s.qmu.Unlock()
}

// Close stops listening, cancels in-flight work, and waits for it to exit.
func (s *Spotter) Close() {
	s.StopListening()

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until the loop and every utterance worker have exited.
func (s *Spotter) Wait() {
	s.wg.Wait()
}

// State returns the loop state.
func (s *Spotter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InFlight counts utterances currently being transcribed.
func (s *Spotter) InFlight() int {
	return int(s.inFlight.Load())
}

// GetCommand pops the oldest queued command. A positive timeout bounds the
// wait; otherwise it waits until a command arrives or listening stops.
func (s *Spotter) GetCommand(timeout time.Duration) (Command, bool) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		s.qmu.Lock()
		if len(s.queue) > 0 {
			cmd := s.queue[0]
			s.queue = s.queue[1:]
			s.qmu.Unlock()
			return cmd, true
		}
		if s.stopped {
			s.qmu.Unlock()
			return Command{}, false
		}
		wait := s.notify
		s.qmu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			return Command{}, false
		}
	}
}

// Match resolves text against the spotter's phrase table.
func (s *Spotter) Match(text string) (Command, bool) {
	return Match(s.opts.Commands, text)
}

// Match returns the first command, in config.CommandOrder, with a phrase
// contained in text. Matching is case-insensitive.
func Match(table config.CommandTable, text string) (Command, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return Command{}, false
	}
	for _, id := range config.CommandOrder {
		for _, phrase := range table.Phrases(id) {
			if phrase != "" && strings.Contains(lowered, phrase) {
				return Command{ID: id, Phrase: phrase, Text: lowered}, true
			}
		}
	}
	return Command{}, false
}

func (s *Spotter) loop(ctx context.Context, src *listen.Source) {
	defer s.wg.Done()
	defer func() {
		_ = src.Close()
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.mu.Unlock()
		s.logInfo("voice command listener stopped", "dropped_blocks", src.Dropped())
	}()

	for !s.stopping.Load() {
		buf, err := s.listener.Listen(ctx, src, s.opts.Listener.ListenTimeout, s.opts.Listener.PhraseTimeLimit)
		switch {
		case err == nil:
		case errors.Is(err, listen.ErrWaitTimeout):
			continue
		case ctx.Err() != nil, errors.Is(err, listen.ErrSourceClosed):
			return
		default:
			s.logError("listen failed", "error", err.Error())
			if !sleepContext(ctx, s.opts.Listener.RetryBackoff) {
				return
			}
			continue
		}

		s.wg.Add(1)
		s.inFlight.Add(1)
		go s.worker(ctx, buf)
	}
}

// worker transcribes one utterance and queues the command it names, if any.
func (s *Spotter) worker(ctx context.Context, buf audio.Buffer) {
	defer s.wg.Done()
	defer s.inFlight.Add(-1)

	result, err := s.opts.Transcriber.Transcribe(ctx, recognize.FromBuffer(buf))
	if err != nil {
		s.logError("command transcription failed", "error", err.Error())
		return
	}
	if !result.Recognized() {
		s.logDebug("utterance not recognized", "outcome", string(result.Outcome))
		return
	}

	cmd, ok := s.Match(result.Text)
	if !ok {
		s.logDebug("no command in utterance", "text", result.Text)
		return
	}

	s.logInfo("voice command recognized", "command", string(cmd.ID), "phrase", cmd.Phrase)
	s.push(cmd)
	if s.opts.OnCommand != nil {
		s.opts.OnCommand(cmd)
	}
}

func (s *Spotter) push(cmd Command) {
	s.qmu.Lock()
	s.queue = append(s.queue, cmd)
	s.broadcastLocked()
	s.qmu.Unlock()
}

// broadcastLocked wakes every GetCommand waiter. qmu must be held.
func (s *Spotter) broadcastLocked() {
	close(s.notify)
	s.notify = make(chan struct{})
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Spotter) logDebug(message string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Debug(message, args...)
	}
}

func (s *Spotter) logInfo(message string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(message, args...)
	}
}

func (s *Spotter) logError(message string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Error(message, args...)
	}
}

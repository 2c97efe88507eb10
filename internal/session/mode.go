package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/spotter"
)

// Mode names as they appear in snapshots and saved transcripts.
const (
	ModeManual = "manual"
	ModeVoice  = "voice_controlled"
)

const defaultCommandPoll = 500 * time.Millisecond

// Mode drives a controller from some input source.
type Mode interface {
	Name() string
	// Start begins driving c. An error leaves the controller in manual mode.
	Start(ctx context.Context, c *Controller) error
	// Announce reports a completed action to the user.
	Announce(ctx context.Context, text string)
	Close()
}

// ManualMode leaves control to explicit method calls from the UI or IPC.
type ManualMode struct{}

func (ManualMode) Name() string                             { return ModeManual }
func (ManualMode) Start(context.Context, *Controller) error { return nil }
func (ManualMode) Announce(context.Context, string)         {}
func (ManualMode) Close()                                   {}

// CommandSource yields recognized voice commands.
type CommandSource interface {
	StartListening(context.Context) error
	GetCommand(timeout time.Duration) (spotter.Command, bool)
	Close()
}

// Speaker reads text aloud.
type Speaker interface {
	Say(context.Context, string) error
}

// VoiceMode pumps spotted commands into the controller, speaking each
// acknowledgement before the command is dispatched.
type VoiceMode struct {
	Commands CommandSource
	Speaker  Speaker
	Logger   *slog.Logger
	// Poll bounds each GetCommand wait; zero uses 500ms.
	Poll time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (m *VoiceMode) Name() string { return ModeVoice }

// Start opens the command listener and starts the dispatch pump.
func (m *VoiceMode) Start(ctx context.Context, c *Controller) error {
	if m.Commands == nil {
		return spotter.ErrNoMicrophone
	}
	if err := m.Commands.StartListening(ctx); err != nil {
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pump(pumpCtx, c)
	return nil
}

// Announce speaks text; failures are logged.
func (m *VoiceMode) Announce(ctx context.Context, text string) {
	if m.Speaker == nil || text == "" {
		return
	}
	if err := m.Speaker.Say(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
		if m.Logger != nil {
			m.Logger.Warn("speech failed", "text", text, "error", err)
		}
	}
}

// Close stops the pump and the command listener.
func (m *VoiceMode) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	m.Commands.Close()
	m.wg.Wait()
}

func (m *VoiceMode) pump(ctx context.Context, c *Controller) {
	defer m.wg.Done()

	c.post(func() { c.observers.status(StatusInfo, msgVoiceReady) })
	m.Announce(ctx, msgVoiceReady)

	poll := m.Poll
	if poll <= 0 {
		poll = defaultCommandPoll
	}

	for ctx.Err() == nil {
		cmd, ok := m.Commands.GetCommand(poll)
		if !ok {
			continue
		}
		if !c.accepts(cmd.ID) {
			m.logDebug("voice command ignored in current state", "command", cmd.ID, "text", cmd.Text)
			continue
		}

		m.logDebug("voice command accepted", "command", cmd.ID, "phrase", cmd.Phrase)
		m.Announce(ctx, Acknowledgement(cmd.ID))
		if err := c.Dispatch(cmd.ID); errors.Is(err, ErrClosed) {
			return
		}
		if cmd.ID == config.CommandExit {
			return
		}
	}
}

func (m *VoiceMode) logDebug(message string, args ...any) {
	if m.Logger != nil {
		m.Logger.Debug(message, args...)
	}
}

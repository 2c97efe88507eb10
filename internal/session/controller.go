// Package session coordinates the recording lifecycle, the running
// conversation, and voice command dispatch for one interactive run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/fsm"
	"github.com/rbright/voxscribe/internal/recognize"
	"github.com/rbright/voxscribe/internal/transcript"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrBusy             = errors.New("previous recording is still processing")
	ErrClosed           = errors.New("session closed")
	ErrAlreadyRunning   = errors.New("session already running")
)

// Recorder is the capture subset the controller drives.
type Recorder interface {
	Start(context.Context) error
	Stop() (audio.Buffer, error)
}

// Transcriber converts a finished recording to text.
type Transcriber interface {
	Transcribe(context.Context, recognize.Input) (recognize.Result, error)
}

// Store persists recognized text and saved conversations.
type Store interface {
	AppendText(text string, at time.Time) error
	SaveConversation(turns []transcript.Turn, mode string, now time.Time) (string, error)
}

// Indicator plays lifecycle cues.
type Indicator interface {
	Recording()
	Stopped()
	Complete()
	Error()
}

// Committer receives every recognized transcript after it is persisted.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error {
	return f(ctx, text)
}

type noopIndicator struct{}

func (noopIndicator) Recording() {}
func (noopIndicator) Stopped()   {}
func (noopIndicator) Complete()  {}
func (noopIndicator) Error()     {}

// Options wires a Controller to its collaborators. Recorder, Transcriber and
// Store are required.
type Options struct {
	Recorder    Recorder
	Transcriber Transcriber
	Store       Store
	Indicator   Indicator
	Committer   Committer
	Logger      *slog.Logger
}

type result struct {
	message string
	err     error
}

type op struct {
	fn    func() result
	reply chan result
}

// Controller owns session state. Every mutation runs on the goroutine
// executing Run; public methods queue an operation and wait for its result.
type Controller struct {
	logger      *slog.Logger
	recorder    Recorder
	transcriber Transcriber
	store       Store
	indicator   Indicator
	committer   Committer
	now         func() time.Time

	observers observers
	ops       chan op
	done      chan struct{}
	running   atomic.Bool

	// Owned by the Run goroutine.
	ctx          context.Context
	mode         Mode
	state        fsm.State
	conversation transcript.Conversation
	generation   int
	started      chan struct{}
	exiting      bool
	workers      sync.WaitGroup

	snapMu   sync.RWMutex
	snapshot Snapshot
}

// NewController constructs a controller with no-op fallbacks for optional collaborators.
func NewController(opts Options) *Controller {
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	committer := opts.Committer
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}

	c := &Controller{
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		transcriber: opts.Transcriber,
		store:       opts.Store,
		indicator:   indicator,
		committer:   committer,
		now:         time.Now,
		ops:         make(chan op, 16),
		done:        make(chan struct{}),
		mode:        ManualMode{},
		state:       fsm.StateIdle,
	}
	c.snapshot = Snapshot{Mode: ModeManual, State: fsm.StateIdle}
	return c
}

// AddObserver registers an event subscriber.
func (c *Controller) AddObserver(observer Observer) {
	c.observers.add(observer)
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// Run starts mode and processes operations until Exit or ctx is cancelled.
// A mode that fails to start degrades to manual control.
func (c *Controller) Run(ctx context.Context, mode Mode) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if mode == nil {
		mode = ManualMode{}
	}

	workCtx, cancelWork := context.WithCancel(ctx)
	c.ctx = workCtx
	c.mode = mode

	if err := mode.Start(workCtx, c); err != nil {
		c.logError("mode start failed; falling back to manual control", "mode", mode.Name(), "error", err)
		c.observers.status(StatusError, msgVoiceUnavailable)
		c.mode = ManualMode{}
	}
	c.publish()
	c.logInfo("session started", "mode", c.mode.Name())

	defer func() {
		close(c.done)
		c.mode.Close()
		cancelWork()
		c.workers.Wait()
		c.logInfo("session finished", "turns", c.conversation.Len())
	}()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case o := <-c.ops:
			r := o.fn()
			if o.reply != nil {
				o.reply <- r
			}
			if c.exiting {
				return nil
			}
		}
	}
}

// Start begins a recording.
func (c *Controller) Start() error { return c.call(c.start).err }

// Stop ends the recording and transcribes it in the background.
func (c *Controller) Stop() error { return c.call(c.stop).err }

// Toggle stops an active recording or starts a new one.
func (c *Controller) Toggle() error { return c.call(c.toggle).err }

// Save writes the conversation to a structured transcript file.
func (c *Controller) Save() error { return c.call(c.save).err }

// End saves and then clears the conversation.
func (c *Controller) End() error { return c.call(c.end).err }

// Clear drops the conversation without saving it.
func (c *Controller) Clear() error { return c.call(c.clear).err }

// Exit discards any active recording and makes Run return.
func (c *Controller) Exit() error { return c.call(c.exit).err }

// Dispatch runs the operation bound to a voice command.
func (c *Controller) Dispatch(id config.CommandID) error {
	switch id {
	case config.CommandStart:
		return c.Start()
	case config.CommandStop:
		return c.Stop()
	case config.CommandSave:
		return c.Save()
	case config.CommandEndConversation:
		return c.End()
	case config.CommandClear:
		return c.Clear()
	case config.CommandExit:
		return c.Exit()
	default:
		return fmt.Errorf("unknown voice command %q", id)
	}
}

// accepts reports whether a voice command applies to the current state.
func (c *Controller) accepts(id config.CommandID) bool {
	snapshot := c.Snapshot()
	switch id {
	case config.CommandStart:
		return !snapshot.Recording && !snapshot.Processing
	case config.CommandStop:
		return snapshot.Recording
	default:
		return true
	}
}

func (c *Controller) call(fn func() result) result {
	o := op{fn: fn, reply: make(chan result, 1)}
	select {
	case c.ops <- o:
	case <-c.done:
		return result{err: ErrClosed}
	}

	select {
	case r := <-o.reply:
		return r
	case <-c.done:
		select {
		case r := <-o.reply:
			return r
		default:
			return result{err: ErrClosed}
		}
	}
}

// post queues a worker completion for the owner goroutine.
func (c *Controller) post(fn func()) {
	o := op{fn: func() result {
		fn()
		return result{}
	}}
	select {
	case c.ops <- o:
	case <-c.done:
	}
}

func (c *Controller) spawn(fn func(context.Context)) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		fn(c.ctx)
	}()
}

func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) publish() {
	snapshot := Snapshot{
		Mode:       c.mode.Name(),
		State:      c.state,
		Recording:  c.state.Recording(),
		Processing: c.state.Processing(),
		Turns:      c.conversation.Len(),
	}
	c.snapMu.Lock()
	c.snapshot = snapshot
	c.snapMu.Unlock()
	c.observers.state(snapshot)
}

func (c *Controller) announce(text string) {
	mode := c.mode
	c.spawn(func(ctx context.Context) {
		mode.Announce(ctx, text)
	})
}

func (c *Controller) start() result {
	switch {
	case c.state.Recording():
		c.logWarn("start ignored; already recording")
		c.observers.status(StatusInfo, msgAlreadyRecording)
		return result{err: ErrAlreadyRecording}
	case c.state.Processing():
		c.logWarn("start ignored; still processing")
		c.observers.status(StatusInfo, msgStillProcessing)
		return result{err: ErrBusy}
	}
	if err := c.transition(fsm.EventStart); err != nil {
		return result{err: err}
	}

	c.generation++
	generation := c.generation
	started := make(chan struct{})
	c.started = started

	c.indicator.Recording()
	c.observers.status(StatusRecording, msgRecording)
	c.observers.output("Recording started...")
	c.publish()

	c.spawn(func(ctx context.Context) {
		err := c.recorder.Start(ctx)
		close(started)
		if err != nil {
			c.post(func() { c.recordingFailed(generation, err) })
			return
		}
		c.logInfo("recording started")
	})
	return result{message: "recording started"}
}

func (c *Controller) recordingFailed(generation int, err error) {
	c.logError("recording failed to start", "error", err)
	if generation != c.generation || !c.state.Recording() {
		return
	}
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
	c.indicator.Error()
	c.observers.status(StatusError, recordingFailedMessage(err))
	c.publish()
}

type processed struct {
	at     time.Time
	result recognize.Result
	err    error
}

func (c *Controller) stop() result {
	if !c.state.Recording() {
		c.logWarn("stop ignored; not recording")
		c.observers.status(StatusInfo, msgNotRecording)
		return result{err: ErrNotRecording}
	}
	if err := c.transition(fsm.EventStop); err != nil {
		return result{err: err}
	}

	c.indicator.Stopped()
	c.observers.status(StatusProcessing, msgProcessing)
	c.observers.output("Recording stopped. Transcribing...")
	c.publish()

	started := c.started
	c.spawn(func(ctx context.Context) {
		<-started
		p := c.process(ctx)
		c.post(func() { c.finishProcessing(p) })
	})
	return result{message: "stop requested"}
}

// process runs on a worker: it drains the recorder and transcribes the audio.
func (c *Controller) process(ctx context.Context) processed {
	buf, err := c.recorder.Stop()
	if err != nil {
		return processed{err: fmt.Errorf("stop recording: %w", err)}
	}
	res, err := c.transcriber.Transcribe(ctx, recognize.FromBuffer(buf))
	return processed{at: c.now(), result: res, err: err}
}

func (c *Controller) finishProcessing(p processed) {
	_ = c.transition(fsm.EventTranscribed)
	defer c.publish()

	if p.err != nil {
		c.logError("processing failed", "error", p.err)
		c.indicator.Error()
		c.observers.output(processingFailedMessage(p.err))
		c.observers.status(StatusError, processingFailedMessage(p.err))
		return
	}

	switch p.result.Outcome {
	case recognize.OutcomeRecognized:
		c.commitTurn(transcript.Turn{Timestamp: p.at, Text: p.result.Text})
	case recognize.OutcomeUnavailable:
		c.indicator.Error()
		c.observers.output(msgUnavailable)
		c.observers.status(StatusError, msgUnavailable)
	default:
		c.indicator.Error()
		c.observers.output(msgUnintelligible)
		c.observers.status(StatusError, msgUnintelligible)
		c.announce(msgUnintelligible)
	}
}

func (c *Controller) commitTurn(turn transcript.Turn) {
	c.conversation.Append(turn)
	c.observers.output("Transcription: " + turn.Text)

	if err := c.store.AppendText(turn.Text, turn.Timestamp); err != nil {
		c.logError("append transcript failed", "error", err)
		c.indicator.Error()
		c.observers.status(StatusError, msgAppendFailed)
	} else {
		c.indicator.Complete()
		c.observers.status(StatusSuccess, msgTranscriptionSaved)
	}

	text := turn.Text
	c.spawn(func(ctx context.Context) {
		if err := c.committer.Commit(ctx, text); err != nil {
			c.logWarn("transcript commit failed", "error", err)
		}
	})
	c.announce(ackTranscriptionComplete)
}

func (c *Controller) toggle() result {
	if c.state.Recording() {
		return c.stop()
	}
	return c.start()
}

func (c *Controller) save() result {
	if c.conversation.Empty() {
		c.observers.output(msgNothingToSave)
		c.observers.status(StatusError, msgNothingToSave)
		return result{err: transcript.ErrNothingToSave}
	}

	path, err := c.store.SaveConversation(c.conversation.Turns(), c.mode.Name(), c.now())
	if err != nil {
		c.logError("save transcript failed", "error", err)
		c.observers.output(saveFailedMessage(err))
		c.observers.status(StatusError, saveFailedMessage(err))
		return result{err: err}
	}

	c.logInfo("transcript saved", "path", path, "turns", c.conversation.Len())
	c.observers.output(savedMessage(path))
	c.observers.status(StatusSuccess, savedMessage(path))
	return result{message: path}
}

func (c *Controller) end() result {
	saved := c.save()
	if saved.err != nil && !errors.Is(saved.err, transcript.ErrNothingToSave) {
		return saved
	}

	c.conversation.Clear()
	c.observers.output(msgConversationEnded)
	c.observers.status(StatusSuccess, msgConversationEnded)
	if saved.err == nil {
		c.announce(ackConversationSaved)
	}
	c.publish()
	return result{message: msgConversationEnded}
}

func (c *Controller) clear() result {
	c.conversation.Clear()
	c.observers.clearOutput()
	c.observers.status(StatusSuccess, msgTranscriptCleared)
	c.publish()
	return result{message: msgTranscriptCleared}
}

func (c *Controller) exit() result {
	c.exiting = true
	c.shutdown()
	return result{message: "exiting"}
}

// shutdown discards an active recording.
func (c *Controller) shutdown() {
	if !c.state.Recording() {
		return
	}
	if c.started != nil {
		<-c.started
	}
	if _, err := c.recorder.Stop(); err != nil && !errors.Is(err, audio.ErrNotRecording) {
		c.logWarn("discard recording failed", "error", err)
	}
	_ = c.transition(fsm.EventCancel)
	c.indicator.Stopped()
	c.publish()
}

func (c *Controller) logInfo(message string, args ...any) {
	if c.logger != nil {
		c.logger.Info(message, args...)
	}
}

func (c *Controller) logWarn(message string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(message, args...)
	}
}

func (c *Controller) logError(message string, args ...any) {
	if c.logger != nil {
		c.logger.Error(message, args...)
	}
}

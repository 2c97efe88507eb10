package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/fsm"
	"github.com/rbright/voxscribe/internal/recognize"
	"github.com/rbright/voxscribe/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestStartStopAppendsOneEntry(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{result: recognize.Result{Text: "hello world", Outcome: recognize.OutcomeRecognized}}
	indicator := &fakeIndicator{}
	observer := &recordingObserver{}

	ctrl := NewController(Options{Recorder: recorder, Transcriber: transcriber, Store: store, Indicator: indicator})
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.True(t, ctrl.Snapshot().Recording)
	require.NoError(t, ctrl.Stop())
	require.False(t, ctrl.Snapshot().Recording)

	waitIdle(t, ctrl)
	require.Equal(t, 1, ctrl.Snapshot().Turns)
	require.Equal(t, int32(1), recorder.starts.Load())
	require.Equal(t, int32(1), recorder.stops.Load())
	require.Equal(t, int32(1), indicator.complete.Load())

	data, err := os.ReadFile(filepath.Join(dir, "user_message.txt"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "hello world"))
	require.True(t, strings.HasPrefix(string(data), "["))

	require.Contains(t, observer.statusMessages(), msgRecording)
	require.Contains(t, observer.statusMessages(), msgProcessing)
	require.Contains(t, observer.statusMessages(), msgTranscriptionSaved)
	require.Contains(t, observer.outputLines(), "Transcription: hello world")
}

func TestStartWhileRecordingIsWarningNoop(t *testing.T) {
	recorder := &fakeRecorder{}
	ctrl := newTestController(t, recorder, &fakeTranscriber{})
	observer := &recordingObserver{}
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.ErrorIs(t, ctrl.Start(), ErrAlreadyRecording)
	require.Contains(t, observer.statusMessages(), msgAlreadyRecording)

	require.Eventually(t, func() bool { return recorder.starts.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopWhenIdleIsWarningNoop(t *testing.T) {
	recorder := &fakeRecorder{}
	ctrl := newTestController(t, recorder, &fakeTranscriber{})
	runController(t, ctrl, nil)

	require.ErrorIs(t, ctrl.Stop(), ErrNotRecording)
	require.Equal(t, int32(0), recorder.stops.Load())
	require.Equal(t, fsm.StateIdle, ctrl.Snapshot().State)
}

func TestStartRejectedWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	transcriber := &fakeTranscriber{
		block:  release,
		result: recognize.Result{Text: "later", Outcome: recognize.OutcomeRecognized},
	}
	ctrl := newTestController(t, &fakeRecorder{}, transcriber)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Stop())
	require.True(t, ctrl.Snapshot().Processing)
	require.ErrorIs(t, ctrl.Start(), ErrBusy)

	close(release)
	waitIdle(t, ctrl)
	require.NoError(t, ctrl.Start())
}

func TestRecorderStartFailureLeavesControllerIdle(t *testing.T) {
	recorder := &fakeRecorder{startErr: errors.New("device busy")}
	indicator := &fakeIndicator{}
	observer := &recordingObserver{}
	ctrl := NewController(Options{
		Recorder:    recorder,
		Transcriber: &fakeTranscriber{},
		Store:       newTestStore(t, t.TempDir()),
		Indicator:   indicator,
	})
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().State == fsm.StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), indicator.errors.Load())
	require.Contains(t, observer.statusKinds(), StatusError)
	require.ErrorIs(t, ctrl.Stop(), ErrNotRecording)
}

func TestUnintelligibleAndUnavailableDoNotAppend(t *testing.T) {
	tests := []struct {
		name    string
		outcome recognize.Outcome
		message string
	}{
		{name: "unintelligible", outcome: recognize.OutcomeUnintelligible, message: msgUnintelligible},
		{name: "unavailable", outcome: recognize.OutcomeUnavailable, message: msgUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			observer := &recordingObserver{}
			ctrl := NewController(Options{
				Recorder:    &fakeRecorder{},
				Transcriber: &fakeTranscriber{result: recognize.Result{Outcome: tc.outcome}},
				Store:       newTestStore(t, dir),
			})
			ctrl.AddObserver(observer)
			runController(t, ctrl, nil)

			require.NoError(t, ctrl.Start())
			require.NoError(t, ctrl.Stop())
			waitIdle(t, ctrl)

			require.Equal(t, 0, ctrl.Snapshot().Turns)
			require.Contains(t, observer.statusMessages(), tc.message)
			_, err := os.Stat(filepath.Join(dir, "user_message.txt"))
			require.True(t, os.IsNotExist(err))
		})
	}
}

func TestTranscriberErrorClearsProcessing(t *testing.T) {
	ctrl := newTestController(t, &fakeRecorder{}, &fakeTranscriber{err: errors.New("unreadable")})
	observer := &recordingObserver{}
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Stop())
	waitIdle(t, ctrl)
	require.Contains(t, observer.statusKinds(), StatusError)
}

func TestSaveEmptyConversationReportsError(t *testing.T) {
	dir := t.TempDir()
	observer := &recordingObserver{}
	ctrl := NewController(Options{Recorder: &fakeRecorder{}, Transcriber: &fakeTranscriber{}, Store: newTestStore(t, dir)})
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.ErrorIs(t, ctrl.Save(), transcript.ErrNothingToSave)
	require.Contains(t, observer.statusMessages(), msgNothingToSave)

	matches, err := filepath.Glob(filepath.Join(dir, "transcript_*.json"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestSaveKeepsConversationAndEndClearsIt(t *testing.T) {
	dir := t.TempDir()
	transcriber := &fakeTranscriber{result: recognize.Result{Text: "first turn", Outcome: recognize.OutcomeRecognized}}
	ctrl := NewController(Options{Recorder: &fakeRecorder{}, Transcriber: transcriber, Store: newTestStore(t, dir)})
	runController(t, ctrl, nil)

	recordOnce(t, ctrl)
	require.NoError(t, ctrl.Save())
	require.Equal(t, 1, ctrl.Snapshot().Turns)

	require.NoError(t, ctrl.End())
	require.Equal(t, 0, ctrl.Snapshot().Turns)

	matches, err := filepath.Glob(filepath.Join(dir, "transcript_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, ModeManual, payload["mode"])
	require.EqualValues(t, 1, payload["total_recordings"])
}

func TestEndWithEmptyConversationStillEnds(t *testing.T) {
	observer := &recordingObserver{}
	ctrl := newTestController(t, &fakeRecorder{}, &fakeTranscriber{})
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.End())
	require.Contains(t, observer.statusMessages(), msgNothingToSave)
	require.Contains(t, observer.statusMessages(), msgConversationEnded)
}

func TestClearDropsConversationAndOutput(t *testing.T) {
	dir := t.TempDir()
	observer := &recordingObserver{}
	transcriber := &fakeTranscriber{result: recognize.Result{Text: "to be cleared", Outcome: recognize.OutcomeRecognized}}
	ctrl := NewController(Options{Recorder: &fakeRecorder{}, Transcriber: transcriber, Store: newTestStore(t, dir)})
	ctrl.AddObserver(observer)
	runController(t, ctrl, nil)

	recordOnce(t, ctrl)
	require.NoError(t, ctrl.Clear())
	require.Equal(t, 0, ctrl.Snapshot().Turns)
	require.Equal(t, int32(1), observer.clears.Load())
	require.Contains(t, observer.statusMessages(), msgTranscriptCleared)
	require.ErrorIs(t, ctrl.Save(), transcript.ErrNothingToSave)
}

func TestExitDiscardsActiveRecording(t *testing.T) {
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{}
	ctrl := newTestController(t, recorder, transcriber)
	done := runController(t, ctrl, nil)

	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Exit())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Exit")
	}
	require.Equal(t, int32(1), recorder.stops.Load())
	require.Equal(t, int32(0), transcriber.calls.Load())
	require.ErrorIs(t, ctrl.Start(), ErrClosed)
}

func TestRunReturnsWhenContextCancelled(t *testing.T) {
	ctrl := newTestController(t, &fakeRecorder{}, &fakeTranscriber{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx, nil) }()

	require.NoError(t, ctrl.Start())
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.ErrorIs(t, ctrl.Run(context.Background(), nil), ErrAlreadyRunning)
}

func TestCommitterReceivesRecognizedText(t *testing.T) {
	var committed atomic.Value
	ctrl := NewController(Options{
		Recorder:    &fakeRecorder{},
		Transcriber: &fakeTranscriber{result: recognize.Result{Text: "copy me", Outcome: recognize.OutcomeRecognized}},
		Store:       newTestStore(t, t.TempDir()),
		Committer: CommitFunc(func(_ context.Context, text string) error {
			committed.Store(text)
			return nil
		}),
	})
	runController(t, ctrl, nil)

	recordOnce(t, ctrl)
	require.Eventually(t, func() bool {
		value, _ := committed.Load().(string)
		return value == "copy me"
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchMapsCommands(t *testing.T) {
	ctrl := newTestController(t, &fakeRecorder{}, &fakeTranscriber{})
	runController(t, ctrl, nil)

	require.NoError(t, ctrl.Dispatch(config.CommandStart))
	require.True(t, ctrl.Snapshot().Recording)
	require.NoError(t, ctrl.Dispatch(config.CommandStop))
	waitIdle(t, ctrl)
	require.NoError(t, ctrl.Dispatch(config.CommandClear))
	require.Error(t, ctrl.Dispatch(config.CommandID("dance")))
}

func newTestStore(t *testing.T, dir string) *transcript.Store {
	t.Helper()
	store, err := transcript.NewStore(config.OutputConfig{
		Dir:               dir,
		TranscriptFile:    "user_message.txt",
		AllowedExtensions: []string{".txt"},
	})
	require.NoError(t, err)
	return store
}

func newTestController(t *testing.T, recorder Recorder, transcriber Transcriber) *Controller {
	t.Helper()
	return NewController(Options{
		Recorder:    recorder,
		Transcriber: transcriber,
		Store:       newTestStore(t, t.TempDir()),
	})
}

func runController(t *testing.T, ctrl *Controller, mode Mode) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		done <- ctrl.Run(ctx, mode)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
		}
	})
	return done
}

func recordOnce(t *testing.T, ctrl *Controller) {
	t.Helper()
	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Stop())
	waitIdle(t, ctrl)
}

func waitIdle(t *testing.T, ctrl *Controller) {
	t.Helper()
	require.Eventually(t, func() bool {
		snapshot := ctrl.Snapshot()
		return !snapshot.Recording && !snapshot.Processing
	}, 2*time.Second, 5*time.Millisecond)
}

type fakeRecorder struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32

	mu     sync.Mutex
	active bool
}

func (f *fakeRecorder) Start(context.Context) error {
	f.starts.Add(1)
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.active = true
	f.mu.Unlock()
	return nil
}

func (f *fakeRecorder) Stop() (audio.Buffer, error) {
	f.stops.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return audio.Buffer{}, audio.ErrNotRecording
	}
	f.active = false
	format := audio.Format{SampleRate: 16000, Channels: 1}
	return audio.Buffer{Format: format, Blocks: [][]float32{{0.1, -0.1, 0.2}}}, nil
}

type fakeTranscriber struct {
	result recognize.Result
	err    error
	block  chan struct{}
	calls  atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ recognize.Input) (recognize.Result, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return recognize.Result{}, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakeIndicator struct {
	recording atomic.Int32
	stopped   atomic.Int32
	complete  atomic.Int32
	errors    atomic.Int32
}

func (f *fakeIndicator) Recording() { f.recording.Add(1) }
func (f *fakeIndicator) Stopped()   { f.stopped.Add(1) }
func (f *fakeIndicator) Complete()  { f.complete.Add(1) }
func (f *fakeIndicator) Error()     { f.errors.Add(1) }

type statusEvent struct {
	kind    StatusKind
	message string
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []statusEvent
	lines    []string
	clears   atomic.Int32
}

func (o *recordingObserver) Status(kind StatusKind, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, statusEvent{kind: kind, message: message})
}

func (o *recordingObserver) Output(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, line)
}

func (o *recordingObserver) ClearOutput() { o.clears.Add(1) }

func (o *recordingObserver) State(Snapshot) {}

func (o *recordingObserver) statusMessages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.statuses))
	for _, event := range o.statuses {
		out = append(out, event.message)
	}
	return out
}

func (o *recordingObserver) statusKinds() []StatusKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]StatusKind, 0, len(o.statuses))
	for _, event := range o.statuses {
		out = append(out, event.kind)
	}
	return out
}

func (o *recordingObserver) outputLines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

package recognize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	text  string
	err   error
	calls atomic.Int32
	last  Request
	wait  time.Duration
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Recognize(ctx context.Context, req Request) (string, error) {
	f.calls.Add(1)
	f.last = req
	if f.wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.wait):
		}
	}
	return f.text, f.err
}

func speechBuffer() audio.Buffer {
	return audio.Buffer{
		Format: audio.Format{SampleRate: 16000, Channels: 1},
		Blocks: [][]float32{{0.1, -0.2, 0.3}, {0.05}},
	}
}

func TestTranscribeBufferRecognized(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	backend := &fakeBackend{text: "  hello world "}
	transcriber := NewWithBackend(backend, Options{})

	result, err := transcriber.Transcribe(context.Background(), FromBuffer(speechBuffer()))
	require.NoError(t, err)
	require.Equal(t, Result{Text: "hello world", Outcome: OutcomeRecognized}, result)
	require.True(t, result.Recognized())
	require.Equal(t, "en-US", backend.last.LanguageCode)
	require.Equal(t, audio.Format{SampleRate: 16000, Channels: 1}, backend.last.Format)
	require.Equal(t, "RIFF", string(backend.last.WAV[:4]))
}

func TestTranscribeBufferRemovesTempFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	for _, backend := range []*fakeBackend{{text: "ok"}, {err: ErrNoSpeech}, {err: errors.New("boom")}} {
		_, err := NewWithBackend(backend, Options{}).Transcribe(context.Background(), FromBuffer(speechBuffer()))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestTranscribeClassifiesBackendReplies(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	tests := []struct {
		name    string
		backend *fakeBackend
		want    Outcome
	}{
		{name: "no speech", backend: &fakeBackend{err: ErrNoSpeech}, want: OutcomeUnintelligible},
		{name: "blank text", backend: &fakeBackend{text: "   "}, want: OutcomeUnintelligible},
		{name: "service error", backend: &fakeBackend{err: errors.New("503")}, want: OutcomeUnavailable},
		{name: "wrapped no speech", backend: &fakeBackend{err: errors.Join(errors.New("x"), ErrNoSpeech)}, want: OutcomeUnintelligible},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewWithBackend(tc.backend, Options{}).Transcribe(context.Background(), FromBuffer(speechBuffer()))
			require.NoError(t, err)
			require.Equal(t, tc.want, result.Outcome)
			require.Empty(t, result.Text)
		})
	}
}

func TestTranscribeEmptyBufferSkipsBackend(t *testing.T) {
	backend := &fakeBackend{text: "never"}
	result, err := NewWithBackend(backend, Options{}).Transcribe(context.Background(), FromBuffer(audio.Buffer{
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}))
	require.NoError(t, err)
	require.Equal(t, OutcomeUnintelligible, result.Outcome)
	require.Zero(t, backend.calls.Load())
}

func TestTranscribeFileInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	_, err := audio.SaveWAV(speechBuffer(), path)
	require.NoError(t, err)

	backend := &fakeBackend{text: "from file"}
	result, err := NewWithBackend(backend, Options{LanguageCode: "is-IS"}).Transcribe(context.Background(), FromFile(path))
	require.NoError(t, err)
	require.Equal(t, "from file", result.Text)
	require.Equal(t, "is-IS", backend.last.LanguageCode)

	_, err = os.Stat(path)
	require.NoError(t, err, "caller-owned file must be kept")
}

func TestTranscribeFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	_, err := audio.SaveWAV(speechBuffer(), path)
	require.NoError(t, err)

	backend := &fakeBackend{text: "x"}
	_, err = NewWithBackend(backend, Options{MaxFileSize: 10}).Transcribe(context.Background(), FromFile(path))
	require.ErrorIs(t, err, ErrFileTooLarge)
	require.Zero(t, backend.calls.Load())
}

func TestTranscribeMissingFile(t *testing.T) {
	_, err := NewWithBackend(&fakeBackend{}, Options{}).Transcribe(context.Background(), FromFile(filepath.Join(t.TempDir(), "missing.wav")))
	require.Error(t, err)
}

func TestTranscribeTimeoutMarksUnavailable(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	backend := &fakeBackend{text: "late", wait: time.Second}

	result, err := NewWithBackend(backend, Options{Timeout: 20 * time.Millisecond}).Transcribe(context.Background(), FromBuffer(speechBuffer()))
	require.NoError(t, err)
	require.Equal(t, OutcomeUnavailable, result.Outcome)
}

func TestTranscribeWritesDebugAudio(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	_, err := NewWithBackend(&fakeBackend{text: "x"}, Options{DebugDump: true}).Transcribe(context.Background(), FromBuffer(speechBuffer()))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(state, "voxscribe", "debug"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".wav", filepath.Ext(entries[0].Name()))
}

package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/voxscribe/internal/config"
	"github.com/stretchr/testify/require"
)

func testOutput(dir string) config.OutputConfig {
	return config.OutputConfig{
		Dir:               dir,
		TranscriptFile:    "user_message.txt",
		AllowedExtensions: []string{".txt"},
		MaxFileSize:       1024,
	}
}

func TestNewStoreRejectsDisallowedExtension(t *testing.T) {
	cfg := testOutput(t.TempDir())
	cfg.TranscriptFile = "notes.sh"

	_, err := NewStore(cfg)
	require.ErrorIs(t, err, ErrInvalidOutputExtension)
}

func TestNewStoreExtensionCaseInsensitive(t *testing.T) {
	cfg := testOutput(t.TempDir())
	cfg.TranscriptFile = "LOG.TXT"

	store, err := NewStore(cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Dir, "LOG.TXT"), store.FlatPath())
}

func TestAppendTextFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testOutput(dir))
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 9, 5, 7, 0, time.Local)
	require.NoError(t, store.AppendText("hello there", at))
	require.NoError(t, store.AppendText("  second  ", at.Add(time.Minute)))
	require.NoError(t, store.AppendText("   ", at))

	content, err := os.ReadFile(filepath.Join(dir, "user_message.txt"))
	require.NoError(t, err)
	require.Equal(t, "[2026-03-01 09:05:07]\nhello there\n\n[2026-03-01 09:06:07]\nsecond\n\n", string(content))
}

func TestAppendTextRefusesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testOutput(dir)
	cfg.MaxFileSize = 8
	store, err := NewStore(cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.FlatPath(), []byte(strings.Repeat("x", 9)), 0o644))
	err = store.AppendText("more", time.Now())
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAppendTextWrapsPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cfg := testOutput(filepath.Join(blocker, "nested"))
	store, err := NewStore(cfg)
	require.NoError(t, err)

	err = store.AppendText("text", time.Now())
	require.ErrorIs(t, err, ErrPersistence)
}

func TestSaveConversationEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testOutput(dir))
	require.NoError(t, err)

	_, err = store.SaveConversation(nil, "manual", time.Now())
	require.ErrorIs(t, err, ErrNothingToSave)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSaveConversationDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testOutput(dir))
	require.NoError(t, err)

	first := time.Date(2026, 3, 1, 10, 0, 0, 250000000, time.Local)
	turns := []Turn{
		{Timestamp: first, Text: "fish & chips <now>"},
		{Timestamp: first.Add(30 * time.Second), Text: "þetta er prófun"},
	}
	now := time.Date(2026, 3, 1, 10, 1, 2, 0, time.Local)

	path, err := store.SaveConversation(turns, "voice_controlled", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "transcript_20260301_100102.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "fish & chips <now>")
	require.Contains(t, string(raw), "þetta er prófun")
	require.Contains(t, string(raw), "\n  \"conversation_start\"")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "2026-03-01T10:00:00.250000", doc["conversation_start"])
	require.Equal(t, "2026-03-01T10:01:02.000000", doc["conversation_end"])
	require.Equal(t, float64(2), doc["total_recordings"])
	require.Equal(t, "voice_controlled", doc["mode"])
	require.Len(t, doc["transcripts"], 2)
}

func TestSaveConversationCollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testOutput(dir))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 1, 2, 0, time.Local)
	turns := []Turn{{Timestamp: now, Text: "one"}}

	first, err := store.SaveConversation(turns, "manual", now)
	require.NoError(t, err)
	second, err := store.SaveConversation(turns, "manual", now)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, "transcript_20260301_100102_1.json", filepath.Base(second))
}

func TestConversationLifecycle(t *testing.T) {
	var conv Conversation
	require.True(t, conv.Empty())

	conv.Append(Turn{Text: "a"})
	conv.Append(Turn{Text: "b"})
	require.Equal(t, 2, conv.Len())

	turns := conv.Turns()
	turns[0].Text = "mutated"
	require.Equal(t, "a", conv.Turns()[0].Text)

	conv.Clear()
	require.True(t, conv.Empty())
}

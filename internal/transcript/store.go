// Package transcript persists recognized speech as a rolling flat file and
// as structured per-conversation JSON documents.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rbright/voxscribe/internal/config"
)

var (
	ErrPersistence            = errors.New("transcript persistence failed")
	ErrInvalidOutputExtension = errors.New("output file extension not allowed")
	ErrNothingToSave          = errors.New("no transcript to save")
	ErrFileTooLarge           = errors.New("transcript file exceeds maximum size")
)

const maxCollisionSuffix = 1000

// Store writes the rolling flat transcript and structured conversation files.
type Store struct {
	dir               string
	flatPath          string
	allowedExtensions []string
	maxFileSize       int64
}

// NewStore validates output settings and returns a store rooted at cfg.Dir.
func NewStore(cfg config.OutputConfig) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "."
	}
	s := &Store{
		dir:               dir,
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		maxFileSize:       cfg.MaxFileSize,
	}

	name := strings.TrimSpace(cfg.TranscriptFile)
	if err := s.checkExtension(name); err != nil {
		return nil, err
	}
	s.flatPath = name
	if !filepath.IsAbs(name) {
		s.flatPath = filepath.Join(dir, name)
	}
	return s, nil
}

// FlatPath is the rolling transcript file appended to after each recording.
func (s *Store) FlatPath() string {
	return s.flatPath
}

// Dir is where structured conversation files are written.
func (s *Store) Dir() string {
	return s.dir
}

// AppendText adds one timestamped entry to the flat transcript file.
func (s *Store) AppendText(text string, at time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if s.maxFileSize > 0 {
		info, err := os.Stat(s.flatPath)
		if err == nil && info.Size() > s.maxFileSize {
			return fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, s.flatPath, info.Size(), s.maxFileSize)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.flatPath), 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", ErrPersistence, err)
	}
	file, err := os.OpenFile(s.flatPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPersistence, s.flatPath, err)
	}
	defer file.Close()

	entry := fmt.Sprintf("[%s]\n%s\n\n", at.Format("2006-01-02 15:04:05"), text)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, s.flatPath, err)
	}
	return nil
}

type conversationFile struct {
	ConversationStart string     `json:"conversation_start"`
	ConversationEnd   string     `json:"conversation_end"`
	TotalRecordings   int        `json:"total_recordings"`
	Mode              string     `json:"mode"`
	Transcripts       []turnFile `json:"transcripts"`
}

type turnFile struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// SaveConversation writes turns to transcript_YYYYMMDD_HHMMSS.json and
// returns the written path. An existing file is never overwritten.
func (s *Store) SaveConversation(turns []Turn, mode string, now time.Time) (string, error) {
	if len(turns) == 0 {
		return "", ErrNothingToSave
	}

	doc := conversationFile{
		ConversationStart: turns[0].Timestamp.Format(TimestampLayout),
		ConversationEnd:   now.Format(TimestampLayout),
		TotalRecordings:   len(turns),
		Mode:              mode,
		Transcripts:       make([]turnFile, 0, len(turns)),
	}
	for _, turn := range turns {
		doc.Transcripts = append(doc.Transcripts, turnFile{
			Timestamp: turn.Timestamp.Format(TimestampLayout),
			Text:      turn.Text,
		})
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("%w: encode transcript: %v", ErrPersistence, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrPersistence, err)
	}

	file, path, err := createUnique(s.dir, "transcript_"+now.Format("20060102_150405"), ".json")
	if err != nil {
		return "", err
	}
	if _, err := file.Write(body.Bytes()); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: write %s: %v", ErrPersistence, path, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: close %s: %v", ErrPersistence, path, err)
	}
	return path, nil
}

// createUnique opens base+ext exclusively, appending _1, _2, ... on collision.
func createUnique(dir string, base string, ext string) (*os.File, string, error) {
	for i := 0; i < maxCollisionSuffix; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("%w: create %s: %v", ErrPersistence, path, err)
		}
	}
	return nil, "", fmt.Errorf("%w: too many transcripts named %s", ErrPersistence, base)
}

func (s *Store) checkExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" || !slices.Contains(s.allowedExtensions, ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidOutputExtension, name, strings.Join(s.allowedExtensions, ", "))
	}
	return nil
}

func normalizeExtensions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, ext := range raw {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

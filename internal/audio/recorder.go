package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Recorder owns one capture session at a time. Blocks arriving after the
// session's max duration are dropped; the session stays open until Stop.
type Recorder struct {
	opener      Opener
	format      Format
	maxDuration time.Duration
	now         func() time.Time

	opMu sync.Mutex

	mu        sync.Mutex
	stream    Stream
	active    bool
	recording bool
	startedAt time.Time
	blocks    [][]float32
}

// NewRecorder builds a recorder for one stream format and duration cap.
func NewRecorder(opener Opener, format Format, maxDuration time.Duration) *Recorder {
	return &Recorder{
		opener:      opener,
		format:      format,
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

// Format returns the capture format.
func (r *Recorder) Format() Format {
	return r.format
}

// Start opens a capture stream and begins a new session.
func (r *Recorder) Start(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.active = true
	r.recording = true
	r.startedAt = r.now()
	r.blocks = nil
	r.mu.Unlock()

	stream, err := r.opener.Open(ctx, r.format, r.onBlock)
	if err != nil {
		r.mu.Lock()
		r.active = false
		r.recording = false
		r.startedAt = time.Time{}
		r.blocks = nil
		r.mu.Unlock()
		return fmt.Errorf("open input stream: %w", err)
	}

	r.mu.Lock()
	r.stream = stream
	r.mu.Unlock()
	return nil
}

// Stop closes the stream and returns everything captured up to the cutoff.
func (r *Recorder) Stop() (Buffer, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Buffer{}, ErrNotRecording
	}
	stream := r.stream
	r.recording = false
	r.mu.Unlock()

	var closeErr error
	if stream != nil {
		closeErr = stream.Close()
	}

	r.mu.Lock()
	buf := Buffer{Format: r.format, Blocks: r.blocks}
	r.blocks = nil
	r.stream = nil
	r.active = false
	r.startedAt = time.Time{}
	r.mu.Unlock()

	if closeErr != nil {
		return buf, fmt.Errorf("close input stream: %w", closeErr)
	}
	return buf, nil
}

// Recording reports whether blocks are currently being accumulated.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Active reports whether a session is open, including one past its cutoff.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Elapsed returns time since the session started, or zero when idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return 0
	}
	return r.now().Sub(r.startedAt)
}

func (r *Recorder) onBlock(block []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	if r.maxDuration > 0 && r.now().Sub(r.startedAt) > r.maxDuration {
		r.recording = false
		return
	}
	r.blocks = append(r.blocks, block)
}

// Package listen segments a live microphone stream into utterances using an
// adaptive energy threshold.
package listen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rbright/voxscribe/internal/audio"
)

var ErrSourceClosed = errors.New("audio source closed")

const sourceQueueDepth = 512

// Source buffers blocks from one open capture stream until a listener reads them.
type Source struct {
	format  audio.Format
	blocks  chan []float32
	stream  audio.Stream
	dropped atomic.Int64

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Open starts a capture stream through opener.
func Open(ctx context.Context, opener audio.Opener, format audio.Format) (*Source, error) {
	s := &Source{
		format: format,
		blocks: make(chan []float32, sourceQueueDepth),
		done:   make(chan struct{}),
	}
	stream, err := opener.Open(ctx, format, s.push)
	if err != nil {
		return nil, err
	}
	s.stream = stream
	return s, nil
}

// Format returns the stream format.
func (s *Source) Format() audio.Format {
	return s.format
}

// Dropped counts blocks discarded because the reader fell behind.
func (s *Source) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops the stream. Pending reads return ErrSourceClosed.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}

func (s *Source) push(block []float32) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.blocks <- block:
	default:
		s.dropped.Add(1)
	}
}

// next blocks until one block is available.
func (s *Source) next(ctx context.Context, timer <-chan struct{}) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	case <-timer:
		return nil, ErrWaitTimeout
	case block := <-s.blocks:
		return block, nil
	}
}

package audio

import "time"

// Format is the fixed PCM layout of a capture stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Buffer is the ordered set of interleaved float32 blocks captured in one
// recording session. Samples are nominally in [-1, 1].
type Buffer struct {
	Format Format
	Blocks [][]float32
}

// Empty reports whether the buffer holds no blocks.
func (b Buffer) Empty() bool {
	return len(b.Blocks) == 0
}

// Len returns the total interleaved sample count.
func (b Buffer) Len() int {
	n := 0
	for _, block := range b.Blocks {
		n += len(block)
	}
	return n
}

// Samples concatenates all blocks into one interleaved slice.
func (b Buffer) Samples() []float32 {
	out := make([]float32, 0, b.Len())
	for _, block := range b.Blocks {
		out = append(out, block...)
	}
	return out
}

// Duration is the playback length implied by the sample count and format.
func (b Buffer) Duration() time.Duration {
	channels := b.Format.Channels
	if channels <= 0 {
		channels = 1
	}
	if b.Format.SampleRate <= 0 {
		return 0
	}
	frames := b.Len() / channels
	return time.Duration(frames) * time.Second / time.Duration(b.Format.SampleRate)
}

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jfreymuth/pulse"
)

// PulseOpener records from a Pulse source chosen by input/fallback preference.
type PulseOpener struct {
	Input     string
	Fallback  string
	BlockSize int
	Logger    *slog.Logger
}

// Open resolves the source and starts a float32 record stream.
func (o PulseOpener) Open(ctx context.Context, format Format, onBlock func([]float32)) (Stream, error) {
	selection, err := SelectDevice(ctx, o.Input, o.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && o.Logger != nil {
		o.Logger.Warn(selection.Warning)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Device.ID, err)
	}

	s := &pulseStream{device: selection.Device, client: client, onBlock: onBlock, stopCh: make(chan struct{})}

	channels := pulse.RecordMono
	if format.Channels == 2 {
		channels = pulse.RecordStereo
	}
	blockSize := o.BlockSize
	if blockSize <= 0 {
		blockSize = 1024
	}

	stream, err := client.NewRecord(
		pulse.Float32Writer(s.onPCM),
		pulse.RecordSource(source),
		channels,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(blockSize*format.Channels*4)),
		pulse.RecordMediaName("voxscribe capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	s.stream = stream
	stream.Start()
	return s, nil
}

// pulseStream owns one Pulse client and record stream.
type pulseStream struct {
	device  Device
	client  *pulse.Client
	stream  *pulse.RecordStream
	onBlock func([]float32)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// onPCM copies each Pulse fragment out of the reusable buffer before delivery.
func (s *pulseStream) onPCM(buffer []float32) (int, error) {
	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}
	if len(buffer) == 0 {
		return 0, nil
	}

	block := make([]float32, len(buffer))
	copy(block, buffer)
	s.onBlock(block)
	return len(buffer), nil
}

// Close halts the stream and releases the Pulse connection exactly once.
func (s *pulseStream) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.stream != nil {
			s.stream.Stop()
			s.stream.Close()
		}
		if s.client != nil {
			s.client.Close()
		}
	})
	return nil
}

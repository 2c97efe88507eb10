package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoOpener records from the default miniaudio capture device.
type MalgoOpener struct {
	BlockSize int
}

// Open initializes a miniaudio context and starts an f32 capture device.
func (o MalgoOpener) Open(_ context.Context, format Format, onBlock func([]float32)) (Stream, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(format.Channels)
	deviceCfg.SampleRate = uint32(format.SampleRate)
	if o.BlockSize > 0 {
		deviceCfg.PeriodSizeInFrames = uint32(o.BlockSize)
	}

	s := &malgoStream{ctx: mctx}
	channels := uint32(format.Channels)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			samples := bytesToFloat32(input, frameCount*channels)
			if len(samples) == 0 {
				return
			}
			onBlock(samples)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceCfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("initializing capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("starting capture device: %w", err)
	}

	s.device = device
	return s, nil
}

type malgoStream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	once   sync.Once
	err    error
}

// Close stops the device and frees the miniaudio context.
func (s *malgoStream) Close() error {
	s.once.Do(func() {
		if s.device != nil {
			s.device.Uninit()
		}
		if s.ctx != nil {
			if err := s.ctx.Uninit(); err != nil {
				s.err = fmt.Errorf("uninitializing audio context: %w", err)
			}
			s.ctx.Free()
		}
	})
	return s.err
}

// bytesToFloat32 converts raw little-endian float32 bytes to samples.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

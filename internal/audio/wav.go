package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

var ErrEmptyBuffer = errors.New("audio buffer is empty")

// SaveWAV writes buf as 16-bit PCM. An empty path allocates a fresh temp file;
// the written path is returned.
func SaveWAV(buf Buffer, path string) (string, error) {
	if buf.Empty() {
		return "", ErrEmptyBuffer
	}
	if buf.Format.SampleRate <= 0 || buf.Format.Channels <= 0 {
		return "", fmt.Errorf("invalid audio format %+v", buf.Format)
	}

	file, err := createWAVFile(path)
	if err != nil {
		return "", err
	}
	written := file.Name()

	if err := encodeWAV(file, buf); err != nil {
		_ = file.Close()
		_ = os.Remove(written)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(written)
		return "", fmt.Errorf("close wav file: %w", err)
	}
	return written, nil
}

// LoadWAV decodes a PCM WAV file into a float buffer with one block.
func LoadWAV(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("open wav file: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("decode wav file: %w", err)
	}

	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		return Buffer{}, fmt.Errorf("unsupported wav bit depth %d", dec.BitDepth)
	}

	format := Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if len(pcm.Data) == 0 {
		return Buffer{Format: format}, nil
	}

	scale := float32(int64(1) << (dec.BitDepth - 1))
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / scale
	}
	return Buffer{Format: format, Blocks: [][]float32{samples}}, nil
}

// TempWAVName returns a unique temp file basename for captured audio.
func TempWAVName() string {
	return "voxscribe-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16] + ".wav"
}

func createWAVFile(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(os.TempDir(), TempWAVName())
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create temp wav file: %w", err)
		}
		return file, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create wav dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create wav file: %w", err)
	}
	return file, nil
}

func encodeWAV(file *os.File, buf Buffer) error {
	samples := buf.Samples()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(clampSample(s) * 32767)
	}

	enc := wav.NewEncoder(file, buf.Format.SampleRate, 16, buf.Format.Channels, 1)
	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.Format.Channels,
			SampleRate:  buf.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav file: %w", err)
	}
	return nil
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

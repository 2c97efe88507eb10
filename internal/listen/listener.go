package listen

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
)

// ErrWaitTimeout means no phrase started within the listen timeout.
var ErrWaitTimeout = errors.New("listening timed out while waiting for phrase to start")

// minPhraseDuration discards clicks and pops shorter than a spoken word.
const minPhraseDuration = 300 * time.Millisecond

// Listener holds the adaptive energy threshold shared across utterances.
type Listener struct {
	cfg    config.ListenerConfig
	logger *slog.Logger

	mu        sync.Mutex
	threshold float64
}

// New returns a listener seeded with cfg.EnergyThreshold.
func New(cfg config.ListenerConfig, logger *slog.Logger) *Listener {
	return &Listener{cfg: cfg, logger: logger, threshold: cfg.EnergyThreshold}
}

// Threshold returns the current energy threshold.
func (l *Listener) Threshold() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.threshold
}

// Calibrate reads ambient audio for duration and moves the threshold toward
// the observed noise floor.
func (l *Listener) Calibrate(ctx context.Context, src *Source, duration time.Duration) error {
	format := src.Format()
	var elapsed time.Duration
	for elapsed < duration {
		block, err := src.next(ctx, nil)
		if err != nil {
			return err
		}
		seconds := blockSeconds(block, format)
		elapsed += secondsToDuration(seconds)
		l.adjust(Energy(block), seconds)
	}

	if l.logger != nil {
		l.logger.Debug("listener calibrated", "energy_threshold", l.Threshold())
	}
	return nil
}

// Listen waits for a phrase to start and returns it once trailing silence
// exceeds the pause threshold or phraseLimit elapses. A zero timeout waits
// indefinitely; a zero phraseLimit imposes no limit.
func (l *Listener) Listen(ctx context.Context, src *Source, timeout time.Duration, phraseLimit time.Duration) (audio.Buffer, error) {
	format := src.Format()

	var wall <-chan struct{}
	if timeout > 0 {
		var stop func()
		wall, stop = afterFunc(timeout)
		defer stop()
	}

	for {
		padding, first, err := l.waitForPhrase(ctx, src, format, timeout, wall)
		if err != nil {
			return audio.Buffer{}, err
		}

		blocks, speech, err := l.collectPhrase(ctx, src, format, first, phraseLimit)
		if err != nil {
			return audio.Buffer{}, err
		}
		if speech < minPhraseDuration {
			continue
		}

		return audio.Buffer{Format: format, Blocks: append(padding, blocks...)}, nil
	}
}

// waitForPhrase consumes quiet blocks, keeping up to NonSpeakingPadding of
// them as lead-in, until one block crosses the threshold. Only quiet blocks
// count toward timeout, so a phrase starting on the last block is kept.
func (l *Listener) waitForPhrase(ctx context.Context, src *Source, format audio.Format, timeout time.Duration, wall <-chan struct{}) ([][]float32, []float32, error) {
	var (
		elapsed   time.Duration
		padding   [][]float32
		paddingAt time.Duration
	)

	for {
		block, err := src.next(ctx, wall)
		if err != nil {
			return nil, nil, err
		}
		energy := Energy(block)
		if energy > l.Threshold() {
			return padding, block, nil
		}

		seconds := blockSeconds(block, format)
		elapsed += secondsToDuration(seconds)
		if timeout > 0 && elapsed > timeout {
			return nil, nil, ErrWaitTimeout
		}

		padding = append(padding, block)
		paddingAt += secondsToDuration(seconds)
		for len(padding) > 1 && paddingAt > l.cfg.NonSpeakingPadding {
			paddingAt -= secondsToDuration(blockSeconds(padding[0], format))
			padding = padding[1:]
		}

		if l.cfg.DynamicEnergy {
			l.adjust(energy, seconds)
		}
	}
}

// collectPhrase gathers blocks from first until the pause or phrase limit and
// trims trailing silence down to NonSpeakingPadding. It also returns the
// phrase length excluding the trailing pause.
func (l *Listener) collectPhrase(ctx context.Context, src *Source, format audio.Format, first []float32, phraseLimit time.Duration) ([][]float32, time.Duration, error) {
	blocks := [][]float32{first}
	phrase := secondsToDuration(blockSeconds(first, format))
	var (
		pause       time.Duration
		quietBlocks int
	)

	for {
		if phraseLimit > 0 && phrase > phraseLimit {
			break
		}
		block, err := src.next(ctx, nil)
		if err != nil {
			return nil, 0, err
		}
		span := secondsToDuration(blockSeconds(block, format))
		blocks = append(blocks, block)
		phrase += span

		if Energy(block) > l.Threshold() {
			pause = 0
			quietBlocks = 0
		} else {
			pause += span
			quietBlocks++
		}
		if pause > l.cfg.PauseThreshold {
			break
		}
	}

	keep := 0
	var kept time.Duration
	for i := len(blocks) - quietBlocks; i < len(blocks) && kept < l.cfg.NonSpeakingPadding; i++ {
		kept += secondsToDuration(blockSeconds(blocks[i], format))
		keep++
	}
	blocks = blocks[:len(blocks)-(quietBlocks-keep)]
	return blocks, phrase - pause, nil
}

// adjust applies threshold = threshold*d + energy*ratio*(1-d) with
// d = damping^seconds, so the step size is independent of block length.
func (l *Listener) adjust(energy float64, seconds float64) {
	damping := math.Pow(l.cfg.DynamicDamping, seconds)
	target := energy * l.cfg.AdjustmentRatio

	l.mu.Lock()
	l.threshold = l.threshold*damping + target*(1-damping)
	l.mu.Unlock()
}

// Energy is the RMS of block on the int16 amplitude scale.
func Energy(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s) * 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

func blockSeconds(block []float32, format audio.Format) float64 {
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}
	if format.SampleRate <= 0 {
		return 0
	}
	return float64(len(block)/channels) / float64(format.SampleRate)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// afterFunc returns a channel closed after d and a stop func that releases
// the timer early.
func afterFunc(d time.Duration) (<-chan struct{}, func()) {
	ch := make(chan struct{})
	timer := time.AfterFunc(d, func() { close(ch) })
	return ch, func() { timer.Stop() }
}

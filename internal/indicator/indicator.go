// Package indicator plays short audio cues for recording lifecycle changes.
package indicator

import (
	"log/slog"
	"sync"

	"github.com/rbright/voxscribe/internal/config"
)

// Cues is the session-facing cue player. Playback is asynchronous and
// serialized so overlapping cues never interleave.
type Cues struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	play   func(cueKind, config.IndicatorConfig) error

	mu sync.Mutex
	wg sync.WaitGroup
}

// New creates a cue player from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Cues {
	return &Cues{cfg: cfg, logger: logger, play: emitCue}
}

// Recording signals that capture started.
func (c *Cues) Recording() { c.cue(cueStart) }

// Stopped signals that capture stopped and transcription began.
func (c *Cues) Stopped() { c.cue(cueStop) }

// Complete signals a saved transcript.
func (c *Cues) Complete() { c.cue(cueComplete) }

// Error signals a failed operation.
func (c *Cues) Error() { c.cue(cueError) }

// Wait blocks until queued cues finish playing.
func (c *Cues) Wait() {
	c.wg.Wait()
}

func (c *Cues) cue(kind cueKind) {
	if !c.cfg.SoundEnable {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.play(kind, c.cfg); err != nil && c.logger != nil {
			c.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

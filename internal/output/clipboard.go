// Package output applies side effects for recognized text: clipboard copies
// and spoken acknowledgements.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/voxscribe/internal/config"
)

// Clipboard copies recognized text through the configured clipboard command.
type Clipboard struct {
	argv   []string
	logger *slog.Logger
}

// NewClipboard returns a clipboard writer; an empty output.clipboard_cmd disables it.
func NewClipboard(cfg config.OutputConfig, logger *slog.Logger) *Clipboard {
	return &Clipboard{argv: append([]string(nil), cfg.Clipboard.Argv...), logger: logger}
}

// Enabled reports whether a clipboard command is configured.
func (c *Clipboard) Enabled() bool {
	return c != nil && len(c.argv) > 0
}

// Commit writes text to the clipboard. Empty text and a disabled clipboard are no-ops.
func (c *Clipboard) Commit(ctx context.Context, text string) error {
	if !c.Enabled() || strings.TrimSpace(text) == "" {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("transcript copied to clipboard", "chars", len(text))
	}
	return nil
}

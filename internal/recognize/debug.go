package recognize

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/voxscribe/internal/logging"
)

// createDebugFile creates timestamped debug artifacts under the state debug dir.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// writeDebugAudio copies submitted WAV bytes when debug.audio_dump is enabled.
func (t *Transcriber) writeDebugAudio(wav []byte) {
	if !t.opts.DebugDump || len(wav) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		t.logWarn("unable to create debug audio dump", "error", err.Error())
		return
	}
	defer file.Close()

	if _, err := file.Write(wav); err != nil {
		t.logWarn("unable to write debug audio dump", "error", err.Error())
	}
}

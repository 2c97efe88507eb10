package session

import (
	"fmt"
	"path/filepath"

	"github.com/rbright/voxscribe/internal/config"
)

const (
	msgRecording          = "Recording..."
	msgProcessing         = "Processing..."
	msgTranscriptionSaved = "Transcription saved successfully"
	msgAppendFailed       = "Failed to save transcription"
	msgUnintelligible     = "Could not understand audio"
	msgUnavailable        = "Speech service unavailable"
	msgNothingToSave      = "No transcript to save"
	msgConversationEnded  = "Conversation ended"
	msgTranscriptCleared  = "Transcript cleared"
	msgAlreadyRecording   = "Already recording"
	msgNotRecording       = "Not currently recording"
	msgStillProcessing    = "Still processing the previous recording"
	msgVoiceReady         = "Voice control ready. Say 'start recording' to begin."
	msgVoiceUnavailable   = "Microphone not available - using manual mode"

	ackTranscriptionComplete = "Transcription complete"
	ackConversationSaved     = "Conversation ended and transcript saved"
)

// commandAcks are spoken in voice mode before the command is queued.
var commandAcks = map[config.CommandID]string{
	config.CommandStart:           "Starting recording",
	config.CommandStop:            "Stopping recording",
	config.CommandSave:            "Saving transcript",
	config.CommandEndConversation: "Ending conversation and saving transcript",
	config.CommandClear:           "Clearing transcript",
	config.CommandExit:            "Goodbye",
}

// Acknowledgement returns the phrase spoken for a voice command.
func Acknowledgement(id config.CommandID) string {
	return commandAcks[id]
}

func savedMessage(path string) string {
	return fmt.Sprintf("Transcript saved to %s", filepath.Base(path))
}

func recordingFailedMessage(err error) string {
	return fmt.Sprintf("Recording error: %v", err)
}

func saveFailedMessage(err error) string {
	return fmt.Sprintf("Failed to save transcript: %v", err)
}

func processingFailedMessage(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

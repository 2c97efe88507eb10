package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiPrompt = "Transcribe the speech in this audio verbatim in language %s. " +
	"Reply with the transcript only. If there is no intelligible speech, reply with an empty message."

// GeminiBackend asks a Gemini model to transcribe inline WAV audio.
type GeminiBackend struct {
	BaseURL string
	APIKey  string
	Model   string
}

func (b *GeminiBackend) Name() string { return "gemini" }

// Recognize sends the WAV bytes with a transcription prompt in one user turn.
func (b *GeminiBackend) Recognize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return "", errors.New("gemini api key is not configured")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  b.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(b.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(fmt.Sprintf(geminiPrompt, req.LanguageCode)),
		genai.NewPartFromBytes(req.WAV, "audio/wav"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, b.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

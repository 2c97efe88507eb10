package recognize

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rbright/voxscribe/internal/config"
)

const (
	defaultGoogleEndpoint = "https://speech.googleapis.com/v1/speech:recognize"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	defaultOpenAIModel    = "whisper-1"
	defaultGeminiModel    = "gemini-2.5-flash"
)

// NewBackend builds the backend named by recognition.backend.
func NewBackend(cfg config.Config) (Backend, error) {
	rc := cfg.Recognition
	apiKey := ResolveAPIKey(rc)

	switch strings.ToLower(strings.TrimSpace(rc.Backend)) {
	case "", "google":
		phrases, _, err := config.BuildSpeechPhrases(cfg)
		if err != nil {
			return nil, fmt.Errorf("build speech contexts: %w", err)
		}
		return &GoogleBackend{
			Endpoint:      firstNonEmpty(rc.Endpoint, defaultGoogleEndpoint),
			APIKey:        apiKey,
			Model:         rc.Model,
			SpeechPhrases: phrases,
			CommandHints:  cfg.Commands.AllPhrases(),
			HTTPClient:    http.DefaultClient,
		}, nil
	case "openai":
		return &OpenAIBackend{
			Endpoint:   firstNonEmpty(rc.Endpoint, defaultOpenAIEndpoint),
			APIKey:     apiKey,
			Model:      firstNonEmpty(rc.Model, defaultOpenAIModel),
			HTTPClient: http.DefaultClient,
		}, nil
	case "gemini":
		return &GeminiBackend{
			BaseURL: rc.Endpoint,
			APIKey:  apiKey,
			Model:   firstNonEmpty(rc.Model, defaultGeminiModel),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported recognition backend %q", rc.Backend)
	}
}

// ResolveAPIKey prefers an inline key and falls back to the configured env var.
func ResolveAPIKey(rc config.RecognitionConfig) string {
	if key := strings.TrimSpace(rc.APIKey); key != "" {
		return key
	}
	if name := strings.TrimSpace(rc.APIKeyEnv); name != "" {
		return strings.TrimSpace(os.Getenv(name))
	}
	return ""
}

// DefaultEndpoint reports the URL a backend talks to when none is configured.
func DefaultEndpoint(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "google":
		return defaultGoogleEndpoint
	case "openai":
		return defaultOpenAIEndpoint
	case "gemini":
		return "https://generativelanguage.googleapis.com"
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// describeBody trims an error body for logs.
func describeBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	const maxText = 512
	if len(s) > maxText {
		return s[:maxText] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rbright/voxscribe/internal/version"
)

// OpenAIBackend uploads WAV files to an OpenAI-compatible transcription endpoint.
type OpenAIBackend struct {
	Endpoint   string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Recognize uploads req.WAV as multipart form data.
func (b *OpenAIBackend) Recognize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return "", errors.New("openai api key is not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.WAV); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	_ = writer.WriteField("model", b.Model)
	_ = writer.WriteField("response_format", "json")
	if lang := baseLanguage(req.LanguageCode); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("new transcription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+b.APIKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient(b.HTTPClient).Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription returned %d: %s", resp.StatusCode, describeBody(respBody))
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// baseLanguage reduces a BCP-47 tag like "en-US" to its ISO-639-1 prefix.
func baseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

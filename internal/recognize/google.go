package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/version"
)

// GoogleBackend calls the Cloud Speech v1 REST recognize method.
type GoogleBackend struct {
	Endpoint      string
	APIKey        string
	Model         string
	SpeechPhrases []config.SpeechPhrase
	CommandHints  []string
	HTTPClient    *http.Client
}

type googleRequest struct {
	Config googleConfig `json:"config"`
	Audio  googleAudio  `json:"audio"`
}

type googleConfig struct {
	Encoding          string                `json:"encoding"`
	SampleRateHertz   int                   `json:"sampleRateHertz"`
	AudioChannelCount int                   `json:"audioChannelCount"`
	LanguageCode      string                `json:"languageCode"`
	Model             string                `json:"model,omitempty"`
	SpeechContexts    []googleSpeechContext `json:"speechContexts,omitempty"`
}

type googleSpeechContext struct {
	Phrases []string `json:"phrases"`
	Boost   float32  `json:"boost,omitempty"`
}

type googleAudio struct {
	Content string `json:"content"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (b *GoogleBackend) Name() string { return "google" }

// Recognize posts LINEAR16 audio and joins the top alternative of each result.
func (b *GoogleBackend) Recognize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return "", errors.New("google speech api key is not configured")
	}

	payload := googleRequest{
		Config: googleConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   req.Format.SampleRate,
			AudioChannelCount: req.Format.Channels,
			LanguageCode:      req.LanguageCode,
			Model:             strings.TrimSpace(b.Model),
			SpeechContexts:    b.speechContexts(),
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(req.WAV)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode recognize request: %w", err)
	}

	endpoint, err := url.Parse(b.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", b.Endpoint, err)
	}
	query := endpoint.Query()
	query.Set("key", b.APIKey)
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new recognize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient(b.HTTPClient).Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("recognize request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read recognize response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognize returned %d: %s", resp.StatusCode, describeBody(respBody))
	}

	var decoded googleResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode recognize response: %w", err)
	}

	parts := make([]string, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

// speechContexts groups vocab phrases by boost and appends command phrases
// unboosted so spoken commands are favored.
func (b *GoogleBackend) speechContexts() []googleSpeechContext {
	contexts := make([]googleSpeechContext, 0, len(b.SpeechPhrases)+1)
	for _, phrase := range b.SpeechPhrases {
		text := strings.TrimSpace(phrase.Phrase)
		if text == "" {
			continue
		}
		contexts = append(contexts, googleSpeechContext{Phrases: []string{text}, Boost: phrase.Boost})
	}
	if len(b.CommandHints) > 0 {
		contexts = append(contexts, googleSpeechContext{Phrases: append([]string(nil), b.CommandHints...)})
	}
	return contexts
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

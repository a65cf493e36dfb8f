// Package elevenlabs wraps the ElevenLabs text-to-speech endpoint used for
// scene narration.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"narrator/internal/services"
)

const (
	serviceName        = "elevenlabs"
	defaultBaseURL     = "https://api.elevenlabs.io/v1"
	defaultModel       = "eleven_multilingual_v2"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

// Config holds the voice and model settings.
type Config struct {
	APIKey          string
	BaseURL         string
	VoiceID         string
	Model           string
	Stability       float64
	SimilarityBoost float64
	TimeoutSeconds  int
}

// Client synthesizes speech.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.VoiceID = strings.TrimSpace(cfg.VoiceID)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns the MPEG audio bytes for text. The payload is returned
// as received; callers validate it.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w: api key required", services.ErrConfiguration)
	}
	if c.cfg.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs: %w: voice id required", services.ErrConfiguration)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("elevenlabs: %w: text required", services.ErrValidation)
	}
	body, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: c.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/text-to-speech/" + c.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w: new request: %w", services.ErrConfiguration, err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("elevenlabs: %w: %w", services.ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &services.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(payload)}
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w: read body: %w", services.ErrTransient, err)
	}
	return audio, nil
}

// Package replicate talks to the Replicate predictions API used for scene
// images.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"narrator/internal/fileutil"
	"narrator/internal/services"
)

const (
	serviceName         = "replicate"
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 30
	defaultHTTPTimeout  = 60 * time.Second
	maxErrorBody        = 512
)

// Prediction statuses reported by the API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Config holds model and polling settings.
type Config struct {
	APIToken       string
	BaseURL        string
	Model          string
	AspectRatio    string
	OutputFormat   string
	OutputQuality  int
	PollInterval   time.Duration
	MaxPolls       int
	TimeoutSeconds int
}

// Prediction is the subset of the prediction resource the client reads.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// OutputURL returns the first output URL. Models return either a single
// string or a list of strings.
func (p Prediction) OutputURL() (string, error) {
	if len(p.Output) == 0 || string(p.Output) == "null" {
		return "", errors.New("prediction has no output")
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && strings.TrimSpace(single) != "" {
		return strings.TrimSpace(single), nil
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		for _, candidate := range many {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate), nil
			}
		}
	}
	return "", fmt.Errorf("unrecognized prediction output %s", truncate(string(p.Output)))
}

// Client submits predictions and polls them to completion.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
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

// WithSleeper replaces the wait between polls.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GenerateImage submits a prediction for prompt, waits for it and downloads
// the output to dest. It returns the remote URL the image came from.
func (c *Client) GenerateImage(ctx context.Context, prompt, dest string) (string, error) {
	prediction, err := c.CreatePrediction(ctx, prompt)
	if err != nil {
		return "", err
	}
	prediction, err = c.Wait(ctx, prediction)
	if err != nil {
		return "", err
	}
	url, err := prediction.OutputURL()
	if err != nil {
		return "", fmt.Errorf("replicate prediction %s: %w: %w", prediction.ID, services.ErrTransient, err)
	}
	if err := c.Download(ctx, url, dest); err != nil {
		return "", err
	}
	return url, nil
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt        string `json:"prompt"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
	OutputQuality int    `json:"output_quality,omitempty"`
}

// CreatePrediction submits a new prediction against the configured model.
func (c *Client) CreatePrediction(ctx context.Context, prompt string) (Prediction, error) {
	if c.cfg.APIToken == "" {
		return Prediction{}, fmt.Errorf("replicate: %w: api token required", services.ErrConfiguration)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Prediction{}, fmt.Errorf("replicate: %w: prompt required", services.ErrValidation)
	}
	body, err := json.Marshal(predictionRequest{Input: predictionInput{
		Prompt:        prompt,
		AspectRatio:   c.cfg.AspectRatio,
		OutputFormat:  c.cfg.OutputFormat,
		OutputQuality: c.cfg.OutputQuality,
	}})
	if err != nil {
		return Prediction{}, fmt.Errorf("replicate: encode request: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/models/" + c.cfg.Model + "/predictions"
	var prediction Prediction
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &prediction); err != nil {
		return Prediction{}, err
	}
	if prediction.ID == "" {
		return Prediction{}, fmt.Errorf("replicate: %w: prediction response missing id", services.ErrTransient)
	}
	return prediction, nil
}

// GetPrediction fetches the current state of a prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	var prediction Prediction
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/predictions/"+id, nil, &prediction); err != nil {
		return Prediction{}, err
	}
	return prediction, nil
}

// Wait polls until the prediction reaches a terminal status. A failed or
// canceled prediction is transient; running out of polls is a transient
// timeout.
func (c *Client) Wait(ctx context.Context, prediction Prediction) (Prediction, error) {
	for poll := 0; ; poll++ {
		switch prediction.Status {
		case StatusSucceeded:
			return prediction, nil
		case StatusFailed, StatusCanceled:
			return prediction, fmt.Errorf("replicate prediction %s %s: %w: %v",
				prediction.ID, prediction.Status, services.ErrTransient, prediction.Error)
		}
		if poll >= c.cfg.MaxPolls {
			return prediction, fmt.Errorf("replicate prediction %s: %w: %w after %d polls",
				prediction.ID, services.ErrTransient, services.ErrTimeout, c.cfg.MaxPolls)
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return prediction, err
		}
		next, err := c.GetPrediction(ctx, prediction.ID)
		if err != nil {
			return prediction, err
		}
		prediction = next
	}
}

// Download fetches url into dest atomically.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("replicate download: %w: %w", services.ErrTransient, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("replicate download: %w: %w", services.ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &services.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if _, err := fileutil.WriteFileAtomic(dest, resp.Body); err != nil {
		return fmt.Errorf("replicate download: %w: %w", services.ErrTransient, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("replicate: %w: new request: %w", services.ErrConfiguration, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("replicate %s: %w: %w", method, services.ErrTransient, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate %s: %w: read body: %w", method, services.ErrTransient, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &services.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: truncate(string(payload))}
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("replicate %s: %w: decode response: %w", method, services.ErrTransient, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > maxErrorBody {
		return value[:maxErrorBody] + "..."
	}
	return value
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mtzanidakis/workforce/internal/config"
	"golang.org/x/time/rate"
)

var (
	ErrMissingAPIKey = errors.New("gateway api key not configured")
	ErrEmptyResponse = errors.New("gateway returned no choices")
)

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI API error: %d", e.StatusCode)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusTooManyRequests:
		return true
	}
	return false
}

// CompletionRequest is one system+user prompt exchange.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type Client struct {
	cfg     config.GatewayConfig
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg config.GatewayConfig) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(cfg.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Modalities  []string  `json:"modalities,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs a text completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temp := req.Temperature
	body := chatRequest{
		Model: c.cfg.TextModel,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
	}

	resp, err := c.do(ctx, "completion", body)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage asks the image model for a concept visualisation of prompt
// and returns the image URL (often a data: URL). An empty string means the
// model answered without an image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model: c.cfg.ImageModel,
		Messages: []message{{
			Role: "user",
			Content: fmt.Sprintf("Create a professional, modern design mockup or concept visualization: %s. \n"+
				"Style: Clean, minimalist, professional, high-quality digital art, UI/UX design aesthetic.", prompt),
		}},
		Modalities: []string{"image", "text"},
	}

	resp, err := c.do(ctx, "image", body)
	if err != nil {
		return "", err
	}
	images := resp.Choices[0].Message.Images
	if len(images) == 0 {
		return "", nil
	}
	return images[0].ImageURL.URL, nil
}

func (c *Client) do(ctx context.Context, kind string, body chatRequest) (*chatResponse, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out *chatResponse
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := c.send(ctx, payload)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Transient() {
				return err
			}
			return backoff.Permanent(err)
		}
		out = resp
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: c.cfg.BackoffStep}, uint64(c.cfg.Attempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		slog.Info("gateway request failed, retrying", "kind", kind, "attempt", attempt, "of", c.cfg.Attempts, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, payload []byte) (*chatResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("gateway returned error status", "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

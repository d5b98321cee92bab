// Package taskclient invokes the agent task endpoint, either over HTTP or
// in-process, and classifies failures for the orchestrator.
package taskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mtzanidakis/workforce/internal/agenttask"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/output"
)

type Kind string

const (
	KindUnavailable    Kind = "unavailable"
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindNetwork        Kind = "network"
	KindUnknown        Kind = "unknown"
)

// Error is a classified task failure.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

// Retryable reports whether retrying later may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// Result is one successful agent task.
type Result struct {
	AgentID string
	Output  *output.AgentOutput
	Text    string
}

// Client invokes a single agent task.
type Client interface {
	Invoke(ctx context.Context, req agenttask.Request) (*Result, error)
}

// New returns an HTTP client when an endpoint is configured and an in-process
// client around h otherwise.
func New(cfg config.TaskConfig, h *agenttask.Handler) Client {
	if cfg.Endpoint != "" {
		return NewHTTP(cfg)
	}
	return NewLocal(h)
}

type HTTPClient struct {
	endpoint string
	http     *http.Client
}

func NewHTTP(cfg config.TaskConfig) *HTTPClient {
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, req agenttask.Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal task request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create task request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: KindNetwork, Message: "Network request failed"}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "Network request failed", StatusCode: resp.StatusCode}
	}

	var out agenttask.Response
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, classify(resp.StatusCode, fmt.Sprintf("AI API error: %d", resp.StatusCode))
		}
		return nil, &Error{Kind: KindNetwork, Message: "malformed task response", StatusCode: resp.StatusCode}
	}
	return toResult(resp.StatusCode, &out)
}

type LocalClient struct {
	handler *agenttask.Handler
}

func NewLocal(h *agenttask.Handler) *LocalClient {
	return &LocalClient{handler: h}
}

func (c *LocalClient) Invoke(ctx context.Context, req agenttask.Request) (*Result, error) {
	resp, err := c.handler.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(agenttask.StatusFor(err))
	}
	return toResult(http.StatusOK, resp)
}

func toResult(status int, resp *agenttask.Response) (*Result, error) {
	if status != http.StatusOK || !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, classify(status, msg)
	}
	if resp.Output == nil {
		return nil, &Error{Kind: KindNetwork, Message: "malformed task response", StatusCode: status}
	}
	if err := resp.Output.Validate(); err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "malformed task response: " + err.Error(), StatusCode: status}
	}
	return &Result{AgentID: resp.AgentID, Output: resp.Output, Text: resp.Result}, nil
}

func classify(status int, msg string) *Error {
	e := &Error{Kind: KindUnknown, Message: msg, StatusCode: status}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status == http.StatusPaymentRequired:
		e.Kind = KindQuotaExhausted
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway,
		strings.Contains(msg, "temporarily unavailable"):
		e.Kind = KindUnavailable
	}
	return e
}

// AsError extracts a classified error, wrapping anything else as unknown.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Kind: KindUnknown, Message: err.Error()}
}

// Package agenttask turns one mission into one typed agent output: it builds
// the prompt, calls the gateway and parses the completion.
package agenttask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/gateway"
	"github.com/mtzanidakis/workforce/internal/output"
)

var ErrInvalidRequest = errors.New("invalid agent task request")

// Request is the wire shape accepted by the task endpoint.
type Request struct {
	AgentID      string   `json:"agentId"`
	AgentName    string   `json:"agentName"`
	AgentRole    string   `json:"agentRole"`
	Mission      string   `json:"mission"`
	CustomPrompt string   `json:"customPrompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"maxTokens,omitempty"`
	IsCustom     bool     `json:"isCustom,omitempty"`
}

// Validate checks the required fields.
func (r *Request) Validate() error {
	switch {
	case strings.TrimSpace(r.AgentID) == "":
		return fmt.Errorf("%w: agentId is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Mission) == "":
		return fmt.Errorf("%w: mission is required", ErrInvalidRequest)
	}
	return nil
}

// Sampling returns the clamped temperature and max tokens for the request.
func (r *Request) Sampling() (float64, int) {
	cfg := agent.Config{Temperature: agent.DefaultTemperature, MaxTokens: agent.DefaultMaxTokens}
	if r.Temperature != nil {
		cfg.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		cfg.MaxTokens = *r.MaxTokens
	}
	cfg = cfg.Clamp()
	return cfg.Temperature, cfg.MaxTokens
}

// Response is the wire shape returned by the task endpoint.
type Response struct {
	Success   bool                `json:"success"`
	AgentID   string              `json:"agentId,omitempty"`
	AgentName string              `json:"agentName,omitempty"`
	Output    *output.AgentOutput `json:"output,omitempty"`
	Result    string              `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Gateway is the subset of the LLM gateway used by the handler.
type Gateway interface {
	Configured() bool
	Complete(ctx context.Context, req gateway.CompletionRequest) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	gw Gateway
}

func NewHandler(gw Gateway) *Handler {
	return &Handler{gw: gw}
}

// Run executes one agent task.
func (h *Handler) Run(ctx context.Context, req Request) (*Response, error) {
	if !h.gw.Configured() {
		return nil, gateway.ErrMissingAPIKey
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slog.Info("agent task started", "agent", req.AgentName, "role", req.AgentRole, "agent_id", req.AgentID)

	affinity := agent.AffinityFor(req.AgentID)
	temperature, maxTokens := req.Sampling()

	raw, err := h.gw.Complete(ctx, gateway.CompletionRequest{
		SystemPrompt: agent.SystemPrompt(req.AgentID, req.AgentName, req.AgentRole, req.CustomPrompt, req.IsCustom),
		UserPrompt:   agent.UserPrompt(req.Mission),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return nil, err
	}

	out := output.Parse(raw, affinity)

	if affinity == output.TypeImage {
		url, err := h.gw.GenerateImage(ctx, fmt.Sprintf("%s. %s", req.Mission, raw))
		switch {
		case err != nil:
			slog.Warn("image generation failed, keeping text output", "agent", req.AgentName, "error", err)
		case url != "":
			out.Type = output.TypeImage
			out.Content = url
		}
	}

	slog.Info("agent task completed", "agent", req.AgentName, "output_type", out.Type)

	return &Response{
		Success:   true,
		AgentID:   req.AgentID,
		AgentName: req.AgentName,
		Output:    out,
		Result:    out.Content,
	}, nil
}

// StatusFor maps a task failure to the HTTP status and user-facing message
// returned by the task endpoint.
func StatusFor(err error) (int, string) {
	if errors.Is(err, gateway.ErrMissingAPIKey) {
		return http.StatusInternalServerError, "Backend configuration error. Please try again later."
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest, err.Error()
	}

	var se *gateway.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "Rate limit exceeded. Please wait a moment and retry."
		case http.StatusPaymentRequired:
			return http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue."
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return http.StatusInternalServerError, "AI service temporarily unavailable. Retry in a few seconds."
		}
	}
	return http.StatusInternalServerError, err.Error()
}

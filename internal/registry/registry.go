// Package registry composes the agent roster from the built-in agents, stored
// per-agent settings and user-defined custom agents, and manages templates.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/store"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

type Registry struct {
	store *store.Store
}

func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Roster returns the built-in agents followed by custom agents, with stored
// settings applied.
func (r *Registry) Roster() ([]agent.Agent, error) {
	settings, err := r.store.ListAgentSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	customs, err := r.store.ListCustomAgents()
	if err != nil {
		return nil, fmt.Errorf("load custom agents: %w", err)
	}

	roster := agent.Builtin()
	for _, c := range customs {
		roster = append(roster, fromCustom(c))
	}
	for i := range roster {
		if s, ok := settings[roster[i].ID]; ok {
			roster[i].Config = applySettings(roster[i].Config, s)
		}
	}
	return roster, nil
}

// Get returns one roster agent.
func (r *Registry) Get(id string) (*agent.Agent, error) {
	roster, err := r.Roster()
	if err != nil {
		return nil, err
	}
	for i := range roster {
		if roster[i].ID == id {
			return &roster[i], nil
		}
	}
	return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
}

// UpdateSettings stores clamped settings for a roster agent.
func (r *Registry) UpdateSettings(id string, cfg agent.Config) (*agent.Agent, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}

	cfg = cfg.Clamp()
	err := r.store.SaveAgentSettings(&store.AgentSettings{
		AgentID:      id,
		CustomPrompt: strings.TrimSpace(cfg.CustomPrompt),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Enabled:      cfg.Enabled,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("agent settings updated", "agent", id, "enabled", cfg.Enabled)
	return r.Get(id)
}

// ResetSettings drops stored settings so the agent uses its defaults again.
func (r *Registry) ResetSettings(id string) error {
	return r.store.DeleteAgentSettings(id)
}

// CustomAgentInput describes a user-defined agent.
type CustomAgentInput struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Icon         string   `json:"icon"`
	SystemPrompt string   `json:"systemPrompt"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    int      `json:"maxTokens"`
}

func (in *CustomAgentInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	if in.Name == "" || in.Role == "" {
		return fmt.Errorf("%w: name and role are required", ErrInvalid)
	}
	return nil
}

// inputConfig clamps user supplied sampling settings. A missing temperature
// means the default, while an explicit 0 is kept.
func inputConfig(temperature *float64, maxTokens int) agent.Config {
	cfg := agent.Config{Temperature: agent.DefaultTemperature, MaxTokens: maxTokens}
	if temperature != nil {
		cfg.Temperature = *temperature
	}
	return cfg.Clamp()
}

func (r *Registry) CreateCustomAgent(in CustomAgentInput) (*agent.Agent, error) {
	return r.createCustom(in, "")
}

func (r *Registry) createCustom(in CustomAgentInput, templateID string) (*agent.Agent, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	cfg := inputConfig(in.Temperature, in.MaxTokens)
	c := store.CustomAgent{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Role:         in.Role,
		Icon:         string(agent.ParseIcon(in.Icon)),
		SystemPrompt: strings.TrimSpace(in.SystemPrompt),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		TemplateID:   templateID,
	}
	if err := r.store.SaveCustomAgent(&c); err != nil {
		return nil, err
	}

	slog.Info("custom agent created", "id", c.ID, "name", c.Name, "template", templateID)
	a := fromCustom(c)
	return &a, nil
}

func (r *Registry) UpdateCustomAgent(id string, in CustomAgentInput) (*agent.Agent, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := r.store.GetCustomAgent(storeID(id))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("custom agent %s: %w", id, ErrNotFound)
	}

	cfg := inputConfig(in.Temperature, in.MaxTokens)
	c.Name = in.Name
	c.Role = in.Role
	c.Icon = string(agent.ParseIcon(in.Icon))
	c.SystemPrompt = strings.TrimSpace(in.SystemPrompt)
	c.Temperature = cfg.Temperature
	c.MaxTokens = cfg.MaxTokens
	if err := r.store.SaveCustomAgent(c); err != nil {
		return nil, err
	}
	return r.Get(agent.CustomID(c.ID))
}

func (r *Registry) DeleteCustomAgent(id string) error {
	sid := storeID(id)
	c, err := r.store.GetCustomAgent(sid)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("custom agent %s: %w", id, ErrNotFound)
	}
	if err := r.store.DeleteCustomAgent(sid); err != nil {
		return err
	}
	return r.store.DeleteAgentSettings(agent.CustomID(sid))
}

func fromCustom(c store.CustomAgent) agent.Agent {
	return agent.Agent{
		ID:       agent.CustomID(c.ID),
		Name:     c.Name,
		Role:     c.Role,
		Icon:     agent.ParseIcon(c.Icon),
		IsCustom: true,
		Affinity: agent.AffinityFor(agent.CustomID(c.ID)),
		Config: agent.Config{
			CustomPrompt: c.SystemPrompt,
			Temperature:  c.Temperature,
			MaxTokens:    c.MaxTokens,
			Enabled:      true,
		},
		State: agent.State{}.Reset(),
	}
}

// applySettings overlays stored settings. A custom agent keeps its own
// system prompt unless the settings carry one.
func applySettings(cfg agent.Config, s store.AgentSettings) agent.Config {
	if s.CustomPrompt != "" {
		cfg.CustomPrompt = s.CustomPrompt
	}
	cfg.Temperature = s.Temperature
	cfg.MaxTokens = s.MaxTokens
	cfg.Enabled = s.Enabled
	return cfg
}

// storeID accepts both the roster id and the bare stored id.
func storeID(id string) string {
	return strings.TrimPrefix(id, "custom-")
}

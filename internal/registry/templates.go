package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/store"
)

type TemplateInput struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Icon         string   `json:"icon"`
	SystemPrompt string   `json:"systemPrompt"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    int      `json:"maxTokens"`
	Description  string   `json:"description"`
	Visibility   string   `json:"visibility"`
	TeamID       string   `json:"teamId"`
}

func (in *TemplateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	if in.Name == "" || in.Role == "" {
		return fmt.Errorf("%w: name and role are required", ErrInvalid)
	}
	if in.Visibility == "" {
		in.Visibility = store.VisibilityPersonal
	}
	switch in.Visibility {
	case store.VisibilityPublic, store.VisibilityPersonal:
		in.TeamID = ""
	case store.VisibilityTeam:
		if in.TeamID == "" {
			return fmt.Errorf("%w: team visibility requires a team", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalid, in.Visibility)
	}
	return nil
}

func (in TemplateInput) toStore(id string) *store.Template {
	cfg := inputConfig(in.Temperature, in.MaxTokens)
	return &store.Template{
		ID:           id,
		Name:         in.Name,
		Role:         in.Role,
		Icon:         string(agent.ParseIcon(in.Icon)),
		SystemPrompt: strings.TrimSpace(in.SystemPrompt),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Description:  in.Description,
		Visibility:   in.Visibility,
		TeamID:       in.TeamID,
	}
}

func (r *Registry) ListTemplates(teamID string) ([]store.Template, error) {
	return r.store.ListTemplates(teamID)
}

func (r *Registry) CreateTemplate(in TemplateInput) (*store.Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.TeamID != "" {
		team, err := r.store.GetTeam(in.TeamID)
		if err != nil {
			return nil, err
		}
		if team == nil {
			return nil, fmt.Errorf("team %s: %w", in.TeamID, ErrNotFound)
		}
	}

	t := in.toStore(uuid.New().String())
	if err := r.store.SaveTemplate(t); err != nil {
		return nil, err
	}
	return r.store.GetTemplate(t.ID)
}

func (r *Registry) UpdateTemplate(id string, in TemplateInput) (*store.Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := r.store.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err := r.store.SaveTemplate(in.toStore(id)); err != nil {
		return nil, err
	}
	return r.store.GetTemplate(id)
}

func (r *Registry) DeleteTemplate(id string) error {
	return r.store.DeleteTemplate(id)
}

// Instantiate copies a template into a new custom agent and bumps the
// template's use count. The agent keeps no link to later template edits.
func (r *Registry) Instantiate(templateID string) (*agent.Agent, error) {
	t, err := r.store.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("template %s: %w", templateID, ErrNotFound)
	}

	a, err := r.createCustom(CustomAgentInput{
		Name:         t.Name,
		Role:         t.Role,
		Icon:         t.Icon,
		SystemPrompt: t.SystemPrompt,
		Temperature:  &t.Temperature,
		MaxTokens:    t.MaxTokens,
	}, t.ID)
	if err != nil {
		return nil, err
	}

	count, err := r.store.IncrementTemplateUse(t.ID)
	if err != nil {
		return nil, err
	}
	slog.Info("template instantiated", "template", t.ID, "agent", a.ID, "use_count", count)
	return a, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	VisibilityPublic   = "public"
	VisibilityTeam     = "team"
	VisibilityPersonal = "personal"
)

type Template struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Icon         string    `json:"icon"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"maxTokens"`
	Description  string    `json:"description,omitempty"`
	Visibility   string    `json:"visibility"`
	TeamID       string    `json:"teamId,omitempty"`
	UseCount     int       `json:"useCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

const templateColumns = `id, name, role, icon, system_prompt, temperature, max_tokens, description, visibility, team_id, use_count, created_at`

func scanTemplate(s scanner) (*Template, error) {
	t := &Template{}
	var prompt, desc, teamID sql.NullString
	err := s.Scan(&t.ID, &t.Name, &t.Role, &t.Icon, &prompt, &t.Temperature, &t.MaxTokens,
		&desc, &t.Visibility, &teamID, &t.UseCount, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.SystemPrompt = prompt.String
	t.Description = desc.String
	t.TeamID = teamID.String
	return t, nil
}

// SaveTemplate upserts a template. The use count is never overwritten.
func (s *Store) SaveTemplate(t *Template) error {
	_, err := s.db.Exec(`
		INSERT INTO agent_templates (id, name, role, icon, system_prompt, temperature, max_tokens, description, visibility, team_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			icon = excluded.icon,
			system_prompt = excluded.system_prompt,
			temperature = excluded.temperature,
			max_tokens = excluded.max_tokens,
			description = excluded.description,
			visibility = excluded.visibility,
			team_id = excluded.team_id`,
		t.ID, t.Name, t.Role, t.Icon, nullString(t.SystemPrompt), t.Temperature, t.MaxTokens,
		nullString(t.Description), t.Visibility, nullString(t.TeamID))
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(id string) (*Template, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM agent_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns public and personal templates plus team templates of
// teamID, most used first.
func (s *Store) ListTemplates(teamID string) ([]Template, error) {
	rows, err := s.db.Query(`
		SELECT `+templateColumns+` FROM agent_templates
		WHERE visibility != 'team' OR team_id = ?
		ORDER BY use_count DESC, created_at`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// IncrementTemplateUse bumps the use count and returns the new value.
func (s *Store) IncrementTemplateUse(id string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		UPDATE agent_templates SET use_count = use_count + 1
		WHERE id = ? RETURNING use_count`, id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("increment template use: template %s not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("increment template use: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteTemplate(id string) error {
	_, err := s.db.Exec(`DELETE FROM agent_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

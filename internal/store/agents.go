package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AgentSettings are the user overrides for one roster agent.
type AgentSettings struct {
	AgentID      string    `json:"agentId"`
	CustomPrompt string    `json:"customPrompt,omitempty"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"maxTokens"`
	Enabled      bool      `json:"enabled"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *Store) SaveAgentSettings(a *AgentSettings) error {
	_, err := s.db.Exec(`
		INSERT INTO agent_settings (agent_id, custom_prompt, temperature, max_tokens, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			custom_prompt = excluded.custom_prompt,
			temperature = excluded.temperature,
			max_tokens = excluded.max_tokens,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP`,
		a.AgentID, nullString(a.CustomPrompt), a.Temperature, a.MaxTokens, boolToInt(a.Enabled))
	if err != nil {
		return fmt.Errorf("save agent settings: %w", err)
	}
	return nil
}

func scanAgentSettings(s scanner) (*AgentSettings, error) {
	a := &AgentSettings{}
	var prompt sql.NullString
	var enabled int
	if err := s.Scan(&a.AgentID, &prompt, &a.Temperature, &a.MaxTokens, &enabled, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.CustomPrompt = prompt.String
	a.Enabled = enabled == 1
	return a, nil
}

func (s *Store) GetAgentSettings(agentID string) (*AgentSettings, error) {
	row := s.db.QueryRow(`
		SELECT agent_id, custom_prompt, temperature, max_tokens, enabled, updated_at
		FROM agent_settings WHERE agent_id = ?`, agentID)
	a, err := scanAgentSettings(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent settings: %w", err)
	}
	return a, nil
}

// ListAgentSettings returns all stored settings keyed by agent id.
func (s *Store) ListAgentSettings() (map[string]AgentSettings, error) {
	rows, err := s.db.Query(`
		SELECT agent_id, custom_prompt, temperature, max_tokens, enabled, updated_at
		FROM agent_settings`)
	if err != nil {
		return nil, fmt.Errorf("list agent settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]AgentSettings)
	for rows.Next() {
		a, err := scanAgentSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent settings: %w", err)
		}
		settings[a.AgentID] = *a
	}
	return settings, rows.Err()
}

func (s *Store) DeleteAgentSettings(agentID string) error {
	_, err := s.db.Exec(`DELETE FROM agent_settings WHERE agent_id = ?`, agentID)
	if err != nil {
		return fmt.Errorf("delete agent settings: %w", err)
	}
	return nil
}

// CustomAgent is a user-defined roster member.
type CustomAgent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Icon         string    `json:"icon"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"maxTokens"`
	TemplateID   string    `json:"templateId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

const customAgentColumns = `id, name, role, icon, system_prompt, temperature, max_tokens, template_id, created_at`

func scanCustomAgent(s scanner) (*CustomAgent, error) {
	a := &CustomAgent{}
	var prompt, templateID sql.NullString
	err := s.Scan(&a.ID, &a.Name, &a.Role, &a.Icon, &prompt, &a.Temperature, &a.MaxTokens, &templateID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.SystemPrompt = prompt.String
	a.TemplateID = templateID.String
	return a, nil
}

func (s *Store) SaveCustomAgent(a *CustomAgent) error {
	_, err := s.db.Exec(`
		INSERT INTO custom_agents (id, name, role, icon, system_prompt, temperature, max_tokens, template_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			icon = excluded.icon,
			system_prompt = excluded.system_prompt,
			temperature = excluded.temperature,
			max_tokens = excluded.max_tokens`,
		a.ID, a.Name, a.Role, a.Icon, nullString(a.SystemPrompt), a.Temperature, a.MaxTokens, nullString(a.TemplateID))
	if err != nil {
		return fmt.Errorf("save custom agent: %w", err)
	}
	return nil
}

func (s *Store) GetCustomAgent(id string) (*CustomAgent, error) {
	row := s.db.QueryRow(`SELECT `+customAgentColumns+` FROM custom_agents WHERE id = ?`, id)
	a, err := scanCustomAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get custom agent: %w", err)
	}
	return a, nil
}

func (s *Store) ListCustomAgents() ([]CustomAgent, error) {
	rows, err := s.db.Query(`SELECT ` + customAgentColumns + ` FROM custom_agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list custom agents: %w", err)
	}
	defer rows.Close()

	var agents []CustomAgent
	for rows.Next() {
		a, err := scanCustomAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custom agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *Store) DeleteCustomAgent(id string) error {
	_, err := s.db.Exec(`DELETE FROM custom_agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete custom agent: %w", err)
	}
	return nil
}

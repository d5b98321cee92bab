package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Mission struct {
	ID          string          `json:"id"`
	MissionText string          `json:"missionText"`
	TeamID      string          `json:"teamId,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Results     []MissionResult `json:"results"`
}

// MissionResult is one agent's saved result. Output holds the serialized
// structured output, if any.
type MissionResult struct {
	AgentID   string          `json:"agentId"`
	AgentName string          `json:"agentName"`
	Result    string          `json:"result"`
	Output    json.RawMessage `json:"output,omitempty"`
}

const missionColumns = `id, mission_text, team_id, status, created_at, completed_at`

func scanMission(s scanner) (*Mission, error) {
	m := &Mission{}
	var teamID sql.NullString
	if err := s.Scan(&m.ID, &m.MissionText, &teamID, &m.Status, &m.CreatedAt, &m.CompletedAt); err != nil {
		return nil, err
	}
	m.TeamID = teamID.String
	return m, nil
}

// SaveMission inserts or replaces a mission together with its results, which
// are stored in slice order.
func (s *Store) SaveMission(m *Mission) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO missions (id, mission_text, team_id, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at`,
		m.ID, m.MissionText, nullString(m.TeamID), m.Status, m.CreatedAt, m.CompletedAt)
	if err != nil {
		return fmt.Errorf("save mission: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM mission_results WHERE mission_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear mission results: %w", err)
	}
	for i, r := range m.Results {
		var out any
		if len(r.Output) > 0 {
			out = string(r.Output)
		}
		if _, err := tx.Exec(`
			INSERT INTO mission_results (mission_id, seq, agent_id, agent_name, result, output)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, i, r.AgentID, r.AgentName, r.Result, out); err != nil {
			return fmt.Errorf("save mission result: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetMission(id string) (*Mission, error) {
	row := s.db.QueryRow(`SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	m, err := scanMission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mission: %w", err)
	}

	if m.Results, err = s.missionResults(id); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMissions returns up to limit missions, newest first. A non-empty
// teamID restricts the list to that team.
func (s *Store) ListMissions(teamID string, limit int) ([]Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions`
	var args []any
	if teamID != "" {
		query += ` WHERE team_id = ?`
		args = append(args, teamID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}

	var missions []Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		missions = append(missions, *m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range missions {
		if missions[i].Results, err = s.missionResults(missions[i].ID); err != nil {
			return nil, err
		}
	}
	return missions, nil
}

func (s *Store) DeleteMission(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mission_results WHERE mission_id = ?`, id); err != nil {
		return fmt.Errorf("delete mission results: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM missions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete mission: %w", err)
	}
	return tx.Commit()
}

func (s *Store) missionResults(missionID string) ([]MissionResult, error) {
	rows, err := s.db.Query(`
		SELECT agent_id, agent_name, result, output
		FROM mission_results WHERE mission_id = ? ORDER BY seq`, missionID)
	if err != nil {
		return nil, fmt.Errorf("list mission results: %w", err)
	}
	defer rows.Close()

	results := []MissionResult{}
	for rows.Next() {
		var r MissionResult
		var out sql.NullString
		if err := rows.Scan(&r.AgentID, &r.AgentName, &r.Result, &out); err != nil {
			return nil, fmt.Errorf("scan mission result: %w", err)
		}
		if out.Valid {
			r.Output = json.RawMessage(out.String)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

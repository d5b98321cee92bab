package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type ScheduledMission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	MissionText string     `json:"missionText"`
	TeamID      string     `json:"teamId,omitempty"`
	AgentIDs    []string   `json:"agentIds,omitempty"`
	Status      string     `json:"status"`
	NextRunAt   *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastStatus  string     `json:"lastStatus,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

const scheduleColumns = `id, name, schedule, mission_text, team_id, agent_ids, status,
	next_run_at, last_run_at, last_status, last_error, created_at`

func scanSchedule(s scanner) (*ScheduledMission, error) {
	m := &ScheduledMission{}
	var teamID, agentIDs, lastStatus, lastError sql.NullString
	err := s.Scan(&m.ID, &m.Name, &m.Schedule, &m.MissionText, &teamID, &agentIDs, &m.Status,
		&m.NextRunAt, &m.LastRunAt, &lastStatus, &lastError, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.TeamID = teamID.String
	m.LastStatus = lastStatus.String
	m.LastError = lastError.String
	if agentIDs.Valid && agentIDs.String != "" {
		if err := json.Unmarshal([]byte(agentIDs.String), &m.AgentIDs); err != nil {
			return nil, fmt.Errorf("decode agent ids: %w", err)
		}
	}
	return m, nil
}

func (s *Store) SaveSchedule(m *ScheduledMission) error {
	var agentIDs any
	if len(m.AgentIDs) > 0 {
		data, err := json.Marshal(m.AgentIDs)
		if err != nil {
			return fmt.Errorf("encode agent ids: %w", err)
		}
		agentIDs = string(data)
	}

	_, err := s.db.Exec(`
		INSERT INTO scheduled_missions (id, name, schedule, mission_text, team_id, agent_ids, status, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schedule = excluded.schedule,
			mission_text = excluded.mission_text,
			team_id = excluded.team_id,
			agent_ids = excluded.agent_ids,
			status = excluded.status,
			next_run_at = excluded.next_run_at`,
		m.ID, m.Name, m.Schedule, m.MissionText, nullString(m.TeamID), agentIDs, m.Status, utcTime(m.NextRunAt))
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(id string) (*ScheduledMission, error) {
	row := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM scheduled_missions WHERE id = ?`, id)
	m, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return m, nil
}

func (s *Store) ListSchedules() ([]ScheduledMission, error) {
	return s.querySchedules(`SELECT ` + scheduleColumns + ` FROM scheduled_missions ORDER BY created_at`)
}

// GetDueSchedules returns active schedules whose next run is at or before now.
func (s *Store) GetDueSchedules(now time.Time) ([]ScheduledMission, error) {
	return s.querySchedules(`
		SELECT `+scheduleColumns+` FROM scheduled_missions
		WHERE status = 'active' AND next_run_at <= ?
		ORDER BY next_run_at`, now.UTC())
}

func (s *Store) querySchedules(query string, args ...any) ([]ScheduledMission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []ScheduledMission
	for rows.Next() {
		m, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *m)
	}
	return schedules, rows.Err()
}

func (s *Store) UpdateScheduleRun(id, lastStatus, lastError string, nextRunAt *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE scheduled_missions
		SET last_run_at = ?, last_status = ?, last_error = ?, next_run_at = ?
		WHERE id = ?`, time.Now().UTC(), lastStatus, nullString(lastError), utcTime(nextRunAt), id)
	if err != nil {
		return fmt.Errorf("update schedule run: %w", err)
	}
	return nil
}

func (s *Store) UpdateScheduleStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE scheduled_missions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	return nil
}

func (s *Store) DeleteSchedule(id string) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_missions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// utcTime keeps stored timestamps in one zone so they compare lexically.
func utcTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

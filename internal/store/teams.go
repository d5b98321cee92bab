package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type TeamMember struct {
	TeamID   string    `json:"teamId"`
	UserName string    `json:"userName"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

const teamQuery = `
	SELECT t.id, t.name, t.description, t.created_at,
	       (SELECT COUNT(*) FROM team_members m WHERE m.team_id = t.id)
	FROM teams t`

func scanTeam(s scanner) (*Team, error) {
	t := &Team{}
	var desc sql.NullString
	if err := s.Scan(&t.ID, &t.Name, &desc, &t.CreatedAt, &t.MemberCount); err != nil {
		return nil, err
	}
	t.Description = desc.String
	return t, nil
}

func (s *Store) SaveTeam(t *Team) error {
	_, err := s.db.Exec(`
		INSERT INTO teams (id, name, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description`,
		t.ID, t.Name, nullString(t.Description))
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	return nil
}

func (s *Store) GetTeam(id string) (*Team, error) {
	t, err := scanTeam(s.db.QueryRow(teamQuery+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (s *Store) ListTeams() ([]Team, error) {
	rows, err := s.db.Query(teamQuery + ` ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func (s *Store) DeleteTeam(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM team_members WHERE team_id = ?`, id); err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM teams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return tx.Commit()
}

func (s *Store) AddTeamMember(m *TeamMember) error {
	role := m.Role
	if role == "" {
		role = "member"
	}
	_, err := s.db.Exec(`
		INSERT INTO team_members (team_id, user_name, role) VALUES (?, ?, ?)
		ON CONFLICT(team_id, user_name) DO UPDATE SET role = excluded.role`,
		m.TeamID, m.UserName, role)
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

func (s *Store) RemoveTeamMember(teamID, userName string) error {
	_, err := s.db.Exec(`DELETE FROM team_members WHERE team_id = ? AND user_name = ?`, teamID, userName)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	return nil
}

func (s *Store) ListTeamMembers(teamID string) ([]TeamMember, error) {
	rows, err := s.db.Query(`
		SELECT team_id, user_name, role, joined_at
		FROM team_members WHERE team_id = ? ORDER BY joined_at`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserName, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mtzanidakis/workforce/internal/config"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(cfg config.StoreConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// WAL lets the web API read history while the orchestrator saves a
	// mission; busy_timeout makes writers wait instead of failing.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id     TEXT NOT NULL,
			user_name   TEXT NOT NULL,
			role        TEXT NOT NULL DEFAULT 'member',
			joined_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (team_id, user_name)
		)`,
		`CREATE TABLE IF NOT EXISTS missions (
			id           TEXT PRIMARY KEY,
			mission_text TEXT NOT NULL,
			team_id      TEXT,
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_missions_created ON missions(created_at)`,
		`CREATE TABLE IF NOT EXISTS mission_results (
			mission_id  TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			agent_id    TEXT NOT NULL,
			agent_name  TEXT NOT NULL,
			result      TEXT NOT NULL,
			output      TEXT,
			PRIMARY KEY (mission_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS agent_settings (
			agent_id      TEXT PRIMARY KEY,
			custom_prompt TEXT,
			temperature   REAL NOT NULL DEFAULT 0.7,
			max_tokens    INTEGER NOT NULL DEFAULT 800,
			enabled       BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS custom_agents (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL,
			icon          TEXT NOT NULL DEFAULT 'bot',
			system_prompt TEXT,
			temperature   REAL NOT NULL DEFAULT 0.7,
			max_tokens    INTEGER NOT NULL DEFAULT 800,
			template_id   TEXT,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS agent_templates (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL,
			icon          TEXT NOT NULL DEFAULT 'bot',
			system_prompt TEXT,
			temperature   REAL NOT NULL DEFAULT 0.7,
			max_tokens    INTEGER NOT NULL DEFAULT 800,
			description   TEXT,
			visibility    TEXT NOT NULL DEFAULT 'personal',
			team_id       TEXT,
			use_count     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_missions (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			schedule     TEXT NOT NULL,
			mission_text TEXT NOT NULL,
			team_id      TEXT,
			agent_ids    TEXT,
			status       TEXT DEFAULT 'active',
			next_run_at  DATETIME,
			last_run_at  DATETIME,
			last_status  TEXT,
			last_error   TEXT,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_next_run ON scheduled_missions(status, next_run_at)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT,
			value       BLOB NOT NULL,
			nonce       BLOB NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

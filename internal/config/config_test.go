package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Gateway.TextModel != "google/gemini-2.5-flash" {
		t.Errorf("expected default text model, got %s", cfg.Gateway.TextModel)
	}
	if cfg.Gateway.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Gateway.Attempts)
	}
	if cfg.Gateway.BackoffStep != time.Second {
		t.Errorf("expected 1s backoff step, got %v", cfg.Gateway.BackoffStep)
	}
	if cfg.Mission.Stagger != 300*time.Millisecond {
		t.Errorf("expected 300ms stagger, got %v", cfg.Mission.Stagger)
	}
	if cfg.Mission.TickInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms tick, got %v", cfg.Mission.TickInterval)
	}
	if cfg.Mission.ProgressCeiling != 85 {
		t.Errorf("expected ceiling 85, got %v", cfg.Mission.ProgressCeiling)
	}
	if len(cfg.Router.Groups) != 4 {
		t.Errorf("expected 4 router groups, got %d", len(cfg.Router.Groups))
	}
	if cfg.Web.Port != 8080 || !cfg.Web.Enabled {
		t.Errorf("unexpected web defaults: %+v", cfg.Web)
	}
	if cfg.Store.Path != "data/workforce.db" {
		t.Errorf("expected store path data/workforce.db, got %s", cfg.Store.Path)
	}
	if !cfg.NATS.Enabled || cfg.NATS.Host != "127.0.0.1" || cfg.NATS.Port != 4222 {
		t.Errorf("unexpected nats defaults: %+v", cfg.NATS)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("WORKFORCE_CONFIG", "/nonexistent/config.yaml")
	t.Setenv("LOVABLE_API_KEY", "lk-test")
	t.Setenv("WORKFORCE_TELEGRAM_TOKEN", "test-token-123")
	t.Setenv("WORKFORCE_WEB_PORT", "9090")
	t.Setenv("WORKFORCE_TASK_ENDPOINT", "http://tasks:8080/api/agent-task")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gateway.APIKey != "lk-test" {
		t.Errorf("expected api key lk-test, got %s", cfg.Gateway.APIKey)
	}
	if cfg.Telegram.Token != "test-token-123" {
		t.Errorf("expected telegram token test-token-123, got %s", cfg.Telegram.Token)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
	if cfg.Task.Endpoint != "http://tasks:8080/api/agent-task" {
		t.Errorf("unexpected task endpoint %s", cfg.Task.Endpoint)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
gateway:
  api_key: "${TEST_GATEWAY_KEY}"
  attempts: 5
mission:
  stagger: 100ms
  max_concurrent: 2
router:
  groups:
    - name: security
      keywords: [audit, pentest]
      agents: ["1", "8"]
telegram:
  allow_from: [123, 456]
web:
  port: 3000
  enabled: false
nats:
  enabled: false
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WORKFORCE_CONFIG", cfgPath)
	t.Setenv("TEST_GATEWAY_KEY", "from-env")
	t.Setenv("LOVABLE_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gateway.APIKey != "from-env" {
		t.Errorf("expected expanded api key, got %s", cfg.Gateway.APIKey)
	}
	if cfg.Gateway.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Gateway.Attempts)
	}
	if cfg.Gateway.TextModel != "google/gemini-2.5-flash" {
		t.Errorf("expected default text model to survive, got %s", cfg.Gateway.TextModel)
	}
	if cfg.Mission.Stagger != 100*time.Millisecond || cfg.Mission.MaxConcurrent != 2 {
		t.Errorf("unexpected mission config %+v", cfg.Mission)
	}
	if len(cfg.Router.Groups) != 1 || cfg.Router.Groups[0].Name != "security" {
		t.Errorf("expected configured router groups, got %+v", cfg.Router.Groups)
	}
	if len(cfg.Telegram.AllowFrom) != 2 {
		t.Errorf("expected 2 allow_from entries, got %d", len(cfg.Telegram.AllowFrom))
	}
	if cfg.Web.Port != 3000 || cfg.Web.Enabled {
		t.Errorf("unexpected web config %+v", cfg.Web)
	}
	if cfg.NATS.Enabled || cfg.NATS.Port != 4222 {
		t.Errorf("unexpected nats config %+v", cfg.NATS)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("gateway: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORKFORCE_CONFIG", cfgPath)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gateway.APIKey = "secret:lovable"
	cfg.Telegram.Token = "plain-token"

	err := cfg.ResolveSecrets(func(name string) (string, error) {
		if name != "lovable" {
			return "", errors.New("not found")
		}
		return "resolved-key", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.APIKey != "resolved-key" {
		t.Errorf("expected resolved key, got %s", cfg.Gateway.APIKey)
	}
	if cfg.Telegram.Token != "plain-token" {
		t.Errorf("plain values must be left alone, got %s", cfg.Telegram.Token)
	}
}

func TestResolveSecretsWithoutVault(t *testing.T) {
	cfg := defaults()
	cfg.Telegram.Token = "secret:bot"

	if err := cfg.ResolveSecrets(nil); err == nil {
		t.Fatal("expected error when no lookup is available")
	}
}

package registry

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func ptr[T any](v T) *T { return &v }

func TestInputTemperature(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a, err := reg.CreateCustomAgent(CustomAgentInput{Name: "NOVA", Role: "Growth Hacker"})
	if err != nil {
		t.Fatalf("create custom agent: %v", err)
	}
	if a.Config.Temperature != agent.DefaultTemperature || a.Config.MaxTokens != agent.DefaultMaxTokens {
		t.Errorf("omitted settings should use defaults, got %+v", a.Config)
	}

	a, err = reg.UpdateCustomAgent(a.ID, CustomAgentInput{Name: "NOVA", Role: "Growth Hacker", Temperature: ptr(0.0)})
	if err != nil {
		t.Fatalf("update custom agent: %v", err)
	}
	if a.Config.Temperature != 0 {
		t.Errorf("explicit zero temperature should be kept, got %v", a.Config.Temperature)
	}

	tpl, err := reg.CreateTemplate(TemplateInput{Name: "Scribe", Role: "Writer", Visibility: "public"})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if tpl.Temperature != agent.DefaultTemperature {
		t.Errorf("template without temperature should use the default, got %v", tpl.Temperature)
	}
	inst, err := reg.Instantiate(tpl.ID)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if inst.Config.Temperature != agent.DefaultTemperature {
		t.Errorf("instantiated agent temperature %v", inst.Config.Temperature)
	}
}

func TestRosterDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t)

	roster, err := reg.Roster()
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 8 {
		t.Fatalf("expected 8 agents, got %d", len(roster))
	}
	for _, a := range roster {
		if !a.Config.Enabled || a.Config.MaxTokens != agent.DefaultMaxTokens {
			t.Errorf("agent %s: unexpected default config %+v", a.ID, a.Config)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a, err := reg.UpdateSettings("5", agent.Config{CustomPrompt: " focus on B2B ", Temperature: 9, MaxTokens: 300, Enabled: false})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if a.Config.Temperature != 2 || a.Config.CustomPrompt != "focus on B2B" || a.Config.Enabled {
		t.Errorf("unexpected config %+v", a.Config)
	}

	if _, err := reg.UpdateSettings("nope", agent.DefaultConfig()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := reg.ResetSettings("5"); err != nil {
		t.Fatalf("reset settings: %v", err)
	}
	a, _ = reg.Get("5")
	if !a.Config.Enabled || a.Config.CustomPrompt != "" {
		t.Errorf("expected defaults after reset, got %+v", a.Config)
	}
}

func TestCustomAgentLifecycle(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a, err := reg.CreateCustomAgent(CustomAgentInput{Name: "NOVA", Role: "Growth Hacker", Icon: "Rocket", Temperature: ptr(0.4), MaxTokens: 900})
	if err != nil {
		t.Fatalf("create custom agent: %v", err)
	}
	if !strings.HasPrefix(a.ID, "custom-") || !a.IsCustom {
		t.Errorf("unexpected custom agent %+v", a)
	}
	if a.Icon != agent.IconBot {
		t.Errorf("expected icon fallback, got %s", a.Icon)
	}

	roster, _ := reg.Roster()
	if len(roster) != 9 || roster[8].ID != a.ID {
		t.Fatalf("expected custom agent appended to roster, got %d agents", len(roster))
	}

	updated, err := reg.UpdateCustomAgent(a.ID, CustomAgentInput{Name: "NOVA", Role: "Growth Lead", Icon: "zap", SystemPrompt: "Think big."})
	if err != nil {
		t.Fatalf("update custom agent: %v", err)
	}
	if updated.Role != "Growth Lead" || updated.Icon != agent.IconZap || updated.Config.CustomPrompt != "Think big." {
		t.Errorf("unexpected updated agent %+v", updated)
	}

	if _, err := reg.UpdateSettings(a.ID, agent.Config{Temperature: 1, MaxTokens: 100, Enabled: false}); err != nil {
		t.Fatalf("settings on custom agent: %v", err)
	}
	got, _ := reg.Get(a.ID)
	if got.Config.Enabled || got.Config.CustomPrompt != "Think big." {
		t.Errorf("settings should overlay custom config, got %+v", got.Config)
	}

	if err := reg.DeleteCustomAgent(a.ID); err != nil {
		t.Fatalf("delete custom agent: %v", err)
	}
	if _, err := reg.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := reg.DeleteCustomAgent(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCustomAgentValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.CreateCustomAgent(CustomAgentInput{Name: " ", Role: "x"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestTemplateInstantiate(t *testing.T) {
	reg, _ := newTestRegistry(t)

	tpl, err := reg.CreateTemplate(TemplateInput{
		Name: "Copy Chief", Role: "Editor", Icon: "FileText", SystemPrompt: "Edit hard.",
		Temperature: ptr(0.3), MaxTokens: 400, Visibility: "public",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	a, err := reg.Instantiate(tpl.ID)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if a.Name != "Copy Chief" || a.Config.CustomPrompt != "Edit hard." || a.Icon != agent.IconFileText {
		t.Errorf("unexpected instantiated agent %+v", a)
	}
	if _, err := reg.Instantiate(tpl.ID); err != nil {
		t.Fatalf("second instantiate: %v", err)
	}

	templates, _ := reg.ListTemplates("")
	if len(templates) != 1 || templates[0].UseCount != 2 {
		t.Errorf("expected use count 2, got %+v", templates)
	}

	// Later template edits do not touch existing agents
	if _, err := reg.UpdateTemplate(tpl.ID, TemplateInput{Name: "Renamed", Role: "Editor", Visibility: "public"}); err != nil {
		t.Fatalf("update template: %v", err)
	}
	got, _ := reg.Get(a.ID)
	if got.Name != "Copy Chief" {
		t.Errorf("instantiated agent should not follow template edits, got %q", got.Name)
	}

	if _, err := reg.Instantiate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateVisibility(t *testing.T) {
	reg, s := newTestRegistry(t)

	if _, err := reg.CreateTemplate(TemplateInput{Name: "a", Role: "b", Visibility: "team"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for team template without team, got %v", err)
	}
	if _, err := reg.CreateTemplate(TemplateInput{Name: "a", Role: "b", Visibility: "galaxy"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown visibility, got %v", err)
	}
	if _, err := reg.CreateTemplate(TemplateInput{Name: "a", Role: "b", Visibility: "team", TeamID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown team, got %v", err)
	}

	if err := s.SaveTeam(&store.Team{ID: "t1", Name: "Growth"}); err != nil {
		t.Fatal(err)
	}
	tpl, err := reg.CreateTemplate(TemplateInput{Name: "a", Role: "b", Visibility: "team", TeamID: "t1"})
	if err != nil {
		t.Fatalf("create team template: %v", err)
	}
	if tpl.Visibility != store.VisibilityTeam || tpl.TeamID != "t1" {
		t.Errorf("unexpected template %+v", tpl)
	}

	personal, err := reg.CreateTemplate(TemplateInput{Name: "p", Role: "b", TeamID: "t1"})
	if err != nil {
		t.Fatalf("create personal template: %v", err)
	}
	if personal.Visibility != store.VisibilityPersonal || personal.TeamID != "" {
		t.Errorf("expected personal template without team, got %+v", personal)
	}
}

package agent

import (
	"strings"
	"testing"

	"github.com/mtzanidakis/workforce/internal/output"
)

func TestStateLifecycle(t *testing.T) {
	s := State{}.Reset()
	if s.Status != StatusIdle || s.Progress != 0 {
		t.Fatalf("unexpected reset state: %+v", s)
	}

	s = s.Activate("launch", false)
	if s.Status != StatusActive || s.Progress != StartProgress || s.Processing != ProcessingThinking {
		t.Fatalf("unexpected active state: %+v", s)
	}

	s = s.Tick(45, 85)
	if s.Processing != ProcessingGenerating {
		t.Errorf("expected generating after crossing 50, got %s", s.Processing)
	}
	s = s.Tick(10, 85)
	if s.Progress != 65 {
		t.Errorf("expected 65, got %v", s.Progress)
	}

	s = s.FailWith("AI API error: 503", Failure{Kind: "unavailable", Friendly: "busy", Retryable: true})
	if s.Status != StatusError || s.Progress != 0 || s.ErrorMessage == "" {
		t.Fatalf("unexpected failed state: %+v", s)
	}
	if s.ErrorKind != "unavailable" || s.FriendlyError != "busy" || !s.Retryable {
		t.Errorf("failure details not recorded: %+v", s)
	}
	if got := s.Tick(10, 85); got.Progress != 0 {
		t.Errorf("tick must not move a failed agent, got %v", got.Progress)
	}

	s = s.Activate("launch", true)
	if s.RetryCount != 1 || s.Processing != ProcessingRetrying || s.ErrorMessage != "" {
		t.Fatalf("unexpected retry state: %+v", s)
	}
	if s.ErrorKind != "" || s.FriendlyError != "" || s.Retryable {
		t.Errorf("retry should clear failure details: %+v", s)
	}

	s = s.Complete()
	if s.Status != StatusCompleted || s.Progress != 100 || s.RetryCount != 0 {
		t.Fatalf("unexpected completed state: %+v", s)
	}
}

func TestTickStopsAtCeiling(t *testing.T) {
	s := State{}.Activate("x", false)
	for range 100 {
		s = s.Tick(10, 85)
	}
	if s.Progress < 85 || s.Progress > MaxActiveProgress {
		t.Errorf("expected progress in [85, %d], got %v", MaxActiveProgress, s.Progress)
	}
}

func TestConfigClamp(t *testing.T) {
	tests := []struct {
		in   Config
		temp float64
		max  int
	}{
		{Config{Temperature: 3, MaxTokens: 5000}, 2, 2000},
		{Config{Temperature: -1, MaxTokens: 10}, 0, 50},
		{Config{Temperature: 0.5}, 0.5, DefaultMaxTokens},
	}
	for _, tt := range tests {
		got := tt.in.Clamp()
		if got.Temperature != tt.temp || got.MaxTokens != tt.max {
			t.Errorf("Clamp(%+v) = %+v", tt.in, got)
		}
	}
}

func TestBuiltinRoster(t *testing.T) {
	agents := Builtin()
	if len(agents) != 8 {
		t.Fatalf("expected 8 built-in agents, got %d", len(agents))
	}
	if agents[6].Name != "PIXL" || agents[6].Affinity != output.TypeImage {
		t.Errorf("unexpected design agent: %+v", agents[6])
	}

	agents[0].Name = "changed"
	if Builtin()[0].Name != "ARIA" {
		t.Error("Builtin must return a fresh copy")
	}
}

func TestAffinityFor(t *testing.T) {
	if got := AffinityFor("4"); got != output.TypeTable {
		t.Errorf("expected table, got %s", got)
	}
	if got := AffinityFor(CustomID("abc")); got != output.TypeText {
		t.Errorf("expected text for custom agent, got %s", got)
	}
}

func TestParseIcon(t *testing.T) {
	tests := map[string]Icon{
		"BarChart":  IconBarChart,
		"file-text": IconFileText,
		"Shield":    IconShield,
		"rocket":    IconBot,
		"":          IconBot,
	}
	for in, want := range tests {
		if got := ParseIcon(in); got != want {
			t.Errorf("ParseIcon(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	if got := SystemPrompt("1", "ARIA", "Strategic Planner", "Be brief.", false); got != "Be brief." {
		t.Errorf("custom prompt should win, got %q", got)
	}

	got := SystemPrompt("custom-1", "NOVA", "Growth Hacker", "", true)
	want := "You are NOVA, a Growth Hacker. Complete the given mission professionally. Respond with detailed, actionable insights."
	if got != want {
		t.Errorf("unexpected custom-agent prompt %q", got)
	}

	if got := SystemPrompt("2", "CODA", "Code Architect", "", false); !strings.Contains(got, `"language": "typescript"`) {
		t.Errorf("expected built-in code prompt, got %q", got)
	}

	got = SystemPrompt("99", "ECHO", "Assistant", "", false)
	if got != "You are ECHO, a Assistant. Complete the given mission professionally." {
		t.Errorf("unexpected fallback prompt %q", got)
	}
}

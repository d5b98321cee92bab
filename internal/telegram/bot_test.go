package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mtzanidakis/workforce/internal/router"
	"github.com/mymmrac/telego"
)

func TestChunkMessage(t *testing.T) {
	// Short message
	chunks := chunkMessage("hello", 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}

	// Exact limit
	chunks = chunkMessage(strings.Repeat("a", 4096), 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk for exact limit, got %d", len(chunks))
	}

	// Over limit
	chunks = chunkMessage(strings.Repeat("a", 8192), 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}

	// Split at newline
	msg := []byte(strings.Repeat("a", 5000))
	msg[3000] = '\n'
	chunks = chunkMessage(string(msg), 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks with newline split, got %d", len(chunks))
	}
	if len(chunks[0]) != 3001 { // Up to and including the newline
		t.Errorf("expected first chunk length 3001, got %d", len(chunks[0]))
	}

	// Multi-byte characters stay whole
	chunks = chunkMessage(strings.Repeat("é", 3000), 4096)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}

	// Blank line wins over a later newline
	msg = []byte(strings.Repeat("b", 5000))
	msg[2500], msg[2501] = '\n', '\n'
	msg[3500] = '\n'
	chunks = chunkMessage(string(msg), 4096)
	if len(chunks[0]) != 2502 {
		t.Errorf("expected cut after the blank line at 2502, got %d", len(chunks[0]))
	}

	if chunks = chunkMessage("", 4096); len(chunks) != 1 {
		t.Errorf("expected 1 chunk for empty text, got %d", len(chunks))
	}
}

func TestToTelegramMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**bold**", "*bold*"},
		{"hello **world**!", "hello *world*!"},
		{"**a** and **b**", "*a* and *b*"},
		{"no bold here", "no bold here"},
		{"*already single*", "*already single*"},
		{"## Launch plan\nbody", "*Launch plan*\nbody"},
	}
	for _, tt := range tests {
		got := toTelegramMarkdown(tt.in)
		if got != tt.want {
			t.Errorf("toTelegramMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/status", "/status"},
		{"/Retry@workforce_bot now", "/retry"},
		{"launch a campaign", ""},
	}
	for _, tt := range tests {
		if got := command(tt.in); got != tt.want {
			t.Errorf("command(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	m := mission.Mission{
		Text:   "Launch a campaign",
		Status: mission.StatusCompleted,
		Agents: []string{"1", "5", "7"},
		Results: []mission.Result{
			{AgentID: "1", AgentName: "ARIA", Result: "Plan ready"},
			{AgentID: "5", AgentName: "VEGA", Result: strings.Repeat("x", 1000)},
		},
	}
	got := formatSummary(m, map[string]string{"PIXL": "The AI service is temporarily busy. Please retry."})

	for _, want := range []string{
		"**Mission completed**: Launch a campaign",
		"2 of 3 agents delivered.",
		"✅ **ARIA**\nPlan ready",
		"❌ **PIXL**: The AI service is temporarily busy. Please retry.",
		"/retry",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, strings.Repeat("x", maxResultPreview+1)) {
		t.Error("expected long results to be truncated")
	}
}

type fakeMissions struct {
	mu       sync.Mutex
	busy     bool
	started  []mission.Request
	listener func(mission.Mission)
	snapshot mission.Snapshot
}

func (f *fakeMissions) Busy() bool { return f.busy }

func (f *fakeMissions) Start(_ context.Context, req mission.Request) (*mission.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, req)
	return nil, errors.New("not dispatched in tests")
}

func (f *fakeMissions) Snapshot() mission.Snapshot { return f.snapshot }

func (f *fakeMissions) RetryFailed() ([]string, <-chan struct{}) {
	done := make(chan struct{})
	close(done)
	return []string{"2"}, done
}

func (f *fakeMissions) OnComplete(fn func(mission.Mission)) { f.listener = fn }

type staticRoster []agent.Agent

func (r staticRoster) Roster() ([]agent.Agent, error) { return r, nil }

// fakeTelegramAPI answers every Bot API call with success and records sent texts.
func fakeTelegramAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			mu.Lock()
			sent = append(sent, string(body))
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &sent
}

func newTestBot(t *testing.T, missions *fakeMissions, allow []int64) (*Bot, *[]string) {
	t.Helper()
	srv, sent := fakeTelegramAPI(t)
	b, err := NewBot(config.TelegramConfig{Token: "123456789:" + strings.Repeat("A", 35), AllowFrom: allow}, missions,
		staticRoster(agent.Builtin()), router.New(config.RouterConfig{Groups: config.DefaultRouterGroups()}))
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	bot, err := telego.NewBot(b.cfg.Token, telego.WithAPIServer(srv.URL))
	if err != nil {
		t.Fatalf("new telego bot: %v", err)
	}
	b.bot = bot
	return b, sent
}

func TestDispatchRoutesMission(t *testing.T) {
	missions := &fakeMissions{}
	b, _ := newTestBot(t, missions, nil)

	reply := b.dispatch(context.Background(), 42, "Research the data market")
	if !strings.Contains(reply, "could not start") {
		t.Errorf("expected start failure reply, got %q", reply)
	}
	if len(missions.started) != 1 {
		t.Fatalf("expected one mission start, got %d", len(missions.started))
	}
	req := missions.started[0]
	// "market" matches the marketing group first.
	if got := strings.Join(req.Selected, ","); got != "1,3,5,7" {
		t.Errorf("expected marketing agents, got %s", got)
	}
}

func TestDispatchCommands(t *testing.T) {
	missions := &fakeMissions{busy: true}
	b, _ := newTestBot(t, missions, nil)

	if reply := b.dispatch(context.Background(), 42, "/help"); reply != helpText {
		t.Errorf("unexpected help reply %q", reply)
	}
	if reply := b.dispatch(context.Background(), 42, "/status"); reply != "No mission yet." {
		t.Errorf("unexpected status reply %q", reply)
	}
	if reply := b.dispatch(context.Background(), 42, "/retry"); reply != "Retrying 1 failed agent(s)." {
		t.Errorf("unexpected retry reply %q", reply)
	}
	if reply := b.dispatch(context.Background(), 42, "write a blog"); !strings.Contains(reply, "already running") {
		t.Errorf("expected busy reply, got %q", reply)
	}
	if len(missions.started) != 0 {
		t.Error("busy orchestrator must not start a mission")
	}
}

func TestAllowList(t *testing.T) {
	b, _ := newTestBot(t, &fakeMissions{}, []int64{7})

	if !b.allowed(7) || b.allowed(8) {
		t.Error("unexpected allow list result")
	}
	b.UpdateAccess(config.TelegramConfig{})
	if !b.allowed(8) {
		t.Error("empty allow list should allow everyone")
	}
}

func TestNotifyCompletionUsesNotifyChat(t *testing.T) {
	missions := &fakeMissions{}
	b, sent := newTestBot(t, missions, nil)
	b.UpdateAccess(config.TelegramConfig{NotifyChatID: 99})

	if missions.listener == nil {
		t.Fatal("expected bot to register a completion listener")
	}
	missions.listener(mission.Mission{ID: "m1", Text: "scheduled report", Status: mission.StatusFailed, Agents: []string{"1"}})

	if len(*sent) != 1 || !strings.Contains((*sent)[0], "scheduled report") || !strings.Contains((*sent)[0], `"chat_id":99`) {
		t.Errorf("expected summary sent to chat 99, got %v", *sent)
	}
}

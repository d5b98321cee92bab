// Package telegram accepts missions from chat and reports their results.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

const maxResultPreview = 400

// Missions is the part of the orchestrator the bot drives.
type Missions interface {
	Busy() bool
	Start(ctx context.Context, req mission.Request) (*mission.Run, error)
	Snapshot() mission.Snapshot
	RetryFailed() ([]string, <-chan struct{})
	OnComplete(fn func(mission.Mission))
}

type Roster interface {
	Roster() ([]agent.Agent, error)
}

type Selector interface {
	Select(missionText string, available []agent.Agent) []agent.Agent
}

type Bot struct {
	bot      *telego.Bot
	handler  *th.BotHandler
	missions Missions
	roster   Roster
	router   Selector
	cancel   context.CancelFunc

	mu      sync.Mutex
	cfg     config.TelegramConfig
	origins map[string]int64 // missionID → chat that asked for it
}

func NewBot(cfg config.TelegramConfig, missions Missions, roster Roster, router Selector) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := &Bot{
		bot:      bot,
		missions: missions,
		roster:   roster,
		router:   router,
		cfg:      cfg,
		origins:  make(map[string]int64),
	}

	missions.OnComplete(b.notifyCompletion)
	return b, nil
}

// UpdateAccess swaps the allow list and notification chat.
func (b *Bot) UpdateAccess(cfg config.TelegramConfig) {
	b.mu.Lock()
	b.cfg.AllowFrom = cfg.AllowFrom
	b.cfg.NotifyChatID = cfg.NotifyChatID
	b.mu.Unlock()
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("create handler: %w", err)
	}
	b.handler = handler

	handler.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.handleMessage(ctx, message)
		return nil
	})

	go handler.Start()

	<-ctx.Done()
	_ = handler.Stop()
	return nil
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.handler != nil {
		_ = b.handler.Stop()
	}
}

func (b *Bot) allowed(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cfg.AllowFrom) == 0 || slices.Contains(b.cfg.AllowFrom, userID)
}

func (b *Bot) handleMessage(ctx context.Context, msg telego.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	if !b.allowed(msg.From.ID) {
		slog.Warn("unauthorized telegram user", "user_id", msg.From.ID, "chat_id", chatID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}
	if text == "" {
		return
	}

	reply := b.dispatch(ctx, chatID, text)
	if reply == "" {
		return
	}
	if err := b.SendMessage(ctx, chatID, reply); err != nil {
		slog.Error("failed to send telegram message", "chat", chatID, "error", err)
	}
}

// dispatch handles one incoming text and returns the reply.
func (b *Bot) dispatch(ctx context.Context, chatID int64, text string) string {
	switch command(text) {
	case "/start", "/help":
		return helpText
	case "/status":
		return formatStatus(b.missions.Snapshot())
	case "/retry":
		ids, _ := b.missions.RetryFailed()
		if len(ids) == 0 {
			return "No failed agents to retry."
		}
		return fmt.Sprintf("Retrying %d failed agent(s).", len(ids))
	}

	if b.missions.Busy() {
		return "A mission is already running. Send /status to follow it."
	}

	roster, err := b.roster.Roster()
	if err != nil {
		slog.Error("load roster failed", "error", err)
		return "Sorry, I could not load the agent roster."
	}
	selected := b.router.Select(text, roster)
	if len(selected) == 0 {
		return "No agents are enabled. Enable at least one agent on the dashboard."
	}

	ids := make([]string, 0, len(selected))
	names := make([]string, 0, len(selected))
	for _, a := range selected {
		ids = append(ids, a.ID)
		names = append(names, a.Name)
	}

	_ = b.sendChatAction(ctx, chatID, telego.ChatActionTyping)

	b.mu.Lock()
	run, err := b.missions.Start(ctx, mission.Request{Mission: text, Roster: roster, Selected: ids})
	if err == nil {
		b.origins[run.ID()] = chatID
	}
	b.mu.Unlock()
	if err != nil {
		slog.Error("start mission from telegram failed", "chat", chatID, "error", err)
		return "Sorry, I could not start that mission."
	}

	slog.Info("mission received from telegram", "chat", chatID, "mission", run.ID(), "agents", len(ids))
	return fmt.Sprintf("Mission received. Dispatching to %s.", strings.Join(names, ", "))
}

func (b *Bot) notifyCompletion(m mission.Mission) {
	b.mu.Lock()
	chatID, ok := b.origins[m.ID]
	delete(b.origins, m.ID)
	if !ok {
		chatID = b.cfg.NotifyChatID
	}
	b.mu.Unlock()
	if chatID == 0 {
		return
	}

	failures := map[string]string{}
	if s := b.missions.Snapshot(); s.Mission != nil && s.Mission.ID == m.ID {
		for _, a := range s.Roster {
			if a.State.Status == agent.StatusError {
				failures[a.Name] = a.State.FriendlyError
				if failures[a.Name] == "" {
					failures[a.Name] = mission.FriendlyError(a.State.ErrorMessage)
				}
			}
		}
	}

	if err := b.SendMessage(context.Background(), chatID, formatSummary(m, failures)); err != nil {
		slog.Error("failed to send mission summary", "chat", chatID, "mission", m.ID, "error", err)
	}
}

// SendMessage sends text as Markdown and falls back to plain text when
// Telegram rejects the formatting.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range chunkMessage(text, maxMessageLen) {
		msg := tu.Message(tu.ID(chatID), toTelegramMarkdown(chunk)).WithParseMode(telego.ModeMarkdown)
		if _, err := b.bot.SendMessage(ctx, msg); err == nil {
			continue
		}
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), chunk)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}

const helpText = `Send me a mission and I will dispatch it to the matching agents.

/status shows the current mission
/retry retries failed agents`

// command returns the lower-cased command of text, without any @botname
// suffix, or "" when text is not a command.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(cmd)
}

func formatStatus(s mission.Snapshot) string {
	if s.Mission == nil {
		return "No mission yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Mission** (%s): %s\n\n", s.Mission.Status, s.Mission.Text)
	for _, a := range s.Roster {
		if !slices.Contains(s.Mission.Agents, a.ID) {
			continue
		}
		fmt.Fprintf(&sb, "%s %s: %s %.0f%%\n", statusIcon(a.State.Status), a.Name, a.State.Status, a.State.Progress)
	}
	fmt.Fprintf(&sb, "\n%d completed, %d active", s.Completed, s.Active)
	return sb.String()
}

func formatSummary(m mission.Mission, failures map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Mission %s**: %s\n", m.Status, m.Text)
	fmt.Fprintf(&sb, "%d of %d agents delivered.\n", len(m.Results), len(m.Agents))

	for _, r := range m.Results {
		fmt.Fprintf(&sb, "\n✅ **%s**\n%s\n", r.AgentName, preview(r.Result))
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "\n❌ **%s**: %s\n", name, failures[name])
	}
	if len(failures) > 0 {
		sb.WriteString("\nSend /retry to retry failed agents.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func statusIcon(s agent.Status) string {
	switch s {
	case agent.StatusCompleted:
		return "✅"
	case agent.StatusError:
		return "❌"
	case agent.StatusActive:
		return "⏳"
	default:
		return "•"
	}
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxResultPreview {
		return s
	}
	return string(r[:maxResultPreview]) + "…"
}

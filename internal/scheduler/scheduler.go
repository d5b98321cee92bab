// Package scheduler dispatches scheduled missions when they come due.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mtzanidakis/workforce/internal/natsbus"
	"github.com/mtzanidakis/workforce/internal/schedule"
	"github.com/mtzanidakis/workforce/internal/store"
)

const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"

	RunSkipped    = "skipped"
	RunError      = "error"
	RunSuperseded = "superseded"
)

// Dispatcher starts missions. *mission.Orchestrator satisfies it.
type Dispatcher interface {
	Busy() bool
	Start(ctx context.Context, req mission.Request) (*mission.Run, error)
}

type Roster interface {
	Roster() ([]agent.Agent, error)
}

type Selector interface {
	Select(missionText string, available []agent.Agent) []agent.Agent
}

type Scheduler struct {
	store    *store.Store
	dispatch Dispatcher
	roster   Roster
	router   Selector
	client   *natsbus.Client

	mu           sync.Mutex
	pollInterval time.Duration
	reloadCh     chan struct{}
	now          func() time.Time
}

// New creates a scheduler. client may be nil, in which case no events are
// published.
func New(s *store.Store, d Dispatcher, roster Roster, router Selector, client *natsbus.Client, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Scheduler{
		store:        s,
		dispatch:     d,
		roster:       roster,
		router:       router,
		client:       client,
		pollInterval: pollInterval,
		reloadCh:     make(chan struct{}, 1),
		now:          time.Now,
	}
}

// UpdateConfig changes the poll interval and resets the running ticker.
func (s *Scheduler) UpdateConfig(pollInterval time.Duration) {
	if pollInterval <= 0 {
		return
	}
	s.mu.Lock()
	s.pollInterval = pollInterval
	s.mu.Unlock()
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollInterval
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.interval())

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-s.reloadCh:
			ticker.Reset(s.interval())
			slog.Info("scheduler config reloaded", "poll_interval", s.interval())
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs every due schedule in order. Missions run one at a time, so a
// schedule that comes due while another mission is running is skipped.
func (s *Scheduler) Poll(ctx context.Context) {
	due, err := s.store.GetDueSchedules(s.now())
	if err != nil {
		slog.Error("failed to get due schedules", "error", err)
		return
	}

	for _, sm := range due {
		if ctx.Err() != nil {
			return
		}
		s.execute(ctx, sm)
	}
}

func (s *Scheduler) execute(ctx context.Context, sm store.ScheduledMission) {
	if s.dispatch.Busy() {
		slog.Info("skipping scheduled mission, another mission is running", "id", sm.ID, "name", sm.Name)
		s.record(sm, RunSkipped, "another mission is running")
		return
	}

	slog.Info("executing scheduled mission", "id", sm.ID, "name", sm.Name)

	selected, roster, err := s.selectAgents(sm)
	if err != nil {
		slog.Error("scheduled mission roster failed", "id", sm.ID, "error", err)
		s.record(sm, RunError, err.Error())
		return
	}

	run, err := s.dispatch.Start(ctx, mission.Request{
		Mission:  sm.MissionText,
		TeamID:   sm.TeamID,
		Roster:   roster,
		Selected: selected,
	})
	if err != nil {
		slog.Error("scheduled mission failed to start", "id", sm.ID, "error", err)
		s.record(sm, RunError, err.Error())
		return
	}

	m, err := run.Wait(ctx)
	switch {
	case errors.Is(err, mission.ErrSuperseded):
		s.record(sm, RunSuperseded, "")
	case err != nil:
		s.record(sm, RunError, err.Error())
	default:
		s.record(sm, string(m.Status), "")
	}
}

// selectAgents uses the schedule's agent list when set and the router
// otherwise. Listed agents that are gone or disabled are dropped.
func (s *Scheduler) selectAgents(sm store.ScheduledMission) ([]string, []agent.Agent, error) {
	roster, err := s.roster.Roster()
	if err != nil {
		return nil, nil, err
	}

	var selected []string
	if len(sm.AgentIDs) == 0 {
		for _, a := range s.router.Select(sm.MissionText, roster) {
			selected = append(selected, a.ID)
		}
		return selected, roster, nil
	}
	for _, a := range roster {
		if a.Config.Enabled && slices.Contains(sm.AgentIDs, a.ID) {
			selected = append(selected, a.ID)
		}
	}
	return selected, roster, nil
}

// record stores the outcome and the next run. A skipped one-off keeps its
// run time so the next poll tries again.
func (s *Scheduler) record(sm store.ScheduledMission, status, lastError string) {
	next := schedule.NextRun(sm.Schedule, s.now())
	if status == RunSkipped && schedule.IsOnce(sm.Schedule) {
		next = sm.NextRunAt
	}

	if err := s.store.UpdateScheduleRun(sm.ID, status, lastError, next); err != nil {
		slog.Error("failed to update schedule run", "id", sm.ID, "error", err)
	}
	if next == nil {
		slog.Info("no next run, marking scheduled mission as completed", "id", sm.ID, "name", sm.Name)
		if err := s.store.UpdateScheduleStatus(sm.ID, StatusCompleted); err != nil {
			slog.Error("failed to complete schedule", "id", sm.ID, "error", err)
		}
	}

	s.publishExecuted(sm, status)
}

func (s *Scheduler) publishExecuted(sm store.ScheduledMission, status string) {
	if s.client == nil {
		return
	}
	event := map[string]any{
		"type":      "schedule_executed",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"id":     sm.ID,
			"name":   sm.Name,
			"status": status,
		},
	}
	if err := s.client.PublishJSON(natsbus.TopicEventsScheduleExecuted, event); err != nil {
		slog.Warn("publish schedule event failed", "id", sm.ID, "error", err)
	}
}

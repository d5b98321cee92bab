package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/agenttask"
	"github.com/mtzanidakis/workforce/internal/taskclient"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	ErrEmptyMission  = errors.New("mission text is empty")
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrAgentDisabled = errors.New("agent is disabled")
	ErrNotRetryable  = errors.New("agent is not in error state")
	ErrNoMission     = errors.New("no mission has been started")
	ErrSuperseded    = errors.New("mission superseded by a newer one")
	ErrClosed        = errors.New("orchestrator closed")
)

// Orchestrator owns the live roster and the results of the current mission.
// Starting a new mission supersedes the previous one: its in-flight work is
// cancelled and any late responses are dropped.
type Orchestrator struct {
	client taskclient.Client

	mu         sync.Mutex
	sink       EventSink
	policy     Policy
	gen        uint64
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	mission    *Mission
	roster     []agent.Agent
	index      map[string]int
	results    []Result
	activities []Activity
	completed  int // successful tasks since startup, across missions
	listeners  []func(Mission)

	wg sync.WaitGroup
}

func New(client taskclient.Client, policy Policy, sink EventSink) *Orchestrator {
	if sink == nil {
		sink = discardSink{}
	}
	return &Orchestrator{
		client: client,
		sink:   sink,
		policy: policy,
		index:  make(map[string]int),
	}
}

// SetSink replaces the event sink. A nil sink discards events.
func (o *Orchestrator) SetSink(sink EventSink) {
	if sink == nil {
		sink = discardSink{}
	}
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// UpdatePolicy applies to missions started afterwards. Progress ticks pick up
// the new values immediately.
func (o *Orchestrator) UpdatePolicy(p Policy) {
	o.mu.Lock()
	o.policy = p
	o.mu.Unlock()
}

// OnComplete registers a listener called once per finished mission.
func (o *Orchestrator) OnComplete(fn func(Mission)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// Run is a handle on one started mission.
type Run struct {
	id      string
	gen     uint64
	done    chan struct{}
	mission *Mission
	err     error
}

func (r *Run) ID() string { return r.id }

// Done is closed once every selected agent has settled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes. A superseded run returns ErrSuperseded.
func (r *Run) Wait(ctx context.Context) (*Mission, error) {
	select {
	case <-r.done:
		return r.mission, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start resets the roster and dispatches the mission to the selected agents.
// The run is detached from ctx cancellation.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Run, error) {
	text := strings.TrimSpace(req.Mission)
	if text == "" {
		return nil, ErrEmptyMission
	}

	roster := slices.Clone(req.Roster)
	index := make(map[string]int, len(roster))
	for i := range roster {
		roster[i].State = roster[i].State.Reset()
		index[roster[i].ID] = i
	}

	selected := []string{}
	for _, id := range req.Selected {
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
		}
		if !roster[i].Config.Enabled {
			return nil, fmt.Errorf("%w: %s", ErrAgentDisabled, id)
		}
		if !slices.Contains(selected, id) {
			selected = append(selected, id)
		}
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.cancel != nil {
		if o.mission.Status == StatusRunning {
			slog.Info("cancelling previous mission", "id", o.mission.ID)
		}
		o.cancel()
	}

	o.gen++
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.ctx, o.cancel = runCtx, cancel
	o.roster, o.index = roster, index
	o.results = nil
	o.mission = &Mission{
		ID:        uuid.New().String(),
		Text:      text,
		TeamID:    req.TeamID,
		Status:    StatusRunning,
		Agents:    selected,
		CreatedAt: time.Now().UTC(),
	}
	run := &Run{id: o.mission.ID, gen: o.gen, done: make(chan struct{})}
	policy := o.policy

	m := o.copyMission()
	o.emit(Event{Type: EventMissionStarted, Mission: &m})
	o.addActivity(systemActor, fmt.Sprintf("New mission received: %q", text), ActivityInfo)

	o.wg.Add(1)
	o.mu.Unlock()

	slog.Info("starting mission", "id", run.id, "agents", len(selected), "team", req.TeamID)
	go o.execute(runCtx, run, policy, selected)
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, policy Policy, ids []string) {
	defer o.wg.Done()

	var g errgroup.Group
	var sem *semaphore.Weighted
	if policy.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(policy.MaxConcurrent))
	}

	start := time.Now()
dispatch:
	for i, id := range ids {
		if wait := time.Until(start.Add(policy.Stagger(i))); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				break dispatch
			case <-t.C:
			}
		}
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
		}

		req, ok := o.activate(run.gen, id, false)
		if !ok {
			if sem != nil {
				sem.Release(1)
			}
			break
		}
		g.Go(func() error {
			if sem != nil {
				defer sem.Release(1)
			}
			o.invoke(ctx, run.gen, id, req)
			return nil
		})
	}

	_ = g.Wait()
	o.finish(run)
}

func (o *Orchestrator) finish(run *Run) {
	o.mu.Lock()
	if o.gen != run.gen {
		o.mu.Unlock()
		run.err = ErrSuperseded
		close(run.done)
		slog.Info("mission superseded", "id", run.id)
		return
	}

	now := time.Now().UTC()
	o.mission.CompletedAt = &now
	o.mission.Status = StatusCompleted
	if len(o.mission.Agents) > 0 && len(o.results) == 0 {
		o.mission.Status = StatusFailed
	}
	m := o.copyMission()
	o.emit(Event{Type: EventMissionCompleted, Mission: &m})
	listeners := slices.Clone(o.listeners)
	o.mu.Unlock()

	slog.Info("mission finished", "id", run.id, "status", m.Status, "results", len(m.Results), "agents", len(m.Agents))
	run.mission = &m
	close(run.done)

	for _, fn := range listeners {
		fn(m)
	}
}

// activate moves the agent to active and returns the task request built from
// its effective config. It reports false when the generation is stale.
func (o *Orchestrator) activate(gen uint64, id string, retry bool) (agenttask.Request, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return agenttask.Request{}, false
	}
	return o.activateLocked(id, retry), true
}

func (o *Orchestrator) activateLocked(id string, retry bool) agenttask.Request {
	a := &o.roster[o.index[id]]
	a.State = a.State.Activate(o.mission.Text, retry)
	o.emitAgent(*a)

	action := "started working on mission"
	if retry {
		action = fmt.Sprintf("retrying task (attempt %d)", a.State.RetryCount)
	}
	o.addActivity(a.Name, action, ActivityProcessing)
	return taskRequest(*a, o.mission.Text)
}

func (o *Orchestrator) invoke(ctx context.Context, gen uint64, id string, req agenttask.Request) {
	tickCtx, stopTicking := context.WithCancel(ctx)
	ticking := make(chan struct{})
	go func() {
		defer close(ticking)
		o.tick(tickCtx, gen, id)
	}()

	res, err := o.client.Invoke(ctx, req)
	stopTicking()
	<-ticking

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		slog.Debug("dropping stale agent response", "agent", id)
		return
	}

	a := &o.roster[o.index[id]]
	if err != nil {
		te := taskclient.AsError(err)
		a.State = a.State.FailWith(err.Error(), agent.Failure{
			Kind:      string(te.Kind),
			Friendly:  FriendlyError(err.Error()),
			Retryable: te.Retryable(),
		})
		o.emitAgent(*a)
		o.addActivity(a.Name, "encountered an error", ActivityError)
		slog.Warn("agent task failed", "mission", o.mission.ID, "agent", id, "kind", te.Kind, "error", err)
		return
	}

	a.State = a.State.Complete()
	r := Result{AgentID: id, AgentName: a.Name, Result: res.Text, Output: res.Output}
	o.results = append(o.results, r)
	o.completed++
	if o.mission.Status == StatusFailed {
		o.mission.Status = StatusCompleted
	}
	o.emitAgent(*a)
	o.emit(Event{Type: EventAgentResult, Result: &r})
	o.addActivity(a.Name, "completed task successfully", ActivitySuccess)
}

func (o *Orchestrator) tick(ctx context.Context, gen uint64, id string) {
	o.mu.Lock()
	interval := o.policy.TickInterval
	o.mu.Unlock()
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		a := &o.roster[o.index[id]]
		before := a.State
		a.State = a.State.Tick(o.policy.Increment(), o.policy.Ceiling)
		if a.State != before {
			o.emitAgent(*a)
		}
		o.mu.Unlock()
	}
}

// Retry reruns one failed agent with the current mission text. It does not
// reopen the mission; the returned channel closes when the attempt settles.
func (o *Orchestrator) Retry(agentID string) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.retryLocked(agentID)
}

func (o *Orchestrator) retryLocked(agentID string) (<-chan struct{}, error) {
	if o.closed {
		return nil, ErrClosed
	}
	if o.mission == nil {
		return nil, ErrNoMission
	}
	i, ok := o.index[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if o.roster[i].State.Status != agent.StatusError {
		return nil, fmt.Errorf("%w: %s", ErrNotRetryable, agentID)
	}

	gen, ctx := o.gen, o.ctx
	req := o.activateLocked(agentID, true)
	done := make(chan struct{})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(done)
		o.invoke(ctx, gen, agentID, req)
	}()
	return done, nil
}

// RetryFailed retries every agent in error state and returns their ids and
// a channel closed when all of those attempts settle.
func (o *Orchestrator) RetryFailed() ([]string, <-chan struct{}) {
	o.mu.Lock()
	var ids []string
	var waits []<-chan struct{}
	for _, a := range o.roster {
		if a.State.Status != agent.StatusError {
			continue
		}
		done, err := o.retryLocked(a.ID)
		if err != nil {
			continue
		}
		ids = append(ids, a.ID)
		waits = append(waits, done)
	}
	o.mu.Unlock()

	all := make(chan struct{})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(all)
		for _, w := range waits {
			<-w
		}
	}()
	return ids, all
}

// Busy reports whether a mission is running or an agent is still active.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mission != nil && o.mission.Status == StatusRunning {
		return true
	}
	return o.activeLocked() > 0
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		Roster:     slices.Clone(o.roster),
		Results:    slices.Clone(o.results),
		Activities: slices.Clone(o.activities),
		Completed:  o.completed,
		Active:     o.activeLocked(),
	}
	if s.Roster == nil {
		s.Roster = []agent.Agent{}
	}
	if s.Results == nil {
		s.Results = []Result{}
	}
	if s.Activities == nil {
		s.Activities = []Activity{}
	}
	if o.mission != nil {
		m := o.copyMission()
		s.Mission = &m
	}
	return s
}

// Close cancels in-flight work and waits for every goroutine to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) activeLocked() int {
	n := 0
	for _, a := range o.roster {
		if a.State.Status == agent.StatusActive {
			n++
		}
	}
	return n
}

func (o *Orchestrator) copyMission() Mission {
	m := *o.mission
	m.Agents = slices.Clone(o.mission.Agents)
	m.Results = slices.Clone(o.results)
	if m.Results == nil {
		m.Results = []Result{}
	}
	return m
}

func (o *Orchestrator) addActivity(actor, action string, typ ActivityType) {
	a := Activity{
		ID:        uuid.New().String(),
		Agent:     actor,
		Action:    action,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	o.activities = append([]Activity{a}, o.activities...)
	if limit := o.policy.ActivityLimit; limit > 0 && len(o.activities) > limit {
		o.activities = o.activities[:limit]
	}
	o.emit(Event{Type: EventActivity, Activity: &a})
}

func (o *Orchestrator) emitAgent(a agent.Agent) {
	o.emit(Event{Type: EventAgentProgress, Agent: &a})
}

func (o *Orchestrator) emit(ev Event) {
	ev.MissionID = o.mission.ID
	ev.TeamID = o.mission.TeamID
	ev.Time = time.Now().UTC()
	o.sink.Publish(ev)
}

func taskRequest(a agent.Agent, mission string) agenttask.Request {
	cfg := a.Config.Clamp()
	temperature, maxTokens := cfg.Temperature, cfg.MaxTokens
	return agenttask.Request{
		AgentID:      a.ID,
		AgentName:    a.Name,
		AgentRole:    a.Role,
		Mission:      mission,
		CustomPrompt: cfg.CustomPrompt,
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
		IsCustom:     a.IsCustom,
	}
}

// Package mission fans a mission out to the selected agents and tracks their
// progress, results and retries.
package mission

import (
	"time"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/output"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request starts a mission over Roster. Selected holds agent ids; the
// caller usually takes them from the router.
type Request struct {
	Mission  string
	TeamID   string
	Roster   []agent.Agent
	Selected []string
}

// Result is the output of one agent that completed.
type Result struct {
	AgentID   string              `json:"agentId"`
	AgentName string              `json:"agentName"`
	Result    string              `json:"result"`
	Output    *output.AgentOutput `json:"output,omitempty"`
}

type Mission struct {
	ID          string     `json:"id"`
	Text        string     `json:"missionText"`
	TeamID      string     `json:"teamId,omitempty"`
	Status      Status     `json:"status"`
	Agents      []string   `json:"agents"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Results     []Result   `json:"results"`
}

type ActivityType string

const (
	ActivityInfo       ActivityType = "info"
	ActivitySuccess    ActivityType = "success"
	ActivityError      ActivityType = "error"
	ActivityProcessing ActivityType = "processing"
)

const systemActor = "SYSTEM"

type Activity struct {
	ID        string       `json:"id"`
	Agent     string       `json:"agent"`
	Action    string       `json:"action"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
}

// Snapshot is a consistent copy of the orchestrator state.
type Snapshot struct {
	Mission    *Mission      `json:"mission,omitempty"`
	Roster     []agent.Agent `json:"agents"`
	Results    []Result      `json:"results"`
	Activities []Activity    `json:"activities"`
	Completed  int           `json:"completedTasks"`
	Active     int           `json:"activeAgents"`
}

type EventType string

const (
	EventMissionStarted   EventType = "mission_started"
	EventAgentProgress    EventType = "agent_progress"
	EventAgentResult      EventType = "agent_result"
	EventActivity         EventType = "activity"
	EventMissionCompleted EventType = "mission_completed"
)

// Event describes one state change. Only the field matching Type is set.
type Event struct {
	Type      EventType    `json:"type"`
	MissionID string       `json:"missionId"`
	TeamID    string       `json:"teamId,omitempty"`
	Agent     *agent.Agent `json:"agent,omitempty"`
	Result    *Result      `json:"result,omitempty"`
	Activity  *Activity    `json:"activity,omitempty"`
	Mission   *Mission     `json:"mission,omitempty"`
	Time      time.Time    `json:"time"`
}

// EventSink receives events while the orchestrator lock is held, so Publish
// must not block or call back into the orchestrator.
type EventSink interface {
	Publish(Event)
}

type discardSink struct{}

func (discardSink) Publish(Event) {}

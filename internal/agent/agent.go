package agent

import (
	"github.com/mtzanidakis/workforce/internal/output"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Processing is the finer-grained sub-state shown while an agent works.
type Processing string

const (
	ProcessingIdle       Processing = "idle"
	ProcessingThinking   Processing = "thinking"
	ProcessingGenerating Processing = "generating"
	ProcessingRetrying   Processing = "retrying"
	ProcessingCompleted  Processing = "completed"
	ProcessingError      Processing = "error"
)

const (
	StartProgress      = 10
	GeneratingProgress = 50
	MaxActiveProgress  = 99
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 800

	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 50
	MaxMaxTokens   = 2000
)

// Config is the user-tunable part of an agent.
type Config struct {
	CustomPrompt string  `json:"customPrompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"maxTokens"`
	Enabled      bool    `json:"enabled"`
}

// DefaultConfig is applied to agents without stored settings.
func DefaultConfig() Config {
	return Config{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Enabled:     true,
	}
}

// Clamp forces temperature and max tokens into their accepted ranges.
func (c Config) Clamp() Config {
	c.Temperature = min(max(c.Temperature, MinTemperature), MaxTemperature)
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	c.MaxTokens = min(max(c.MaxTokens, MinMaxTokens), MaxMaxTokens)
	return c
}

// State is the runtime view of an agent during a mission. Transitions are
// value methods so the caller decides when and under which lock to apply them.
type State struct {
	Status       Status     `json:"status"`
	Progress     float64    `json:"progress"`
	Processing   Processing `json:"processingState"`
	Task         string     `json:"task,omitempty"`
	RetryCount   int        `json:"retryCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`

	// Set only in StatusError.
	ErrorKind     string `json:"errorKind,omitempty"`
	FriendlyError string `json:"friendlyError,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

// Failure classifies a failed task for display.
type Failure struct {
	Kind      string
	Friendly  string
	Retryable bool
}

func (s State) Reset() State {
	return State{Status: StatusIdle, Processing: ProcessingIdle}
}

// Activate marks the agent as working on task. A retry bumps RetryCount and
// clears the previous error.
func (s State) Activate(task string, retry bool) State {
	s.Status = StatusActive
	s.Progress = StartProgress
	s.Task = task
	s.Processing = ProcessingThinking
	if retry {
		s.Processing = ProcessingRetrying
		s.RetryCount++
	}
	s = s.clearError()
	return s
}

// Tick advances progress by inc while the agent is active and below ceiling.
func (s State) Tick(inc, ceiling float64) State {
	if s.Status != StatusActive || s.Progress >= ceiling {
		return s
	}
	s.Progress = min(s.Progress+inc, MaxActiveProgress)
	if s.Processing == ProcessingThinking && s.Progress >= GeneratingProgress {
		s.Processing = ProcessingGenerating
	}
	return s
}

func (s State) Complete() State {
	s.Status = StatusCompleted
	s.Progress = 100
	s.Processing = ProcessingCompleted
	s.RetryCount = 0
	return s.clearError()
}

func (s State) Fail(msg string) State {
	return s.FailWith(msg, Failure{})
}

// FailWith moves the agent to StatusError and records how it failed.
func (s State) FailWith(msg string, f Failure) State {
	s.Status = StatusError
	s.Progress = 0
	s.Processing = ProcessingError
	s.ErrorMessage = msg
	s.ErrorKind = f.Kind
	s.FriendlyError = f.Friendly
	s.Retryable = f.Retryable
	return s
}

func (s State) clearError() State {
	s.ErrorMessage = ""
	s.ErrorKind = ""
	s.FriendlyError = ""
	s.Retryable = false
	return s
}

// Agent is a member of the roster: built-in or user defined.
type Agent struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Role     string      `json:"role"`
	Icon     Icon        `json:"icon"`
	IsCustom bool        `json:"isCustom"`
	Affinity output.Type `json:"affinity"`
	Config   Config      `json:"config"`
	State    State       `json:"state"`
}

// CustomID is the roster id of a stored custom agent.
func CustomID(id string) string {
	return "custom-" + id
}

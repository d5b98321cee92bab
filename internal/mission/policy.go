package mission

import (
	"math/rand/v2"
	"time"

	"github.com/mtzanidakis/workforce/internal/config"
)

// Policy holds the pacing knobs of a run.
type Policy struct {
	StaggerStep   time.Duration
	TickInterval  time.Duration
	Ceiling       float64
	MaxIncrement  float64
	MaxConcurrent int
	ActivityLimit int

	// Rand returns a value in [0,1). Nil means math/rand.
	Rand func() float64
}

func DefaultPolicy() Policy {
	return Policy{
		StaggerStep:   300 * time.Millisecond,
		TickInterval:  500 * time.Millisecond,
		Ceiling:       85,
		MaxIncrement:  10,
		ActivityLimit: 20,
	}
}

// PolicyFromConfig fills unset values from DefaultPolicy.
func PolicyFromConfig(cfg config.MissionConfig) Policy {
	p := DefaultPolicy()
	if cfg.Stagger > 0 {
		p.StaggerStep = cfg.Stagger
	}
	if cfg.TickInterval > 0 {
		p.TickInterval = cfg.TickInterval
	}
	if cfg.ProgressCeiling > 0 {
		p.Ceiling = cfg.ProgressCeiling
	}
	if cfg.MaxIncrement > 0 {
		p.MaxIncrement = cfg.MaxIncrement
	}
	if cfg.ActivityLimit > 0 {
		p.ActivityLimit = cfg.ActivityLimit
	}
	p.MaxConcurrent = cfg.MaxConcurrent
	return p
}

// Stagger is the start offset of the agent at index, measured from the
// beginning of the run.
func (p Policy) Stagger(index int) time.Duration {
	return time.Duration(index) * p.StaggerStep
}

// Increment is the progress added by one tick.
func (p Policy) Increment() float64 {
	r := rand.Float64
	if p.Rand != nil {
		r = p.Rand
	}
	return r() * p.MaxIncrement
}

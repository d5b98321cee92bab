package router

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/config"
)

// Router proposes a default agent selection for a mission from keyword
// groups. The first group with a keyword contained in the mission wins.
type Router struct {
	mu     sync.RWMutex
	groups []config.RouterGroup
}

func New(cfg config.RouterConfig) *Router {
	r := &Router{}
	r.SetGroups(cfg.Groups)
	return r
}

// SetGroups replaces the keyword groups, e.g. after a config reload.
func (r *Router) SetGroups(groups []config.RouterGroup) {
	normalized := make([]config.RouterGroup, 0, len(groups))
	for _, g := range groups {
		kw := make([]string, 0, len(g.Keywords))
		for _, k := range g.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		normalized = append(normalized, config.RouterGroup{Name: g.Name, Keywords: kw, Agents: g.Agents})
	}

	r.mu.Lock()
	r.groups = normalized
	r.mu.Unlock()
}

// Group returns the first keyword group matching mission.
func (r *Router) Group(mission string) (config.RouterGroup, bool) {
	text := strings.ToLower(mission)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.groups {
		for _, kw := range g.Keywords {
			if strings.Contains(text, kw) {
				return g, true
			}
		}
	}
	return config.RouterGroup{}, false
}

// Select returns the enabled agents of available that should handle mission,
// in roster order. Without a matching group every enabled agent is selected.
func (r *Router) Select(mission string, available []agent.Agent) []agent.Agent {
	group, matched := r.Group(mission)

	var selected []agent.Agent
	for _, a := range available {
		if !a.Config.Enabled {
			continue
		}
		if matched && !slices.Contains(group.Agents, a.ID) {
			continue
		}
		selected = append(selected, a)
	}

	if matched {
		slog.Debug("mission routed", "group", group.Name, "agents", len(selected))
	}
	return selected
}

// IDs returns the ids of agents.
func IDs(agents []agent.Agent) []string {
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids
}

// Package presence tracks which members are viewing a team's dashboard.
package presence

import (
	"slices"
	"strings"
	"sync"
	"time"
)

const DefaultName = "Team Member"

type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Activity string    `json:"currentActivity,omitempty"`
	OnlineAt time.Time `json:"onlineAt"`
	LastSeen time.Time `json:"-"`
}

type Tracker struct {
	teams map[string]map[string]*Member // teamID → memberID → member
	mu    sync.RWMutex
	now   func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		teams: make(map[string]map[string]*Member),
		now:   time.Now,
	}
}

// Join adds or refreshes a member. It reports whether the member is new.
func (t *Tracker) Join(teamID string, m Member) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m.Name == "" {
		m.Name = DefaultName
	}
	members, ok := t.teams[teamID]
	if !ok {
		members = make(map[string]*Member)
		t.teams[teamID] = members
	}

	now := t.now()
	if existing, ok := members[m.ID]; ok {
		existing.Name = m.Name
		existing.Activity = m.Activity
		existing.LastSeen = now
		return false
	}
	m.OnlineAt = now
	m.LastSeen = now
	members[m.ID] = &m
	return true
}

// Leave removes a member and reports whether it was present.
func (t *Tracker) Leave(teamID, memberID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.teams[teamID]
	if !ok {
		return false
	}
	if _, ok := members[memberID]; !ok {
		return false
	}
	delete(members, memberID)
	if len(members) == 0 {
		delete(t.teams, teamID)
	}
	return true
}

// Touch updates the member's activity and last-seen time.
func (t *Tracker) Touch(teamID, memberID, activity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.teams[teamID][memberID]; ok {
		m.LastSeen = t.now()
		if activity != "" {
			m.Activity = activity
		}
	}
}

// List returns the team's members ordered by name.
func (t *Tracker) List(teamID string) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]Member, 0, len(t.teams[teamID]))
	for _, m := range t.teams[teamID] {
		members = append(members, *m)
	}
	slices.SortFunc(members, func(a, b Member) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return members
}

// Expire drops members not seen within timeout and returns the affected
// team ids.
func (t *Tracker) Expire(timeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var teams []string
	now := t.now()
	for teamID, members := range t.teams {
		changed := false
		for id, m := range members {
			if now.Sub(m.LastSeen) > timeout {
				delete(members, id)
				changed = true
			}
		}
		if changed {
			teams = append(teams, teamID)
		}
		if len(members) == 0 {
			delete(t.teams, teamID)
		}
	}
	slices.Sort(teams)
	return teams
}

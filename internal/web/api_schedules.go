package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/schedule"
	"github.com/mtzanidakis/workforce/internal/scheduler"
	"github.com/mtzanidakis/workforce/internal/store"
)

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(schedules))
	for _, sm := range schedules {
		out = append(out, scheduleToAPI(sm))
	}
	jsonResponse(w, out)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string   `json:"name"`
		Schedule    string   `json:"schedule"`
		MissionText string   `json:"missionText"`
		TeamID      string   `json:"teamId"`
		AgentIDs    []string `json:"agentIds"`
		Enabled     *bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.MissionText = strings.TrimSpace(body.MissionText)
	if body.Name == "" || body.Schedule == "" || body.MissionText == "" {
		jsonError(w, "name, schedule, and missionText are required", http.StatusBadRequest)
		return
	}

	// Normalize schedule (handles plain cron strings)
	normalized, err := schedule.NormalizeSchedule(body.Schedule)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid schedule: %v", err), http.StatusBadRequest)
		return
	}

	status := scheduler.StatusActive
	if body.Enabled != nil && !*body.Enabled {
		status = scheduler.StatusPaused
	}

	sm := store.ScheduledMission{
		ID:          uuid.New().String(),
		Name:        body.Name,
		Schedule:    normalized,
		MissionText: body.MissionText,
		TeamID:      body.TeamID,
		AgentIDs:    body.AgentIDs,
		Status:      status,
	}
	if status == scheduler.StatusActive {
		sm.NextRunAt = schedule.CalculateNextRun(normalized)
		if sm.NextRunAt == nil {
			jsonError(w, "schedule has no future run", http.StatusBadRequest)
			return
		}
	}

	if err := s.store.SaveSchedule(&sm); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	created, err := s.store.GetSchedule(sm.ID)
	if err != nil || created == nil {
		jsonError(w, "schedule not saved", http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusCreated, scheduleToAPI(*created))
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetSchedule(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		jsonError(w, "schedule not found", http.StatusNotFound)
		return
	}

	var body struct {
		Name        *string   `json:"name"`
		Schedule    *string   `json:"schedule"`
		MissionText *string   `json:"missionText"`
		TeamID      *string   `json:"teamId"`
		AgentIDs    *[]string `json:"agentIds"`
		Enabled     *bool     `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.Name != nil {
		existing.Name = strings.TrimSpace(*body.Name)
	}
	if body.MissionText != nil {
		existing.MissionText = strings.TrimSpace(*body.MissionText)
	}
	if existing.Name == "" || existing.MissionText == "" {
		jsonError(w, "name and missionText must not be empty", http.StatusBadRequest)
		return
	}
	if body.TeamID != nil {
		existing.TeamID = *body.TeamID
	}
	if body.AgentIDs != nil {
		existing.AgentIDs = *body.AgentIDs
	}

	// Handle enabled bool → status mapping
	if body.Enabled != nil {
		if *body.Enabled {
			existing.Status = scheduler.StatusActive
		} else if existing.Status != scheduler.StatusCompleted {
			existing.Status = scheduler.StatusPaused
		}
	}

	if body.Schedule != nil {
		normalized, err := schedule.NormalizeSchedule(*body.Schedule)
		if err != nil {
			jsonError(w, fmt.Sprintf("invalid schedule: %v", err), http.StatusBadRequest)
			return
		}
		existing.Schedule = normalized
	}

	// Recalculate next_run_at
	if existing.Status == scheduler.StatusActive {
		existing.NextRunAt = schedule.CalculateNextRun(existing.Schedule)
		if existing.NextRunAt == nil {
			jsonError(w, "schedule has no future run", http.StatusBadRequest)
			return
		}
	} else {
		existing.NextRunAt = nil
	}

	if err := s.store.SaveSchedule(existing); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, scheduleToAPI(*existing))
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSchedule(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func scheduleToAPI(sm store.ScheduledMission) map[string]any {
	agentIDs := sm.AgentIDs
	if agentIDs == nil {
		agentIDs = []string{}
	}
	m := map[string]any{
		"id":              sm.ID,
		"name":            sm.Name,
		"schedule":        json.RawMessage(sm.Schedule),
		"scheduleDisplay": schedule.FormatSchedule(sm.Schedule),
		"missionText":     sm.MissionText,
		"agentIds":        agentIDs,
		"enabled":         sm.Status == scheduler.StatusActive,
		"status":          sm.Status,
	}
	if sm.TeamID != "" {
		m["teamId"] = sm.TeamID
	}
	if sm.NextRunAt != nil {
		m["nextRunAt"] = sm.NextRunAt.UTC()
	}
	if sm.LastRunAt != nil {
		m["lastRunAt"] = sm.LastRunAt.UTC()
		m["lastStatus"] = sm.LastStatus
	}
	if sm.LastError != "" {
		m["lastError"] = sm.LastError
	}
	return m
}

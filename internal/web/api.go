package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/agent"
	"github.com/mtzanidakis/workforce/internal/natsbus"
	"github.com/mtzanidakis/workforce/internal/registry"
	"github.com/mtzanidakis/workforce/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Roster
	mux.HandleFunc("GET /api/agents", s.listAgents)
	mux.HandleFunc("GET /api/agents/{id}", s.getAgent)
	mux.HandleFunc("PUT /api/agents/{id}/settings", s.updateAgentSettings)
	mux.HandleFunc("DELETE /api/agents/{id}/settings", s.resetAgentSettings)
	mux.HandleFunc("POST /api/agents/{id}/retry", s.retryAgent)
	mux.HandleFunc("POST /api/agents/retry-failed", s.retryFailed)

	// Custom agents
	mux.HandleFunc("POST /api/custom-agents", s.createCustomAgent)
	mux.HandleFunc("PUT /api/custom-agents/{id}", s.updateCustomAgent)
	mux.HandleFunc("DELETE /api/custom-agents/{id}", s.deleteCustomAgent)

	// Templates
	mux.HandleFunc("GET /api/templates", s.listTemplates)
	mux.HandleFunc("POST /api/templates", s.createTemplate)
	mux.HandleFunc("PUT /api/templates/{id}", s.updateTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.deleteTemplate)
	mux.HandleFunc("POST /api/templates/{id}/instantiate", s.instantiateTemplate)

	// Teams
	mux.HandleFunc("GET /api/teams", s.listTeams)
	mux.HandleFunc("POST /api/teams", s.createTeam)
	mux.HandleFunc("GET /api/teams/{id}", s.getTeam)
	mux.HandleFunc("DELETE /api/teams/{id}", s.deleteTeam)
	mux.HandleFunc("GET /api/teams/{id}/members", s.listTeamMembers)
	mux.HandleFunc("POST /api/teams/{id}/members", s.addTeamMember)
	mux.HandleFunc("DELETE /api/teams/{id}/members/{name}", s.removeTeamMember)
	mux.HandleFunc("GET /api/teams/{id}/presence", s.getTeamPresence)

	// Missions
	mux.HandleFunc("POST /api/missions/route", s.routeMission)
	mux.HandleFunc("POST /api/missions", s.startMission)
	mux.HandleFunc("GET /api/missions/current", s.getCurrentMission)
	mux.HandleFunc("POST /api/missions/current/save", s.saveCurrentMission)
	mux.HandleFunc("GET /api/missions", s.listMissions)
	mux.HandleFunc("GET /api/missions/{id}", s.getMission)
	mux.HandleFunc("DELETE /api/missions/{id}", s.deleteMission)
	mux.HandleFunc("GET /api/missions/{id}/results/{agentId}/download", s.downloadResult)

	// Schedules
	mux.HandleFunc("GET /api/schedules", s.listSchedules)
	mux.HandleFunc("POST /api/schedules", s.createSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.updateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.deleteSchedule)

	// Secrets
	mux.HandleFunc("GET /api/secrets", s.listSecrets)
	mux.HandleFunc("PUT /api/secrets/{name}", s.putSecret)
	mux.HandleFunc("DELETE /api/secrets/{name}", s.deleteSecret)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

// liveRoster returns the stored roster with the state of the current mission
// applied to agents that took part in it.
func (s *Server) liveRoster() ([]agent.Agent, error) {
	roster, err := s.registry.Roster()
	if err != nil {
		return nil, err
	}
	live := make(map[string]agent.State)
	for _, a := range s.missions.Snapshot().Roster {
		live[a.ID] = a.State
	}
	for i := range roster {
		if st, ok := live[roster[i].ID]; ok {
			roster[i].State = st
		}
	}
	return roster, nil
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	roster, err := s.liveRoster()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, roster)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	roster, err := s.liveRoster()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := r.PathValue("id")
	for _, a := range roster {
		if a.ID == id {
			jsonResponse(w, a)
			return
		}
	}
	jsonError(w, "agent not found", http.StatusNotFound)
}

func (s *Server) updateAgentSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := s.registry.Get(id)
	if err != nil {
		registryError(w, err)
		return
	}

	var body struct {
		CustomPrompt *string  `json:"customPrompt"`
		Temperature  *float64 `json:"temperature"`
		MaxTokens    *int     `json:"maxTokens"`
		Enabled      *bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg := current.Config
	if body.CustomPrompt != nil {
		cfg.CustomPrompt = *body.CustomPrompt
	}
	if body.Temperature != nil {
		cfg.Temperature = *body.Temperature
	}
	if body.MaxTokens != nil {
		cfg.MaxTokens = *body.MaxTokens
	}
	if body.Enabled != nil {
		cfg.Enabled = *body.Enabled
	}

	updated, err := s.registry.UpdateSettings(id, cfg)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, updated)
}

func (s *Server) resetAgentSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.registry.Get(id); err != nil {
		registryError(w, err)
		return
	}
	if err := s.registry.ResetSettings(id); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a, err := s.registry.Get(id)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, a)
}

func (s *Server) createCustomAgent(w http.ResponseWriter, r *http.Request) {
	var in registry.CustomAgentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := s.registry.CreateCustomAgent(in)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, a)
}

func (s *Server) updateCustomAgent(w http.ResponseWriter, r *http.Request) {
	var in registry.CustomAgentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := s.registry.UpdateCustomAgent(r.PathValue("id"), in)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, a)
}

func (s *Server) deleteCustomAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteCustomAgent(r.PathValue("id")); err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.registry.ListTemplates(r.URL.Query().Get("teamId"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if templates == nil {
		templates = []store.Template{}
	}
	jsonResponse(w, templates)
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var in registry.TemplateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t, err := s.registry.CreateTemplate(in)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, t)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var in registry.TemplateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t, err := s.registry.UpdateTemplate(r.PathValue("id"), in)
	if err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, t)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteTemplate(r.PathValue("id")); err != nil {
		registryError(w, err)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) instantiateTemplate(w http.ResponseWriter, r *http.Request) {
	a, err := s.registry.Instantiate(r.PathValue("id"))
	if err != nil {
		registryError(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, a)
}

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if teams == nil {
		teams = []store.Team{}
	}
	jsonResponse(w, teams)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Owner       string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	t := &store.Team{ID: uuid.New().String(), Name: body.Name, Description: body.Description}
	if err := s.store.SaveTeam(t); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if owner := strings.TrimSpace(body.Owner); owner != "" {
		if err := s.store.AddTeamMember(&store.TeamMember{TeamID: t.ID, UserName: owner, Role: "owner"}); err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	created, err := s.store.GetTeam(t.ID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusCreated, created)
}

// team loads the team named in the path or writes a 404.
func (s *Server) team(w http.ResponseWriter, r *http.Request) *store.Team {
	t, err := s.store.GetTeam(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil
	}
	if t == nil {
		jsonError(w, "team not found", http.StatusNotFound)
		return nil
	}
	return t
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	if t := s.team(w, r); t != nil {
		jsonResponse(w, t)
	}
}

func (s *Server) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTeam(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) listTeamMembers(w http.ResponseWriter, r *http.Request) {
	t := s.team(w, r)
	if t == nil {
		return
	}
	members, err := s.store.ListTeamMembers(t.ID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []store.TeamMember{}
	}
	jsonResponse(w, members)
}

func (s *Server) addTeamMember(w http.ResponseWriter, r *http.Request) {
	t := s.team(w, r)
	if t == nil {
		return
	}
	var body struct {
		UserName string `json:"userName"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	body.UserName = strings.TrimSpace(body.UserName)
	if body.UserName == "" {
		jsonError(w, "userName is required", http.StatusBadRequest)
		return
	}
	switch body.Role {
	case "", "member", "admin", "owner":
	default:
		jsonError(w, "role must be one of member, admin, owner", http.StatusBadRequest)
		return
	}

	m := &store.TeamMember{TeamID: t.ID, UserName: body.UserName, Role: body.Role}
	if err := s.store.AddTeamMember(m); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveTeamMember(r.PathValue("id"), r.PathValue("name")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "removed"})
}

func (s *Server) getTeamPresence(w http.ResponseWriter, r *http.Request) {
	t := s.team(w, r)
	if t == nil {
		return
	}
	jsonResponse(w, presenceUpdate{TeamID: t.ID, Members: s.presence.List(t.ID)})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	roster, _ := s.registry.Roster()
	schedules, _ := s.store.ListSchedules()

	activeSchedules := 0
	for _, sm := range schedules {
		if sm.Status == "active" {
			activeSchedules++
		}
	}

	snap := s.missions.Snapshot()
	status := map[string]any{
		"status":          "ok",
		"busy":            s.missions.Busy(),
		"agentsCount":     len(roster),
		"activeAgents":    snap.Active,
		"completedTasks":  snap.Completed,
		"activeSchedules": activeSchedules,
		"clients":         s.hub.Count(),
		"uptime":          formatUptime(time.Since(s.startedAt)),
		"nats":            natsStatus(s.nats),
		"timestamp":       time.Now().UTC(),
		"version":         s.version,
	}
	if snap.Mission != nil {
		status["mission"] = map[string]any{
			"id":     snap.Mission.ID,
			"status": snap.Mission.Status,
		}
	}
	jsonResponse(w, status)
}

func natsStatus(c *natsbus.Client) string {
	switch {
	case c == nil:
		return "disabled"
	case !c.Connected():
		return "disconnected"
	default:
		return "ok"
	}
}

func registryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrInvalid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

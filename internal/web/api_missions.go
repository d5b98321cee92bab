package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mtzanidakis/workforce/internal/output"
	"github.com/mtzanidakis/workforce/internal/router"
	"github.com/mtzanidakis/workforce/internal/store"
)

const (
	historyLimit    = 50
	maxHistoryLimit = 200
)

type missionBody struct {
	Mission  string   `json:"mission"`
	TeamID   string   `json:"teamId"`
	AgentIDs []string `json:"agentIds"`
}

func (s *Server) routeMission(w http.ResponseWriter, r *http.Request) {
	var body missionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	roster, err := s.registry.Roster()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	selected := s.router.Select(body.Mission, roster)
	resp := map[string]any{
		"agents":   selected,
		"agentIds": router.IDs(selected),
	}
	if g, ok := s.router.Group(body.Mission); ok {
		resp["group"] = g.Name
	}
	jsonResponse(w, resp)
}

func (s *Server) startMission(w http.ResponseWriter, r *http.Request) {
	var body missionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.TeamID != "" {
		team, err := s.store.GetTeam(body.TeamID)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if team == nil {
			jsonError(w, "team not found", http.StatusNotFound)
			return
		}
	}

	roster, err := s.registry.Roster()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	selected := body.AgentIDs
	if len(selected) == 0 {
		selected = router.IDs(s.router.Select(body.Mission, roster))
	}

	run, err := s.missions.Start(r.Context(), mission.Request{
		Mission:  body.Mission,
		TeamID:   body.TeamID,
		Roster:   roster,
		Selected: selected,
	})
	if err != nil {
		missionError(w, err)
		return
	}
	jsonStatus(w, http.StatusAccepted, map[string]any{
		"missionId": run.ID(),
		"agentIds":  selected,
	})
}

func (s *Server) getCurrentMission(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.missions.Snapshot())
}

func (s *Server) saveCurrentMission(w http.ResponseWriter, r *http.Request) {
	snap := s.missions.Snapshot()
	if snap.Mission == nil {
		jsonError(w, "no mission to save", http.StatusNotFound)
		return
	}
	if snap.Mission.Status == mission.StatusRunning {
		jsonError(w, "mission is still running", http.StatusConflict)
		return
	}

	rec, err := mission.Record(*snap.Mission)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveMission(rec); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("mission saved to history", "id", rec.ID, "results", len(rec.Results))
	jsonStatus(w, http.StatusCreated, rec)
}

func (s *Server) listMissions(w http.ResponseWriter, r *http.Request) {
	limit := historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	missions, err := s.store.ListMissions(r.URL.Query().Get("teamId"), limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if missions == nil {
		missions = []store.Mission{}
	}
	jsonResponse(w, missions)
}

func (s *Server) getMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMission(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		jsonError(w, "mission not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, m)
}

func (s *Server) deleteMission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.store.GetMission(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		jsonError(w, "mission not found", http.StatusNotFound)
		return
	}
	if err := s.store.DeleteMission(id); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

// lookupMission finds a mission in history, falling back to the current one.
func (s *Server) lookupMission(id string) (*store.Mission, error) {
	m, err := s.store.GetMission(id)
	if err != nil || m != nil {
		return m, err
	}
	if snap := s.missions.Snapshot(); snap.Mission != nil && snap.Mission.ID == id {
		return mission.Record(*snap.Mission)
	}
	return nil, nil
}

func (s *Server) downloadResult(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookupMission(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		jsonError(w, "mission not found", http.StatusNotFound)
		return
	}

	agentID := r.PathValue("agentId")
	var result *store.MissionResult
	for i := range m.Results {
		if m.Results[i].AgentID == agentID {
			result = &m.Results[i]
			break
		}
	}
	if result == nil {
		jsonError(w, "result not found", http.StatusNotFound)
		return
	}

	out, err := mission.DecodeOutput(*result)
	if err != nil {
		slog.Warn("stored output unreadable, falling back to text", "mission", m.ID, "agent", agentID, "error", err)
	}
	if out == nil {
		out = &output.AgentOutput{Type: output.TypeText, Title: result.AgentName, Content: result.Result}
	}

	d := output.Export(out, output.Filename(result.AgentName, out, m.CreatedAt.UnixMilli()))
	if d.URL != "" {
		http.Redirect(w, r, d.URL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", d.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Write(d.Body)
}

func (s *Server) retryAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.missions.Retry(id); err != nil {
		missionError(w, err)
		return
	}
	jsonStatus(w, http.StatusAccepted, map[string]string{"status": "retrying", "agentId": id})
}

func (s *Server) retryFailed(w http.ResponseWriter, r *http.Request) {
	ids, _ := s.missions.RetryFailed()
	if ids == nil {
		ids = []string{}
	}
	jsonStatus(w, http.StatusAccepted, map[string]any{"retried": ids})
}

func missionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mission.ErrEmptyMission),
		errors.Is(err, mission.ErrAgentDisabled):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mission.ErrUnknownAgent):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, mission.ErrNotRetryable),
		errors.Is(err, mission.ErrNoMission):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, mission.ErrClosed):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

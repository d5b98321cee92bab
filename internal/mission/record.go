package mission

import (
	"encoding/json"
	"fmt"

	"github.com/mtzanidakis/workforce/internal/output"
	"github.com/mtzanidakis/workforce/internal/store"
)

// Record converts a finished or running mission into its history form.
func Record(m Mission) (*store.Mission, error) {
	rec := &store.Mission{
		ID:          m.ID,
		MissionText: m.Text,
		TeamID:      m.TeamID,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
		Results:     make([]store.MissionResult, 0, len(m.Results)),
	}
	for _, r := range m.Results {
		mr := store.MissionResult{AgentID: r.AgentID, AgentName: r.AgentName, Result: r.Result}
		if r.Output != nil {
			data, err := json.Marshal(r.Output)
			if err != nil {
				return nil, fmt.Errorf("encode output of %s: %w", r.AgentID, err)
			}
			mr.Output = data
		}
		rec.Results = append(rec.Results, mr)
	}
	return rec, nil
}

// DecodeOutput returns the structured output of a saved result, or nil when
// none was stored.
func DecodeOutput(r store.MissionResult) (*output.AgentOutput, error) {
	if len(r.Output) == 0 {
		return nil, nil
	}
	var out output.AgentOutput
	if err := json.Unmarshal(r.Output, &out); err != nil {
		return nil, fmt.Errorf("decode output of %s: %w", r.AgentID, err)
	}
	return &out, nil
}

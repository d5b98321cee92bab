package natsbus

import (
	"log/slog"

	"github.com/mtzanidakis/workforce/internal/mission"
)

// MissionSink publishes orchestrator events as JSON. Publishing is buffered
// by the nats connection so it never blocks the orchestrator.
type MissionSink struct {
	client *Client
}

func NewMissionSink(c *Client) *MissionSink {
	return &MissionSink{client: c}
}

func (s *MissionSink) Publish(ev mission.Event) {
	topic := TopicEventsMission(ev.MissionID)
	if ev.TeamID != "" {
		topic = TopicEventsTeam(ev.TeamID)
	}
	if err := s.client.PublishJSON(topic, ev); err != nil {
		slog.Warn("publish mission event failed", "type", ev.Type, "mission", ev.MissionID, "error", err)
	}
}

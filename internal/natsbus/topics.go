package natsbus

import (
	"fmt"
	"strings"
)

// Subjects carrying dashboard traffic. Mission events go to the team subject
// when the mission belongs to a team so that only its members see them.

func TopicEventsMission(missionID string) string {
	return fmt.Sprintf("events.mission.%s", token(missionID))
}

func TopicEventsTeam(teamID string) string {
	return fmt.Sprintf("events.team.%s", token(teamID))
}

func TopicPresence(teamID string) string {
	return fmt.Sprintf("presence.team.%s", token(teamID))
}

const (
	TopicEventsAll              = "events.>"
	TopicEventsScheduleExecuted = "events.schedule.executed"
	TopicPresenceAll            = "presence.team.*"
)

// TeamFromSubject extracts the team id of a team events or presence subject.
func TeamFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[1] != "team" {
		return "", false
	}
	return parts[2], true
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

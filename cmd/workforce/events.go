package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mtzanidakis/workforce/internal/natsbus"
	"github.com/nats-io/nats.go"
)

func parseArgs(args []string) map[string]string {
	result := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 2 && args[i][:2] == "--" && i+1 < len(args) {
			result[args[i][2:]] = args[i+1]
			i++
		}
	}
	return result
}

// eventSubject picks the subject to follow: one team's events, or everything.
func eventSubject(teamID string) string {
	if teamID == "" {
		return natsbus.TopicEventsAll
	}
	return natsbus.TopicEventsTeam(teamID)
}

// formatEvent renders one bus message as a single log line.
func formatEvent(subject string, data []byte, at time.Time) string {
	var head struct {
		Type      string `json:"type"`
		MissionID string `json:"missionId"`
		Agent     *struct {
			Name string `json:"name"`
		} `json:"agent"`
		Activity *struct {
			Agent  string `json:"agent"`
			Action string `json:"action"`
		} `json:"activity"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return fmt.Sprintf("%s  %s  %s", at.Format("15:04:05"), subject, data)
	}

	line := fmt.Sprintf("%s  %-18s", at.Format("15:04:05"), head.Type)
	if head.MissionID != "" {
		line += "  mission=" + head.MissionID
	}
	if head.Agent != nil {
		line += "  agent=" + head.Agent.Name
	}
	if head.Activity != nil {
		line += fmt.Sprintf("  %s: %s", head.Activity.Agent, head.Activity.Action)
	}
	return line
}

func runEvents(args []string) error {
	opts := parseArgs(args)

	url := opts["nats"]
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		port := 4222
		if v := os.Getenv("WORKFORCE_NATS_PORT"); v != "" {
			if p, err := strconv.Atoi(v); err == nil {
				port = p
			}
		}
		url = fmt.Sprintf("nats://127.0.0.1:%d", port)
	}

	client, err := natsbus.NewClientFromURL(url)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer client.Close()

	subject := eventSubject(opts["team"])
	sub, err := client.Subscribe(subject, func(msg *nats.Msg) {
		fmt.Println(formatEvent(msg.Subject, msg.Data, time.Now()))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(os.Stderr, "Following %s on %s\n", subject, url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseArgs(t *testing.T) {
	got := parseArgs([]string{"--team", "t1", "stray", "--nats", "nats://h:1", "--dangling"})
	if got["team"] != "t1" || got["nats"] != "nats://h:1" {
		t.Errorf("unexpected args: %v", got)
	}
	if _, ok := got["dangling"]; ok {
		t.Error("flag without value should be ignored")
	}
}

func TestEventSubject(t *testing.T) {
	if got := eventSubject(""); got != "events.>" {
		t.Errorf("eventSubject(\"\") = %q", got)
	}
	if got := eventSubject("t1"); got != "events.team.t1" {
		t.Errorf("eventSubject(t1) = %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 15, 0, time.UTC)

	line := formatEvent("events.mission.m1", []byte(`{"type":"agent_progress","missionId":"m1","agent":{"id":"2","name":"CODA"}}`), at)
	for _, want := range []string{"09:30:15", "agent_progress", "mission=m1", "agent=CODA"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	line = formatEvent("events.mission.m1", []byte(`{"type":"activity","missionId":"m1","activity":{"agent":"ARIA","action":"Planning"}}`), at)
	if !strings.Contains(line, "ARIA: Planning") {
		t.Errorf("activity line %q missing action", line)
	}

	line = formatEvent("events.schedule.executed", []byte("not json"), at)
	if !strings.Contains(line, "events.schedule.executed") || !strings.Contains(line, "not json") {
		t.Errorf("raw line %q should carry subject and payload", line)
	}
}

func TestParseSetArgs(t *testing.T) {
	name, value, desc, err := parseSetArgs([]string{"api-key", "--value", "s3cret", "--description", "gateway"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "api-key" || string(value) != "s3cret" || desc != "gateway" {
		t.Errorf("unexpected parse: %q %q %q", name, value, desc)
	}

	path := filepath.Join(t.TempDir(), "token.txt")
	os.WriteFile(path, []byte("from-file"), 0600)
	_, value, _, err = parseSetArgs([]string{"token", "--file", path})
	if err != nil {
		t.Fatal(err)
	}
	if string(value) != "from-file" {
		t.Errorf("expected file contents, got %q", value)
	}

	if _, _, _, err := parseSetArgs([]string{"x", "--bogus", "y"}); err == nil {
		t.Error("expected error for unknown source flag")
	}
	if _, _, _, err := parseSetArgs([]string{"x"}); err == nil {
		t.Error("expected usage error")
	}
}

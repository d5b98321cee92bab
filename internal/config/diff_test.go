package config

import (
	"testing"
	"time"
)

func TestDiff_NoChanges(t *testing.T) {
	cfg := defaults()
	d := Diff(&cfg, &cfg)
	if d.HasChanges() {
		t.Error("expected no changes")
	}
	if len(d.NonReloadable) != 0 {
		t.Errorf("expected no non-reloadable changes, got %v", d.NonReloadable)
	}
}

func TestDiff_RouterGroups(t *testing.T) {
	old := defaults()
	new := defaults()
	new.Router.Groups = append(new.Router.Groups, RouterGroup{
		Name: "security", Keywords: []string{"audit"}, Agents: []string{"8"},
	})

	d := Diff(&old, &new)
	if !d.RouterChanged {
		t.Fatal("expected router change")
	}
	if len(d.NewRouter.Groups) != 5 {
		t.Errorf("expected 5 groups, got %d", len(d.NewRouter.Groups))
	}
}

func TestDiff_MissionPolicy(t *testing.T) {
	old := defaults()
	new := defaults()
	new.Mission.Stagger = time.Second

	d := Diff(&old, &new)
	if !d.MissionChanged || d.NewMission.Stagger != time.Second {
		t.Errorf("expected mission change with new stagger, got %+v", d)
	}
}

func TestDiff_SchedulerAndTelegram(t *testing.T) {
	old := defaults()
	new := defaults()
	new.Scheduler.PollInterval = time.Minute
	new.Telegram.AllowFrom = []int64{42}

	d := Diff(&old, &new)
	if !d.SchedulerChanged || d.NewScheduler.PollInterval != time.Minute {
		t.Error("expected scheduler change")
	}
	if !d.TelegramAccessChanged || len(d.NewTelegram.AllowFrom) != 1 {
		t.Error("expected telegram access change")
	}
}

func TestDiff_NonReloadable(t *testing.T) {
	old := defaults()
	new := defaults()
	new.Web.Port = 9999
	new.Store.Path = "/tmp/other.db"
	new.Gateway.APIKey = "rotated"
	new.NATS.Enabled = false

	d := Diff(&old, &new)
	if d.HasChanges() {
		t.Error("non-reloadable fields must not count as reloadable changes")
	}
	want := map[string]bool{"gateway": true, "web.port": true, "store.path": true, "nats.enabled": true}
	if len(d.NonReloadable) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), d.NonReloadable)
	}
	for _, f := range d.NonReloadable {
		if !want[f] {
			t.Errorf("unexpected non-reloadable field %q", f)
		}
	}
}

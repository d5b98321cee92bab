package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	RouterChanged bool
	NewRouter     RouterConfig

	MissionChanged bool
	NewMission     MissionConfig

	SchedulerChanged bool
	NewScheduler     SchedulerConfig

	TelegramAccessChanged bool
	NewTelegram           TelegramConfig

	// Non-reloadable fields that changed (log warnings only)
	NonReloadable []string
}

// HasChanges reports whether any reloadable field changed.
func (d *ConfigDiff) HasChanges() bool {
	return d.RouterChanged ||
		d.MissionChanged ||
		d.SchedulerChanged ||
		d.TelegramAccessChanged
}

// Diff compares two configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if !reflect.DeepEqual(old.Router, new.Router) {
		d.RouterChanged = true
		d.NewRouter = new.Router
	}

	if old.Mission != new.Mission {
		d.MissionChanged = true
		d.NewMission = new.Mission
	}

	if old.Scheduler.PollInterval != new.Scheduler.PollInterval {
		d.SchedulerChanged = true
		d.NewScheduler = new.Scheduler
	}

	if !reflect.DeepEqual(old.Telegram.AllowFrom, new.Telegram.AllowFrom) ||
		old.Telegram.NotifyChatID != new.Telegram.NotifyChatID {
		d.TelegramAccessChanged = true
		d.NewTelegram = new.Telegram
	}

	nonReloadable := []struct {
		name    string
		changed bool
	}{
		{"gateway", !reflect.DeepEqual(old.Gateway, new.Gateway)},
		{"task.endpoint", old.Task.Endpoint != new.Task.Endpoint},
		{"telegram.token", old.Telegram.Token != new.Telegram.Token},
		{"web.port", old.Web.Port != new.Web.Port},
		{"nats.enabled", old.NATS.Enabled != new.NATS.Enabled},
		{"nats.port", old.NATS.Port != new.NATS.Port},
		{"nats.host", old.NATS.Host != new.NATS.Host},
		{"nats.max_payload", old.NATS.MaxPayload != new.NATS.MaxPayload},
		{"store.path", old.Store.Path != new.Store.Path},
		{"vault.passphrase", old.Vault.Passphrase != new.Vault.Passphrase},
	}
	for _, f := range nonReloadable {
		if f.changed {
			d.NonReloadable = append(d.NonReloadable, f.name)
		}
	}

	return d
}

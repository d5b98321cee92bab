package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mtzanidakis/workforce/internal/agenttask"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/gateway"
	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mtzanidakis/workforce/internal/natsbus"
	"github.com/mtzanidakis/workforce/internal/registry"
	"github.com/mtzanidakis/workforce/internal/router"
	"github.com/mtzanidakis/workforce/internal/scheduler"
	"github.com/mtzanidakis/workforce/internal/store"
	"github.com/mtzanidakis/workforce/internal/taskclient"
	"github.com/mtzanidakis/workforce/internal/telegram"
	"github.com/mtzanidakis/workforce/internal/vault"
	"github.com/mtzanidakis/workforce/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("workforce %s\n", version)
		return
	case "serve":
		err = runServe()
	case "backup":
		err = runBackup(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "vault":
		err = runVault(os.Args[2:])
	case "events":
		err = runEvents(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: workforce <command>

Commands:
  serve      Start the workforce service
  backup     Back up the mission store
  restore    Restore the mission store from a backup
  vault      Manage encrypted secrets
  events     Stream live events from a running service
  version    Print version
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting workforce", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Vault-backed credentials
	var secrets *vault.Secrets
	var lookup config.SecretLookup
	if cfg.Vault.Passphrase != "" {
		v, err := vault.New(cfg.Vault.Passphrase)
		if err != nil {
			return fmt.Errorf("init vault: %w", err)
		}
		secrets = vault.NewSecrets(v, db)
		lookup = secrets.Lookup
	} else {
		slog.Warn("vault passphrase not set, secrets disabled")
	}
	if err := cfg.ResolveSecrets(lookup); err != nil {
		return err
	}

	// Embedded NATS
	var nc *natsbus.Client
	var sink mission.EventSink
	if cfg.NATS.Enabled {
		bus, err := natsbus.New(cfg.NATS)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		defer bus.Close()
		nc, err = natsbus.NewClient(bus)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
		sink = natsbus.NewMissionSink(nc)
		slog.Info("nats started", "port", bus.Port())
	} else {
		slog.Warn("nats disabled, events only reach the dashboard")
	}

	// Agent task execution
	if cfg.Gateway.APIKey == "" {
		slog.Warn("gateway api key not set, agent tasks will fail")
	}
	tasks := agenttask.NewHandler(gateway.New(cfg.Gateway))
	client := taskclient.New(cfg.Task, tasks)

	reg := registry.New(db)
	rtr := router.New(cfg.Router)

	orch := mission.New(client, mission.PolicyFromConfig(cfg.Mission), sink)
	defer orch.Close()

	// Scheduler
	sched := scheduler.New(db, orch, reg, rtr, nc, cfg.Scheduler.PollInterval)
	go sched.Start(ctx)
	slog.Info("scheduler started")

	// Telegram bot
	var bot *telegram.Bot
	if cfg.Telegram.Token != "" {
		bot, err = telegram.NewBot(cfg.Telegram, orch, reg, rtr)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				slog.Error("telegram bot error", "error", err)
			}
		}()
		slog.Info("telegram bot started")
	} else {
		slog.Warn("telegram token not set, bot disabled")
	}

	// Web UI
	if cfg.Web.Enabled {
		srv := web.NewServer(db, nc, reg, rtr, orch, secrets, tasks, cfg.Web, version)
		if nc == nil {
			orch.SetSink(srv)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			slog.Info("shutting down", "signal", sig)
			break
		}
		next, err := reload(cfg, lookup, rtr, orch, sched, bot)
		if err != nil {
			slog.Error("config reload failed", "error", err)
			continue
		}
		cfg = next
	}

	cancel()
	if bot != nil {
		bot.Stop()
	}
	return nil
}

// reload re-reads the config file and applies the parts that can change
// without a restart.
func reload(old *config.Config, lookup config.SecretLookup, rtr *router.Router, orch *mission.Orchestrator, sched *scheduler.Scheduler, bot *telegram.Bot) (*config.Config, error) {
	next, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := next.ResolveSecrets(lookup); err != nil {
		return nil, err
	}

	d := config.Diff(old, next)
	for _, field := range d.NonReloadable {
		slog.Warn("config change requires restart", "field", field)
	}
	if !d.HasChanges() {
		slog.Info("config reloaded, nothing to apply")
		return next, nil
	}

	if d.RouterChanged {
		groups := d.NewRouter.Groups
		if len(groups) == 0 {
			groups = config.DefaultRouterGroups()
		}
		rtr.SetGroups(groups)
	}
	if d.MissionChanged {
		orch.UpdatePolicy(mission.PolicyFromConfig(d.NewMission))
	}
	if d.SchedulerChanged {
		sched.UpdateConfig(d.NewScheduler.PollInterval)
	}
	if d.TelegramAccessChanged && bot != nil {
		bot.UpdateAccess(d.NewTelegram)
	}

	slog.Info("config reloaded",
		"router", d.RouterChanged,
		"mission", d.MissionChanged,
		"scheduler", d.SchedulerChanged,
		"telegram", d.TelegramAccessChanged)
	return next, nil
}

// Package web serves the dashboard API, the agent task endpoint and the
// websocket event stream.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/mission"
	"github.com/mtzanidakis/workforce/internal/natsbus"
	"github.com/mtzanidakis/workforce/internal/presence"
	"github.com/mtzanidakis/workforce/internal/registry"
	"github.com/mtzanidakis/workforce/internal/router"
	"github.com/mtzanidakis/workforce/internal/store"
	"github.com/mtzanidakis/workforce/internal/vault"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

//go:embed static
var staticFiles embed.FS

const (
	presenceTimeout = 2 * time.Minute
	presenceSweep   = 30 * time.Second
)

type Server struct {
	store     *store.Store
	nats      *natsbus.Client
	registry  *registry.Registry
	router    *router.Router
	missions  *mission.Orchestrator
	secrets   *vault.Secrets
	tasks     http.Handler
	limiter   *IPRateLimiter
	presence  *presence.Tracker
	hub       *Hub
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

// NewServer wires the dashboard. nc, secrets and tasks may be nil.
func NewServer(s *store.Store, nc *natsbus.Client, reg *registry.Registry, rtr *router.Router, missions *mission.Orchestrator, secrets *vault.Secrets, tasks http.Handler, cfg config.WebConfig, version string) *Server {
	burst := max(cfg.TaskBurst, 1)
	limit := rate.Inf
	if cfg.TaskRateLimit > 0 {
		limit = rate.Limit(cfg.TaskRateLimit)
	}
	return &Server{
		store:     s,
		nats:      nc,
		registry:  reg,
		router:    rtr,
		missions:  missions,
		secrets:   secrets,
		tasks:     tasks,
		limiter:   NewIPRateLimiter(limit, burst),
		presence:  presence.NewTracker(),
		hub:       NewHub(),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

// Handler returns the full HTTP handler, middleware included.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	s.registerAPI(mux)
	if s.tasks != nil {
		mux.Handle("POST /api/agent-task", s.limiter.Middleware(s.tasks))
	}
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("static fs: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// SPA fallback: serve index.html for non-file routes
		if !strings.Contains(r.URL.Path, ".") && r.URL.Path != "/" {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})

	return s.withMiddleware(mux), nil
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.limiter.Run(ctx)
	go s.expirePresence(ctx)

	if err := s.subscribeEvents(); err != nil {
		return err
	}

	handler, err := s.Handler()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Publish delivers a mission event straight to connected dashboards. It is
// the orchestrator sink when no NATS client is configured.
func (s *Server) Publish(ev mission.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("encode mission event failed", "error", err)
		return
	}
	s.hub.Broadcast(Event{Type: string(ev.Type), TeamID: ev.TeamID, Payload: payload})
}

func (s *Server) subscribeEvents() error {
	if s.nats == nil {
		return nil
	}

	// Forward all event topics to WebSocket as raw JSON
	if _, err := s.nats.Subscribe(natsbus.TopicEventsAll, func(msg *nats.Msg) {
		var head struct {
			Type   string `json:"type"`
			TeamID string `json:"teamId"`
		}
		if err := json.Unmarshal(msg.Data, &head); err != nil {
			slog.Warn("invalid NATS event payload", "subject", msg.Subject, "error", err)
			return
		}
		s.hub.Broadcast(Event{Type: head.Type, TeamID: head.TeamID, Payload: bytes.Clone(msg.Data)})
	}); err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	if _, err := s.nats.Subscribe(natsbus.TopicPresenceAll, func(msg *nats.Msg) {
		var p presenceUpdate
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			slog.Warn("invalid presence payload", "subject", msg.Subject, "error", err)
			return
		}
		s.hub.Broadcast(Event{Type: "presence", TeamID: p.TeamID, Payload: bytes.Clone(msg.Data)})
	}); err != nil {
		return fmt.Errorf("subscribe presence: %w", err)
	}
	return nil
}

type presenceUpdate struct {
	TeamID  string            `json:"teamId"`
	Members []presence.Member `json:"members"`
}

func (s *Server) publishPresence(teamID string) {
	update := presenceUpdate{TeamID: teamID, Members: s.presence.List(teamID)}
	if s.nats != nil {
		if err := s.nats.PublishJSON(natsbus.TopicPresence(teamID), update); err != nil {
			slog.Warn("publish presence failed", "team", teamID, "error", err)
		}
		return
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	s.hub.Broadcast(Event{Type: "presence", TeamID: teamID, Payload: payload})
}

func (s *Server) expirePresence(ctx context.Context) {
	ticker := time.NewTicker(presenceSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, teamID := range s.presence.Expire(presenceTimeout) {
				s.publishPresence(teamID)
			}
		}
	}
}

package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mtzanidakis/workforce/internal/presence"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// Event is one message pushed to dashboards. Events with a TeamID only reach
// clients that joined that team; the rest go to everyone.
type Event struct {
	Type    string          `json:"type"`
	TeamID  string          `json:"teamId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	conn *websocket.Conn

	mu       sync.Mutex
	teamID   string
	memberID string
}

func (c *client) team() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teamID
}

type delivery struct {
	event Event
	to    *client
}

// Hub fans events out to websocket clients. Run is the only goroutine that
// writes to connections.
type Hub struct {
	clients   map[*client]bool
	broadcast chan delivery
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]bool),
		broadcast: make(chan delivery, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case d := <-h.broadcast:
			data, err := json.Marshal(d.event)
			if err != nil {
				continue
			}

			var failed []*client
			h.mu.RLock()
			for c := range h.clients {
				if d.to != nil && c != d.to {
					continue
				}
				if d.event.TeamID != "" && c.team() != d.event.TeamID {
					continue
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					failed = append(failed, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range failed {
				h.Unregister(c)
				c.conn.Close()
			}
		}
	}
}

func (h *Hub) Broadcast(event Event) {
	h.deliver(delivery{event: event})
}

func (h *Hub) sendTo(c *client, event Event) {
	h.deliver(delivery{event: event, to: c})
}

func (h *Hub) deliver(d delivery) {
	select {
	case h.broadcast <- d:
	default:
		slog.Warn("websocket broadcast channel full, dropping event", "type", d.event.Type)
	}
}

func (h *Hub) Register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// clientMessage is sent by dashboards to announce presence.
type clientMessage struct {
	Type     string `json:"type"`
	TeamID   string `json:"teamId"`
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Activity string `json:"activity"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	s.hub.Register(c)
	defer func() {
		s.hub.Unregister(c)
		s.leave(c)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed websocket message", "error", err)
			continue
		}
		s.handleClientMessage(c, msg)
	}
}

func (s *Server) handleClientMessage(c *client, msg clientMessage) {
	switch msg.Type {
	case "join":
		teamID := strings.TrimSpace(msg.TeamID)
		memberID := strings.TrimSpace(msg.MemberID)
		if teamID == "" || memberID == "" {
			return
		}
		s.leave(c)
		c.mu.Lock()
		c.teamID, c.memberID = teamID, memberID
		c.mu.Unlock()

		s.presence.Join(teamID, presence.Member{ID: memberID, Name: msg.Name, Activity: msg.Activity})
		s.publishPresence(teamID)
	case "leave":
		s.leave(c)
	case "activity":
		c.mu.Lock()
		teamID, memberID := c.teamID, c.memberID
		c.mu.Unlock()
		if teamID == "" {
			return
		}
		s.presence.Touch(teamID, memberID, msg.Activity)
		s.publishPresence(teamID)
	case "snapshot":
		payload, err := json.Marshal(s.missions.Snapshot())
		if err != nil {
			return
		}
		s.hub.sendTo(c, Event{Type: "snapshot", Payload: payload})
	}
}

func (s *Server) leave(c *client) {
	c.mu.Lock()
	teamID, memberID := c.teamID, c.memberID
	c.teamID, c.memberID = "", ""
	c.mu.Unlock()
	if teamID == "" {
		return
	}
	if s.presence.Leave(teamID, memberID) {
		s.publishPresence(teamID)
	}
}

package natsbus

import (
	"fmt"
	"net"
	"time"

	"github.com/mtzanidakis/workforce/internal/config"
	natsserver "github.com/nats-io/nats-server/v2/server"
)

// Bus is the embedded broker carrying mission events and team presence.
// Events are fire-and-forget, so it runs plain core NATS without JetStream.
type Bus struct {
	server *natsserver.Server
	cfg    config.NATSConfig
}

func New(cfg config.NATSConfig) (*Bus, error) {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	opts := &natsserver.Options{
		ServerName: "workforce",
		Host:       host,
		Port:       cfg.Port,
		NoLog:      true,
		NoSigs:     true,
	}
	if cfg.MaxPayload > 0 {
		opts.MaxPayload = cfg.MaxPayload
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready on %s:%d", host, cfg.Port)
	}

	return &Bus{server: ns, cfg: cfg}, nil
}

func (b *Bus) ClientURL() string {
	return b.server.ClientURL()
}

// Port is the bound port, which differs from the configured one when a
// random port was requested.
func (b *Bus) Port() int {
	if addr, ok := b.server.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return b.cfg.Port
}

// Connections counts clients attached to the broker, including followers
// started with `workforce events`.
func (b *Bus) Connections() int {
	return b.server.NumClients()
}

func (b *Bus) Close() {
	b.server.Shutdown()
	b.server.WaitForShutdown()
}

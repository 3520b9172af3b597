// Package mcbridge implements mc.Dialer over NATS. A companion plugin
// running next to the game server owns the real protocol connections
// and exposes each session on a subject tree:
//
//	mc.sess.<name>.evt.<type>   events, published by the plugin
//	mc.sess.<name>.q.<name>     queries, JSON request-reply
//	mc.sess.<name>.act.<name>   actions, JSON request-reply
//
// The bridge keeps the protocol client out of this process; the fleet
// core only ever sees mc.Session.
package mcbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groblegark/stayput/internal/mc"
)

const (
	subjectPrefix  = "mc.sess."
	defaultTimeout = 5 * time.Second
)

// ConnectOptions is the game-server endpoint the plugin should join
// sessions to. The username is supplied per dial.
type ConnectOptions struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Auth     string `json:"auth,omitempty"`
	Version  string `json:"version,omitempty"`
	Password string `json:"password,omitempty"`
}

// Dialer dials sessions through the plugin. Safe for concurrent use.
type Dialer struct {
	nc      *nats.Conn
	opts    ConnectOptions
	logger  *slog.Logger
	timeout time.Duration
}

func NewDialer(nc *nats.Conn, opts ConnectOptions, logger *slog.Logger) *Dialer {
	return &Dialer{nc: nc, opts: opts, logger: logger, timeout: defaultTimeout}
}

type connectRequest struct {
	ConnectOptions
	Username string `json:"username"`
}

// Dial subscribes to the session's event tree, then asks the plugin to
// join the game server under identity. Events that arrive before the
// connect ack are delivered; callers must tolerate that ordering.
func (d *Dialer) Dial(ctx context.Context, identity string, h mc.Handlers) (mc.Session, error) {
	s := &session{
		nc:      d.nc,
		name:    identity,
		h:       h,
		logger:  d.logger.With("session", identity),
		timeout: d.timeout,
	}

	sub, err := d.nc.Subscribe(subjectPrefix+identity+".evt.>", s.onEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribing to session events for %s: %w", identity, err)
	}
	s.sub = sub
	if err := d.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing event subscription: %w", err)
	}

	req := connectRequest{ConnectOptions: d.opts, Username: identity}
	if err := s.act(ctx, "connect", req); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("connecting session %s: %w", identity, err)
	}
	return s, nil
}

package mcbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groblegark/stayput/internal/mc"
)

// Wire payloads exchanged with the plugin.
type (
	spawnedEvent struct {
		Self     mc.Entity   `json:"self"`
		Position mc.Position `json:"position"`
	}
	chatEvent struct {
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}
	collectEvent struct {
		Collector mc.Entity `json:"collector"`
	}
	kickedEvent struct {
		Reason string `json:"reason"`
	}
	errorEvent struct {
		Message string `json:"message"`
	}

	diggingReply struct {
		Digging bool `json:"digging"`
	}
	digRequest struct {
		Block mc.Block   `json:"block"`
		Mode  mc.DigMode `json:"mode"`
	}
	attackRequest struct {
		Entity mc.Entity `json:"entity"`
	}
	equipRequest struct {
		Item mc.Item `json:"item"`
	}
	chatRequest struct {
		Text string `json:"text"`
	}
	ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
)

type session struct {
	nc      *nats.Conn
	name    string
	h       mc.Handlers
	logger  *slog.Logger
	timeout time.Duration

	sub     *nats.Subscription
	endOnce sync.Once

	mu   sync.Mutex
	self mc.Entity
}

func (s *session) subj(suffix string) string {
	return subjectPrefix + s.name + "." + suffix
}

// onEvent dispatches plugin events by the last subject token.
func (s *session) onEvent(msg *nats.Msg) {
	kind := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	switch kind {
	case "spawned":
		var ev spawnedEvent
		if !s.decode(msg.Data, &ev, kind) {
			return
		}
		s.mu.Lock()
		s.self = ev.Self
		s.mu.Unlock()
		if s.h.Spawned != nil {
			s.h.Spawned(ev.Position)
		}
	case "chat":
		var ev chatEvent
		if !s.decode(msg.Data, &ev, kind) {
			return
		}
		if s.h.ChatReceived != nil {
			s.h.ChatReceived(ev.Sender, ev.Text)
		}
	case "collect":
		var ev collectEvent
		if !s.decode(msg.Data, &ev, kind) {
			return
		}
		if s.h.ItemCollected != nil {
			s.h.ItemCollected(ev.Collector)
		}
	case "kicked":
		var ev kickedEvent
		if !s.decode(msg.Data, &ev, kind) {
			return
		}
		if s.h.Kicked != nil {
			s.h.Kicked(ev.Reason)
		}
	case "error":
		var ev errorEvent
		if !s.decode(msg.Data, &ev, kind) {
			return
		}
		if s.h.Errored != nil {
			s.h.Errored(errors.New(ev.Message))
		}
	case "ended":
		s.finish()
	default:
		s.logger.Debug("unknown session event", "kind", kind)
	}
}

func (s *session) decode(data []byte, out any, kind string) bool {
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("malformed session event", "kind", kind, "error", err)
		return false
	}
	return true
}

// finish tears the session down exactly once. After it runs no further
// callbacks fire.
func (s *session) finish() {
	s.endOnce.Do(func() {
		_ = s.sub.Unsubscribe()
		if s.h.Ended != nil {
			s.h.Ended()
		}
	})
}

func (s *session) Name() string { return s.name }

func (s *session) Self() mc.Entity {
	s.mu.Lock()
	self := s.self
	s.mu.Unlock()
	if self.ID != 0 {
		return self
	}
	var e mc.Entity
	if err := s.query("self", &e); err != nil {
		return mc.Entity{}
	}
	return e
}

func (s *session) HeldItem() *mc.Item {
	var it *mc.Item
	if err := s.query("held", &it); err != nil {
		return nil
	}
	return it
}

func (s *session) Inventory() []mc.Item {
	var items []mc.Item
	if err := s.query("inventory", &items); err != nil {
		return nil
	}
	return items
}

func (s *session) BlockAtCursor() *mc.Block {
	var b *mc.Block
	if err := s.query("cursor", &b); err != nil {
		return nil
	}
	return b
}

func (s *session) NearestEntity(pred func(mc.Entity) bool) *mc.Entity {
	var entities []mc.Entity
	if err := s.query("entities", &entities); err != nil {
		return nil
	}
	self := s.Self()
	var (
		best *mc.Entity
		min  float64
	)
	for i := range entities {
		e := entities[i]
		if !pred(e) {
			continue
		}
		d := distSq(self.Position, e.Position)
		if best == nil || d < min {
			best, min = &entities[i], d
		}
	}
	return best
}

func distSq(a, b mc.Position) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

func (s *session) Digging() bool {
	var r diggingReply
	if err := s.query("digging", &r); err != nil {
		return false
	}
	return r.Digging
}

func (s *session) Dig(ctx context.Context, b mc.Block, mode mc.DigMode) error {
	return s.act(ctx, "dig", digRequest{Block: b, Mode: mode})
}

func (s *session) StopDigging() {
	if err := s.act(context.Background(), "stop", nil); err != nil {
		s.logger.Debug("stop digging failed", "error", err)
	}
}

func (s *session) Attack(ctx context.Context, e mc.Entity) error {
	return s.act(ctx, "attack", attackRequest{Entity: e})
}

func (s *session) Equip(ctx context.Context, it mc.Item) error {
	return s.act(ctx, "equip", equipRequest{Item: it})
}

func (s *session) SendChat(text string) {
	if err := s.act(context.Background(), "chat", chatRequest{Text: text}); err != nil {
		s.logger.Warn("sending chat failed", "error", err)
	}
}

// End asks the plugin to drop the connection, then tears down locally.
// The plugin's own ended event becomes a no-op afterwards.
func (s *session) End() {
	if err := s.act(context.Background(), "end", nil); err != nil {
		s.logger.Debug("ending session failed", "error", err)
	}
	s.finish()
}

// query performs a request-reply against the session's query tree and
// decodes the JSON reply into out.
func (s *session) query(name string, out any) error {
	msg, err := s.nc.Request(s.subj("q."+name), nil, s.timeout)
	if err != nil {
		return fmt.Errorf("querying %s: %w", name, err)
	}
	return json.Unmarshal(msg.Data, out)
}

// act performs a request-reply against the session's action tree and
// fails when the plugin reports a refusal.
func (s *session) act(ctx context.Context, name string, req any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", name, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	msg, err := s.nc.RequestWithContext(ctx, s.subj("act."+name), data)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", name, err)
	}
	var a ack
	if err := json.Unmarshal(msg.Data, &a); err != nil {
		return fmt.Errorf("decoding %s ack: %w", name, err)
	}
	if !a.OK {
		return fmt.Errorf("%s refused: %s", name, a.Error)
	}
	return nil
}

package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/groblegark/stayput/internal/mc"
)

// mockSession is an in-memory mc.Session for tests. End delivers the
// Ended event synchronously, which keeps teardown tests deterministic.
type mockSession struct {
	name     string
	handlers mc.Handlers

	mu        sync.Mutex
	self      mc.Entity
	held      *mc.Item
	inventory []mc.Item
	cursor    *mc.Block
	nearest   *mc.Entity
	digging   bool
	ended     bool

	chats   []string
	attacks []mc.Entity
	equips  []mc.Item

	digCalls       int
	digInFlight    int
	digMaxInFlight int
	digRelease     chan struct{} // non-nil: Dig blocks until closed
}

func (s *mockSession) Name() string { return s.name }

func (s *mockSession) Self() mc.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

func (s *mockSession) HeldItem() *mc.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return nil
	}
	it := *s.held
	return &it
}

func (s *mockSession) Inventory() []mc.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mc.Item, len(s.inventory))
	copy(out, s.inventory)
	return out
}

func (s *mockSession) BlockAtCursor() *mc.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return nil
	}
	b := *s.cursor
	return &b
}

func (s *mockSession) NearestEntity(pred func(mc.Entity) bool) *mc.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nearest == nil || !pred(*s.nearest) {
		return nil
	}
	e := *s.nearest
	return &e
}

func (s *mockSession) Digging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digging
}

func (s *mockSession) Dig(ctx context.Context, b mc.Block, mode mc.DigMode) error {
	s.mu.Lock()
	s.digCalls++
	s.digInFlight++
	if s.digInFlight > s.digMaxInFlight {
		s.digMaxInFlight = s.digInFlight
	}
	release := s.digRelease
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	s.digInFlight--
	s.mu.Unlock()
	return nil
}

func (s *mockSession) StopDigging() {
	s.mu.Lock()
	s.digging = false
	s.mu.Unlock()
}

func (s *mockSession) Attack(ctx context.Context, e mc.Entity) error {
	s.mu.Lock()
	s.attacks = append(s.attacks, e)
	s.mu.Unlock()
	return nil
}

func (s *mockSession) Equip(ctx context.Context, it mc.Item) error {
	s.mu.Lock()
	s.equips = append(s.equips, it)
	item := it
	s.held = &item
	s.mu.Unlock()
	return nil
}

func (s *mockSession) SendChat(text string) {
	s.mu.Lock()
	s.chats = append(s.chats, text)
	s.mu.Unlock()
}

func (s *mockSession) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()
	if s.handlers.Ended != nil {
		s.handlers.Ended()
	}
}

// endFromServer simulates an unexpected disconnect.
func (s *mockSession) endFromServer() { s.End() }

func (s *mockSession) chatLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chats))
	copy(out, s.chats)
	return out
}

func (s *mockSession) attackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attacks)
}

func (s *mockSession) digStats() (calls, maxInFlight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digCalls, s.digMaxInFlight
}

// mockDialer hands out mockSessions and records every dial.
type mockDialer struct {
	mu       sync.Mutex
	sessions map[string]*mockSession // latest session per identity
	dials    map[string]int
	failFor  map[string]error

	// dialHook, when set, runs with the registered handlers before the
	// session is returned, simulating events that arrive mid-dial.
	dialHook func(identity string, h mc.Handlers)
}

func newMockDialer() *mockDialer {
	return &mockDialer{
		sessions: make(map[string]*mockSession),
		dials:    make(map[string]int),
		failFor:  make(map[string]error),
	}
}

func (d *mockDialer) Dial(ctx context.Context, identity string, h mc.Handlers) (mc.Session, error) {
	d.mu.Lock()
	d.dials[key(identity)]++
	err := d.failFor[key(identity)]
	hook := d.dialHook
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(identity, h)
	}
	s := &mockSession{
		name:     identity,
		handlers: h,
		self:     mc.Entity{ID: 1, Type: "player", Name: identity},
	}
	d.mu.Lock()
	d.sessions[key(identity)] = s
	d.mu.Unlock()
	return s, nil
}

func (d *mockDialer) dialCount(identity string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[key(identity)]
}

func (d *mockDialer) session(identity string) *mockSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[key(identity)]
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

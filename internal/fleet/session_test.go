package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/groblegark/stayput/internal/mc"
)

func TestEventsBeforeDialReturns_AreTolerated(t *testing.T) {
	m, d := newTestManager(t)
	d.dialHook = func(identity string, h mc.Handlers) {
		// The transport can deliver events between handler
		// registration and the dial returning.
		if h.Spawned != nil {
			h.Spawned(mc.Position{X: 1, Y: 64, Z: 1})
		}
		if h.ItemCollected != nil {
			h.ItemCollected(mc.Entity{ID: 9, Type: "player"})
		}
	}

	name := connectSlot(t, m, d, "Alice")
	if !m.connected(name) {
		t.Fatal("session did not register after mid-dial events")
	}
	if d.session(name) == nil {
		t.Fatal("dialer produced no session")
	}
}

func TestReconnect_AfterUnexpectedEnd(t *testing.T) {
	m, d := newTestManager(t)
	name := connectSlot(t, m, d, "Alice")

	d.session(name).endFromServer()

	if !waitFor(time.Second, func() bool { return d.dialCount(name) == 2 }) {
		t.Fatalf("expected a reconnect dial, got %d dials", d.dialCount(name))
	}
	if !waitFor(time.Second, func() bool { return m.connected(name) }) {
		t.Fatal("slot never reconnected")
	}
}

func TestReconnect_DedupSingleTimer(t *testing.T) {
	m, d := newTestManager(t)
	name := connectSlot(t, m, d, "Alice")

	// Two end events for the same slot within the backoff delay must
	// arm exactly one reconnect timer.
	sess := d.session(name)
	sess.endFromServer()
	m.mu.Lock()
	st := &sessionState{slot: key(name), id: "stale"}
	m.mu.Unlock()
	m.onSessionEnd(st)

	m.mu.Lock()
	pending := m.configs[key(name)].reconnectTimer != nil
	m.mu.Unlock()
	if !pending {
		t.Fatal("expected a pending reconnect timer")
	}

	time.Sleep(4 * m.cfg.ReconnectDelay)
	if got := d.dialCount(name); got != 2 {
		t.Fatalf("expected exactly 2 dials (initial + one reconnect), got %d", got)
	}
}

func TestDialFailure_RetriesWithBackoff(t *testing.T) {
	m, d := newTestManager(t)
	d.mu.Lock()
	d.failFor["bot1"] = errors.New("server unreachable")
	d.mu.Unlock()

	if _, err := m.AssignSlot("Alice"); err != nil {
		t.Fatalf("AssignSlot: %v", err)
	}

	if !waitFor(time.Second, func() bool { return d.dialCount("bot1") >= 2 }) {
		t.Fatalf("expected failed dial to retry, got %d dials", d.dialCount("bot1"))
	}

	// Let it heal.
	d.mu.Lock()
	delete(d.failFor, "bot1")
	d.mu.Unlock()
	if !waitFor(time.Second, func() bool { return m.connected("bot1") }) {
		t.Fatal("slot never connected after dial failures cleared")
	}
}

func TestPrimary_ConnectsWithChatHandlerAndReconnects(t *testing.T) {
	m, d := newTestManager(t)
	m.Start()

	if !waitFor(time.Second, func() bool { return m.connected(primaryName) }) {
		t.Fatal("primary session never connected")
	}
	sess := d.session(primaryName)
	if sess.handlers.ChatReceived == nil {
		t.Error("primary session must carry the chat handler")
	}

	sess.endFromServer()
	if !waitFor(time.Second, func() bool { return d.dialCount(primaryName) == 2 }) {
		t.Fatalf("expected primary reconnect, got %d dials", d.dialCount(primaryName))
	}
	if !waitFor(time.Second, func() bool {
		s := d.session(primaryName)
		return s != nil && s.handlers.ChatReceived != nil && m.connected(primaryName)
	}) {
		t.Fatal("reconnected primary lost its chat handler")
	}

	// Owned sessions never parse chat.
	connectSlot(t, m, d, "Alice")
	if d.session("bot1").handlers.ChatReceived != nil {
		t.Error("owned session must not carry the chat handler")
	}
}

func TestShutdown_NoResurrection(t *testing.T) {
	m, d := newTestManager(t)
	m.Start()
	if !waitFor(time.Second, func() bool { return m.connected(primaryName) }) {
		t.Fatal("primary session never connected")
	}
	name := connectSlot(t, m, d, "Alice")

	primaryDials := d.dialCount(primaryName)
	ownedDials := d.dialCount(name)
	m.Shutdown()

	time.Sleep(4 * m.cfg.ReconnectDelay)
	if got := d.dialCount(primaryName); got != primaryDials {
		t.Errorf("primary resurrected after shutdown: %d -> %d dials", primaryDials, got)
	}
	if got := d.dialCount(name); got != ownedDials {
		t.Errorf("owned slot resurrected after shutdown: %d -> %d dials", ownedDials, got)
	}
	if m.connected(primaryName) || m.connected(name) {
		t.Error("expected no live sessions after shutdown")
	}
}

func TestRelease_EndsLiveSession(t *testing.T) {
	m, d := newTestManager(t)
	name := connectSlot(t, m, d, "Alice")

	sess := d.session(name)
	if _, err := m.ReleaseSlot("alice", ""); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	sess.mu.Lock()
	ended := sess.ended
	sess.mu.Unlock()
	if !ended {
		t.Error("released slot's session should be ended")
	}
	if m.connected(name) {
		t.Error("released slot should not stay registered")
	}
}

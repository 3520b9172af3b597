package fleet

import (
	"time"

	"github.com/groblegark/stayput/internal/events"
	"github.com/groblegark/stayput/internal/idgen"
	"github.com/groblegark/stayput/internal/mc"
	"github.com/groblegark/stayput/internal/tool"
)

// createSession dials a new connection for the named slot and registers
// it in the session map. At most one attempt is in flight per slot: a
// pending reconnect timer is cancelled first and a dialing flag blocks
// concurrent attempts from the sweep and the backoff timer.
func (m *Manager) createSession(name string) {
	slotKey := key(name)

	m.mu.Lock()
	cfg, ok := m.configs[slotKey]
	if !ok || m.shuttingDown {
		m.mu.Unlock()
		return
	}
	if cfg.reconnectTimer != nil {
		cfg.reconnectTimer.Stop()
		cfg.reconnectTimer = nil
	}
	if _, live := m.sessions[slotKey]; live || cfg.dialing {
		m.mu.Unlock()
		return
	}
	cfg.dialing = true
	role := cfg.role
	m.mu.Unlock()

	sid, err := idgen.Generate()
	if err != nil {
		sid = slotKey
	}
	st := &sessionState{
		id:         sid,
		slot:       slotKey,
		warned:     make(map[tool.Kind]bool),
		lastCounts: make(map[tool.Kind]int),
	}

	h := mc.Handlers{
		Spawned:       func(pos mc.Position) { m.onSpawned(st, pos) },
		ItemCollected: func(collector mc.Entity) { m.onItemCollected(st, collector) },
		Kicked: func(reason string) {
			m.logger.Warn("session kicked", "slot", st.slot, "session_id", st.id, "reason", reason)
			m.publish(events.TopicSessionKicked, events.SessionKicked{Slot: st.slot, Reason: reason})
		},
		Errored: func(err error) {
			m.logger.Error("session error", "slot", st.slot, "session_id", st.id, "err", err)
		},
		Ended: func() { m.onSessionEnd(st) },
	}
	if role == RolePrimary {
		h.ChatReceived = m.HandleChat
	}

	sess, err := m.dialer.Dial(m.ctx, name, h)
	if err == nil {
		st.mu.Lock()
		st.sess = sess
		st.mu.Unlock()
	}

	m.mu.Lock()
	cfg.dialing = false
	if err != nil {
		m.logger.Error("session dial failed", "slot", slotKey, "err", err)
		if cfg.reconnect && !m.shuttingDown {
			m.scheduleReconnectLocked(cfg)
		}
		m.mu.Unlock()
		return
	}
	if m.shuttingDown || m.configs[slotKey] != cfg {
		// Released or shut down while the dial was in flight.
		m.mu.Unlock()
		sess.End()
		return
	}
	m.sessions[slotKey] = st
	m.mu.Unlock()

	m.logger.Info("session connected", "slot", slotKey, "session_id", st.id)
	m.startToolLoop(st)
}

// onSpawned runs when a session has joined the world. The spawn event
// can arrive before the dial returns; the census is skipped then and
// redone on the first pickup.
func (m *Manager) onSpawned(st *sessionState, pos mc.Position) {
	sess := st.session()
	if sess == nil {
		return
	}
	m.logger.Info("session spawned",
		"slot", st.slot, "session_id", st.id,
		"x", pos.X, "y", pos.Y, "z", pos.Z)

	counts := tool.Count(sess.Inventory())
	st.mu.Lock()
	st.lastCounts = counts
	st.mu.Unlock()

	m.publish(events.TopicSessionUp, events.SessionUp{
		Slot: st.slot, SessionID: st.id, X: pos.X, Y: pos.Y, Z: pos.Z,
	})
}

// onSessionEnd tears a session down: every loop stops, the state is
// removed, and a reconnect is scheduled when the slot's desired state
// still wants it up.
func (m *Manager) onSessionEnd(st *sessionState) {
	m.mu.Lock()
	if m.sessions[st.slot] == st {
		delete(m.sessions, st.slot)
	}
	m.stopLoopsLocked(st)
	cfg := m.configs[st.slot]
	reconnecting := cfg != nil && cfg.reconnect && !m.shuttingDown
	if reconnecting {
		m.scheduleReconnectLocked(cfg)
	}
	m.mu.Unlock()

	m.logger.Info("session ended", "slot", st.slot, "session_id", st.id, "reconnecting", reconnecting)
	m.publish(events.TopicSessionDown, events.SessionDown{
		Slot: st.slot, SessionID: st.id, Reconnecting: reconnecting,
	})
}

// scheduleReconnectLocked arms the backoff timer for a slot, unless one
// is already pending. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked(cfg *botConfig) {
	if !cfg.reconnect || cfg.reconnectTimer != nil {
		return
	}
	slotKey := key(cfg.name)
	cfg.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		cfg.reconnectTimer = nil
		ok := cfg.reconnect && !m.shuttingDown && m.configs[slotKey] == cfg
		m.mu.Unlock()
		if ok {
			m.logger.Info("reconnecting", "slot", slotKey)
			m.createSession(cfg.name)
		}
	})
}

package fleet

import (
	"time"

	"github.com/groblegark/stayput/internal/events"
	"github.com/groblegark/stayput/internal/schedule"
)

// sweepLoop periodically re-derives every slot's desired connection
// state from the wall clock. Enforcement latency is bounded by one
// sweep period.
func (m *Manager) sweepLoop() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.EnforceAll(time.Now())
		}
	}
}

// EnforceAll applies schedule enforcement to every configured slot.
func (m *Manager) EnforceAll(now time.Time) {
	m.mu.Lock()
	cfgs := make([]*botConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		cfgs = append(cfgs, cfg)
	}
	m.mu.Unlock()

	for _, cfg := range cfgs {
		m.enforceOne(cfg, now)
	}
}

// enforceOne brings one slot in line with its window: inside the window
// the slot reconnects and, if fully down, is dialed; outside it every
// pending reconnect is cancelled and the live session is ended. The
// reconnect flag flips before the session ends, so an out-of-window
// disconnect never self-heals.
func (m *Manager) enforceOne(cfg *botConfig, now time.Time) {
	m.mu.Lock()
	if m.shuttingDown || m.configs[key(cfg.name)] != cfg {
		m.mu.Unlock()
		return
	}

	inWindow := cfg.window == nil || cfg.window.ActiveAt(now)
	cfg.reconnect = inWindow

	if inWindow {
		_, live := m.sessions[key(cfg.name)]
		needsDial := !live && cfg.reconnectTimer == nil && !cfg.dialing
		m.mu.Unlock()
		if needsDial {
			go m.createSession(cfg.name)
		}
		return
	}

	if cfg.reconnectTimer != nil {
		cfg.reconnectTimer.Stop()
		cfg.reconnectTimer = nil
	}
	st := m.sessions[key(cfg.name)]
	if st != nil {
		m.stopLoopsLocked(st)
	}
	m.mu.Unlock()

	if st != nil {
		m.logger.Info("slot out of window, disconnecting", "slot", cfg.name, "window", cfg.window.Raw)
		if sess := st.session(); sess != nil {
			sess.End()
		}
	}
}

// SetSchedule parses rangeText (or the "off" token) and stores it on
// the owner's resolved slot, then enforces it immediately so the effect
// is not deferred to the next sweep.
func (m *Manager) SetSchedule(owner, requested, rangeText string) (string, error) {
	m.mu.Lock()
	cfg, err := m.resolve(owner, requested)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	if key(rangeText) == schedule.Off {
		cfg.window = nil
		name := cfg.name
		m.mu.Unlock()

		m.enforceOne(cfg, time.Now())
		m.publish(events.TopicScheduleSet, events.ScheduleSet{Slot: name})
		return name, nil
	}

	w, err := schedule.Parse(rangeText)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	cfg.window = &w
	name := cfg.name
	m.mu.Unlock()

	m.logger.Info("schedule set", "slot", name, "window", w.Raw)
	m.enforceOne(cfg, time.Now())
	m.publish(events.TopicScheduleSet, events.ScheduleSet{Slot: name, Window: w.Raw})
	return name, nil
}

// WindowFor reports the stored window for an owner's slot. Used by
// tests and the status endpoint; commands go through SetSchedule.
func (m *Manager) WindowFor(owner, requested string) (*schedule.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, err := m.resolve(owner, requested)
	if err != nil {
		return nil, err
	}
	return cfg.window, nil
}

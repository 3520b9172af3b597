package fleet

import (
	"time"

	"github.com/groblegark/stayput/internal/events"
	"github.com/groblegark/stayput/internal/mc"
	"github.com/groblegark/stayput/internal/tool"
)

// collectSettle is how long the tool census waits after a pickup event,
// so the inventory snapshot includes the collected stack.
const collectSettle = 200 * time.Millisecond

// StartBreaking starts the auto-break loop on the owner's slot.
// Starting an already-running loop is a no-op.
func (m *Manager) StartBreaking(owner, requested string) (string, error) {
	st, name, err := m.resolveLive(owner, requested)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if st.breakStop == nil {
		st.breakStop = make(chan struct{})
		go m.runLoop(st, st.breakStop, m.cfg.BreakInterval, &st.breakGate, m.breakTick)
	}
	m.mu.Unlock()
	return name, nil
}

// StopBreaking stops the auto-break loop and any dig in progress.
func (m *Manager) StopBreaking(owner, requested string) (string, error) {
	st, name, err := m.resolveLive(owner, requested)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if st.breakStop != nil {
		close(st.breakStop)
		st.breakStop = nil
	}
	m.mu.Unlock()

	if sess := st.session(); sess != nil && sess.Digging() {
		sess.StopDigging()
	}
	return name, nil
}

// StartAttacking starts the auto-attack loop on the owner's slot.
func (m *Manager) StartAttacking(owner, requested string) (string, error) {
	st, name, err := m.resolveLive(owner, requested)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if st.attackStop == nil {
		st.attackStop = make(chan struct{})
		go m.runLoop(st, st.attackStop, m.cfg.AttackInterval, &st.attackGate, m.attackTick)
	}
	m.mu.Unlock()
	return name, nil
}

// StopAttacking stops the auto-attack loop.
func (m *Manager) StopAttacking(owner, requested string) (string, error) {
	st, name, err := m.resolveLive(owner, requested)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if st.attackStop != nil {
		close(st.attackStop)
		st.attackStop = nil
	}
	m.mu.Unlock()
	return name, nil
}

// resolveLive authorizes the owner and requires a live session for the
// resolved slot.
func (m *Manager) resolveLive(owner, requested string) (*sessionState, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, err := m.resolve(owner, requested)
	if err != nil {
		return nil, "", err
	}
	st, ok := m.sessions[key(cfg.name)]
	if !ok {
		return nil, "", ErrSessionNotConnected
	}
	return st, cfg.name, nil
}

// startToolLoop begins the always-on tool-readiness loop for a freshly
// connected session.
func (m *Manager) startToolLoop(st *sessionState) {
	m.mu.Lock()
	if m.sessions[st.slot] != st {
		// Session already torn down again.
		m.mu.Unlock()
		return
	}
	if st.toolStop == nil {
		st.toolStop = make(chan struct{})
		go m.runLoop(st, st.toolStop, m.cfg.ToolInterval, &st.toolGate, m.toolTick)
	}
	m.mu.Unlock()
}

// stopLoopsLocked cancels all three loops so no stale tick fires
// against a torn-down session. Caller holds m.mu.
func (m *Manager) stopLoopsLocked(st *sessionState) {
	for _, stop := range []*chan struct{}{&st.toolStop, &st.breakStop, &st.attackStop} {
		if *stop != nil {
			close(*stop)
			*stop = nil
		}
	}
	st.toolGate.release()
	st.breakGate.release()
	st.attackGate.release()
}

// runLoop drives one automation loop. Each tick runs in its own
// goroutine guarded by the loop's gate: a tick that fires while the
// previous one is still in flight is skipped, never queued.
func (m *Manager) runLoop(st *sessionState, stop <-chan struct{}, interval time.Duration, g *gate, tick func(*sessionState)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.tryAcquire() {
				continue
			}
			go func() {
				defer g.release()
				tick(st)
			}()
		}
	}
}

// breakTick digs the block the session is looking at. Errors are
// logged and never stop the loop.
func (m *Manager) breakTick(st *sessionState) {
	s := st.session()
	if s == nil || s.Digging() {
		return
	}
	m.ensureToolReady(st)
	block := s.BlockAtCursor()
	if block == nil || block.Type == 0 {
		return
	}
	if err := s.Dig(m.ctx, *block, mc.DigRaycast); err != nil {
		m.logger.Error("auto-break dig failed", "slot", st.slot, "session_id", st.id, "err", err)
	}
}

// attackTick attacks the nearest hostile or player entity, cancelling
// any dig in progress first.
func (m *Manager) attackTick(st *sessionState) {
	s := st.session()
	if s == nil {
		return
	}
	self := s.Self()
	enemy := s.NearestEntity(func(e mc.Entity) bool {
		return e.ID != self.ID && (e.Type == "mob" || e.Type == "player")
	})
	if enemy == nil {
		return
	}
	if s.Digging() {
		s.StopDigging()
	}
	if err := s.Attack(m.ctx, *enemy); err != nil {
		m.logger.Error("auto-attack failed", "slot", st.slot, "session_id", st.id, "err", err)
	}
}

// toolTick keeps a usable tool in hand.
func (m *Manager) toolTick(st *sessionState) {
	m.ensureToolReady(st)
}

// ensureToolReady implements the tool-readiness algorithm: remember the
// kind last held, swap in the best spare when the held tool is spent,
// and warn exactly once per kind when no spare is left.
func (m *Manager) ensureToolReady(st *sessionState) {
	s := st.session()
	if s == nil {
		return
	}
	held := s.HeldItem()
	kind := tool.KindOf(held)

	st.mu.Lock()
	if kind != tool.None {
		st.lastHeldKind = kind
	}
	target := st.lastHeldKind
	st.mu.Unlock()

	if target == tool.None {
		return
	}

	if held != nil && tool.Remaining(held) > 0 {
		st.mu.Lock()
		st.warned[target] = false
		st.mu.Unlock()
		return
	}

	heldSlot := -1
	if held != nil {
		heldSlot = held.Slot
	}
	spare := tool.BestSpare(s.Inventory(), target, heldSlot)
	if spare != nil {
		if err := s.Equip(m.ctx, *spare); err != nil {
			m.logger.Error("tool equip failed", "slot", st.slot, "session_id", st.id, "err", err)
			return
		}
		st.mu.Lock()
		st.warned[target] = false
		st.mu.Unlock()
		return
	}

	st.mu.Lock()
	alreadyWarned := st.warned[target]
	st.warned[target] = true
	st.mu.Unlock()
	if !alreadyWarned {
		s.SendChat(outOfToolsMessage(target))
		m.publish(events.TopicToolDepleted, events.ToolDepleted{Slot: st.slot, Kind: string(target)})
	}
}

// onItemCollected recomputes the per-kind tool census shortly after the
// session picks something up and announces kinds whose count grew.
func (m *Manager) onItemCollected(st *sessionState, collector mc.Entity) {
	sess := st.session()
	if sess == nil || collector.ID != sess.Self().ID {
		return
	}
	time.AfterFunc(collectSettle, func() { m.announceNewTools(st) })
}

func (m *Manager) announceNewTools(st *sessionState) {
	m.mu.Lock()
	live := m.sessions[st.slot] == st
	m.mu.Unlock()
	if !live {
		return
	}
	sess := st.session()
	if sess == nil {
		return
	}

	counts := tool.Count(sess.Inventory())

	st.mu.Lock()
	var gained []tool.Kind
	for _, k := range tool.Kinds {
		if counts[k] > st.lastCounts[k] {
			gained = append(gained, k)
			st.warned[k] = false
		}
	}
	st.lastCounts = counts
	st.mu.Unlock()

	for _, k := range gained {
		sess.SendChat(receivedToolMessage(k))
		m.publish(events.TopicToolReceived, events.ToolReceived{Slot: st.slot, Kind: string(k)})
	}
}

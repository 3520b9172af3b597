package fleet

import "github.com/groblegark/stayput/internal/events"

// AssignSlot gives the first unoccupied slot from the pool to owner and
// asynchronously starts its session. An owner holds at most one slot.
func (m *Manager) AssignSlot(owner string) (string, error) {
	ownerKey := key(owner)

	m.mu.Lock()
	if _, held := m.owners[ownerKey]; held {
		m.mu.Unlock()
		return "", ErrAlreadyAssigned
	}

	var name string
	for _, candidate := range m.cfg.Slots {
		if _, occupied := m.configs[key(candidate)]; !occupied {
			name = candidate
			break
		}
	}
	if name == "" {
		m.mu.Unlock()
		return "", ErrNoFreeSlot
	}

	m.configs[key(name)] = &botConfig{
		name:      name,
		role:      RoleOwned,
		owner:     ownerKey,
		reconnect: true,
	}
	m.owners[ownerKey] = key(name)
	m.mu.Unlock()

	m.logger.Info("slot assigned", "slot", name, "owner", ownerKey)
	m.publish(events.TopicSlotAssigned, events.SlotAssigned{Slot: name, Owner: ownerKey})
	go m.createSession(name)
	return name, nil
}

// ReleaseSlot is the only path that permanently frees a slot: it
// disables reconnection, cancels any pending backoff timer, removes the
// config and the owner assignment, and ends the live session if any.
// requested may name a slot explicitly; empty means the owner's own.
func (m *Manager) ReleaseSlot(owner, requested string) (string, error) {
	ownerKey := key(owner)

	m.mu.Lock()
	target := requested
	if target == "" {
		target = m.owners[ownerKey]
	}
	if target == "" {
		m.mu.Unlock()
		return "", ErrNoSlotHeld
	}

	cfg, ok := m.configs[key(target)]
	if !ok || cfg.role != RoleOwned {
		m.mu.Unlock()
		return "", ErrSlotNotFound
	}
	if cfg.owner != ownerKey {
		m.mu.Unlock()
		return "", ErrNotOwner
	}

	cfg.reconnect = false
	if cfg.reconnectTimer != nil {
		cfg.reconnectTimer.Stop()
		cfg.reconnectTimer = nil
	}
	delete(m.configs, key(target))
	delete(m.owners, ownerKey)
	st := m.sessions[key(target)]
	m.mu.Unlock()

	if st != nil {
		if sess := st.session(); sess != nil {
			sess.End()
		}
	}

	m.logger.Info("slot released", "slot", cfg.name, "owner", ownerKey)
	m.publish(events.TopicSlotReleased, events.SlotReleased{Slot: cfg.name, Owner: ownerKey})
	return cfg.name, nil
}

// resolve maps an owner (and an optional explicit slot name) to that
// owner's botConfig. Every owner-scoped command goes through here; it
// is the authorization boundary. Caller holds m.mu.
func (m *Manager) resolve(owner, requested string) (*botConfig, error) {
	ownerKey := key(owner)
	target := requested
	if target == "" {
		target = m.owners[ownerKey]
	}
	if target == "" {
		return nil, ErrNoSlotHeld
	}
	cfg, ok := m.configs[key(target)]
	if !ok || cfg.role != RoleOwned {
		return nil, ErrSlotNotFound
	}
	if cfg.owner != ownerKey {
		return nil, ErrNotOwner
	}
	return cfg, nil
}

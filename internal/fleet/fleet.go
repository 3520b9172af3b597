// Package fleet is the session lifecycle manager: it assigns bot slots
// to owners, keeps each session connected under churn, enforces
// per-slot availability windows, routes chat commands, and runs the
// per-session automation loops.
//
// All durable shared state (the slot pool, the owner map, the config
// map, the live-session map) is guarded by one coarse mutex on the
// Manager. External calls to the game service never happen under that
// mutex; every callback re-validates its target under the mutex before
// mutating.
package fleet

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/groblegark/stayput/internal/config"
	"github.com/groblegark/stayput/internal/events"
	"github.com/groblegark/stayput/internal/mc"
	"github.com/groblegark/stayput/internal/schedule"
	"github.com/groblegark/stayput/internal/tool"
)

// Role distinguishes the always-present primary session from
// owner-assigned slots.
type Role int

const (
	RolePrimary Role = iota
	RoleOwned
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "owned"
}

// botConfig is the desired state of one slot. Mutated only under
// Manager.mu.
type botConfig struct {
	name  string // display name (original casing)
	role  Role
	owner string // normalized owner key, RoleOwned only

	reconnect      bool
	reconnectTimer *time.Timer // pending backoff, nil when none
	dialing        bool        // a dial attempt is in flight

	window *schedule.Window // nil = always active
}

// sessionState is the runtime state of one live connection attempt.
// sess, the maps, and the kind field are guarded by its own mu; the
// loop stop channels are guarded by Manager.mu.
type sessionState struct {
	id   string // idgen correlation id
	slot string // lower-cased slot key

	toolStop   chan struct{}
	breakStop  chan struct{}
	attackStop chan struct{}

	toolGate   gate
	breakGate  gate
	attackGate gate

	mu           sync.Mutex
	sess         mc.Session // nil until the dial completes
	lastHeldKind tool.Kind
	warned       map[tool.Kind]bool
	lastCounts   map[tool.Kind]int
}

// session returns the live connection, or nil while the dial is still
// in flight. Event handlers are registered before the dial returns, so
// early callbacks must tolerate the nil.
func (st *sessionState) session() mc.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess
}

// Manager owns the fleet.
type Manager struct {
	dialer mc.Dialer
	pub    events.Publisher
	logger *slog.Logger
	cfg    config.Fleet

	primaryName string
	primaryKey  string

	mu           sync.Mutex
	owners       map[string]string        // owner key -> slot key
	configs      map[string]*botConfig    // slot key -> desired state
	sessions     map[string]*sessionState // slot key -> live session
	shuttingDown bool

	ctx    context.Context
	cancel context.CancelFunc

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates a fleet manager. primaryName is the identity of the
// always-present session that receives chat commands.
func New(dialer mc.Dialer, pub events.Publisher, logger *slog.Logger, cfg config.Fleet, primaryName string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dialer:      dialer,
		pub:         pub,
		logger:      logger,
		cfg:         cfg,
		primaryName: primaryName,
		primaryKey:  key(primaryName),
		owners:      make(map[string]string),
		configs:     make(map[string]*botConfig),
		sessions:    make(map[string]*sessionState),
		ctx:         ctx,
		cancel:      cancel,
	}
	m.configs[m.primaryKey] = &botConfig{
		name:      primaryName,
		role:      RolePrimary,
		reconnect: true,
	}
	return m
}

// Start connects the primary session and begins the schedule sweep.
func (m *Manager) Start() {
	m.sweepStop = make(chan struct{})
	m.sweepDone = make(chan struct{})
	go m.sweepLoop()
	go m.createSession(m.primaryName)
}

// Shutdown disables every reconnect, cancels every pending backoff
// timer, and ends every live session. No session self-resurrects after
// it returns. Calling Shutdown more than once is a no-op.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return
	}
	m.shuttingDown = true
	for _, cfg := range m.configs {
		cfg.reconnect = false
		if cfg.reconnectTimer != nil {
			cfg.reconnectTimer.Stop()
			cfg.reconnectTimer = nil
		}
	}
	live := make([]*sessionState, 0, len(m.sessions))
	for _, st := range m.sessions {
		m.stopLoopsLocked(st)
		live = append(live, st)
	}
	m.mu.Unlock()

	for _, st := range live {
		if sess := st.session(); sess != nil {
			sess.End()
		}
	}

	if m.sweepStop != nil {
		close(m.sweepStop)
		<-m.sweepDone
	}
	m.cancel()
	m.logger.Info("fleet shut down", "sessions_ended", len(live))
}

// SlotStatus is a point-in-time view of one slot, served by the HTTP
// status endpoint.
type SlotStatus struct {
	Slot             string `json:"slot"`
	Role             string `json:"role"`
	Owner            string `json:"owner,omitempty"`
	Connected        bool   `json:"connected"`
	SessionID        string `json:"session_id,omitempty"`
	Schedule         string `json:"schedule,omitempty"`
	ReconnectEnabled bool   `json:"reconnect_enabled"`
	ReconnectPending bool   `json:"reconnect_pending"`
	AutoBreak        bool   `json:"auto_break"`
	AutoAttack       bool   `json:"auto_attack"`
}

// Snapshot returns the status of every configured slot, primary first,
// then owned slots in pool order.
func (m *Manager) Snapshot() []SlotStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SlotStatus, 0, len(m.configs))
	appendSlot := func(cfg *botConfig) {
		s := SlotStatus{
			Slot:             cfg.name,
			Role:             cfg.role.String(),
			Owner:            cfg.owner,
			ReconnectEnabled: cfg.reconnect,
			ReconnectPending: cfg.reconnectTimer != nil,
		}
		if cfg.window != nil {
			s.Schedule = cfg.window.Raw
		}
		if st, ok := m.sessions[key(cfg.name)]; ok {
			s.Connected = true
			s.SessionID = st.id
			s.AutoBreak = st.breakStop != nil
			s.AutoAttack = st.attackStop != nil
		}
		out = append(out, s)
	}

	if cfg, ok := m.configs[m.primaryKey]; ok {
		appendSlot(cfg)
	}
	for _, name := range m.cfg.Slots {
		if cfg, ok := m.configs[key(name)]; ok {
			appendSlot(cfg)
		}
	}
	return out
}

// publish emits a lifecycle event without blocking fleet mutations on
// the bus.
func (m *Manager) publish(topic string, event any) {
	if err := m.pub.Publish(context.Background(), topic, event); err != nil {
		m.logger.Error("event publish failed", "topic", topic, "err", err)
	}
}

// key normalizes slot and owner names for map lookups.
func key(name string) string {
	return strings.ToLower(name)
}

// Package mc defines the abstraction over the game-session protocol
// client. The fleet core only ever talks to these interfaces; the
// concrete transport (see internal/mcbridge) is wired in at startup.
package mc

import "context"

// Position is a point in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Entity is a live entity visible to a session. Type is the coarse
// protocol classification ("mob", "player", "object", ...).
type Entity struct {
	ID       int32    `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	Position Position `json:"position"`
}

// Item is an inventory stack. MaxDurability of zero means the item does
// not report a durability budget.
type Item struct {
	Name           string `json:"name"`
	Slot           int    `json:"slot"`
	Count          int    `json:"count"`
	MaxDurability  int    `json:"max_durability,omitempty"`
	DurabilityUsed int    `json:"durability_used,omitempty"`
}

// Block is a world block. Type zero is air.
type Block struct {
	Type     int      `json:"type"`
	Name     string   `json:"name,omitempty"`
	Position Position `json:"position"`
}

// DigMode selects how the dig target is resolved by the protocol client.
type DigMode string

const (
	// DigRaycast digs the block along the session's line of sight.
	DigRaycast DigMode = "raycast"
)

// Handlers carries the event callbacks a session fires. Nil fields are
// simply not invoked. Registration happens exactly once, at dial time;
// teardown on Ended is the owner's responsibility.
type Handlers struct {
	// Spawned fires when the session has joined the world.
	Spawned func(pos Position)
	// ChatReceived fires for every chat line visible to the session.
	ChatReceived func(sender, text string)
	// ItemCollected fires when an entity picks up a drop; the fleet
	// filters on collector == the session's own entity.
	ItemCollected func(collector Entity)
	// Kicked fires when the server removes the session. Ended still
	// follows.
	Kicked func(reason string)
	// Errored fires on transport errors. Ended still follows for
	// terminal errors.
	Errored func(err error)
	// Ended fires exactly once when the session is gone, whatever the
	// cause. After Ended no further callbacks fire.
	Ended func()
}

// Session is one live connection to the game server. Queries are
// snapshots; actions block until the protocol client acknowledges them,
// so callers must not hold fleet locks across them.
type Session interface {
	// Name returns the in-game username of this session.
	Name() string
	// Self returns the session's own entity, zero until spawned.
	Self() Entity

	HeldItem() *Item
	Inventory() []Item
	BlockAtCursor() *Block
	// NearestEntity returns the closest entity matching pred, or nil.
	NearestEntity(pred func(Entity) bool) *Entity
	// Digging reports whether a dig action is currently targeted.
	Digging() bool

	Dig(ctx context.Context, b Block, mode DigMode) error
	StopDigging()
	Attack(ctx context.Context, e Entity) error
	// Equip moves the item to the hand slot.
	Equip(ctx context.Context, it Item) error
	SendChat(text string)

	// End closes the session. Ended fires as a consequence.
	End()
}

// Dialer produces sessions. The identity string is used as the in-game
// username for the new connection; h carries the caller's event
// callbacks, registered before any event can fire.
type Dialer interface {
	Dial(ctx context.Context, identity string, h Handlers) (Session, error)
}

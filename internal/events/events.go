package events

import (
	"context"
)

// Event topic constants
const (
	TopicSlotAssigned = "stayput.slot.assigned"
	TopicSlotReleased = "stayput.slot.released"

	// Session lifecycle events (one session = one connection attempt).
	TopicSessionUp     = "stayput.session.up"
	TopicSessionDown   = "stayput.session.down"
	TopicSessionKicked = "stayput.session.kicked"

	TopicScheduleSet = "stayput.schedule.set"

	// Tool events emitted by the tool-readiness loop.
	TopicToolDepleted = "stayput.tool.depleted"
	TopicToolReceived = "stayput.tool.received"
)

// Event types

type SlotAssigned struct {
	Slot  string `json:"slot"`
	Owner string `json:"owner"`
}

type SlotReleased struct {
	Slot  string `json:"slot"`
	Owner string `json:"owner"`
}

type SessionUp struct {
	Slot      string  `json:"slot"`
	SessionID string  `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

type SessionDown struct {
	Slot      string `json:"slot"`
	SessionID string `json:"session_id"`
	// Reconnecting is true when a backoff timer was scheduled.
	Reconnecting bool `json:"reconnecting"`
}

type SessionKicked struct {
	Slot   string `json:"slot"`
	Reason string `json:"reason"`
}

type ScheduleSet struct {
	Slot   string `json:"slot"`
	Window string `json:"window,omitempty"` // empty when cleared
}

type ToolDepleted struct {
	Slot string `json:"slot"`
	Kind string `json:"kind"`
}

type ToolReceived struct {
	Slot string `json:"slot"`
	Kind string `json:"kind"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

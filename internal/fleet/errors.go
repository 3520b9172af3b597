package fleet

import "errors"

// Validation and authorization failures surfaced to chat. These are
// never fatal: the command router converts them to reply text at the
// point of detection.
var (
	ErrAlreadyAssigned     = errors.New("owner already holds a slot")
	ErrNoFreeSlot          = errors.New("no free slot available")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrNotOwner            = errors.New("slot is held by another owner")
	ErrNoSlotHeld          = errors.New("no slot held")
	ErrSessionNotConnected = errors.New("session not connected")
)

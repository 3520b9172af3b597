// Package tool classifies inventory items into coarse tool kinds and
// ranks them by remaining durability. It holds no state; the fleet's
// tool-readiness loop drives it.
package tool

import (
	"math"
	"strings"

	"github.com/groblegark/stayput/internal/mc"
)

// Kind is a coarse tool classification derived from item names.
type Kind string

const (
	Pickaxe Kind = "pickaxe"
	Axe     Kind = "axe"
	// None marks items outside the tool taxonomy.
	None Kind = ""
)

// Kinds lists every real kind, in announcement order.
var Kinds = []Kind{Pickaxe, Axe}

// KindOf classifies an item by name suffix. Items that are not tools
// (or a nil item) map to None. "_pickaxe" is checked first so that a
// pickaxe never falls through to the "_axe" suffix.
func KindOf(it *mc.Item) Kind {
	if it == nil || it.Name == "" {
		return None
	}
	if strings.HasSuffix(it.Name, "_pickaxe") {
		return Pickaxe
	}
	if strings.HasSuffix(it.Name, "_axe") {
		return Axe
	}
	return None
}

// Remaining returns the durability budget left on an item. Items that
// report no maximum are treated as unlimited; a nil item has nothing
// left.
func Remaining(it *mc.Item) int {
	if it == nil {
		return 0
	}
	if it.MaxDurability == 0 {
		return math.MaxInt
	}
	return it.MaxDurability - it.DurabilityUsed
}

// BestSpare picks the replacement to equip for the given kind: not the
// held slot, more than one durability point left, greatest remaining
// wins, first-found wins ties. Returns nil when no spare qualifies.
func BestSpare(items []mc.Item, kind Kind, heldSlot int) *mc.Item {
	var best *mc.Item
	bestRemaining := 0
	for i := range items {
		it := &items[i]
		if KindOf(it) != kind || it.Slot == heldSlot {
			continue
		}
		if r := Remaining(it); r > 1 && r > bestRemaining {
			best = it
			bestRemaining = r
		}
	}
	return best
}

// Count tallies inventory items per kind.
func Count(items []mc.Item) map[Kind]int {
	counts := map[Kind]int{Pickaxe: 0, Axe: 0}
	for i := range items {
		if k := KindOf(&items[i]); k != None {
			counts[k]++
		}
	}
	return counts
}

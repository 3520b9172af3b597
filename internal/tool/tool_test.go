package tool

import (
	"testing"

	"github.com/groblegark/stayput/internal/mc"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		want Kind
	}{
		{"diamond_pickaxe", Pickaxe},
		{"wooden_pickaxe", Pickaxe},
		{"iron_axe", Axe},
		{"stone_axe", Axe},
		{"cobblestone", None},
		{"pickaxe_head", None},
		{"", None},
	}
	for _, tc := range cases {
		got := KindOf(&mc.Item{Name: tc.name})
		if got != tc.want {
			t.Errorf("KindOf(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
	if KindOf(nil) != None {
		t.Error("KindOf(nil) should be None")
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(&mc.Item{MaxDurability: 100, DurabilityUsed: 30}); got != 70 {
		t.Errorf("expected 70 remaining, got %d", got)
	}
	if got := Remaining(nil); got != 0 {
		t.Errorf("expected 0 remaining for nil item, got %d", got)
	}
	// No reported maximum means the item never wears out.
	unlimited := Remaining(&mc.Item{Name: "golden_pickaxe"})
	if unlimited <= 1<<30 {
		t.Errorf("expected unlimited remaining, got %d", unlimited)
	}
}

func TestBestSpare_PicksGreatestRemaining(t *testing.T) {
	held := mc.Item{Name: "iron_pickaxe", Slot: 36, MaxDurability: 250, DurabilityUsed: 250}
	items := []mc.Item{
		held,
		{Name: "iron_pickaxe", Slot: 10, MaxDurability: 250, DurabilityUsed: 240}, // 10 left
		{Name: "iron_pickaxe", Slot: 11, MaxDurability: 250, DurabilityUsed: 210}, // 40 left
	}
	spare := BestSpare(items, Pickaxe, held.Slot)
	if spare == nil {
		t.Fatal("expected a spare")
	}
	if spare.Slot != 11 {
		t.Errorf("expected the 40-durability spare in slot 11, got slot %d", spare.Slot)
	}
}

func TestBestSpare_SkipsHeldSlotAndWrongKind(t *testing.T) {
	items := []mc.Item{
		{Name: "iron_pickaxe", Slot: 36, MaxDurability: 250, DurabilityUsed: 100},
		{Name: "iron_axe", Slot: 12, MaxDurability: 250, DurabilityUsed: 0},
	}
	if spare := BestSpare(items, Pickaxe, 36); spare != nil {
		t.Errorf("expected no spare, got slot %d", spare.Slot)
	}
}

func TestBestSpare_RequiresMoreThanOneDurability(t *testing.T) {
	items := []mc.Item{
		{Name: "iron_pickaxe", Slot: 10, MaxDurability: 250, DurabilityUsed: 249}, // 1 left
	}
	if spare := BestSpare(items, Pickaxe, 36); spare != nil {
		t.Error("a spare with 1 durability left should not qualify")
	}
	items[0].DurabilityUsed = 248 // 2 left
	if spare := BestSpare(items, Pickaxe, 36); spare == nil {
		t.Error("a spare with 2 durability left should qualify")
	}
}

func TestBestSpare_StableTieBreak(t *testing.T) {
	items := []mc.Item{
		{Name: "iron_pickaxe", Slot: 5, MaxDurability: 250, DurabilityUsed: 200},
		{Name: "iron_pickaxe", Slot: 9, MaxDurability: 250, DurabilityUsed: 200},
	}
	spare := BestSpare(items, Pickaxe, 36)
	if spare == nil || spare.Slot != 5 {
		t.Errorf("expected first-found slot 5 to win the tie, got %v", spare)
	}
}

func TestCount(t *testing.T) {
	items := []mc.Item{
		{Name: "iron_pickaxe", Slot: 1},
		{Name: "stone_pickaxe", Slot: 2},
		{Name: "iron_axe", Slot: 3},
		{Name: "dirt", Slot: 4},
	}
	counts := Count(items)
	if counts[Pickaxe] != 2 {
		t.Errorf("expected 2 pickaxes, got %d", counts[Pickaxe])
	}
	if counts[Axe] != 1 {
		t.Errorf("expected 1 axe, got %d", counts[Axe])
	}
}

package engine

import (
	"encoding/json"

	"killboard/internal/domain"
)

// Slot is the semantic equipment position class derived from an item row's
// positional flag.
type Slot string

const (
	SlotHigh      Slot = "high"
	SlotMid       Slot = "mid"
	SlotLow       Slot = "low"
	SlotRig       Slot = "rig"
	SlotSubsystem Slot = "subsystem"
	SlotDroneBay  Slot = "drone_bay"
	SlotCargo     Slot = "cargo"
	SlotOther     Slot = "other"
)

// positionalSlots are the categories with a fixed flag list; modules in them
// occupy one physical position each on the fitting wheel.
var positionalSlots = map[Slot]struct{}{
	SlotHigh:      {},
	SlotMid:       {},
	SlotLow:       {},
	SlotRig:       {},
	SlotSubsystem: {},
}

// ClassifyFlag maps a raw positional flag to its slot. Total: every integer
// maps to exactly one slot.
func ClassifyFlag(flag int) Slot {
	switch {
	case flag >= 27 && flag <= 34:
		return SlotHigh
	case flag >= 19 && flag <= 26:
		return SlotMid
	case flag >= 11 && flag <= 18:
		return SlotLow
	case flag >= 92 && flag <= 94:
		return SlotRig
	case flag >= 125 && flag <= 128:
		return SlotSubsystem
	case flag == 87:
		return SlotDroneBay
	case flag == 5:
		return SlotCargo
	default:
		return SlotOther
	}
}

// FlagPosition returns the zero-based index of flag inside its slot's fixed
// flag list (High 27..34 -> 0..7, and so on). Non-positional slots always
// return 0.
func FlagPosition(flag int) int {
	switch ClassifyFlag(flag) {
	case SlotHigh:
		return flag - 27
	case SlotMid:
		return flag - 19
	case SlotLow:
		return flag - 11
	case SlotRig:
		return flag - 92
	case SlotSubsystem:
		return flag - 125
	default:
		return 0
	}
}

// IsPositional reports whether slot has a fixed one-module-per-flag layout.
func IsPositional(slot Slot) bool {
	_, ok := positionalSlots[slot]
	return ok
}

// ammoCategoryID marks charge/ammunition types in the static type data.
const ammoCategoryID = 8

// rawTypeMeta is the subset of the semi-structured SDE payload the ammo
// check falls back to when the structured category is missing.
type rawTypeMeta struct {
	CategoryID *int64 `json:"categoryID"`
}

// IsAmmo reports whether t is a charge/ammunition type. The structured
// category field wins when present; otherwise the raw metadata payload is
// parsed, and any parse failure counts as "not ammo".
func IsAmmo(t domain.TypeInfo) bool {
	if t.CategoryID != nil {
		return *t.CategoryID == ammoCategoryID
	}
	if len(t.RawMeta) == 0 {
		return false
	}
	var meta rawTypeMeta
	if err := json.Unmarshal(t.RawMeta, &meta); err != nil {
		return false
	}
	return meta.CategoryID != nil && *meta.CategoryID == ammoCategoryID
}

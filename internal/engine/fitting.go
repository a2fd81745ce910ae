package engine

import (
	"sort"

	"killboard/internal/domain"
)

// GroupedItem is one merged entry of the grouped item-list projection: all
// rows of one type inside one slot, summed for a single outcome.
type GroupedItem struct {
	TypeID    int64   `json:"type_id"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Value     float64 `json:"value"`
}

// GroupedItems maps slot -> merged entries in encounter order.
type GroupedItems map[Slot][]GroupedItem

// FittingSlot is one physical position of the fitting wheel. Ammo loaded
// into the module at the same flag is attached as a nested entry.
type FittingSlot struct {
	TypeID    int64        `json:"type_id"`
	Name      string       `json:"name"`
	Quantity  int64        `json:"quantity"`
	Flag      int          `json:"flag"`
	Ammo      *FittingSlot `json:"ammo,omitempty"`
	UnitPrice float64      `json:"unit_price"`
	Value     float64      `json:"value"`
}

// FittingWheel maps slot -> occupied positions ordered by flag. Slot
// categories with no modules are absent, not present-but-empty.
type FittingWheel map[Slot][]FittingSlot

// typeName looks up a display name, falling back to the documented
// placeholder for unresolved types.
func typeName(types map[int64]domain.TypeInfo, typeID int64) string {
	if t, ok := types[typeID]; ok && t.Name != "" {
		return t.Name
	}
	return "Unknown"
}

// GroupItems builds the destroyed and dropped grouped projections from raw
// item rows. A row contributes to both projections independently: its
// destroyed quantity to one, its dropped quantity to the other, never mixed.
func GroupItems(items []domain.KillmailItem, types map[int64]domain.TypeInfo) (destroyed, dropped GroupedItems) {
	destroyed = groupBy(items, types, func(it domain.KillmailItem) int64 { return it.QuantityDestroyed })
	dropped = groupBy(items, types, func(it domain.KillmailItem) int64 { return it.QuantityDropped })
	return destroyed, dropped
}

func groupBy(items []domain.KillmailItem, types map[int64]domain.TypeInfo, quantity func(domain.KillmailItem) int64) GroupedItems {
	grouped := make(GroupedItems)
	index := make(map[Slot]map[int64]int)
	for _, it := range items {
		qty := quantity(it)
		if qty <= 0 {
			continue
		}
		slot := ClassifyFlag(it.Flag)
		if index[slot] == nil {
			index[slot] = make(map[int64]int)
		}
		if i, ok := index[slot][it.TypeID]; ok {
			grouped[slot][i].Quantity += qty
			continue
		}
		index[slot][it.TypeID] = len(grouped[slot])
		grouped[slot] = append(grouped[slot], GroupedItem{
			TypeID:   it.TypeID,
			Name:     typeName(types, it.TypeID),
			Quantity: qty,
		})
	}
	return grouped
}

// ammoCharge is the combined ammo found at one flag. Attachment is decided
// on the combined destroyed+dropped quantity; a charge is shown with the
// module it was loaded in regardless of which side of the loot split it
// landed on.
type ammoCharge struct {
	typeID   int64
	quantity int64
}

// BuildFittingWheel builds the destroyed and dropped positional layouts.
// Non-ammo modules occupy the position their flag denotes; ammo rows are
// never placed on their own and instead attach to the module sharing their
// exact flag. Ammo at a flag with no module is dropped silently.
func BuildFittingWheel(items []domain.KillmailItem, types map[int64]domain.TypeInfo) (destroyed, dropped FittingWheel) {
	ammoByFlag := make(map[int]ammoCharge)
	for _, it := range items {
		if !IsAmmo(types[it.TypeID]) {
			continue
		}
		combined := it.QuantityDestroyed + it.QuantityDropped
		if combined <= 0 {
			continue
		}
		if charge, ok := ammoByFlag[it.Flag]; ok {
			// same charge type split across rows; a second type at the
			// same flag keeps the first
			if charge.typeID == it.TypeID {
				charge.quantity += combined
				ammoByFlag[it.Flag] = charge
			}
			continue
		}
		ammoByFlag[it.Flag] = ammoCharge{typeID: it.TypeID, quantity: combined}
	}

	destroyed = buildWheel(items, types, ammoByFlag, func(it domain.KillmailItem) int64 { return it.QuantityDestroyed })
	dropped = buildWheel(items, types, ammoByFlag, func(it domain.KillmailItem) int64 { return it.QuantityDropped })
	return destroyed, dropped
}

func buildWheel(items []domain.KillmailItem, types map[int64]domain.TypeInfo, ammoByFlag map[int]ammoCharge, quantity func(domain.KillmailItem) int64) FittingWheel {
	wheel := make(FittingWheel)
	index := make(map[Slot]map[int]int) // slot -> flag -> slice index
	attached := make(map[int]bool)      // a charge attaches to one module per flag
	for _, it := range items {
		if IsAmmo(types[it.TypeID]) {
			continue
		}
		qty := quantity(it)
		if qty <= 0 {
			continue
		}
		slot := ClassifyFlag(it.Flag)
		if index[slot] == nil {
			index[slot] = make(map[int]int)
		}
		if IsPositional(slot) {
			if i, ok := index[slot][it.Flag]; ok {
				wheel[slot][i].Quantity += qty
				continue
			}
			index[slot][it.Flag] = len(wheel[slot])
		}
		entry := FittingSlot{
			TypeID:   it.TypeID,
			Name:     typeName(types, it.TypeID),
			Quantity: qty,
			Flag:     it.Flag,
		}
		if charge, ok := ammoByFlag[it.Flag]; ok && !attached[it.Flag] {
			attached[it.Flag] = true
			entry.Ammo = &FittingSlot{
				TypeID:   charge.typeID,
				Name:     typeName(types, charge.typeID),
				Quantity: charge.quantity,
				Flag:     it.Flag,
			}
		}
		wheel[slot] = append(wheel[slot], entry)
	}

	for slot, entries := range wheel {
		if !IsPositional(slot) {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return FlagPosition(entries[i].Flag) < FlagPosition(entries[j].Flag)
		})
		wheel[slot] = entries
	}
	return wheel
}

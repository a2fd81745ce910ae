package engine

// fitSlots are the categories whose value makes up the fit value.
var fitSlots = []Slot{SlotHigh, SlotMid, SlotLow, SlotRig, SlotSubsystem}

// PriceSlots resolves unit prices for every entry of slots in place,
// including nested ammo, and returns the slice total. An entry's Value is
// quantity times unit price for the entry alone; the returned total also
// counts attached ammo.
func PriceSlots(slots []FittingSlot, prices PriceResolver) float64 {
	var total float64
	for i := range slots {
		entry := &slots[i]
		entry.UnitPrice = prices.UnitPrice(entry.TypeID)
		entry.Value = float64(entry.Quantity) * entry.UnitPrice
		total += entry.Value
		if entry.Ammo != nil {
			entry.Ammo.UnitPrice = prices.UnitPrice(entry.Ammo.TypeID)
			entry.Ammo.Value = float64(entry.Ammo.Quantity) * entry.Ammo.UnitPrice
			total += entry.Ammo.Value
		}
	}
	return total
}

// PriceWheel prices every slot category of a fitting wheel in place and
// returns the per-category totals.
func PriceWheel(wheel FittingWheel, prices PriceResolver) map[Slot]float64 {
	totals := make(map[Slot]float64, len(wheel))
	for slot, entries := range wheel {
		totals[slot] = PriceSlots(entries, prices)
	}
	return totals
}

// PriceGrouped resolves unit prices for a grouped projection in place and
// returns its total value.
func PriceGrouped(grouped GroupedItems, prices PriceResolver) float64 {
	var total float64
	for slot, entries := range grouped {
		for i := range entries {
			entry := &entries[i]
			entry.UnitPrice = prices.UnitPrice(entry.TypeID)
			entry.Value = float64(entry.Quantity) * entry.UnitPrice
			total += entry.Value
		}
		grouped[slot] = entries
	}
	return total
}

// FitValue sums the high, mid, low, rig and subsystem categories of both
// outcome wheels. Drone bay and cargo are valued as groups, not as part of
// the fit.
func FitValue(destroyed, dropped map[Slot]float64) float64 {
	var total float64
	for _, slot := range fitSlots {
		total += destroyed[slot] + dropped[slot]
	}
	return total
}

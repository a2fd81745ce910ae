package engine

import (
	"testing"
)

type fixedPrices map[int64]float64

func (p fixedPrices) UnitPrice(typeID int64) float64 { return p[typeID] }

func TestPriceSlotsIncludesAmmo(t *testing.T) {
	slots := []FittingSlot{
		{
			TypeID:   100,
			Quantity: 1,
			Flag:     27,
			Ammo:     &FittingSlot{TypeID: 102, Quantity: 5, Flag: 27},
		},
	}
	prices := fixedPrices{100: 100, 102: 2}

	total := PriceSlots(slots, prices)

	if total != 110 {
		t.Errorf("total = %v, want module 100 + ammo 10 = 110", total)
	}
	if slots[0].Value != 100 {
		t.Errorf("module value = %v, want 100", slots[0].Value)
	}
	if slots[0].Ammo.Value != 10 {
		t.Errorf("ammo value = %v, want 10", slots[0].Ammo.Value)
	}
}

func TestPriceSlotsUnknownPriceContributesZero(t *testing.T) {
	slots := []FittingSlot{
		{TypeID: 100, Quantity: 3, Flag: 27},
		{TypeID: 101, Quantity: 1, Flag: 28},
	}
	total := PriceSlots(slots, fixedPrices{101: 50})

	if total != 50 {
		t.Errorf("total = %v, want 50 with the unpriced module contributing 0", total)
	}
	if slots[0].Value != 0 {
		t.Errorf("unpriced module value = %v, want 0", slots[0].Value)
	}
}

func TestPriceWheelAndFitValue(t *testing.T) {
	destroyed := FittingWheel{
		SlotHigh:  {{TypeID: 100, Quantity: 1, Flag: 27}},
		SlotCargo: {{TypeID: 101, Quantity: 2, Flag: 5}},
	}
	dropped := FittingWheel{
		SlotMid: {{TypeID: 101, Quantity: 1, Flag: 19}},
	}
	prices := fixedPrices{100: 100, 101: 10}

	destroyedTotals := PriceWheel(destroyed, prices)
	droppedTotals := PriceWheel(dropped, prices)

	if destroyedTotals[SlotHigh] != 100 {
		t.Errorf("high total = %v, want 100", destroyedTotals[SlotHigh])
	}
	if destroyedTotals[SlotCargo] != 20 {
		t.Errorf("cargo total = %v, want 20", destroyedTotals[SlotCargo])
	}

	// cargo is valued but never part of the fit
	if got := FitValue(destroyedTotals, droppedTotals); got != 110 {
		t.Errorf("FitValue = %v, want high 100 + mid 10 = 110", got)
	}
}

func TestPriceGrouped(t *testing.T) {
	grouped := GroupedItems{
		SlotHigh: {{TypeID: 100, Quantity: 2}},
		SlotLow:  {{TypeID: 101, Quantity: 3}},
	}
	total := PriceGrouped(grouped, fixedPrices{100: 5, 101: 1})

	if total != 13 {
		t.Errorf("total = %v, want 13", total)
	}
	if grouped[SlotHigh][0].Value != 10 {
		t.Errorf("high entry value = %v, want 10", grouped[SlotHigh][0].Value)
	}
}

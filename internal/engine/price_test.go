package engine

import (
	"testing"
	"time"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolvePriceExactDate(t *testing.T) {
	target := day("2025-06-15").Add(18 * time.Hour) // time of day must be ignored
	rows := []domain.Price{
		{TypeID: 34, Date: day("2025-06-10"), Average: 90},
		{TypeID: 34, Date: day("2025-06-15"), Average: 100},
		{TypeID: 34, Date: day("2025-06-14"), Average: 95},
	}
	if got := ResolvePrice(rows, target); got != 100 {
		t.Errorf("ResolvePrice = %v, want exact-date average 100", got)
	}
}

func TestResolvePriceFallbackNearest(t *testing.T) {
	target := day("2025-06-15")
	rows := []domain.Price{
		{TypeID: 34, Date: day("2025-05-26"), Average: 50}, // 20 days back, outside window
		{TypeID: 34, Date: day("2025-06-12"), Average: 75}, // 3 days back
	}
	if got := ResolvePrice(rows, target); got != 75 {
		t.Errorf("ResolvePrice = %v, want in-window average 75", got)
	}
}

func TestResolvePriceIgnoresFutureRows(t *testing.T) {
	target := day("2025-06-15")
	rows := []domain.Price{
		{TypeID: 34, Date: day("2025-06-16"), Average: 200},
		{TypeID: 34, Date: day("2025-06-05"), Average: 60},
	}
	if got := ResolvePrice(rows, target); got != 60 {
		t.Errorf("ResolvePrice = %v, want 60 (rows after the target date are out of window)", got)
	}
}

func TestResolvePriceFirstSeenWinsTies(t *testing.T) {
	// equidistant rows cannot happen on the same side of the target with
	// day-granular data, but duplicate dates can; the first row seen wins
	target := day("2025-06-15")
	rows := []domain.Price{
		{TypeID: 34, Date: day("2025-06-12"), Average: 70},
		{TypeID: 34, Date: day("2025-06-12"), Average: 80},
	}
	if got := ResolvePrice(rows, target); got != 70 {
		t.Errorf("ResolvePrice = %v, want first-seen 70", got)
	}
}

func TestResolvePriceEmptyWindow(t *testing.T) {
	target := day("2025-06-15")
	tests := []struct {
		name string
		rows []domain.Price
	}{
		{"no rows", nil},
		{"only stale rows", []domain.Price{{TypeID: 34, Date: day("2025-05-01"), Average: 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePrice(tt.rows, target); got != 0 {
				t.Errorf("ResolvePrice = %v, want 0 for unknown price", got)
			}
		})
	}
}

func TestResolvePriceDoesNotMutateRows(t *testing.T) {
	target := day("2025-06-15")
	rows := []domain.Price{
		{TypeID: 34, Date: day("2025-06-12"), Average: 75},
		{TypeID: 34, Date: day("2025-06-10"), Average: 60},
	}
	before := make([]domain.Price, len(rows))
	copy(before, rows)

	first := ResolvePrice(rows, target)
	second := ResolvePrice(rows, target)

	if first != second {
		t.Errorf("ResolvePrice not idempotent: %v then %v", first, second)
	}
	for i := range rows {
		if rows[i] != before[i] {
			t.Errorf("ResolvePrice mutated row %d: %+v", i, rows[i])
		}
	}
}

func TestPriceTable(t *testing.T) {
	target := day("2025-06-15")
	table := NewPriceTable(target, map[int64][]domain.Price{
		34: {{TypeID: 34, Date: day("2025-06-15"), Average: 5}},
	}, zerolog.Nop())

	if got := table.UnitPrice(34); got != 5 {
		t.Errorf("UnitPrice(34) = %v, want 5", got)
	}
	if got := table.UnitPrice(35); got != 0 {
		t.Errorf("UnitPrice(35) = %v, want 0 for unknown type", got)
	}
}

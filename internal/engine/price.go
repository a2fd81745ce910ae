package engine

import (
	"time"

	"killboard/internal/constants"
	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

// ResolvePrice returns the unit price for targetDate from a type's market
// history rows. An exact calendar-date match (time of day ignored) wins;
// otherwise the row nearest to targetDate inside the trailing fallback
// window is used, with ties broken by encounter order. No row in the window
// means 0: unknown, not free.
func ResolvePrice(rows []domain.Price, targetDate time.Time) float64 {
	for _, row := range rows {
		if sameDay(row.Date, targetDate) {
			return row.Average
		}
	}

	windowStart := targetDate.Add(-constants.PriceFallbackWindow)
	var best *domain.Price
	var bestDist time.Duration
	for i := range rows {
		row := &rows[i]
		if row.Date.Before(windowStart) || row.Date.After(targetDate) {
			continue
		}
		dist := targetDate.Sub(row.Date)
		if dist < 0 {
			dist = -dist
		}
		// strict < keeps the first-seen row on equal distance
		if best == nil || dist < bestDist {
			best = row
			bestDist = dist
		}
	}
	if best == nil {
		return 0
	}
	return best.Average
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PriceResolver resolves a unit price for an item type at a fixed
// point-in-time date.
type PriceResolver interface {
	UnitPrice(typeID int64) float64
}

// PriceTable is a PriceResolver over pre-fetched market history rows, bound
// to one killmail's date. Misses resolve to 0 and are logged at debug only;
// market data is inherently incomplete and a gap is not an error.
type PriceTable struct {
	date   time.Time
	rows   map[int64][]domain.Price
	logger zerolog.Logger
}

func NewPriceTable(date time.Time, rows map[int64][]domain.Price, logger zerolog.Logger) *PriceTable {
	return &PriceTable{date: date, rows: rows, logger: logger}
}

func (t *PriceTable) UnitPrice(typeID int64) float64 {
	price := ResolvePrice(t.rows[typeID], t.date)
	if price == 0 {
		t.logger.Debug().
			Int64("type_id", typeID).
			Time("date", t.date).
			Msg("no price found in fallback window")
	}
	return price
}

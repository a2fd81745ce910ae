package repository

import (
	"context"
	"testing"
	"time"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

func TestPriceUpsertAndRead(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()
	d1 := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	err := repo.UpsertBatch(ctx, []domain.Price{
		{TypeID: 34, Date: d1, Average: 4.5, Lowest: 4.1, Highest: 4.9},
		{TypeID: 34, Date: d2, Average: 4.7, Lowest: 4.2, Highest: 5.1},
		{TypeID: 35, Date: d2, Average: 11, Lowest: 10, Highest: 12},
	})
	if err != nil {
		t.Fatalf("upsert prices: %v", err)
	}

	prices, err := repo.GetPricesForType(ctx, 34)
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("price rows = %d, want 2", len(prices))
	}

	// same (type, date) replaces rather than duplicates
	err = repo.UpsertBatch(ctx, []domain.Price{
		{TypeID: 34, Date: d2, Average: 5.0, Lowest: 4.3, Highest: 5.2},
	})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	prices, err = repo.GetPricesForType(ctx, 34)
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if len(prices) != 2 {
		t.Errorf("price rows after re-upsert = %d, want 2", len(prices))
	}
}

func TestPricesForUnknownTypeEmpty(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t), zerolog.Nop())

	prices, err := repo.GetPricesForType(context.Background(), 999)
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("rows = %d, want none", len(prices))
	}
}

package repository

import (
	"context"
	"encoding/json"
	"testing"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

func TestUniverseTypesRoundTrip(t *testing.T) {
	repo := NewUniverseRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	err := repo.UpsertTypes(ctx, []domain.TypeInfo{
		{TypeID: 587, Name: "Rifter", CategoryID: int64Ptr(6)},
		{TypeID: 104, Name: "Nanite Repair Paste", RawMeta: json.RawMessage(`{"categoryID":8}`)},
	})
	if err != nil {
		t.Fatalf("upsert types: %v", err)
	}

	types, err := repo.GetTypes(ctx, []int64{587, 104, 999})
	if err != nil {
		t.Fatalf("get types: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("types = %d, want 2 (unknown id absent)", len(types))
	}
	if types[587].Name != "Rifter" || types[587].CategoryID == nil || *types[587].CategoryID != 6 {
		t.Errorf("rifter = %+v", types[587])
	}
	if types[104].CategoryID != nil {
		t.Errorf("paste category = %v, want nil with raw meta only", types[104].CategoryID)
	}
	if len(types[104].RawMeta) == 0 {
		t.Error("raw meta not round-tripped")
	}
}

func TestUniverseNames(t *testing.T) {
	repo := NewUniverseRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	err := repo.UpsertNames(ctx, []domain.Name{
		{ID: 90000001, Name: "Pilot One", Category: "character"},
		{ID: 98000001, Name: "Some Corp", Category: "corporation"},
	})
	if err != nil {
		t.Fatalf("upsert names: %v", err)
	}

	names, err := repo.GetNames(ctx, []int64{90000001, 98000001, 77})
	if err != nil {
		t.Fatalf("get names: %v", err)
	}
	if names[90000001] != "Pilot One" {
		t.Errorf("character name = %q", names[90000001])
	}
	if _, ok := names[77]; ok {
		t.Error("unknown id resolved to a name")
	}
}

func TestUniverseSystem(t *testing.T) {
	repo := NewUniverseRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	system, err := repo.GetSystem(ctx, 30000142)
	if err != nil {
		t.Fatalf("get system: %v", err)
	}
	if system != nil {
		t.Fatalf("got %+v, want nil for unknown system", system)
	}

	err = repo.UpsertSystem(ctx, &domain.SolarSystem{
		SystemID: 30000142, Name: "Jita", RegionID: 10000002, RegionName: "The Forge", Security: 0.945,
	})
	if err != nil {
		t.Fatalf("upsert system: %v", err)
	}

	system, err = repo.GetSystem(ctx, 30000142)
	if err != nil {
		t.Fatalf("get system: %v", err)
	}
	if system == nil || system.Name != "Jita" || system.RegionName != "The Forge" {
		t.Errorf("system = %+v", system)
	}
}

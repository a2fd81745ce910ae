package service

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"killboard/internal/repository"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// in-memory sqlite is per connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "database", "migrations", "00001_init.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	up, _, _ := strings.Cut(string(schema), "-- +goose Down")
	if _, err := db.Exec(up); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

type testRepos struct {
	killmail *repository.KillmailRepository
	price    *repository.PriceRepository
	universe *repository.UniverseRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db := newTestDB(t)
	return testRepos{
		killmail: repository.NewKillmailRepository(db, zerolog.Nop()),
		price:    repository.NewPriceRepository(db, zerolog.Nop()),
		universe: repository.NewUniverseRepository(db, zerolog.Nop()),
	}
}

func int64Ptr(v int64) *int64 { return &v }

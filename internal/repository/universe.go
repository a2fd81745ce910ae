package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

// UniverseRepository serves the static game data the detail assembler
// resolves display names from: item types, solar systems and entity names.
type UniverseRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewUniverseRepository(sqlDB *sql.DB, logger zerolog.Logger) *UniverseRepository {
	return &UniverseRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// GetTypes returns the type metadata found for ids. Missing types are
// simply absent from the map; callers substitute placeholders.
func (r *UniverseRepository) GetTypes(ctx context.Context, ids []int64) (map[int64]domain.TypeInfo, error) {
	types := make(map[int64]domain.TypeInfo, len(ids))
	if len(ids) == 0 {
		return types, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT type_id, name, category_id, raw_meta FROM types WHERE type_id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.TypeInfo
		var rawMeta sql.NullString
		if err := rows.Scan(&t.TypeID, &t.Name, &t.CategoryID, &rawMeta); err != nil {
			return nil, err
		}
		if rawMeta.Valid {
			t.RawMeta = json.RawMessage(rawMeta.String)
		}
		types[t.TypeID] = t
	}
	return types, rows.Err()
}

// GetSystem returns a solar system, or (nil, nil) when unknown.
func (r *UniverseRepository) GetSystem(ctx context.Context, systemID int64) (*domain.SolarSystem, error) {
	var s domain.SolarSystem
	err := r.db.QueryRowContext(ctx,
		`SELECT system_id, name, region_id, region_name, security FROM solar_systems WHERE system_id = ?`,
		systemID).
		Scan(&s.SystemID, &s.Name, &s.RegionID, &s.RegionName, &s.Security)
	if err == sql.ErrNoRows {
		r.logger.Debug().Int64("system_id", systemID).Msg("solar system not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetNames returns the display names found for ids across every category.
// Missing ids are absent from the map.
func (r *UniverseRepository) GetNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM names WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// UpsertNames stores resolved entity names.
func (r *UniverseRepository) UpsertNames(ctx context.Context, names []domain.Name) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range names {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO names (id, category, name) VALUES (?, ?, ?)
			 ON CONFLICT (id, category) DO UPDATE SET name = excluded.name`,
			n.ID, n.Category, n.Name)
		if err != nil {
			return fmt.Errorf("failed to upsert name %d: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertTypes stores item-type metadata.
func (r *UniverseRepository) UpsertTypes(ctx context.Context, types []domain.TypeInfo) error {
	if len(types) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range types {
		var rawMeta any
		if len(t.RawMeta) > 0 {
			rawMeta = string(t.RawMeta)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO types (type_id, name, category_id, raw_meta) VALUES (?, ?, ?, ?)
			 ON CONFLICT (type_id) DO UPDATE SET
				name = excluded.name,
				category_id = excluded.category_id,
				raw_meta = excluded.raw_meta`,
			t.TypeID, t.Name, t.CategoryID, rawMeta)
		if err != nil {
			return fmt.Errorf("failed to upsert type %d: %w", t.TypeID, err)
		}
	}
	return tx.Commit()
}

// UpsertSystem stores solar system metadata.
func (r *UniverseRepository) UpsertSystem(ctx context.Context, s *domain.SolarSystem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO solar_systems (system_id, name, region_id, region_name, security)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (system_id) DO UPDATE SET
			name = excluded.name,
			region_id = excluded.region_id,
			region_name = excluded.region_name,
			security = excluded.security`,
		s.SystemID, s.Name, s.RegionID, s.RegionName, s.Security)
	return err
}

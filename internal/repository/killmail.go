package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

type KillmailRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewKillmailRepository(sqlDB *sql.DB, logger zerolog.Logger) *KillmailRepository {
	return &KillmailRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const killmailColumns = `id, killmail_id, hash, kill_time, solar_system_id, attacker_count,
	solo, npc, ship_value, fitted_value, dropped_value, destroyed_value, total_value,
	created_at, updated_at`

func scanKillmail(row *sql.Row) (*domain.Killmail, error) {
	var km domain.Killmail
	err := row.Scan(
		&km.ID, &km.KillmailID, &km.Hash, &km.KillTime, &km.SolarSystemID, &km.AttackerCount,
		&km.Solo, &km.NPC, &km.ShipValue, &km.FittedValue, &km.DroppedValue, &km.DestroyedValue,
		&km.TotalValue, &km.CreatedAt, &km.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &km, nil
}

// GetByKillmailID looks a killmail up by its external id. A missing killmail
// is (nil, nil), not an error.
func (r *KillmailRepository) GetByKillmailID(ctx context.Context, killmailID int64) (*domain.Killmail, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+killmailColumns+` FROM killmails WHERE killmail_id = ?`, killmailID)

	km, err := scanKillmail(row)
	if err == sql.ErrNoRows {
		r.logger.Debug().Int64("killmail_id", killmailID).Msg("killmail not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return km, nil
}

// GetVictim returns the victim row of a killmail, or (nil, nil) when the
// row is absent.
func (r *KillmailRepository) GetVictim(ctx context.Context, killmailRowID int64) (*domain.Victim, error) {
	var v domain.Victim
	err := r.db.QueryRowContext(ctx,
		`SELECT killmail_id, character_id, corporation_id, alliance_id, ship_type_id, damage_taken
		 FROM victims WHERE killmail_id = ?`, killmailRowID).
		Scan(&v.KillmailID, &v.CharacterID, &v.CorporationID, &v.AllianceID, &v.ShipTypeID, &v.DamageTaken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetAttackers returns a killmail's attacker rows ordered by damage done,
// descending.
func (r *KillmailRepository) GetAttackers(ctx context.Context, killmailRowID int64) ([]domain.Attacker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT killmail_id, character_id, corporation_id, alliance_id, ship_type_id,
		        weapon_type_id, damage_done, final_blow, security_status
		 FROM attackers WHERE killmail_id = ? ORDER BY damage_done DESC`, killmailRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attackers []domain.Attacker
	for rows.Next() {
		var a domain.Attacker
		if err := rows.Scan(
			&a.KillmailID, &a.CharacterID, &a.CorporationID, &a.AllianceID, &a.ShipTypeID,
			&a.WeaponTypeID, &a.DamageDone, &a.FinalBlow, &a.SecurityStatus,
		); err != nil {
			return nil, err
		}
		attackers = append(attackers, a)
	}
	return attackers, rows.Err()
}

// GetItems returns a killmail's raw item-loss rows.
func (r *KillmailRepository) GetItems(ctx context.Context, killmailRowID int64) ([]domain.KillmailItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT killmail_id, type_id, flag, quantity_destroyed, quantity_dropped, singleton
		 FROM items WHERE killmail_id = ?`, killmailRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.KillmailItem
	for rows.Next() {
		var it domain.KillmailItem
		if err := rows.Scan(
			&it.KillmailID, &it.TypeID, &it.Flag, &it.QuantityDestroyed, &it.QuantityDropped, &it.Singleton,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountInSystemWindow counts killmails in one system inside [start, end).
func (r *KillmailRepository) CountInSystemWindow(ctx context.Context, systemID int64, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM killmails
		 WHERE solar_system_id = ? AND kill_time >= ? AND kill_time < ?`,
		systemID, start, end).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetInSystemWindow returns the minimal killmail projections in one system
// inside [start, end), oldest first.
func (r *KillmailRepository) GetInSystemWindow(ctx context.Context, systemID int64, start, end time.Time) ([]domain.KillmailRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, killmail_id, kill_time, solar_system_id FROM killmails
		 WHERE solar_system_id = ? AND kill_time >= ? AND kill_time < ?
		 ORDER BY kill_time ASC`,
		systemID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.KillmailRef
	for rows.Next() {
		var ref domain.KillmailRef
		if err := rows.Scan(&ref.ID, &ref.KillmailID, &ref.KillTime, &ref.SolarSystemID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetWindowVictims returns the victim rows of every killmail in one system
// inside [start, end). Used for battle summary set-counting.
func (r *KillmailRepository) GetWindowVictims(ctx context.Context, systemID int64, start, end time.Time) ([]domain.Victim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.killmail_id, v.character_id, v.corporation_id, v.alliance_id, v.ship_type_id, v.damage_taken
		 FROM victims v
		 JOIN killmails k ON k.id = v.killmail_id
		 WHERE k.solar_system_id = ? AND k.kill_time >= ? AND k.kill_time < ?`,
		systemID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var victims []domain.Victim
	for rows.Next() {
		var v domain.Victim
		if err := rows.Scan(&v.KillmailID, &v.CharacterID, &v.CorporationID, &v.AllianceID, &v.ShipTypeID, &v.DamageTaken); err != nil {
			return nil, err
		}
		victims = append(victims, v)
	}
	return victims, rows.Err()
}

// Store writes a fully reconstructed killmail fact in one transaction and
// returns its internal row id. Re-ingesting the same killmail replaces its
// dependent rows.
func (r *KillmailRepository) Store(ctx context.Context, km *domain.Killmail, victim *domain.Victim, attackers []domain.Attacker, items []domain.KillmailItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO killmails (
			killmail_id, hash, kill_time, solar_system_id, attacker_count, solo, npc,
			ship_value, fitted_value, dropped_value, destroyed_value, total_value,
			created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (killmail_id) DO UPDATE SET
			hash = excluded.hash,
			kill_time = excluded.kill_time,
			solar_system_id = excluded.solar_system_id,
			attacker_count = excluded.attacker_count,
			solo = excluded.solo,
			npc = excluded.npc,
			ship_value = excluded.ship_value,
			fitted_value = excluded.fitted_value,
			dropped_value = excluded.dropped_value,
			destroyed_value = excluded.destroyed_value,
			total_value = excluded.total_value,
			updated_at = excluded.updated_at`,
		km.KillmailID, km.Hash, km.KillTime, km.SolarSystemID, km.AttackerCount, km.Solo, km.NPC,
		km.ShipValue, km.FittedValue, km.DroppedValue, km.DestroyedValue, km.TotalValue,
		now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert killmail %d: %w", km.KillmailID, err)
	}

	var rowID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM killmails WHERE killmail_id = ?`, km.KillmailID).Scan(&rowID); err != nil {
		return 0, fmt.Errorf("failed to read back killmail row id: %w", err)
	}

	for _, table := range []string{"victims", "attackers", "items"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE killmail_id = ?", table), rowID); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if victim != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO victims (killmail_id, character_id, corporation_id, alliance_id, ship_type_id, damage_taken)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rowID, victim.CharacterID, victim.CorporationID, victim.AllianceID, victim.ShipTypeID, victim.DamageTaken)
		if err != nil {
			return 0, fmt.Errorf("failed to insert victim: %w", err)
		}
	}

	for _, a := range attackers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attackers (killmail_id, character_id, corporation_id, alliance_id,
				ship_type_id, weapon_type_id, damage_done, final_blow, security_status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rowID, a.CharacterID, a.CorporationID, a.AllianceID,
			a.ShipTypeID, a.WeaponTypeID, a.DamageDone, a.FinalBlow, a.SecurityStatus)
		if err != nil {
			return 0, fmt.Errorf("failed to insert attacker: %w", err)
		}
	}

	for _, it := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (killmail_id, type_id, flag, quantity_destroyed, quantity_dropped, singleton)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (killmail_id, type_id, flag) DO UPDATE SET
				quantity_destroyed = items.quantity_destroyed + excluded.quantity_destroyed,
				quantity_dropped = items.quantity_dropped + excluded.quantity_dropped`,
			rowID, it.TypeID, it.Flag, it.QuantityDestroyed, it.QuantityDropped, it.Singleton)
		if err != nil {
			return 0, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit killmail %d: %w", km.KillmailID, err)
	}

	r.logger.Debug().
		Int64("killmail_id", km.KillmailID).
		Int64("row_id", rowID).
		Int("attackers", len(attackers)).
		Int("items", len(items)).
		Msg("killmail stored")
	return rowID, nil
}

// placeholders builds a "?, ?, ?" list for an IN clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

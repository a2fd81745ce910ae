package repository

import (
	"context"
	"database/sql"
	"fmt"

	"killboard/internal/constants"
	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

type PriceRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPriceRepository(sqlDB *sql.DB, logger zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// GetPricesForType returns every market history row stored for a type.
// Order is unspecified; the resolver scans.
func (r *PriceRepository) GetPricesForType(ctx context.Context, typeID int64) ([]domain.Price, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type_id, date, average, lowest, highest FROM prices WHERE type_id = ?`, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []domain.Price
	for rows.Next() {
		var p domain.Price
		if err := rows.Scan(&p.TypeID, &p.Date, &p.Average, &p.Lowest, &p.Highest); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// UpsertBatch stores market history rows in one transaction.
func (r *PriceRepository) UpsertBatch(ctx context.Context, prices []domain.Price) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(prices); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(prices) {
			end = len(prices)
		}

		for _, p := range prices[i:end] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO prices (type_id, date, average, lowest, highest)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (type_id, date) DO UPDATE SET
					average = excluded.average,
					lowest = excluded.lowest,
					highest = excluded.highest`,
				p.TypeID, p.Date, p.Average, p.Lowest, p.Highest)
			if err != nil {
				return fmt.Errorf("failed to upsert price for type %d: %w", p.TypeID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	r.logger.Debug().Int("rows", len(prices)).Msg("price rows stored")
	return nil
}

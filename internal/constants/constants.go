package constants

import "time"

const (
	// PriceFallbackWindow bounds how far back the price resolver may reach
	// when no exact-date market row exists for a type.
	PriceFallbackWindow = 14 * 24 * time.Hour

	// BattleWindow is the half-width of the interval scanned around a
	// killmail's timestamp when probing for a battle.
	BattleWindow = 1 * time.Hour

	// BattleThreshold is the minimum killmail count inside a system window
	// for the window to count as a battle.
	BattleThreshold = 10
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	// PriceFetchConcurrency caps the errgroup fan-out when loading market
	// rows for the distinct item types on a killmail.
	PriceFetchConcurrency = 8
)

const (
	ShutdownTimeout = 5 * time.Second
)

package domain

import (
	"encoding/json"
	"time"
)

// Killmail is the immutable fact row created at ingestion. The aggregate
// value fields are computed once when the killmail is stored and are never
// overwritten by the live valuation breakdown.
type Killmail struct {
	ID             int64 // internal row id
	KillmailID     int64 // external game id
	Hash           string
	KillTime       time.Time
	SolarSystemID  int64
	AttackerCount  int
	Solo           bool
	NPC            bool
	ShipValue      float64
	FittedValue    float64
	DroppedValue   float64
	DestroyedValue float64
	TotalValue     float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Victim is the single victim row of a killmail. Character, corporation and
// alliance references are nullable: NPC victims have no character, and
// degraded source data may omit any of them.
type Victim struct {
	KillmailID    int64 // internal killmail row id
	CharacterID   *int64
	CorporationID *int64
	AllianceID    *int64
	ShipTypeID    int64
	DamageTaken   int64
}

// Attacker is one of zero or more attacker rows. At most one row per
// killmail carries FinalBlow; zero is tolerated for degraded data.
type Attacker struct {
	KillmailID     int64
	CharacterID    *int64
	CorporationID  *int64
	AllianceID     *int64
	ShipTypeID     int64
	WeaponTypeID   int64
	DamageDone     int64
	FinalBlow      bool
	SecurityStatus float64
}

// KillmailItem is one (killmail, type, flag) item-loss row. Destroyed and
// dropped quantities are independent counts; both can be nonzero when some
// copies burned and others were looted.
type KillmailItem struct {
	KillmailID        int64
	TypeID            int64
	Flag              int
	QuantityDestroyed int64
	QuantityDropped   int64
	Singleton         int64
}

// Price is one (type, calendar date) market history row. Dates are sparse;
// not every type has a row for every day.
type Price struct {
	TypeID  int64
	Date    time.Time
	Average float64
	Lowest  float64
	Highest float64
}

// TypeInfo is static item-type metadata. CategoryID is nil when the
// structured category is unknown; RawMeta holds the semi-structured SDE
// payload the ammo check falls back to, and may be nil or malformed.
type TypeInfo struct {
	TypeID     int64
	Name       string
	CategoryID *int64
	RawMeta    json.RawMessage
}

// SolarSystem is static universe metadata for a system.
type SolarSystem struct {
	SystemID   int64
	Name       string
	RegionID   int64
	RegionName string
	Security   float64
}

// Name maps a character, corporation or alliance id to its display name.
type Name struct {
	ID       int64
	Name     string
	Category string
}

// KillmailRef is the minimal projection used for battle counting.
type KillmailRef struct {
	ID            int64
	KillmailID    int64
	KillTime      time.Time
	SolarSystemID int64
}

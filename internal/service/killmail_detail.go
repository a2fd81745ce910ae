package service

import (
	"context"

	"killboard/internal/constants"
	"killboard/internal/domain"
	"killboard/internal/engine"
	"killboard/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// UnknownName is the documented placeholder for any entity whose name could
// not be resolved. Partial data is an expected outcome, not a defect.
const UnknownName = "Unknown"

// KillmailDetail is the assembled view model handed to presentation. The
// Killmail block keeps the aggregate values computed at ingestion; the
// Stats block carries the live per-item recomputation. The two may diverge
// slightly and both are emitted on purpose.
type KillmailDetail struct {
	Killmail         domain.Killmail      `json:"killmail"`
	Victim           VictimBlock          `json:"victim"`
	SolarSystem      SystemBlock          `json:"solar_system"`
	Attackers        []AttackerBlock      `json:"attackers"`
	ItemsDestroyed   engine.GroupedItems  `json:"items_destroyed"`
	ItemsDropped     engine.GroupedItems  `json:"items_dropped"`
	FittingDestroyed engine.FittingWheel  `json:"fitting_destroyed"`
	FittingDropped   engine.FittingWheel  `json:"fitting_dropped"`
	Stats            KillmailStats        `json:"stats"`
	Battle           *BattleWindow        `json:"battle,omitempty"`
}

type VictimBlock struct {
	CharacterID     int64   `json:"character_id"`
	CharacterName   string  `json:"character_name"`
	CorporationID   int64   `json:"corporation_id"`
	CorporationName string  `json:"corporation_name"`
	AllianceID      int64   `json:"alliance_id"`
	AllianceName    string  `json:"alliance_name"`
	ShipTypeID      int64   `json:"ship_type_id"`
	ShipName        string  `json:"ship_name"`
	DamageTaken     int64   `json:"damage_taken"`
}

type SystemBlock struct {
	SystemID   int64   `json:"system_id"`
	Name       string  `json:"name"`
	RegionID   int64   `json:"region_id"`
	RegionName string  `json:"region_name"`
	Security   float64 `json:"security"`
}

type AttackerBlock struct {
	CharacterID     int64   `json:"character_id"`
	CharacterName   string  `json:"character_name"`
	CorporationID   int64   `json:"corporation_id"`
	CorporationName string  `json:"corporation_name"`
	AllianceID      int64   `json:"alliance_id"`
	AllianceName    string  `json:"alliance_name"`
	ShipTypeID      int64   `json:"ship_type_id"`
	ShipName        string  `json:"ship_name"`
	WeaponTypeID    int64   `json:"weapon_type_id"`
	WeaponName      string  `json:"weapon_name"`
	DamageDone      int64   `json:"damage_done"`
	FinalBlow       bool    `json:"final_blow"`
	SecurityStatus  float64 `json:"security_status"`
}

// KillmailStats is the live valuation breakdown.
type KillmailStats struct {
	AttackerCount  int     `json:"attacker_count"`
	Solo           bool    `json:"solo"`
	ShipValue      float64 `json:"ship_value"`
	FitValue       float64 `json:"fit_value"`
	DestroyedValue float64 `json:"destroyed_value"`
	DroppedValue   float64 `json:"dropped_value"`
	TotalValue     float64 `json:"total_value"`
}

type KillmailDetailService struct {
	killmailRepo *repository.KillmailRepository
	priceRepo    *repository.PriceRepository
	universeRepo *repository.UniverseRepository
	battleSvc    *BattleService
	logger       zerolog.Logger
}

func NewKillmailDetailService(
	killmailRepo *repository.KillmailRepository,
	priceRepo *repository.PriceRepository,
	universeRepo *repository.UniverseRepository,
	battleSvc *BattleService,
	logger zerolog.Logger,
) *KillmailDetailService {
	return &KillmailDetailService{
		killmailRepo: killmailRepo,
		priceRepo:    priceRepo,
		universeRepo: universeRepo,
		battleSvc:    battleSvc,
		logger:       logger,
	}
}

// GetKillmailDetail assembles the full detail view for one killmail. Nil
// means no detail could be built: the killmail or its victim is absent, or
// a query failed. Failures are logged here and never propagate; every read
// is idempotent so nothing is retried.
func (s *KillmailDetailService) GetKillmailDetail(ctx context.Context, killmailID int64) *KillmailDetail {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	km, err := s.killmailRepo.GetByKillmailID(ctx, killmailID)
	if err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("killmail query failed")
		return nil
	}
	if km == nil {
		return nil
	}

	var (
		victim    *domain.Victim
		attackers []domain.Attacker
		items     []domain.KillmailItem
		system    *domain.SolarSystem
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		victim, err = s.killmailRepo.GetVictim(gCtx, km.ID)
		return err
	})
	g.Go(func() error {
		var err error
		attackers, err = s.killmailRepo.GetAttackers(gCtx, km.ID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.killmailRepo.GetItems(gCtx, km.ID)
		return err
	})
	g.Go(func() error {
		var err error
		system, err = s.universeRepo.GetSystem(gCtx, km.SolarSystemID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("could not build killmail detail")
		return nil
	}
	if victim == nil {
		s.logger.Debug().Int64("killmail_id", killmailID).Msg("killmail has no victim row")
		return nil
	}

	types, names, err := s.resolveMetadata(ctx, victim, attackers, items)
	if err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("could not build killmail detail")
		return nil
	}

	prices, err := s.fetchPrices(ctx, priceableTypeIDs(victim, items))
	if err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("could not build killmail detail")
		return nil
	}
	table := engine.NewPriceTable(km.KillTime, prices, s.logger)

	groupedDestroyed, groupedDropped := engine.GroupItems(items, types)
	wheelDestroyed, wheelDropped := engine.BuildFittingWheel(items, types)

	destroyedTotals := engine.PriceWheel(wheelDestroyed, table)
	droppedTotals := engine.PriceWheel(wheelDropped, table)
	destroyedValue := engine.PriceGrouped(groupedDestroyed, table)
	droppedValue := engine.PriceGrouped(groupedDropped, table)
	shipValue := table.UnitPrice(victim.ShipTypeID)

	detail := &KillmailDetail{
		Killmail:         *km,
		Victim:           buildVictimBlock(victim, types, names),
		SolarSystem:      buildSystemBlock(km.SolarSystemID, system),
		Attackers:        buildAttackerBlocks(attackers, types, names),
		ItemsDestroyed:   groupedDestroyed,
		ItemsDropped:     groupedDropped,
		FittingDestroyed: wheelDestroyed,
		FittingDropped:   wheelDropped,
		Stats: KillmailStats{
			AttackerCount:  km.AttackerCount,
			Solo:           km.Solo,
			ShipValue:      shipValue,
			FitValue:       engine.FitValue(destroyedTotals, droppedTotals),
			DestroyedValue: destroyedValue + shipValue,
			DroppedValue:   droppedValue,
			TotalValue:     destroyedValue + shipValue + droppedValue,
		},
		Battle: s.battleSvc.FindBattle(ctx, km.SolarSystemID, km.KillTime),
	}
	return detail
}

// resolveMetadata loads the type metadata and entity names every block of
// the detail view needs. Missing entries stay absent; the block builders
// substitute placeholders.
func (s *KillmailDetailService) resolveMetadata(ctx context.Context, victim *domain.Victim, attackers []domain.Attacker, items []domain.KillmailItem) (map[int64]domain.TypeInfo, map[int64]string, error) {
	typeIDs := make(map[int64]struct{})
	typeIDs[victim.ShipTypeID] = struct{}{}
	for _, it := range items {
		typeIDs[it.TypeID] = struct{}{}
	}
	for _, a := range attackers {
		if a.ShipTypeID != 0 {
			typeIDs[a.ShipTypeID] = struct{}{}
		}
		if a.WeaponTypeID != 0 {
			typeIDs[a.WeaponTypeID] = struct{}{}
		}
	}

	nameIDs := make(map[int64]struct{})
	collect := func(ids ...*int64) {
		for _, id := range ids {
			if id != nil {
				nameIDs[*id] = struct{}{}
			}
		}
	}
	collect(victim.CharacterID, victim.CorporationID, victim.AllianceID)
	for i := range attackers {
		collect(attackers[i].CharacterID, attackers[i].CorporationID, attackers[i].AllianceID)
	}

	var (
		types map[int64]domain.TypeInfo
		names map[int64]string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = s.universeRepo.GetTypes(gCtx, keys(typeIDs))
		return err
	})
	g.Go(func() error {
		var err error
		names, err = s.universeRepo.GetNames(gCtx, keys(nameIDs))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return types, names, nil
}

// fetchPrices loads market rows for each distinct type concurrently. The
// fan-out is bounded; per-type resolution semantics are untouched.
func (s *KillmailDetailService) fetchPrices(ctx context.Context, typeIDs []int64) (map[int64][]domain.Price, error) {
	results := make([][]domain.Price, len(typeIDs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.PriceFetchConcurrency)
	for i, typeID := range typeIDs {
		g.Go(func() error {
			rows, err := s.priceRepo.GetPricesForType(gCtx, typeID)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prices := make(map[int64][]domain.Price, len(typeIDs))
	for i, typeID := range typeIDs {
		prices[typeID] = results[i]
	}
	return prices, nil
}

func priceableTypeIDs(victim *domain.Victim, items []domain.KillmailItem) []int64 {
	ids := make(map[int64]struct{}, len(items)+1)
	ids[victim.ShipTypeID] = struct{}{}
	for _, it := range items {
		ids[it.TypeID] = struct{}{}
	}
	return keys(ids)
}

func keys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func idOrZero(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func nameOrUnknown(names map[int64]string, id *int64) string {
	if id == nil {
		return UnknownName
	}
	if name, ok := names[*id]; ok && name != "" {
		return name
	}
	return UnknownName
}

func typeNameOrUnknown(types map[int64]domain.TypeInfo, typeID int64) string {
	if t, ok := types[typeID]; ok && t.Name != "" {
		return t.Name
	}
	return UnknownName
}

func buildVictimBlock(victim *domain.Victim, types map[int64]domain.TypeInfo, names map[int64]string) VictimBlock {
	return VictimBlock{
		CharacterID:     idOrZero(victim.CharacterID),
		CharacterName:   nameOrUnknown(names, victim.CharacterID),
		CorporationID:   idOrZero(victim.CorporationID),
		CorporationName: nameOrUnknown(names, victim.CorporationID),
		AllianceID:      idOrZero(victim.AllianceID),
		AllianceName:    nameOrUnknown(names, victim.AllianceID),
		ShipTypeID:      victim.ShipTypeID,
		ShipName:        typeNameOrUnknown(types, victim.ShipTypeID),
		DamageTaken:     victim.DamageTaken,
	}
}

func buildSystemBlock(systemID int64, system *domain.SolarSystem) SystemBlock {
	if system == nil {
		return SystemBlock{SystemID: systemID, Name: UnknownName, RegionName: UnknownName}
	}
	block := SystemBlock{
		SystemID:   system.SystemID,
		Name:       system.Name,
		RegionID:   system.RegionID,
		RegionName: system.RegionName,
		Security:   system.Security,
	}
	if block.RegionName == "" {
		block.RegionName = UnknownName
	}
	return block
}

func buildAttackerBlocks(attackers []domain.Attacker, types map[int64]domain.TypeInfo, names map[int64]string) []AttackerBlock {
	blocks := make([]AttackerBlock, len(attackers))
	for i, a := range attackers {
		blocks[i] = AttackerBlock{
			CharacterID:     idOrZero(a.CharacterID),
			CharacterName:   nameOrUnknown(names, a.CharacterID),
			CorporationID:   idOrZero(a.CorporationID),
			CorporationName: nameOrUnknown(names, a.CorporationID),
			AllianceID:      idOrZero(a.AllianceID),
			AllianceName:    nameOrUnknown(names, a.AllianceID),
			ShipTypeID:      a.ShipTypeID,
			ShipName:        typeNameOrUnknown(types, a.ShipTypeID),
			WeaponTypeID:    a.WeaponTypeID,
			WeaponName:      typeNameOrUnknown(types, a.WeaponTypeID),
			DamageDone:      a.DamageDone,
			FinalBlow:       a.FinalBlow,
			SecurityStatus:  a.SecurityStatus,
		}
	}
	return blocks
}

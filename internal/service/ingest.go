package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"killboard/internal/config"
	"killboard/internal/constants"
	"killboard/internal/domain"
	"killboard/internal/engine"
	"killboard/internal/esi"
	"killboard/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// IngestService is the single write path: it pulls a killmail from the game
// API, resolves the static metadata around it, snapshots market history for
// the involved types, and stores the fact rows the read-only engine serves
// from. The aggregate values written here are authoritative; the detail
// assembler only recomputes them for display.
type IngestService struct {
	client       *esi.Client
	killmailRepo *repository.KillmailRepository
	priceRepo    *repository.PriceRepository
	universeRepo *repository.UniverseRepository
	regionID     int64
	logger       zerolog.Logger
}

func NewIngestService(
	client *esi.Client,
	killmailRepo *repository.KillmailRepository,
	priceRepo *repository.PriceRepository,
	universeRepo *repository.UniverseRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		client:       client,
		killmailRepo: killmailRepo,
		priceRepo:    priceRepo,
		universeRepo: universeRepo,
		regionID:     cfg.MarketRegionID,
		logger:       logger,
	}
}

// Ingest fetches one killmail by id and hash and stores it with its
// metadata, names, prices and computed aggregate values.
func (s *IngestService) Ingest(ctx context.Context, killmailID int64, hash string) (*domain.Killmail, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	raw, err := s.client.GetKillmail(ctx, killmailID, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch killmail %d: %w", killmailID, err)
	}

	victim := &domain.Victim{
		CharacterID:   raw.Victim.CharacterID,
		CorporationID: raw.Victim.CorporationID,
		AllianceID:    raw.Victim.AllianceID,
		ShipTypeID:    raw.Victim.ShipTypeID,
		DamageTaken:   raw.Victim.DamageTaken,
	}
	attackers := make([]domain.Attacker, len(raw.Attackers))
	for i, a := range raw.Attackers {
		attackers[i] = domain.Attacker{
			CharacterID:    a.CharacterID,
			CorporationID:  a.CorporationID,
			AllianceID:     a.AllianceID,
			ShipTypeID:     a.ShipTypeID,
			WeaponTypeID:   a.WeaponTypeID,
			DamageDone:     a.DamageDone,
			FinalBlow:      a.FinalBlow,
			SecurityStatus: a.SecurityStatus,
		}
	}
	items := make([]domain.KillmailItem, len(raw.Victim.Items))
	for i, it := range raw.Victim.Items {
		items[i] = domain.KillmailItem{
			TypeID:            it.ItemTypeID,
			Flag:              it.Flag,
			QuantityDestroyed: it.QuantityDestroyed,
			QuantityDropped:   it.QuantityDropped,
			Singleton:         it.Singleton,
		}
	}

	if err := s.ensureTypes(ctx, victim, attackers, items); err != nil {
		s.logger.Warn().Err(err).Int64("killmail_id", killmailID).Msg("type metadata incomplete")
	}
	if err := s.ensureSystem(ctx, raw.SolarSystemID); err != nil {
		s.logger.Warn().Err(err).Int64("system_id", raw.SolarSystemID).Msg("system metadata incomplete")
	}
	if err := s.ensureNames(ctx, victim, attackers); err != nil {
		s.logger.Warn().Err(err).Int64("killmail_id", killmailID).Msg("name resolution incomplete")
	}

	prices, err := s.snapshotPrices(ctx, victim, items)
	if err != nil {
		s.logger.Warn().Err(err).Int64("killmail_id", killmailID).Msg("price snapshot incomplete")
	}

	km := s.buildKillmail(ctx, raw, hash, victim, attackers, items, prices)
	if _, err := s.killmailRepo.Store(ctx, km, victim, attackers, items); err != nil {
		return nil, fmt.Errorf("failed to store killmail %d: %w", killmailID, err)
	}

	s.logger.Info().
		Int64("killmail_id", killmailID).
		Int64("system_id", raw.SolarSystemID).
		Float64("total_value", km.TotalValue).
		Msg("killmail ingested")
	return km, nil
}

// buildKillmail computes the authoritative aggregate values from the price
// snapshot taken at ingestion time.
func (s *IngestService) buildKillmail(ctx context.Context, raw *esi.Killmail, hash string, victim *domain.Victim, attackers []domain.Attacker, items []domain.KillmailItem, prices map[int64][]domain.Price) *domain.Killmail {
	types, err := s.universeRepo.GetTypes(ctx, priceableTypeIDs(victim, items))
	if err != nil {
		s.logger.Warn().Err(err).Msg("valuation without type metadata")
		types = map[int64]domain.TypeInfo{}
	}
	table := engine.NewPriceTable(raw.KillmailTime, prices, s.logger)

	groupedDestroyed, groupedDropped := engine.GroupItems(items, types)
	wheelDestroyed, wheelDropped := engine.BuildFittingWheel(items, types)

	shipValue := table.UnitPrice(victim.ShipTypeID)
	destroyedValue := engine.PriceGrouped(groupedDestroyed, table) + shipValue
	droppedValue := engine.PriceGrouped(groupedDropped, table)
	fittedValue := engine.FitValue(engine.PriceWheel(wheelDestroyed, table), engine.PriceWheel(wheelDropped, table))

	playerAttackers := 0
	for _, a := range attackers {
		if a.CharacterID != nil {
			playerAttackers++
		}
	}

	return &domain.Killmail{
		KillmailID:     raw.KillmailID,
		Hash:           hash,
		KillTime:       raw.KillmailTime,
		SolarSystemID:  raw.SolarSystemID,
		AttackerCount:  len(attackers),
		Solo:           len(attackers) == 1 && playerAttackers == 1,
		NPC:            playerAttackers == 0,
		ShipValue:      shipValue,
		FittedValue:    fittedValue,
		DroppedValue:   droppedValue,
		DestroyedValue: destroyedValue,
		TotalValue:     destroyedValue + droppedValue,
	}
}

// ensureTypes fills the types table for every type id the killmail touches.
func (s *IngestService) ensureTypes(ctx context.Context, victim *domain.Victim, attackers []domain.Attacker, items []domain.KillmailItem) error {
	wanted := make(map[int64]struct{})
	wanted[victim.ShipTypeID] = struct{}{}
	for _, it := range items {
		wanted[it.TypeID] = struct{}{}
	}
	for _, a := range attackers {
		if a.ShipTypeID != 0 {
			wanted[a.ShipTypeID] = struct{}{}
		}
		if a.WeaponTypeID != 0 {
			wanted[a.WeaponTypeID] = struct{}{}
		}
	}

	known, err := s.universeRepo.GetTypes(ctx, keys(wanted))
	if err != nil {
		return err
	}

	var missing []int64
	for id := range wanted {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var mu sync.Mutex
	fetched := make([]domain.TypeInfo, 0, len(missing))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.PriceFetchConcurrency)
	for _, typeID := range missing {
		g.Go(func() error {
			info, err := s.client.GetType(gCtx, typeID)
			if err != nil {
				return err
			}
			group, err := s.client.GetGroup(gCtx, info.GroupID)
			if err != nil {
				return err
			}
			categoryID := group.CategoryID
			mu.Lock()
			fetched = append(fetched, domain.TypeInfo{
				TypeID:     info.TypeID,
				Name:       info.Name,
				CategoryID: &categoryID,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return s.universeRepo.UpsertTypes(ctx, fetched)
}

func (s *IngestService) ensureSystem(ctx context.Context, systemID int64) error {
	system, err := s.universeRepo.GetSystem(ctx, systemID)
	if err != nil {
		return err
	}
	if system != nil {
		return nil
	}

	info, err := s.client.GetSystem(ctx, systemID)
	if err != nil {
		return err
	}
	// region lookup needs the constellation chain; left to the SDE import,
	// the detail view substitutes Unknown until then
	return s.universeRepo.UpsertSystem(ctx, &domain.SolarSystem{
		SystemID: info.SystemID,
		Name:     info.Name,
		Security: info.SecurityStatus,
	})
}

func (s *IngestService) ensureNames(ctx context.Context, victim *domain.Victim, attackers []domain.Attacker) error {
	wanted := make(map[int64]struct{})
	collect := func(ids ...*int64) {
		for _, id := range ids {
			if id != nil {
				wanted[*id] = struct{}{}
			}
		}
	}
	collect(victim.CharacterID, victim.CorporationID, victim.AllianceID)
	for i := range attackers {
		collect(attackers[i].CharacterID, attackers[i].CorporationID, attackers[i].AllianceID)
	}

	known, err := s.universeRepo.GetNames(ctx, keys(wanted))
	if err != nil {
		return err
	}
	var missing []int64
	for id := range wanted {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	resolved, err := s.client.ResolveNames(ctx, missing)
	if err != nil {
		return err
	}
	names := make([]domain.Name, len(resolved))
	for i, n := range resolved {
		names[i] = domain.Name{ID: n.ID, Name: n.Name, Category: n.Category}
	}
	return s.universeRepo.UpsertNames(ctx, names)
}

// snapshotPrices pulls regional market history for the hull and every item
// type and stores it, returning the fetched rows for immediate valuation.
func (s *IngestService) snapshotPrices(ctx context.Context, victim *domain.Victim, items []domain.KillmailItem) (map[int64][]domain.Price, error) {
	typeIDs := priceableTypeIDs(victim, items)

	var mu sync.Mutex
	prices := make(map[int64][]domain.Price, len(typeIDs))
	var all []domain.Price

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.PriceFetchConcurrency)
	for _, typeID := range typeIDs {
		g.Go(func() error {
			days, err := s.client.GetMarketHistory(gCtx, s.regionID, typeID)
			if err != nil {
				return err
			}
			rows := make([]domain.Price, 0, len(days))
			for _, d := range days {
				date, err := time.Parse("2006-01-02", d.Date)
				if err != nil {
					continue
				}
				rows = append(rows, domain.Price{
					TypeID:  typeID,
					Date:    date,
					Average: d.Average,
					Lowest:  d.Lowest,
					Highest: d.Highest,
				})
			}
			mu.Lock()
			prices[typeID] = rows
			all = append(all, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return prices, err
	}

	return prices, s.priceRepo.UpsertBatch(ctx, all)
}

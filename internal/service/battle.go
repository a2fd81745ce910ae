package service

import (
	"context"
	"time"

	"killboard/internal/constants"
	"killboard/internal/domain"
	"killboard/internal/repository"

	"github.com/rs/zerolog"
)

// BattleWindow is the system/time interval a killmail was found to be part
// of a larger engagement in. Derived per request, never persisted.
type BattleWindow struct {
	SolarSystemID int64     `json:"solar_system_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	KillCount     int       `json:"kill_count"`
}

// BattleReport is a battle window plus its member list and summary
// statistics.
type BattleReport struct {
	Window             BattleWindow        `json:"window"`
	Killmails          []domain.KillmailRef `json:"killmails"`
	UniqueCharacters   int                 `json:"unique_characters"`
	UniqueCorporations int                 `json:"unique_corporations"`
	UniqueAlliances    int                 `json:"unique_alliances"`
	DurationMinutes    int                 `json:"duration_minutes"`
}

type BattleService struct {
	killmailRepo *repository.KillmailRepository
	logger       zerolog.Logger
}

func NewBattleService(killmailRepo *repository.KillmailRepository, logger zerolog.Logger) *BattleService {
	return &BattleService{killmailRepo: killmailRepo, logger: logger}
}

// FindBattle probes whether the killmail at (systemID, killTime) sits inside
// a battle: ten or more killmails in the same system within an hour either
// side. Nil means no battle; a failed count is logged and also means no
// battle, never an error.
func (s *BattleService) FindBattle(ctx context.Context, systemID int64, killTime time.Time) *BattleWindow {
	start := killTime.Add(-constants.BattleWindow)
	end := killTime.Add(constants.BattleWindow)

	count, err := s.killmailRepo.CountInSystemWindow(ctx, systemID, start, end)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("system_id", systemID).
			Time("kill_time", killTime).
			Msg("battle window count failed")
		return nil
	}
	if count < constants.BattleThreshold {
		return nil
	}

	return &BattleWindow{
		SolarSystemID: systemID,
		Start:         start,
		End:           end,
		KillCount:     count,
	}
}

// GetBattleReportForKillmail probes the battle window around a killmail
// looked up by its external id. Nil when the killmail is unknown or not in
// a battle.
func (s *BattleService) GetBattleReportForKillmail(ctx context.Context, killmailID int64) *BattleReport {
	km, err := s.killmailRepo.GetByKillmailID(ctx, killmailID)
	if err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("killmail query failed")
		return nil
	}
	if km == nil {
		return nil
	}
	return s.GetBattleReport(ctx, km.SolarSystemID, km.KillTime)
}

// GetBattleReport expands a battle probe into the full member list and its
// summary statistics. Nil when the killmail is not in a battle or the
// member query fails.
func (s *BattleService) GetBattleReport(ctx context.Context, systemID int64, killTime time.Time) *BattleReport {
	window := s.FindBattle(ctx, systemID, killTime)
	if window == nil {
		return nil
	}

	members, err := s.killmailRepo.GetInSystemWindow(ctx, systemID, window.Start, window.End)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("system_id", systemID).
			Msg("battle member query failed")
		return nil
	}
	victims, err := s.killmailRepo.GetWindowVictims(ctx, systemID, window.Start, window.End)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("system_id", systemID).
			Msg("battle victim query failed")
		return nil
	}

	characters := make(map[int64]struct{})
	corporations := make(map[int64]struct{})
	alliances := make(map[int64]struct{})
	for _, v := range victims {
		if v.CharacterID != nil {
			characters[*v.CharacterID] = struct{}{}
		}
		if v.CorporationID != nil {
			corporations[*v.CorporationID] = struct{}{}
		}
		if v.AllianceID != nil {
			alliances[*v.AllianceID] = struct{}{}
		}
	}

	duration := 0
	if len(members) > 1 {
		duration = int(members[len(members)-1].KillTime.Sub(members[0].KillTime).Minutes())
	}

	return &BattleReport{
		Window:             *window,
		Killmails:          members,
		UniqueCharacters:   len(characters),
		UniqueCorporations: len(corporations),
		UniqueAlliances:    len(alliances),
		DurationMinutes:    duration,
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"killboard/internal/domain"

	"github.com/rs/zerolog"
)

func storeKill(t *testing.T, repos testRepos, killmailID, systemID int64, killTime time.Time, victim *domain.Victim) {
	t.Helper()
	if victim == nil {
		victim = &domain.Victim{
			CharacterID:   int64Ptr(90000000 + killmailID),
			CorporationID: int64Ptr(98000001),
			ShipTypeID:    587,
		}
	}
	_, err := repos.killmail.Store(context.Background(),
		&domain.Killmail{
			KillmailID:    killmailID,
			Hash:          "hash",
			KillTime:      killTime,
			SolarSystemID: systemID,
			AttackerCount: 1,
		},
		victim, nil, nil)
	if err != nil {
		t.Fatalf("store killmail %d: %v", killmailID, err)
	}
}

func TestFindBattleThreshold(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewBattleService(repos.killmail, zerolog.Nop())
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 9; i++ {
		storeKill(t, repos, i, 30000142, base.Add(time.Duration(i)*time.Minute), nil)
	}
	if battle := svc.FindBattle(context.Background(), 30000142, base); battle != nil {
		t.Fatalf("9 killmails produced a battle: %+v", battle)
	}

	storeKill(t, repos, 10, 30000142, base.Add(10*time.Minute), nil)
	battle := svc.FindBattle(context.Background(), 30000142, base)
	if battle == nil {
		t.Fatal("10 killmails produced no battle")
	}
	if battle.KillCount != 10 {
		t.Errorf("kill count = %d, want 10", battle.KillCount)
	}
	if !battle.Start.Equal(base.Add(-time.Hour)) || !battle.End.Equal(base.Add(time.Hour)) {
		t.Errorf("window = [%v, %v), want symmetric hour around the killmail", battle.Start, battle.End)
	}
}

func TestFindBattleIgnoresOtherSystems(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewBattleService(repos.killmail, zerolog.Nop())
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 12; i++ {
		storeKill(t, repos, i, 30002187, base, nil)
	}
	if battle := svc.FindBattle(context.Background(), 30000142, base); battle != nil {
		t.Errorf("battle found in the wrong system: %+v", battle)
	}
}

func TestGetBattleReportStats(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewBattleService(repos.killmail, zerolog.Nop())
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 10; i++ {
		victim := &domain.Victim{
			CharacterID:   int64Ptr(90000000 + i),
			CorporationID: int64Ptr(98000000 + i%2), // two corporations
			ShipTypeID:    587,
		}
		if i <= 4 {
			victim.AllianceID = int64Ptr(99000001)
		}
		storeKill(t, repos, i, 30000142, base.Add(time.Duration(i)*time.Minute), victim)
	}

	report := svc.GetBattleReport(context.Background(), 30000142, base)
	if report == nil {
		t.Fatal("no report for a qualifying window")
	}
	if report.Window.KillCount != 10 {
		t.Errorf("kill count = %d, want 10", report.Window.KillCount)
	}
	if len(report.Killmails) != 10 {
		t.Errorf("members = %d, want 10", len(report.Killmails))
	}
	if report.UniqueCharacters != 10 {
		t.Errorf("unique characters = %d, want 10", report.UniqueCharacters)
	}
	if report.UniqueCorporations != 2 {
		t.Errorf("unique corporations = %d, want 2", report.UniqueCorporations)
	}
	if report.UniqueAlliances != 1 {
		t.Errorf("unique alliances = %d, want 1 (victims without an alliance do not count)", report.UniqueAlliances)
	}
	if report.DurationMinutes != 9 {
		t.Errorf("duration = %d minutes, want 9 (first to last kill)", report.DurationMinutes)
	}
}

func TestGetBattleReportForUnknownKillmail(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewBattleService(repos.killmail, zerolog.Nop())

	if report := svc.GetBattleReportForKillmail(context.Background(), 424242); report != nil {
		t.Errorf("report for unknown killmail: %+v", report)
	}
}

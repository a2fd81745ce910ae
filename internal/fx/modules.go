package fx

import (
	"killboard/internal/config"
	"killboard/internal/database"
	"killboard/internal/esi"
	"killboard/internal/logger"
	"killboard/internal/repository"
	"killboard/internal/server"
	"killboard/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewKillmailRepository),
	fx.Provide(repository.NewPriceRepository),
	fx.Provide(repository.NewUniverseRepository),
	// api client
	fx.Provide(esi.NewClient),
	// svc
	fx.Provide(service.NewBattleService),
	fx.Provide(service.NewKillmailDetailService),
	fx.Provide(service.NewIngestService),
	// server
	fx.Provide(server.NewKillboardServer),
)

package fx

import (
	"mastery-tracker/internal/api"
	"mastery-tracker/internal/config"
	"mastery-tracker/internal/database"
	"mastery-tracker/internal/ddragon"
	"mastery-tracker/internal/logger"
	"mastery-tracker/internal/mock"
	"mastery-tracker/internal/repository"
	"mastery-tracker/internal/riot"
	"mastery-tracker/internal/server"
	"mastery-tracker/internal/service"
	"mastery-tracker/internal/throttle"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideAggregator picks the fixture-backed aggregator in mock mode and the
// live Riot aggregation otherwise.
func ProvideAggregator(cfg *config.Config, riotClient *riot.Client, catalog *ddragon.Catalog, logger zerolog.Logger) (server.Aggregator, error) {
	if cfg.MockMode {
		agg, err := mock.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		return agg, nil
	}
	return service.NewAggregationService(riotClient, catalog, cfg, logger), nil
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewManualMasteryRepository),
	fx.Provide(repository.NewStatusRepository),
	// riot access, one queue for the whole process
	fx.Provide(api.NewRiotClient),
	fx.Provide(throttle.NewFromConfig),
	fx.Provide(riot.NewClient),
	fx.Provide(ddragon.NewCatalog),
	// svc
	fx.Provide(ProvideAggregator),
	// server
	fx.Provide(server.NewTrackerServer),
)

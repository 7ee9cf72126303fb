//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"pricewatch/internal"
	"pricewatch/internal/controllers"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
	"pricewatch/internal/tracker"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		tracker.NewZstdCompressor,
		tracker.NewHistoryStore,
		services.NewTrackerService,
		tracker.NewFileManager,
		tracker.NewHTTPFetcher,
		tracker.NewAIClient,
		tracker.NewExtractor,
		tracker.NewHTTPSearchClient,
		tracker.NewNotifier,
		tracker.NewAlertEvaluator,
		tracker.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

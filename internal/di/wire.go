//go:build wireinject
// +build wireinject

package di

import (
	"ZonePulse/pkg/config"
	"ZonePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideSignalSink,
		ProvideHistoryStore,
		ProvideMarketStream,

		// Use cases
		ProvideSignalDispatcher,
		ProvideSymbolAnalyzer,
		ProvideIngestPipeline,
		ProvideEventCollector,
		ProvideCoordinator,

		// HTTP and application server
		ProvideZonesHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

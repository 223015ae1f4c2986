//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"Moatline/pkg/config"
	"Moatline/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Telemetry
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Analysis engine
		ProvideAnalysis,
		ProvidePipeline,
		ProvideEvaluator,

		// Infrastructure
		ProvideReportStore,
		ProvideVerdictPublisher,
		ProvideCache,
		ProvideReportCache,
		ProvideSnapshotSource,

		// Use cases
		ProvideAnalysisUseCase,
		ProvideRulesUseCase,
		ProvideKafkaAnalysisHandler,

		// Transport
		ProvideKafkaConsumer,
		ProvideAnalysisHandler,
		ProvideHealthHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"WindowOpt/pkg/config"
	"WindowOpt/pkg/server"

	"github.com/google/wire"
)

var storageSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideResultStore,
	ProvideCache,
	ProvideCachedResults,
	ProvidePriceHistory,
	ProvideBarArchive,
)

var optimizerSet = wire.NewSet(
	ProvideSuite,
	ProvideKafkaProducer,
	ProvidePublisher,
	ProvideOptimizedSymbolService,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		storageSet,
		optimizerSet,

		// Transport
		ProvideKafkaConsumer,
		ProvideKafkaRefreshHandler,
		ProvideRefreshJob,
		ProvideRefreshQueue,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeBatch wires the optimization service and the positions recorder for offline runs.
func InitializeBatch(cfg *config.Config) (*Batch, func(), error) {
	wire.Build(
		storageSet,
		optimizerSet,
		ProvidePositionStore,
		ProvidePositionRecorder,
		ProvideBatch,
	)
	return nil, nil, nil
}

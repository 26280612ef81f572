//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/lk2023060901/cat-gallery/internal/conf"
	"github.com/lk2023060901/cat-gallery/internal/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/gallery/catapi"
	gallerydata "github.com/lk2023060901/cat-gallery/internal/gallery/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/service"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/server"
)

// Data layer providers
var dataProviderSet = wire.NewSet(
	provideData,
	provideEntryRepo,
	wire.Bind(new(biz.EntryRepo), new(*gallerydata.EntryRepo)),
	provideBlobStore,
	provideLocker,
)

// Use case providers
var useCaseProviderSet = wire.NewSet(
	biz.NewEntryUseCase,
	provideWorkerPool,
	provideCatAPI,
	wire.Bind(new(biz.CatSource), new(*catapi.Client)),
	biz.NewImportUseCase,
	provideSweeper,
)

// HTTP service providers
var serviceProviderSet = wire.NewSet(
	provideClassifier,
	service.NewEntryService,
)

// Server providers
var serverProviderSet = wire.NewSet(
	wire.Bind(new(server.HealthChecker), new(*data.Data)),
	server.NewHTTPServer,
)

// InitializeApp wires the HTTP server and its background jobs
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(
		dataProviderSet,
		useCaseProviderSet,
		serviceProviderSet,
		serverProviderSet,
		newApp,
	)
	return nil, nil, nil
}

// InitializeToolkit wires the use cases needed by galleryctl
func InitializeToolkit(config *conf.Config, log *logger.Logger) (*Toolkit, func(), error) {
	wire.Build(
		dataProviderSet,
		useCaseProviderSet,
		wire.Struct(new(Toolkit), "*"),
	)
	return nil, nil, nil
}

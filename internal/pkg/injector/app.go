package injector

import (
	"github.com/lk2023060901/cat-gallery/internal/conf"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	gallerydata "github.com/lk2023060901/cat-gallery/internal/gallery/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/sweeper"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
	Sweeper    *sweeper.Sweeper
	cleanup    func()
}

// Start 启动后台任务；HTTP 服务由调用方启动
func (a *App) Start() error {
	if a.Config.Sweeper.Enabled {
		return a.Sweeper.Start()
	}
	return nil
}

// Cleanup releases all resources
func (a *App) Cleanup() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	httpServer *server.HTTPServer,
	sw *sweeper.Sweeper,
) (*App, func()) {
	cleanup := func() {
		sw.Stop()
	}

	return &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
		Sweeper:    sw,
		cleanup:    cleanup,
	}, cleanup
}

// Toolkit galleryctl 使用的用例集合
type Toolkit struct {
	Entries  *biz.EntryUseCase
	Importer *biz.ImportUseCase
	Sweeper  *sweeper.Sweeper
	Repo     *gallerydata.EntryRepo
	Blobs    biz.BlobStore
}

package injector

import (
	"fmt"

	"github.com/lk2023060901/cat-gallery/internal/conf"
	"github.com/lk2023060901/cat-gallery/internal/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/gallery/catapi"
	"github.com/lk2023060901/cat-gallery/internal/gallery/classifier"
	gallerydata "github.com/lk2023060901/cat-gallery/internal/gallery/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/service"
	"github.com/lk2023060901/cat-gallery/internal/gallery/sweeper"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// Data layer helpers

func provideData(config *conf.Config, log *logger.Logger) (*data.Data, func(), error) {
	return data.NewData(config, log)
}

func provideEntryRepo(d *data.Data) (*gallerydata.EntryRepo, error) {
	repo := gallerydata.NewEntryRepo(d.DB)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

func provideBlobStore(config *conf.Config, d *data.Data, log *logger.Logger) (biz.BlobStore, error) {
	switch config.Storage.Backend {
	case conf.StorageMinIO:
		if d.MinIOClient == nil {
			return nil, fmt.Errorf("storage backend %q requires a minio client", conf.StorageMinIO)
		}
		return gallerydata.NewObjectBlobStore(d.MinIOClient), nil
	default:
		folder, err := config.Storage.ResolveUploadFolder(config.App)
		if err != nil {
			return nil, err
		}
		log.Info("using local upload folder", zap.String("folder", folder))
		return gallerydata.NewLocalBlobStore(folder, log), nil
	}
}

// provideLocker 启用 Redis 时使用分布式锁，否则使用进程内锁
func provideLocker(config *conf.Config, d *data.Data, log *logger.Logger) biz.Locker {
	if d.RedisClient != nil {
		return gallerydata.NewRedisLocker(d.RedisClient, config.Lock, log)
	}
	return biz.NewKeyedMutex()
}

// Use case helpers

func provideWorkerPool(config *conf.Config, log *logger.Logger) (*workerpool.Pool, func(), error) {
	pool, err := workerpool.New(&config.WorkerPool, log)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Shutdown, nil
}

func provideCatAPI(config *conf.Config, log *logger.Logger) *catapi.Client {
	return catapi.New(config.CatAPI, log)
}

func provideSweeper(config *conf.Config, repo *gallerydata.EntryRepo, blobs biz.BlobStore, log *logger.Logger) *sweeper.Sweeper {
	return sweeper.New(repo, blobs, config.Sweeper, log)
}

// Service helpers

func provideClassifier(config *conf.Config, log *logger.Logger) service.Classifier {
	return classifier.New(config.Classifier, log)
}

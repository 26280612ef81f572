package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/conf"
	"github.com/lk2023060901/cat-gallery/internal/pkg/database"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/minio"
	"github.com/lk2023060901/cat-gallery/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data 共享的基础设施连接；Redis、MinIO 只在配置启用时创建
type Data struct {
	DB          *database.DB
	RedisClient *redis.Client
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	d := &Data{DB: db, Logger: log}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if d.MinIOClient != nil {
			_ = d.MinIOClient.Close()
		}
		if d.RedisClient != nil {
			_ = d.RedisClient.Close()
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	if config.Redis.Enabled {
		d.RedisClient, err = redis.New(&config.Redis, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	if config.Storage.Backend == conf.StorageMinIO {
		d.MinIOClient, err = initMinIO(&config.MinIO, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
	}

	return d, cleanup, nil
}

func initMinIO(cfg *minio.Config, log *logger.Logger) (*minio.Client, error) {
	client, err := minio.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create bucket if not exists
	if err := client.EnsureBucket(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// HealthCheck 检查已启用的依赖
func (d *Data) HealthCheck(ctx context.Context) error {
	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

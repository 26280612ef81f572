package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/redis"
	"go.uber.org/zap"
)

// LockConfig 条目锁配置
type LockConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DefaultLockConfig 默认锁配置
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:        30 * time.Second,
		MaxRetries: 50,
		RetryDelay: 100 * time.Millisecond,
	}
}

type distLock interface {
	TryLock(ctx context.Context, key string, expiration time.Duration, maxRetries int, retryDelay time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisLocker 多实例部署时按条目 ID 加分布式锁
type RedisLocker struct {
	client distLock
	cfg    LockConfig
	logger *logger.Logger
}

// NewRedisLocker 创建分布式锁
func NewRedisLocker(client *redis.Client, cfg LockConfig, log *logger.Logger) *RedisLocker {
	return newRedisLocker(client, cfg, log)
}

func newRedisLocker(client distLock, cfg LockConfig, log *logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.L()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: log.Named("lock")}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	lockKey := "lock:entry:" + key

	token, err := l.client.TryLock(ctx, lockKey, l.cfg.TTL, l.cfg.MaxRetries, l.cfg.RetryDelay)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return fmt.Errorf("%s: %w", key, biz.ErrLockBusy)
		}
		return err
	}

	defer func() {
		// 使用独立 ctx，请求取消后仍要释放锁
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.client.Unlock(unlockCtx, lockKey, token); err != nil {
			l.logger.WithContext(ctx).Warn("failed to release entry lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	return fn()
}

var _ biz.Locker = (*RedisLocker)(nil)

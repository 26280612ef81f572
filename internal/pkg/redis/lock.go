package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 只有持有者才能删除锁
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock 获取分布式锁，返回持有者 token
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, c.Key(key), token, expiration).Result()
	if err != nil {
		c.logger.Error("redis lock failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	if !ok {
		return "", ErrLockNotAcquired
	}

	c.logger.Debug("redis lock acquired", zap.String("key", key), zap.Duration("expiration", expiration))
	return token, nil
}

// Unlock 释放分布式锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, c.rdb, []string{c.Key(key)}, token).Int64()
	if err != nil {
		c.logger.Error("redis unlock failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}

	c.logger.Debug("redis lock released", zap.String("key", key))
	return nil
}

// TryLock 获取锁，被占用时每隔 retryDelay 重试，直到成功、ctx 结束或重试耗尽
func (c *Client) TryLock(ctx context.Context, key string, expiration time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	var err error
	for i := 0; i <= maxRetries; i++ {
		var token string
		token, err = c.Lock(ctx, key, expiration)
		if err == nil {
			return token, nil
		}
		if err != ErrLockNotAcquired {
			return "", err
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}

	c.logger.Warn("redis trylock gave up", zap.String("key", key), zap.Int("retries", maxRetries))
	return "", fmt.Errorf("acquire lock %s after %d retries: %w", key, maxRetries, err)
}

package data

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDistLock struct {
	held      map[string]string
	tryErr    error
	unlockErr error
	unlocked  []string
}

func (f *fakeDistLock) TryLock(_ context.Context, key string, _ time.Duration, _ int, _ time.Duration) (string, error) {
	if f.tryErr != nil {
		return "", f.tryErr
	}
	if _, ok := f.held[key]; ok {
		return "", fmt.Errorf("acquire lock %s: %w", key, redis.ErrLockNotAcquired)
	}
	f.held[key] = "token-" + key
	return f.held[key], nil
}

func (f *fakeDistLock) Unlock(_ context.Context, key, token string) error {
	f.unlocked = append(f.unlocked, key)
	if f.held[key] != token {
		return redis.ErrLockNotHeld
	}
	delete(f.held, key)
	return f.unlockErr
}

func TestRedisLocker_WithLock(t *testing.T) {
	fake := &fakeDistLock{held: map[string]string{}}
	locker := newRedisLocker(fake, DefaultLockConfig(), logger.Nop())

	called := false
	err := locker.WithLock(context.Background(), "X", func() error {
		called = true
		assert.Contains(t, fake.held, "lock:entry:X")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, fake.held)
	assert.Equal(t, []string{"lock:entry:X"}, fake.unlocked)
}

func TestRedisLocker_Busy(t *testing.T) {
	fake := &fakeDistLock{held: map[string]string{"lock:entry:X": "other"}}
	locker := newRedisLocker(fake, DefaultLockConfig(), logger.Nop())

	err := locker.WithLock(context.Background(), "X", func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, biz.ErrLockBusy)
	assert.Empty(t, fake.unlocked)
}

func TestRedisLocker_PropagatesErrors(t *testing.T) {
	fake := &fakeDistLock{held: map[string]string{}, tryErr: errors.New("connection refused")}
	locker := newRedisLocker(fake, DefaultLockConfig(), logger.Nop())

	err := locker.WithLock(context.Background(), "X", func() error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, biz.ErrLockBusy)

	fake.tryErr = nil
	want := errors.New("boom")
	err = locker.WithLock(context.Background(), "X", func() error { return want })
	assert.ErrorIs(t, err, want)
	assert.Empty(t, fake.held)
}

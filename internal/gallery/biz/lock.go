package biz

import (
	"context"
	"sync"
)

// KeyedMutex 进程内按 key 互斥，锁对象在无人等待时回收
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex 创建进程内锁
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// WithLock 持有 key 对应的锁执行 fn，等待期间可被 ctx 取消
func (m *KeyedMutex) WithLock(ctx context.Context, key string, fn func() error) error {
	l := m.acquireRef(key)
	defer m.releaseRef(key, l)

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.ch }()

	return fn()
}

func (m *KeyedMutex) acquireRef(key string) *keyedLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	return l
}

func (m *KeyedMutex) releaseRef(key string, l *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// size 当前持有的锁对象数量
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

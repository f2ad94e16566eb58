package redisclient

import (
	"context"
	"sync"
)

// localLocker serializes bookings per key inside a single process. Used by
// tests and single-instance deployments that run without Redis.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() Locker {
	return &localLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *localLocker) WithBookingLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}

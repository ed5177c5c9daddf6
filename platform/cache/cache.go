// Package cache provides TTL caches that are injected into the components
// that own them. Nothing in this package is process-global.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores values of type T under string keys with a fixed TTL.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
	Delete(ctx context.Context, key string) error
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is a thread-safe in-process cache with TTL.
type Memory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates an in-process cache. Expired entries are swept every ttl
// until Close is called.
func NewMemory[T any](ttl time.Duration) *Memory[T] {
	c := newMemory[T](ttl, time.Now)
	go c.sweep()
	return c
}

func newMemory[T any](ttl time.Duration, now func() time.Time) *Memory[T] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   now,
		stop:  make(chan struct{}),
	}
}

// Get returns the cached value. Expired entries are reported as misses.
func (c *Memory[T]) Get(_ context.Context, key string) (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores value for the configured TTL.
func (c *Memory[T]) Set(_ context.Context, key string, value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Delete removes key.
func (c *Memory[T]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Memory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweeper.
func (c *Memory[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Memory[T]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *Memory[T]) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, v := range c.items {
		if !now.Before(v.expiresAt) {
			delete(c.items, k)
		}
	}
}

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc computes the value for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Entry is a cached value and when it was fetched.
type Entry[T any] struct {
	Value     T
	LastFetch time.Time
}

type slot[T any] struct {
	entry Entry[T]
	valid bool
	stale bool
	fetch FetchFunc[T]
}

// Cache holds values of one type keyed by Key.
type Cache[T any] struct {
	mu       sync.Mutex
	slots    map[Key]*slot[T]
	interval time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a cache whose values stay fresh for interval.
func New[T any](interval time.Duration, logger *slog.Logger) *Cache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[T]{
		slots:    make(map[Key]*slot[T]),
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Interval returns how long a value stays fresh.
func (c *Cache[T]) Interval() time.Duration {
	return c.interval
}

// Get returns the cached value for key when fresh, else calls fetch.
// fetch is remembered for Refresh.
func (c *Cache[T]) Get(ctx context.Context, key Key, fetch FetchFunc[T]) (T, error) {
	c.mu.Lock()
	s, ok := c.slots[key]
	if !ok {
		s = &slot[T]{}
		c.slots[key] = s
	}
	if fetch != nil {
		s.fetch = fetch
	}
	if s.valid && !s.stale && c.now().Sub(s.entry.LastFetch) < c.interval {
		v := s.entry.Value
		c.mu.Unlock()
		return v, nil
	}
	fn := s.fetch
	c.mu.Unlock()

	if fn == nil {
		var zero T
		return zero, ErrNoFetch
	}
	return c.load(ctx, key, fn)
}

// load runs fn once per key across concurrent callers.
func (c *Cache[T]) load(ctx context.Context, key Key, fn FetchFunc[T]) (T, error) {
	// The shared call must outlive any single caller.
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key.flight(), func() (any, error) {
		v, err := fn(fetchCtx)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		if s, ok := c.slots[key]; ok {
			s.entry = Entry[T]{Value: v, LastFetch: c.now()}
			s.valid = true
			s.stale = false
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug("cache fetch failed", "key", key.String(), "err", res.Err)
			var zero T
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Refresh marks key stale and re-runs its fetch once. With clear, the
// previous value is dropped first so Peek reports nothing until the
// new value arrives.
func (c *Cache[T]) Refresh(ctx context.Context, key Key, clear bool) (T, error) {
	c.mu.Lock()
	s, ok := c.slots[key]
	if !ok || s.fetch == nil {
		c.mu.Unlock()
		var zero T
		return zero, ErrNoFetch
	}
	s.stale = true
	if clear {
		s.entry = Entry[T]{}
		s.valid = false
	}
	fn := s.fetch
	c.mu.Unlock()

	return c.load(ctx, key, fn)
}

// Peek returns the cached entry for key without fetching.
func (c *Cache[T]) Peek(key Key) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok || !s.valid {
		return Entry[T]{}, false
	}
	return s.entry, true
}

// Invalidate forgets key entirely, including its fetch function.
func (c *Cache[T]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, key)
}

// Keys returns every key with a registered fetch function.
func (c *Cache[T]) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Key, 0, len(c.slots))
	for k, s := range c.slots {
		if s.fetch != nil {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of keys holding a value.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slots {
		if s.valid {
			n++
		}
	}
	return n
}

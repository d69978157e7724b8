// Package query pairs platform clients with a small query/mutation cache so
// screens get loading, error and data state without repeating request
// plumbing.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/metrics"
)

// Key identifies cached query data, e.g. "dealers" or "agents?status=pending"
type Key string

// Default cache timings
const (
	DefaultStaleTime       = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// ErrDiscarded is returned by Refetch when a newer fetch or an unmount made
// the response irrelevant. The response was dropped, not applied.
var ErrDiscarded = errors.New("query response discarded")

type refetcher interface {
	refetch(ctx context.Context) error
}

// Cache stores query results and tracks mounted queries by key
type Cache struct {
	store   *gocache.Cache
	logger  *log.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	nextID  uint64
	mounted map[Key]map[uint64]refetcher
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l.Named("query")
		}
	}
}

// WithMetrics records cache hits, fetches and discarded responses
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a cache whose entries go stale after staleTime
func NewCache(staleTime, cleanupInterval time.Duration, opts ...Option) *Cache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &Cache{
		store:   gocache.New(staleTime, cleanupInterval),
		logger:  log.DefaultLogger(),
		mounted: make(map[Key]map[uint64]refetcher),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores data under key. Concurrent writers race; the last Set wins.
func (c *Cache) Set(key Key, data interface{}) {
	c.store.Set(string(key), data, gocache.DefaultExpiration)
}

// Get returns fresh data stored under key
func (c *Cache) Get(key Key) (interface{}, bool) {
	v, ok := c.store.Get(string(key))
	c.metrics.CacheLookup(string(key), ok)
	return v, ok
}

// Invalidate drops the given keys and refetches every mounted query that
// uses them. Other keys are left alone.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	var targets []refetcher

	c.mu.Lock()
	for _, key := range keys {
		c.store.Delete(string(key))
		for _, r := range c.mounted[key] {
			targets = append(targets, r)
		}
	}
	c.mu.Unlock()

	c.logger.Debug("invalidated", "keys", keys, "refetching", len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range targets {
		r := r
		g.Go(func() error {
			if err := r.refetch(gctx); err != nil && !errors.Is(err, ErrDiscarded) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Mounted returns how many mounted queries use key
func (c *Cache) Mounted(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mounted[key])
}

func (c *Cache) subscribe(key Key, r refetcher) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if c.mounted[key] == nil {
		c.mounted[key] = make(map[uint64]refetcher)
	}
	c.mounted[key][id] = r

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.mounted[key], id)
		if len(c.mounted[key]) == 0 {
			delete(c.mounted, key)
		}
	}
}

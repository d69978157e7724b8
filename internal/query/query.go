package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marikmarie/mtnvas/internal/platform"
)

// FetchFunc loads query data with a freshly built client
type FetchFunc[T any] func(ctx context.Context, c *platform.Client) (T, error)

// State is what a screen renders for a query
type State[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	Err       error
	UpdatedAt time.Time
}

// Query is a read operation bound to a cache key
type Query[T any] struct {
	cache   *Cache
	factory *platform.Factory
	key     Key
	desc    platform.Descriptor
	fetch   FetchFunc[T]

	mu          sync.Mutex
	state       State[T]
	gen         uint64
	mounted     bool
	unsubscribe func()
	onChange    func(State[T])
}

// NewQuery creates an unmounted query
func NewQuery[T any](cache *Cache, factory *platform.Factory, key Key, desc platform.Descriptor, fetch FetchFunc[T]) *Query[T] {
	return &Query[T]{
		cache:   cache,
		factory: factory,
		key:     key,
		desc:    desc,
		fetch:   fetch,
	}
}

// OnChange registers fn to receive every state change
func (q *Query[T]) OnChange(fn func(State[T])) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

// Key returns the cache key
func (q *Query[T]) Key() Key {
	return q.key
}

// Mount subscribes the query to invalidations of its key and fetches.
// Cached data, if fresh, is exposed while the fetch is in flight.
func (q *Query[T]) Mount(ctx context.Context) error {
	q.mu.Lock()
	if !q.mounted {
		q.mounted = true
		q.unsubscribe = q.cache.subscribe(q.key, q)
	}
	if cached, ok := q.cache.Get(q.key); ok {
		if data, ok := cached.(T); ok {
			q.state.Data = data
			q.state.HasData = true
		}
	}
	q.mu.Unlock()

	return q.Refetch(ctx)
}

// Unmount stops the query. A fetch still in flight is discarded when it
// completes.
func (q *Query[T]) Unmount() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.mounted {
		return
	}
	q.mounted = false
	q.gen++
	q.state.IsLoading = false
	if q.unsubscribe != nil {
		q.unsubscribe()
		q.unsubscribe = nil
	}
}

// Refetch loads the data again. Only the most recently started fetch of a
// mounted query may update its state; older responses return ErrDiscarded.
func (q *Query[T]) Refetch(ctx context.Context) error {
	q.mu.Lock()
	if !q.mounted {
		q.mu.Unlock()
		return ErrDiscarded
	}
	q.gen++
	gen := q.gen
	q.state.IsLoading = true
	emit, state := q.onChange, q.state
	q.mu.Unlock()
	notifyChange(emit, state)

	client := q.factory.New(ctx, q.desc)
	data, err := q.fetch(ctx, client)

	q.mu.Lock()
	if gen != q.gen || !q.mounted {
		q.mu.Unlock()
		q.cache.metrics.Discarded(string(q.key))
		q.cache.logger.Debug("discarded stale response", "key", string(q.key))
		return ErrDiscarded
	}

	if err != nil {
		q.state.IsLoading = false
		q.state.Err = err
	} else {
		q.state = State[T]{Data: data, HasData: true, UpdatedAt: time.Now()}
		q.cache.Set(q.key, data)
	}
	emit, state = q.onChange, q.state
	q.mu.Unlock()

	q.cache.metrics.Fetched(string(q.key), err == nil)
	notifyChange(emit, state)
	return err
}

func (q *Query[T]) refetch(ctx context.Context) error {
	return q.Refetch(ctx)
}

// State returns the current state
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func notifyChange[T any](fn func(State[T]), s State[T]) {
	if fn != nil {
		fn(s)
	}
}

// MutateFunc performs a write with a freshly built client
type MutateFunc[In, Out any] func(ctx context.Context, c *platform.Client, in In) (Out, error)

// MutationOptions declares what happens after a successful write
type MutationOptions[Out any] struct {
	OnSuccess func(Out)
	// Invalidates lists the keys that become stale. Nothing else is touched.
	Invalidates []Key
}

// Mutation is a write operation. It never retries.
type Mutation[In, Out any] struct {
	cache    *Cache
	factory  *platform.Factory
	desc     platform.Descriptor
	do       MutateFunc[In, Out]
	opts     MutationOptions[Out]
	inflight atomic.Int32
}

// NewMutation creates a mutation
func NewMutation[In, Out any](cache *Cache, factory *platform.Factory, desc platform.Descriptor, do MutateFunc[In, Out], opts MutationOptions[Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{
		cache:   cache,
		factory: factory,
		desc:    desc,
		do:      do,
		opts:    opts,
	}
}

// Mutate performs the write, then runs OnSuccess and invalidates the
// declared keys. Refetch failures after a successful write are logged, not
// returned.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.inflight.Add(1)
	defer m.inflight.Add(-1)

	client := m.factory.New(ctx, m.desc)
	out, err := m.do(ctx, client, in)
	m.cache.metrics.Mutated(err == nil)
	if err != nil {
		return out, err
	}

	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(out)
	}
	if len(m.opts.Invalidates) > 0 {
		if err := m.cache.Invalidate(ctx, m.opts.Invalidates...); err != nil {
			m.cache.logger.WithError(err).Warn("refetch after mutation failed")
		}
	}
	return out, nil
}

// IsLoading reports whether a Mutate call is in flight
func (m *Mutation[In, Out]) IsLoading() bool {
	return m.inflight.Load() > 0
}

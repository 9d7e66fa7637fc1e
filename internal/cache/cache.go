// Package cache provides a short-lived memo for remote lookups. Values expire
// after a TTL and concurrent loads of the same key share one request.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// LoadFunc fetches the value for a key on a miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Memo is a TTL cache with in-flight de-duplication.
type Memo[V any] struct {
	store *gocache.Cache
	group singleflight.Group
	ttl   time.Duration

	mu  sync.Mutex
	gen map[string]uint64 // bumped by Forget
}

// New creates a memo whose entries live for ttl.
func New[V any](ttl time.Duration) *Memo[V] {
	cleanup := 2 * ttl
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &Memo[V]{
		store: gocache.New(ttl, cleanup),
		ttl:   ttl,
		gen:   make(map[string]uint64),
	}
}

// Get returns the cached value for key, calling load on a miss. Concurrent
// callers for the same key wait on a single load. Errors are not cached.
//
// The load runs detached from any single caller's cancellation so one
// caller giving up does not fail the others; each caller still returns as
// soon as its own ctx is done. A load that finishes after Forget(key)
// still answers its waiters but is not stored.
func (m *Memo[V]) Get(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	if v, ok := m.store.Get(key); ok {
		return v.(V), nil
	}
	gen := m.generation(key)
	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.store.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if m.gen[key] == gen {
			m.store.Set(key, v, m.ttl)
		}
		m.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Peek returns the cached value without loading.
func (m *Memo[V]) Peek(key string) (V, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Forget drops key so the next Get reloads it.
// A load in flight for key is not stored when it completes.
func (m *Memo[V]) Forget(key string) {
	m.mu.Lock()
	m.gen[key]++
	m.store.Delete(key)
	m.mu.Unlock()
	m.group.Forget(key)
}

func (m *Memo[V]) generation(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen[key]
}

// Len returns the number of cached entries, expired ones included until
// the next cleanup.
func (m *Memo[V]) Len() int {
	return m.store.ItemCount()
}

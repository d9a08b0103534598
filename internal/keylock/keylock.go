package keylock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Registry maps keys to reference-counted locks. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem *semaphore.Weighted
	// refs counts holders plus waiters. The entry is removed from the
	// registry when refs returns to zero.
	refs int
}

// Handle represents one successful acquisition. Release it exactly once.
type Handle struct {
	registry *Registry
	key      string
	released bool
}

// NewRegistry constructs an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire blocks until the key's lock is free or ctx is done. On success the
// caller owns the key's critical section until Release.
func (r *Registry) Acquire(ctx context.Context, key string) (*Handle, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("keylock: empty key")
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		r.drop(key, e)
		return nil, err
	}
	return &Handle{registry: r, key: key}, nil
}

// Release frees the key for the next waiter. A second Release on the same
// handle is a no-op.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true

	r := h.registry
	r.mu.Lock()
	e, ok := r.entries[h.key]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.sem.Release(1)
	r.drop(h.key, e)
}

// Key returns the key this handle guards.
func (h *Handle) Key() string {
	if h == nil {
		return ""
	}
	return h.key
}

func (r *Registry) drop(key string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, key)
	}
}

// Len reports the number of live keys, exposed for tests and status output.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

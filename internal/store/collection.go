package store

import (
	"sort"
	"sync"
)

// Entity is anything the store can cache by id.
type Entity interface {
	EntityID() string
}

// Collection is an in-memory cache of one entity type. Writers always
// replace by id; merging partial fields is the mutation coordinator's
// job. Readers get sorted copies, never shared slices.
//
// Each local optimistic write stamps the entity with a monotonic
// revision. ReplaceAll carries the revision observed when its refetch
// began, so a slow refetch cannot clobber a local write that landed
// while the refetch was in flight.
type Collection[T Entity] struct {
	mu    sync.RWMutex
	items map[string]T
	local map[string]uint64
	rev   uint64
	less  func(a, b T) bool
}

// NewCollection creates an empty collection sorted by less.
func NewCollection[T Entity](less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{
		items: map[string]T{},
		local: map[string]uint64{},
		less:  less,
	}
}

// Rev returns the current revision counter. Capture it before starting
// a refetch and hand it to ReplaceAll.
func (c *Collection[T]) Rev() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rev
}

// Snapshot returns a sorted copy of all entities.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return c.less(out[i], out[j]) })
	return out
}

// Get returns the entity with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Len returns the number of cached entities.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// ReplaceAll swaps in the result of a full refetch that began when the
// revision counter read asOf. Entities with an unconfirmed local write
// newer than asOf keep their local copy; everything else takes the
// server's version. Last write observed wins beyond that.
func (c *Collection[T]) ReplaceAll(entities []T, asOf uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]T, len(entities))
	for _, e := range entities {
		id := e.EntityID()
		if rev, ok := c.local[id]; ok && rev > asOf {
			if cur, exists := c.items[id]; exists {
				next[id] = cur
				continue
			}
		}
		next[id] = e
	}
	// Keep locally written entities the server has not shown us yet.
	for id, rev := range c.local {
		if rev > asOf {
			if cur, ok := c.items[id]; ok {
				next[id] = cur
			}
		} else {
			delete(c.local, id)
		}
	}
	c.items = next
}

// UpsertOne stores a server-confirmed entity.
func (c *Collection[T]) UpsertOne(e T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[e.EntityID()] = e
}

// UpsertLocal stores an optimistic local write and marks it so
// concurrent refetches cannot roll it back.
func (c *Collection[T]) UpsertLocal(e T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rev++
	id := e.EntityID()
	c.items[id] = e
	c.local[id] = c.rev
}

// ConfirmLocal clears the optimistic marker once the remote write is
// acknowledged (or reverted). Later refetches own the entity again.
func (c *Collection[T]) ConfirmLocal(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.local, id)
}

// RemoveOne drops an entity from the cache.
func (c *Collection[T]) RemoveOne(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	delete(c.local, id)
}

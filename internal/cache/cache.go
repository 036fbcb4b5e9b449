// Package cache provides the per-entity-kind in-memory collection cache
// shared by all state containers.
package cache

import (
	"sort"
	"sync"
)

// Record is any entity that can be cached by its stable id.
type Record interface {
	Key() int64
}

// Cache holds the last known collection for one entity kind, a staleness
// flag and an optional selected entity. All mutations are atomic with
// respect to readers.
//
// The staleness flag stays true until the first successful ReplaceAll this
// process lifetime; consumers must treat reads from a stale cache as
// "unknown", not "empty".
type Cache[T Record] struct {
	mu       sync.RWMutex
	byID     map[int64]T
	stale    bool
	selected int64
	hasSel   bool
	pending  map[int64]int
}

// New creates an empty, stale cache.
func New[T Record]() *Cache[T] {
	return &Cache[T]{
		byID:    make(map[int64]T),
		stale:   true,
		pending: make(map[int64]int),
	}
}

// ReplaceAll overwrites the collection with a server-fetched snapshot and
// clears staleness. Entries with an unresolved optimistic mutation keep
// their local version so a user's just-made change does not visibly revert
// before its confirmation arrives.
func (c *Cache[T]) ReplaceAll(records []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[int64]T, len(records))
	for _, rec := range records {
		next[rec.Key()] = rec
	}
	for id, refs := range c.pending {
		if refs <= 0 {
			continue
		}
		if cur, ok := c.byID[id]; ok {
			next[id] = cur
		} else {
			delete(next, id)
		}
	}
	c.byID = next
	c.stale = false
}

// Upsert inserts or replaces a record by id.
func (c *Cache[T]) Upsert(rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[rec.Key()] = rec
}

// Remove deletes a record by id. Subsequent lookups return not-found, never
// stale data.
func (c *Cache[T]) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
	if c.hasSel && c.selected == id {
		c.hasSel = false
	}
}

// Find returns the record by id. It never suspends; absent records
// (including not-yet-loaded ones) report false.
func (c *Cache[T]) Find(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byID[id]
	return rec, ok
}

// All returns the cached collection ordered by id.
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.byID))
	for _, rec := range c.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Len returns the number of cached records.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Stale reports whether no successful fetch has completed yet.
func (c *Cache[T]) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// Select marks the cached record with the given id as the focused entity.
func (c *Cache[T]) Select(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.byID[id]
	if ok {
		c.selected = id
		c.hasSel = true
	}
	return rec, ok
}

// Selected returns the focused entity, if any.
func (c *Cache[T]) Selected() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if !c.hasSel {
		return zero, false
	}
	rec, ok := c.byID[c.selected]
	if !ok {
		return zero, false
	}
	return rec, true
}

// ClearSelection drops the focused entity pointer.
func (c *Cache[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasSel = false
}

// UpsertPending inserts or replaces a record and shields it from ReplaceAll
// in one critical section, so a concurrent snapshot commit can never observe
// the staged record without its pending marker.
func (c *Cache[T]) UpsertPending(rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[rec.Key()] = rec
	c.pending[rec.Key()]++
}

// RemovePending deletes a record and shields its absence from ReplaceAll
// atomically.
func (c *Cache[T]) RemovePending(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
	if c.hasSel && c.selected == id {
		c.hasSel = false
	}
	c.pending[id]++
}

// ResolvePending releases a pending marker set by UpsertPending or
// RemovePending.
func (c *Cache[T]) ResolvePending(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[id] <= 1 {
		delete(c.pending, id)
		return
	}
	c.pending[id]--
}

// Clear resets the cache to its initial empty, stale state.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[int64]T)
	c.pending = make(map[int64]int)
	c.stale = true
	c.hasSel = false
}

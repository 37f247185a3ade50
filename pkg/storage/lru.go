package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// hotCache holds at most size decoded entities in memory, keyed by ID
// (spec §4.2: "An in-memory LRU of at most 1000 hot entities may be held").
// Values are stored as `any` because the cache is shared across entity
// kinds (Project, Epic, AtomicTask, Dependency, DependencyGraph);
// readEntity copies a cached value into the caller's typed pointer with
// reassign (a JSON round-trip) rather than a type assertion.
type hotCache struct {
	cache *lru.Cache[string, any]
}

func newHotCache(size int) *hotCache {
	if size <= 0 {
		size = 1000
	}
	c, _ := lru.New[string, any](size)
	return &hotCache{cache: c}
}

func (h *hotCache) get(id string) (any, bool) {
	return h.cache.Get(id)
}

func (h *hotCache) put(id string, v any) {
	h.cache.Add(id, v)
}

func (h *hotCache) remove(id string) {
	h.cache.Remove(id)
}

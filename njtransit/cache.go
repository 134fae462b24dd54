package njtransit

import (
	"sync"
	"time"
)

// Caches fetched payloads in memory under caller supplied keys. Keys
// are explicit (typically a time bucket) so there is no hidden
// "already fetched this cycle" session state.
type Cache struct {
	mutex   sync.Mutex
	entries map[string]cacheEntry

	TimeNow func() time.Time
}

type cacheEntry struct {
	data       []byte
	expiration time.Time
}

func NewCache() *Cache {
	return &Cache{
		entries: map[string]cacheEntry{},
		TimeNow: time.Now,
	}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiration.After(c.TimeNow()) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.data, true
}

func (c *Cache) Put(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry{
		data:       data,
		expiration: c.TimeNow().Add(ttl),
	}
}

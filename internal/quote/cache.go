package quote

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// Cache is a small in-memory quote cache keyed by origin/destination, so a
// re-requested trip within the TTL does not hit the routing collaborator
// again.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	q  models.Quote
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func (c *Cache) Get(a, b models.Coord) (models.Quote, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.Quote{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.Quote{}, false
	}
	return e.q, true
}

func (c *Cache) Set(a, b models.Coord, q models.Quote) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{q: q, ts: time.Now()}
	c.mu.Unlock()
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

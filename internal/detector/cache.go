package detector

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/types"
)

type cacheEntry struct {
	pool types.PoolState
	seen time.Time
}

// PriceCache holds the last observed state per pool. Entries older than the
// TTL are evicted on read so the search never sees stale reserves.
type PriceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[solana.PublicKey]cacheEntry
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		ttl:     ttl,
		entries: make(map[solana.PublicKey]cacheEntry),
	}
}

func (c *PriceCache) Put(pools []types.PoolState, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pools {
		c.entries[p.ID] = cacheEntry{pool: p, seen: now}
	}
}

// Fresh evicts expired entries and returns the remaining active pools.
func (c *PriceCache) Fresh(now time.Time) []types.PoolState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.PoolState, 0, len(c.entries))
	for id, e := range c.entries {
		if now.Sub(e.seen) > c.ttl {
			delete(c.entries, id)
			continue
		}
		if e.pool.Lifecycle != types.PoolActive {
			continue
		}
		out = append(out, e.pool)
	}
	return out
}

// Pool looks up the last observed state for one pool, regardless of age.
func (c *PriceCache) Pool(id solana.PublicKey) (types.PoolState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.pool, ok
}

func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

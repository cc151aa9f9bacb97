package news

import (
	"context"
	"sync"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

// SymbolCache is a pull-through cache over SymbolLister. Entries are refreshed
// when older than ttl. The clock is injectable so TTL behavior is testable.
type SymbolCache struct {
	lister SymbolLister
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[models.Category]symbolEntry
}

type symbolEntry struct {
	symbols   map[string]bool
	fetchedAt time.Time
}

func NewSymbolCache(lister SymbolLister, ttl time.Duration) *SymbolCache {
	return &SymbolCache{
		lister:  lister,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.Category]symbolEntry),
	}
}

// WithClock replaces the cache clock. Test hook.
func (c *SymbolCache) WithClock(now func() time.Time) *SymbolCache {
	c.now = now
	return c
}

// GetOrRefresh returns the tracked symbol set for category, fetching from the
// lister when the cached entry is missing or stale. A failed refresh falls
// back to the stale entry when one exists.
func (c *SymbolCache) GetOrRefresh(ctx context.Context, category models.Category) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[category]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.symbols, nil
	}

	symbols, err := c.lister.ListTrackedSymbols(ctx, category)
	if err != nil {
		if ok {
			return entry.symbols, nil
		}
		return nil, err
	}

	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	c.entries[category] = symbolEntry{symbols: set, fetchedAt: c.now()}
	return set, nil
}

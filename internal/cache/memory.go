package cache

import (
	"slices"
	"sync"
	"time"

	"finance_tracker/internal/ledger"
)

const DefaultTTL = 30 * time.Second

// TransactionCache memoizes the latest transaction snapshot per user. Entries expire lazily:
// a stale entry stays in the map until it is overwritten, invalidated or swept.
type TransactionCache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	ttl       time.Duration
	now       func() time.Time
	lastFetch time.Time
}

type Option func(*TransactionCache)

func WithClock(now func() time.Time) Option {
	return func(c *TransactionCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTransactionCache(ttl time.Duration, opts ...Option) *TransactionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TransactionCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TransactionCache) TTL() time.Duration {
	return c.ttl
}

func (c *TransactionCache) Set(userID string, transactions []ledger.Transaction) {
	if c == nil {
		return
	}
	now := c.now()
	c.mu.Lock()
	c.entries[userID] = Entry{Data: slices.Clone(transactions), StoredAt: now}
	c.lastFetch = now
	c.mu.Unlock()
}

func (c *TransactionCache) Get(userID string) ([]ledger.Transaction, bool) {
	if c == nil {
		return nil, false
	}
	now := c.now()
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || !c.fresh(entry, now) {
		return nil, false
	}
	return slices.Clone(entry.Data), true
}

func (c *TransactionCache) NeedsRefresh(userID string) bool {
	_, ok := c.Get(userID)
	return !ok
}

func (c *TransactionCache) Invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, userID)
	c.lastFetch = time.Time{}
	c.mu.Unlock()
}

func (c *TransactionCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	clear(c.entries)
	c.lastFetch = time.Time{}
	c.mu.Unlock()
}

// LastFetch is the time of the most recent Set, zero after an invalidation.
func (c *TransactionCache) LastFetch() time.Time {
	if c == nil {
		return time.Time{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

// Sweep drops stale entries and returns how many were removed.
func (c *TransactionCache) Sweep() int {
	if c == nil {
		return 0
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for userID, entry := range c.entries {
		if !c.fresh(entry, now) {
			delete(c.entries, userID)
			removed++
		}
	}
	return removed
}

func (c *TransactionCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// fresh reports age < ttl; an entry exactly ttl old is expired.
func (c *TransactionCache) fresh(entry Entry, now time.Time) bool {
	return now.Sub(entry.StoredAt) < c.ttl
}

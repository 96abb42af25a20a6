package cache

import (
	"context"
	"errors"
	"sync"

	"finance_tracker/internal/ledger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the authoritative transaction list for a user.
type Loader interface {
	Load(ctx context.Context, userID string) ([]ledger.Transaction, error)
}

type LoaderFunc func(ctx context.Context, userID string) ([]ledger.Transaction, error)

func (f LoaderFunc) Load(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return f(ctx, userID)
}

// Cache consults Store before every read of Loader and populates it on miss.
type Cache struct {
	Store    Store
	Loader   Loader
	Observer Observer
	Coalesce bool

	mu    sync.Mutex
	group *singleflight.Group
}

func NewCache(store Store, loader Loader, observer Observer) *Cache {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Cache{Store: store, Loader: loader, Observer: observer, Coalesce: true, group: &singleflight.Group{}}
}

// Load returns the cached snapshot for userID, or reads through to the loader when the entry is
// missing, stale, or force is set. Every completed load overwrites the entry.
func (c *Cache) Load(ctx context.Context, userID string, force bool) ([]ledger.Transaction, error) {
	if c == nil || c.Store == nil || c.Loader == nil {
		return nil, errors.New("cache not initialized")
	}
	if !force {
		if txs, ok := c.Store.Get(userID); ok {
			c.Observer.CacheHit()
			return txs, nil
		}
	}
	c.Observer.CacheMiss()

	if !c.Coalesce || force {
		return c.load(ctx, userID)
	}
	// The shared load is detached from the first caller's cancellation; every caller waits on
	// its own context instead.
	flight := c.flights().DoChan(userID, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), userID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("cache load coalesced", zap.String("user_id", userID))
		}
		return append([]ledger.Transaction(nil), res.Val.([]ledger.Transaction)...), nil
	}
}

func (c *Cache) flights() *singleflight.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		c.group = &singleflight.Group{}
	}
	return c.group
}

func (c *Cache) load(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	txs, err := c.Loader.Load(ctx, userID)
	c.Observer.CacheLoad(err)
	if err != nil {
		return nil, err
	}
	c.Store.Set(userID, txs)
	return txs, nil
}

func (c *Cache) Invalidate(userID string) {
	if c == nil || c.Store == nil {
		return
	}
	// A read that starts after this point must not join a load that began before it.
	c.flights().Forget(userID)
	c.Store.Invalidate(userID)
	c.Observer.CacheInvalidate(false)
}

type allInvalidator interface {
	InvalidateAll()
}

func (c *Cache) InvalidateAll() {
	if c == nil || c.Store == nil {
		return
	}
	if store, ok := c.Store.(allInvalidator); ok {
		c.mu.Lock()
		c.group = &singleflight.Group{}
		c.mu.Unlock()
		store.InvalidateAll()
		c.Observer.CacheInvalidate(true)
	}
}

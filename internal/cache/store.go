package cache

import (
	"time"

	"finance_tracker/internal/ledger"
)

type Entry struct {
	Data     []ledger.Transaction
	StoredAt time.Time
}

type Store interface {
	Get(userID string) ([]ledger.Transaction, bool)
	Set(userID string, transactions []ledger.Transaction)
	Invalidate(userID string)
	NeedsRefresh(userID string) bool
}

type Observer interface {
	CacheHit()
	CacheMiss()
	CacheLoad(err error)
	CacheInvalidate(all bool)
}

type NoopObserver struct{}

func (NoopObserver) CacheHit()            {}
func (NoopObserver) CacheMiss()           {}
func (NoopObserver) CacheLoad(error)      {}
func (NoopObserver) CacheInvalidate(bool) {}

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"finance_tracker/internal/ledger"
	"finance_tracker/internal/testutil"

	"github.com/shopspring/decimal"
)

func tx(id string, amount int64) ledger.Transaction {
	return ledger.Transaction{ID: id, Description: id, Amount: decimal.NewFromInt(amount), Type: ledger.Income, Category: "Salary", Date: "2024-03-01"}
}

func newTestCache() (*TransactionCache, *testutil.Clock) {
	clock := testutil.NewClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewTransactionCache(DefaultTTL, WithClock(clock.Now)), clock
}

func TestNeverSetUserIsAbsent(t *testing.T) {
	c, _ := newTestCache()
	if _, ok := c.Get("ghost"); ok {
		t.Fatalf("expected absent entry")
	}
	if !c.NeedsRefresh("ghost") {
		t.Fatalf("expected refresh needed")
	}
}

func TestSetThenGetPreservesOrder(t *testing.T) {
	c, _ := newTestCache()
	data := []ledger.Transaction{tx("a", 1), tx("b", 2), tx("c", 3)}
	c.Set("alice", data)

	got, ok := c.Get("alice")
	if !ok {
		t.Fatalf("expected hit")
	}
	if len(got) != len(data) {
		t.Fatalf("expected %d entries, got %d", len(data), len(got))
	}
	for i := range data {
		if got[i].ID != data[i].ID {
			t.Fatalf("order changed at %d: %s != %s", i, got[i].ID, data[i].ID)
		}
	}
	if c.NeedsRefresh("alice") {
		t.Fatalf("expected fresh entry")
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache()
	c.Set("alice", []ledger.Transaction{tx("a", 1)})

	clock.Advance(DefaultTTL - time.Millisecond)
	if _, ok := c.Get("alice"); !ok {
		t.Fatalf("expected hit just before ttl")
	}

	clock.Advance(time.Hour)
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if !c.NeedsRefresh("alice") {
		t.Fatalf("expected refresh needed after ttl")
	}
}

func TestExactTTLBoundaryIsExpiredForBoth(t *testing.T) {
	c, clock := newTestCache()
	c.Set("alice", []ledger.Transaction{tx("a", 1)})
	clock.Advance(DefaultTTL)

	_, ok := c.Get("alice")
	if ok {
		t.Fatalf("expected entry exactly ttl old to be expired")
	}
	if c.NeedsRefresh("alice") != !ok {
		t.Fatalf("get and needs refresh disagree at the boundary")
	}
}

func TestStaleReadDoesNotEvict(t *testing.T) {
	c, clock := newTestCache()
	c.Set("alice", []ledger.Transaction{tx("a", 1)})
	clock.Advance(2 * DefaultTTL)

	if _, ok := c.Get("alice"); ok {
		t.Fatalf("expected stale miss")
	}
	if c.Len() != 1 {
		t.Fatalf("expected stale entry to remain until swept, got len %d", c.Len())
	}
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1, got %d", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after sweep")
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	c, clock := newTestCache()
	c.Set("old", nil)
	clock.Advance(DefaultTTL)
	c.Set("new", nil)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatalf("expected fresh entry to survive sweep")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache()
	c.Invalidate("nobody")

	c.Set("alice", []ledger.Transaction{tx("a", 1)})
	c.Invalidate("alice")
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("expected miss after invalidate")
	}
	if !c.LastFetch().IsZero() {
		t.Fatalf("expected last fetch reset after invalidate")
	}
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache()
	c.Set("alice", nil)
	c.Set("bob", nil)
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestOverwriteResetsWindow(t *testing.T) {
	c, clock := newTestCache()
	c.Set("alice", []ledger.Transaction{tx("A", 1)})
	clock.Advance(20 * time.Second)
	c.Set("alice", []ledger.Transaction{tx("B", 2)})
	clock.Advance(20 * time.Second)

	got, ok := c.Get("alice")
	if !ok {
		t.Fatalf("expected overwrite to reset freshness window")
	}
	if len(got) != 1 || got[0].ID != "B" {
		t.Fatalf("expected B, got %+v", got)
	}
	if !c.LastFetch().Equal(clock.Now().Add(-20 * time.Second)) {
		t.Fatalf("unexpected last fetch %v", c.LastFetch())
	}
}

func TestUsersAreIsolated(t *testing.T) {
	c, _ := newTestCache()
	c.Set("u1", []ledger.Transaction{tx("a", 1)})
	if _, ok := c.Get("u2"); ok {
		t.Fatalf("expected u2 to be absent")
	}
	c.Invalidate("u2")
	if _, ok := c.Get("u1"); !ok {
		t.Fatalf("invalidating u2 must not touch u1")
	}
}

func TestAliceScenario(t *testing.T) {
	c, _ := newTestCache()
	c.Set("alice", []ledger.Transaction{tx("tx1", 10), tx("tx2", 20)})

	got, ok := c.Get("alice")
	if !ok || len(got) != 2 || got[0].ID != "tx1" || got[1].ID != "tx2" {
		t.Fatalf("expected [tx1 tx2], got %+v %v", got, ok)
	}

	c.Invalidate("alice")
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("expected absent after invalidate")
	}
	if !c.NeedsRefresh("alice") {
		t.Fatalf("expected refresh needed after invalidate")
	}
}

func TestReturnedSliceIsDetached(t *testing.T) {
	c, _ := newTestCache()
	data := []ledger.Transaction{tx("a", 1)}
	c.Set("alice", data)
	data[0].ID = "mutated"

	got, _ := c.Get("alice")
	got[0].ID = "also-mutated"

	again, _ := c.Get("alice")
	if again[0].ID != "a" {
		t.Fatalf("cache entry was mutated through a caller slice: %s", again[0].ID)
	}
}

func TestConcurrentSetLastWriteWins(t *testing.T) {
	c, _ := newTestCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("alice", []ledger.Transaction{tx(fmt.Sprintf("t%d", i), int64(i))})
			_, _ = c.Get("alice")
		}(i)
	}
	wg.Wait()

	c.Set("alice", []ledger.Transaction{tx("final", 1)})
	got, ok := c.Get("alice")
	if !ok || got[0].ID != "final" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

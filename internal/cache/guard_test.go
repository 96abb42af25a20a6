package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finance_tracker/internal/breaker"
	"finance_tracker/internal/ledger"
)

func TestGuardFailsFastWhileStoreIsDown(t *testing.T) {
	store, _ := newTestCache()
	var calls atomic.Int32
	var healthy atomic.Bool
	loader := LoaderFunc(func(_ context.Context, userID string) ([]ledger.Transaction, error) {
		calls.Add(1)
		if !healthy.Load() {
			return nil, errors.New("store unavailable")
		}
		return []ledger.Transaction{tx(userID+"-1", 5)}, nil
	})
	b := breaker.New("store", breaker.Config{
		Enabled:                     true,
		FailureRateThresholdPercent: 100,
		MinimumRequests:             2,
		EvaluationWindow:            time.Minute,
		OpenDuration:                time.Hour,
	})
	c := NewCache(store, Guard(loader, b), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Load(ctx, "alice", false); err == nil {
			t.Fatalf("expected load error")
		}
	}
	healthy.Store(true)
	if _, err := c.Load(ctx, "alice", false); !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open circuit must not reach the store, got %d calls", calls.Load())
	}
	if !store.NeedsRefresh("alice") {
		t.Fatalf("rejected load must not populate the cache")
	}
}

func TestGuardWithoutBreakerIsPassThrough(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string) ([]ledger.Transaction, error) {
		return []ledger.Transaction{tx("a", 1)}, nil
	})
	guarded := Guard(loader, nil)
	got, err := guarded.Load(context.Background(), "alice")
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected result %v %v", got, err)
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/shopspring/decimal"
)

func steppingClock() func() time.Time {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTx(userID, description, date string) ledger.Transaction {
	return ledger.Transaction{
		UserID:      userID,
		Description: description,
		Amount:      decimal.NewFromInt(-10),
		Type:        ledger.Expense,
		Category:    "Food",
		Date:        date,
	}
}

func TestListTransactionsOrdersByDateThenCreation(t *testing.T) {
	m := NewMemory(WithNow(steppingClock()))
	ctx := context.Background()

	for _, tx := range []ledger.Transaction{
		newTx("alice", "old", "2024-01-01"),
		newTx("alice", "same-day-first", "2024-02-01"),
		newTx("alice", "same-day-second", "2024-02-01"),
		newTx("bob", "other", "2024-03-01"),
	} {
		if _, err := m.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := m.ListTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"same-day-second", "same-day-first", "old"}
	if len(got) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(got))
	}
	for i, description := range want {
		if got[i].Description != description {
			t.Fatalf("position %d: expected %s, got %s", i, description, got[i].Description)
		}
	}
}

func TestListTransactionsEmptyIsNotNil(t *testing.T) {
	m := NewMemory()
	got, err := m.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestForeignDocumentsAreNotFound(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created, err := m.CreateTransaction(ctx, newTx("alice", "lunch", "2024-01-02"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", created)
	}

	if _, err := m.GetTransaction(ctx, "bob", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign read, got %v", err)
	}
	if err := m.DeleteTransaction(ctx, "bob", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}
	foreign := created
	foreign.UserID = "bob"
	if _, err := m.UpdateTransaction(ctx, foreign); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	m := NewMemory(WithNow(steppingClock()))
	ctx := context.Background()
	created, _ := m.CreateTransaction(ctx, newTx("alice", "lunch", "2024-01-02"))

	created.Description = "dinner"
	created.CreatedAt = time.Time{}
	updated, err := m.UpdateTransaction(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "dinner" || updated.CreatedAt.IsZero() {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestDeleteTransactionsCountsOnlyOwner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.CreateTransaction(ctx, newTx("alice", "a", "2024-01-01"))
	_, _ = m.CreateTransaction(ctx, newTx("alice", "b", "2024-01-02"))
	_, _ = m.CreateTransaction(ctx, newTx("bob", "c", "2024-01-03"))

	removed, err := m.DeleteTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	remaining, _ := m.ListTransactions(ctx, "bob")
	if len(remaining) != 1 {
		t.Fatalf("expected bob's transaction to survive")
	}
}

func TestReturnedTransactionsAreCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.CreateTransaction(ctx, newTx("alice", "lunch", "2024-01-02"))

	first, _ := m.ListTransactions(ctx, "alice")
	first[0].Description = "changed"

	second, _ := m.ListTransactions(ctx, "alice")
	if second[0].Description != "lunch" {
		t.Fatalf("stored document changed through a returned copy")
	}
}

func TestCategoryLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateCategory(ctx, ledger.Category{UserID: "alice", Name: "Rent", Type: ledger.Expense, Icon: "🏠"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.Name = "Housing"
	if _, err := m.UpdateCategory(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := m.GetCategory(ctx, "alice", created.ID)
	if err != nil || got.Name != "Housing" {
		t.Fatalf("unexpected category %+v %v", got, err)
	}
	if _, err := m.GetCategory(ctx, "bob", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign category")
	}
	if err := m.DeleteCategory(ctx, "alice", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := m.ListCategories(ctx, "alice")
	if len(list) != 0 {
		t.Fatalf("expected no categories, got %d", len(list))
	}
}

func TestPutProfileMerges(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetProfile(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing profile")
	}
	if err := m.PutProfile(ctx, ledger.Profile{UserID: "alice", Name: "Alice", Email: "alice@example.com", Currency: "RWF"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.PutProfile(ctx, ledger.Profile{UserID: "alice", Currency: "USD"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	profile, err := m.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.Currency != "USD" || profile.Name != "Alice" || profile.CreatedAt.IsZero() {
		t.Fatalf("unexpected merged profile %+v", profile)
	}
}

func TestCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.ListTransactions(ctx, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/gofrs/uuid/v5"
	"github.com/jinzhu/copier"
)

// Memory is an in-process document store. Every document carries its owner and every query
// filters on owner equality.
type Memory struct {
	mu           sync.RWMutex
	transactions map[string]ledger.Transaction
	categories   map[string]ledger.Category
	profiles     map[string]ledger.Profile
	now          func() time.Time
}

type MemoryOption func(*Memory)

func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		transactions: make(map[string]ledger.Transaction),
		categories:   make(map[string]ledger.Category),
		profiles:     make(map[string]ledger.Profile),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Load(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return m.ListTransactions(ctx, userID)
}

func (m *Memory) ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	owned := make([]ledger.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			owned = append(owned, tx)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Date != owned[j].Date {
			return owned[i].Date > owned[j].Date
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	var out []ledger.Transaction
	if err := copier.Copy(&out, &owned); err != nil {
		return nil, fmt.Errorf("copy transactions: %w", err)
	}
	if out == nil {
		out = []ledger.Transaction{}
	}
	return out, nil
}

func (m *Memory) GetTransaction(ctx context.Context, userID string, id string) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, err
	}
	m.mu.RLock()
	tx, ok := m.transactions[id]
	m.mu.RUnlock()
	if !ok || tx.UserID != userID {
		return ledger.Transaction{}, ErrNotFound
	}
	return cloneTransaction(tx)
}

func (m *Memory) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, err
	}
	if tx.UserID == "" {
		return ledger.Transaction{}, fmt.Errorf("transaction owner is required")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("generate id: %w", err)
	}
	tx.ID = id.String()
	tx.CreatedAt = m.now().UTC()

	m.mu.Lock()
	m.transactions[tx.ID] = tx
	m.mu.Unlock()
	return cloneTransaction(tx)
}

func (m *Memory) UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, err
	}
	m.mu.Lock()
	existing, ok := m.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		m.mu.Unlock()
		return ledger.Transaction{}, ErrNotFound
	}
	tx.CreatedAt = existing.CreatedAt
	m.transactions[tx.ID] = tx
	m.mu.Unlock()
	return cloneTransaction(tx)
}

func (m *Memory) DeleteTransaction(ctx context.Context, userID string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) DeleteTransactions(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, tx := range m.transactions {
		if tx.UserID == userID {
			delete(m.transactions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) ListCategories(ctx context.Context, userID string) ([]ledger.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	owned := make([]ledger.Category, 0)
	for _, category := range m.categories {
		if category.UserID == userID {
			owned = append(owned, category)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Name != owned[j].Name {
			return owned[i].Name < owned[j].Name
		}
		return owned[i].ID < owned[j].ID
	})

	var out []ledger.Category
	if err := copier.Copy(&out, &owned); err != nil {
		return nil, fmt.Errorf("copy categories: %w", err)
	}
	if out == nil {
		out = []ledger.Category{}
	}
	return out, nil
}

func (m *Memory) GetCategory(ctx context.Context, userID string, id string) (ledger.Category, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Category{}, err
	}
	m.mu.RLock()
	category, ok := m.categories[id]
	m.mu.RUnlock()
	if !ok || category.UserID != userID {
		return ledger.Category{}, ErrNotFound
	}
	return category, nil
}

func (m *Memory) CreateCategory(ctx context.Context, category ledger.Category) (ledger.Category, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Category{}, err
	}
	if category.UserID == "" {
		return ledger.Category{}, fmt.Errorf("category owner is required")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ledger.Category{}, fmt.Errorf("generate id: %w", err)
	}
	category.ID = id.String()
	category.CreatedAt = m.now().UTC()

	m.mu.Lock()
	m.categories[category.ID] = category
	m.mu.Unlock()
	return category, nil
}

func (m *Memory) UpdateCategory(ctx context.Context, category ledger.Category) (ledger.Category, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Category{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.categories[category.ID]
	if !ok || existing.UserID != category.UserID {
		return ledger.Category{}, ErrNotFound
	}
	category.CreatedAt = existing.CreatedAt
	m.categories[category.ID] = category
	return category, nil
}

func (m *Memory) DeleteCategory(ctx context.Context, userID string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.categories[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *Memory) GetProfile(ctx context.Context, userID string) (ledger.Profile, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Profile{}, err
	}
	m.mu.RLock()
	profile, ok := m.profiles[userID]
	m.mu.RUnlock()
	if !ok {
		return ledger.Profile{}, ErrNotFound
	}
	return profile, nil
}

// PutProfile creates or merges the profile document. Empty fields keep their stored value.
func (m *Memory) PutProfile(ctx context.Context, profile ledger.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile.UserID == "" {
		return fmt.Errorf("profile owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.profiles[profile.UserID]
	if !ok {
		if profile.CreatedAt.IsZero() {
			profile.CreatedAt = m.now().UTC()
		}
		m.profiles[profile.UserID] = profile
		return nil
	}
	if err := copier.CopyWithOption(&existing, &profile, copier.Option{IgnoreEmpty: true}); err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	m.profiles[profile.UserID] = existing
	return nil
}

func (m *Memory) DeleteProfile(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, userID)
	return nil
}

func cloneTransaction(tx ledger.Transaction) (ledger.Transaction, error) {
	var clone ledger.Transaction
	if err := copier.Copy(&clone, &tx); err != nil {
		return ledger.Transaction{}, fmt.Errorf("copy transaction: %w", err)
	}
	return clone, nil
}

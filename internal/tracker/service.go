package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance_tracker/internal/cache"
	"finance_tracker/internal/identity"
	"finance_tracker/internal/ledger"
	"finance_tracker/internal/obs"
	"finance_tracker/internal/store"

	"go.uber.org/zap"
)

const DefaultCurrency = "USD"

type Options struct {
	Store           store.Store
	Cache           *cache.Cache
	Metrics         *obs.Metrics
	Now             func() time.Time
	DefaultCurrency string
}

// Service is the application layer shared by the HTTP and gRPC surfaces. Reads of the
// transaction list go through the per-user cache; every write invalidates it.
type Service struct {
	store           store.Store
	cache           *cache.Cache
	metrics         *obs.Metrics
	now             func() time.Time
	defaultCurrency string
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	s := &Service{
		store:           opts.Store,
		cache:           opts.Cache,
		metrics:         opts.Metrics,
		now:             opts.Now,
		defaultCurrency: opts.DefaultCurrency,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if code, ok := ledger.NormalizeCurrency(s.defaultCurrency); ok {
		s.defaultCurrency = code
	} else {
		s.defaultCurrency = DefaultCurrency
	}
	return s, nil
}

func (s *Service) Transactions(ctx context.Context, userID string, force bool) ([]ledger.Transaction, error) {
	txs, err := s.cache.Load(ctx, userID, force)
	if err != nil {
		s.storeError("list_transactions", userID, err)
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

func (s *Service) Transaction(ctx context.Context, userID string, id string) (ledger.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		s.storeError("get_transaction", userID, err)
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Service) AddTransaction(ctx context.Context, userID string, in ledger.TransactionInput) (ledger.Transaction, error) {
	tx, err := in.Build(userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.Date == "" {
		tx.Date = ledger.Today(s.now())
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		s.storeError("create_transaction", userID, err)
		return ledger.Transaction{}, err
	}
	s.cache.Invalidate(userID)
	return created, nil
}

// UpdateTransaction replaces the editable fields. The stored date is kept unless the input
// carries a new one.
func (s *Service) UpdateTransaction(ctx context.Context, userID string, id string, in ledger.TransactionInput) (ledger.Transaction, error) {
	tx, err := in.Build(userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		s.storeError("get_transaction", userID, err)
		return ledger.Transaction{}, err
	}
	tx.ID = existing.ID
	if tx.Date == "" {
		tx.Date = existing.Date
	}
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		s.storeError("update_transaction", userID, err)
		return ledger.Transaction{}, err
	}
	s.cache.Invalidate(userID)
	return updated, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, userID string, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		s.storeError("delete_transaction", userID, err)
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

func (s *Service) Refresh(userID string) {
	s.cache.Invalidate(userID)
}

func (s *Service) DeleteAllData(ctx context.Context, userID string) (int, error) {
	removed, err := s.store.DeleteTransactions(ctx, userID)
	if err != nil {
		s.storeError("delete_transactions", userID, err)
		return 0, err
	}
	s.cache.Invalidate(userID)
	zap.L().Info("transactions deleted", zap.String("user_id", userID), zap.Int("count", removed))
	return removed, nil
}

// OnSignUp writes the profile document and seeds the starter categories. On failure it removes
// whatever it already wrote, so the rolled-back account leaves no documents behind.
func (s *Service) OnSignUp(ctx context.Context, user identity.User) error {
	profile := ledger.Profile{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Currency:  s.defaultCurrency,
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
	}
	if err := s.store.PutProfile(ctx, profile); err != nil {
		s.storeError("put_profile", user.ID, err)
		return fmt.Errorf("create profile: %w", err)
	}
	seeded := make([]string, 0, len(ledger.DefaultCategories(user.ID)))
	for _, category := range ledger.DefaultCategories(user.ID) {
		created, err := s.store.CreateCategory(ctx, category)
		if err != nil {
			s.storeError("create_category", user.ID, err)
			s.discardSignUp(ctx, user.ID, seeded)
			return fmt.Errorf("seed categories: %w", err)
		}
		seeded = append(seeded, created.ID)
	}
	return nil
}

func (s *Service) discardSignUp(ctx context.Context, userID string, categoryIDs []string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range categoryIDs {
		if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
			s.storeError("delete_category", userID, err)
		}
	}
	if err := s.store.DeleteProfile(ctx, userID); err != nil {
		s.storeError("delete_profile", userID, err)
	}
}

func (s *Service) OnSignOut(userID string) {
	s.cache.Invalidate(userID)
}

func (s *Service) currency(ctx context.Context, userID string) string {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil || profile.Currency == "" {
		return ledger.FallbackCurrency
	}
	return profile.Currency
}

func (s *Service) storeError(op string, userID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	s.metrics.RecordStoreError(op)
	zap.L().Error("store operation failed", zap.String("op", op), zap.String("user_id", userID), zap.Error(err))
}

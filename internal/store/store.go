package store

import (
	"context"
	"errors"

	"finance_tracker/internal/ledger"
)

// ErrNotFound is returned for missing documents and for documents owned by another user.
var ErrNotFound = errors.New("document not found")

type Store interface {
	ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, userID string, id string) (ledger.Transaction, error)
	CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, userID string, id string) error
	DeleteTransactions(ctx context.Context, userID string) (int, error)

	ListCategories(ctx context.Context, userID string) ([]ledger.Category, error)
	GetCategory(ctx context.Context, userID string, id string) (ledger.Category, error)
	CreateCategory(ctx context.Context, category ledger.Category) (ledger.Category, error)
	UpdateCategory(ctx context.Context, category ledger.Category) (ledger.Category, error)
	DeleteCategory(ctx context.Context, userID string, id string) error

	GetProfile(ctx context.Context, userID string) (ledger.Profile, error)
	PutProfile(ctx context.Context, profile ledger.Profile) error
	DeleteProfile(ctx context.Context, userID string) error
}

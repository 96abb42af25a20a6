package cache

import (
	"context"

	"finance_tracker/internal/breaker"
	"finance_tracker/internal/ledger"
)

// Guard wraps loader so repeated store failures trip b and later loads fail fast with
// breaker.ErrOpen until the circuit lets a trial request through again. A nil breaker returns loader as is.
func Guard(loader Loader, b *breaker.Breaker) Loader {
	if b == nil || loader == nil {
		return loader
	}
	return LoaderFunc(func(ctx context.Context, userID string) ([]ledger.Transaction, error) {
		var txs []ledger.Transaction
		err := b.Do(ctx, func(ctx context.Context) error {
			var loadErr error
			txs, loadErr = loader.Load(ctx, userID)
			return loadErr
		})
		if err != nil {
			return nil, err
		}
		return txs, nil
	})
}

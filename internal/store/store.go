// Package store defines the persistence boundary for manually entered
// expenses. Imported entries are never persisted; they are re-fetched.
package store

import (
	"context"

	"github.com/dvloznov/bizledger/internal/domain"
)

// ExpenseStore persists manual ledger entries.
type ExpenseStore interface {
	// Create stores tx and returns it with the store-assigned ID.
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)

	// Update applies patch to the stored entry. Returns domain.ErrNotFound
	// (wrapped) when id is unknown.
	Update(ctx context.Context, id string, patch domain.TransactionPatch) error

	// Delete removes the stored entry. Returns domain.ErrNotFound (wrapped)
	// when id is unknown.
	Delete(ctx context.Context, id string) error

	// List returns stored entries, restricted to rng (inclusive) when non-nil,
	// ordered by date.
	List(ctx context.Context, rng *domain.DateRange) ([]domain.Transaction, error)

	// Close releases the underlying connection.
	Close() error
}

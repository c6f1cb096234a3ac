// Package ledger holds the in-memory set of tracked transactions and applies
// source-scoped replacement on import.
package ledger

import (
	"fmt"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/google/uuid"
)

// Ledger is the authoritative set of transactions, keyed by ID and kept in
// insertion order. It is not safe for concurrent use; the coordinator
// serializes access.
type Ledger struct {
	entries  []domain.Transaction
	index    map[string]int
	newID    func() string
	onChange func()
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator overrides the UUID generator used by Add.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithOnChange registers an observer invoked after every successful mutation.
func WithOnChange(fn func()) Option {
	return func(l *Ledger) { l.onChange = fn }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		index: make(map[string]int),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetOnChange replaces the mutation observer.
func (l *Ledger) SetOnChange(fn func()) {
	l.onChange = fn
}

// Add assigns a fresh ID to tx and appends it. The returned copy carries the ID.
func (l *Ledger) Add(tx domain.Transaction) domain.Transaction {
	id := l.newID()
	for l.has(id) {
		id = l.newID()
	}
	tx.ID = id
	l.entries = append(l.entries, tx)
	l.index[id] = len(l.entries) - 1
	l.changed()
	return tx
}

// Insert appends tx keeping its existing ID. Used when hydrating from a store
// that already assigned IDs.
func (l *Ledger) Insert(tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("Insert: transaction has no id")
	}
	if l.has(tx.ID) {
		return fmt.Errorf("Insert: %s: %w", tx.ID, domain.ErrDuplicateID)
	}
	l.entries = append(l.entries, tx)
	l.index[tx.ID] = len(l.entries) - 1
	l.changed()
	return nil
}

// Update replaces the entry with tx.ID wholesale.
func (l *Ledger) Update(tx domain.Transaction) error {
	i, ok := l.index[tx.ID]
	if !ok {
		return fmt.Errorf("Update: %s: %w", tx.ID, domain.ErrNotFound)
	}
	l.entries[i] = tx
	l.changed()
	return nil
}

// Delete removes the entry with the given ID. It reports whether an entry was
// removed; deleting an absent ID leaves the ledger untouched.
func (l *Ledger) Delete(id string) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.reindex()
	l.changed()
	return true
}

// MergeImportBatch drops every entry tagged with source and appends records,
// each forced to carry source. Entries of other sources are untouched, so
// re-importing the same batch is idempotent.
//
// The batch is rejected as a whole if it repeats an ID or collides with an
// entry of another source.
func (l *Ledger) MergeImportBatch(source domain.Source, records []domain.Transaction) error {
	kept := make([]domain.Transaction, 0, len(l.entries)+len(records))
	keptIDs := make(map[string]bool, len(l.entries))
	for _, tx := range l.entries {
		if tx.Source == source {
			continue
		}
		kept = append(kept, tx)
		keptIDs[tx.ID] = true
	}

	batchIDs := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("MergeImportBatch: %s record without id", source)
		}
		if keptIDs[rec.ID] || batchIDs[rec.ID] {
			return fmt.Errorf("MergeImportBatch: %s: %w", rec.ID, domain.ErrDuplicateID)
		}
		batchIDs[rec.ID] = true
		rec.Source = source
		kept = append(kept, rec)
	}

	l.entries = kept
	l.reindex()
	l.changed()
	return nil
}

// Get returns the entry with the given ID.
func (l *Ledger) Get(id string) (domain.Transaction, bool) {
	i, ok := l.index[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return l.entries[i], true
}

// Snapshot returns a copy of all entries in insertion order.
func (l *Ledger) Snapshot() []domain.Transaction {
	out := make([]domain.Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// BySource returns a copy of the entries tagged with source.
func (l *Ledger) BySource(source domain.Source) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range l.entries {
		if tx.Source == source {
			out = append(out, tx)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

func (l *Ledger) has(id string) bool {
	_, ok := l.index[id]
	return ok
}

func (l *Ledger) reindex() {
	l.index = make(map[string]int, len(l.entries))
	for i, tx := range l.entries {
		l.index[tx.ID] = i
	}
}

func (l *Ledger) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}

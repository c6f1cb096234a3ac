// Package coordinator owns the dashboard state: the ledger, tax settings,
// date range, income figure and derived summary, plus the in-flight flags
// and last error of the asynchronous imports.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/ledger"
	"github.com/dvloznov/bizledger/internal/store"
	"github.com/dvloznov/bizledger/internal/summary"
	"github.com/dvloznov/bizledger/internal/validator"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// IncomeSource supplies gross sales for a date range.
type IncomeSource interface {
	NetSales(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

// BankSource supplies the current batch of eligible bank expenses.
type BankSource interface {
	FetchTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// Config wires the coordinator's collaborators. Income and Bank may be nil,
// in which case the corresponding fetch fails with a ConfigError. Store is
// optional; without it manual entries live only in memory.
type Config struct {
	Income   IncomeSource
	Bank     BankSource
	Store    store.ExpenseStore
	Settings domain.TaxSettings
	Logger   zerolog.Logger

	// Now defaults to time.Now. The initial date range is the UTC calendar
	// month containing Now.
	Now func() time.Time
}

// Status reports the asynchronous state of the dashboard.
type Status struct {
	LoadingIncome bool             `json:"loading_income"`
	FetchingBank  bool             `json:"fetching_bank"`
	Error         string           `json:"error,omitempty"`
	DateRange     domain.DateRange `json:"date_range"`
	RangeVersion  uint64           `json:"range_version"`
}

// Coordinator serializes every state mutation behind one mutex. Provider
// calls run outside the lock.
type Coordinator struct {
	income IncomeSource
	bank   BankSource
	store  store.ExpenseStore
	log    zerolog.Logger

	// writeMu serializes entry edits across the store write and the ledger
	// change. Lock order is writeMu, then mu.
	writeMu sync.Mutex

	mu       sync.Mutex
	ledger   *ledger.Ledger
	settings domain.TaxSettings
	rng      domain.DateRange
	netSales decimal.Decimal
	summary  domain.AccountingSummary

	incomeInFlight int
	bankInFlight   int
	lastErr        string

	rangeVersion  uint64
	nextFetchID   uint64
	incomeCancels map[uint64]context.CancelFunc

	bg sync.WaitGroup
}

// New builds a coordinator with an empty ledger, the current calendar month
// as date range and zero income.
func New(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	settings := cfg.Settings
	if settings.Country == "" {
		settings = domain.DefaultTaxSettings(domain.CountryFR)
	}

	c := &Coordinator{
		income:        cfg.Income,
		bank:          cfg.Bank,
		store:         cfg.Store,
		log:           cfg.Logger,
		settings:      settings,
		rng:           domain.MonthRange(now().UTC()),
		netSales:      decimal.Zero,
		incomeCancels: make(map[uint64]context.CancelFunc),
	}
	c.ledger = ledger.New(ledger.WithOnChange(c.recompute))
	c.recompute()
	return c
}

// recompute must be called with mu held (the ledger observer runs inside
// mutations, which are always made under mu).
func (c *Coordinator) recompute() {
	c.summary = summary.Compute(c.ledger.Snapshot(), c.rng, c.settings, c.netSales)
}

// LoadManual hydrates the ledger with the manual entries held by the store.
// Entries already in the ledger with the manual source are replaced.
func (c *Coordinator) LoadManual(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	txs, err := c.store.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("LoadManual: listing stored expenses: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ledger.MergeImportBatch(domain.SourceManual, txs); err != nil {
		return fmt.Errorf("LoadManual: %w", err)
	}
	c.log.Info().Int("count", len(txs)).Msg("loaded stored expenses")
	return nil
}

// AddTransaction validates tx, assigns it a fresh ID and appends it.
// Manual entries are persisted first when a store is configured.
func (c *Coordinator) AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.Source == "" {
		tx.Source = domain.SourceManual
	}
	if err := validator.Transaction(tx); err != nil {
		return domain.Transaction{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.persists(tx.Source) {
		stored, err := c.store.Create(ctx, tx)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to persist expense")
			return domain.Transaction{}, fmt.Errorf("AddTransaction: persisting: %w", err)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.ledger.Insert(stored); err != nil {
			c.log.Error().Err(err).Str("transaction_id", stored.ID).Msg("store returned a colliding id")
			return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
		}
		return stored, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Add(tx), nil
}

// UpdateTransaction replaces the entry carrying tx.ID wholesale.
func (c *Coordinator) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := validator.Transaction(tx); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.update(ctx, "UpdateTransaction", tx)
}

// PatchTransaction applies the non-nil fields of patch to the entry with id.
func (c *Coordinator) PatchTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.Transaction, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current, ok := c.get(id)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("PatchTransaction: %s: %w", id, domain.ErrNotFound)
	}
	updated := patch.Apply(current)
	if err := validator.Transaction(updated); err != nil {
		return domain.Transaction{}, err
	}
	if err := c.update(ctx, "PatchTransaction", updated); err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

// update must be called with writeMu held, so the entry cannot disappear
// between the lookup, the store write and the ledger change.
func (c *Coordinator) update(ctx context.Context, op string, tx domain.Transaction) error {
	current, ok := c.get(tx.ID)
	if !ok {
		return fmt.Errorf("%s: %s: %w", op, tx.ID, domain.ErrNotFound)
	}
	// the source tag is owned by the import that produced the entry
	tx.Source = current.Source

	if c.persists(tx.Source) {
		if err := c.store.Update(ctx, tx.ID, domain.PatchFrom(tx)); err != nil {
			return c.syncFailure(op, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ledger.Update(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteTransaction removes the entry with id. An unknown id yields
// domain.ErrNotFound and leaves state unchanged.
func (c *Coordinator) DeleteTransaction(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current, ok := c.get(id)
	if !ok {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, domain.ErrNotFound)
	}

	if c.persists(current.Source) {
		if err := c.store.Delete(ctx, id); err != nil {
			return c.syncFailure("DeleteTransaction", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ledger.Delete(id) {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (c *Coordinator) get(id string) (domain.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Get(id)
}

// UpdateTaxSettings replaces the settings wholesale and recomputes.
func (c *Coordinator) UpdateTaxSettings(settings domain.TaxSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
	c.recompute()
	return nil
}

// SetDateRange changes the range, recomputes expenses for it, cancels any
// income fetch still running for an older range and starts a new one in the
// background. Call Wait to block until background fetches finish.
func (c *Coordinator) SetDateRange(rng domain.DateRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.rng = rng
	c.rangeVersion++
	for id, cancel := range c.incomeCancels {
		cancel()
		delete(c.incomeCancels, id)
	}
	c.recompute()
	version := c.rangeVersion
	c.mu.Unlock()

	c.log.Debug().
		Time("start", rng.Start).
		Time("end", rng.End).
		Uint64("range_version", version).
		Msg("date range changed")

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_ = c.FetchNetSales(context.Background())
	}()
	return nil
}

// Wait blocks until background fetches started by SetDateRange return.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// FetchNetSales refreshes the income figure for the current range. A result
// that arrives after the range changed is discarded without touching the
// income figure or the error message. Failures are also recorded as the
// status error.
func (c *Coordinator) FetchNetSales(ctx context.Context) error {
	c.mu.Lock()
	if c.income == nil {
		c.lastErr = "income source is not configured"
		c.mu.Unlock()
		return &domain.ConfigError{Setting: "STRIPE_SECRET_KEY", Message: "income source is not configured"}
	}
	rng := c.rng
	version := c.rangeVersion
	ctx, cancel := context.WithCancel(ctx)
	c.nextFetchID++
	fetchID := c.nextFetchID
	c.incomeCancels[fetchID] = cancel
	c.incomeInFlight++
	c.lastErr = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.incomeInFlight--
		delete(c.incomeCancels, fetchID)
		c.mu.Unlock()
		cancel()
	}()

	sales, err := c.income.NetSales(ctx, rng.Start, rng.End)

	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.rangeVersion {
		c.log.Debug().
			Uint64("range_version", version).
			Uint64("current_version", c.rangeVersion).
			Msg("discarding income for stale date range")
		return nil
	}
	if err != nil {
		c.lastErr = err.Error()
		c.log.Error().Err(err).Msg("failed to fetch net sales")
		return fmt.Errorf("FetchNetSales: %w", err)
	}

	c.netSales = sales
	c.recompute()
	c.log.Info().Str("net_sales", sales.StringFixed(2)).Msg("income updated")
	return nil
}

// FetchBankExpenses replaces every bank-sourced entry with the current
// eligible batch. On failure the ledger is left unchanged.
func (c *Coordinator) FetchBankExpenses(ctx context.Context) error {
	c.mu.Lock()
	if c.bank == nil {
		c.lastErr = "bank source is not configured"
		c.mu.Unlock()
		return &domain.ConfigError{Setting: "MERCURY_ACCOUNTS", Message: "bank source is not configured"}
	}
	c.bankInFlight++
	c.lastErr = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.bankInFlight--
		c.mu.Unlock()
	}()

	txs, err := c.bank.FetchTransactions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		err = c.ledger.MergeImportBatch(domain.SourceBank, txs)
	}
	if err != nil {
		c.lastErr = err.Error()
		c.log.Error().Err(err).Msg("failed to import bank expenses")
		return fmt.Errorf("FetchBankExpenses: %w", err)
	}

	c.log.Info().Int("count", len(txs)).Str("source", string(domain.SourceBank)).Msg("bank expenses imported")
	return nil
}

// Summary returns the current derived summary.
func (c *Coordinator) Summary() domain.AccountingSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Breakdown groups the in-range expenses by category and payment origin.
func (c *Coordinator) Breakdown() summary.Breakdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summary.BreakdownFor(c.ledger.Snapshot(), c.rng)
}

// Snapshot returns the range, settings, summary and breakdown read under a
// single lock, so the figures always belong to the returned range.
func (c *Coordinator) Snapshot() summary.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summary.Snapshot{
		DateRange: c.rng,
		Settings:  c.settings,
		Summary:   c.summary,
		Breakdown: summary.BreakdownFor(c.ledger.Snapshot(), c.rng),
	}
}

// Transactions returns a copy of every ledger entry in insertion order.
func (c *Coordinator) Transactions() []domain.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Snapshot()
}

// Transaction returns the entry with id.
func (c *Coordinator) Transaction(id string) (domain.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.ledger.Get(id)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("Transaction: %s: %w", id, domain.ErrNotFound)
	}
	return tx, nil
}

// TaxSettings returns the current settings.
func (c *Coordinator) TaxSettings() domain.TaxSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// DateRange returns the current range.
func (c *Coordinator) DateRange() domain.DateRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng
}

// Status returns the in-flight flags and the last error message.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		LoadingIncome: c.incomeInFlight > 0,
		FetchingBank:  c.bankInFlight > 0,
		Error:         c.lastErr,
		DateRange:     c.rng,
		RangeVersion:  c.rangeVersion,
	}
}

// SetError overrides the status error message; an empty message clears it.
func (c *Coordinator) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = msg
}

func (c *Coordinator) persists(source domain.Source) bool {
	return c.store != nil && source == domain.SourceManual
}

// syncFailure logs store errors that are not a stale reference and wraps
// them with the operation name.
func (c *Coordinator) syncFailure(op string, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		c.log.Error().Err(err).Str("op", op).Msg("expense store failure")
	}
	return fmt.Errorf("%s: %w", op, err)
}

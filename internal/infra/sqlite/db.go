// Package sqlite persists manual expenses in a local SQLite file through GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Expense is the stored form of a manual ledger entry.
type Expense struct {
	gorm.Model
	ExpenseID     string          `gorm:"uniqueIndex;not null"`
	Date          time.Time       `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description   string          `gorm:"not null"`
	Category      string          `gorm:"not null"`
	Status        string          `gorm:"not null"`
	PaymentOrigin string          `gorm:"not null"`
}

func (e Expense) toTransaction() domain.Transaction {
	return domain.Transaction{
		ID:            e.ExpenseID,
		Date:          e.Date.UTC(),
		Amount:        e.Amount,
		Description:   e.Description,
		Category:      domain.Category(e.Category),
		Source:        domain.SourceManual,
		Status:        domain.Status(e.Status),
		PaymentOrigin: e.PaymentOrigin,
	}
}

// Database is the GORM implementation of store.ExpenseStore.
type Database struct {
	db *gorm.DB
}

// NewDatabase opens (creating if needed) the SQLite file at dbPath and
// migrates the schema. Use ":memory:" for a throwaway database.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("NewDatabase: failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Expense{}); err != nil {
		return nil, fmt.Errorf("NewDatabase: failed to migrate schema: %w", err)
	}
	return &Database{db: db}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return sqlDB.Close()
}

// Create stores tx under a fresh ID.
func (d *Database) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	row := Expense{
		ExpenseID:     uuid.NewString(),
		Date:          tx.Date.UTC(),
		Amount:        tx.Amount,
		Description:   tx.Description,
		Category:      string(tx.Category),
		Status:        string(tx.Status),
		PaymentOrigin: tx.PaymentOrigin,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Transaction{}, fmt.Errorf("Create: failed to save expense: %w", err)
	}
	return row.toTransaction(), nil
}

// Update applies the non-nil fields of patch.
func (d *Database) Update(ctx context.Context, id string, patch domain.TransactionPatch) error {
	updates := map[string]interface{}{}
	if patch.Date != nil {
		updates["date"] = patch.Date.UTC()
	}
	if patch.Amount != nil {
		updates["amount"] = *patch.Amount
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Category != nil {
		updates["category"] = string(*patch.Category)
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.PaymentOrigin != nil {
		updates["payment_origin"] = *patch.PaymentOrigin
	}

	if len(updates) == 0 {
		return d.exists(ctx, id)
	}

	res := d.db.WithContext(ctx).Model(&Expense{}).Where("expense_id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("Update: failed to update expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("Update: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete soft-deletes the row with id.
func (d *Database) Delete(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Where("expense_id = ?", id).Delete(&Expense{})
	if res.Error != nil {
		return fmt.Errorf("Delete: failed to delete expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("Delete: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns stored expenses ordered by date, restricted to rng when non-nil.
func (d *Database) List(ctx context.Context, rng *domain.DateRange) ([]domain.Transaction, error) {
	q := d.db.WithContext(ctx).Order("date, id")
	if rng != nil {
		q = q.Where("date >= ? AND date <= ?", rng.Start.UTC(), rng.End.UTC())
	}

	var rows []Expense
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("List: failed to query expenses: %w", err)
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toTransaction())
	}
	return out, nil
}

func (d *Database) exists(ctx context.Context, id string) error {
	var row Expense
	err := d.db.WithContext(ctx).Where("expense_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("Update: %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

var _ store.ExpenseStore = (*Database)(nil)

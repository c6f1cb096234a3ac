// Package bigquery persists manual expenses in a BigQuery table.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/store"
)

// ExpenseRepository is the BigQuery implementation of store.ExpenseStore.
// It holds a shared client to avoid opening a connection per operation.
type ExpenseRepository struct {
	client *bigquery.Client
	table  Table
}

// NewExpenseRepository opens a client for projectID.
func NewExpenseRepository(ctx context.Context, projectID, datasetID string) (*ExpenseRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, &domain.ConfigError{Setting: "BIGQUERY_PROJECT", Message: "BigQuery project and dataset are required"}
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExpenseRepository: creating client: %w", err)
	}
	return NewExpenseRepositoryWithClient(client, Table{ProjectID: projectID, DatasetID: datasetID}), nil
}

// NewExpenseRepositoryWithClient wraps an existing client.
func NewExpenseRepositoryWithClient(client *bigquery.Client, table Table) *ExpenseRepository {
	return &ExpenseRepository{client: client, table: table}
}

// Close closes the BigQuery client connection.
func (r *ExpenseRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Create delegates to InsertExpenseWithClient.
func (r *ExpenseRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	return InsertExpenseWithClient(ctx, r.client, r.table, tx)
}

// Update delegates to UpdateExpenseWithClient.
func (r *ExpenseRepository) Update(ctx context.Context, id string, patch domain.TransactionPatch) error {
	return UpdateExpenseWithClient(ctx, r.client, r.table, id, patch)
}

// Delete delegates to DeleteExpenseWithClient.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	return DeleteExpenseWithClient(ctx, r.client, r.table, id)
}

// List delegates to ListExpensesWithClient.
func (r *ExpenseRepository) List(ctx context.Context, rng *domain.DateRange) ([]domain.Transaction, error) {
	return ListExpensesWithClient(ctx, r.client, r.table, rng)
}

var _ store.ExpenseStore = (*ExpenseRepository)(nil)

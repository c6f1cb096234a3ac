package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	expensesTable = "expenses"
	dateFormat    = "2006-01-02"
)

// Table locates the expenses table.
type Table struct {
	ProjectID string
	DatasetID string
}

func (t Table) fqn() string {
	return "`" + t.ProjectID + "." + t.DatasetID + "." + expensesTable + "`"
}

// InsertExpenseWithClient stores tx under a fresh ID and returns the stored
// entry. DML is used rather than the streaming inserter so the row can be
// updated or deleted right away.
func InsertExpenseWithClient(ctx context.Context, client *bigquery.Client, table Table, tx domain.Transaction) (domain.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.Source = domain.SourceManual
	row := toRow(tx, time.Now().UTC())

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			expense_id,
			expense_date,
			amount,
			description,
			category,
			status,
			payment_origin,
			created_ts
		)
		VALUES (
			@expense_id,
			@expense_date,
			@amount,
			@description,
			@category,
			@status,
			@payment_origin,
			@created_ts
		)
	`, table.fqn()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: row.ExpenseID},
		{Name: "expense_date", Value: row.ExpenseDate},
		{Name: "amount", Value: row.Amount},
		{Name: "description", Value: row.Description},
		{Name: "category", Value: row.Category},
		{Name: "status", Value: row.Status},
		{Name: "payment_origin", Value: row.PaymentOrigin},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return domain.Transaction{}, fmt.Errorf("InsertExpense: %w", err)
	}
	// reflect what a later List would return
	tx.Date = row.ExpenseDate.In(time.UTC)
	return tx, nil
}

// UpdateExpenseWithClient applies the non-nil fields of patch. An empty
// patch still touches updated_ts, so a missing row reports ErrNotFound.
func UpdateExpenseWithClient(ctx context.Context, client *bigquery.Client, table Table, id string, patch domain.TransactionPatch) error {
	sql, params := updateStatement(table, id, patch, time.Now().UTC())
	q := client.Query(sql)
	q.Parameters = params

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateExpense: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("UpdateExpense: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteExpenseWithClient removes the row with id.
func DeleteExpenseWithClient(ctx context.Context, client *bigquery.Client, table Table, id string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE expense_id = @expense_id
	`, table.fqn()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: id},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteExpense: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteExpense: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListExpensesWithClient returns stored expenses ordered by date, restricted
// to rng when non-nil.
func ListExpensesWithClient(ctx context.Context, client *bigquery.Client, table Table, rng *domain.DateRange) ([]domain.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT
			expense_id,
			expense_date,
			amount,
			description,
			category,
			status,
			payment_origin,
			created_ts,
			updated_ts
		FROM %s
	`, table.fqn())
	var params []bigquery.QueryParameter
	if rng != nil {
		sql += `
		WHERE expense_date >= @start_date
		  AND expense_date <= @end_date`
		params = []bigquery.QueryParameter{
			{Name: "start_date", Value: rng.Start.Format(dateFormat)},
			{Name: "end_date", Value: rng.End.Format(dateFormat)},
		}
	}
	sql += `
		ORDER BY expense_date, created_ts`

	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: query read: %w", err)
	}

	var out []domain.Transaction
	for {
		var r ExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: iter next: %w", err)
		}
		tx, err := toTransaction(&r)
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// updateStatement renders the UPDATE for patch. updated_ts is always set.
func updateStatement(table Table, id string, patch domain.TransactionPatch, now time.Time) (string, []bigquery.QueryParameter) {
	assignments, params := patchAssignments(patch)
	assignments = append(assignments, "updated_ts = @updated_ts")
	params = append(params,
		bigquery.QueryParameter{Name: "updated_ts", Value: now},
		bigquery.QueryParameter{Name: "expense_id", Value: id},
	)

	sql := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE expense_id = @expense_id
	`, table.fqn(), strings.Join(assignments, ",\n\t\t\t"))
	return sql, params
}

// patchAssignments builds the SET clause entries and parameters for patch.
func patchAssignments(patch domain.TransactionPatch) ([]string, []bigquery.QueryParameter) {
	var (
		sets   []string
		params []bigquery.QueryParameter
	)
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = @"+column)
		params = append(params, bigquery.QueryParameter{Name: column, Value: value})
	}

	if patch.Date != nil {
		add("expense_date", civil.DateOf(*patch.Date))
	}
	if patch.Amount != nil {
		add("amount", patch.Amount.Rat())
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Category != nil {
		add("category", string(*patch.Category))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.PaymentOrigin != nil {
		add("payment_origin", *patch.PaymentOrigin)
	}
	return sets, params
}

// runDML runs q, waits for it and returns the number of affected rows.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

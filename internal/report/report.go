// Package report snapshots the dashboard figures for a date range and
// exports them to Cloud Storage.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/format"
	"github.com/dvloznov/bizledger/internal/gcs"
	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/dvloznov/bizledger/internal/summary"
	"github.com/shopspring/decimal"
)

// Source hands out the dashboard figures in one consistent read.
type Source interface {
	Snapshot() summary.Snapshot
}

// Report is an immutable snapshot of the derived figures.
type Report struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Currency    string                   `json:"currency"`
	DateRange   domain.DateRange         `json:"date_range"`
	Settings    domain.TaxSettings       `json:"tax_settings"`
	Summary     domain.AccountingSummary `json:"summary"`
	TotalTaxes  decimal.Decimal          `json:"total_taxes"`
	Breakdown   summary.Breakdown        `json:"breakdown"`
	Formatted   map[string]string        `json:"formatted"`
}

// Build snapshots src, rendering the headline totals with money.
func Build(src Source, money *format.Money, now time.Time) Report {
	snap := src.Snapshot()
	s := snap.Summary
	taxes := summary.TotalTaxes(s)
	return Report{
		GeneratedAt: now.UTC(),
		Currency:    money.Code(),
		DateRange:   snap.DateRange,
		Settings:    snap.Settings,
		Summary:     s,
		TotalTaxes:  taxes,
		Breakdown:   snap.Breakdown,
		Formatted: map[string]string{
			"total_income":   money.Format(s.TotalIncome),
			"total_expenses": money.Format(s.TotalExpenses),
			"total_taxes":    money.Format(taxes),
			"net_income":     money.Format(s.NetIncome),
			"pending_income": money.Format(s.PendingIncome),
		},
	}
}

// ObjectName is where a report for rng is stored inside the bucket.
func ObjectName(rng domain.DateRange) string {
	return fmt.Sprintf("summaries/%s_%s.json", rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
}

// Export uploads r as indented JSON and returns its gs:// URI. A report for
// the same range overwrites the previous one.
func Export(ctx context.Context, storage gcs.StorageService, bucket string, r Report) (string, error) {
	if bucket == "" {
		return "", &domain.ConfigError{Setting: "EXPORT_BUCKET", Message: "EXPORT_BUCKET is not configured"}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Export: marshaling report: %w", err)
	}

	object := ObjectName(r.DateRange)
	if err := storage.UploadBytes(ctx, bucket, object, data, "application/json"); err != nil {
		return "", fmt.Errorf("Export: uploading %s: %w", object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", bucket, object)
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Int("bytes", len(data)).Msg("Exported summary report")
	return uri, nil
}

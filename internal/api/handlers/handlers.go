package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/bizledger/internal/api/middleware"
	"github.com/dvloznov/bizledger/internal/coordinator"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/format"
	"github.com/dvloznov/bizledger/internal/summary"
	"github.com/dvloznov/bizledger/internal/validator"
	"github.com/rs/zerolog"
)

// Dashboard is the coordinator surface used by the HTTP layer.
type Dashboard interface {
	Transactions() []domain.Transaction
	Transaction(id string) (domain.Transaction, error)
	AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error
	PatchTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	Summary() domain.AccountingSummary
	Breakdown() summary.Breakdown
	Snapshot() summary.Snapshot
	TaxSettings() domain.TaxSettings
	UpdateTaxSettings(settings domain.TaxSettings) error
	DateRange() domain.DateRange
	SetDateRange(rng domain.DateRange) error
	Status() coordinator.Status
}

// writeFailure maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 with fallback as message.
func writeFailure(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	switch {
	case domain.IsValidation(err):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, domain.ErrDuplicateID):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case domain.IsConfig(err):
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// TransactionsHandler handles ledger entry endpoints.
type TransactionsHandler struct {
	dash Dashboard
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(dash Dashboard, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		dash: dash,
		log:  log,
	}
}

// ListTransactions handles GET /api/transactions
// Optional query parameters: source (stripe|mercury|manual) and in_range=true
// to keep only entries inside the current date range.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	source := domain.Source(query.Get("source"))
	if source != "" && !source.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid source")
		return
	}
	inRange := query.Get("in_range") == "true"
	rng := h.dash.DateRange()

	transactions := []domain.Transaction{}
	for _, tx := range h.dash.Transactions() {
		if source != "" && tx.Source != source {
			continue
		}
		if inRange && !rng.Contains(tx.Date) {
			continue
		}
		transactions = append(transactions, tx)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := h.dash.Transaction(id)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// CreateTransaction handles POST /api/transactions
// The body is a manual expense: date (YYYY-MM-DD), amount, description,
// category and payment_origin.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req validator.ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := req.ToTransaction(time.UTC)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to create transaction")
		return
	}

	created, err := h.dash.AddTransaction(r.Context(), tx)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to create transaction")
		return
	}

	h.log.Info().Str("transaction_id", created.ID).Msg("Manual expense added")
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// ReplaceTransaction handles PUT /api/transactions/{id}
// Every field is replaced; the source tag is kept.
func (h *TransactionsHandler) ReplaceTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		validator.ExpenseInput
		Status domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := req.ToTransaction(time.UTC)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update transaction")
		return
	}
	tx.ID = id
	if req.Status != "" {
		tx.Status = req.Status
	}

	if err := h.dash.UpdateTransaction(r.Context(), tx); err != nil {
		writeFailure(w, h.log, err, "Failed to update transaction")
		return
	}

	updated, err := h.dash.Transaction(id)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// PatchTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) PatchTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.dash.PatchTransaction(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.dash.DeleteTransaction(r.Context(), id); err != nil {
		writeFailure(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SummaryHandler serves the derived figures and the settings they depend on.
type SummaryHandler struct {
	dash  Dashboard
	money *format.Money
	log   zerolog.Logger
}

// NewSummaryHandler creates a new summary handler. money may be nil, in which
// case no formatted amounts are returned.
func NewSummaryHandler(dash Dashboard, money *format.Money, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{
		dash:  dash,
		money: money,
		log:   log,
	}
}

// GetSummary handles GET /api/summary
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap := h.dash.Snapshot()
	s := snap.Summary
	taxes := summary.TotalTaxes(s)

	resp := map[string]interface{}{
		"summary":     s,
		"total_taxes": taxes,
		"date_range":  snap.DateRange,
		"status":      h.dash.Status(),
	}
	if h.money != nil {
		resp["currency"] = h.money.Code()
		resp["formatted"] = map[string]string{
			"total_income":   h.money.Format(s.TotalIncome),
			"total_expenses": h.money.Format(s.TotalExpenses),
			"total_taxes":    h.money.Format(taxes),
			"net_income":     h.money.Format(s.NetIncome),
			"pending_income": h.money.Format(s.PendingIncome),
		}
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// GetBreakdown handles GET /api/summary/breakdown
func (h *SummaryHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.dash.Breakdown())
}

// GetStatus handles GET /api/status
func (h *SummaryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.dash.Status())
}

// GetTaxSettings handles GET /api/tax-settings
func (h *SummaryHandler) GetTaxSettings(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.dash.TaxSettings())
}

// UpdateTaxSettings handles PUT /api/tax-settings
// All four rates and the country are replaced together.
func (h *SummaryHandler) UpdateTaxSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.TaxSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.dash.UpdateTaxSettings(settings); err != nil {
		writeFailure(w, h.log, err, "Failed to update tax settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.dash.TaxSettings())
}

// GetDateRange handles GET /api/date-range
func (h *SummaryHandler) GetDateRange(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.dash.DateRange())
}

// SetDateRange handles PUT /api/date-range
// Dates are YYYY-MM-DD; the end date is inclusive. The income refresh for
// the new range runs in the background, so the response reports the status
// flags at the time of the change.
func (h *SummaryHandler) SetDateRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
		return
	}

	rng := domain.DateRange{Start: start, End: end.AddDate(0, 0, 1).Add(-time.Nanosecond)}
	if err := h.dash.SetDateRange(rng); err != nil {
		writeFailure(w, h.log, err, "Failed to set date range")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date_range": h.dash.DateRange(),
		"status":     h.dash.Status(),
	})
}

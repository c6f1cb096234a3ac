// Package api assembles the HTTP surface of the dashboard.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/bizledger/internal/api/handlers"
	"github.com/dvloznov/bizledger/internal/api/middleware"
	"github.com/dvloznov/bizledger/internal/format"
	"github.com/dvloznov/bizledger/internal/gcs"
	"github.com/dvloznov/bizledger/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of the router. Storage and ExportBucket may be
// empty, which disables report export.
type Deps struct {
	Dashboard    handlers.Dashboard
	Publisher    jobs.Publisher
	JobStore     jobs.JobStore
	Money        *format.Money
	Storage      gcs.StorageService
	ExportBucket string
	Logger       zerolog.Logger
}

// NewRouter registers every endpoint and wraps the mux in the middleware chain.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger

	transactionsHandler := handlers.NewTransactionsHandler(deps.Dashboard, log)
	summaryHandler := handlers.NewSummaryHandler(deps.Dashboard, deps.Money, log)
	importsHandler := handlers.NewImportsHandler(deps.Publisher, log)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore, log)
	reportsHandler := handlers.NewReportsHandler(deps.Dashboard, deps.Money, deps.Storage, deps.ExportBucket, log)

	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.GetTransaction(w, r, id)
		case http.MethodPut:
			transactionsHandler.ReplaceTransaction(w, r, id)
		case http.MethodPatch:
			transactionsHandler.PatchTransaction(w, r, id)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Summary endpoints
	mux.HandleFunc("/api/summary", onlyGet(summaryHandler.GetSummary))
	mux.HandleFunc("/api/summary/breakdown", onlyGet(summaryHandler.GetBreakdown))
	mux.HandleFunc("/api/status", onlyGet(summaryHandler.GetStatus))

	mux.HandleFunc("/api/tax-settings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			summaryHandler.GetTaxSettings(w, r)
		case http.MethodPut:
			summaryHandler.UpdateTaxSettings(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/date-range", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			summaryHandler.GetDateRange(w, r)
		case http.MethodPut:
			summaryHandler.SetDateRange(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Import endpoints
	mux.HandleFunc("/api/imports/income", onlyPost(importsHandler.EnqueueIncome))
	mux.HandleFunc("/api/imports/bank", onlyPost(importsHandler.EnqueueBank))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", onlyGet(jobsHandler.ListJobs))
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	// Reports endpoints
	mux.HandleFunc("/api/reports/export", onlyPost(reportsHandler.Export))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)
}

func onlyGet(h http.HandlerFunc) http.HandlerFunc {
	return onlyMethod(http.MethodGet, h)
}

func onlyPost(h http.HandlerFunc) http.HandlerFunc {
	return onlyMethod(http.MethodPost, h)
}

func onlyMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

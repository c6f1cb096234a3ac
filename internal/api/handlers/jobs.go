package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/bizledger/internal/api/middleware"
	"github.com/dvloznov/bizledger/internal/format"
	"github.com/dvloznov/bizledger/internal/gcs"
	"github.com/dvloznov/bizledger/internal/jobs"
	"github.com/dvloznov/bizledger/internal/report"
	"github.com/rs/zerolog"
)

// ImportsHandler queues refreshes of the upstream sources.
type ImportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueIncome handles POST /api/imports/income
func (h *ImportsHandler) EnqueueIncome(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, jobs.JobTypeFetchIncome)
}

// EnqueueBank handles POST /api/imports/bank
func (h *ImportsHandler) EnqueueBank(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, jobs.JobTypeFetchBank)
}

func (h *ImportsHandler) enqueue(w http.ResponseWriter, r *http.Request, jobType jobs.JobType) {
	job := &jobs.FetchJob{Type: jobType}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("job_type", string(jobType)).Msg("Import job enqueued")

	// the worker owns job from here on; only the ID is stable
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"type":   string(jobType),
		"status": string(jobs.JobStatusPending),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ReportsHandler exports summary snapshots to Cloud Storage.
type ReportsHandler struct {
	src     report.Source
	money   *format.Money
	storage gcs.StorageService
	bucket  string
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler. storage may be nil when no
// export bucket is configured.
func NewReportsHandler(src report.Source, money *format.Money, storage gcs.StorageService, bucket string, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		src:     src,
		money:   money,
		storage: storage,
		bucket:  bucket,
		log:     log,
	}
}

// Export handles POST /api/reports/export
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil || h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "EXPORT_BUCKET is not configured")
		return
	}

	rep := report.Build(h.src, h.money, time.Now())
	uri, err := report.Export(r.Context(), h.storage, h.bucket, rep)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to export report")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"uri": uri,
	})
}

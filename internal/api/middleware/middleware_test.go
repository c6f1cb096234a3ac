package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/rs/zerolog"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(rec, req)
	if seen != "req-42" || rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("propagated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen != rec.Header().Get(RequestIDHeader) {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestLoggerAndCORS(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusTeapot, "nope")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/transactions", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Errorf("allow methods = %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Errorf("log = %q", buf.String())
	}
	if !strings.Contains(rec.Body.String(), `"error":"nope"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestLogger_RequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.FromContext(r.Context())
		l.Info().Msg("exporting report")
		WriteJSON(w, http.StatusCreated, map[string]string{"uri": "gs://b/o"})
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/reports/export", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %q, want handler line and access line", lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"req-7"`) {
			t.Errorf("line missing request id: %s", line)
		}
	}
	if !strings.Contains(lines[0], "exporting report") {
		t.Errorf("handler line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":201`) || strings.Contains(lines[1], `"bytes":0`) {
		t.Errorf("access line = %s", lines[1])
	}
}

func TestLogger_ServerErrorsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusBadGateway, "upstream")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("log = %q", buf.String())
	}
}

package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phishsense/phishsense/internal/model"
	"github.com/phishsense/phishsense/internal/report"
)

const scanTimeout = 60 * time.Second

var (
	errURLRequired  = errors.New("the \"url\" field is required")
	errURLsRequired = errors.New("the \"urls\" field must contain at least one URL")
)

// Transport handles HTTP requests for URL scanning.
type Transport struct {
	service      *Service
	logger       *slog.Logger
	maxBatchURLs int
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, maxBatchURLs int, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger, maxBatchURLs: maxBatchURLs}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", t.handleHealth)
	mux.HandleFunc("POST /scan", t.handleScan)
	mux.HandleFunc("POST /scan/batch", t.handleScanBatch)
	mux.HandleFunc("GET /reports/{id}", t.handleReport)
}

type scanRequest struct {
	URL string `json:"url"`
}

func (r scanRequest) validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return errURLRequired
	}
	return nil
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

func (r batchRequest) validate(limit int) error {
	if len(r.URLs) == 0 {
		return errURLsRequired
	}
	if len(r.URLs) > limit {
		return fmt.Errorf("too many URLs: got %d, limit %d", len(r.URLs), limit)
	}
	return nil
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (t *Transport) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !t.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
	defer cancel()

	t.renderJSON(w, http.StatusOK, t.service.ScanOne(ctx, req.URL))
}

func (t *Transport) handleScanBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !t.decode(w, r, &req) {
		return
	}
	if err := req.validate(t.maxBatchURLs); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The coordinator enforces its own batch deadline; the request context
	// is left uncapped so a configured long batch is not cut short here.
	rep, err := t.service.ScanBatch(r.Context(), req.URLs)
	if err != nil {
		// Rows survived even if storage failed; log and serve them.
		t.logger.Error("failed to store batch report", "error", err, "job_id", rep.JobID)
	}

	if r.URL.Query().Get("format") == "csv" {
		t.renderCSV(w, rep)
		return
	}
	t.renderJSON(w, http.StatusOK, rep)
}

func (t *Transport) handleReport(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	rep, err := t.service.Report(jobID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			t.renderError(w, http.StatusNotFound, "No report exists for that job ID.")
			return
		}
		t.logger.Error("failed to load report", "error", err, "job_id", jobID)
		t.renderError(w, http.StatusInternalServerError, "Failed to load the report.")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		t.renderCSV(w, rep)
		return
	}
	t.renderJSON(w, http.StatusOK, rep)
}

func (t *Transport) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	const maxRequestBody = 1 << 20 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object.")
		return false
	}
	return true
}

func (t *Transport) renderCSV(w http.ResponseWriter, rep model.BatchReport) {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep.Rows); err != nil {
		t.logger.Error("failed to encode csv report", "error", err)
		t.renderError(w, http.StatusInternalServerError, "Failed to render the CSV report.")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "report_"+rep.JobID+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}

// Package transport exposes the retrieval engine and incremental scanner
// over a small JSON HTTP API (spec.md §6): POST /retrieve, POST /scan,
// GET /scan/{jobId}, GET /health, and GET /metrics (Prometheus).
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docleaai/doclea-mcp-sub003/internal/ctxerr"
	"github.com/docleaai/doclea-mcp-sub003/internal/retrieval"
	"github.com/docleaai/doclea-mcp-sub003/internal/scanner"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	headerCORSOrigin  = "Access-Control-Allow-Origin"
	headerCORSMethods = "Access-Control-Allow-Methods"
	headerCORSHeaders = "Access-Control-Allow-Headers"
	corsMethods       = "GET, POST, OPTIONS"
	corsOrigin        = "*"
	corsHeaders       = "Content-Type"
)

// HTTPTransport serves the engine's Retrieve/Scan API as JSON over HTTP.
type HTTPTransport struct {
	addr    string
	server  *http.Server
	mux     *http.ServeMux
	engine  *retrieval.Engine
	scanner *scanner.Scanner
	jobs    *scanner.JobManager
}

// NewHTTPTransport creates a new HTTP transport bound to addr, wiring the
// given retrieval engine and incremental scanner into its routes. jobs may
// be nil, in which case "async":true scan requests are rejected.
func NewHTTPTransport(addr string, engine *retrieval.Engine, sc *scanner.Scanner, jobs *scanner.JobManager) *HTTPTransport {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	h := &HTTPTransport{
		addr:    addr,
		server:  server,
		mux:     mux,
		engine:  engine,
		scanner: sc,
		jobs:    jobs,
	}

	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/retrieve", h.handleRetrieve)
	mux.HandleFunc("/scan", h.handleScan)
	mux.HandleFunc("/scan/", h.handleScanStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(retrieval.MetricsRegistry(), promhttp.HandlerOpts{}))

	return h
}

func (h *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// retrieveRequest mirrors retrieval.Request's JSON shape from spec.md §6.
type retrieveRequest struct {
	Query            string              `json:"query"`
	TokenBudget      int                 `json:"tokenBudget"`
	IncludeCodeGraph bool                `json:"includeCodeGraph"`
	IncludeGraphRAG  bool                `json:"includeGraphRAG"`
	Filters          vectorstore.Filters `json:"filters"`
	Template         string              `json:"template"`
	IncludeEvidence  bool                `json:"includeEvidence"`
}

func (h *HTTPTransport) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w)
	w.Header().Set(headerContentType, contentTypeJSON)

	if h.engine == nil {
		writeError(w, ctxerr.New(ctxerr.Internal, "transport.handleRetrieve", errors.New("retrieval engine not configured")))
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ctxerr.New(ctxerr.InvalidArgument, "transport.handleRetrieve", err))
		return
	}

	resp, err := h.engine.Retrieve(r.Context(), retrieval.Request{
		Query:            req.Query,
		TokenBudget:      req.TokenBudget,
		IncludeCodeGraph: req.IncludeCodeGraph,
		IncludeGraphRAG:  req.IncludeGraphRAG,
		Filters:          req.Filters,
		Template:         retrieval.Template(req.Template),
		IncludeEvidence:  req.IncludeEvidence,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("transport: failed to encode retrieve response", "error", err)
	}
}

// scanRequest is the /scan request shape: the project root to (re)index.
// Async submits the scan as a background job (spec.md §9) and returns its
// id immediately instead of blocking for the scan's duration; poll
// GET /scan/{id} for status.
type scanRequest struct {
	RootPath         string   `json:"rootPath"`
	Patterns         []string `json:"patterns"`
	Exclude          []string `json:"exclude"`
	Incremental      bool     `json:"incremental"`
	ExtractSummaries bool     `json:"extractSummaries"`
	Concurrency      int      `json:"concurrency"`
	Async            bool     `json:"async"`
}

func (h *HTTPTransport) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w)
	w.Header().Set(headerContentType, contentTypeJSON)

	if h.scanner == nil {
		writeError(w, ctxerr.New(ctxerr.Internal, "transport.handleScan", errors.New("scanner not configured")))
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ctxerr.New(ctxerr.InvalidArgument, "transport.handleScan", err))
		return
	}
	if req.RootPath == "" {
		writeError(w, ctxerr.New(ctxerr.InvalidArgument, "transport.handleScan", errors.New("rootPath is required")))
		return
	}

	cfg := scanner.Config{
		RootPath:         req.RootPath,
		Patterns:         req.Patterns,
		Exclude:          req.Exclude,
		Incremental:      req.Incremental,
		ExtractSummaries: req.ExtractSummaries,
		Concurrency:      req.Concurrency,
	}

	if req.Async {
		if h.jobs == nil {
			writeError(w, ctxerr.New(ctxerr.Internal, "transport.handleScan", errors.New("async scanning not configured")))
			return
		}
		job := h.jobs.Submit(cfg)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"jobId": job.ID, "status": string(job.Status)})
		return
	}

	stats, changes, err := h.scanner.Scan(r.Context(), cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"stats": stats, "changes": changes}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("transport: failed to encode scan response", "error", err)
	}
}

// handleScanStatus serves GET /scan/{jobId}, returning the current status
// of a job submitted with "async":true.
func (h *HTTPTransport) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w)
	w.Header().Set(headerContentType, contentTypeJSON)

	jobID := strings.TrimPrefix(r.URL.Path, "/scan/")
	if jobID == "" {
		writeError(w, ctxerr.New(ctxerr.InvalidArgument, "transport.handleScanStatus", errors.New("job id is required")))
		return
	}
	if h.jobs == nil {
		writeError(w, ctxerr.New(ctxerr.Internal, "transport.handleScanStatus", errors.New("async scanning not configured")))
		return
	}

	job, ok := h.jobs.GetJob(jobID)
	if !ok {
		writeError(w, ctxerr.New(ctxerr.NotFound, "transport.handleScanStatus", fmt.Errorf("job %s not found", jobID)))
		return
	}

	if err := json.NewEncoder(w).Encode(job); err != nil {
		slog.Error("transport: failed to encode scan status response", "error", err)
	}
}

func (h *HTTPTransport) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set(headerCORSOrigin, corsOrigin)
	w.Header().Set(headerCORSMethods, corsMethods)
	w.Header().Set(headerCORSHeaders, corsHeaders)
}

// writeError maps a ctxerr.Kind (or a plain error, treated as Internal) to
// its spec.md §7 HTTP status and writes a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	kind := ctxerr.Internal
	var ce *ctxerr.Error
	if errors.As(err, &ce) {
		kind = ce.Kind
	}

	status := http.StatusInternalServerError
	switch kind {
	case ctxerr.NotFound:
		status = http.StatusNotFound
	case ctxerr.InvalidArgument:
		status = http.StatusBadRequest
	case ctxerr.Cancelled:
		status = http.StatusRequestTimeout
	case ctxerr.Timeout:
		status = http.StatusGatewayTimeout
	case ctxerr.DependencyUnavailable:
		status = http.StatusServiceUnavailable
	case ctxerr.Internal:
		status = http.StatusInternalServerError
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf("%v", err),
		"kind":  string(kind),
	})
}

// Start starts the HTTP server. Blocks until Shutdown is called or the
// server fails to bind.
func (h *HTTPTransport) Start() error {
	slog.Info("transport: starting HTTP server", "address", h.addr)
	return h.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	slog.Info("transport: shutting down HTTP server")
	return h.server.Shutdown(ctx)
}

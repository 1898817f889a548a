package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/retrieval"
	"github.com/docleaai/doclea-mcp-sub003/internal/scanner"
)

func newTestGraph(t *testing.T) *codegraph.Store {
	t.Helper()
	s, err := codegraph.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandleHealth(t *testing.T) {
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(newTestGraph(t), nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestHandleRetrieveEmptyQueryReturnsNoContext(t *testing.T) {
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(newTestGraph(t), nil), nil)

	body := strings.NewReader(`{"query":""}`)
	req := httptest.NewRequest(http.MethodPost, "/retrieve", body)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No relevant context found")
}

func TestHandleRetrieveMissingEngineReturnsInternal(t *testing.T) {
	h := NewHTTPTransport(":0", nil, scanner.New(newTestGraph(t), nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"query":"hi"}`))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRetrieveRejectsWrongMethod(t *testing.T) {
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(newTestGraph(t), nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/retrieve", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleScanIndexesRootPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte("package sample\n\nfunc Hello() {}\n"), 0o644))

	graph := newTestGraph(t)
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(graph, nil), nil)

	payload, err := json.Marshal(map[string]any{"rootPath": dir, "incremental": true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stats struct {
			FilesScanned int `json:"FilesScanned"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Stats.FilesScanned)
}

func TestHandleScanRejectsMissingRootPath(t *testing.T) {
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(newTestGraph(t), nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScanAsyncReturnsJobIDThenStatus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte("package sample\n\nfunc Hello() {}\n"), 0o644))

	graph := newTestGraph(t)
	sc := scanner.New(graph, nil)
	jm := scanner.NewJobManager(sc, 1, 4)
	defer jm.Stop()
	h := NewHTTPTransport(":0", &retrieval.Engine{}, sc, jm)

	payload, err := json.Marshal(map[string]any{"rootPath": dir, "incremental": true, "async": true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.JobID)

	deadline := time.Now().Add(2 * time.Second)
	var status scanner.Job
	for time.Now().Before(deadline) {
		statusRec := httptest.NewRecorder()
		h.mux.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/scan/"+submitted.JobID, nil))
		require.Equal(t, http.StatusOK, statusRec.Code)
		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
		if status.Status == "completed" || status.Status == "failed" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, "completed", string(status.Status))
	require.Equal(t, 1, status.Stats.FilesScanned)
}

func TestHandleScanStatusUnknownJobReturnsNotFound(t *testing.T) {
	graph := newTestGraph(t)
	sc := scanner.New(graph, nil)
	jm := scanner.NewJobManager(sc, 1, 4)
	defer jm.Stop()
	h := NewHTTPTransport(":0", &retrieval.Engine{}, sc, jm)

	req := httptest.NewRequest(http.MethodGet, "/scan/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMetricsExposesCacheCounters(t *testing.T) {
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(newTestGraph(t), nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "retrieval_cache_hits_total")
	require.Contains(t, rec.Body.String(), "retrieval_stage_duration_seconds")
}

func TestHandleScanAsyncWithoutJobManagerReturnsInternal(t *testing.T) {
	graph := newTestGraph(t)
	h := NewHTTPTransport(":0", &retrieval.Engine{}, scanner.New(graph, nil), nil)

	payload, err := json.Marshal(map[string]any{"rootPath": t.TempDir(), "async": true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

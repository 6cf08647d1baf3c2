package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/metrics"
)

type askFake struct {
	answer *domain.Answer
	err    error
}

func (f askFake) Ask(context.Context, string) (*domain.Answer, error) {
	return f.answer, f.err
}

type ingestFake struct {
	result   *domain.IngestResult
	err      error
	lastDocs []domain.Document
}

func (f *ingestFake) IngestFromUpstream(context.Context, string, int, bool) (*domain.IngestResult, error) {
	return f.result, f.err
}

func (f *ingestFake) IngestDocuments(_ context.Context, docs []domain.Document) (*domain.IngestResult, error) {
	f.lastDocs = docs
	return f.result, f.err
}

type statsFake struct {
	stats *domain.CorpusStats
	err   error
}

func (f statsFake) Stats(context.Context) (*domain.CorpusStats, error) {
	return f.stats, f.err
}

type statusFake struct {
	status domain.IngestStatus
	err    error
}

func (f statusFake) RecordSuccess(context.Context, time.Time, int, string) error { return nil }
func (f statusFake) RecordFailure(context.Context, time.Time, string) error      { return nil }
func (f statusFake) Load(context.Context) (domain.IngestStatus, error) {
	return f.status, f.err
}

type proberFake struct {
	err error
}

func (f proberFake) Alive(context.Context) error { return f.err }

type routerOptions struct {
	asker    askFake
	ingestor *ingestFake
	stats    statsFake
	status   statusFake
	prober   proberFake
}

func newTestHandler(opts routerOptions) http.Handler {
	if opts.ingestor == nil {
		opts.ingestor = &ingestFake{}
	}
	return NewRouter(
		"api",
		opts.asker,
		opts.ingestor,
		opts.stats,
		opts.status,
		opts.prober,
		metrics.NewHTTPServerMetrics("api"),
	).Handler()
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzReportsOK(t *testing.T) {
	handler := newTestHandler(routerOptions{})
	res := doRequest(handler, http.MethodGet, "/healthz", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" || payload["llm"] != "up" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["service"] != "api" || payload["timestamp"] == "" {
		t.Fatalf("expected service and timestamp fields, got %v", payload)
	}
}

func TestHealthzDegradedWhenLLMDown(t *testing.T) {
	handler := newTestHandler(routerOptions{prober: proberFake{err: errors.New("down")}})
	res := doRequest(handler, http.MethodGet, "/healthz", "")
	if res.Code != http.StatusOK {
		t.Fatalf("liveness degradation is not an HTTP failure, got %d", res.Code)
	}

	var payload map[string]string
	_ = json.NewDecoder(res.Body).Decode(&payload)
	if payload["status"] != "degraded" || payload["llm"] != "down" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestAskSuccess(t *testing.T) {
	answer := &domain.Answer{
		Text:          "It rained.",
		Citations:     []domain.Citation{{Source: "express", Snippet: "..."}},
		Confidence:    domain.ConfidenceExtractive,
		RequestID:     "req-1",
		Timestamp:     "2026-08-28T12:00:00Z",
		RetrievalMode: "semantic",
	}
	handler := newTestHandler(routerOptions{asker: askFake{answer: answer}})

	res := doRequest(handler, http.MethodPost, "/v1/ask", `{"question":"rain in selangor?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["answer"] != "It rained." || payload["confidence"] != 0.35 {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["request_id"] != "req-1" {
		t.Fatalf("unexpected request id: %v", payload["request_id"])
	}
	if _, leaked := payload["RetrievalMode"]; leaked {
		t.Fatalf("retrieval mode must not leak into the response")
	}
}

func TestAskErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("empty")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrUpstream, "fetch", errors.New("down")), http.StatusBadGateway},
		{domain.WrapError(domain.ErrTemporary, "ollama", errors.New("circuit open")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrNotFound, "load", errors.New("missing")), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(routerOptions{asker: askFake{err: tc.err}})
		res := doRequest(handler, http.MethodPost, "/v1/ask", `{"question":"q"}`)
		if res.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(routerOptions{})
	res := doRequest(handler, http.MethodPost, "/v1/ask", `{"question":`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(routerOptions{})
	res := doRequest(handler, http.MethodGet, "/v1/ask", "")
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestIngestDocumentsMapsRequest(t *testing.T) {
	ingestor := &ingestFake{result: &domain.IngestResult{Ingested: 1, Total: 1, Source: "manual"}}
	handler := newTestHandler(routerOptions{ingestor: ingestor})

	body := `{"documents":[{"id":"custom-1","type":"rainfall","state":"SEL","recorded_at":"2026-08-28T10:00:00Z","value":25.5,"text":"note"}]}`
	res := doRequest(handler, http.MethodPost, "/v1/ingest", body)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	if len(ingestor.lastDocs) != 1 {
		t.Fatalf("expected 1 mapped document, got %d", len(ingestor.lastDocs))
	}
	doc := ingestor.lastDocs[0]
	if doc.ID != "custom-1" || doc.Type != domain.TypeRainfall || doc.Value == nil || *doc.Value != 25.5 {
		t.Fatalf("unexpected mapped document: %+v", doc)
	}
}

func TestIngestDocumentsRequiresDocuments(t *testing.T) {
	handler := newTestHandler(routerOptions{})
	res := doRequest(handler, http.MethodPost, "/v1/ingest", `{"documents":[]}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestIngestUpstreamAllowsEmptyBody(t *testing.T) {
	ingestor := &ingestFake{result: &domain.IngestResult{Ingested: 4, Total: 4, Source: "express"}}
	handler := newTestHandler(routerOptions{ingestor: ingestor})

	res := doRequest(handler, http.MethodPost, "/v1/ingest/upstream", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload map[string]any
	_ = json.NewDecoder(res.Body).Decode(&payload)
	if payload["ingested"] != 4.0 || payload["source"] != "express" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestIngestUpstreamMapsUpstreamFailure(t *testing.T) {
	ingestor := &ingestFake{err: domain.WrapError(domain.ErrUpstream, "fetch rainfall readings", errors.New("timeout"))}
	handler := newTestHandler(routerOptions{ingestor: ingestor})

	res := doRequest(handler, http.MethodPost, "/v1/ingest/upstream", `{"state":"SEL"}`)
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func TestIngestStatusEndpoint(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	handler := newTestHandler(routerOptions{status: statusFake{status: domain.IngestStatus{
		LastSuccessAt: &at,
		LastCount:     42,
		Message:       "ok",
	}}})

	res := doRequest(handler, http.MethodGet, "/v1/ingest/status", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload map[string]any
	_ = json.NewDecoder(res.Body).Decode(&payload)
	if payload["last_count"] != 42.0 || payload["message"] != "ok" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler := newTestHandler(routerOptions{stats: statsFake{stats: &domain.CorpusStats{
		TotalDocuments: 6,
		Collection:     "readings",
		States:         map[string]int{"SEL": 4, "UNKNOWN": 2},
	}}})

	res := doRequest(handler, http.MethodGet, "/v1/stats", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload map[string]any
	_ = json.NewDecoder(res.Body).Decode(&payload)
	if payload["total_documents"] != 6.0 || payload["collection"] != "readings" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestRequestIDHeaderPropagates(t *testing.T) {
	handler := newTestHandler(routerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "trace-123" {
		t.Fatalf("expected request id echo, got %q", got)
	}

	res = doRequest(handler, http.MethodGet, "/healthz", "")
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	handler := newTestHandler(routerOptions{})
	res := doRequest(handler, http.MethodGet, "/metrics", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "infobanjir_http_in_flight_requests") {
		t.Fatalf("expected namespaced metrics in output")
	}
}

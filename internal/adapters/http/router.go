package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/metrics"
)

type Router struct {
	service string

	asker    ports.QuestionAnswerer
	ingestor ports.ReadingIngestor
	stats    ports.CorpusStatsReader
	status   ports.IngestStatusStore
	prober   ports.LivenessProber
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	service string,
	asker ports.QuestionAnswerer,
	ingestor ports.ReadingIngestor,
	stats ports.CorpusStatsReader,
	status ports.IngestStatusStore,
	prober ports.LivenessProber,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		service:  service,
		asker:    asker,
		ingestor: ingestor,
		stats:    stats,
		status:   status,
		prober:   prober,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/ingest", rt.ingestDocuments)
	mux.HandleFunc("/v1/ingest/upstream", rt.ingestUpstream)
	mux.HandleFunc("/v1/ingest/status", rt.ingestStatus)
	mux.HandleFunc("/v1/stats", rt.corpusStats)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"status":    "ok",
		"service":   rt.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"llm":       "up",
	}
	if rt.prober != nil {
		probeCtx, cancel := contextWithProbeTimeout(r)
		defer cancel()
		if err := rt.prober.Alive(probeCtx); err != nil {
			payload["status"] = "degraded"
			payload["llm"] = "down"
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	answer, err := rt.asker.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAskObservation(rt.service, len(answer.Citations), time.Since(start))
		rt.metrics.RecordAskMode(rt.service, answer.RetrievalMode)
	}
	writeJSON(w, http.StatusOK, answer)
}

type ingestDocumentRequest struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	Type       string   `json:"type"`
	State      string   `json:"state"`
	RecordedAt string   `json:"recorded_at"`
	Value      *float64 `json:"value"`
	Text       string   `json:"text"`
}

func (rt *Router) ingestDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Documents []ingestDocumentRequest `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents is required"})
		return
	}

	docs := make([]domain.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, domain.Document{
			ID:         d.ID,
			Title:      d.Title,
			Source:     d.Source,
			Type:       domain.DocType(d.Type),
			State:      d.State,
			RecordedAt: d.RecordedAt,
			Value:      d.Value,
			Text:       d.Text,
		})
	}

	result, err := rt.ingestor.IngestDocuments(r.Context(), docs)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIngestRun(rt.service, result.Source, result.Ingested, nil)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ingestUpstream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		State   string `json:"state"`
		Limit   int    `json:"limit"`
		Replace *bool  `json:"replace"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	replace := true
	if req.Replace != nil {
		replace = *req.Replace
	}

	result, err := rt.ingestor.IngestFromUpstream(r.Context(), strings.TrimSpace(req.State), req.Limit, replace)
	if rt.metrics != nil {
		ingested := 0
		source := "express"
		if result != nil {
			ingested = result.Ingested
			source = result.Source
		}
		rt.metrics.RecordIngestRun(rt.service, source, ingested, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ingestStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status, err := rt.status.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) corpusStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.stats.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

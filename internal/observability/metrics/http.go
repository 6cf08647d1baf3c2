package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal            *prometheus.CounterVec
	askModeTotal        *prometheus.CounterVec
	askRetrievalHit     *prometheus.CounterVec
	askNoContext        *prometheus.CounterVec
	askRetrievedSources *prometheus.HistogramVec
	askDuration         *prometheus.HistogramVec
	ingestRunsTotal     *prometheus.CounterVec
	ingestDocsTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "infobanjir",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "infobanjir",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total successful ask requests.",
		},
		[]string{"service"},
	)
	askModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "mode_requests_total",
			Help:      "Total successful ask requests by retrieval mode.",
		},
		[]string{"service", "mode"},
	)
	askRetrievalHit := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "retrieval_hit_total",
			Help:      "Total ask requests with at least one retrieved source.",
		},
		[]string{"service"},
	)
	askNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "no_context_total",
			Help:      "Total ask requests without retrieved sources.",
		},
		[]string{"service"},
	)
	askRetrievedSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "retrieved_sources",
			Help:      "Distribution of retrieved sources per successful ask request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "infobanjir",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	ingestRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total ingestion runs by source and status.",
		},
		[]string{"service", "source", "status"},
	)
	ingestDocsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total documents ingested by source.",
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askModeTotal,
		askRetrievalHit,
		askNoContext,
		askRetrievedSources,
		askDuration,
		ingestRunsTotal,
		ingestDocsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		askTotal:            askTotal,
		askModeTotal:        askModeTotal,
		askRetrievalHit:     askRetrievalHit,
		askNoContext:        askNoContext,
		askRetrievedSources: askRetrievedSources,
		askDuration:         askDuration,
		ingestRunsTotal:     ingestRunsTotal,
		ingestDocsTotal:     ingestDocsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAskObservation(service string, sourceCount int, duration time.Duration) {
	m.askTotal.WithLabelValues(service).Inc()
	m.askRetrievedSources.WithLabelValues(service).Observe(float64(sourceCount))
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.askRetrievalHit.WithLabelValues(service).Inc()
		return
	}
	m.askNoContext.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAskMode(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.askModeTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordIngestRun(service, source string, ingested int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if source == "" {
		source = "unknown"
	}
	m.ingestRunsTotal.WithLabelValues(service, source, status).Inc()
	if ingested > 0 {
		m.ingestDocsTotal.WithLabelValues(service, source).Add(float64(ingested))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

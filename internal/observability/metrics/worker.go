package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	refreshInFlight prometheus.Gauge
	corpusDocuments *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	refreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infobanjir",
			Subsystem: "worker",
			Name:      "refresh_total",
			Help:      "Total upstream refresh passes by status.",
		},
		[]string{"service", "status"},
	)
	refreshDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "infobanjir",
			Subsystem: "worker",
			Name:      "refresh_duration_seconds",
			Help:      "Upstream refresh duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	refreshInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "infobanjir",
			Subsystem: "worker",
			Name:      "refresh_in_flight",
			Help:      "Number of in-flight refresh passes.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	corpusDocuments := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "infobanjir",
			Subsystem: "worker",
			Name:      "corpus_documents",
			Help:      "Documents in the corpus after the last successful refresh.",
		},
		[]string{"service"},
	)

	registry.MustRegister(refreshTotal, refreshDuration, refreshInFlight, corpusDocuments)

	return &WorkerMetrics{
		registry:        registry,
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		refreshInFlight: refreshInFlight,
		corpusDocuments: corpusDocuments,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRefresh() {
	m.refreshInFlight.Inc()
}

func (m *WorkerMetrics) FinishRefresh(service string, duration time.Duration, corpusTotal int, err error) {
	m.refreshInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.refreshTotal.WithLabelValues(service, status).Inc()
	m.refreshDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil {
		m.corpusDocuments.WithLabelValues(service).Set(float64(corpusTotal))
	}
}

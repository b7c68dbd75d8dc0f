package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SummariesComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "summaries_total", Help: "Student attendance summaries computed",
	})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "workday_cache_hits_total", Help: "Working-day cache hits",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "workday_cache_misses_total", Help: "Working-day cache misses",
	})
	QueuePublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "mark_batches_published_total", Help: "Mark batches published to the save queue",
	})
	WorkerSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "mark_batches_saved_total", Help: "Mark batches upserted by the worker",
	})
	WorkerRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "asistencia", Name: "mark_save_retries_total", Help: "Retried mark batch upserts",
	})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "asistencia", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})
)

func init() {
	prometheus.MustRegister(
		SummariesComputed, CacheHits, CacheMisses,
		QueuePublished, WorkerSaves, WorkerRetries,
		RequestDuration,
	)
}

// Handler exposes the registry for the /metrics route.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveRequest records one HTTP request.
func ObserveRequest(path, method, status string, d time.Duration) {
	RequestDuration.WithLabelValues(path, method, status).Observe(d.Seconds())
}

package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	generations     *prometheus.CounterVec
	generationTime  prometheus.Observer
	blocksPlaced    prometheus.Observer
	placementTries  prometheus.Observer
	solverFallbacks *prometheus.CounterVec
	solverState     prometheus.Gauge
	exportJobs      *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	generationCount      uint64
	partialCount         uint64
	fallbackCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_generations_total",
		Help: "Schedules generated by source and outcome status",
	}, []string{"source", "status"})

	generationTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_generation_seconds",
		Help:    "Wall time of one generation pipeline run",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	blocksPlaced := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_blocks_placed",
		Help:    "Blocks placed per generated schedule",
		Buckets: prometheus.LinearBuckets(0, 4, 10),
	})

	placementTries := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_placement_attempts",
		Help:    "Random placement attempts consumed per generated schedule",
		Buckets: prometheus.ExponentialBuckets(2, 2, 12),
	})

	solverFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_fallbacks_total",
		Help: "Solve requests answered by the local generator instead of the remote solver",
	}, []string{"reason"})

	solverState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_breaker_state",
		Help: "Remote solver breaker state (0 closed, 1 half-open, 2 open)",
	})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Finished export jobs by format and status",
	}, []string{"format", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHits, cacheMisses,
		generations, generationTime, blocksPlaced, placementTries,
		solverFallbacks, solverState, exportJobs,
		dbQueryDuration, goroutines,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		generations:     generations,
		generationTime:  generationTime,
		blocksPlaced:    blocksPlaced,
		placementTries:  placementTries,
		solverFallbacks: solverFallbacks,
		solverState:     solverState,
		exportJobs:      exportJobs,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeneration records one pipeline run.
func (m *MetricsService) ObserveGeneration(source string, schedule *models.Schedule, attempts int, duration time.Duration) {
	if m == nil || schedule == nil {
		return
	}
	m.generations.WithLabelValues(source, string(schedule.Status)).Inc()
	m.generationTime.Observe(duration.Seconds())
	m.blocksPlaced.Observe(float64(len(schedule.Blocks)))
	m.placementTries.Observe(float64(attempts))
	atomic.AddUint64(&m.generationCount, 1)
	if schedule.Status == models.ScheduleStatusPartial {
		atomic.AddUint64(&m.partialCount, 1)
	}
}

// RecordSolverFallback counts a solve answered locally.
func (m *MetricsService) RecordSolverFallback(reason string) {
	if m == nil {
		return
	}
	m.solverFallbacks.WithLabelValues(reason).Inc()
	atomic.AddUint64(&m.fallbackCount, 1)
}

// SetSolverBreakerState publishes the breaker state as 0, 1 or 2.
func (m *MetricsService) SetSolverBreakerState(state int) {
	if m == nil {
		return
	}
	m.solverState.Set(float64(state))
}

// RecordExportJob counts an export job status transition.
func (m *MetricsService) RecordExportJob(format models.ExportFormat, status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(format), string(status)).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SchedulesGenerated:       atomic.LoadUint64(&m.generationCount),
		PartialSchedules:         atomic.LoadUint64(&m.partialCount),
		SolverFallbacks:          atomic.LoadUint64(&m.fallbackCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

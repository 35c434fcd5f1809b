package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	solves          *prometheus.CounterVec
	solveDuration   prometheus.Histogram
	solveHardScore  prometheus.Gauge
	solveIterations prometheus.Counter
	conflicts       *prometheus.CounterVec
	queueDepth      prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	solveCount     uint64
	conflictCount  uint64
}

// MetricsSnapshot is a JSON friendly summary of the collected counters.
type MetricsSnapshot struct {
	RequestsTotal  uint64    `json:"requests_total"`
	SolvesTotal    uint64    `json:"solves_total"`
	ConflictsTotal uint64    `json:"conflicts_total"`
	CacheHits      uint64    `json:"cache_hits"`
	CacheMisses    uint64    `json:"cache_misses"`
	CacheHitRatio  float64   `json:"cache_hit_ratio"`
	Goroutines     int       `json:"goroutines"`
	GeneratedAt    time.Time `json:"generated_at"`
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_solves_total",
		Help: "Finished timetable solves by outcome",
	}, []string{"status"})

	solveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_solve_duration_seconds",
		Help:    "Wall time spent per timetable solve",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	solveHardScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_solve_hard_score",
		Help: "Hard score of the most recent solve; zero means feasible",
	})

	solveIterations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_solver_iterations_total",
		Help: "Moves evaluated by the local search",
	})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_validation_conflicts_total",
		Help: "Conflicts reported while validating manual edits",
	}, []string{"kind"})

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_solve_queue_depth",
		Help: "Solve jobs waiting for a worker",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, solves, solveDuration,
		solveHardScore, solveIterations, conflicts, queueDepth, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		solves:          solves,
		solveDuration:   solveDuration,
		solveHardScore:  solveHardScore,
		solveIterations: solveIterations,
		conflicts:       conflicts,
		queueDepth:      queueDepth,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveSolve records the outcome of one finished solve. status is the job status label.
func (m *MetricsService) ObserveSolve(status string, result *timetable.Result, duration time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(status).Inc()
	m.solveDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.solveCount, 1)
	if result == nil {
		return
	}
	m.solveHardScore.Set(float64(result.Score.Hard))
	m.solveIterations.Add(float64(result.Iterations))
}

// RecordConflicts counts validator conflicts by kind.
func (m *MetricsService) RecordConflicts(conflicts []models.Conflict) {
	if m == nil {
		return
	}
	for _, c := range conflicts {
		m.conflicts.WithLabelValues(string(c.Kind)).Inc()
	}
	atomic.AddUint64(&m.conflictCount, uint64(len(conflicts)))
}

// SetQueueDepth publishes the number of waiting solve jobs.
func (m *MetricsService) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		RequestsTotal:  atomic.LoadUint64(&m.requestCount),
		SolvesTotal:    atomic.LoadUint64(&m.solveCount),
		ConflictsTotal: atomic.LoadUint64(&m.conflictCount),
		CacheHits:      hits,
		CacheMisses:    misses,
		CacheHitRatio:  ratio,
		Goroutines:     runtime.NumGoroutine(),
		GeneratedAt:    time.Now().UTC(),
	}
}

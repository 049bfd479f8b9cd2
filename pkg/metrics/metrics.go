// Package metrics exposes Prometheus collectors for analyses, tape
// conversions and the HTTP service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysisTotal counts module analyses by result and input format
	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "size_analysis_runs_total",
		Help: "Total module analyses by result and input format",
	}, []string{"result", "format"})

	// stageDuration tracks pipeline stage latency
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "size_analysis_stage_duration_seconds",
		Help:    "Analysis pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"stage"})

	// graphItems tracks the number of items per analyzed graph
	graphItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "size_analysis_graph_items",
		Help:    "Number of items per analyzed graph",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})

	// garbageBytes tracks the garbage size found per analysis
	garbageBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "size_analysis_garbage_bytes",
		Help:    "Bytes classified as garbage per analysis",
		Buckets: prometheus.ExponentialBuckets(64, 4, 12),
	})

	// tapeTotal counts tape conversions by result
	tapeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "size_analysis_tape_conversions_total",
		Help: "Total tape to JSON conversions by result",
	}, []string{"result"})

	// httpRequests counts HTTP requests by route and status code
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "size_analysis_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ObserveAnalysis records one finished module analysis.
func ObserveAnalysis(result, format string) {
	analysisTotal.WithLabelValues(result, format).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveGraph records the size of an analyzed graph and its garbage.
func ObserveGraph(items int, garbageSize uint64) {
	graphItems.Observe(float64(items))
	garbageBytes.Observe(float64(garbageSize))
}

// ObserveTape records one finished tape conversion.
func ObserveTape(result string) {
	tapeTotal.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served HTTP request.
func ObserveHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// Result maps an error to its result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

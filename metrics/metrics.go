// Package metrics instruments the pipeline with Prometheus collectors, the
// way the rest of the example pack exposes operational state: gauges and
// counters registered through promauto and served over HTTP. Nothing in
// this package is consulted by the pipeline's own logic; it is purely
// observational.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the pipeline's host process updates as it
// runs.
type Metrics struct {
	RingOccupancy   *prometheus.GaugeVec // labeled by receiver index
	SyncLag         *prometheus.GaugeVec // last measured lag, labeled by receiver index
	FramesProcessed prometheus.Counter   // combined output frames emitted
	WorkerErrors    *prometheus.CounterVec
}

// New registers and returns a fresh Metrics set against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		RingOccupancy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sofi_ring_occupancy",
			Help: "Number of frame-ring slots currently holding an unreleased frame, per receiver.",
		}, []string{"receiver"}),

		SyncLag: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sofi_sync_lag_samples",
			Help: "Last measured sample-clock lag against receiver 0, per receiver.",
		}, []string{"receiver"}),

		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sofi_combined_frames_total",
			Help: "Number of decimated combiner outputs emitted.",
		}),

		WorkerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sofi_worker_errors_total",
			Help: "Number of fatal FFT Worker errors, per receiver.",
		}, []string{"receiver"}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr. It blocks until
// the server stops and is intended to be run in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Package metrics exposes scheduler activity to Prometheus and serves a
// small health endpoint.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/andrej220/hamagent/pkg/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ham_agent"

// Recorder implements scheduler.Recorder on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	cycles      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	loops       prometheus.Gauge
	activeLoops int32
}

var _ scheduler.Recorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Command cycles by command and result",
			},
			[]string{"command", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Time spent executing and reporting one command",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"command"},
		),
		loops: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_loops",
				Help:      "Number of running command loops",
			},
		),
	}
}

func (r *Recorder) LoopStarted(string) {
	atomic.AddInt32(&r.activeLoops, 1)
	r.loops.Inc()
}

func (r *Recorder) LoopStopped(string) {
	atomic.AddInt32(&r.activeLoops, -1)
	r.loops.Dec()
}

func (r *Recorder) ObserveCycle(o scheduler.Outcome) {
	r.cycles.WithLabelValues(o.Command, o.Result()).Inc()
	r.duration.WithLabelValues(o.Command).Observe(o.Duration.Seconds())
}

func (r *Recorder) ActiveLoops() int32 {
	return atomic.LoadInt32(&r.activeLoops)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

type Health struct {
	Status      string `json:"status"`
	DeviceID    string `json:"device_id"`
	ActiveLoops int32  `json:"active_loops"`
}

// NewRouter mounts GET /metrics and GET /healthz.
func NewRouter(rec *Recorder, deviceID string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", rec.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Health{
			Status:      "ok",
			DeviceID:    deviceID,
			ActiveLoops: rec.ActiveLoops(),
		})
	})
	return r
}

// Package telemetry exposes Prometheus counters for simulation runs and the
// HTTP API.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/ivle-sim/internal/agents"
)

// Recorder holds the simulator's collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	simulatedSecs *prometheus.CounterVec
	actors        *prometheus.GaugeVec
	runDuration   prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewRecorder creates and registers every collector.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ivlesim_events_total",
			Help: "Events generated, by activity type.",
		}, []string{"activity"}),
		simulatedSecs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ivlesim_simulated_seconds_total",
			Help: "Simulated seconds spent, by activity type.",
		}, []string{"activity"}),
		actors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ivlesim_actors",
			Help: "Students in the last run, by engagement level.",
		}, []string{"level"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ivlesim_run_duration_seconds",
			Help:    "Wall-clock duration of simulation runs.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ivlesim_http_requests_total",
			Help: "HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ivlesim_http_request_duration_seconds",
			Help:    "HTTP request durations, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.registry.MustRegister(
		r.events,
		r.simulatedSecs,
		r.actors,
		r.runDuration,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveEvent counts one event. It satisfies engine.Observer.
func (r *Recorder) ObserveEvent(e agents.Event) {
	activity := string(e.Activity)
	r.events.WithLabelValues(activity).Inc()
	r.simulatedSecs.WithLabelValues(activity).Add(e.Duration.Seconds())
}

// ObserveRun records a finished run's population and wall-clock duration.
func (r *Recorder) ObserveRun(byLevel map[agents.Level]int, elapsed time.Duration) {
	for _, l := range agents.Levels {
		r.actors.WithLabelValues(l.String()).Set(float64(byLevel[l]))
	}
	r.runDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware counts requests and their durations under the given route label.
func (r *Recorder) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		r.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		r.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Package metrics exposes Prometheus instruments for habit transitions, HTTP
// traffic and cleanup runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/keeprun/internal/constants"
)

// PrometheusRecorder records Keep Run metrics into a registry.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	habitsCreated   *prometheus.CounterVec
	habitsEnded     *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cleanupPurged   *prometheus.CounterVec
	cleanupRuns     *prometheus.CounterVec
}

// NewPrometheusRecorder registers all instruments on a fresh registry that
// also carries the Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		habitsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeprun_habits_created_total",
				Help: "Total number of habits started, by category",
			},
			[]string{"category"},
		),
		habitsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeprun_habits_ended_total",
				Help: "Total number of habits that reached a terminal state, by status",
			},
			[]string{"status"},
		),
		recordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeprun_habit_records_total",
				Help: "Total number of daily habit records written",
			},
			[]string{"completed"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keeprun_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		cleanupPurged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeprun_cleanup_purged_total",
				Help: "Rows purged by the archival cleanup job",
			},
			[]string{"entity"},
		),
		cleanupRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeprun_cleanup_runs_total",
				Help: "Cleanup job runs by result",
			},
			[]string{"result"},
		),
	}
}

func (p *PrometheusRecorder) HabitCreated(category constants.HabitCategory) {
	p.habitsCreated.WithLabelValues(string(category)).Inc()
}

func (p *PrometheusRecorder) HabitTerminated(status constants.HabitStatus) {
	p.habitsEnded.WithLabelValues(string(status)).Inc()
}

func (p *PrometheusRecorder) RecordWritten(completed bool) {
	p.recordsWritten.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// ObserveRequest records one finished HTTP request.
func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObservePurge records the rows removed for one entity during a cleanup run.
func (p *PrometheusRecorder) ObservePurge(entity string, n int64) {
	p.cleanupPurged.WithLabelValues(entity).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveCleanupRun(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	p.cleanupRuns.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

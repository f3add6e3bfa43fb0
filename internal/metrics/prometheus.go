package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"PowerPosition/internal/model"
)

// Recorder exports report run metrics to Prometheus. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	retriesTotal  prometheus.Counter
	runDuration   prometheus.Histogram
	lastSuccess   prometheus.Gauge
	reportBuckets prometheus.Gauge
}

// New registers the report metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerposition_runs_total",
				Help: "Total number of report runs by outcome",
			},
			[]string{"status"},
		),
		retriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "powerposition_upstream_retries_total",
				Help: "Total number of retried upstream trade fetches",
			},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "powerposition_run_duration_seconds",
				Help:    "Duration of report runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "powerposition_last_success_timestamp_seconds",
				Help: "Unix time of the last successful report",
			},
		),
		reportBuckets: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "powerposition_report_buckets",
				Help: "Number of hourly buckets in the last report",
			},
		),
	}
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(status model.RunStatus, d time.Duration) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(string(status)).Inc()
	r.runDuration.Observe(d.Seconds())
}

// RecordRetry records one retried upstream fetch.
func (r *Recorder) RecordRetry() {
	if r == nil {
		return
	}
	r.retriesTotal.Inc()
}

// RecordReport records a successfully written report.
func (r *Recorder) RecordReport(buckets int, at time.Time) {
	if r == nil {
		return
	}
	r.reportBuckets.Set(float64(buckets))
	r.lastSuccess.Set(float64(at.Unix()))
}

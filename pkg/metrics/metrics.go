// Package metrics exposes Prometheus collectors for queues, sweeps and the
// retention job.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/queue"
	"github.com/jdziat/simple-async-jobs/pkg/retention"
	"github.com/jdziat/simple-async-jobs/pkg/sweep"
)

const namespace = "asyncq"

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	jobsExecuted *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec

	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweepJobs     *prometheus.CounterVec
	lastSweep     prometheus.Gauge

	retentionDeleted *prometheus.CounterVec
	retentionKept    prometheus.Counter

	started sync.Map // job id -> time.Time
}

// Option configures Metrics.
type Option func(*options)

type options struct {
	runtime bool
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(o *options) { o.runtime = true }
}

// New creates Metrics registered with a private registry.
func New(opts ...Option) *Metrics {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_executed_total",
			Help:      "Jobs executed by sweeps, by job name and outcome.",
		}, []string{"job_name", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent running a job's handler.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_name"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeps, by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		sweepJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_jobs_total",
			Help:      "Jobs handled by sweeps, by outcome.",
		}, []string{"outcome"}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time of the last sweep that completed without a storage error.",
		}),
		retentionDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Rows removed by the retention job, by kind.",
		}, []string{"kind"}),
		retentionKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_group_kept_total",
			Help:      "Old terminal jobs kept because their group was still active.",
		}),
	}

	m.registry.MustRegister(
		m.jobsExecuted,
		m.jobDuration,
		m.sweeps,
		m.sweepDuration,
		m.sweepJobs,
		m.lastSweep,
		m.retentionDeleted,
		m.retentionKept,
	)
	if o.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument registers hooks on q that count executed jobs and time handlers.
func (m *Metrics) Instrument(q *queue.Queue) {
	q.OnJobStart(func(ctx context.Context, job *core.Job) {
		m.started.Store(job.ID, time.Now())
	})
	q.OnJobComplete(func(ctx context.Context, job *core.Job) {
		m.finish(job, OutcomeSucceeded)
	})
	q.OnJobFail(func(ctx context.Context, job *core.Job, err error) {
		m.finish(job, OutcomeFailed)
	})
}

func (m *Metrics) finish(job *core.Job, outcome string) {
	m.jobsExecuted.WithLabelValues(job.Name, outcome).Inc()
	if v, ok := m.started.LoadAndDelete(job.ID); ok {
		m.jobDuration.WithLabelValues(job.Name).Observe(time.Since(v.(time.Time)).Seconds())
	}
}

// ObserveSweep records a sweep report. Its signature matches worker.OnSweep.
func (m *Metrics) ObserveSweep(report *sweep.Report, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweeps.WithLabelValues(result).Inc()

	if report == nil {
		return
	}
	m.sweepDuration.Observe(report.Duration.Seconds())
	m.sweepJobs.WithLabelValues(OutcomeSucceeded).Add(float64(len(report.Succeeded)))
	m.sweepJobs.WithLabelValues(OutcomeFailed).Add(float64(len(report.Failed)))
	m.sweepJobs.WithLabelValues(OutcomeSkipped).Add(float64(len(report.Skipped)))
	if err == nil {
		m.lastSweep.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
	}
}

// ObserveRetention records a retention run. Its signature matches retention.OnResult.
func (m *Metrics) ObserveRetention(result *retention.Result) {
	if result == nil {
		return
	}
	m.retentionDeleted.WithLabelValues("jobs").Add(float64(result.JobsDeleted))
	m.retentionDeleted.WithLabelValues("errors").Add(float64(result.ErrorsDeleted))
	m.retentionDeleted.WithLabelValues("groups").Add(float64(result.GroupsDeleted))
	m.retentionKept.Add(float64(result.JobsKept))
}

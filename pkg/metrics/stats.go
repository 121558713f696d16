package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

var (
	jobsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "jobs"),
		"Jobs currently stored, by state.",
		[]string{"state"}, nil,
	)
	errorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "job_errors"),
		"Job error rows currently stored.",
		nil, nil,
	)
	groupsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "groups"),
		"Groups currently stored.",
		nil, nil,
	)
	scrapeErrorDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "stats_scrape_error"),
		"1 if the last stats query failed.",
		nil, nil,
	)
)

// StatsCollector reports storage counts at scrape time.
type StatsCollector struct {
	storage core.Storage
	clock   core.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewStatsCollector creates a collector querying s on every scrape.
func NewStatsCollector(s core.Storage, clock core.Clock, logger *slog.Logger) *StatsCollector {
	if clock == nil {
		clock = core.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsCollector{storage: s, clock: clock, timeout: 5 * time.Second, logger: logger}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobsDesc
	ch <- errorsDesc
	ch <- groupsDesc
	ch <- scrapeErrorDesc
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.storage.Stats(ctx, c.clock.Now())
	if err != nil {
		c.logger.Warn("stats scrape failed", "error", err)
		ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 0)

	for state, n := range map[string]int64{
		"pending":   stats.Pending,
		"deferred":  stats.Deferred,
		"claimed":   stats.Claimed,
		"executed":  stats.Executed,
		"cancelled": stats.Cancelled,
	} {
		ch <- prometheus.MustNewConstMetric(jobsDesc, prometheus.GaugeValue, float64(n), state)
	}
	ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.GaugeValue, float64(stats.Errors))
	ch <- prometheus.MustNewConstMetric(groupsDesc, prometheus.GaugeValue, float64(stats.Groups))
}

// RegisterStats adds a StatsCollector for s to the registry.
func (m *Metrics) RegisterStats(s core.Storage, clock core.Clock, logger *slog.Logger) error {
	return m.registry.Register(NewStatsCollector(s, clock, logger))
}

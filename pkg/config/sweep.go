package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jdziat/simple-async-jobs/pkg/retention"
	"github.com/jdziat/simple-async-jobs/pkg/schedule"
)

// Sweep configures the dispatcher and the watch trigger.
type Sweep struct {
	// Interval is a duration ("1m") or a cron expression ("*/5 * * * *").
	Interval        string
	MaxJobs         int
	StaleClaimAfter time.Duration
	RetryAttempts   int
}

func getSweepConfig(v *viper.Viper) *Sweep {
	return &Sweep{
		Interval:        getStringOrDefault(v, "sweep.interval", "1m"),
		MaxJobs:         getIntOrDefault(v, "sweep.max_jobs", 0),
		StaleClaimAfter: getDurationOrDefault(v, "sweep.stale_claim_after", 0),
		RetryAttempts:   getIntOrDefault(v, "sweep.retry_attempts", 3),
	}
}

// TriggerSchedule parses Schedule.
func (s *Sweep) TriggerSchedule() (schedule.Schedule, error) {
	return schedule.Parse(s.Interval)
}

// Retention configures the retention job.
type Retention struct {
	Days int
	// Interval is a duration or cron expression for rescheduling.
	Interval string
	// Ensure schedules the retention job on startup when none is pending.
	Ensure bool
}

func getRetentionConfig(v *viper.Viper) *Retention {
	return &Retention{
		Days:     getIntOrDefault(v, "retention.days", retention.DefaultRetentionDays),
		Interval: getStringOrDefault(v, "retention.interval", retention.DefaultInterval.String()),
		Ensure:   getBoolOrDefault(v, "retention.ensure", true),
	}
}

// RescheduleSchedule parses Interval.
func (r *Retention) RescheduleSchedule() (schedule.Schedule, error) {
	return schedule.Parse(r.Interval)
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr    string
	Path    string
	Runtime bool
}

func getMetricsConfig(v *viper.Viper) *Metrics {
	return &Metrics{
		Addr:    getStringOrDefault(v, "metrics.addr", ""),
		Path:    getStringOrDefault(v, "metrics.path", "/metrics"),
		Runtime: getBoolOrDefault(v, "metrics.runtime", true),
	}
}

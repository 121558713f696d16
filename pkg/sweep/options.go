package sweep

import (
	"io"
	"log/slog"
	"time"
)

// Config holds sweep configuration.
type Config struct {
	// MaxJobs caps the number of jobs executed by one sweep. Zero means no limit.
	MaxJobs int

	// StaleClaimAfter releases claims older than this before selecting jobs.
	// Zero disables the release.
	StaleClaimAfter time.Duration

	// Output receives one "<id>: <job>" line per executed job.
	Output io.Writer
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithMaxJobs caps the number of jobs executed per sweep.
func WithMaxJobs(n int) Option {
	return func(s *Sweeper) {
		if n < 0 {
			n = 0
		}
		s.config.MaxJobs = n
	}
}

// WithStaleClaimAfter enables releasing claims older than d.
func WithStaleClaimAfter(d time.Duration) Option {
	return func(s *Sweeper) {
		if d < 0 {
			d = 0
		}
		s.config.StaleClaimAfter = d
	}
}

// WithOutput sets the writer that receives one line per executed job.
func WithOutput(w io.Writer) Option {
	return func(s *Sweeper) {
		s.config.Output = w
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(s *Sweeper) {
		s.config = c
	}
}

// WithLogger sets the logger. Defaults to the queue logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

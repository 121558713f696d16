// Package commands implements the asyncq command line.
//
// Programs that register their own job handlers build the same command tree
// with NewRootCmd(WithSetup(...)) so flush and watch can resolve their jobs.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdziat/simple-async-jobs/pkg/config"
	"github.com/jdziat/simple-async-jobs/pkg/queue"
	"github.com/jdziat/simple-async-jobs/pkg/retention"
	"github.com/jdziat/simple-async-jobs/pkg/storage"
)

// Option customizes the command tree.
type Option func(*app)

// WithSetup registers a function that runs after the queue is built and
// before any command uses it. Use it to register job handlers.
func WithSetup(fn func(*queue.Queue)) Option {
	return func(a *app) {
		if fn != nil {
			a.setup = append(a.setup, fn)
		}
	}
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	setup   []func(*queue.Queue)

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	store     *storage.GormStorage
	queue     *queue.Queue
	retention *retention.Retention

	// retentionOpts is appended to by commands before open.
	retentionOpts []retention.Option
}

// NewRootCmd creates the root command
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{v: config.New()}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:           "asyncq",
		Short:         "Persistent priority job queue",
		Long:          `Enqueue, run and clean up jobs stored in SQLite or PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: search ./asyncq.yaml, $HOME/.asyncq, /etc/asyncq)")
	flags.String("driver", storage.DriverSQLite, "database driver (sqlite or postgres)")
	flags.String("dsn", "asyncq.db", "database connection string")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")

	for key, name := range map[string]string{
		"database.driver": "driver",
		"database.dsn":    "dsn",
		"log.level":       "log-level",
		"log.format":      "log-format",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newFlushCommand(a),
		newWatchCommand(a),
		newEnqueueCommand(a),
		newCancelCommand(a),
		newRetentionCommand(a),
		newStatsCommand(a),
		newErrorsCommand(a),
	)

	return rootCmd
}

// load reads configuration and builds the logger.
func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	w, closeLog, err := cfg.Logger.Writer()
	if err != nil {
		return err
	}
	logger, err := cfg.Logger.NewLogger(w)
	if err != nil {
		_ = closeLog()
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

// open connects to the store and builds the queue with the retention job
// and any setup handlers registered.
func (a *app) open(ctx context.Context) error {
	store, err := a.cfg.Database.Open()
	if err != nil {
		return err
	}
	if a.cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	resched, err := a.cfg.Retention.RescheduleSchedule()
	if err != nil {
		_ = store.Close()
		return err
	}

	q := queue.New(store, queue.WithLogger(a.logger))

	opts := []retention.Option{
		retention.WithDefaultDays(a.cfg.Retention.Days),
		retention.WithSchedule(resched),
		retention.WithLogger(a.logger),
	}
	r := retention.New(q, append(opts, a.retentionOpts...)...)
	r.Register()

	for _, fn := range a.setup {
		fn(q)
	}

	a.store = store
	a.queue = q
	a.retention = r
	return nil
}

// withQueue wraps a command body with open and close of the store.
func (a *app) withQueue(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		err := fn(cmd, args)
		if a.store != nil {
			if closeErr := a.store.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			a.store = nil
		}
		return err
	}
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

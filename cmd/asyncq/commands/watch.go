package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jdziat/simple-async-jobs/pkg/metrics"
	"github.com/jdziat/simple-async-jobs/pkg/retention"
	"github.com/jdziat/simple-async-jobs/pkg/sweep"
	"github.com/jdziat/simple-async-jobs/pkg/worker"
)

const shutdownTimeout = 5 * time.Second

func newWatchCommand(a *app) *cobra.Command {
	var m *metrics.Metrics

	return &cobra.Command{
		Use:   "watch",
		Args:  cobra.NoArgs,
		Short: "Sweep on a schedule and serve Prometheus metrics",
		PreRun: func(cmd *cobra.Command, args []string) {
			var opts []metrics.Option
			if a.cfg.Metrics.Runtime {
				opts = append(opts, metrics.WithRuntimeCollectors())
			}
			m = metrics.New(opts...)
			a.retentionOpts = append(a.retentionOpts, retention.OnResult(m.ObserveRetention))
		},
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m.Instrument(a.queue)
			if err := m.RegisterStats(a.store, a.queue.Clock(), a.logger); err != nil {
				return err
			}

			if a.cfg.Retention.Ensure {
				if _, _, err := a.retention.Ensure(ctx, a.cfg.Retention.Days); err != nil {
					return err
				}
			}

			sched, err := a.cfg.Sweep.TriggerSchedule()
			if err != nil {
				return err
			}
			s := sweep.New(a.queue,
				sweep.WithMaxJobs(a.cfg.Sweep.MaxJobs),
				sweep.WithStaleClaimAfter(a.cfg.Sweep.StaleClaimAfter),
				sweep.WithOutput(cmd.OutOrStdout()),
				sweep.WithLogger(a.logger),
			)
			w := worker.NewWorker(s,
				worker.WithSchedule(sched),
				worker.WithRetryAttempts(a.cfg.Sweep.RetryAttempts),
				worker.OnSweep(m.ObserveSweep),
				worker.WithLogger(a.logger),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := w.Start(gctx); err != nil && gctx.Err() == nil {
					return err
				}
				return nil
			})

			if addr := a.cfg.Metrics.Addr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle(a.cfg.Metrics.Path, m.Handler())
				srv := &http.Server{
					Addr:              addr,
					Handler:           mux,
					ReadHeaderTimeout: shutdownTimeout,
				}

				g.Go(func() error {
					a.logger.Info("serving metrics", "addr", addr, "path", a.cfg.Metrics.Path)
					if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		}),
	}
}

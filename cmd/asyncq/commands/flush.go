package commands

import (
	"github.com/spf13/cobra"

	"github.com/jdziat/simple-async-jobs/pkg/sweep"
)

func newFlushCommand(a *app) *cobra.Command {
	var maxJobs int

	cmd := &cobra.Command{
		Use:   "flush",
		Args:  cobra.NoArgs,
		Short: "Run every due job once and exit",
		Long: `Run one sweep: scheduled jobs that are due, by priority and then time,
followed by unscheduled jobs by priority. Each executed job prints one line.
Job failures are recorded and do not change the exit status.`,
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jobs") {
				maxJobs = a.cfg.Sweep.MaxJobs
			}
			s := sweep.New(a.queue,
				sweep.WithMaxJobs(maxJobs),
				sweep.WithStaleClaimAfter(a.cfg.Sweep.StaleClaimAfter),
				sweep.WithOutput(cmd.OutOrStdout()),
				sweep.WithLogger(a.logger),
			)
			_, err := s.Run(cmd.Context())
			return err
		}),
	}

	cmd.Flags().IntVarP(&maxJobs, "jobs", "j", 0, "maximum number of jobs to execute (0 means no limit)")
	return cmd
}

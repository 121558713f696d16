package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Args:  cobra.NoArgs,
		Short: "Show job counts by state",
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			stats, err := a.store.Stats(cmd.Context(), a.queue.Now())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "pending\t%d\n", stats.Pending)
			fmt.Fprintf(tw, "deferred\t%d\n", stats.Deferred)
			fmt.Fprintf(tw, "claimed\t%d\n", stats.Claimed)
			fmt.Fprintf(tw, "executed\t%d\n", stats.Executed)
			fmt.Fprintf(tw, "cancelled\t%d\n", stats.Cancelled)
			fmt.Fprintf(tw, "errors\t%d\n", stats.Errors)
			fmt.Fprintf(tw, "groups\t%d\n", stats.Groups)
			return tw.Flush()
		}),
	}
}

func newErrorsCommand(a *app) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "errors JOB_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Show the errors recorded for a job",
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			job, err := a.store.GetJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
			}
			errs, err := a.store.GetJobErrors(cmd.Context(), job.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range errs {
				fmt.Fprintf(out, "%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Exception)
				if trace && e.Traceback != "" {
					fmt.Fprintln(out, e.Traceback)
				}
			}
			if len(errs) == 0 {
				fmt.Fprintf(out, "no errors recorded for %d: %s\n", job.ID, job.Name)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "include stack traces")
	return cmd
}

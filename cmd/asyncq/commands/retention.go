package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetentionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Args:  cobra.NoArgs,
		Short: "Manage the job that removes old jobs",
	}
	cmd.AddCommand(newRetentionEnsureCommand(a), newRetentionRunCommand(a))
	return cmd
}

func newRetentionEnsureCommand(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "ensure",
		Args:  cobra.NoArgs,
		Short: "Schedule the retention job now unless one is already pending",
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Retention.Days
			}
			job, created, err := a.retention.Ensure(cmd.Context(), days)
			if err != nil {
				return err
			}
			state := "already pending"
			if created {
				state = "scheduled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s %s\n", job.ID, job.Name, state)
			return nil
		}),
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days")
	return cmd
}

func newRetentionRunCommand(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "run",
		Args:  cobra.NoArgs,
		Short: "Remove old jobs immediately and reschedule the retention job",
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Retention.Days
			}
			res, err := a.retention.RemoveOldJobs(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d jobs, %d errors, %d groups older than %s\n",
				res.JobsDeleted, res.ErrorsDeleted, res.GroupsDeleted, res.Cutoff.Format("2006-01-02 15:04:05"))
			return nil
		}),
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days")
	return cmd
}

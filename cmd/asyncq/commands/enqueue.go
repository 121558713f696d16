package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdziat/simple-async-jobs/pkg/queue"
)

func newEnqueueCommand(a *app) *cobra.Command {
	var (
		priority int
		delay    time.Duration
		at       string
		group    uint
	)

	cmd := &cobra.Command{
		Use:   "enqueue NAME [ARGS_JSON]",
		Args:  cobra.RangeArgs(1, 2),
		Short: "Add a job to the queue",
		Example: `  asyncq enqueue emails.send '{"to":"ops@example.com"}' --priority 5
  asyncq enqueue reports.build --at 2024-03-01T09:00:00Z`,
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("args must be valid JSON: %s", args[1])
				}
				payload = raw
			}

			opts := []queue.Option{queue.Priority(priority)}
			if delay > 0 {
				opts = append(opts, queue.Delay(delay))
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				opts = append(opts, queue.At(t))
			}
			if group > 0 {
				opts = append(opts, queue.GroupID(group))
			}

			job, err := a.queue.Enqueue(cmd.Context(), args[0], payload, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatUint(uint64(job.ID), 10))
			return nil
		}),
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "job priority (higher runs first)")
	cmd.Flags().DurationVarP(&delay, "delay", "d", 0, "schedule the job this far in the future")
	cmd.Flags().StringVar(&at, "at", "", "schedule the job at an RFC 3339 time (overrides --delay)")
	cmd.Flags().UintVarP(&group, "group", "g", 0, "attach the job to an existing group id")
	return cmd
}

func newCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Cancel a pending job",
		RunE: a.withQueue(func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			job, err := a.queue.Cancel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d: %s\n", job.ID, job.Name)
			return nil
		}),
	}
}

func parseJobID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return uint(id), nil
}

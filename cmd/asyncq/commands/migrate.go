package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Args:  cobra.NoArgs,
		Short: "Create or update the jobs, job_errors and job_groups tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.Database.Open()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", a.cfg.Database.Driver)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *adminEnv) error {
				if err := env.dbs.AutoMigrateAll(); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", env.dbs.Driver())
				return nil
			})
		},
	}
}

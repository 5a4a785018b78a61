package main

import (
	"github.com/spf13/cobra"
	"github.com/yukikurage/annonest-api/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, log, err := bootstrap()
			if err != nil {
				return err
			}
			return database.Migrate(log)
		},
	}
}

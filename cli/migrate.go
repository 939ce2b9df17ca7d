package cli

import (
	"fmt"
	"ident_index_app_go/models"
	"ident_index_app_go/services"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.store()
			if err != nil {
				return err
			}
			all := models.All()
			if err := conn.WithContext(cmd.Context()).AutoMigrate(all...); err != nil {
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			return rootOpts.formatter(cmd).Success(
				fmt.Sprintf("Migrated %d tables", len(all)),
				map[string]int{"tables": len(all)},
			)
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the embedded reference code tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.store()
			if err != nil {
				return err
			}
			n, err := services.SeedReferenceData(conn.WithContext(cmd.Context()))
			if err != nil {
				return WrapExitError(ExitCommandError, "seed", err)
			}
			return rootOpts.formatter(cmd).Success(
				fmt.Sprintf("Seeded %d reference codes", n),
				map[string]int{"codes": n},
			)
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/educonnect/service-booking/internal/config"
	"github.com/educonnect/service-booking/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadPostgresEnv()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(e.cfg.DBConfig.DatabaseURL(), dir, e.log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadPostgresEnv()
			if err != nil {
				return err
			}
			if err := database.RollbackMigration(e.cfg.DBConfig.DatabaseURL(), dir, e.log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		},
	})

	return cmd
}

func loadPostgresEnv() (*env, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	if e.cfg.StoreDriver != config.StorePostgres {
		return nil, fmt.Errorf("migrations need BOOKING_STORE_DRIVER=postgres, got %q", e.cfg.StoreDriver)
	}
	return e, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/database"
	timeProvider "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Database.Driver != "postgres" {
				return errors.New("migrate requires database.driver=postgres")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			appLogger := newLogger(cfg)
			defer func() { _ = appLogger.Flush() }()

			manager := database.NewManager(database.CreateConfigFromViperConfig(cfg), appLogger, timeProvider.NewRealTimeProvider())
			if _, err := manager.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer manager.Close()

			migrations := manager.MigrationManager()
			if err := migrations.MigrateAll(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			version, err := migrations.GetCurrentVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %s\n", version)
			return nil
		},
	}
}

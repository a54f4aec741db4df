package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the side effect dispatcher and polling reconciler without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			appLogger := newLogger(cfg)
			a, err := newApp(ctx, cfg, appLogger)
			if err != nil {
				appLogger.Error("Failed to start engine", map[string]any{"error": err.Error()})
				_ = appLogger.Flush()
				return err
			}
			defer a.close()

			var wg sync.WaitGroup
			a.startWorkers(ctx, &wg)
			<-ctx.Done()
			wg.Wait()

			appLogger.Info("Workers exited gracefully", nil)
			return nil
		},
	}
}

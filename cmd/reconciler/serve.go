package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/routes"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		withWorkers bool
		migrate     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve webhook intake and the payment API, with background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg, withWorkers, migrate)
		},
	}

	cmd.Flags().BoolVar(&withWorkers, "workers", true, "run the dispatcher and polling reconciler in this process")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations before serving")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, withWorkers, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := newLogger(cfg)
	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to start engine", map[string]any{"error": err.Error()})
		_ = appLogger.Flush()
		return err
	}
	defer a.close()

	if migrate && a.db != nil {
		if err := a.db.MigrationManager().MigrateAll(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, routes.Handlers{
		Payment: handler.NewPaymentHandler(a.payments, appLogger),
		Webhook: handler.NewWebhookHandler(a.ingestor, appLogger),
		Report:  handler.NewReportHandler(a.reporter, appLogger),
		Health:  handler.NewHealthHandler(a.pinger),
	}, cfg.Webhook.MaxBodySize)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	var wg sync.WaitGroup
	if withWorkers {
		a.startWorkers(ctx, &wg)
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			stop()
			wg.Wait()
			return err
		}
	}

	appLogger.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
	}

	stop()
	wg.Wait()

	appLogger.Info("Server exited gracefully", nil)
	return nil
}

// startWorkers runs the dispatcher and the polling reconciler until ctx is cancelled
func (a *app) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.poller.Run(ctx)
	}()
}

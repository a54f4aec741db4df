package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/collaborator"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/dispatch"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/fulfillment"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/ledger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/polling"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/reconciliation"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/schedule"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/webhook"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/database"
	gatewayadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/lease"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/memory"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/notification"
	timeProvider "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/config"
	"github.com/google/uuid"
)

// app holds the wired engine for one process
type app struct {
	cfg    *config.Config
	logger core.Logger
	clock  core.TimeProvider
	owner  string

	db     *database.Manager // nil with the memory driver
	uow    persistence.UnitOfWork
	leases persistence.LeaseStore
	pinger handler.Pinger

	alerter    core.Alerter
	ledger     *ledger.Ledger
	payments   *ledger.PaymentService
	engine     *reconciliation.Engine
	ingestor   *webhook.Ingestor
	dispatcher *dispatch.Dispatcher
	poller     *polling.Reconciler
	reporter   *audit.Reporter

	closers []func() error
}

func newLogger(cfg *config.Config) core.Logger {
	return logger.NewZapLogger(cfg.Logger.Format, core.ParseLogLevel(cfg.Logger.Level))
}

// workerID names this process in task and scheduler leases
func workerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "reconciler"
	}
	return host + "-" + uuid.NewString()[:8]
}

// openStorage connects the configured persistence and lease backends
func openStorage(ctx context.Context, cfg *config.Config, log core.Logger, clock core.TimeProvider) (*app, error) {
	a := &app{cfg: cfg, logger: log, clock: clock, owner: workerID()}

	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore(clock)
		seedDemoReferences(store, log)
		a.uow = memory.NewUnitOfWork(store)
		a.leases = memory.NewLeaseStore(store)
	default:
		manager := database.NewManager(database.CreateConfigFromViperConfig(cfg), log, clock)
		if _, err := manager.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = manager
		a.pinger = manager
		a.uow = manager.CreateUnitOfWork()
		a.leases = manager.CreateLeaseStore()
		a.closers = append(a.closers, manager.Close)
	}

	if cfg.Scheduler.LeaseBackend == "redis" {
		client := lease.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.leases = lease.NewRedisLeaseStore(client, log)
		a.closers = append(a.closers, client.Close)
	}

	return a, nil
}

// newApp wires storage, adapters and use cases
func newApp(ctx context.Context, cfg *config.Config, log core.Logger) (*app, error) {
	clock := timeProvider.NewRealTimeProvider()
	a, err := openStorage(ctx, cfg, log, clock)
	if err != nil {
		return nil, err
	}

	var alerter core.Alerter = logger.NewLogAlerter(log, 100)
	if cfg.Alert.URL != "" {
		alerter = notification.NewWebhookAlerter(alerter, cfg.Alert.URL, cfg.Alert.Timeout, nil, clock, log)
	}
	a.alerter = alerter

	var notifier collaborator.Notifier = notification.NewLogNotifier(log)
	if cfg.Notification.URL != "" {
		notifier = notification.NewHTTPNotifier(cfg.Notification.URL, cfg.Notification.Timeout, nil, log)
	}

	paymentGateway := gatewayadapter.NewHTTPGateway(gatewayadapter.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	}, nil, log)

	recorder := audit.NewRecorder(a.uow, clock)
	a.reporter = audit.NewReporter(a.uow)
	a.ledger = ledger.NewLedger(a.uow, recorder, clock, log)
	a.payments = ledger.NewPaymentService(a.ledger, paymentGateway, clock, log, cfg.Gateway.Timeout)

	executor := fulfillment.NewExecutor(
		a.uow,
		fulfillment.NewTicketIssuer(a.uow, clock, cfg.Ticket.ImageBaseURL),
		fulfillment.NewInvoiceGenerator(a.uow, clock, fulfillment.Organization{
			Name:         cfg.Invoice.OrganizationName,
			TaxID:        cfg.Invoice.TaxID,
			NumberPrefix: cfg.Invoice.NumberPrefix,
		}),
		notifier,
		fulfillment.Templates{
			Registration: cfg.Notification.Templates["registration"],
			Donation:     cfg.Notification.Templates["donation"],
		},
	)

	a.dispatcher = dispatch.NewDispatcher(a.uow, executor, recorder, alerter, clock, log, dispatch.Config{
		Interval:      cfg.Dispatcher.Interval,
		BatchSize:     cfg.Dispatcher.BatchSize,
		Workers:       cfg.Dispatcher.Workers,
		MaxAttempts:   cfg.Dispatcher.MaxAttempts,
		LeaseTimeout:  cfg.Dispatcher.LeaseTimeout,
		EffectTimeout: cfg.Dispatcher.EffectTimeout,
		Backoff:       backoffPolicy(cfg.Dispatcher.InitialBackoff, cfg.Dispatcher.MaxBackoff),
	}, a.owner)

	a.engine = reconciliation.NewEngine(a.uow, a.ledger, recorder, a.dispatcher, alerter, clock, log, conflictRetries)
	a.ingestor = webhook.NewIngestor(providerRegistry(cfg, log), a.uow, a.engine, clock, log)

	a.poller = polling.NewReconciler(a.uow, paymentGateway, a.ingestor, a.engine, a.leases, recorder, alerter, clock, log, polling.Config{
		Interval:       cfg.Poller.Interval,
		GraceWindow:    cfg.Poller.GraceWindow,
		MaxStaleness:   cfg.Poller.MaxStaleness,
		GatewayTimeout: cfg.Gateway.Timeout,
		ReplayWindow:   cfg.Poller.ReplayWindow,
		BatchSize:      cfg.Poller.BatchSize,
		Backoff:        backoffPolicy(cfg.Poller.InitialBackoff, cfg.Poller.MaxBackoff),
		LeaseTTL:       cfg.Scheduler.LeaseTTL,
	}, a.owner)

	log.Info("Engine wired", map[string]any{
		"owner":         a.owner,
		"driver":        cfg.Database.Driver,
		"lease_backend": cfg.Scheduler.LeaseBackend,
		"providers":     len(cfg.Webhook.Secrets),
	})
	return a, nil
}

// conflictRetries bounds re-reads after a lost compare-and-set
const conflictRetries = 3

func backoffPolicy(initial, maxDelay time.Duration) schedule.Policy {
	return schedule.Policy{Initial: initial, Max: maxDelay, Multiplier: 2, Jitter: 0.1}
}

// providerRegistry enables one adapter per configured shared secret
func providerRegistry(cfg *config.Config, log core.Logger) webhook.Registry {
	var providers []webhook.Provider
	for name, secret := range cfg.Webhook.Secrets {
		if secret == "" {
			continue
		}
		switch name {
		case "generic":
			providers = append(providers, webhook.NewGenericProvider(secret))
		case "razorpay":
			providers = append(providers, webhook.NewRazorpayProvider(secret))
		default:
			log.Warn("Ignoring secret for unsupported webhook provider", map[string]any{"provider": name})
		}
	}
	return webhook.NewRegistry(providers...)
}

// seedDemoReferences gives the memory driver something to pay for
func seedDemoReferences(store *memory.Store, log core.Logger) {
	store.SeedReference(entity.PaymentReference{
		Type:        entity.ReferenceRegistration,
		ID:          "reg-demo",
		PayerName:   "Demo Attendee",
		PayerEmail:  "attendee@example.com",
		Description: "Demo Event Registration",
	})
	store.SeedReference(entity.PaymentReference{
		Type:        entity.ReferenceDonation,
		ID:          "don-demo",
		PayerName:   "Demo Donor",
		PayerEmail:  "donor@example.com",
		Description: "Demo Donation",
	})
	log.Info("Memory store seeded with demo references", map[string]any{
		"registration": "reg-demo",
		"donation":     "don-demo",
	})
}

// close releases connections in reverse order of opening
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", map[string]any{"error": err.Error()})
		}
	}
	a.closers = nil
	_ = a.logger.Flush()
}

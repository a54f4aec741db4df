package polling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/reconciliation"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/schedule"
)

// Submitter records a synthesized event and reconciles it through the ingestion path
type Submitter interface {
	Submit(ctx context.Context, event entity.NormalizedEvent, raw []byte) (*usecase.IngestResult, error)
}

// Applier re-applies an already recorded event
type Applier interface {
	Apply(ctx context.Context, eventID string, event entity.NormalizedEvent) (*reconciliation.Result, error)
}

// Config tunes the polling reconciler
type Config struct {
	Interval       time.Duration
	GraceWindow    time.Duration
	MaxStaleness   time.Duration
	GatewayTimeout time.Duration
	ReplayWindow   time.Duration
	BatchSize      int
	Backoff        schedule.Policy
	LeaseName      string
	LeaseTTL       time.Duration
}

// SweepSummary counts what one sweep did
type SweepSummary struct {
	LeaseHeld    bool // another worker owns the sweep lease; nothing was done
	LeaseLost    bool // the lease could not be renewed mid-sweep; the rest was left to its new holder
	Polled       int
	Reconciled   int
	StillPending int
	Flagged      int
	Errors       int
	Replayed     int
}

// Reconciler recovers transactions whose notification never arrived by asking the gateway directly
type Reconciler struct {
	uow       persistence.UnitOfWork
	gateway   gateway.PaymentGateway
	submitter Submitter
	applier   Applier
	leases    persistence.LeaseStore
	recorder  *audit.Recorder
	alerter   coreport.Alerter
	clock     coreport.TimeProvider
	logger    coreport.Logger
	cfg       Config
	owner     string
}

// NewReconciler creates a polling reconciler identified by owner in the sweep lease
func NewReconciler(
	uow persistence.UnitOfWork,
	paymentGateway gateway.PaymentGateway,
	submitter Submitter,
	applier Applier,
	leases persistence.LeaseStore,
	recorder *audit.Recorder,
	alerter coreport.Alerter,
	clock coreport.TimeProvider,
	logger coreport.Logger,
	cfg Config,
	owner string,
) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LeaseName == "" {
		cfg.LeaseName = "polling-reconciler"
	}
	return &Reconciler{
		uow:       uow,
		gateway:   paymentGateway,
		submitter: submitter,
		applier:   applier,
		leases:    leases,
		recorder:  recorder,
		alerter:   alerter,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
		owner:     owner,
	}
}

// Sweep runs one polling pass under the sweep lease
func (r *Reconciler) Sweep(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary

	acquired, err := r.leases.Acquire(ctx, r.cfg.LeaseName, r.owner, r.cfg.LeaseTTL)
	if err != nil {
		return summary, fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	if !acquired {
		summary.LeaseHeld = true
		r.logger.Debug("Sweep lease held by another worker", map[string]any{"lease": r.cfg.LeaseName})
		return summary, nil
	}
	defer func() {
		if err := r.leases.Release(context.WithoutCancel(ctx), r.cfg.LeaseName, r.owner); err != nil {
			r.logger.Warn("Failed to release sweep lease", map[string]any{"error": err.Error()})
		}
	}()

	now := r.clock.Now()
	due, err := r.uow.GetTransactionRepository(ctx).FindDueForPolling(ctx, now.Add(-r.cfg.GraceWindow), now, r.cfg.BatchSize)
	if err != nil {
		return summary, fmt.Errorf("failed to find pending transactions: %w", err)
	}

	for _, txn := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if !r.renewLease(ctx, &summary) {
			return summary, nil
		}
		r.pollOne(ctx, txn, &summary)
	}

	if err := r.replayStuck(ctx, &summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// renewLease extends the sweep lease before the next item and reports whether this worker still holds it
func (r *Reconciler) renewLease(ctx context.Context, summary *SweepSummary) bool {
	held, err := r.leases.Acquire(ctx, r.cfg.LeaseName, r.owner, r.cfg.LeaseTTL)
	if err == nil && held {
		return true
	}
	fields := map[string]any{"lease": r.cfg.LeaseName, "owner": r.owner}
	if err != nil {
		fields["error"] = err.Error()
	}
	r.logger.Warn("Sweep lease lost, stopping sweep", fields)
	summary.LeaseLost = true
	return false
}

// pollOne queries the gateway for one stuck transaction
func (r *Reconciler) pollOne(ctx context.Context, txn *entity.PaymentTransaction, summary *SweepSummary) {
	now := r.clock.Now()
	fields := txn.LogFields()
	fields["poll_attempts"] = txn.PollAttempts

	if now.Sub(txn.InitiatedAt) > r.cfg.MaxStaleness {
		if err := r.flag(ctx, txn); err != nil {
			summary.Errors++
			fields["error"] = err.Error()
			r.logger.Error("Failed to flag stale transaction", fields)
			return
		}
		summary.Flagged++
		return
	}

	if txn.GatewayOrderRef == "" {
		summary.StillPending++
		r.reschedule(ctx, txn, fields)
		return
	}

	summary.Polled++
	callCtx, cancel := r.clock.WithTimeout(ctx, r.cfg.GatewayTimeout)
	status, err := r.gateway.QueryOrder(callCtx, txn.GatewayOrderRef)
	cancel()
	if err != nil {
		summary.Errors++
		fields["error"] = err.Error()
		r.logger.Warn("Gateway query failed", fields)
		r.reschedule(ctx, txn, fields)
		return
	}

	if entity.IsPendingGatewayStatus(status.Status) {
		summary.StillPending++
		fields["gateway_status"] = status.Status
		r.logger.Debug("Transaction still pending at gateway", fields)
		r.reschedule(ctx, txn, fields)
		return
	}

	if err := r.recorder.Record(ctx, audit.Entry{
		TransactionID: txn.ID,
		Kind:          entity.AuditPoll,
		Action:        "query",
		Outcome:       status.Status,
		Details: map[string]string{
			"gateway_order_ref": txn.GatewayOrderRef,
			"poll_attempt":      fmt.Sprintf("%d", txn.PollAttempts+1),
		},
	}); err != nil {
		r.logger.Warn("Failed to audit poll result", fields)
	}

	event := entity.NormalizedEvent{
		Provider:          entity.PollerProvider,
		ProviderEventID:   entity.PollEventID(txn.GatewayOrderRef, status.Status),
		EventType:         "poll." + status.Status,
		GatewayOrderRef:   txn.GatewayOrderRef,
		GatewayPaymentRef: status.PaymentRef,
		AmountMinor:       status.AmountMinor,
		Currency:          status.Currency,
		Status:            status.Status,
		Source:            entity.SourcePoll,
	}
	raw, _ := json.Marshal(status)

	result, err := r.submitter.Submit(ctx, event, raw)
	if err != nil {
		summary.Errors++
		fields["error"] = err.Error()
		r.logger.Error("Failed to submit poll event", fields)
		r.reschedule(ctx, txn, fields)
		return
	}

	if result.Outcome == string(reconciliation.OutcomeProcessed) {
		summary.Reconciled++
		fields["gateway_status"] = status.Status
		r.logger.Info("Transaction recovered by polling", fields)
	}
	// A transaction left PENDING (quarantined, deferred or duplicate poll event) backs off like any other
	r.reschedule(ctx, txn, fields)
}

func (r *Reconciler) reschedule(ctx context.Context, txn *entity.PaymentTransaction, fields map[string]any) {
	attempts := txn.PollAttempts + 1
	next := r.clock.Now().Add(r.cfg.Backoff.Delay(attempts))
	if err := r.uow.GetTransactionRepository(ctx).SchedulePoll(ctx, txn.ID, attempts, next); err != nil {
		fields["error"] = err.Error()
		r.logger.Error("Failed to schedule next poll", fields)
	}
}

// flag marks a transaction pending beyond the maximum staleness for manual intervention
func (r *Reconciler) flag(ctx context.Context, txn *entity.PaymentTransaction) (err error) {
	txCtx, err := r.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.uow.Rollback(txCtx)
		}
	}()

	flagged, err := r.uow.GetTransactionRepository(txCtx).FlagManualReview(txCtx, txn.ID, r.clock.Now())
	if err != nil {
		return err
	}
	if !flagged {
		return r.uow.Commit(txCtx)
	}

	age := r.clock.Now().Sub(txn.InitiatedAt).Round(time.Second)
	if err = r.recorder.Record(txCtx, audit.Entry{
		TransactionID: txn.ID,
		Kind:          entity.AuditManualReview,
		Action:        "flag",
		Outcome:       "manual_review",
		Reason:        fmt.Sprintf("pending for %s, beyond max staleness %s", age, r.cfg.MaxStaleness),
		Details: map[string]string{
			"gateway_order_ref": txn.GatewayOrderRef,
			"poll_attempts":     fmt.Sprintf("%d", txn.PollAttempts),
		},
	}); err != nil {
		return err
	}
	if err = r.uow.Commit(txCtx); err != nil {
		return err
	}

	fields := txn.LogFields()
	fields["age"] = age.String()
	fields["poll_attempts"] = txn.PollAttempts
	r.alerter.Raise(ctx, coreport.Alert{
		Kind:          "manual_intervention",
		Severity:      coreport.AlertWarning,
		TransactionID: txn.ID,
		Message:       "Transaction pending beyond maximum staleness, polling stopped",
		Fields:        fields,
	})
	return nil
}

// replayStuck re-applies events left RECEIVED after a crash or a transient failure
func (r *Reconciler) replayStuck(ctx context.Context, summary *SweepSummary) error {
	cutoff := r.clock.Now().Add(-r.cfg.ReplayWindow)
	events, err := r.uow.GetWebhookEventRepository(ctx).FindStuckReceived(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to find stuck events: %w", err)
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !r.renewLease(ctx, summary) {
			return nil
		}
		result, err := r.applier.Apply(ctx, event.ID, event.Normalized(entity.SourceReplay))
		if err != nil {
			summary.Errors++
			r.logger.Warn("Replay of stuck event failed", map[string]any{
				"event_id": event.ID,
				"error":    err.Error(),
			})
			continue
		}
		summary.Replayed++
		r.logger.Info("Stuck event replayed", map[string]any{
			"event_id":          event.ID,
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
			"outcome":           string(result.Outcome),
		})
	}
	return nil
}

// Run sweeps every interval until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("Polling reconciler started", map[string]any{
		"owner":        r.owner,
		"interval":     r.cfg.Interval.String(),
		"grace_window": r.cfg.GraceWindow.String(),
	})
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		summary, err := r.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("Polling sweep failed", map[string]any{"error": err.Error()})
		} else if !summary.LeaseHeld && (summary.Polled > 0 || summary.Replayed > 0 || summary.Flagged > 0) {
			r.logger.Info("Polling sweep finished", map[string]any{
				"polled":        summary.Polled,
				"reconciled":    summary.Reconciled,
				"still_pending": summary.StillPending,
				"flagged":       summary.Flagged,
				"replayed":      summary.Replayed,
				"errors":        summary.Errors,
				"lease_lost":    summary.LeaseLost,
			})
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Polling reconciler stopped", map[string]any{"owner": r.owner})
			return
		case <-ticker.C:
		}
	}
}

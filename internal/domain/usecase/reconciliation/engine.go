package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/ledger"
)

const (
	reasonAlreadyApplied = "already applied"
	reasonLateDelivery   = "late/duplicate delivery"
	reasonSuperseded     = "reference belongs to another transaction"
)

// Enqueuer schedules the side effects of a completed transaction.
// It must be idempotent and must use the unit of work carried by ctx.
type Enqueuer interface {
	Enqueue(ctx context.Context, transactionID string, effects []entity.EffectType) (int, error)
}

// Engine applies normalized gateway events to transactions and their referenced entities.
// It is the single application point for webhook, poll and replay events.
type Engine struct {
	uow             persistence.UnitOfWork
	ledger          *ledger.Ledger
	recorder        *audit.Recorder
	enqueuer        Enqueuer
	alerter         coreport.Alerter
	clock           coreport.TimeProvider
	logger          coreport.Logger
	conflictRetries int
}

// NewEngine creates a reconciliation engine
func NewEngine(
	uow persistence.UnitOfWork,
	transactionLedger *ledger.Ledger,
	recorder *audit.Recorder,
	enqueuer Enqueuer,
	alerter coreport.Alerter,
	clock coreport.TimeProvider,
	logger coreport.Logger,
	conflictRetries int,
) *Engine {
	if conflictRetries <= 0 {
		conflictRetries = 3
	}
	return &Engine{
		uow:             uow,
		ledger:          transactionLedger,
		recorder:        recorder,
		enqueuer:        enqueuer,
		alerter:         alerter,
		clock:           clock,
		logger:          logger,
		conflictRetries: conflictRetries,
	}
}

// Apply reconciles the event recorded as eventID. The returned Result is the decision;
// a non-nil error means the event could not be decided (storage failure, persistent conflict)
// and stays RECEIVED for a later replay.
func (e *Engine) Apply(ctx context.Context, eventID string, event entity.NormalizedEvent) (*Result, error) {
	txn, err := e.ledger.FindByGatewayOrder(ctx, event.GatewayOrderRef)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			return e.quarantine(ctx, eventID, nil, event, errs.ErrUnknownReference,
				fmt.Sprintf("no transaction for gateway order %q", event.GatewayOrderRef))
		}
		return nil, fmt.Errorf("failed to resolve gateway order: %w", err)
	}

	if !txn.Matches(event.AmountMinor, event.Currency) {
		return e.quarantine(ctx, eventID, txn, event, errs.ErrAmountMismatch,
			fmt.Sprintf("reported %s %s, expected %s %s",
				entity.FormatMinorUnits(event.AmountMinor), event.Currency, txn.Amount(), txn.Currency))
	}

	target, ok := entity.TargetStatus(event.EventType, event.Status)
	if !ok {
		return e.resolve(ctx, eventID, txn, event, OutcomeIgnored,
			fmt.Sprintf("non-terminal gateway status %q", event.Status), false)
	}

	conflicted := false
	for attempt := 0; attempt <= e.conflictRetries; attempt++ {
		switch {
		case txn.Status == target:
			return e.resolve(ctx, eventID, txn, event, OutcomeProcessed, reasonAlreadyApplied, target == entity.StatusCompleted)

		case conflicted && txn.Status.IsTerminal() && !entity.CanTransition(txn.Status, target):
			return e.resolve(ctx, eventID, txn, event, OutcomeIgnored, reasonLateDelivery, false)

		case supersedes(txn.Status, target):
			return e.resolve(ctx, eventID, txn, event, OutcomeIgnored, reasonLateDelivery, false)

		case !entity.CanTransition(txn.Status, target):
			return e.quarantine(ctx, eventID, txn, event, errs.ErrInvalidTransition,
				fmt.Sprintf("%s -> %s is not allowed", txn.Status, target))
		}

		result, err := e.transition(ctx, eventID, txn, target, event)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, errs.ErrTransitionConflict) {
			return nil, err
		}

		conflicted = true
		e.logger.Debug("Transition conflict, re-reading transaction", map[string]any{
			"transaction_id": txn.ID,
			"attempt":        attempt + 1,
			"target":         string(target),
		})
		if txn, err = e.ledger.Get(ctx, txn.ID); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: transaction %s still contended after %d re-reads",
		errs.ErrTransitionConflict, txn.ID, e.conflictRetries)
}

// supersedes reports whether current was reached by passing through target,
// which makes an event asking for target a late delivery
func supersedes(current, target entity.TransactionStatus) bool {
	return current == entity.StatusRefunded && target == entity.StatusCompleted
}

// transition performs the status change, the referenced entity update, the event resolution
// and, for completions, the side effect enqueue as one unit of work
func (e *Engine) transition(ctx context.Context, eventID string, txn *entity.PaymentTransaction, target entity.TransactionStatus, event entity.NormalizedEvent) (result *Result, err error) {
	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = e.uow.Rollback(txCtx)
		}
	}()

	from := txn.Status
	if err = e.ledger.Transition(txCtx, txn.ID, from, target, event.GatewayPaymentRef); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	owned, err := e.uow.GetReferenceRepository(txCtx).UpdatePaymentStatus(txCtx, txn.ReferenceType, txn.ReferenceID, txn.ID, target, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update referenced entity: %w", err)
	}
	reason := ""
	if !owned {
		reason = reasonSuperseded
	}
	if _, err = e.uow.GetWebhookEventRepository(txCtx).Resolve(txCtx, eventID, entity.EventProcessed, txn.ID, reason, now); err != nil {
		return nil, fmt.Errorf("failed to resolve webhook event: %w", err)
	}
	if err = e.recorder.Record(txCtx, ingestionEntry(txn.ID, eventID, event, OutcomeProcessed, reason)); err != nil {
		return nil, err
	}
	if target == entity.StatusCompleted && owned {
		if _, err = e.enqueuer.Enqueue(txCtx, txn.ID, entity.EffectsFor(txn.ReferenceType)); err != nil {
			return nil, fmt.Errorf("failed to enqueue side effects: %w", err)
		}
	}
	if err = e.uow.Commit(txCtx); err != nil {
		return nil, err
	}

	updated, err := e.ledger.Get(ctx, txn.ID)
	if err != nil {
		return nil, err
	}

	fields := updated.LogFields()
	fields["from"] = string(from)
	fields["provider_event_id"] = event.ProviderEventID
	fields["source"] = string(event.Source)
	e.logger.Info("Transaction reconciled", fields)
	if !owned {
		e.superseded(ctx, updated, event)
	}

	return &Result{Outcome: OutcomeProcessed, Transaction: updated, Applied: true, Reason: reason}, nil
}

// superseded reports an outcome that moved a transaction whose registration or donation
// now belongs to another transaction. A completion there means the payer was charged twice.
func (e *Engine) superseded(ctx context.Context, txn *entity.PaymentTransaction, event entity.NormalizedEvent) {
	fields := txn.LogFields()
	fields["provider_event_id"] = event.ProviderEventID
	fields["reference_type"] = string(txn.ReferenceType)
	fields["reference_id"] = txn.ReferenceID

	alert := coreport.Alert{
		Kind:          "reference_superseded",
		Severity:      coreport.AlertWarning,
		TransactionID: txn.ID,
		Message:       "Outcome recorded on a transaction its reference no longer points to",
		Fields:        fields,
	}
	if txn.Status == entity.StatusCompleted {
		alert.Kind = "duplicate_payment"
		alert.Severity = coreport.AlertCritical
		alert.Message = "Payment completed for a reference already paid by another transaction"
	}
	e.alerter.Raise(ctx, alert)
}

// resolve records a PROCESSED or IGNORED decision that does not move the transaction.
// ensureEffects re-enqueues side effects of an already completed transaction; enqueue is idempotent.
func (e *Engine) resolve(ctx context.Context, eventID string, txn *entity.PaymentTransaction, event entity.NormalizedEvent, outcome Outcome, reason string, ensureEffects bool) (result *Result, err error) {
	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = e.uow.Rollback(txCtx)
		}
	}()

	result = &Result{Outcome: outcome, Transaction: txn, Reason: reason}
	if _, err = e.uow.GetWebhookEventRepository(txCtx).Resolve(txCtx, eventID, result.EventStatus(), txn.ID, reason, e.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to resolve webhook event: %w", err)
	}
	if err = e.recorder.Record(txCtx, ingestionEntry(txn.ID, eventID, event, outcome, reason)); err != nil {
		return nil, err
	}
	if ensureEffects {
		ensureEffects, err = e.ownsReference(txCtx, txn)
		if err != nil {
			return nil, err
		}
	}
	if ensureEffects {
		if _, err = e.enqueuer.Enqueue(txCtx, txn.ID, entity.EffectsFor(txn.ReferenceType)); err != nil {
			return nil, fmt.Errorf("failed to enqueue side effects: %w", err)
		}
	}
	if err = e.uow.Commit(txCtx); err != nil {
		return nil, err
	}

	fields := event.LogFields()
	fields["transaction_id"] = txn.ID
	fields["outcome"] = string(outcome)
	fields["reason"] = reason
	if outcome == OutcomeIgnored {
		e.logger.Warn("Event ignored", fields)
	} else {
		e.logger.Info("Event already applied", fields)
	}
	return result, nil
}

// ownsReference reports whether the registration or donation still points at txn
func (e *Engine) ownsReference(ctx context.Context, txn *entity.PaymentTransaction) (bool, error) {
	ref, err := e.uow.GetReferenceRepository(ctx).Get(ctx, txn.ReferenceType, txn.ReferenceID)
	if err != nil {
		return false, fmt.Errorf("failed to read referenced entity: %w", err)
	}
	return ref.PaymentTransactionID == txn.ID, nil
}

// quarantine marks the event FAILED with its reason, leaves the transaction untouched and alerts
func (e *Engine) quarantine(ctx context.Context, eventID string, txn *entity.PaymentTransaction, event entity.NormalizedEvent, cause error, reason string) (result *Result, err error) {
	transactionID := ""
	if txn != nil {
		transactionID = txn.ID
	}
	recErr := errs.NewReconciliationError(transactionID, event.Provider, event.ProviderEventID, event.GatewayOrderRef, reason, cause)

	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = e.uow.Rollback(txCtx)
		}
	}()

	if _, err = e.uow.GetWebhookEventRepository(txCtx).Resolve(txCtx, eventID, entity.EventFailed, transactionID, recErr.Error(), e.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to quarantine webhook event: %w", err)
	}
	if err = e.recorder.Record(txCtx, ingestionEntry(transactionID, eventID, event, OutcomeFailed, reason)); err != nil {
		return nil, err
	}
	if err = e.uow.Commit(txCtx); err != nil {
		return nil, err
	}

	var detailed *errs.ReconciliationError
	fields := map[string]any{}
	if errors.As(recErr, &detailed) {
		fields = detailed.LogFields()
	}
	fields["amount_minor"] = event.AmountMinor
	fields["currency"] = event.Currency
	fields["gateway_status"] = event.Status
	fields["source"] = string(event.Source)

	e.alerter.Raise(ctx, coreport.Alert{
		Kind:          alertKind(cause),
		Severity:      coreport.AlertCritical,
		TransactionID: transactionID,
		Message:       "Webhook event quarantined for manual review",
		Fields:        fields,
	})

	return &Result{Outcome: OutcomeFailed, Transaction: txn, Reason: reason, Err: recErr}, nil
}

func alertKind(cause error) string {
	switch {
	case errors.Is(cause, errs.ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(cause, errs.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(cause, errs.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "reconciliation_failure"
	}
}

func ingestionEntry(transactionID, eventID string, event entity.NormalizedEvent, outcome Outcome, reason string) audit.Entry {
	return audit.Entry{
		TransactionID: transactionID,
		Kind:          entity.AuditIngestion,
		Action:        "apply_event",
		Outcome:       string(outcome),
		Reason:        reason,
		Details: map[string]string{
			"event_id":          eventID,
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
			"event_type":        event.EventType,
			"gateway_order_ref": event.GatewayOrderRef,
			"gateway_status":    event.Status,
			"amount":            entity.FormatMinorUnits(event.AmountMinor),
			"currency":          event.Currency,
			"source":            string(event.Source),
		},
	}
}

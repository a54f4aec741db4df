package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/schedule"
)

// Executor performs the external call behind a side effect. Implementations must be
// idempotent per (transactionId, effectType): a lease can expire mid-call and the
// task is then executed again by another worker.
type Executor interface {
	Execute(ctx context.Context, task *entity.SideEffectTask) error
}

// Config tunes the dispatcher
type Config struct {
	Interval      time.Duration
	BatchSize     int
	Workers       int
	MaxAttempts   int
	LeaseTimeout  time.Duration
	EffectTimeout time.Duration
	Backoff       schedule.Policy
}

// RunSummary counts what one RunPending pass did
type RunSummary struct {
	Claimed     int
	Done        int
	Rescheduled int
	Failed      int
	Skipped     int // lost the claim to another worker
}

// Dispatcher runs side effects exactly once per (transactionId, effectType) at the observable level
type Dispatcher struct {
	uow      persistence.UnitOfWork
	executor Executor
	recorder *audit.Recorder
	alerter  coreport.Alerter
	clock    coreport.TimeProvider
	logger   coreport.Logger
	cfg      Config
	owner    string
}

// NewDispatcher creates a dispatcher identified by owner in task leases
func NewDispatcher(
	uow persistence.UnitOfWork,
	executor Executor,
	recorder *audit.Recorder,
	alerter coreport.Alerter,
	clock coreport.TimeProvider,
	logger coreport.Logger,
	cfg Config,
	owner string,
) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Dispatcher{
		uow:      uow,
		executor: executor,
		recorder: recorder,
		alerter:  alerter,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
		owner:    owner,
	}
}

// Enqueue creates one PENDING task per effect type unless the (transactionId, effectType)
// task already exists. It uses the unit of work carried by ctx and returns how many were created.
func (d *Dispatcher) Enqueue(ctx context.Context, transactionID string, effects []entity.EffectType) (int, error) {
	repo := d.uow.GetSideEffectRepository(ctx)
	now := d.clock.Now()

	created := 0
	for _, effect := range effects {
		ok, err := repo.CreateIfAbsent(ctx, entity.NewSideEffectTask(transactionID, effect, now))
		if err != nil {
			return created, fmt.Errorf("failed to enqueue %s: %w", effect, err)
		}
		if ok {
			created++
		}
	}

	if created > 0 {
		d.logger.Info("Side effects enqueued", map[string]any{
			"transaction_id": transactionID,
			"created":        created,
		})
	}
	return created, nil
}

// RunPending claims due tasks and executes them with the configured worker count
func (d *Dispatcher) RunPending(ctx context.Context) (RunSummary, error) {
	tasks, err := d.uow.GetSideEffectRepository(ctx).FindClaimable(ctx, d.clock.Now(), d.cfg.BatchSize)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to find claimable tasks: %w", err)
	}
	if len(tasks) == 0 {
		return RunSummary{}, nil
	}

	var (
		mu       sync.Mutex
		summary  RunSummary
		firstErr error
		wg       sync.WaitGroup
	)
	queue := make(chan *entity.SideEffectTask)

	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				outcome, err := d.runTask(ctx, task)
				mu.Lock()
				switch outcome {
				case entity.TaskDone:
					summary.Claimed++
					summary.Done++
				case entity.TaskPending:
					summary.Claimed++
					summary.Rescheduled++
				case entity.TaskFailed:
					summary.Claimed++
					summary.Failed++
				default:
					summary.Skipped++
				}
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		queue <- task
	}
	close(queue)
	wg.Wait()

	return summary, firstErr
}

// Run executes RunPending every interval until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Side effect dispatcher started", map[string]any{
		"owner":    d.owner,
		"interval": d.cfg.Interval.String(),
		"workers":  d.cfg.Workers,
	})
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		summary, err := d.RunPending(ctx)
		if err != nil {
			d.logger.Error("Side effect pass failed", map[string]any{"error": err.Error()})
		} else if summary.Claimed > 0 {
			d.logger.Debug("Side effect pass finished", map[string]any{
				"claimed":     summary.Claimed,
				"done":        summary.Done,
				"rescheduled": summary.Rescheduled,
				"failed":      summary.Failed,
				"skipped":     summary.Skipped,
			})
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Side effect dispatcher stopped", map[string]any{"owner": d.owner})
			return
		case <-ticker.C:
		}
	}
}

// runTask claims one task and drives it to DONE, back to PENDING or to FAILED.
// An empty status means the claim was lost.
func (d *Dispatcher) runTask(ctx context.Context, task *entity.SideEffectTask) (entity.TaskStatus, error) {
	repo := d.uow.GetSideEffectRepository(ctx)
	now := d.clock.Now()

	claimed, err := repo.Claim(ctx, task, d.owner, now, now.Add(d.cfg.LeaseTimeout))
	if err != nil {
		return "", fmt.Errorf("failed to claim task %s: %w", task.ID, err)
	}
	if !claimed {
		return "", nil
	}
	attempt := task.AttemptCount + 1

	fields := task.LogFields()
	fields["attempt_count"] = attempt
	fields["owner"] = d.owner

	callCtx, cancel := d.clock.WithTimeout(ctx, d.cfg.EffectTimeout)
	execErr := d.executor.Execute(callCtx, task)
	if execErr != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		execErr = fmt.Errorf("%w: effect timed out after %s: %v", errs.ErrTransientCollaborator, d.cfg.EffectTimeout, execErr)
	}
	cancel()

	now = d.clock.Now()
	if execErr == nil {
		done, err := repo.Complete(ctx, task.ID, d.owner, now)
		if err != nil {
			return "", fmt.Errorf("failed to complete task %s: %w", task.ID, err)
		}
		if !done {
			// Lease expired during the call and another worker took over; its run owns the outcome
			d.logger.Warn("Side effect lease lost before completion", fields)
			return "", nil
		}
		d.logger.Info("Side effect done", fields)
		return entity.TaskDone, d.record(ctx, task, "DONE", "", attempt)
	}

	fields["error"] = execErr.Error()
	if attempt < d.cfg.MaxAttempts {
		next := now.Add(d.cfg.Backoff.Delay(attempt))
		ok, err := repo.Reschedule(ctx, task.ID, d.owner, execErr.Error(), next, now)
		if err != nil {
			return "", fmt.Errorf("failed to reschedule task %s: %w", task.ID, err)
		}
		if !ok {
			return "", nil
		}
		fields["next_attempt_at"] = next
		d.logger.Warn("Side effect failed, retry scheduled", fields)
		return entity.TaskPending, d.record(ctx, task, "RETRY", execErr.Error(), attempt)
	}

	ok, err := repo.Fail(ctx, task.ID, d.owner, execErr.Error(), now)
	if err != nil {
		return "", fmt.Errorf("failed to fail task %s: %w", task.ID, err)
	}
	if !ok {
		return "", nil
	}

	d.alerter.Raise(ctx, coreport.Alert{
		Kind:          "side_effect_failed",
		Severity:      coreport.AlertCritical,
		TransactionID: task.TransactionID,
		Message:       fmt.Sprintf("Side effect %s exhausted %d attempts", task.EffectType, d.cfg.MaxAttempts),
		Fields:        fields,
	})
	reason := fmt.Errorf("%w: %v", errs.ErrMaxAttemptsExceeded, execErr).Error()
	return entity.TaskFailed, d.record(ctx, task, "FAILED", reason, attempt)
}

func (d *Dispatcher) record(ctx context.Context, task *entity.SideEffectTask, outcome, reason string, attempt int) error {
	return d.recorder.Record(ctx, audit.Entry{
		TransactionID: task.TransactionID,
		Kind:          entity.AuditSideEffect,
		Action:        string(task.EffectType),
		Outcome:       outcome,
		Reason:        reason,
		Details: map[string]string{
			"task_id":       task.ID,
			"attempt_count": fmt.Sprintf("%d", attempt),
			"owner":         d.owner,
		},
	})
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// EffectType names a downstream action run once per completed transaction
type EffectType string

// Effect types
const (
	EffectTicketIssuance           EffectType = "TICKET_ISSUANCE"
	EffectInvoiceGeneration        EffectType = "INVOICE_GENERATION"
	EffectConfirmationNotification EffectType = "CONFIRMATION_NOTIFICATION"
)

// TaskStatus is the execution state of a side effect task
type TaskStatus string

// TaskStatus constants
const (
	TaskPending TaskStatus = "PENDING"
	TaskRunning TaskStatus = "RUNNING"
	TaskDone    TaskStatus = "DONE"
	TaskFailed  TaskStatus = "FAILED"
)

// EffectsFor returns the side effects owed to a completed transaction of the given reference type.
// Tickets only exist for registrations.
func EffectsFor(referenceType ReferenceType) []EffectType {
	if referenceType == ReferenceRegistration {
		return []EffectType{EffectTicketIssuance, EffectInvoiceGeneration, EffectConfirmationNotification}
	}
	return []EffectType{EffectInvoiceGeneration, EffectConfirmationNotification}
}

// SideEffectTask is identified by (TransactionID, EffectType); at most one ever reaches DONE
type SideEffectTask struct {
	ID             string
	TransactionID  string
	EffectType     EffectType
	Status         TaskStatus
	AttemptCount   int
	LastError      string
	LastAttemptAt  *time.Time
	NextAttemptAt  time.Time
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// NewSideEffectTask creates a PENDING task due immediately
func NewSideEffectTask(transactionID string, effectType EffectType, now time.Time) *SideEffectTask {
	return &SideEffectTask{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		EffectType:    effectType,
		Status:        TaskPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Claimable reports whether a worker may claim the task at now.
// A RUNNING task whose lease expired is treated as PENDING again.
func (t *SideEffectTask) Claimable(now time.Time) bool {
	switch t.Status {
	case TaskPending:
		return !t.NextAttemptAt.After(now)
	case TaskRunning:
		return t.LeaseExpiresAt != nil && !t.LeaseExpiresAt.After(now)
	}
	return false
}

// LogFields returns identifying fields for structured logging
func (t *SideEffectTask) LogFields() map[string]any {
	return map[string]any{
		"task_id":        t.ID,
		"transaction_id": t.TransactionID,
		"effect_type":    string(t.EffectType),
		"task_status":    string(t.Status),
		"attempt_count":  t.AttemptCount,
	}
}

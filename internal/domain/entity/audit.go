package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind groups audit records by the decision they describe
type AuditKind string

// Audit kinds
const (
	AuditTransition   AuditKind = "TRANSITION"
	AuditIngestion    AuditKind = "INGESTION"
	AuditSideEffect   AuditKind = "SIDE_EFFECT"
	AuditPoll         AuditKind = "POLL"
	AuditManualReview AuditKind = "MANUAL_REVIEW"
)

// AuditRecord is an append-only entry keyed by transaction id and timestamp
type AuditRecord struct {
	ID            string
	TransactionID string // empty when the event could not be resolved
	Kind          AuditKind
	Action        string
	Outcome       string
	Reason        string
	Details       map[string]string
	CreatedAt     time.Time
}

// NewAuditRecord stamps a new record
func NewAuditRecord(transactionID string, kind AuditKind, action, outcome, reason string, details map[string]string, now time.Time) *AuditRecord {
	return &AuditRecord{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Kind:          kind,
		Action:        action,
		Outcome:       outcome,
		Reason:        reason,
		Details:       details,
		CreatedAt:     now,
	}
}

package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client and gateway errors
	CodeSignatureInvalid     = 4001
	CodeInvalidPayload       = 4002
	CodeInvalidAmount        = 4003
	CodeUnknownProvider      = 4004
	CodeDuplicateEvent       = 4090
	CodeTransitionConflict   = 4091
	CodeReferenceAlreadyPaid = 4092
	CodeNotFound             = 4040
	CodeUnknownReference     = 4220
	CodeAmountMismatch       = 4221
	CodeInvalidTransition    = 4222
	CodeReferenceInvalid     = 4223
	CodeIdempotencyMismatch  = 4224

	// 5xxx - Server and upstream errors
	CodeInternalServer      = 5000
	CodeTransientGateway    = 5021
	CodeTransientDependency = 5022
	CodeMaxAttemptsExceeded = 5030
)

// Ingestion errors
var (
	// ErrSignatureInvalid is returned when the HMAC over the raw body does not match the header
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrDuplicateEvent is returned when (provider, providerEventId) was already recorded
	ErrDuplicateEvent = errors.New("webhook event already received")

	// ErrUnknownProvider is returned when no adapter is registered for the declared provider
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrInvalidPayload is returned when a verified body cannot be normalized
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Reconciliation errors
var (
	// ErrUnknownReference is returned when no transaction carries the event's gateway order reference
	ErrUnknownReference = errors.New("unknown gateway order reference")

	// ErrAmountMismatch is returned when the reported amount or currency differs from the stored one
	ErrAmountMismatch = errors.New("amount or currency mismatch")

	// ErrInvalidTransition is returned when the target status is not reachable from the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransitionConflict is returned when a conditional status update observed a different stored status
	ErrTransitionConflict = errors.New("status changed concurrently")

	// ErrNonTerminalStatus is returned when the gateway reports a status that does not move the transaction
	ErrNonTerminalStatus = errors.New("gateway status is not terminal")
)

// Ledger and lookup errors
var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrWebhookEventNotFound = errors.New("webhook event not found")
	ErrTaskNotFound         = errors.New("side effect task not found")
	ErrReferenceNotFound    = errors.New("referenced registration or donation not found")
	ErrNotFound             = errors.New("resource not found")

	// ErrInvalidAmount is returned when an amount is not a positive value with at most two decimals
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrInvalidCurrency is returned when the currency is not a three letter ISO code
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidReference is returned when the reference type or id is malformed
	ErrInvalidReference = errors.New("invalid payment reference")

	// ErrGatewayOrderAlreadyAttached is returned when a transaction already carries a gateway order reference
	ErrGatewayOrderAlreadyAttached = errors.New("gateway order already attached")

	// ErrDuplicateTransaction is returned when an idempotency key or transaction number already exists
	ErrDuplicateTransaction = errors.New("transaction already exists")

	// ErrReferenceAlreadyPaid is returned when a new transaction targets a registration or donation whose payment completed
	ErrReferenceAlreadyPaid = errors.New("registration or donation already paid")

	// ErrIdempotencyKeyReused is returned when a known idempotency key arrives with a different amount, currency or reference
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with different parameters")
)

// Execution errors
var (
	// ErrTransientGateway marks a gateway failure that may succeed on retry (timeouts, 5xx, network)
	ErrTransientGateway = errors.New("transient gateway error")

	// ErrTransientCollaborator marks a side-effect collaborator failure that may succeed on retry
	ErrTransientCollaborator = errors.New("transient collaborator error")

	// ErrMaxAttemptsExceeded is returned when a side effect exhausted its retry budget
	ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded")

	// ErrTaskNotClaimable is returned when another worker claimed the task first
	ErrTaskNotClaimable = errors.New("side effect task not claimable")

	// ErrLeaseHeld is returned when a scheduler lease is owned by another live worker
	ErrLeaseHeld = errors.New("lease held by another owner")

	ErrDatabaseConnection  = errors.New("database connection error")
	ErrConstraintViolation = errors.New("database constraint violation")
	ErrInternalServer      = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrSignatureInvalid):
		return CodeSignatureInvalid
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidCurrency):
		return CodeInvalidAmount
	case errors.Is(err, ErrUnknownProvider):
		return CodeUnknownProvider
	case errors.Is(err, ErrDuplicateEvent):
		return CodeDuplicateEvent
	case errors.Is(err, ErrTransitionConflict):
		return CodeTransitionConflict
	case errors.Is(err, ErrReferenceAlreadyPaid):
		return CodeReferenceAlreadyPaid
	case errors.Is(err, ErrIdempotencyKeyReused):
		return CodeIdempotencyMismatch
	case errors.Is(err, ErrUnknownReference):
		return CodeUnknownReference
	case errors.Is(err, ErrAmountMismatch):
		return CodeAmountMismatch
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrInvalidReference), errors.Is(err, ErrReferenceNotFound):
		return CodeReferenceInvalid
	case IsNotFoundError(err):
		return CodeNotFound
	case errors.Is(err, ErrTransientGateway):
		return CodeTransientGateway
	case errors.Is(err, ErrTransientCollaborator), errors.Is(err, ErrDatabaseConnection):
		return CodeTransientDependency
	case errors.Is(err, ErrMaxAttemptsExceeded):
		return CodeMaxAttemptsExceeded
	default:
		return CodeInternalServer
	}
}

// ReconciliationError carries the full context of an event that was quarantined or rejected
type ReconciliationError struct {
	TransactionID   string
	Provider        string
	ProviderEventID string
	GatewayOrderRef string
	Reason          string
	Err             error
}

// Error implements the error interface for ReconciliationError
func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation rejected event %s/%s (order: %s, transaction: %s): %s: %v",
		e.Provider, e.ProviderEventID, e.GatewayOrderRef, e.TransactionID, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *ReconciliationError) LogFields() map[string]any {
	return map[string]any{
		"error_type":        "reconciliation_error",
		"transaction_id":    e.TransactionID,
		"provider":          e.Provider,
		"provider_event_id": e.ProviderEventID,
		"gateway_order_ref": e.GatewayOrderRef,
		"reason":            e.Reason,
		"error":             e.Err.Error(),
		"error_code":        ErrorCode(e.Err),
	}
}

// NewReconciliationError creates a detailed reconciliation error
func NewReconciliationError(transactionID, provider, providerEventID, orderRef, reason string, err error) error {
	return &ReconciliationError{
		TransactionID:   transactionID,
		Provider:        provider,
		ProviderEventID: providerEventID,
		GatewayOrderRef: orderRef,
		Reason:          reason,
		Err:             err,
	}
}

// TransitionError describes a rejected or conflicting ledger transition
type TransitionError struct {
	TransactionID string
	From          string
	To            string
	Current       string
	Err           error
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s for transaction %s rejected (current: %s): %v",
		e.From, e.To, e.TransactionID, e.Current, e.Err)
}

// Unwrap returns the underlying error
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *TransitionError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "transition_error",
		"transaction_id": e.TransactionID,
		"from":           e.From,
		"to":             e.To,
		"current":        e.Current,
		"error":          e.Err.Error(),
		"error_code":     ErrorCode(e.Err),
	}
}

// NewTransitionError creates a new transition error
func NewTransitionError(transactionID, from, to, current string, err error) error {
	return &TransitionError{
		TransactionID: transactionID,
		From:          from,
		To:            to,
		Current:       current,
		Err:           err,
	}
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrWebhookEventNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}

// IsTransient reports whether the error may succeed when retried later
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientGateway) ||
		errors.Is(err, ErrTransientCollaborator) ||
		errors.Is(err, ErrDatabaseConnection)
}

// IsQuarantine reports whether the error must quarantine the originating event for manual review
func IsQuarantine(err error) bool {
	return errors.Is(err, ErrUnknownReference) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrInvalidTransition)
}

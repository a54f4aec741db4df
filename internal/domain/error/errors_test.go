package error

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"SignatureInvalid", ErrSignatureInvalid, 4001},
		{"InvalidPayload", ErrInvalidPayload, 4002},
		{"InvalidCurrency", ErrInvalidCurrency, 4003},
		{"DuplicateEvent", ErrDuplicateEvent, 4090},
		{"UnknownReference", ErrUnknownReference, 4220},
		{"AmountMismatch", ErrAmountMismatch, 4221},
		{"InvalidTransition", ErrInvalidTransition, 4222},
		{"ReferenceAlreadyPaid", ErrReferenceAlreadyPaid, 4092},
		{"IdempotencyKeyReused", fmt.Errorf("create: %w", ErrIdempotencyKeyReused), 4224},
		{"TransactionNotFound", ErrTransactionNotFound, 4040},
		{"TransientGateway", ErrTransientGateway, 5021},
		{"MaxAttempts", ErrMaxAttemptsExceeded, 5030},
		{"UnknownError", errors.New("unknown error"), 5000},
		{"WrappedError", fmt.Errorf("wrapped: %w", ErrAmountMismatch), 4221},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code := ErrorCode(tc.err)
			if code != tc.expected {
				t.Errorf("ErrorCode(%v) = %d, want %d", tc.err, code, tc.expected)
			}
		})
	}
}

func TestReconciliationError(t *testing.T) {
	err := NewReconciliationError("txn-1", "generic", "evt-1", "order_1", "amount differs", ErrAmountMismatch)

	expected := "reconciliation rejected event generic/evt-1 (order: order_1, transaction: txn-1): amount differs: amount or currency mismatch"
	if err.Error() != expected {
		t.Errorf("ReconciliationError.Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrAmountMismatch) {
		t.Error("ReconciliationError should unwrap to ErrAmountMismatch")
	}
	if !IsQuarantine(err) {
		t.Error("amount mismatch should quarantine the event")
	}

	var recErr *ReconciliationError
	if !errors.As(err, &recErr) {
		t.Fatal("errors.As should find ReconciliationError")
	}
	fields := recErr.LogFields()
	if fields["error_code"] != CodeAmountMismatch {
		t.Errorf("LogFields error_code = %v, want %d", fields["error_code"], CodeAmountMismatch)
	}
	if fields["provider_event_id"] != "evt-1" {
		t.Errorf("LogFields provider_event_id = %v, want evt-1", fields["provider_event_id"])
	}
}

func TestTransitionError(t *testing.T) {
	err := NewTransitionError("txn-9", "PENDING", "REFUNDED", "PENDING", ErrInvalidTransition)

	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError should unwrap to ErrInvalidTransition")
	}
	expected := "transition PENDING -> REFUNDED for transaction txn-9 rejected (current: PENDING): invalid status transition"
	if err.Error() != expected {
		t.Errorf("TransitionError.Error() = %s, want %s", err.Error(), expected)
	}
}

func TestClassification(t *testing.T) {
	if !IsTransient(fmt.Errorf("query order: %w", ErrTransientGateway)) {
		t.Error("wrapped gateway error should be transient")
	}
	if IsTransient(ErrAmountMismatch) {
		t.Error("amount mismatch must never be retried")
	}
	if !IsNotFoundError(ErrTaskNotFound) {
		t.Error("task not found should be a not found error")
	}
	if IsQuarantine(ErrDuplicateEvent) {
		t.Error("duplicates are acknowledged, not quarantined")
	}
}

package entity

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/google/uuid"
)

// TransactionStatus defines the lifecycle states of a payment transaction
type TransactionStatus string

// TransactionStatus constants
const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

// ReferenceType identifies what a transaction pays for
type ReferenceType string

// Reference types
const (
	ReferenceRegistration ReferenceType = "REGISTRATION"
	ReferenceDonation     ReferenceType = "DONATION"
)

// allowedTransitions is the reconciliation state machine. Nothing ever moves back to PENDING.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRefunded},
}

// CanTransition reports whether to is reachable from from in a single step
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has left PENDING
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// IsValidReferenceType checks the reference type against the supported set
func IsValidReferenceType(referenceType string) bool {
	return referenceType == string(ReferenceRegistration) || referenceType == string(ReferenceDonation)
}

// PaymentTransaction is a single money-movement attempt tied to one registration or donation
type PaymentTransaction struct {
	ID                string            // Internal identifier (UUID)
	TransactionNumber string            // Human readable unique number, e.g. TXN-20240101-1A2B3C4D
	IdempotencyKey    string            // Identity of the initiating action
	AmountMinor       int64             // Amount in minor units, immutable once the gateway order exists
	Currency          string            // ISO 4217 code, immutable once the gateway order exists
	Status            TransactionStatus // Lifecycle state
	GatewayOrderRef   string            // Gateway order id, empty until attached
	GatewayPaymentRef string            // Gateway payment id, set on reconciliation
	ReferenceType     ReferenceType
	ReferenceID       string
	PayerEmail        string
	InitiatedAt       time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time

	// Polling bookkeeping
	PollAttempts int
	NextPollAt   *time.Time
	ManualReview bool
}

// NewPaymentTransaction validates the initiation input and builds a PENDING transaction
func NewPaymentTransaction(
	idempotencyKey string,
	amount string,
	currency string,
	referenceType string,
	referenceID string,
	payerEmail string,
	now time.Time,
) (*PaymentTransaction, error) {
	if !IsValidReferenceType(referenceType) {
		return nil, fmt.Errorf("%w: unsupported reference type %q", errs.ErrInvalidReference, referenceType)
	}
	if strings.TrimSpace(referenceID) == "" {
		return nil, fmt.Errorf("%w: empty reference id", errs.ErrInvalidReference)
	}

	amountMinor, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if idempotencyKey == "" {
		idempotencyKey = id.String()
	}

	return &PaymentTransaction{
		ID:                id.String(),
		TransactionNumber: NewTransactionNumber(id, now),
		IdempotencyKey:    idempotencyKey,
		AmountMinor:       amountMinor,
		Currency:          code,
		Status:            StatusPending,
		ReferenceType:     ReferenceType(referenceType),
		ReferenceID:       referenceID,
		PayerEmail:        payerEmail,
		InitiatedAt:       now,
		UpdatedAt:         now,
	}, nil
}

// NewTransactionNumber derives the human readable number from the id and initiation date
func NewTransactionNumber(id uuid.UUID, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
	return fmt.Sprintf("TXN-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Amount returns the amount formatted in major units
func (t *PaymentTransaction) Amount() string {
	return FormatMinorUnits(t.AmountMinor)
}

// Matches reports whether a gateway-reported amount and currency equal the stored values
func (t *PaymentTransaction) Matches(amountMinor int64, currency string) bool {
	return t.AmountMinor == amountMinor && strings.EqualFold(t.Currency, currency)
}

// LogFields returns identifying fields for structured logging
func (t *PaymentTransaction) LogFields() map[string]any {
	return map[string]any{
		"transaction_id":     t.ID,
		"transaction_number": t.TransactionNumber,
		"status":             string(t.Status),
		"gateway_order_ref":  t.GatewayOrderRef,
		"reference_type":     string(t.ReferenceType),
		"reference_id":       t.ReferenceID,
	}
}

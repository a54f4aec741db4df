package entity

import "time"

// PaymentReference is the payment-facing view of a registration or donation.
// PaymentStatus and PaymentTransactionID are written only by reconciliation,
// except for attaching the transaction id when the transaction is created.
type PaymentReference struct {
	Type                 ReferenceType
	ID                   string
	PayerName            string
	PayerEmail           string
	Description          string // event name for registrations, campaign for donations
	PaymentStatus        TransactionStatus
	PaymentTransactionID string
	UpdatedAt            time.Time
}

// IsPaid reports whether a completed payment settled the reference
func (r *PaymentReference) IsPaid() bool {
	return r.PaymentStatus == StatusCompleted
}

// AcceptsOutcome reports whether an outcome of transactionID may overwrite the payment fields.
// The attached transaction always may and so may any outcome on an unattached reference.
// A completion of another transaction claims the reference unless it is already paid.
func (r *PaymentReference) AcceptsOutcome(transactionID string, status TransactionStatus) bool {
	if r.PaymentTransactionID == "" || r.PaymentTransactionID == transactionID {
		return true
	}
	return status == StatusCompleted && !r.IsPaid()
}

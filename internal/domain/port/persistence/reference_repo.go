package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// ReferenceRepository reads and writes the payment fields of registrations and donations
type ReferenceRepository interface {
	// Get retrieves the referenced entity
	//
	// Possible errors:
	// - ErrReferenceNotFound: If the registration or donation does not exist
	Get(ctx context.Context, referenceType entity.ReferenceType, id string) (*entity.PaymentReference, error)

	// AttachTransaction links a freshly created transaction and sets paymentStatus to PENDING
	//
	// Possible errors:
	// - ErrReferenceAlreadyPaid: If the reference is already COMPLETED
	// - ErrReferenceNotFound: If the registration or donation does not exist
	AttachTransaction(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, at time.Time) error

	// UpdatePaymentStatus records the reconciled outcome of transactionID when
	// PaymentReference.AcceptsOutcome allows it. It reports false, with no change,
	// when the reference belongs to another transaction.
	UpdatePaymentStatus(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, status entity.TransactionStatus, at time.Time) (bool, error)
}

package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// TransactionRepository defines the ledger's storage operations.
// Status changes go exclusively through CompareAndSetStatus.
type TransactionRepository interface {
	// Create saves a new PENDING transaction
	//
	// Possible errors:
	// - ErrDuplicateTransaction: If the idempotency key or transaction number already exists
	// - ErrDatabaseConnection: If database connection fails
	Create(ctx context.Context, transaction *entity.PaymentTransaction) error

	// GetByID retrieves a transaction by its internal id
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no transaction has the given id
	GetByID(ctx context.Context, id string) (*entity.PaymentTransaction, error)

	// GetByIdempotencyKey retrieves the transaction opened by an initiating action
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.PaymentTransaction, error)

	// GetByGatewayOrderRef resolves a gateway order reference to its transaction
	GetByGatewayOrderRef(ctx context.Context, orderRef string) (*entity.PaymentTransaction, error)

	// AttachGatewayOrder sets the gateway order reference only while it is still empty.
	// Returns false when a reference was already attached.
	AttachGatewayOrder(ctx context.Context, id string, orderRef string, at time.Time) (bool, error)

	// CompareAndSetStatus moves the transaction to status `to` only if the stored status equals `from`.
	// Returns false on a conflict; the caller must re-read.
	CompareAndSetStatus(ctx context.Context, id string, from, to entity.TransactionStatus, paymentRef string, at time.Time) (bool, error)

	// FindDueForPolling lists PENDING transactions initiated before cutoff whose next poll is due,
	// excluding those flagged for manual review
	FindDueForPolling(ctx context.Context, initiatedBefore, now time.Time, limit int) ([]*entity.PaymentTransaction, error)

	// SchedulePoll records a poll attempt and the next time the transaction may be polled
	SchedulePoll(ctx context.Context, id string, attempts int, nextPollAt time.Time) error

	// FlagManualReview marks a still-PENDING transaction for operator attention.
	// Returns false if it was already flagged or left PENDING.
	FlagManualReview(ctx context.Context, id string, at time.Time) (bool, error)
}

package dto

import (
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
)

// InitiatePaymentRequest represents the API request for opening a payment
type InitiatePaymentRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	ReferenceType string `json:"referenceType" binding:"required,oneof=REGISTRATION DONATION"`
	ReferenceID   string `json:"referenceId" binding:"required"`
}

// TransactionResponse represents a payment transaction in API responses
type TransactionResponse struct {
	ID                string     `json:"id"`
	TransactionNumber string     `json:"transactionNumber"`
	Status            string     `json:"status"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	GatewayOrderRef   string     `json:"gatewayOrderRef,omitempty"`
	GatewayPaymentRef string     `json:"gatewayPaymentRef,omitempty"`
	ReferenceType     string     `json:"referenceType"`
	ReferenceID       string     `json:"referenceId"`
	ManualReview      bool       `json:"manualReview"`
	InitiatedAt       time.Time  `json:"initiatedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	Replayed          bool       `json:"replayed,omitempty"`
}

// SideEffectResponse represents a post-completion task
type SideEffectResponse struct {
	EffectType    string     `json:"effectType"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attemptCount"`
	LastError     string     `json:"lastError,omitempty"`
	NextAttemptAt time.Time  `json:"nextAttemptAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// TransactionReportResponse is a transaction with its side effects
type TransactionReportResponse struct {
	Transaction TransactionResponse  `json:"transaction"`
	SideEffects []SideEffectResponse `json:"sideEffects"`
}

// AuditRecordResponse is one audit trail entry
type AuditRecordResponse struct {
	Kind      string            `json:"kind"`
	Action    string            `json:"action"`
	Outcome   string            `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewTransactionResponse maps a transaction to its API shape
func NewTransactionResponse(txn *entity.PaymentTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                txn.ID,
		TransactionNumber: txn.TransactionNumber,
		Status:            string(txn.Status),
		Amount:            entity.FormatMinorUnits(txn.AmountMinor),
		Currency:          txn.Currency,
		GatewayOrderRef:   txn.GatewayOrderRef,
		GatewayPaymentRef: txn.GatewayPaymentRef,
		ReferenceType:     string(txn.ReferenceType),
		ReferenceID:       txn.ReferenceID,
		ManualReview:      txn.ManualReview,
		InitiatedAt:       txn.InitiatedAt,
		CompletedAt:       txn.CompletedAt,
	}
}

// NewTransactionReportResponse maps a report including its side effects
func NewTransactionReportResponse(report *usecase.TransactionReport) TransactionReportResponse {
	effects := make([]SideEffectResponse, 0, len(report.SideEffects))
	for _, task := range report.SideEffects {
		effects = append(effects, SideEffectResponse{
			EffectType:    string(task.EffectType),
			Status:        string(task.Status),
			AttemptCount:  task.AttemptCount,
			LastError:     task.LastError,
			NextAttemptAt: task.NextAttemptAt,
			CompletedAt:   task.CompletedAt,
		})
	}
	return TransactionReportResponse{
		Transaction: NewTransactionResponse(report.Transaction),
		SideEffects: effects,
	}
}

// NewAuditTrailResponse maps audit records in order
func NewAuditTrailResponse(records []*entity.AuditRecord) []AuditRecordResponse {
	out := make([]AuditRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, AuditRecordResponse{
			Kind:      string(r.Kind),
			Action:    r.Action,
			Outcome:   r.Outcome,
			Reason:    r.Reason,
			Details:   r.Details,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

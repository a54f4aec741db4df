package model

import (
	"time"
)

// Transaction represents the database model for payment transactions
type Transaction struct {
	ID                string    `gorm:"primaryKey;size:36"`
	TransactionNumber string    `gorm:"uniqueIndex;not null;size:32"`
	IdempotencyKey    string    `gorm:"uniqueIndex;not null;size:128"`
	AmountMinor       int64     `gorm:"not null"`
	Currency          string    `gorm:"not null;size:3"`
	Status            string    `gorm:"not null;size:20;index:idx_transactions_status_initiated,priority:1"`
	GatewayOrderRef   *string   `gorm:"uniqueIndex;size:128"`
	GatewayPaymentRef string    `gorm:"size:128"`
	ReferenceType     string    `gorm:"not null;size:20;index:idx_transactions_reference,priority:1"`
	ReferenceID       string    `gorm:"not null;size:64;index:idx_transactions_reference,priority:2"`
	PayerEmail        string    `gorm:"size:255"`
	InitiatedAt       time.Time `gorm:"not null;index:idx_transactions_status_initiated,priority:2"`
	CompletedAt       *time.Time
	UpdatedAt         time.Time `gorm:"not null"`
	PollAttempts      int       `gorm:"not null;default:0"`
	NextPollAt        *time.Time
	ManualReview      bool `gorm:"not null;default:false"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "payment_transactions"
}

package model

import (
	"time"
)

// Ticket is the QR ticket of a paid registration
type Ticket struct {
	ID             string    `gorm:"primaryKey;size:36"`
	RegistrationID string    `gorm:"uniqueIndex;not null;size:64"`
	TransactionID  string    `gorm:"not null;size:36"`
	Code           string    `gorm:"uniqueIndex;not null;size:64"`
	ImageRef       string    `gorm:"size:512"`
	IssuedAt       time.Time `gorm:"not null"`
}

// TableName specifies the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// Invoice is the invoice of a completed transaction
type Invoice struct {
	ID               string    `gorm:"primaryKey;size:36"`
	InvoiceNumber    string    `gorm:"uniqueIndex;not null;size:64"`
	TransactionID    string    `gorm:"uniqueIndex;not null;size:36"`
	ReferenceType    string    `gorm:"not null;size:20"`
	ReferenceID      string    `gorm:"not null;size:64"`
	AmountMinor      int64     `gorm:"not null"`
	Currency         string    `gorm:"not null;size:3"`
	PayerName        string    `gorm:"size:255"`
	PayerEmail       string    `gorm:"size:255"`
	OrganizationName string    `gorm:"size:255"`
	OrganizationTax  string    `gorm:"size:64"`
	IssuedAt         time.Time `gorm:"not null"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

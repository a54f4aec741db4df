package model

import (
	"time"
)

// Registration is the payment-facing part of an event registration
type Registration struct {
	ID                   string `gorm:"primaryKey;size:64"`
	AttendeeName         string `gorm:"size:255"`
	AttendeeEmail        string `gorm:"size:255"`
	EventName            string `gorm:"size:255"`
	PaymentStatus        string `gorm:"size:20"`
	PaymentTransactionID string `gorm:"size:36;index"`
	UpdatedAt            time.Time
}

// TableName specifies the table name for Registration
func (Registration) TableName() string {
	return "registrations"
}

// Donation is the payment-facing part of a donation
type Donation struct {
	ID                   string `gorm:"primaryKey;size:64"`
	DonorName            string `gorm:"size:255"`
	DonorEmail           string `gorm:"size:255"`
	Campaign             string `gorm:"size:255"`
	PaymentStatus        string `gorm:"size:20"`
	PaymentTransactionID string `gorm:"size:36;index"`
	UpdatedAt            time.Time
}

// TableName specifies the table name for Donation
func (Donation) TableName() string {
	return "donations"
}

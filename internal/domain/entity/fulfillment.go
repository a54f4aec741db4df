package entity

import "time"

// Ticket is the QR ticket issued for a paid registration
type Ticket struct {
	ID             string
	RegistrationID string // unique, one live code per registration
	TransactionID  string
	Code           string
	ImageRef       string
	IssuedAt       time.Time
}

// Invoice is the persisted invoice for a completed transaction
type Invoice struct {
	ID               string
	InvoiceNumber    string
	TransactionID    string // unique, one invoice per transaction
	ReferenceType    ReferenceType
	ReferenceID      string
	AmountMinor      int64
	Currency         string
	PayerName        string
	PayerEmail       string
	OrganizationName string
	OrganizationTax  string
	IssuedAt         time.Time
}

// InvoiceRecord is the structured invoice consumed by the invoice-retrieval surface
type InvoiceRecord struct {
	Invoice      InvoiceSummary      `json:"invoice"`
	Transaction  TransactionSummary  `json:"transaction"`
	Registration *RegistrationRecord `json:"registration,omitempty"`
	User         PayerSummary        `json:"user"`
	Organization OrganizationSummary `json:"organization"`
}

// InvoiceSummary carries the invoice header
type InvoiceSummary struct {
	Number   string    `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
}

// TransactionSummary carries the paid transaction
type TransactionSummary struct {
	ID                string `json:"id"`
	TransactionNumber string `json:"transactionNumber"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	GatewayPaymentRef string `json:"gatewayPaymentRef,omitempty"`
}

// RegistrationRecord is present only for registration payments
type RegistrationRecord struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// PayerSummary identifies who paid
type PayerSummary struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// OrganizationSummary identifies who issues the invoice
type OrganizationSummary struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId,omitempty"`
}

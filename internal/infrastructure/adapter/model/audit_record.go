package model

import (
	"time"
)

// AuditRecord is an append-only audit row
type AuditRecord struct {
	ID            string            `gorm:"primaryKey;size:36"`
	TransactionID string            `gorm:"size:36;index:idx_audit_records_txn_created,priority:1"`
	Kind          string            `gorm:"not null;size:20"`
	Action        string            `gorm:"not null;size:64"`
	Outcome       string            `gorm:"size:64"`
	Reason        string            `gorm:"type:text"`
	Details       map[string]string `gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_audit_records_txn_created,priority:2"`
}

// TableName specifies the table name for AuditRecord
func (AuditRecord) TableName() string {
	return "audit_records"
}

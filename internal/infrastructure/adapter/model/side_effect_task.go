package model

import (
	"time"
)

// SideEffectTask is the durable work queue row, unique per (transaction, effect type)
type SideEffectTask struct {
	ID             string `gorm:"primaryKey;size:36"`
	TransactionID  string `gorm:"not null;size:36;uniqueIndex:idx_side_effect_tasks_txn_effect,priority:1"`
	EffectType     string `gorm:"not null;size:32;uniqueIndex:idx_side_effect_tasks_txn_effect,priority:2"`
	Status         string `gorm:"not null;size:20;index:idx_side_effect_tasks_due,priority:1"`
	AttemptCount   int    `gorm:"not null;default:0"`
	LastError      string `gorm:"type:text"`
	LastAttemptAt  *time.Time
	NextAttemptAt  time.Time `gorm:"not null;index:idx_side_effect_tasks_due,priority:2"`
	LeaseOwner     string    `gorm:"size:128"`
	LeaseExpiresAt *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	CompletedAt    *time.Time
}

// TableName specifies the table name for SideEffectTask
func (SideEffectTask) TableName() string {
	return "side_effect_tasks"
}

package model

import (
	"time"
)

// SchedulerLease records which worker owns a scheduled job until ExpiresAt
type SchedulerLease struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Owner     string    `gorm:"not null;size:128"`
	ExpiresAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for SchedulerLease
func (SchedulerLease) TableName() string {
	return "scheduler_leases"
}

package model

import "time"

// SchemaVersion records one applied schema migration
type SchemaVersion struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Version     string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	TableCount  int       `gorm:"not null"`
	AppliedAt   time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the schema version model
func (SchemaVersion) TableName() string {
	return "schema_versions"
}

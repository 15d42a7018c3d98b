package models

import (
	"time"
)

// IntegrityAudit records one repair action taken by the reconciliation
// engine. Backfilled assignment rows always leave one of these behind, so a
// later audit can separate reconstructed history from organic writes.
type IntegrityAudit struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	JobStepID   uint      `gorm:"index;not null"`
	MachineID   uint      `gorm:"not null"`
	MachineCode string    `gorm:"not null"`
	Action      string    `gorm:"not null"`
	Detail      string    `gorm:"type:text"`
	ActorID     *uint     `gorm:"column:actor_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (IntegrityAudit) TableName() string {
	return "integrity_audit"
}

const (
	AuditActionBackfill = "backfill_assignment"
	AuditActionRebuild  = "rebuild_snapshot"
)

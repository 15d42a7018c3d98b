package models

import (
	"time"
)

type StepStatus string

const (
	StepPlanned StepStatus = "PLANNED"
	StepActive  StepStatus = "ACTIVE"
	StepStopped StepStatus = "STOPPED"
)

// ParseStepStatus validates a status value coming from a caller. Free-form
// strings are rejected at the boundary instead of being stored as-is.
func ParseStepStatus(raw string) (StepStatus, bool) {
	switch StepStatus(raw) {
	case StepPlanned, StepActive, StepStopped:
		return StepStatus(raw), true
	}
	return "", false
}

type JobStep struct {
	ID            uint       `gorm:"primaryKey"`
	JobPlanningID uint       `gorm:"index;not null;uniqueIndex:idx_planning_step_no"`
	StepNo        int        `gorm:"not null;uniqueIndex:idx_planning_step_no"`
	StepName      string     `gorm:"not null"`
	Status        StepStatus `gorm:"not null;default:PLANNED"`
	StartDate     *time.Time
	EndDate       *time.Time
	// MachineDetails is a read-optimized copy of the machine_assignment rows
	// for this step. The ledger is authoritative; this field is regenerated
	// after every mutation and repaired when older write paths left it stale.
	MachineDetails MachineDetails `gorm:"type:text"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (JobStep) TableName() string {
	return "job_step"
}

package models

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
)

// ParseAssignmentStatus validates a machine status value at the boundary.
func ParseAssignmentStatus(raw string) (AssignmentStatus, bool) {
	switch AssignmentStatus(raw) {
	case AssignmentAssigned, AssignmentInProgress, AssignmentCompleted:
		return AssignmentStatus(raw), true
	}
	return "", false
}

func (s AssignmentStatus) rank() int {
	switch s {
	case AssignmentAssigned:
		return 0
	case AssignmentInProgress:
		return 1
	case AssignmentCompleted:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether next is a legal move from s. Progress only
// runs forward along ASSIGNED -> IN_PROGRESS -> COMPLETED; skipping
// IN_PROGRESS is allowed (an operator may finish a machine in one report),
// moving backward or repeating a status is not.
func (s AssignmentStatus) CanAdvanceTo(next AssignmentStatus) bool {
	return s.rank() >= 0 && next.rank() > s.rank()
}

// MachineAssignment is one ledger row: one physical machine working one step.
// Rows are never deleted once COMPLETED; re-assigning the same machine to the
// same step after completion creates a fresh row.
type MachineAssignment struct {
	ID            uint             `gorm:"primaryKey"`
	JobStepID     uint             `gorm:"index;not null"`
	MachineID     uint             `gorm:"index;not null"`
	MachineCode   string           `gorm:"not null"`
	MachineType   string           `gorm:"not null"`
	Unit          string           `gorm:"not null"`
	Status        AssignmentStatus `gorm:"not null;default:ASSIGNED"`
	AssignedUser  *uint            `gorm:"column:assigned_user_id"`
	Version       int              `gorm:"not null;default:0"`
	// Backfilled marks rows created by a drift repair rather than an operator
	// action, so audits can tell reconstructed history apart from organic rows.
	Backfilled bool      `gorm:"not null;default:false"`
	AssignedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (MachineAssignment) TableName() string {
	return "machine_assignment"
}

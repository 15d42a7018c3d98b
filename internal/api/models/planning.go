package models

import (
	"time"
)

// JobDemand classifies the urgency of a job. The value set comes from the
// planning frontend and is treated as opaque here.
type JobDemand string

const (
	DemandNormal JobDemand = "normal"
	DemandUrgent JobDemand = "urgent"
)

type JobPlanning struct {
	ID               uint             `gorm:"primaryKey"`
	JobID            string           `gorm:"uniqueIndex;not null"`
	JobDemand        JobDemand        `gorm:"not null;default:normal"`
	SequencingPolicy SequencingPolicy `gorm:"not null;default:strict"`
	Steps            []JobStep        `gorm:"foreignKey:JobPlanningID"`
	CreatedAt        time.Time        `gorm:"autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime"`
}

func (JobPlanning) TableName() string {
	return "job_planning"
}

// StepDef is the creation-time definition of one production step.
type StepDef struct {
	StepNo   int    `json:"stepNo"`
	StepName string `json:"stepName"`
}

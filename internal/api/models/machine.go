package models

import (
	"time"
)

// Machine is the registry record for one physical machine. The planning core
// only reads it; inventory management lives elsewhere.
type Machine struct {
	ID          uint      `gorm:"primaryKey"`
	MachineCode string    `gorm:"uniqueIndex;not null"`
	MachineType string    `gorm:"not null"`
	Unit        string    `gorm:"not null"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Machine) TableName() string {
	return "machine"
}

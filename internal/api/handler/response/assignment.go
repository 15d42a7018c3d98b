package response

import "time"

type Assignment struct {
	ID           uint      `json:"id"`
	JobStepID    uint      `json:"jobStepId"`
	MachineID    uint      `json:"machineId"`
	MachineCode  string    `json:"machineCode"`
	MachineType  string    `json:"machineType"`
	Unit         string    `json:"unit"`
	Status       string    `json:"status"`
	AssignedUser *uint     `json:"assignedUserId"`
	Version      int       `json:"version"`
	Backfilled   bool      `json:"backfilled"`
	AssignedAt   time.Time `json:"assignedAt"`
}

type Machine struct {
	ID          uint   `json:"id"`
	MachineCode string `json:"machineCode"`
	MachineType string `json:"machineType"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
}

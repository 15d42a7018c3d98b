package response

import "time"

// MachineDetail mirrors one snapshot entry. Key names are consumed verbatim
// by reporting clients; do not rename.
type MachineDetail struct {
	MachineID   uint   `json:"machineId"`
	Unit        string `json:"unit"`
	MachineCode string `json:"machineCode"`
	MachineType string `json:"machineType"`
	Status      string `json:"status"`
}

type StepView struct {
	ID             uint            `json:"id"`
	StepNo         int             `json:"stepNo"`
	StepName       string          `json:"stepName"`
	Status         string          `json:"status"`
	StartDate      *time.Time      `json:"startDate"`
	EndDate        *time.Time      `json:"endDate"`
	MachineDetails []MachineDetail `json:"machineDetails"`
}

type JobView struct {
	ID               uint       `json:"id"`
	JobID            string     `json:"jobId"`
	JobDemand        string     `json:"jobDemand"`
	SequencingPolicy string     `json:"sequencingPolicy"`
	Steps            []StepView `json:"steps"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

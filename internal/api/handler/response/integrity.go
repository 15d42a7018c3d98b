package response

import "time"

type StatusMismatch struct {
	MachineID      uint   `json:"machineId"`
	MachineCode    string `json:"machineCode"`
	SnapshotStatus string `json:"snapshotStatus"`
	LedgerStatus   string `json:"ledgerStatus"`
}

type DriftReport struct {
	StepID           uint             `json:"stepId"`
	InSync           bool             `json:"inSync"`
	SnapshotOnly     []MachineDetail  `json:"snapshotOnly"`
	LedgerOnly       []MachineDetail  `json:"ledgerOnly"`
	StatusMismatches []StatusMismatch `json:"statusMismatches"`
}

type AuditEntry struct {
	ID          string    `json:"id"`
	JobStepID   uint      `json:"jobStepId"`
	MachineID   uint      `json:"machineId"`
	MachineCode string    `json:"machineCode"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RepairResult struct {
	Step   StepView     `json:"step"`
	Audits []AuditEntry `json:"audits"`
}

package request

type AssignMachine struct {
	MachineID uint `json:"machineId" validate:"required"`
}

// UpdateAssignment advances a machine's progress on a step. ExpectedVersion
// is a pointer so that version 0 (a fresh assignment) still validates.
type UpdateAssignment struct {
	Status          string `json:"status" validate:"required"`
	ExpectedVersion *int   `json:"expectedVersion" validate:"required,min=0"`
}

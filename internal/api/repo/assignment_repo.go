package repo

import (
	"strconv"

	"planning/internal/api/models"

	"gorm.io/gorm"
)

// AssignmentRepository reads the machine-assignment ledger. Writes happen in
// the services' transactions, never outside one.
type AssignmentRepository struct {
	Db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{Db: db}
}

// ListByStep returns every ledger row for a step in assignment order. This
// order is the snapshot order.
func (slf *AssignmentRepository) ListByStep(stepID uint) ([]models.MachineAssignment, error) {
	return listAssignments(slf.Db, stepID)
}

// ListByStepTx is the transaction-scoped variant of ListByStep.
func (slf *AssignmentRepository) ListByStepTx(tx *gorm.DB, stepID uint) ([]models.MachineAssignment, error) {
	return listAssignments(tx, stepID)
}

func listAssignments(db *gorm.DB, stepID uint) ([]models.MachineAssignment, error) {
	var rows []models.MachineAssignment
	err := db.
		Where("job_step_id = ?", stepID).
		Order("assigned_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// FindCurrentTx returns the most recent ledger row for a (step, machine)
// pair, or nil when the machine was never assigned to the step.
func (slf *AssignmentRepository) FindCurrentTx(tx *gorm.DB, stepID, machineID uint) (*models.MachineAssignment, error) {
	var row models.MachineAssignment
	err := tx.
		Where("job_step_id = ? AND machine_id = ?", stepID, machineID).
		Order("assigned_at DESC, id DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func uintKey(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func intKey(v int) string {
	return strconv.Itoa(v)
}

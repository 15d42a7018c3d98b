package service

import (
	"fmt"

	"planning/internal/api/apperr"
	"planning/internal/api/events"
	"planning/internal/api/models"
	"planning/internal/api/repo"
	"planning/pkg"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AssignmentService owns the machine-assignment ledger: one row per machine
// working a step, each with its own status and optimistic-concurrency
// version. Multiple machines progress independently on the same step.
type AssignmentService struct {
	db             *gorm.DB
	planningRepo   *repo.PlanningRepository
	assignmentRepo *repo.AssignmentRepository
	machines       *MachineService
	reconciler     *ReconcileService
	events         *events.Publisher
	logger         zerolog.Logger
}

func NewAssignmentService(db *gorm.DB, cache *pkg.Cache, pub *events.Publisher, logger zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		db:             db,
		planningRepo:   repo.NewPlanningRepository(db),
		assignmentRepo: repo.NewAssignmentRepository(db),
		machines:       NewMachineService(db, cache, logger),
		reconciler:     NewReconcileService(db, pub, logger),
		events:         pub,
		logger:         logger,
	}
}

// Assign attaches a machine to a step with a fresh ledger row. A machine that
// already finished the step can be re-assigned (new row); a machine still
// working it cannot.
func (slf *AssignmentService) Assign(stepID, machineID, actingUser uint) (*models.MachineAssignment, error) {
	step, err := slf.planningRepo.FindStepByID(stepID)
	if err != nil {
		return nil, err
	}
	machine, err := slf.machines.Lookup(machineID)
	if err != nil {
		return nil, err
	}

	unlock := stepLocks.Lock(stepID)
	defer unlock()

	tx := slf.db.Begin()
	existing, err := slf.assignmentRepo.FindCurrentTx(tx, stepID, machineID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if existing != nil && existing.Status != models.AssignmentCompleted {
		tx.Rollback()
		return nil, &apperr.DuplicateAssignmentError{
			StepID: stepID, MachineID: machineID, Status: string(existing.Status),
		}
	}

	row := models.MachineAssignment{
		JobStepID:   stepID,
		MachineID:   machine.ID,
		MachineCode: machine.MachineCode,
		MachineType: machine.MachineType,
		Unit:        machine.Unit,
		Status:      models.AssignmentAssigned,
		Version:     0,
	}
	if actingUser != 0 {
		row.AssignedUser = &actingUser
	}
	if err := tx.Create(&row).Error; err != nil {
		tx.Rollback()
		slf.logger.Error().Err(err).Uint("stepId", stepID).Uint("machineId", machineID).Msg("Error creating assignment")
		return nil, err
	}

	if err := slf.reconciler.RebuildInTx(tx, &step); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	slf.logger.Info().Uint("stepId", stepID).Str("machineCode", machine.MachineCode).Msg("Machine assigned")
	slf.publishChange(events.MachineAssigned, step, machineID, "", string(models.AssignmentAssigned), actingUser)
	return &row, nil
}

// UpdateStatus advances one machine's progress. The write only lands when
// expectedVersion still matches; a lost race surfaces as VersionConflict with
// the current version, and the caller decides whether to retry.
func (slf *AssignmentService) UpdateStatus(stepID, machineID uint, newStatus models.AssignmentStatus, expectedVersion int, actingUser uint) (*models.MachineAssignment, error) {
	step, err := slf.planningRepo.FindStepByID(stepID)
	if err != nil {
		return nil, err
	}

	unlock := stepLocks.Lock(stepID)
	defer unlock()

	tx := slf.db.Begin()
	row, err := slf.assignmentRepo.FindCurrentTx(tx, stepID, machineID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if row == nil {
		tx.Rollback()
		return nil, &apperr.NotFoundError{Entity: "machine assignment", Key: assignmentKey(stepID, machineID)}
	}

	// A stale version is always a conflict, even when the requested status
	// would also be an illegal move from the row's current state.
	if row.Version != expectedVersion {
		actual := row.Version
		tx.Rollback()
		return nil, &apperr.VersionConflictError{
			StepID: stepID, MachineID: machineID,
			Expected: expectedVersion, Actual: actual,
		}
	}

	if !row.Status.CanAdvanceTo(newStatus) {
		tx.Rollback()
		return nil, &apperr.InvalidMachineTransitionError{
			StepID: stepID, MachineID: machineID,
			From: string(row.Status), To: string(newStatus),
		}
	}

	var assignedUser *uint
	if actingUser != 0 {
		assignedUser = &actingUser
	}
	res := tx.Model(&models.MachineAssignment{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]any{
			"status":           newStatus,
			"version":          expectedVersion + 1,
			"assigned_user_id": assignedUser,
		})
	if res.Error != nil {
		tx.Rollback()
		slf.logger.Error().Err(res.Error).Uint("stepId", stepID).Uint("machineId", machineID).Msg("Error updating assignment")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		actual := row.Version
		tx.Rollback()
		return nil, &apperr.VersionConflictError{
			StepID: stepID, MachineID: machineID,
			Expected: expectedVersion, Actual: actual,
		}
	}

	prev := row.Status
	row.Status = newStatus
	row.Version = expectedVersion + 1
	row.AssignedUser = assignedUser

	if err := slf.reconciler.RebuildInTx(tx, &step); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	slf.logger.Info().
		Uint("stepId", stepID).
		Str("machineCode", row.MachineCode).
		Str("status", string(newStatus)).
		Int("version", row.Version).
		Msg("Assignment updated")
	slf.publishChange(events.MachineProgress, step, machineID, string(prev), string(newStatus), actingUser)
	return row, nil
}

// List returns the step's ledger in assignment order.
func (slf *AssignmentService) List(stepID uint) ([]models.MachineAssignment, error) {
	if _, err := slf.planningRepo.FindStepByID(stepID); err != nil {
		return nil, err
	}
	return slf.assignmentRepo.ListByStep(stepID)
}

func (slf *AssignmentService) publishChange(t events.EventType, step models.JobStep, machineID uint, from, to string, actor uint) {
	p, err := slf.planningRepo.FindByID(step.JobPlanningID)
	if err != nil {
		slf.logger.Warn().Err(err).Uint("stepId", step.ID).Msg("Cannot resolve job for assignment event")
		return
	}
	slf.events.Publish(events.StateChange{
		Type:      t,
		JobID:     p.JobID,
		StepNo:    step.StepNo,
		StepID:    step.ID,
		MachineID: machineID,
		From:      from,
		To:        to,
		ActorID:   actor,
	})
}

func assignmentKey(stepID, machineID uint) string {
	return fmt.Sprintf("step %d / machine %d", stepID, machineID)
}

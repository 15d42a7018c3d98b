package service

import (
	"fmt"
	"time"

	"planning/internal/api/apperr"
	"planning/internal/api/events"
	"planning/internal/api/models"
	"planning/internal/api/repo"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// StepService drives a step through PLANNED -> ACTIVE -> STOPPED. Each
// transition runs in a per-step critical section: the sequencing check, the
// completion precondition and the snapshot rebuild commit atomically with the
// status write.
type StepService struct {
	db             *gorm.DB
	planningRepo   *repo.PlanningRepository
	assignmentRepo *repo.AssignmentRepository
	reconciler     *ReconcileService
	events         *events.Publisher
	logger         zerolog.Logger
}

func NewStepService(db *gorm.DB, pub *events.Publisher, logger zerolog.Logger) *StepService {
	return &StepService{
		db:             db,
		planningRepo:   repo.NewPlanningRepository(db),
		assignmentRepo: repo.NewAssignmentRepository(db),
		reconciler:     NewReconcileService(db, pub, logger),
		events:         pub,
		logger:         logger,
	}
}

// Start moves a step to ACTIVE. Fails when the step is not PLANNED or when
// the planning's sequencing policy still blocks it.
func (slf *StepService) Start(jobID string, stepNo int, actingUser uint) (*models.JobStep, error) {
	step, err := slf.planningRepo.FindStep(jobID, stepNo)
	if err != nil {
		return nil, err
	}

	unlock := stepLocks.Lock(step.ID)
	defer unlock()

	tx := slf.db.Begin()
	p, err := slf.planningRepo.FindByJobIDTx(tx, jobID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	cur, ok := stepByNo(p.Steps, stepNo)
	if !ok {
		tx.Rollback()
		return nil, &apperr.NotFoundError{Entity: "job step", Key: fmt.Sprintf("%s/%d", jobID, stepNo)}
	}

	switch cur.Status {
	case models.StepActive:
		tx.Rollback()
		return nil, &apperr.InvalidTransitionError{
			JobID: jobID, StepNo: stepNo,
			From: string(models.StepActive), To: string(models.StepActive),
			Reason: "step is already active",
		}
	case models.StepStopped:
		tx.Rollback()
		return nil, &apperr.InvalidTransitionError{
			JobID: jobID, StepNo: stepNo,
			From: string(models.StepStopped), To: string(models.StepActive),
			Reason: "step is stopped; reopening is a separate, explicit action",
		}
	}

	if blocking := p.SequencingPolicy.BlockingStep(p.Steps, stepNo); blocking != nil {
		tx.Rollback()
		return nil, &apperr.InvalidTransitionError{
			JobID: jobID, StepNo: stepNo,
			From: string(models.StepPlanned), To: string(models.StepActive),
			Reason: fmt.Sprintf("step %d (%s) is still %s under %s sequencing",
				blocking.StepNo, blocking.StepName, blocking.Status, p.SequencingPolicy),
		}
	}

	now := time.Now()
	if err := tx.Model(&models.JobStep{}).Where("id = ?", cur.ID).Updates(map[string]any{
		"status":     models.StepActive,
		"start_date": now,
	}).Error; err != nil {
		tx.Rollback()
		slf.logger.Error().Err(err).Str("jobId", jobID).Int("stepNo", stepNo).Msg("Error starting step")
		return nil, err
	}
	cur.Status = models.StepActive
	cur.StartDate = &now

	if err := slf.reconciler.RebuildInTx(tx, cur); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	slf.logger.Info().Str("jobId", jobID).Int("stepNo", stepNo).Uint("actor", actingUser).Msg("Step started")
	slf.events.Publish(events.StateChange{
		Type:  events.StepStarted,
		JobID: jobID, StepNo: stepNo, StepID: cur.ID,
		From: string(models.StepPlanned), To: string(models.StepActive),
		ActorID: actingUser, At: now,
	})
	return cur, nil
}

// Stop moves an ACTIVE step to STOPPED. Every ledger row must be COMPLETED;
// the check shares the step's transaction with the status write, so no
// machine update can slip in between. A nil endDate defaults to now.
func (slf *StepService) Stop(jobID string, stepNo int, endDate *time.Time, actingUser uint) (*models.JobStep, error) {
	step, err := slf.planningRepo.FindStep(jobID, stepNo)
	if err != nil {
		return nil, err
	}

	unlock := stepLocks.Lock(step.ID)
	defer unlock()

	tx := slf.db.Begin()
	cur, err := slf.planningRepo.FindStepByIDTx(tx, step.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if cur.Status != models.StepActive {
		tx.Rollback()
		return nil, &apperr.InvalidTransitionError{
			JobID: jobID, StepNo: stepNo,
			From: string(cur.Status), To: string(models.StepStopped),
			Reason: "only an active step can be stopped",
		}
	}

	rows, err := slf.assignmentRepo.ListByStepTx(tx, cur.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	var outstanding []string
	for _, r := range rows {
		if r.Status != models.AssignmentCompleted {
			outstanding = append(outstanding, r.MachineCode)
		}
	}
	if len(outstanding) > 0 {
		tx.Rollback()
		return nil, &apperr.IncompleteMachineWorkError{StepID: cur.ID, Outstanding: outstanding}
	}

	end := time.Now()
	if endDate != nil {
		end = *endDate
	}
	if err := tx.Model(&models.JobStep{}).Where("id = ?", cur.ID).Updates(map[string]any{
		"status":   models.StepStopped,
		"end_date": end,
	}).Error; err != nil {
		tx.Rollback()
		slf.logger.Error().Err(err).Str("jobId", jobID).Int("stepNo", stepNo).Msg("Error stopping step")
		return nil, err
	}
	cur.Status = models.StepStopped
	cur.EndDate = &end

	if err := slf.reconciler.RebuildInTx(tx, &cur); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	slf.logger.Info().Str("jobId", jobID).Int("stepNo", stepNo).Msg("Step stopped")
	slf.events.Publish(events.StateChange{
		Type:  events.StepStopped,
		JobID: jobID, StepNo: stepNo, StepID: cur.ID,
		From: string(models.StepActive), To: string(models.StepStopped),
		ActorID: actingUser, At: end,
	})
	return &cur, nil
}

// Reopen moves a STOPPED step back to ACTIVE. This is a deliberate operator
// action, never an automatic rollback, and it is audited through the event
// stream.
func (slf *StepService) Reopen(jobID string, stepNo int, actingUser uint) (*models.JobStep, error) {
	step, err := slf.planningRepo.FindStep(jobID, stepNo)
	if err != nil {
		return nil, err
	}

	unlock := stepLocks.Lock(step.ID)
	defer unlock()

	tx := slf.db.Begin()
	cur, err := slf.planningRepo.FindStepByIDTx(tx, step.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if cur.Status != models.StepStopped {
		tx.Rollback()
		return nil, &apperr.InvalidTransitionError{
			JobID: jobID, StepNo: stepNo,
			From: string(cur.Status), To: string(models.StepActive),
			Reason: "only a stopped step can be reopened",
		}
	}

	if err := tx.Model(&models.JobStep{}).Where("id = ?", cur.ID).Updates(map[string]any{
		"status":   models.StepActive,
		"end_date": nil,
	}).Error; err != nil {
		tx.Rollback()
		slf.logger.Error().Err(err).Str("jobId", jobID).Int("stepNo", stepNo).Msg("Error reopening step")
		return nil, err
	}
	cur.Status = models.StepActive
	cur.EndDate = nil

	if err := slf.reconciler.RebuildInTx(tx, &cur); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	slf.logger.Info().Str("jobId", jobID).Int("stepNo", stepNo).Uint("actor", actingUser).Msg("Step reopened")
	slf.events.Publish(events.StateChange{
		Type:  events.StepReopened,
		JobID: jobID, StepNo: stepNo, StepID: cur.ID,
		From: string(models.StepStopped), To: string(models.StepActive),
		ActorID: actingUser, At: time.Now(),
	})
	return &cur, nil
}

func stepByNo(steps []models.JobStep, stepNo int) (*models.JobStep, bool) {
	for i := range steps {
		if steps[i].StepNo == stepNo {
			return &steps[i], true
		}
	}
	return nil, false
}

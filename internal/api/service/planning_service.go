package service

import (
	"errors"

	"planning/internal/api/apperr"
	"planning/internal/api/models"
	"planning/internal/api/repo"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// PlanningService owns the step collection of a job: creation with its
// cross-step invariants, lookup and explicit deletion.
type PlanningService struct {
	db           *gorm.DB
	planningRepo *repo.PlanningRepository
	logger       zerolog.Logger
}

func NewPlanningService(db *gorm.DB, logger zerolog.Logger) *PlanningService {
	return &PlanningService{
		db:           db,
		planningRepo: repo.NewPlanningRepository(db),
		logger:       logger,
	}
}

// Create registers a planning with its steps, all PLANNED with empty
// ledgers. Step numbers must be unique and contiguous starting at 1.
func (slf *PlanningService) Create(jobID string, demand models.JobDemand, policy models.SequencingPolicy, stepDefs []models.StepDef) (*models.JobPlanning, error) {
	seen := make(map[int]bool, len(stepDefs))
	for _, d := range stepDefs {
		if seen[d.StepNo] {
			return nil, &apperr.DuplicateStepNoError{StepNo: d.StepNo}
		}
		seen[d.StepNo] = true
	}
	for i, d := range stepDefs {
		if d.StepNo != i+1 {
			return nil, &apperr.InvalidStepSequenceError{Expected: i + 1, Got: d.StepNo}
		}
	}

	if demand == "" {
		demand = models.DemandNormal
	}
	if policy == "" {
		policy = models.SequencingStrict
	}

	emptySnapshot, err := models.EncodeMachineDetails(nil)
	if err != nil {
		return nil, err
	}

	p := models.JobPlanning{
		JobID:            jobID,
		JobDemand:        demand,
		SequencingPolicy: policy,
		Steps:            make([]models.JobStep, len(stepDefs)),
	}
	for i, d := range stepDefs {
		p.Steps[i] = models.JobStep{
			StepNo:         d.StepNo,
			StepName:       d.StepName,
			Status:         models.StepPlanned,
			MachineDetails: emptySnapshot,
		}
	}

	if err := slf.db.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apperr.AlreadyExistsError{Entity: "job planning", Key: jobID}
		}
		slf.logger.Error().Err(err).Str("jobId", jobID).Msg("Error creating planning")
		return nil, err
	}

	slf.logger.Info().Str("jobId", jobID).Int("steps", len(p.Steps)).Msg("Planning created")
	return &p, nil
}

// GetByJobID retrieves a planning with steps ordered by step number.
func (slf *PlanningService) GetByJobID(jobID string) (*models.JobPlanning, error) {
	p, err := slf.planningRepo.FindByJobID(jobID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a planning, its steps, their ledger rows and audit trail.
// Explicit job deletion is the only path that destroys ledger history.
func (slf *PlanningService) Delete(jobID string) error {
	p, err := slf.planningRepo.FindByJobID(jobID)
	if err != nil {
		return err
	}

	stepIDs := make([]uint, len(p.Steps))
	for i, s := range p.Steps {
		stepIDs[i] = s.ID
	}

	tx := slf.db.Begin()
	if len(stepIDs) > 0 {
		if err := tx.Where("job_step_id IN ?", stepIDs).Delete(&models.MachineAssignment{}).Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Where("job_step_id IN ?", stepIDs).Delete(&models.IntegrityAudit{}).Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Where("job_planning_id = ?", p.ID).Delete(&models.JobStep{}).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Delete(&models.JobPlanning{}, p.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		slf.logger.Error().Err(err).Str("jobId", jobID).Msg("Error deleting planning")
		return err
	}

	slf.logger.Info().Str("jobId", jobID).Msg("Planning deleted")
	return nil
}

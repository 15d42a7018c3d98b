package repo

import (
	"errors"

	"planning/internal/api/apperr"
	"planning/internal/api/models"

	"gorm.io/gorm"
)

// PlanningRepository reads and writes job plannings and their steps. The
// handle is passed in explicitly; transaction-scoped work runs against the tx
// handle instead.
type PlanningRepository struct {
	Db *gorm.DB
}

func NewPlanningRepository(db *gorm.DB) *PlanningRepository {
	return &PlanningRepository{Db: db}
}

// FindByJobID retrieves a planning with its steps ordered by step number.
func (slf *PlanningRepository) FindByJobID(jobID string) (models.JobPlanning, error) {
	return findPlanningByJobID(slf.Db, jobID)
}

// FindByJobIDTx is the transaction-scoped variant of FindByJobID.
func (slf *PlanningRepository) FindByJobIDTx(tx *gorm.DB, jobID string) (models.JobPlanning, error) {
	return findPlanningByJobID(tx, jobID)
}

func findPlanningByJobID(db *gorm.DB, jobID string) (models.JobPlanning, error) {
	var p models.JobPlanning
	err := db.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_no ASC")
		}).
		Where("job_id = ?", jobID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, &apperr.NotFoundError{Entity: "job planning", Key: jobID}
		}
		return p, err
	}
	return p, nil
}

// FindByID retrieves a planning by its internal id, without steps.
func (slf *PlanningRepository) FindByID(id uint) (models.JobPlanning, error) {
	var p models.JobPlanning
	if err := slf.Db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, &apperr.NotFoundError{Entity: "job planning", Key: uintKey(id)}
		}
		return p, err
	}
	return p, nil
}

// FindStepByID retrieves a single step by its opaque identity.
func (slf *PlanningRepository) FindStepByID(stepID uint) (models.JobStep, error) {
	return findStepByID(slf.Db, stepID)
}

// FindStepByIDTx is the transaction-scoped variant of FindStepByID.
func (slf *PlanningRepository) FindStepByIDTx(tx *gorm.DB, stepID uint) (models.JobStep, error) {
	return findStepByID(tx, stepID)
}

func findStepByID(db *gorm.DB, stepID uint) (models.JobStep, error) {
	var step models.JobStep
	if err := db.First(&step, stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return step, &apperr.NotFoundError{Entity: "job step", Key: uintKey(stepID)}
		}
		return step, err
	}
	return step, nil
}

// FindStep retrieves one step of a job by its step number.
func (slf *PlanningRepository) FindStep(jobID string, stepNo int) (models.JobStep, error) {
	p, err := slf.FindByJobID(jobID)
	if err != nil {
		return models.JobStep{}, err
	}
	for _, s := range p.Steps {
		if s.StepNo == stepNo {
			return s, nil
		}
	}
	return models.JobStep{}, &apperr.NotFoundError{Entity: "job step", Key: jobID + "/" + intKey(stepNo)}
}

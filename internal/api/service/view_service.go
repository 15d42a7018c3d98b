package service

import (
	"planning/internal/api/events"
	"planning/internal/api/models"
	"planning/internal/api/repo"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ViewService is the read-only projection served to reporting and debug
// callers. Snapshots are rebuilt from the ledger before being returned, never
// served stale.
type ViewService struct {
	db           *gorm.DB
	planningRepo *repo.PlanningRepository
	reconciler   *ReconcileService
	logger       zerolog.Logger
}

func NewViewService(db *gorm.DB, pub *events.Publisher, logger zerolog.Logger) *ViewService {
	return &ViewService{
		db:           db,
		planningRepo: repo.NewPlanningRepository(db),
		reconciler:   NewReconcileService(db, pub, logger),
		logger:       logger,
	}
}

// GetJobView returns the planning with every step's snapshot freshly
// reconciled in one transaction.
func (slf *ViewService) GetJobView(jobID string) (*models.JobPlanning, error) {
	tx := slf.db.Begin()
	p, err := slf.planningRepo.FindByJobIDTx(tx, jobID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range p.Steps {
		if err := slf.reconciler.RebuildInTx(tx, &p.Steps[i]); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &p, nil
}

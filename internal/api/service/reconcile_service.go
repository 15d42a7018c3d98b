package service

import (
	"fmt"
	"time"

	"planning/internal/api/events"
	"planning/internal/api/models"
	"planning/internal/api/repo"
	"planning/pkg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ReconcileService keeps the machineDetails snapshot a faithful copy of the
// assignment ledger. Every mutation path rebuilds the snapshot inside its own
// transaction; drift detection and repair exist for the histories older write
// paths left behind.
type ReconcileService struct {
	db             *gorm.DB
	planningRepo   *repo.PlanningRepository
	assignmentRepo *repo.AssignmentRepository
	events         *events.Publisher
	mailer         *pkg.Mailer
	alertRcpt      []string
	logger         zerolog.Logger
}

func NewReconcileService(db *gorm.DB, pub *events.Publisher, logger zerolog.Logger) *ReconcileService {
	return &ReconcileService{
		db:             db,
		planningRepo:   repo.NewPlanningRepository(db),
		assignmentRepo: repo.NewAssignmentRepository(db),
		events:         pub,
		logger:         logger,
	}
}

// WithAlerts configures best-effort mail notification for drift repairs.
func (slf *ReconcileService) WithAlerts(mailer *pkg.Mailer, recipients []string) *ReconcileService {
	slf.mailer = mailer
	slf.alertRcpt = recipients
	return slf
}

// SnapshotFromLedger maps ledger rows to snapshot entries in ledger order.
// Pure and deterministic: same rows in, same entries out.
func SnapshotFromLedger(rows []models.MachineAssignment) []models.MachineSnapshot {
	entries := make([]models.MachineSnapshot, len(rows))
	for i, r := range rows {
		entries[i] = models.MachineSnapshot{
			MachineID:   r.MachineID,
			Unit:        r.Unit,
			MachineCode: r.MachineCode,
			MachineType: r.MachineType,
			Status:      r.Status,
		}
	}
	return entries
}

// RebuildInTx regenerates step.MachineDetails from the ledger rows visible to
// tx and persists it. Idempotent: with an unchanged ledger the stored bytes
// do not change.
func (slf *ReconcileService) RebuildInTx(tx *gorm.DB, step *models.JobStep) error {
	rows, err := slf.assignmentRepo.ListByStepTx(tx, step.ID)
	if err != nil {
		return err
	}
	encoded, err := models.EncodeMachineDetails(SnapshotFromLedger(rows))
	if err != nil {
		return err
	}
	if err := tx.Model(&models.JobStep{}).Where("id = ?", step.ID).
		Update("machine_details", encoded).Error; err != nil {
		return err
	}
	step.MachineDetails = encoded
	return nil
}

// Rebuild regenerates the snapshot of one step in its own transaction.
func (slf *ReconcileService) Rebuild(stepID uint) (*models.JobStep, error) {
	unlock := stepLocks.Lock(stepID)
	defer unlock()

	tx := slf.db.Begin()
	step, err := slf.planningRepo.FindStepByIDTx(tx, stepID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := slf.RebuildInTx(tx, &step); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &step, nil
}

// StatusMismatch is one machine whose snapshot status disagrees with the
// ledger.
type StatusMismatch struct {
	MachineID      uint                    `json:"machineId"`
	MachineCode    string                  `json:"machineCode"`
	SnapshotStatus models.AssignmentStatus `json:"snapshotStatus"`
	LedgerStatus   models.AssignmentStatus `json:"ledgerStatus"`
}

// DriftReport is the structured diff between a step's snapshot and its
// ledger. Machines appearing more than once (re-assigned after completion)
// are compared by their most recent entry.
type DriftReport struct {
	StepID           uint                     `json:"stepId"`
	InSync           bool                     `json:"inSync"`
	SnapshotOnly     []models.MachineSnapshot `json:"snapshotOnly"`
	LedgerOnly       []models.MachineSnapshot `json:"ledgerOnly"`
	StatusMismatches []StatusMismatch         `json:"statusMismatches"`
}

// DetectDrift compares the stored snapshot against what a rebuild would
// produce. Read-only: it never repairs, so integrity checks stay off the
// write path.
func (slf *ReconcileService) DetectDrift(stepID uint) (*DriftReport, error) {
	tx := slf.db.Begin()
	step, err := slf.planningRepo.FindStepByIDTx(tx, stepID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	rows, err := slf.assignmentRepo.ListByStepTx(tx, stepID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	stored, err := step.MachineDetails.Entries()
	if err != nil {
		return nil, err
	}
	return diffSnapshots(stepID, stored, SnapshotFromLedger(rows)), nil
}

func diffSnapshots(stepID uint, stored, derived []models.MachineSnapshot) *DriftReport {
	report := &DriftReport{StepID: stepID}

	latest := func(entries []models.MachineSnapshot) map[uint]models.MachineSnapshot {
		m := make(map[uint]models.MachineSnapshot, len(entries))
		for _, e := range entries {
			m[e.MachineID] = e
		}
		return m
	}
	storedBy := latest(stored)
	derivedBy := latest(derived)

	seen := make(map[uint]bool)
	for _, e := range stored {
		if seen[e.MachineID] {
			continue
		}
		seen[e.MachineID] = true
		if _, ok := derivedBy[e.MachineID]; !ok {
			report.SnapshotOnly = append(report.SnapshotOnly, storedBy[e.MachineID])
		}
	}

	seen = make(map[uint]bool)
	for _, e := range derived {
		if seen[e.MachineID] {
			continue
		}
		seen[e.MachineID] = true
		de := derivedBy[e.MachineID]
		se, ok := storedBy[e.MachineID]
		if !ok {
			report.LedgerOnly = append(report.LedgerOnly, de)
			continue
		}
		if se.Status != de.Status {
			report.StatusMismatches = append(report.StatusMismatches, StatusMismatch{
				MachineID:      e.MachineID,
				MachineCode:    de.MachineCode,
				SnapshotStatus: se.Status,
				LedgerStatus:   de.Status,
			})
		}
	}

	report.InSync = len(report.SnapshotOnly) == 0 &&
		len(report.LedgerOnly) == 0 &&
		len(report.StatusMismatches) == 0
	return report
}

// RepairDrift converges snapshot and ledger with the ledger as source of
// truth. Machines present only in the snapshot are backfilled into the
// ledger as COMPLETED rows: the only known historical cause is a step
// completed through an old write path, so the machine clearly finished.
// Every backfill leaves an audit row and is logged, never silent.
func (slf *ReconcileService) RepairDrift(stepID uint, actorID *uint) (*models.JobStep, []models.IntegrityAudit, error) {
	unlock := stepLocks.Lock(stepID)
	defer unlock()

	tx := slf.db.Begin()
	step, err := slf.planningRepo.FindStepByIDTx(tx, stepID)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	rows, err := slf.assignmentRepo.ListByStepTx(tx, stepID)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	stored, err := step.MachineDetails.Entries()
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	report := diffSnapshots(stepID, stored, SnapshotFromLedger(rows))

	var audits []models.IntegrityAudit
	for _, orphan := range report.SnapshotOnly {
		backfill := models.MachineAssignment{
			JobStepID:   stepID,
			MachineID:   orphan.MachineID,
			MachineCode: orphan.MachineCode,
			MachineType: orphan.MachineType,
			Unit:        orphan.Unit,
			Status:      models.AssignmentCompleted,
			Backfilled:  true,
		}
		if err := tx.Create(&backfill).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}

		audit := models.IntegrityAudit{
			ID:          uuid.NewString(),
			JobStepID:   stepID,
			MachineID:   orphan.MachineID,
			MachineCode: orphan.MachineCode,
			Action:      models.AuditActionBackfill,
			Detail: fmt.Sprintf("snapshot listed machine %s with status %s but no ledger row existed; backfilled as COMPLETED",
				orphan.MachineCode, orphan.Status),
			ActorID: actorID,
		}
		if err := tx.Create(&audit).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		audits = append(audits, audit)

		slf.logger.Warn().
			Uint("stepId", stepID).
			Uint("machineId", orphan.MachineID).
			Str("machineCode", orphan.MachineCode).
			Msg("Backfilled missing ledger row from snapshot")
	}

	for _, mm := range report.StatusMismatches {
		audit := models.IntegrityAudit{
			ID:          uuid.NewString(),
			JobStepID:   stepID,
			MachineID:   mm.MachineID,
			MachineCode: mm.MachineCode,
			Action:      models.AuditActionRebuild,
			Detail: fmt.Sprintf("snapshot reported status %s for machine %s but the ledger has %s; snapshot rewritten",
				mm.SnapshotStatus, mm.MachineCode, mm.LedgerStatus),
			ActorID: actorID,
		}
		if err := tx.Create(&audit).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		audits = append(audits, audit)

		slf.logger.Warn().
			Uint("stepId", stepID).
			Str("machineCode", mm.MachineCode).
			Str("snapshotStatus", string(mm.SnapshotStatus)).
			Str("ledgerStatus", string(mm.LedgerStatus)).
			Msg("Rewrote drifted snapshot status from ledger")
	}

	for _, missing := range report.LedgerOnly {
		audit := models.IntegrityAudit{
			ID:          uuid.NewString(),
			JobStepID:   stepID,
			MachineID:   missing.MachineID,
			MachineCode: missing.MachineCode,
			Action:      models.AuditActionRebuild,
			Detail: fmt.Sprintf("machine %s had a ledger row with status %s but was missing from the snapshot; snapshot rewritten",
				missing.MachineCode, missing.Status),
			ActorID: actorID,
		}
		if err := tx.Create(&audit).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		audits = append(audits, audit)

		slf.logger.Warn().
			Uint("stepId", stepID).
			Str("machineCode", missing.MachineCode).
			Msg("Restored snapshot entry missing for ledger row")
	}

	if err := slf.RebuildInTx(tx, &step); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	if !report.InSync {
		slf.publishRepaired(step, len(audits))
		slf.sendRepairAlert(step, audits)
	}
	return &step, audits, nil
}

func (slf *ReconcileService) publishRepaired(step models.JobStep, backfills int) {
	p, err := slf.planningRepo.FindByID(step.JobPlanningID)
	if err != nil {
		slf.logger.Warn().Err(err).Uint("stepId", step.ID).Msg("Cannot resolve job for repair event")
		return
	}
	slf.events.Publish(events.StateChange{
		Type:   events.SnapshotRepaired,
		JobID:  p.JobID,
		StepNo: step.StepNo,
		StepID: step.ID,
		To:     fmt.Sprintf("%d backfilled", backfills),
		At:     time.Now(),
	})
}

func (slf *ReconcileService) sendRepairAlert(step models.JobStep, audits []models.IntegrityAudit) {
	if slf.mailer == nil || len(slf.alertRcpt) == 0 || len(audits) == 0 {
		return
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Snapshot drift repaired on step %d (%s)</h2>
  <p>%d assignment row(s) were backfilled from the denormalized snapshot.</p>
  <ul>`, step.StepNo, step.StepName, len(audits))
	for _, a := range audits {
		body += fmt.Sprintf("<li>machine %s: %s</li>", a.MachineCode, a.Detail)
	}
	body += `</ul>
</body>
</html>`

	if err := slf.mailer.SendHTML(slf.alertRcpt, fmt.Sprintf("[Planning] Drift repaired on step %d", step.StepNo), body); err != nil {
		slf.logger.Warn().Err(err).Uint("stepId", step.ID).Msg("Failed to send drift repair alert")
	}
}

package service

import (
	"testing"

	"planning/internal/api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tamperSnapshot overwrites a step's stored snapshot behind the service
// layer's back, the way the retired write paths used to.
func tamperSnapshot(t *testing.T, s *testStack, stepID uint, entries []models.MachineSnapshot) {
	t.Helper()

	encoded, err := models.EncodeMachineDetails(entries)
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&models.JobStep{}).Where("id = ?", stepID).
		Update("machine_details", encoded).Error)
}

func TestReconcile_RebuildIsIdempotent(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)

	first, err := s.reconciler.Rebuild(stepID)
	require.NoError(t, err)
	second, err := s.reconciler.Rebuild(stepID)
	require.NoError(t, err)

	assert.Equal(t, []byte(first.MachineDetails), []byte(second.MachineDetails),
		"rebuilding from an unchanged ledger must reproduce the exact bytes")
}

func TestReconcile_DetectDrift_InSync(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)
	_, err = s.assignments.UpdateStatus(stepID, m.ID, models.AssignmentInProgress, 0, 42)
	require.NoError(t, err)

	report, err := s.reconciler.DetectDrift(stepID)
	require.NoError(t, err)
	assert.True(t, report.InSync)
	assert.Empty(t, report.SnapshotOnly)
	assert.Empty(t, report.LedgerOnly)
	assert.Empty(t, report.StatusMismatches)
}

func TestReconcile_DetectDrift_ReportsExactDifferences(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m1 := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	m2 := seedMachine(t, s.db, "PRNT-01", "printing", "U2")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m1.ID, 42)
	require.NoError(t, err)
	_, err = s.assignments.Assign(stepID, m2.ID, 42)
	require.NoError(t, err)

	// Snapshot written by a legacy path: m1 carries a stale status, m2 is
	// missing, and a ghost machine appears that the ledger never saw.
	tamperSnapshot(t, s, stepID, []models.MachineSnapshot{
		{MachineID: m1.ID, Unit: "U1", MachineCode: "CORR-01", MachineType: "corrugation", Status: models.AssignmentCompleted},
		{MachineID: 77, Unit: "U9", MachineCode: "GHOST-01", MachineType: "punching", Status: models.AssignmentCompleted},
	})

	report, err := s.reconciler.DetectDrift(stepID)
	require.NoError(t, err)
	assert.False(t, report.InSync)

	require.Len(t, report.SnapshotOnly, 1)
	assert.Equal(t, "GHOST-01", report.SnapshotOnly[0].MachineCode)

	require.Len(t, report.LedgerOnly, 1)
	assert.Equal(t, "PRNT-01", report.LedgerOnly[0].MachineCode)

	require.Len(t, report.StatusMismatches, 1)
	assert.Equal(t, "CORR-01", report.StatusMismatches[0].MachineCode)
	assert.Equal(t, models.AssignmentCompleted, report.StatusMismatches[0].SnapshotStatus)
	assert.Equal(t, models.AssignmentAssigned, report.StatusMismatches[0].LedgerStatus)
}

func TestReconcile_DetectDrift_IsReadOnly(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	stepID := p.Steps[0].ID

	tampered := []models.MachineSnapshot{
		{MachineID: 77, Unit: "U9", MachineCode: "GHOST-01", MachineType: "punching", Status: models.AssignmentCompleted},
	}
	tamperSnapshot(t, s, stepID, tampered)

	_, err := s.reconciler.DetectDrift(stepID)
	require.NoError(t, err)

	var step models.JobStep
	require.NoError(t, s.db.First(&step, stepID).Error)
	entries, err := step.MachineDetails.Entries()
	require.NoError(t, err)
	assert.Equal(t, tampered, entries, "detection must not modify the snapshot")
}

func TestReconcile_RepairDrift_BackfillsOrphans(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	stepID := p.Steps[0].ID

	tamperSnapshot(t, s, stepID, []models.MachineSnapshot{
		{MachineID: 77, Unit: "U9", MachineCode: "GHOST-01", MachineType: "punching", Status: models.AssignmentInProgress},
	})

	actor := uint(7)
	step, audits, err := s.reconciler.RepairDrift(stepID, &actor)
	require.NoError(t, err, "Failed to repair drifted step")

	// The orphan lands in the ledger as a completed, flagged row.
	rows, err := s.assignments.List(stepID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(77), rows[0].MachineID)
	assert.Equal(t, models.AssignmentCompleted, rows[0].Status)
	assert.True(t, rows[0].Backfilled)

	// Every backfill is audited.
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditActionBackfill, audits[0].Action)
	assert.Equal(t, "GHOST-01", audits[0].MachineCode)
	assert.Contains(t, audits[0].Detail, "GHOST-01")
	require.NotNil(t, audits[0].ActorID)
	assert.Equal(t, actor, *audits[0].ActorID)
	_, err = uuid.Parse(audits[0].ID)
	assert.NoError(t, err)

	// And the snapshot now reads COMPLETED for the backfilled machine.
	entries, err := step.MachineDetails.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AssignmentCompleted, entries[0].Status)

	report, err := s.reconciler.DetectDrift(stepID)
	require.NoError(t, err)
	assert.True(t, report.InSync)
}

func TestReconcile_RepairDrift_LedgerWinsOnMismatch(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)
	_, err = s.assignments.UpdateStatus(stepID, m.ID, models.AssignmentInProgress, 0, 42)
	require.NoError(t, err)

	tamperSnapshot(t, s, stepID, []models.MachineSnapshot{
		{MachineID: m.ID, Unit: "U1", MachineCode: "CORR-01", MachineType: "corrugation", Status: models.AssignmentCompleted},
	})

	step, audits, err := s.reconciler.RepairDrift(stepID, nil)
	require.NoError(t, err)

	// No backfill, but the rewrite itself leaves an audit trail.
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditActionRebuild, audits[0].Action)
	assert.Equal(t, "CORR-01", audits[0].MachineCode)
	assert.Contains(t, audits[0].Detail, string(models.AssignmentCompleted))
	assert.Contains(t, audits[0].Detail, string(models.AssignmentInProgress))

	entries, err := step.MachineDetails.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AssignmentInProgress, entries[0].Status,
		"ledger status must overwrite the drifted snapshot")
}

func TestReconcile_RepairDrift_RestoresMissingSnapshotEntry(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)

	// A legacy writer wiped the snapshot while the ledger row survived.
	tamperSnapshot(t, s, stepID, []models.MachineSnapshot{})

	step, audits, err := s.reconciler.RepairDrift(stepID, nil)
	require.NoError(t, err)

	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditActionRebuild, audits[0].Action)
	assert.Equal(t, "CORR-01", audits[0].MachineCode)

	entries, err := step.MachineDetails.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AssignmentAssigned, entries[0].Status)
}

func TestReconcile_RepairDrift_NoDriftNoChanges(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)

	_, audits, err := s.reconciler.RepairDrift(stepID, nil)
	require.NoError(t, err)
	assert.Empty(t, audits)

	var count int64
	require.NoError(t, s.db.Model(&models.IntegrityAudit{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestView_ServesFreshSnapshot(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	stepID := p.Steps[0].ID

	_, err := s.assignments.Assign(stepID, m.ID, 42)
	require.NoError(t, err)

	// Stale snapshot left behind by an out-of-band writer.
	tamperSnapshot(t, s, stepID, []models.MachineSnapshot{})

	view, err := s.views.GetJobView("J1")
	require.NoError(t, err)
	require.Len(t, view.Steps, 2)

	entries, err := view.Steps[0].MachineDetails.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1, "reads rebuild the snapshot before serving")
	assert.Equal(t, "CORR-01", entries[0].MachineCode)
	assert.Equal(t, models.AssignmentAssigned, entries[0].Status)
}

package service

import (
	"errors"
	"testing"
	"time"

	"planning/internal/api/apperr"
	"planning/internal/api/models"
	"planning/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_Start(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	step, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err, "Failed to start first step")
	assert.Equal(t, models.StepActive, step.Status)
	require.NotNil(t, step.StartDate)
	assert.WithinDuration(t, time.Now(), *step.StartDate, 5*time.Second)
}

func TestStep_Start_BlockedByStrictSequencing(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)

	// Step 1 is ACTIVE but not STOPPED, so strict sequencing blocks step 2.
	_, err = s.steps.Start("J1", 2, 42)
	require.Error(t, err)

	var invalid *apperr.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, invalid.StepNo)
	assert.Contains(t, invalid.Reason, "step 1")
}

func TestStep_Start_AlreadyActive(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)

	_, err = s.steps.Start("J1", 1, 42)
	require.Error(t, err)

	var invalid *apperr.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestStep_Start_PipelinePolicy(t *testing.T) {
	s := newTestStack(t)

	_, err := s.plannings.Create("J2", models.DemandNormal, models.SequencingPipeline, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
		{StepNo: 2, StepName: "Printing"},
	})
	require.NoError(t, err)

	// Pipeline sequencing only requires earlier steps to have started.
	_, err = s.steps.Start("J2", 1, 42)
	require.NoError(t, err)
	_, err = s.steps.Start("J2", 2, 42)
	require.NoError(t, err)
}

func TestStep_Start_ParallelPolicy(t *testing.T) {
	s := newTestStack(t)

	_, err := s.plannings.Create("J3", models.DemandNormal, models.SequencingParallel, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
		{StepNo: 2, StepName: "Printing"},
	})
	require.NoError(t, err)

	_, err = s.steps.Start("J3", 2, 42)
	require.NoError(t, err, "parallel sequencing must not block a later step")
}

func TestStep_Stop(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)

	step, err := s.steps.Stop("J1", 1, nil, 42)
	require.NoError(t, err, "Failed to stop step with no machines")
	assert.Equal(t, models.StepStopped, step.Status)
	require.NotNil(t, step.EndDate)
}

func TestStep_Stop_ExplicitEndDate(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)

	end := time.Now().Add(-30 * time.Minute).Truncate(time.Second)
	step, err := s.steps.Stop("J1", 1, pkg.ToPtr(end), 42)
	require.NoError(t, err)
	require.NotNil(t, step.EndDate)
	assert.True(t, step.EndDate.Equal(end))
}

func TestStep_Stop_NotActive(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Stop("J1", 1, nil, 42)
	require.Error(t, err)

	var invalid *apperr.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, string(models.StepPlanned), invalid.From)
}

func TestStep_Stop_IncompleteMachineWork(t *testing.T) {
	s := newTestStack(t)
	p := twoStepPlanning(t, s, "J1")
	m1 := seedMachine(t, s.db, "CORR-01", "corrugation", "U1")
	m2 := seedMachine(t, s.db, "CORR-02", "corrugation", "U1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)

	stepID := p.Steps[0].ID
	_, err = s.assignments.Assign(stepID, m1.ID, 42)
	require.NoError(t, err)
	_, err = s.assignments.Assign(stepID, m2.ID, 42)
	require.NoError(t, err)

	// Finish only the first machine.
	_, err = s.assignments.UpdateStatus(stepID, m1.ID, models.AssignmentCompleted, 0, 42)
	require.NoError(t, err)

	_, err = s.steps.Stop("J1", 1, nil, 42)
	require.Error(t, err)

	var incomplete *apperr.IncompleteMachineWorkError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"CORR-02"}, incomplete.Outstanding)

	// After the second machine finishes, the stop goes through.
	_, err = s.assignments.UpdateStatus(stepID, m2.ID, models.AssignmentCompleted, 0, 42)
	require.NoError(t, err)

	step, err := s.steps.Stop("J1", 1, nil, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StepStopped, step.Status)
}

func TestStep_Reopen(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)
	_, err = s.steps.Stop("J1", 1, nil, 42)
	require.NoError(t, err)

	step, err := s.steps.Reopen("J1", 1, 42)
	require.NoError(t, err, "Failed to reopen stopped step")
	assert.Equal(t, models.StepActive, step.Status)
	assert.Nil(t, step.EndDate)
}

func TestStep_Reopen_NotStopped(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Reopen("J1", 1, 42)
	require.Error(t, err)

	var invalid *apperr.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

// Stopping step 1 is what unblocks step 2 under strict sequencing.
func TestStep_StrictSequencing_UnblocksAfterStop(t *testing.T) {
	s := newTestStack(t)
	twoStepPlanning(t, s, "J1")

	_, err := s.steps.Start("J1", 1, 42)
	require.NoError(t, err)
	_, err = s.steps.Stop("J1", 1, nil, 42)
	require.NoError(t, err)

	step, err := s.steps.Start("J1", 2, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StepActive, step.Status)
}

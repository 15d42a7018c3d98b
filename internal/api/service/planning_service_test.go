package service

import (
	"errors"
	"testing"

	"planning/internal/api/apperr"
	"planning/internal/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanning_Create(t *testing.T) {
	s := newTestStack(t)

	p, err := s.plannings.Create("JOB-1001", models.DemandUrgent, models.SequencingStrict, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
		{StepNo: 2, StepName: "Printing"},
		{StepNo: 3, StepName: "Punching"},
		{StepNo: 4, StepName: "SideFlapPasting"},
	})
	require.NoError(t, err, "Failed to create planning")
	require.NotNil(t, p)
	require.NotZero(t, p.ID)

	assert.Equal(t, "JOB-1001", p.JobID)
	assert.Equal(t, models.DemandUrgent, p.JobDemand)
	require.Len(t, p.Steps, 4)
	for i, step := range p.Steps {
		assert.Equal(t, i+1, step.StepNo)
		assert.Equal(t, models.StepPlanned, step.Status)
		assert.Nil(t, step.StartDate)
		assert.Nil(t, step.EndDate)

		entries, err := step.MachineDetails.Entries()
		require.NoError(t, err)
		assert.Empty(t, entries, "new step must start with an empty snapshot")
	}
}

func TestPlanning_Create_DuplicateStepNo(t *testing.T) {
	s := newTestStack(t)

	_, err := s.plannings.Create("JOB-1002", models.DemandNormal, models.SequencingStrict, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
		{StepNo: 1, StepName: "Printing"},
	})
	require.Error(t, err)

	var dup *apperr.DuplicateStepNoError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1, dup.StepNo)
}

func TestPlanning_Create_NonContiguousSteps(t *testing.T) {
	s := newTestStack(t)

	_, err := s.plannings.Create("JOB-1003", models.DemandNormal, models.SequencingStrict, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
		{StepNo: 3, StepName: "Punching"},
	})
	require.Error(t, err)

	var gap *apperr.InvalidStepSequenceError
	require.True(t, errors.As(err, &gap))
	assert.Equal(t, 2, gap.Expected)
	assert.Equal(t, 3, gap.Got)
}

func TestPlanning_Create_DuplicateJobID(t *testing.T) {
	s := newTestStack(t)

	twoStepPlanning(t, s, "JOB-1004")

	_, err := s.plannings.Create("JOB-1004", models.DemandNormal, models.SequencingStrict, []models.StepDef{
		{StepNo: 1, StepName: "Corrugation"},
	})
	require.Error(t, err)

	var exists *apperr.AlreadyExistsError
	assert.True(t, errors.As(err, &exists))
}

func TestPlanning_GetByJobID(t *testing.T) {
	s := newTestStack(t)

	created := twoStepPlanning(t, s, "JOB-1005")

	found, err := s.plannings.GetByJobID("JOB-1005")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	require.Len(t, found.Steps, 2)
	assert.Equal(t, "PaperStore", found.Steps[0].StepName)
	assert.Equal(t, "Printing", found.Steps[1].StepName)
}

func TestPlanning_GetByJobID_NotFound(t *testing.T) {
	s := newTestStack(t)

	_, err := s.plannings.GetByJobID("JOB-MISSING")
	require.Error(t, err)

	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestPlanning_Delete(t *testing.T) {
	s := newTestStack(t)

	p := twoStepPlanning(t, s, "JOB-1006")
	m := seedMachine(t, s.db, "PM-01", "printing", "U1")

	_, err := s.assignments.Assign(p.Steps[0].ID, m.ID, 7)
	require.NoError(t, err)

	require.NoError(t, s.plannings.Delete("JOB-1006"))

	_, err = s.plannings.GetByJobID("JOB-1006")
	require.Error(t, err)

	var count int64
	require.NoError(t, s.db.Model(&models.MachineAssignment{}).Count(&count).Error)
	assert.Zero(t, count, "ledger rows must be removed with the planning")
}

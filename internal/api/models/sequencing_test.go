package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequencingPolicy(t *testing.T) {
	p, ok := ParseSequencingPolicy("")
	require.True(t, ok)
	assert.Equal(t, SequencingStrict, p, "empty policy defaults to strict")

	_, ok = ParseSequencingPolicy("roundrobin")
	assert.False(t, ok)
}

func TestBlockingStep(t *testing.T) {
	steps := []JobStep{
		{StepNo: 1, Status: StepStopped},
		{StepNo: 2, Status: StepActive},
		{StepNo: 3, Status: StepPlanned},
		{StepNo: 4, Status: StepPlanned},
	}

	// Strict: step 2 is the earliest one not yet stopped.
	blocking := SequencingStrict.BlockingStep(steps, 4)
	require.NotNil(t, blocking)
	assert.Equal(t, 2, blocking.StepNo)

	assert.Nil(t, SequencingStrict.BlockingStep(steps, 2))

	// Pipeline: only never-started steps block.
	blocking = SequencingPipeline.BlockingStep(steps, 4)
	require.NotNil(t, blocking)
	assert.Equal(t, 3, blocking.StepNo)
	assert.Nil(t, SequencingPipeline.BlockingStep(steps, 3))

	assert.Nil(t, SequencingParallel.BlockingStep(steps, 4))
}

func TestAssignmentStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, AssignmentAssigned.CanAdvanceTo(AssignmentInProgress))
	assert.True(t, AssignmentAssigned.CanAdvanceTo(AssignmentCompleted))
	assert.True(t, AssignmentInProgress.CanAdvanceTo(AssignmentCompleted))

	assert.False(t, AssignmentInProgress.CanAdvanceTo(AssignmentAssigned))
	assert.False(t, AssignmentCompleted.CanAdvanceTo(AssignmentInProgress))
	assert.False(t, AssignmentCompleted.CanAdvanceTo(AssignmentCompleted))
	assert.False(t, AssignmentAssigned.CanAdvanceTo(AssignmentAssigned))
}

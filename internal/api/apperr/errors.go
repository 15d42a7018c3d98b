// Package apperr holds the structured failure kinds the planning core
// reports to its callers. Every error carries enough detail for the caller to
// act; nothing here is ever swallowed or replaced with a guessed default.
package apperr

import (
	"fmt"
	"strings"
)

// NotFoundError reports a missing job, step or machine.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// AlreadyExistsError reports a uniqueness violation on creation.
type AlreadyExistsError struct {
	Entity string
	Key    string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Key)
}

// InvalidTransitionError reports an illegal step status change.
type InvalidTransitionError struct {
	JobID  string
	StepNo int
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("step %d of job %s cannot go from %s to %s", e.StepNo, e.JobID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InvalidMachineTransitionError reports an illegal assignment status change.
type InvalidMachineTransitionError struct {
	StepID    uint
	MachineID uint
	From      string
	To        string
}

func (e *InvalidMachineTransitionError) Error() string {
	return fmt.Sprintf("machine %d on step %d cannot go from %s to %s", e.MachineID, e.StepID, e.From, e.To)
}

// DuplicateStepNoError reports a repeated step number in a planning request.
type DuplicateStepNoError struct {
	StepNo int
}

func (e *DuplicateStepNoError) Error() string {
	return fmt.Sprintf("duplicate step number %d", e.StepNo)
}

// InvalidStepSequenceError reports non-contiguous step numbering.
type InvalidStepSequenceError struct {
	Expected int
	Got      int
}

func (e *InvalidStepSequenceError) Error() string {
	return fmt.Sprintf("step numbers must be contiguous: expected %d, got %d", e.Expected, e.Got)
}

// DuplicateAssignmentError reports an attempt to assign a machine that is
// still working the step.
type DuplicateAssignmentError struct {
	StepID    uint
	MachineID uint
	Status    string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("machine %d is already assigned to step %d (status %s)", e.MachineID, e.StepID, e.Status)
}

// IncompleteMachineWorkError reports a step-completion attempt while machines
// are still outstanding. Outstanding holds the machine codes so the caller
// can report specifics.
type IncompleteMachineWorkError struct {
	StepID      uint
	Outstanding []string
}

func (e *IncompleteMachineWorkError) Error() string {
	return fmt.Sprintf("step %d has unfinished machines: %s", e.StepID, strings.Join(e.Outstanding, ", "))
}

// VersionConflictError reports a lost optimistic-concurrency race. The caller
// must re-read the assignment and retry with Actual.
type VersionConflictError struct {
	StepID    uint
	MachineID uint
	Expected  int
	Actual    int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("machine %d on step %d was modified concurrently: expected version %d, current is %d",
		e.MachineID, e.StepID, e.Expected, e.Actual)
}

// TimeoutError reports a collaborator that did not answer within its bound.
// The core never retries on its own; retry policy belongs to the caller.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ValidationError reports a rejected input value at the boundary, such as an
// unrecognized status string.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

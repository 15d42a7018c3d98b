package models

// SequencingPolicy decides whether a step may start given the state of the
// steps before it. It is data on the planning, not logic baked into the step
// state machine, so plants with parallel lanes can pick a looser rule.
type SequencingPolicy string

const (
	// SequencingStrict requires every earlier step to be STOPPED first.
	SequencingStrict SequencingPolicy = "strict"
	// SequencingPipeline only requires earlier steps to have started.
	SequencingPipeline SequencingPolicy = "pipeline"
	// SequencingParallel imposes no ordering between steps.
	SequencingParallel SequencingPolicy = "parallel"
)

func ParseSequencingPolicy(raw string) (SequencingPolicy, bool) {
	if raw == "" {
		return SequencingStrict, true
	}
	switch SequencingPolicy(raw) {
	case SequencingStrict, SequencingPipeline, SequencingParallel:
		return SequencingPolicy(raw), true
	}
	return "", false
}

// BlockingStep returns the earliest step that prevents stepNo from starting
// under this policy, or nil when the step may start. steps must belong to one
// planning; order does not matter.
func (p SequencingPolicy) BlockingStep(steps []JobStep, stepNo int) *JobStep {
	if p == SequencingParallel {
		return nil
	}
	var blocking *JobStep
	for i := range steps {
		s := &steps[i]
		if s.StepNo >= stepNo {
			continue
		}
		blocked := false
		switch p {
		case SequencingStrict:
			blocked = s.Status != StepStopped
		case SequencingPipeline:
			blocked = s.Status == StepPlanned
		}
		if blocked && (blocking == nil || s.StepNo < blocking.StepNo) {
			blocking = s
		}
	}
	return blocking
}

package request

// StepDef defines one production step at planning time.
type StepDef struct {
	StepNo   int    `json:"stepNo" validate:"required,min=1"`
	StepName string `json:"stepName" validate:"required"`
}

type CreatePlanning struct {
	JobID            string    `json:"jobId" validate:"required"`
	JobDemand        string    `json:"jobDemand"`
	SequencingPolicy string    `json:"sequencingPolicy"` // strict, pipeline or parallel (default: strict)
	Steps            []StepDef `json:"steps" validate:"required,min=1,dive"`
}

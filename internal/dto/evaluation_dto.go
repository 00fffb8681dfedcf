package dto

// EvaluationEnqueuedResponse acknowledges that an evaluation job was queued.
type EvaluationEnqueuedResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Status       string `json:"status"`
}

// PlagiarismRecomputeResponse acknowledges a cohort-wide recompute request.
type PlagiarismRecomputeResponse struct {
	AssignmentID uint   `json:"assignment_id"`
	Status       string `json:"status"`
	CohortSize   int    `json:"cohort_size"`
}

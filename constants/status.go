package constants

// JobState is the canonical lifecycle state for a comparison job.
type JobState string

// Stable values (persisted as these exact strings).
const (
	JobStatePending   JobState = "PENDING"   // accepted, waiting for a worker
	JobStateRunning   JobState = "RUNNING"   // pipeline in progress
	JobStateCompleted JobState = "COMPLETED" // artifact written, terminal
	JobStateFailed    JobState = "FAILED"    // terminal failure
)

// Terminal reports whether a job in this state can never change again.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// RecordSource tags a staffing record with the side it came from.
type RecordSource string

const (
	SourceTemplate RecordSource = "TEMPLATE" // budgeted/planned staffing
	SourceActual   RecordSource = "ACTUAL"   // recorded staffing
)

// CompareStatus classifies a comparison group by which sides contributed.
type CompareStatus string

const (
	CompareMatched      CompareStatus = "MATCHED"
	CompareTemplateOnly CompareStatus = "TEMPLATE_ONLY"
	CompareActualOnly   CompareStatus = "ACTUAL_ONLY"
)

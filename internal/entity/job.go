package entity

import (
	"time"

	"github.com/itamaramsalem1/hppdauto-web/constants"
)

// Job represents one submitted comparison run for transfer between layers.
// The registry hands out copies; callers never share memory with the
// manager's own Job.
type Job struct {
	ID            string             `json:"id"`
	State         constants.JobState `json:"state"`
	Percent       int                `json:"percent"`
	StatusMessage string             `json:"status_message"`
	TargetDate    time.Time          `json:"target_date"`
	ResultPath    string             `json:"result_path,omitempty"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty"`
}

// Progress is the read-only view a poller gets.
type Progress struct {
	Percent           int    `json:"percent"`
	StatusMessage     string `json:"status_message"`
	Completed         bool   `json:"completed"`
	ArtifactAvailable bool   `json:"artifact_available"`
	Error             string `json:"error,omitempty"`
}

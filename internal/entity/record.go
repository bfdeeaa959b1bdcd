package entity

import (
	"time"

	"github.com/itamaramsalem1/hppdauto-web/constants"
)

// StaffingRecord is one normalized row of staffing input, template or actual.
type StaffingRecord struct {
	Unit        string                 `json:"unit"`
	Shift       string                 `json:"shift"`
	Date        time.Time              `json:"date"` // date-only, UTC midnight
	Role        string                 `json:"role"`
	Hours       float64                `json:"hours"`
	PatientDays float64                `json:"patient_days"`
	Source      constants.RecordSource `json:"source"`
}

// Warning records a per-file or per-row problem that did not abort the job.
// It surfaces on the Exceptions sheet of the result workbook.
type Warning struct {
	File     string `json:"file"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
}

// Warning categories.
const (
	WarnCategoryHiddenFile = "Hidden File"
	WarnCategoryFileError  = "File Error"
	WarnCategoryBadRow     = "Invalid Row"
	WarnCategoryUnmatched  = "Unmatched Group"
)

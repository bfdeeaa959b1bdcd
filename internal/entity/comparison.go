package entity

import (
	"time"

	"github.com/itamaramsalem1/hppdauto-web/constants"
)

// Key identifies one comparable staffing group. Unit and Shift are held in
// normalized form so spreadsheet formatting noise never splits a group.
type Key struct {
	Unit  string    `json:"unit"`
	Shift string    `json:"shift"`
	Date  time.Time `json:"date"`
}

// Comparison pairs the template and actual sides of one key.
//
// HPPD and variance fields are pointers: nil means undefined (missing side
// or zero patient-days), which must never collapse to zero downstream.
type Comparison struct {
	Key          Key                     `json:"key"`
	DisplayUnit  string                  `json:"display_unit"`
	DisplayShift string                  `json:"display_shift"`
	Status       constants.CompareStatus `json:"status"`

	TemplateHours       float64  `json:"template_hours"`
	ActualHours         float64  `json:"actual_hours"`
	TemplatePatientDays float64  `json:"template_patient_days"`
	ActualPatientDays   float64  `json:"actual_patient_days"`
	TemplateHPPD        *float64 `json:"template_hppd,omitempty"`
	ActualHPPD          *float64 `json:"actual_hppd,omitempty"`
	HPPDVariance        *float64 `json:"hppd_variance,omitempty"`

	// Roles splits the key's hours by staff role, sorted by role name.
	Roles []RoleComparison `json:"roles,omitempty"`
}

// RoleComparison is one role's slice of a comparison key. Role HPPD uses
// the owning side's patient-days as denominator, so the role values of a
// key sum to its total HPPD.
type RoleComparison struct {
	Role            string   `json:"role"`
	TemplateHours   float64  `json:"template_hours"`
	ActualHours     float64  `json:"actual_hours"`
	TemplatePresent bool     `json:"template_present"`
	ActualPresent   bool     `json:"actual_present"`
	TemplateHPPD    *float64 `json:"template_hppd,omitempty"`
	ActualHPPD      *float64 `json:"actual_hppd,omitempty"`
	HPPDVariance    *float64 `json:"hppd_variance,omitempty"`
}

// RunResult is everything the report writer needs from one comparison run.
type RunResult struct {
	TargetDate    time.Time    `json:"target_date"`
	Comparisons   []Comparison `json:"comparisons"`
	Warnings      []Warning    `json:"warnings"`
	TemplateFiles int          `json:"template_files"`
	ActualFiles   int          `json:"actual_files"`
	RecordCount   int          `json:"record_count"`
}

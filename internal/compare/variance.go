package compare

import "github.com/itamaramsalem1/hppdauto-web/internal/entity"

// HPPD divides hours by patient-days. A zero or negative denominator means
// the value is undefined, returned as nil rather than zero so "no data"
// can never read as "no variance".
func HPPD(hours, patientDays float64) *float64 {
	if patientDays <= 0 {
		return nil
	}
	v := hours / patientDays
	return &v
}

// computeVariance fills the HPPD fields of a comparison. The sign
// convention is actual minus template: positive means actual staffing
// exceeded the plan. Undefined operands propagate as undefined variance.
func computeVariance(c *entity.Comparison, templatePresent, actualPresent bool) {
	if templatePresent {
		c.TemplateHPPD = HPPD(c.TemplateHours, c.TemplatePatientDays)
	}
	if actualPresent {
		c.ActualHPPD = HPPD(c.ActualHours, c.ActualPatientDays)
	}
	if c.TemplateHPPD != nil && c.ActualHPPD != nil {
		v := *c.ActualHPPD - *c.TemplateHPPD
		c.HPPDVariance = &v
	}
}

// computeRoleVariance fills one role slice's HPPD fields, following the
// same sign convention and nil propagation as the key-level variance.
func computeRoleVariance(rc *entity.RoleComparison, templatePatientDays, actualPatientDays float64) {
	if rc.TemplatePresent {
		rc.TemplateHPPD = HPPD(rc.TemplateHours, templatePatientDays)
	}
	if rc.ActualPresent {
		rc.ActualHPPD = HPPD(rc.ActualHours, actualPatientDays)
	}
	if rc.TemplateHPPD != nil && rc.ActualHPPD != nil {
		v := *rc.ActualHPPD - *rc.TemplateHPPD
		rc.HPPDVariance = &v
	}
}

// Package compare pairs template staffing groups against actual ones and
// computes HPPD variance.
package compare

import (
	"sort"
	"strings"
	"unicode"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

// side accumulates one input set's contribution to a key.
type side struct {
	hours       float64
	patientDays float64
	present     bool
}

type roleGroup struct {
	display         string
	templateHours   float64
	actualHours     float64
	templatePresent bool
	actualPresent   bool
}

type group struct {
	displayUnit  string
	displayShift string
	template     side
	actual       side
	roles        map[string]*roleGroup
}

// Match groups both record sets by normalized (unit, shift, date), sums
// hours and patient-days per side, and emits exactly one Comparison per
// key observed in either set, sorted by unit, shift, date.
func Match(templates, actuals []entity.StaffingRecord) []entity.Comparison {
	groups := make(map[entity.Key]*group)

	accumulate := func(records []entity.StaffingRecord, template bool) {
		for _, rec := range records {
			key := entity.Key{
				Unit:  NormalizeName(rec.Unit),
				Shift: NormalizeName(rec.Shift),
				Date:  rec.Date,
			}
			g, ok := groups[key]
			if !ok {
				g = &group{
					displayUnit:  strings.TrimSpace(rec.Unit),
					displayShift: strings.TrimSpace(rec.Shift),
					roles:        make(map[string]*roleGroup),
				}
				groups[key] = g
			}
			s := &g.actual
			if template {
				s = &g.template
			}
			s.present = true
			s.hours += rec.Hours
			s.patientDays += rec.PatientDays

			roleKey := NormalizeName(rec.Role)
			rg, ok := g.roles[roleKey]
			if !ok {
				rg = &roleGroup{display: strings.TrimSpace(rec.Role)}
				g.roles[roleKey] = rg
			}
			if template {
				rg.templatePresent = true
				rg.templateHours += rec.Hours
			} else {
				rg.actualPresent = true
				rg.actualHours += rec.Hours
			}
		}
	}
	// Templates first so their spelling wins the display columns.
	accumulate(templates, true)
	accumulate(actuals, false)

	out := make([]entity.Comparison, 0, len(groups))
	for key, g := range groups {
		c := entity.Comparison{
			Key:                 key,
			DisplayUnit:         g.displayUnit,
			DisplayShift:        g.displayShift,
			Status:              status(g),
			TemplateHours:       g.template.hours,
			ActualHours:         g.actual.hours,
			TemplatePatientDays: g.template.patientDays,
			ActualPatientDays:   g.actual.patientDays,
		}
		computeVariance(&c, g.template.present, g.actual.present)
		c.Roles = roleBreakdown(g)
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		return a.Date.Before(b.Date)
	})
	return out
}

// roleBreakdown turns a group's role accumulators into sorted
// RoleComparisons. Each role's HPPD shares the owning side's patient-days
// denominator, so role HPPDs within a key sum to the key's total.
func roleBreakdown(g *group) []entity.RoleComparison {
	out := make([]entity.RoleComparison, 0, len(g.roles))
	for _, rg := range g.roles {
		rc := entity.RoleComparison{
			Role:            rg.display,
			TemplateHours:   rg.templateHours,
			ActualHours:     rg.actualHours,
			TemplatePresent: rg.templatePresent,
			ActualPresent:   rg.actualPresent,
		}
		computeRoleVariance(&rc, g.template.patientDays, g.actual.patientDays)
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

func status(g *group) constants.CompareStatus {
	switch {
	case g.template.present && g.actual.present:
		return constants.CompareMatched
	case g.template.present:
		return constants.CompareTemplateOnly
	default:
		return constants.CompareActualOnly
	}
}

// NormalizeName collapses spreadsheet formatting noise out of a grouping
// key: lowercase, punctuation removed, runs of whitespace folded to one
// space. "I.C.U." and "icu" land on the same key.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

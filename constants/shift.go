package constants

import "strings"

// Canonical shift labels. Site-defined labels outside this set pass
// through normalized, so two sheets using the same custom label still
// compare against each other.
const (
	ShiftDay     = "Day"
	ShiftEvening = "Evening"
	ShiftNight   = "Night"
)

var shiftAliases = map[string]string{
	"d":        ShiftDay,
	"day":      ShiftDay,
	"days":     ShiftDay,
	"am":       ShiftDay,
	"7-3":      ShiftDay,
	"e":        ShiftEvening,
	"eve":      ShiftEvening,
	"evening":  ShiftEvening,
	"evenings": ShiftEvening,
	"pm":       ShiftEvening,
	"3-11":     ShiftEvening,
	"n":        ShiftNight,
	"noc":      ShiftNight,
	"nocs":     ShiftNight,
	"night":    ShiftNight,
	"nights":   ShiftNight,
	"11-7":     ShiftNight,
}

// CanonicalShift maps common shift spellings onto the canonical labels.
// Unrecognized labels are returned trimmed but otherwise untouched.
func CanonicalShift(label string) string {
	trimmed := strings.TrimSpace(label)
	if canon, ok := shiftAliases[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return trimmed
}

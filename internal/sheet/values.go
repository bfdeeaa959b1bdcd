package sheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// parseHours converts a cell to a float, tolerating text formatting like
// thousands separators and stray whitespace.
func parseHours(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimSuffix(value, "%")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006/01/02",
	"1/2/2006 3:04 PM",
	"01/02/2006 03:04 PM",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseDate converts a cell to a UTC date. Excel serials survive a round
// trip through GetRows as plain numbers, so those are handled first.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		// Serial range covering 1951..2078 keeps plain years and row
		// numbers from being mistaken for dates.
		if serial >= 19000 && serial <= 65000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return dateOnly(parsed), true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return dateOnly(parsed), true
		}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return dateOnly(parsed), true
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

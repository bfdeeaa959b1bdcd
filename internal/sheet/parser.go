package sheet

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

// Parser extracts staffing records from one spreadsheet at a time.
type Parser struct {
	columns  *ColumnMap
	scanRows int
	logger   *zap.Logger
}

func NewParser(columns *ColumnMap, scanRows int, logger *zap.Logger) *Parser {
	if columns == nil {
		columns = DefaultColumnMap()
	}
	if scanRows <= 0 {
		scanRows = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{columns: columns, scanRows: scanRows, logger: logger}
}

// ParseFile reads one spreadsheet and returns the staffing records whose
// date matches targetDate. Rows for other dates belong to a different
// reporting period and are dropped without a warning. Row-level problems
// become warnings; a sheet where the required columns cannot be located
// fails with ErrMalformedSheet, which the caller treats as per-file.
func (p *Parser) ParseFile(filename string, data []byte, source constants.RecordSource, targetDate time.Time) ([]entity.StaffingRecord, []entity.Warning, error) {
	rows, err := ReadRows(filename, data)
	if err != nil {
		return nil, nil, common.NewAppError("SHEET_READ",
			fmt.Sprintf("%s: %v", filename, err), common.ErrMalformedSheet)
	}

	layout, err := p.columns.Resolve(rows, p.scanRows)
	if err != nil {
		return nil, nil, common.NewAppError("SHEET_HEADER",
			fmt.Sprintf("%s: %v", filename, err), common.ErrMalformedSheet)
	}

	target := dateOnly(targetDate)
	var records []entity.StaffingRecord
	var warnings []entity.Warning

	for r := layout.HeaderRow + 1; r < len(rows); r++ {
		row := rows[r]
		if isBlank(row) {
			continue
		}

		unit := cellValue(row, layout.Index[ColUnit])
		if unit == "" {
			warnings = append(warnings, rowWarning(filename, r, "missing unit"))
			continue
		}

		date, ok := parseDate(cellValue(row, layout.Index[ColDate]))
		if !ok {
			warnings = append(warnings, rowWarning(filename, r, "unparsable date"))
			continue
		}
		if !date.Equal(target) {
			continue
		}

		hours, ok := parseHours(cellValue(row, layout.Index[ColHours]))
		if !ok {
			warnings = append(warnings, rowWarning(filename, r, "unparsable hours"))
			continue
		}
		if hours < 0 {
			warnings = append(warnings, rowWarning(filename, r, "negative hours"))
			continue
		}

		var patientDays float64
		if layout.Has(ColPatientDays) {
			if raw := cellValue(row, layout.Index[ColPatientDays]); raw != "" {
				pd, ok := parseHours(raw)
				switch {
				case !ok:
					// Record kept with undefined HPPD; the warning is what
					// explains the N/A on the report.
					warnings = append(warnings, rowWarning(filename, r, "unparsable patient days"))
				case pd < 0:
					warnings = append(warnings, rowWarning(filename, r, "negative patient days"))
					continue
				default:
					patientDays = pd
				}
			}
		}

		role := constants.RoleUnspecified
		if layout.Has(ColRole) {
			if v := cellValue(row, layout.Index[ColRole]); v != "" {
				role = v
			}
		}

		records = append(records, entity.StaffingRecord{
			Unit:        unit,
			Shift:       constants.CanonicalShift(cellValue(row, layout.Index[ColShift])),
			Date:        date,
			Role:        role,
			Hours:       hours,
			PatientDays: patientDays,
			Source:      source,
		})
	}

	p.logger.Info("sheet.parse.ok",
		zap.String("file", filename),
		zap.String("source", string(source)),
		zap.Int("header_row", layout.HeaderRow),
		zap.Int("records", len(records)),
		zap.Int("warnings", len(warnings)),
	)
	return records, warnings, nil
}

func rowWarning(filename string, row int, reason string) entity.Warning {
	return entity.Warning{
		File:     filename,
		Reason:   fmt.Sprintf("row %d: %s", row+1, reason),
		Category: entity.WarnCategoryBadRow,
	}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

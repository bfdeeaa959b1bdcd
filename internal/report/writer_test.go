package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
	"github.com/itamaramsalem1/hppdauto-web/internal/report"
)

func fp(v float64) *float64 { return &v }

func sampleResult() entity.RunResult {
	date := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	return entity.RunResult{
		TargetDate: date,
		Comparisons: []entity.Comparison{
			{
				Key:               entity.Key{Unit: "er", Shift: "night", Date: date},
				DisplayUnit:       "ER",
				DisplayShift:      "Night",
				Status:            constants.CompareActualOnly,
				ActualHours:       24,
				ActualPatientDays: 8,
				ActualHPPD:        fp(3.0),
				Roles: []entity.RoleComparison{
					{Role: "RN", ActualHours: 24, ActualPresent: true, ActualHPPD: fp(3.0)},
				},
			},
			{
				Key:                 entity.Key{Unit: "icu", Shift: "day", Date: date},
				DisplayUnit:         "ICU",
				DisplayShift:        "Day",
				Status:              constants.CompareMatched,
				TemplateHours:       48,
				TemplatePatientDays: 12,
				ActualHours:         54,
				ActualPatientDays:   12,
				TemplateHPPD:        fp(4.0),
				ActualHPPD:          fp(4.5),
				HPPDVariance:        fp(0.5),
				Roles: []entity.RoleComparison{
					{
						Role:            "CNA",
						TemplateHours:   18,
						ActualHours:     24,
						TemplatePresent: true,
						ActualPresent:   true,
						TemplateHPPD:    fp(1.5),
						ActualHPPD:      fp(2.0),
						HPPDVariance:    fp(0.5),
					},
					{
						Role:            "RN",
						TemplateHours:   30,
						ActualHours:     30,
						TemplatePresent: true,
						ActualPresent:   true,
						TemplateHPPD:    fp(2.5),
						ActualHPPD:      fp(2.5),
						HPPDVariance:    fp(0.0),
					},
				},
			},
		},
		Warnings: []entity.Warning{
			{File: "notes.txt", Reason: "not a supported spreadsheet format, skipped", Category: entity.WarnCategoryFileError},
		},
		TemplateFiles: 1,
		ActualFiles:   2,
		RecordCount:   3,
	}
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteWorkbook_ProducesAllSheets(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.ElementsMatch(t, []string{"Summary", "Detail", "Roles", "Exceptions"}, f.GetSheetList())
}

func TestWriteWorkbook_RendersNA_ForUndefinedValues(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	// Detail row 2 is the ER/Night actual-only comparison: template side
	// must render as N/A, never blank or zero.
	for _, cell := range []string{"E2", "F2", "G2", "K2"} {
		v, err := f.GetCellValue("Detail", cell)
		require.NoError(t, err)
		assert.Equal(t, "N/A", v, "cell %s", cell)
	}

	// The actual side of that row carries real figures.
	v, err := f.GetCellValue("Detail", "H2")
	require.NoError(t, err)
	assert.Equal(t, "24.00", v)
}

func TestWriteWorkbook_OrdersDetailRowsByUnitShiftDate(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	u2, err := f.GetCellValue("Detail", "A2")
	require.NoError(t, err)
	u3, err := f.GetCellValue("Detail", "A3")
	require.NoError(t, err)
	assert.Equal(t, "ER", u2)
	assert.Equal(t, "ICU", u3)

	status, err := f.GetCellValue("Detail", "D3")
	require.NoError(t, err)
	assert.Equal(t, "Matched", status)
}

func TestWriteWorkbook_SummaryCarriesTitleAndTotals(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	title, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "2024-01-10")

	// Rows: header at 3, two comparisons at 4-5, totals at 6.
	label, err := f.GetCellValue("Summary", "A6")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", label)

	totalActual, err := f.GetCellValue("Summary", "D6")
	require.NoError(t, err)
	assert.Equal(t, "78.00", totalActual)
}

func TestWriteWorkbook_ExceptionsListUnmatchedAndWarnings(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	group, err := f.GetCellValue("Exceptions", "A2")
	require.NoError(t, err)
	assert.Contains(t, group, "ER / Night")

	file, err := f.GetCellValue("Exceptions", "A3")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", file)

	category, err := f.GetCellValue("Exceptions", "C3")
	require.NoError(t, err)
	assert.Equal(t, entity.WarnCategoryFileError, category)
}

func TestWriteWorkbook_SummaryReportsRunCounts(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	counts, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "1 template file(s), 2 actual file(s), 3 staffing record(s), 1 warning(s)", counts)
}

func TestWriteWorkbook_RolesSheetBreaksDownByRole(t *testing.T) {
	t.Parallel()

	data, err := report.NewWriter(nil).WriteWorkbook(sampleResult())
	require.NoError(t, err)
	f := openWorkbook(t, data)

	// Row 2: ER/Night RN slice, actual side only.
	role, err := f.GetCellValue("Roles", "D2")
	require.NoError(t, err)
	assert.Equal(t, "RN", role)
	for _, cell := range []string{"E2", "F2", "I2"} {
		v, err := f.GetCellValue("Roles", cell)
		require.NoError(t, err)
		assert.Equal(t, "N/A", v, "cell %s", cell)
	}
	actualHours, err := f.GetCellValue("Roles", "G2")
	require.NoError(t, err)
	assert.Equal(t, "24.00", actualHours)

	// Rows 3-4: the ICU/Day key split into its CNA and RN slices.
	cna, err := f.GetCellValue("Roles", "D3")
	require.NoError(t, err)
	assert.Equal(t, "CNA", cna)
	cnaVariance, err := f.GetCellValue("Roles", "I3")
	require.NoError(t, err)
	assert.Equal(t, "0.500", cnaVariance)

	rn, err := f.GetCellValue("Roles", "D4")
	require.NoError(t, err)
	assert.Equal(t, "RN", rn)
	rnTemplateHPPD, err := f.GetCellValue("Roles", "F4")
	require.NoError(t, err)
	assert.Equal(t, "2.500", rnTemplateHPPD)
}

func TestWriteWorkbook_HandlesEmptyRun(t *testing.T) {
	t.Parallel()

	res := entity.RunResult{TargetDate: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)}
	data, err := report.NewWriter(nil).WriteWorkbook(res)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	msg, err := f.GetCellValue("Exceptions", "A2")
	require.NoError(t, err)
	assert.Equal(t, "No exceptions recorded", msg)
}

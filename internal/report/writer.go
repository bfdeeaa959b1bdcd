// Package report renders a comparison run into a formatted XLSX workbook.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/compare"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

const (
	sheetSummary    = "Summary"
	sheetDetail     = "Detail"
	sheetRoles      = "Roles"
	sheetExceptions = "Exceptions"

	// Undefined values render as a visible placeholder, never blank or
	// zero, so a reader cannot mistake "no data" for "no variance".
	placeholderNA = "N/A"
)

// Writer produces the result workbook for one comparison run.
type Writer struct {
	logger *zap.Logger
}

func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

type styles struct {
	title     int
	header    int
	hours     int // 0.00
	hppd      int // 0.000
	naCell    int
	overFill  int // positive variance: actual exceeded template
	underFill int
}

// WriteWorkbook renders the workbook and returns its bytes.
func (w *Writer) WriteWorkbook(res entity.RunResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("workbook styles: %w", err)
	}

	if err := w.writeSummary(f, st, res); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := w.writeDetail(f, st, res); err != nil {
		return nil, fmt.Errorf("detail sheet: %w", err)
	}
	if err := w.writeRoles(f, st, res); err != nil {
		return nil, fmt.Errorf("roles sheet: %w", err)
	}
	if err := w.writeExceptions(f, st, res); err != nil {
		return nil, fmt.Errorf("exceptions sheet: %w", err)
	}

	// excelize starts with a default "Sheet1"; the summary replaces it.
	if idx, _ := f.GetSheetIndex(sheetSummary); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("report.write.ok",
		zap.String("date", res.TargetDate.Format("2006-01-02")),
		zap.Int("comparisons", len(res.Comparisons)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (*styles, error) {
	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return nil, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if st.hours, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.00")}); err != nil {
		return nil, err
	}
	if st.hppd, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.000")}); err != nil {
		return nil, err
	}
	if st.naCell, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "808080"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, err
	}
	if st.overFill, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("0.000"),
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFCDD2"}},
	}); err != nil {
		return nil, err
	}
	if st.underFill, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("0.000"),
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C8E6C9"}},
	}); err != nil {
		return nil, err
	}
	return &st, nil
}

func (w *Writer) writeSummary(f *excelize.File, st *styles, res entity.RunResult) error {
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	sheet := sheetSummary

	setCell(f, sheet, 1, 1, fmt.Sprintf("HPPD Comparison - %s", res.TargetDate.Format("2006-01-02")))
	styleCell(f, sheet, 1, 1, st.title)
	setCell(f, sheet, 2, 1, fmt.Sprintf("%d template file(s), %d actual file(s), %d staffing record(s), %d warning(s)",
		res.TemplateFiles, res.ActualFiles, res.RecordCount, len(res.Warnings)))

	headers := []string{"Unit", "Shift", "Template Hours", "Actual Hours", "Template HPPD", "Actual HPPD", "HPPD Variance"}
	writeHeaderRow(f, sheet, 3, headers, st.header)
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 3, TopLeftCell: "A4", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	row := 4
	var totTemplateHours, totActualHours, totTemplatePD, totActualPD float64
	for _, c := range res.Comparisons {
		setCell(f, sheet, row, 1, c.DisplayUnit)
		setCell(f, sheet, row, 2, c.DisplayShift)
		setHours(f, sheet, row, 3, st, c.TemplateHours, c.Status != constants.CompareActualOnly)
		setHours(f, sheet, row, 4, st, c.ActualHours, c.Status != constants.CompareTemplateOnly)
		setHPPD(f, sheet, row, 5, st, c.TemplateHPPD)
		setHPPD(f, sheet, row, 6, st, c.ActualHPPD)
		setVariance(f, sheet, row, 7, st, c.HPPDVariance)

		totTemplateHours += c.TemplateHours
		totActualHours += c.ActualHours
		totTemplatePD += c.TemplatePatientDays
		totActualPD += c.ActualPatientDays
		row++
	}

	// Grand totals, with HPPD recomputed from the summed figures rather
	// than averaged across rows.
	setCell(f, sheet, row, 1, "TOTAL")
	styleCell(f, sheet, row, 1, st.header)
	setHours(f, sheet, row, 3, st, totTemplateHours, true)
	setHours(f, sheet, row, 4, st, totActualHours, true)
	totTemplateHPPD := compare.HPPD(totTemplateHours, totTemplatePD)
	totActualHPPD := compare.HPPD(totActualHours, totActualPD)
	setHPPD(f, sheet, row, 5, st, totTemplateHPPD)
	setHPPD(f, sheet, row, 6, st, totActualHPPD)
	if totTemplateHPPD != nil && totActualHPPD != nil {
		v := *totActualHPPD - *totTemplateHPPD
		setVariance(f, sheet, row, 7, st, &v)
	} else {
		setVariance(f, sheet, row, 7, st, nil)
	}

	widths := []float64{24, 12, 15, 15, 14, 14, 14}
	return setColWidths(f, sheet, widths)
}

func (w *Writer) writeDetail(f *excelize.File, st *styles, res entity.RunResult) error {
	sheet := sheetDetail
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Unit", "Shift", "Date", "Status",
		"Template Hours", "Template Patient Days", "Template HPPD",
		"Actual Hours", "Actual Patient Days", "Actual HPPD",
		"HPPD Variance",
	}
	writeHeaderRow(f, sheet, 1, headers, st.header)
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	row := 2
	for _, c := range res.Comparisons {
		templateSide := c.Status != constants.CompareActualOnly
		actualSide := c.Status != constants.CompareTemplateOnly

		setCell(f, sheet, row, 1, c.DisplayUnit)
		setCell(f, sheet, row, 2, c.DisplayShift)
		setCell(f, sheet, row, 3, c.Key.Date.Format("2006-01-02"))
		setCell(f, sheet, row, 4, statusLabel(c.Status))
		setHours(f, sheet, row, 5, st, c.TemplateHours, templateSide)
		setHours(f, sheet, row, 6, st, c.TemplatePatientDays, templateSide)
		setHPPD(f, sheet, row, 7, st, c.TemplateHPPD)
		setHours(f, sheet, row, 8, st, c.ActualHours, actualSide)
		setHours(f, sheet, row, 9, st, c.ActualPatientDays, actualSide)
		setHPPD(f, sheet, row, 10, st, c.ActualHPPD)
		setVariance(f, sheet, row, 11, st, c.HPPDVariance)
		row++
	}

	widths := []float64{24, 12, 12, 16, 15, 19, 14, 15, 19, 14, 14}
	return setColWidths(f, sheet, widths)
}

// writeRoles breaks each comparison's hours down by staff role, one row
// per (key, role), so CNA staffing can be read against nurse staffing
// for the same unit and shift.
func (w *Writer) writeRoles(f *excelize.File, st *styles, res entity.RunResult) error {
	sheet := sheetRoles
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Unit", "Shift", "Date", "Role",
		"Template Hours", "Template HPPD",
		"Actual Hours", "Actual HPPD",
		"HPPD Variance",
	}
	writeHeaderRow(f, sheet, 1, headers, st.header)
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	row := 2
	for _, c := range res.Comparisons {
		for _, rc := range c.Roles {
			setCell(f, sheet, row, 1, c.DisplayUnit)
			setCell(f, sheet, row, 2, c.DisplayShift)
			setCell(f, sheet, row, 3, c.Key.Date.Format("2006-01-02"))
			setCell(f, sheet, row, 4, rc.Role)
			setHours(f, sheet, row, 5, st, rc.TemplateHours, rc.TemplatePresent)
			setHPPD(f, sheet, row, 6, st, rc.TemplateHPPD)
			setHours(f, sheet, row, 7, st, rc.ActualHours, rc.ActualPresent)
			setHPPD(f, sheet, row, 8, st, rc.ActualHPPD)
			setVariance(f, sheet, row, 9, st, rc.HPPDVariance)
			row++
		}
	}

	widths := []float64{24, 12, 12, 20, 15, 14, 15, 14, 14}
	return setColWidths(f, sheet, widths)
}

func (w *Writer) writeExceptions(f *excelize.File, st *styles, res entity.RunResult) error {
	sheet := sheetExceptions
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	writeHeaderRow(f, sheet, 1, []string{"File / Group", "Reason", "Category"}, st.header)

	row := 2
	for _, c := range res.Comparisons {
		if c.Status == constants.CompareMatched {
			continue
		}
		reason := "present in template only; actual side missing"
		if c.Status == constants.CompareActualOnly {
			reason = "present in actual only; template side missing"
		}
		setCell(f, sheet, row, 1, fmt.Sprintf("%s / %s / %s",
			c.DisplayUnit, c.DisplayShift, c.Key.Date.Format("2006-01-02")))
		setCell(f, sheet, row, 2, reason)
		setCell(f, sheet, row, 3, entity.WarnCategoryUnmatched)
		row++
	}
	for _, warn := range res.Warnings {
		setCell(f, sheet, row, 1, warn.File)
		setCell(f, sheet, row, 2, warn.Reason)
		setCell(f, sheet, row, 3, warn.Category)
		row++
	}
	if row == 2 {
		setCell(f, sheet, row, 1, "No exceptions recorded")
	}

	widths := []float64{40, 60, 20}
	return setColWidths(f, sheet, widths)
}

func statusLabel(s constants.CompareStatus) string {
	switch s {
	case constants.CompareMatched:
		return "Matched"
	case constants.CompareTemplateOnly:
		return "Template Only"
	default:
		return "Actual Only"
	}
}

func writeHeaderRow(f *excelize.File, sheet string, row int, headers []string, style int) {
	for i, h := range headers {
		setCell(f, sheet, row, i+1, h)
		styleCell(f, sheet, row, i+1, style)
	}
}

func setCell(f *excelize.File, sheet string, row, col int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func styleCell(f *excelize.File, sheet string, row, col, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellStyle(sheet, cell, cell, style)
}

// setHours writes an hours-like figure at 2 dp, or the N/A placeholder
// when the contributing side is absent.
func setHours(f *excelize.File, sheet string, row, col int, st *styles, v float64, present bool) {
	if !present {
		setCell(f, sheet, row, col, placeholderNA)
		styleCell(f, sheet, row, col, st.naCell)
		return
	}
	setCell(f, sheet, row, col, v)
	styleCell(f, sheet, row, col, st.hours)
}

func setHPPD(f *excelize.File, sheet string, row, col int, st *styles, v *float64) {
	if v == nil {
		setCell(f, sheet, row, col, placeholderNA)
		styleCell(f, sheet, row, col, st.naCell)
		return
	}
	setCell(f, sheet, row, col, *v)
	styleCell(f, sheet, row, col, st.hppd)
}

// setVariance colors overstaffed (positive) red and understaffed green,
// so scanning for red rows finds the units over plan.
func setVariance(f *excelize.File, sheet string, row, col int, st *styles, v *float64) {
	if v == nil {
		setCell(f, sheet, row, col, placeholderNA)
		styleCell(f, sheet, row, col, st.naCell)
		return
	}
	setCell(f, sheet, row, col, *v)
	if *v > 0 {
		styleCell(f, sheet, row, col, st.overFill)
	} else {
		styleCell(f, sheet, row, col, st.underFill)
	}
}

func setColWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

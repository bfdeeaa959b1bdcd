package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ColumnMap maps logical columns onto the header synonyms a site's
// spreadsheets use. New header variants are configuration, not code.
type ColumnMap struct {
	Columns map[string][]string `json:"columns"`
}

// Logical column names.
const (
	ColUnit        = "unit"
	ColShift       = "shift"
	ColDate        = "date"
	ColHours       = "hours"
	ColRole        = "role"
	ColPatientDays = "patient_days"
)

var requiredColumns = []string{ColUnit, ColShift, ColDate, ColHours}

// columnMapSchema validates user-supplied column maps before they are
// trusted to drive header discovery.
const columnMapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["columns"],
  "properties": {
    "columns": {
      "type": "object",
      "required": ["unit", "shift", "date", "hours"],
      "additionalProperties": {
        "type": "array",
        "items": {"type": "string", "minLength": 1},
        "minItems": 1
      }
    }
  }
}`

// DefaultColumnMap covers the header spellings seen across site exports.
func DefaultColumnMap() *ColumnMap {
	return &ColumnMap{Columns: map[string][]string{
		ColUnit:        {"unit", "unit name", "department", "dept", "cost center", "ward", "facility unit"},
		ColShift:       {"shift", "shift name", "tour", "shift code"},
		ColDate:        {"date", "work date", "worked date", "report date", "day"},
		ColHours:       {"hours", "worked hours", "hours worked", "total hours", "productive hours", "paid hours"},
		ColRole:        {"role", "job", "job title", "job code", "position", "discipline", "skill"},
		ColPatientDays: {"patient days", "patient day", "pt days", "census", "midnight census", "patient census"},
	}}
}

// LoadColumnMap reads and validates a column map file. Path "" returns the
// embedded default.
func LoadColumnMap(path string) (*ColumnMap, error) {
	if path == "" {
		return DefaultColumnMap(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column map: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("columns.schema.json", strings.NewReader(columnMapSchema)); err != nil {
		return nil, fmt.Errorf("compile column map schema: %w", err)
	}
	schema, err := compiler.Compile("columns.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile column map schema: %w", err)
	}
	var doc any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode column map: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate column map: %w", err)
	}

	var cm ColumnMap
	if err := json.Unmarshal(raw, &cm); err != nil {
		return nil, fmt.Errorf("decode column map: %w", err)
	}
	return &cm, nil
}

// Layout is the outcome of header discovery for one worksheet.
type Layout struct {
	HeaderRow int
	Index     map[string]int // logical column -> cell index
}

// Has reports whether an optional column was present.
func (l *Layout) Has(col string) bool {
	_, ok := l.Index[col]
	return ok
}

// Resolve scans the first scanRows rows for a header row carrying every
// required column. Headers rarely sit at row 0 in real exports; title
// blocks and facility banners come first.
func (cm *ColumnMap) Resolve(rows [][]string, scanRows int) (*Layout, error) {
	if scanRows <= 0 || scanRows > len(rows) {
		scanRows = len(rows)
	}

	for r := 0; r < scanRows; r++ {
		index := make(map[string]int)
		for c, cell := range rows[r] {
			header := normalizeHeader(cell)
			if header == "" {
				continue
			}
			for logical, synonyms := range cm.Columns {
				if _, taken := index[logical]; taken {
					continue
				}
				for _, syn := range synonyms {
					if header == normalizeHeader(syn) {
						index[logical] = c
						break
					}
				}
			}
		}
		if hasAll(index, requiredColumns) {
			return &Layout{HeaderRow: r, Index: index}, nil
		}
	}

	return nil, fmt.Errorf("no header row with required columns %v in first %d rows",
		requiredColumns, scanRows)
}

func hasAll(index map[string]int, cols []string) bool {
	for _, col := range cols {
		if _, ok := index[col]; !ok {
			return false
		}
	}
	return true
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(header))), " ")
}

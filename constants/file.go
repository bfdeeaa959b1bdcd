package constants

import "strings"

// SpreadsheetExtensions holds the accepted spreadsheet formats inside an
// uploaded archive. Anything else is skipped with a warning.
var SpreadsheetExtensions = map[string]struct{}{
	"xlsx": {},
	"xls":  {},
}

// ArchiveExtensions holds the accepted archive container formats.
var ArchiveExtensions = map[string]struct{}{
	"zip": {},
	"txz": {},
	"xz":  {}, // .tar.xz
}

// RoleUnspecified is the sentinel role for rows with no role column.
const RoleUnspecified = "Unspecified"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSpreadsheet checks a filename's extension against the accepted set.
func IsSpreadsheet(name string) bool {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return false
	}
	_, ok := SpreadsheetExtensions[NormalizeExt(name[idx:])]
	return ok
}

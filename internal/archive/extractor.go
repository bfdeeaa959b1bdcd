// Package archive unpacks uploaded spreadsheet archives.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

// File is one extracted spreadsheet held in memory. Uploaded archives are
// small enough that staging to disk buys nothing.
type File struct {
	Name string
	Data []byte
}

// maxEntryBytes caps a single decompressed entry to keep a hostile
// archive from ballooning memory.
const maxEntryBytes = 128 << 20

// Extract unpacks an archive blob and returns the eligible spreadsheet
// entries. Ineligible entries (wrong extension, mac resource forks,
// directories) are skipped and reported as warnings. A blob that is not a
// readable archive, or that yields zero eligible entries, fails with
// ErrInvalidArchive.
func Extract(name string, data []byte) ([]File, []entity.Warning, error) {
	if len(data) == 0 {
		return nil, nil, common.NewAppError("ARCHIVE_EMPTY", name+" is empty", common.ErrInvalidArchive)
	}

	var (
		files    []File
		warnings []entity.Warning
		err      error
	)
	switch ext := constants.NormalizeExt(path.Ext(name)); ext {
	case "zip":
		files, warnings, err = extractZip(data)
	case "xz", "txz":
		files, warnings, err = extractTarXz(data)
	default:
		return nil, nil, common.NewAppError("ARCHIVE_FORMAT",
			fmt.Sprintf("unsupported archive format %q", ext), common.ErrInvalidArchive)
	}
	if err != nil {
		return nil, nil, common.NewAppError("ARCHIVE_READ", "reading "+name, common.ErrInvalidArchive)
	}
	if len(files) == 0 {
		return nil, warnings, common.NewAppError("ARCHIVE_NO_SHEETS",
			name+" contains no spreadsheet files", common.ErrInvalidArchive)
	}
	return files, warnings, nil
}

func extractZip(data []byte) ([]File, []entity.Warning, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	var files []File
	var warnings []entity.Warning
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		base := path.Base(entry.Name)
		if warn, skip := classifyEntry(entry.Name, base); skip {
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			warnings = append(warnings, entity.Warning{
				File:     base,
				Reason:   fmt.Sprintf("unreadable zip entry: %v", err),
				Category: entity.WarnCategoryFileError,
			})
			continue
		}
		buf, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
		_ = rc.Close()
		if err != nil {
			warnings = append(warnings, entity.Warning{
				File:     base,
				Reason:   fmt.Sprintf("decompress failed: %v", err),
				Category: entity.WarnCategoryFileError,
			})
			continue
		}
		files = append(files, File{Name: base, Data: buf})
	}
	return files, warnings, nil
}

func extractTarXz(data []byte) ([]File, []entity.Warning, error) {
	xzr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	tr := tar.NewReader(xzr)

	var files []File
	var warnings []entity.Warning
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		base := path.Base(hdr.Name)
		if warn, skip := classifyEntry(hdr.Name, base); skip {
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			continue
		}
		buf, err := io.ReadAll(io.LimitReader(tr, maxEntryBytes))
		if err != nil {
			warnings = append(warnings, entity.Warning{
				File:     base,
				Reason:   fmt.Sprintf("decompress failed: %v", err),
				Category: entity.WarnCategoryFileError,
			})
			continue
		}
		files = append(files, File{Name: base, Data: buf})
	}
	return files, warnings, nil
}

// classifyEntry decides whether an archive entry participates in the run.
// Mac resource forks show up constantly in real uploads and are not worth
// a warning line; other skips are reported.
func classifyEntry(fullName, base string) (*entity.Warning, bool) {
	if strings.HasPrefix(base, "._") || strings.Contains(fullName, "__MACOSX") {
		return nil, true
	}
	if strings.HasPrefix(base, ".") {
		return &entity.Warning{
			File:     base,
			Reason:   "hidden file, skipped",
			Category: entity.WarnCategoryHiddenFile,
		}, true
	}
	if !constants.IsSpreadsheet(base) {
		return &entity.Warning{
			File:     base,
			Reason:   "not a supported spreadsheet format, skipped",
			Category: entity.WarnCategoryFileError,
		}, true
	}
	return nil, false
}

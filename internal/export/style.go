package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ApplyDefaultFormatting applies:
// - bold header (row 1),
// - auto-filter on row 1,
// - approximate auto-width for all data columns present on the sheet.
func ApplyDefaultFormatting(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}

	end := fmt.Sprintf("%s1", colName(cols))
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", end, style)
	}
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = 10
	}
	for rIdx, row := range rows {
		for cIdx, v := range row {
			w := float64(visualLen(v)) * 1.1
			if rIdx == 0 {
				w += 1.5
			}
			if w > 60 {
				w = 60
			}
			if w > widths[cIdx] {
				widths[cIdx] = w
			}
		}
	}
	for i, w := range widths {
		col := colName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func GradeReportFilename(className string, quarter int) string {
	if quarter == 0 {
		return sanitizeFileName(fmt.Sprintf("Grades - %s.xlsx", cleanName(className)))
	}
	return sanitizeFileName(fmt.Sprintf("Grades - %s - Q%d.xlsx", cleanName(className), quarter))
}

func GradeTemplateFilename(className string) string {
	return sanitizeFileName(fmt.Sprintf("Grade entry - %s.xlsx", cleanName(className)))
}

func AttendanceReportFilename(className, from, to string) string {
	return sanitizeFileName(fmt.Sprintf("Attendance - %s - %s..%s.xlsx", cleanName(className), from, to))
}

// 1 -> A; 27 -> AA
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

// visualLen approximates text width by counting runes, treating tabs as 4 chars.
func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}

var (
	invalidFileRe  = regexp.MustCompile(`[\\/:*?"<>|]+`)
	invalidSheetRe = regexp.MustCompile(`[\\/:*?\[\]]+`)
)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}

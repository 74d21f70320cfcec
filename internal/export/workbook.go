package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Workbook is an in-memory xlsx file.
type Workbook struct {
	File *excelize.File
	Name string
}

// NewWorkbook builds one sheet per SheetSpec with a bold, filtered header row.
func NewWorkbook(name string, sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()

	for i, s := range sheets {
		title := sheetTitle(s.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(col+1))
			if err := f.SetCellStr(title, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		for r, row := range s.Rows {
			for c, val := range row {
				if val == "" {
					continue
				}
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(title, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		if err := ApplyDefaultFormatting(f, title); err != nil {
			return nil, err
		}
	}
	return &Workbook{File: f, Name: sanitizeFileName(name)}, nil
}

func (w *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.File.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// excel limits sheet names to 31 chars
func sheetTitle(s string) string {
	s = invalidSheetRe.ReplaceAllString(cleanName(s), " ")
	r := []rune(s)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

package source

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Workbook reads one sheet per kind, named after the table, from an .xlsx
// export of the source spreadsheet.
type Workbook struct {
	path string
}

// NewWorkbook creates a Workbook over the file at path.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) Name() string { return w.path }

// Read loads the sheet of kind. Sheet names match case-insensitively. The
// checksum is the md5 of the sheet's cell text.
func (w *Workbook) Read(ctx context.Context, kind models.Kind) (*Table, error) {
	spec, err := models.SpecFor(kind)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	sheet := ""
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(name), spec.Table) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, fmt.Errorf("sheet %s: %w", spec.Table, ErrTableMissing)
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	h := md5.New()
	for _, row := range cells {
		h.Write([]byte(strings.Join(row, "\x1f")))
		h.Write([]byte{'\n'})
	}
	t := &Table{Kind: kind, Name: sheet, Checksum: hex.EncodeToString(h.Sum(nil))}
	if len(cells) == 0 {
		return t, nil
	}
	t.Rows = buildRows(cells[0], cells[1:])
	return t, nil
}

// WriteWorkbook writes one sheet per entry of sheets. Each sheet is a header
// row followed by data rows.
func WriteWorkbook(path string, sheets map[string][][]string, order []string) error {
	f := excelize.NewFile()
	first := true
	for _, name := range order {
		rows, ok := sheets[name]
		if !ok {
			continue
		}
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				f.Close()
				return err
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				f.Close()
				return err
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				f.Close()
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

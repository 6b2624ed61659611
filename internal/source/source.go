// Package source reads raw rows per entity kind from an exported data set:
// a directory of CSV files or a spreadsheet workbook.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// ErrTableMissing is returned when the source has no table for a kind.
var ErrTableMissing = errors.New("source table missing")

// Table is the raw content of one kind. A nil cell is empty in the source.
type Table struct {
	Kind     models.Kind
	Name     string
	Checksum string
	Rows     []map[string]*string
}

// Source yields the rows of each kind in source order.
type Source interface {
	Name() string
	Read(ctx context.Context, kind models.Kind) (*Table, error)
}

// Open picks the adapter for path: a .xlsx file is a workbook, a directory
// holds one CSV per table.
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	if info.IsDir() {
		return NewCSVDir(path), nil
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewWorkbook(path), nil
	}
	return nil, fmt.Errorf("open source %s: not a directory or .xlsx workbook", path)
}

// cleanCell makes raw text storable as Postgres TEXT, which refuses NUL
// bytes and invalid UTF-8. Bad bytes become U+FFFD so the row still loads
// and validation decides its fate.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(cleanCell(h), "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// buildRows maps records onto the header. Cells are cleaned and trimmed,
// blank cells become nil and rows with no value at all are dropped.
func buildRows(header []string, records [][]string) []map[string]*string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = normalizeHeader(h)
	}
	rows := make([]map[string]*string, 0, len(records))
	for _, rec := range records {
		row := make(map[string]*string, len(cols))
		empty := true
		for i, col := range cols {
			if col == "" || i >= len(rec) {
				continue
			}
			v := cleanCell(rec[i])
			if v == "" {
				row[col] = nil
				continue
			}
			empty = false
			row[col] = &v
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}

package source

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// CSVDir reads <dir>/<table>.csv for each kind.
type CSVDir struct {
	dir string
}

// NewCSVDir creates a CSVDir over dir.
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

func (c *CSVDir) Name() string { return c.dir }

// Read parses the CSV of kind. The checksum is the md5 of the file bytes.
func (c *CSVDir) Read(ctx context.Context, kind models.Kind) (*Table, error) {
	spec, err := models.SpecFor(kind)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := spec.Table + ".csv"
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrTableMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	sum := md5.Sum(data)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Kind: kind, Name: name, Checksum: hex.EncodeToString(sum[:])}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &Table{
		Kind:     kind,
		Name:     name,
		Checksum: hex.EncodeToString(sum[:]),
		Rows:     buildRows(header, records),
	}, nil
}

// WriteCSV writes header and rows as a CSV file.
func WriteCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Command seed writes a demo clinic extract for the etl command: one CSV per
// kind and optionally the same data as an .xlsx workbook.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/source"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

func main() {
	out := flag.String("out", "./data", "Directory for the CSV files")
	xlsx := flag.String("xlsx", "", "Also write a workbook to this path")
	patients := flag.Int("patients", 50, "Number of patients")
	doctors := flag.Int("doctors", 8, "Number of doctors")
	seed := flag.Uint64("seed", 42, "Random seed")
	defects := flag.Bool("defects", true, "Append rows that validation rejects")
	flag.Parse()

	logger, err := logging.NewLogger("info", "console", "medallion-seed")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *patients < 1 || *doctors < 1 {
		log.Fatal("patients and doctors must be positive")
	}

	ds := newGenerator(*seed).generate(*patients, *doctors, *defects)

	if err := writeCSVDir(*out, ds); err != nil {
		log.Fatalf("Failed to write CSV files: %v", err)
	}
	for _, kind := range models.AllKinds {
		logger.Info("Wrote extract", "kind", kind, "rows", len(ds[kind]), "dir", *out)
	}

	if *xlsx != "" {
		if err := writeWorkbook(*xlsx, ds); err != nil {
			log.Fatalf("Failed to write workbook: %v", err)
		}
		logger.Info("Wrote workbook", "path", *xlsx)
	}
}

func writeCSVDir(dir string, ds dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, kind := range models.AllKinds {
		spec := models.MustSpec(kind)
		if err := source.WriteCSV(filepath.Join(dir, spec.Table+".csv"), spec.Columns, ds[kind]); err != nil {
			return err
		}
	}
	return nil
}

func writeWorkbook(path string, ds dataset) error {
	sheets := make(map[string][][]string, len(models.AllKinds))
	order := make([]string, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		spec := models.MustSpec(kind)
		sheets[spec.Table] = append([][]string{spec.Columns}, ds[kind]...)
		order = append(order, spec.Table)
	}
	return source.WriteWorkbook(path, sheets, order)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/observability"
	"github.com/Joel785/Medallion-Project/internal/source"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// BronzeLoad is the outcome of one bronze step.
type BronzeLoad struct {
	Batch   models.IngestBatch    `json:"batch"`
	Entries []models.LoadLogEntry `json:"entries"`
}

// Rows totals the rows appended across kinds.
func (l BronzeLoad) Rows() int {
	n := 0
	for _, e := range l.Entries {
		n += e.Rows
	}
	return n
}

// BronzeService copies a raw source into Bronze as one ingest batch.
type BronzeService struct {
	store   BronzeWriter
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewBronzeService creates a new BronzeService.
func NewBronzeService(store BronzeWriter, logger *logging.Logger, m *metrics.Metrics) *BronzeService {
	return &BronzeService{store: store, logger: logger, metrics: m, now: time.Now}
}

// Load reads every kind from src and appends it to Bronze. Tables absent
// from the source are logged as missing_file and skipped. The batch, its
// rows and its load log commit together.
func (s *BronzeService) Load(ctx context.Context, src source.Source) (load *BronzeLoad, err error) {
	start := s.now()
	ctx, span := observability.StartSpan(ctx, "pipeline.bronze", attribute.String("source", src.Name()))
	defer func() { observability.EndSpan(span, err) }()

	tables := make(map[models.Kind]*source.Table, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		t, err := src.Read(ctx, kind)
		if errors.Is(err, source.ErrTableMissing) {
			s.logger.Warn("source table missing", "kind", kind, "source", src.Name())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w: %w", kind, src.Name(), ErrSourceUnavailable, err)
		}
		tables[kind] = t
	}

	load = &BronzeLoad{}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		batch, err := s.store.CreateBatch(ctx, src.Name())
		if err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		load.Batch = batch

		for _, kind := range models.AllKinds {
			entry := models.LoadLogEntry{BatchID: batch.ID, Kind: kind, LoadedAt: s.now().UTC()}
			t, ok := tables[kind]
			if !ok {
				entry.SourceName = models.MustSpec(kind).Table
				entry.Status = models.LoadMissingFile
			} else {
				n, err := s.store.AppendRows(ctx, kind, batch.ID, t.Rows)
				if err != nil {
					return fmt.Errorf("append %s rows: %w", kind, err)
				}
				entry.SourceName = t.Name
				entry.Checksum = t.Checksum
				entry.Rows = int(n)
				entry.Status = models.LoadLoaded
			}
			if err := s.store.RecordLoad(ctx, entry); err != nil {
				return fmt.Errorf("record %s load: %w", kind, err)
			}
			load.Entries = append(load.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("bronze load", err)
	}

	for _, e := range load.Entries {
		s.logger.Info("bronze load", "kind", e.Kind, "source", e.SourceName, "rows", e.Rows,
			"checksum", e.Checksum, "status", e.Status)
	}
	s.metrics.ObserveStep("bronze", s.now().Sub(start))
	s.logger.Info("bronze batch loaded", "batch_id", load.Batch.ID, "rows", load.Rows())
	return load, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// ErrNotFound is returned when a single-row read finds nothing.
var ErrNotFound = errors.New("not found")

// BronzeStore is the append-only staging layer and its batch ledger.
type BronzeStore interface {
	// CreateBatch opens a new ingest batch in status loaded.
	CreateBatch(ctx context.Context, source string) (models.IngestBatch, error)
	// AppendRows copies raw rows into the Bronze table of kind. Row numbers
	// are assigned from 1 in slice order.
	AppendRows(ctx context.Context, kind models.Kind, batchID uuid.UUID, rows []map[string]*string) (int64, error)
	// RecordLoad writes one load log entry.
	RecordLoad(ctx context.Context, entry models.LoadLogEntry) error
	// LoadLog returns the load log of a batch.
	LoadLog(ctx context.Context, batchID uuid.UUID) ([]models.LoadLogEntry, error)
	// PendingBatches lists batches still in status loaded, oldest first.
	PendingBatches(ctx context.Context) ([]models.IngestBatch, error)
	// ReadBatchRows returns the rows of kind in a batch in arrival order.
	ReadBatchRows(ctx context.Context, kind models.Kind, batchID uuid.UUID) ([]models.RawRow, error)
	// MarkBatchProcessed moves a loaded batch to processed.
	MarkBatchProcessed(ctx context.Context, batchID uuid.UUID) error
}

// SilverStore holds the canonical typed dataset.
type SilverStore interface {
	// ExistingKeys returns every identifier currently in Silver per kind.
	ExistingKeys(ctx context.Context, kinds []models.Kind) (map[models.Kind][]int64, error)
	// UpsertRecords inserts or replaces records of a single kind by identifier.
	UpsertRecords(ctx context.Context, kind models.Kind, records []models.Record) error
}

// AuditStore is the rejection audit and the reconciliation history.
type AuditStore interface {
	RecordRejections(ctx context.Context, rows []models.RejectedRow) error
	ListRejections(ctx context.Context, filter models.RejectionFilter) ([]models.RejectedRow, error)
	SaveReconciliation(ctx context.Context, report models.ReconciliationReport) error
	// LatestReconciliation returns ErrNotFound before the first run.
	LatestReconciliation(ctx context.Context) (*models.ReconciliationReport, error)
}

// GoldStore rebuilds and serves the aggregate layer.
type GoldStore interface {
	// RebuildGold replaces every Gold table from current Silver content.
	RebuildGold(ctx context.Context, processingDate time.Time) (models.BuildInfo, error)
	ReadGoldTable(ctx context.Context, name string) (*models.GoldTableRows, error)
	DashboardSummary(ctx context.Context) (*models.DashboardSummary, error)
	// BuildInfo returns ErrNotFound before the first rebuild.
	BuildInfo(ctx context.Context) (*models.BuildInfo, error)
}

// ReconcileStore reads both sides of every reconciliation rule.
type ReconcileStore interface {
	// ReadFigures reads Silver and Gold from one consistent snapshot.
	ReadFigures(ctx context.Context) (silver, gold models.Figures, err error)
}

// Transactor runs fn in a transaction carried by ctx. Store calls made with
// that ctx join the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is everything the pipeline needs from persistence.
type Store interface {
	BronzeStore
	SilverStore
	AuditStore
	GoldStore
	ReconcileStore
	Transactor
	Ping(ctx context.Context) error
}

// Package services runs the medallion pipeline steps over the stores.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

var (
	// ErrSourceUnavailable means the raw source could not be read at all.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrStoreUnavailable means a layer could not be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrReconciliationMismatch is returned in strict mode when a rule fails.
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
)

// BronzeWriter is what the bronze step needs from persistence.
type BronzeWriter interface {
	CreateBatch(ctx context.Context, source string) (models.IngestBatch, error)
	AppendRows(ctx context.Context, kind models.Kind, batchID uuid.UUID, rows []map[string]*string) (int64, error)
	RecordLoad(ctx context.Context, entry models.LoadLogEntry) error
	repository.Transactor
}

// SilverWriter is what the silver step needs from persistence.
type SilverWriter interface {
	PendingBatches(ctx context.Context) ([]models.IngestBatch, error)
	ReadBatchRows(ctx context.Context, kind models.Kind, batchID uuid.UUID) ([]models.RawRow, error)
	MarkBatchProcessed(ctx context.Context, batchID uuid.UUID) error
	RecordRejections(ctx context.Context, rows []models.RejectedRow) error
	repository.SilverStore
	repository.Transactor
}

// ReconcileReader is what the reconcile step needs from persistence.
type ReconcileReader interface {
	repository.ReconcileStore
	SaveReconciliation(ctx context.Context, report models.ReconciliationReport) error
	LatestReconciliation(ctx context.Context) (*models.ReconciliationReport, error)
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

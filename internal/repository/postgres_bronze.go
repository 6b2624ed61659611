package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// CreateBatch opens a new ingest batch.
func (s *PostgresStore) CreateBatch(ctx context.Context, source string) (models.IngestBatch, error) {
	b := models.IngestBatch{ID: uuid.New(), Source: source, Status: models.BatchLoaded}
	err := s.conn(ctx).QueryRow(ctx,
		`INSERT INTO bronze.ingest_batches (batch_id, source, status) VALUES ($1, $2, $3) RETURNING created_at`,
		b.ID, b.Source, string(b.Status)).Scan(&b.CreatedAt)
	if err != nil {
		return models.IngestBatch{}, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

// AppendRows bulk-copies raw rows into bronze.<table>.
func (s *PostgresStore) AppendRows(ctx context.Context, kind models.Kind, batchID uuid.UUID, rows []map[string]*string) (int64, error) {
	spec, err := models.SpecFor(kind)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	columns := append([]string{"batch_id", "row_number"}, spec.Columns...)
	n, err := s.conn(ctx).CopyFrom(ctx,
		pgx.Identifier{"bronze", spec.Table},
		columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
			values := make([]interface{}, 0, len(columns))
			values = append(values, batchID, i+1)
			for _, col := range spec.Columns {
				values = append(values, rows[i][col])
			}
			return values, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy into bronze.%s: %w", spec.Table, err)
	}
	s.logger.Debug("bronze rows appended", "table", spec.Table, "batch_id", batchID, "rows", n)
	return n, nil
}

// RecordLoad writes one entry of the Bronze load log.
func (s *PostgresStore) RecordLoad(ctx context.Context, e models.LoadLogEntry) error {
	var checksum *string
	if e.Checksum != "" {
		checksum = &e.Checksum
	}
	_, err := s.conn(ctx).Exec(ctx,
		`INSERT INTO bronze.load_log (batch_id, kind, source_name, rows, checksum, status) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.BatchID, string(e.Kind), e.SourceName, e.Rows, checksum, string(e.Status))
	if err != nil {
		return fmt.Errorf("record load of %s: %w", e.Kind, err)
	}
	return nil
}

// LoadLog returns the load log of a batch in load order.
func (s *PostgresStore) LoadLog(ctx context.Context, batchID uuid.UUID) ([]models.LoadLogEntry, error) {
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT batch_id, kind, source_name, rows, COALESCE(checksum, ''), status, loaded_at
		 FROM bronze.load_log WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query load log: %w", err)
	}
	defer rows.Close()

	var entries []models.LoadLogEntry
	for rows.Next() {
		var e models.LoadLogEntry
		var kind, status string
		if err := rows.Scan(&e.BatchID, &kind, &e.SourceName, &e.Rows, &e.Checksum, &status, &e.LoadedAt); err != nil {
			return nil, err
		}
		e.Kind = models.Kind(kind)
		e.Status = models.LoadStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PendingBatches lists batches not yet processed by the silver step.
func (s *PostgresStore) PendingBatches(ctx context.Context) ([]models.IngestBatch, error) {
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT batch_id, source, status, created_at, processed_at
		 FROM bronze.ingest_batches WHERE status = $1 ORDER BY created_at, batch_id`,
		string(models.BatchLoaded))
	if err != nil {
		return nil, fmt.Errorf("query pending batches: %w", err)
	}
	defer rows.Close()

	var batches []models.IngestBatch
	for rows.Next() {
		var b models.IngestBatch
		var status string
		if err := rows.Scan(&b.ID, &b.Source, &status, &b.CreatedAt, &b.ProcessedAt); err != nil {
			return nil, err
		}
		b.Status = models.BatchStatus(status)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// ReadBatchRows returns the Bronze rows of one kind and batch by row number.
func (s *PostgresStore) ReadBatchRows(ctx context.Context, kind models.Kind, batchID uuid.UUID) ([]models.RawRow, error) {
	spec, err := models.SpecFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT row_number, %s FROM bronze.%s WHERE batch_id = $1 ORDER BY row_number`,
		strings.Join(spec.Columns, ", "), spec.Table)
	rows, err := s.conn(ctx).Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query bronze.%s: %w", spec.Table, err)
	}
	defer rows.Close()

	var out []models.RawRow
	for rows.Next() {
		values := make([]*string, len(spec.Columns))
		dest := make([]interface{}, 0, len(values)+1)
		row := models.RawRow{Kind: kind, BatchID: batchID, Fields: make(map[string]*string, len(values))}
		dest = append(dest, &row.RowNumber)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan bronze.%s: %w", spec.Table, err)
		}
		for i, col := range spec.Columns {
			row.Fields[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkBatchProcessed moves a batch from loaded to processed.
func (s *PostgresStore) MarkBatchProcessed(ctx context.Context, batchID uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx,
		`UPDATE bronze.ingest_batches SET status = $2, processed_at = now() WHERE batch_id = $1 AND status = $3`,
		batchID, string(models.BatchProcessed), string(models.BatchLoaded))
	if err != nil {
		return fmt.Errorf("mark batch processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s in status %s: %w", batchID, models.BatchLoaded, ErrNotFound)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

const defaultRejectionLimit = 100

// RecordRejections appends entries to the rejection audit.
func (s *PostgresStore) RecordRejections(ctx context.Context, rows []models.RejectedRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		spec, err := models.SpecFor(r.Kind)
		if err != nil {
			return err
		}
		var field *string
		if r.Field != "" {
			field = &r.Field
		}
		batch.Queue(
			`INSERT INTO audit.rejected_rows (kind, table_name, batch_id, row_number, row_data, stage, field, error_reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			string(r.Kind), spec.Table, r.BatchID, r.RowNumber, r.Payload, r.Stage, field, r.Reason)
	}
	if err := s.conn(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rejected rows: %w", err)
	}
	return nil
}

// ListRejections returns the newest rejections first.
func (s *PostgresStore) ListRejections(ctx context.Context, f models.RejectionFilter) ([]models.RejectedRow, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultRejectionLimit
	}
	var kind *string
	if f.Kind != nil {
		k := string(*f.Kind)
		kind = &k
	}
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT id, kind, batch_id, row_number, row_data, stage, COALESCE(field, ''), error_reason, rejected_at
		 FROM audit.rejected_rows
		 WHERE ($1::text IS NULL OR kind = $1) AND ($2::uuid IS NULL OR batch_id = $2)
		 ORDER BY rejected_at DESC, id DESC
		 LIMIT $3`, kind, f.BatchID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rejected rows: %w", err)
	}
	defer rows.Close()

	var out []models.RejectedRow
	for rows.Next() {
		var r models.RejectedRow
		var k string
		if err := rows.Scan(&r.ID, &k, &r.BatchID, &r.RowNumber, &r.Payload, &r.Stage, &r.Field, &r.Reason, &r.RejectedAt); err != nil {
			return nil, fmt.Errorf("scan rejected row: %w", err)
		}
		r.Kind = models.Kind(k)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveReconciliation persists a report and its rule results.
func (s *PostgresStore) SaveReconciliation(ctx context.Context, report models.ReconciliationReport) error {
	return s.InTx(ctx, func(ctx context.Context) error {
		_, err := s.conn(ctx).Exec(ctx,
			`INSERT INTO audit.reconciliation_runs (run_id, ran_at, passed, failures) VALUES ($1, $2, $3, $4)`,
			report.RunID, report.RanAt, report.Passed, report.Failures)
		if err != nil {
			return fmt.Errorf("insert reconciliation run: %w", err)
		}
		if len(report.Results) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, r := range report.Results {
			batch.Queue(
				`INSERT INTO audit.reconciliation_results (run_id, position, rule, key, silver_value, gold_value, passed)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				report.RunID, i, r.Rule, r.Key, r.SilverValue, r.GoldValue, r.Passed)
		}
		if err := s.conn(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert reconciliation results: %w", err)
		}
		return nil
	})
}

// LatestReconciliation loads the most recent report.
func (s *PostgresStore) LatestReconciliation(ctx context.Context) (*models.ReconciliationReport, error) {
	var report models.ReconciliationReport
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT run_id, ran_at, passed, failures FROM audit.reconciliation_runs ORDER BY ran_at DESC LIMIT 1`).
		Scan(&report.RunID, &report.RanAt, &report.Passed, &report.Failures)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest reconciliation: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT rule, key, silver_value, gold_value, passed
		 FROM audit.reconciliation_results WHERE run_id = $1 ORDER BY position`, report.RunID)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation results: %w", err)
	}
	report.Results, err = pgx.CollectRows(rows, pgx.RowToStructByPos[models.RuleResult])
	if err != nil {
		return nil, fmt.Errorf("collect reconciliation results: %w", err)
	}
	return &report, nil
}

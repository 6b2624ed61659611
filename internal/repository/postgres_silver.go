package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// columnCasts forces decimal text through the NUMERIC parser on the server.
var columnCasts = map[string]string{
	"amount": "::text::numeric(12,2)",
}

func upsertSQL(spec models.KindSpec) string {
	placeholders := make([]string, len(spec.Columns))
	var updates []string
	for i, col := range spec.Columns {
		placeholders[i] = fmt.Sprintf("$%d%s", i+1, columnCasts[col])
		if col != spec.IDColumn {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(`INSERT INTO silver.%s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		spec.Table,
		strings.Join(spec.Columns, ", "),
		strings.Join(placeholders, ", "),
		spec.IDColumn,
		strings.Join(updates, ", "))
}

// ExistingKeys loads every Silver identifier of the requested kinds.
func (s *PostgresStore) ExistingKeys(ctx context.Context, kinds []models.Kind) (map[models.Kind][]int64, error) {
	out := make(map[models.Kind][]int64, len(kinds))
	for _, kind := range kinds {
		spec, err := models.SpecFor(kind)
		if err != nil {
			return nil, err
		}
		rows, err := s.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT %s FROM silver.%s`, spec.IDColumn, spec.Table))
		if err != nil {
			return nil, fmt.Errorf("query silver.%s keys: %w", spec.Table, err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return nil, fmt.Errorf("collect silver.%s keys: %w", spec.Table, err)
		}
		out[kind] = ids
	}
	return out, nil
}

// UpsertRecords writes records of one kind, replacing rows with the same
// identifier.
func (s *PostgresStore) UpsertRecords(ctx context.Context, kind models.Kind, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	spec, err := models.SpecFor(kind)
	if err != nil {
		return err
	}
	query := upsertSQL(spec)
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.Kind() != kind {
			return fmt.Errorf("upsert %s: got record of kind %s", kind, rec.Kind())
		}
		batch.Queue(query, rec.Values()...)
	}
	if err := s.conn(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert silver.%s: %w", spec.Table, err)
	}
	s.logger.Debug("silver rows upserted", "table", spec.Table, "rows", len(records))
	return nil
}

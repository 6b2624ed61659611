package models

import (
	"time"

	"github.com/google/uuid"
)

// RawRow is one loosely-typed Bronze record. A nil field is a null cell.
type RawRow struct {
	Kind      Kind               `json:"kind"`
	BatchID   uuid.UUID          `json:"batch_id"`
	RowNumber int                `json:"row_number"`
	Fields    map[string]*string `json:"fields"`
}

// Field returns the raw value of col, or nil when absent.
func (r RawRow) Field(col string) *string {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[col]
}

// BatchStatus tracks an ingest batch through the silver step.
type BatchStatus string

const (
	BatchLoaded    BatchStatus = "loaded"
	BatchProcessed BatchStatus = "processed"
)

// IngestBatch groups every Bronze row appended by one load.
type IngestBatch struct {
	ID          uuid.UUID   `json:"id"`
	Source      string      `json:"source"`
	Status      BatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
}

// LoadStatus is the outcome of loading one kind from a source.
type LoadStatus string

const (
	LoadLoaded      LoadStatus = "loaded"
	LoadMissingFile LoadStatus = "missing_file"
)

// LoadLogEntry is one row of the Bronze load log.
type LoadLogEntry struct {
	BatchID    uuid.UUID  `json:"batch_id"`
	Kind       Kind       `json:"kind"`
	SourceName string     `json:"source_name"`
	Rows       int        `json:"rows"`
	Checksum   string     `json:"checksum,omitempty"`
	Status     LoadStatus `json:"status"`
	LoadedAt   time.Time  `json:"loaded_at"`
}

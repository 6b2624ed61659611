package models

import (
	"time"

	"github.com/google/uuid"
)

// RejectedRow is an immutable entry of the rejection audit. Payload is the
// Bronze row exactly as it was read.
type RejectedRow struct {
	ID         int64              `json:"id"`
	Kind       Kind               `json:"kind"`
	BatchID    uuid.UUID          `json:"batch_id"`
	RowNumber  int                `json:"row_number"`
	Payload    map[string]*string `json:"payload"`
	Stage      string             `json:"stage"`
	Field      string             `json:"field,omitempty"`
	Reason     string             `json:"reason"`
	RejectedAt time.Time          `json:"rejected_at"`
}

// RejectionFilter narrows audit reads.
type RejectionFilter struct {
	Kind    *Kind
	BatchID *uuid.UUID
	Limit   int
}

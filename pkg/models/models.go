// Package models defines the domain models for the medallion pipeline
package models

import (
	"time"

	"github.com/google/uuid"
)

// KindOutcome counts what happened to the Bronze rows of one kind in a batch.
type KindOutcome struct {
	Kind       Kind `json:"kind"`
	Checked    int  `json:"checked"`
	Loaded     int  `json:"loaded"`
	Rejected   int  `json:"rejected"`
	Reaffirmed int  `json:"reaffirmed"`
}

// BatchOutcome summarises the silver step for one ingest batch.
type BatchOutcome struct {
	BatchID uuid.UUID     `json:"batch_id"`
	Kinds   []KindOutcome `json:"kinds"`
}

// RunSummary is returned by a full pipeline run.
type RunSummary struct {
	BatchID        *uuid.UUID            `json:"batch_id,omitempty"`
	Batches        []BatchOutcome        `json:"batches"`
	GoldBuild      *BuildInfo            `json:"gold_build,omitempty"`
	Reconciliation *ReconciliationReport `json:"reconciliation,omitempty"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

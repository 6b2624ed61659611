package services

import (
	"context"
	"time"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/source"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// RunOptions controls a full pipeline run.
type RunOptions struct {
	ProcessingDate time.Time
	// Strict turns a reconciliation mismatch into an error.
	Strict bool
}

// Pipeline chains the four steps: bronze, silver, gold, reconcile.
type Pipeline struct {
	Bronze    *BronzeService
	Silver    *SilverService
	Gold      *GoldService
	Reconcile *ReconcileService
	logger    *logging.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(b *BronzeService, s *SilverService, g *GoldService, r *ReconcileService, logger *logging.Logger) *Pipeline {
	return &Pipeline{Bronze: b, Silver: s, Gold: g, Reconcile: r, logger: logger}
}

// Run loads src into Bronze, processes every pending batch, rebuilds Gold
// and reconciles it. A nil src skips the bronze step. The summary holds
// whatever completed before an error.
func (p *Pipeline) Run(ctx context.Context, src source.Source, opts RunOptions) (*models.RunSummary, error) {
	summary := &models.RunSummary{}

	if src != nil {
		load, err := p.Bronze.Load(ctx, src)
		if err != nil {
			return summary, err
		}
		id := load.Batch.ID
		summary.BatchID = &id
	}

	batches, err := p.Silver.ProcessPending(ctx, opts.ProcessingDate)
	summary.Batches = batches
	if err != nil {
		return summary, err
	}

	info, err := p.Gold.Rebuild(ctx, opts.ProcessingDate)
	if err != nil {
		return summary, err
	}
	summary.GoldBuild = &info

	report, err := p.Reconcile.Run(ctx, opts.Strict)
	summary.Reconciliation = report
	if err != nil {
		return summary, err
	}

	p.logger.Info("pipeline finished", "batches", len(summary.Batches),
		"gold_version", info.Version(), "reconciled", report.Passed)
	return summary, nil
}

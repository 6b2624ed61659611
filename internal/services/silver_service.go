package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/observability"
	"github.com/Joel785/Medallion-Project/internal/validation"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// SilverConfig tunes the silver step.
type SilverConfig struct {
	Stages []validation.Stage
	// Parallel validates the kinds of one stage concurrently.
	Parallel bool
}

// SilverService validates Bronze batches into Silver and the rejection audit.
type SilverService struct {
	store    SilverWriter
	stages   []validation.Stage
	parallel bool
	logger   *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewSilverService checks the stage list and creates a SilverService. A nil
// stage list means validation.DefaultStages.
func NewSilverService(store SilverWriter, cfg SilverConfig, logger *logging.Logger, m *metrics.Metrics) (*SilverService, error) {
	stages := cfg.Stages
	if stages == nil {
		stages = validation.DefaultStages
	}
	if err := validation.CheckStages(stages); err != nil {
		return nil, fmt.Errorf("silver stages: %w", err)
	}
	return &SilverService{
		store:    store,
		stages:   stages,
		parallel: cfg.Parallel,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// ProcessPending runs every loaded batch, oldest first. It stops at the
// first batch that fails; batches already processed stay committed.
func (s *SilverService) ProcessPending(ctx context.Context, processingDate time.Time) ([]models.BatchOutcome, error) {
	batches, err := s.store.PendingBatches(ctx)
	if err != nil {
		return nil, storeErr("list pending batches", err)
	}
	if len(batches) == 0 {
		s.logger.Info("no pending batches")
		return nil, nil
	}
	out := make([]models.BatchOutcome, 0, len(batches))
	for _, b := range batches {
		outcome, err := s.ProcessBatch(ctx, b.ID, processingDate)
		if err != nil {
			return out, err
		}
		out = append(out, *outcome)
	}
	return out, nil
}

type kindResult struct {
	outcome    models.KindOutcome
	records    []models.Record
	rejections []models.RejectedRow
	checks     map[validation.Check]int
}

// ProcessBatch validates one batch. Silver upserts, audit entries and the
// batch status change commit in one transaction; on error none of them are
// visible.
func (s *SilverService) ProcessBatch(ctx context.Context, batchID uuid.UUID, processingDate time.Time) (outcome *models.BatchOutcome, err error) {
	start := s.now()
	ctx, span := observability.StartSpan(ctx, "pipeline.silver", attribute.String("batch_id", batchID.String()))
	defer func() { observability.EndSpan(span, err) }()

	rows := make(map[models.Kind][]models.RawRow, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		r, err := s.store.ReadBatchRows(ctx, kind, batchID)
		if err != nil {
			return nil, storeErr(fmt.Sprintf("read bronze %s", kind), err)
		}
		rows[kind] = r
	}

	validator := validation.NewValidator(processingDate)
	results := make(map[models.Kind]*kindResult, len(models.AllKinds))

	err = s.store.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.ExistingKeys(ctx, models.AllKinds)
		if err != nil {
			return fmt.Errorf("read silver keys: %w", err)
		}
		ix := validation.NewIndex(existing)

		for _, stage := range s.stages {
			if err := s.validateStage(ctx, stage, validator, ix, rows, results); err != nil {
				return err
			}
		}

		// Writes follow stage order so foreign keys resolve.
		for _, stage := range s.stages {
			for _, kind := range stage {
				kr := results[kind]
				if len(kr.records) > 0 {
					if err := s.store.UpsertRecords(ctx, kind, kr.records); err != nil {
						return fmt.Errorf("upsert silver %s: %w", kind, err)
					}
				}
				if len(kr.rejections) > 0 {
					if err := s.store.RecordRejections(ctx, kr.rejections); err != nil {
						return fmt.Errorf("record %s rejections: %w", kind, err)
					}
				}
			}
		}
		return s.store.MarkBatchProcessed(ctx, batchID)
	})
	if err != nil {
		return nil, storeErr(fmt.Sprintf("silver batch %s", batchID), err)
	}

	outcome = &models.BatchOutcome{BatchID: batchID}
	for _, kind := range models.AllKinds {
		kr := results[kind]
		o := kr.outcome
		outcome.Kinds = append(outcome.Kinds, o)
		s.logger.Info("silver load",
			"summary", fmt.Sprintf("%s | %d | %d | %d", kind, o.Checked, o.Loaded, o.Rejected),
			"kind", kind, "checked", o.Checked, "loaded", o.Loaded,
			"rejected", o.Rejected, "reaffirmed", o.Reaffirmed)
		s.observe(kind, kr)
	}
	s.metrics.ObserveStep("silver", s.now().Sub(start))
	return outcome, nil
}

func (s *SilverService) validateStage(ctx context.Context, stage validation.Stage, v *validation.Validator,
	ix *validation.Index, rows map[models.Kind][]models.RawRow, results map[models.Kind]*kindResult) error {
	staged := make([]*kindResult, len(stage))
	run := func(i int, kind models.Kind) {
		staged[i] = collect(kind, v.ValidateAll(rows[kind], ix), s.now().UTC())
	}

	if s.parallel && len(stage) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i, kind := range stage {
			i, kind := i, kind
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				run(i, kind)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i, kind := range stage {
			if err := ctx.Err(); err != nil {
				return err
			}
			run(i, kind)
		}
	}

	for i, kind := range stage {
		results[kind] = staged[i]
	}
	return nil
}

// collect splits the results of one kind into Silver writes and audit rows.
func collect(kind models.Kind, results []validation.Result, at time.Time) *kindResult {
	kr := &kindResult{
		outcome: models.KindOutcome{Kind: kind, Checked: len(results)},
		checks:  make(map[validation.Check]int),
	}
	for _, r := range results {
		switch {
		case !r.Accepted():
			kr.outcome.Rejected++
			kr.checks[r.Reason.Stage]++
			kr.rejections = append(kr.rejections, models.RejectedRow{
				Kind:       kind,
				BatchID:    r.Row.BatchID,
				RowNumber:  r.Row.RowNumber,
				Payload:    r.Row.Fields,
				Stage:      string(r.Reason.Stage),
				Field:      r.Reason.Field,
				Reason:     r.Reason.String(),
				RejectedAt: at,
			})
		case r.Reaffirmed:
			kr.outcome.Reaffirmed++
		default:
			kr.outcome.Loaded++
			kr.records = append(kr.records, r.Record)
		}
	}
	return kr
}

func (s *SilverService) observe(kind models.Kind, kr *kindResult) {
	k := string(kind)
	s.metrics.ObserveValidated(k, "accepted", kr.outcome.Loaded)
	s.metrics.ObserveValidated(k, "reaffirmed", kr.outcome.Reaffirmed)
	s.metrics.ObserveValidated(k, "rejected", kr.outcome.Rejected)
	for check, n := range kr.checks {
		s.metrics.ObserveRejected(k, string(check), n)
	}
}

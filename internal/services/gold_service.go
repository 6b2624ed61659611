package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joel785/Medallion-Project/internal/cache"
	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/observability"
	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// ErrGoldNotBuilt is returned by reads before the first rebuild.
var ErrGoldNotBuilt = errors.New("gold layer has not been built")

// GoldService rebuilds Gold and serves reads of it.
type GoldService struct {
	store   repository.GoldStore
	cache   cache.Cache
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGoldService creates a new GoldService. A nil cache disables caching.
func NewGoldService(store repository.GoldStore, c cache.Cache, logger *logging.Logger, m *metrics.Metrics) *GoldService {
	if c == nil {
		c = cache.Noop{}
	}
	return &GoldService{store: store, cache: c, logger: logger, metrics: m, now: time.Now}
}

// Rebuild replaces every Gold table from Silver.
func (s *GoldService) Rebuild(ctx context.Context, processingDate time.Time) (info models.BuildInfo, err error) {
	start := s.now()
	ctx, span := observability.StartSpan(ctx, "pipeline.gold",
		attribute.String("processing_date", processingDate.Format(models.DateLayout)))
	defer func() { observability.EndSpan(span, err) }()

	info, err = s.store.RebuildGold(ctx, processingDate)
	if err != nil {
		return models.BuildInfo{}, storeErr("rebuild gold", err)
	}
	for table, rows := range info.TableRows {
		s.metrics.SetGoldTableRows(table, rows)
	}
	s.metrics.ObserveStep("gold", s.now().Sub(start))
	s.logger.Info("gold rebuilt", "version", info.Version(), "tables", len(info.TableRows),
		"processing_date", info.ProcessingDate.Format(models.DateLayout))
	return info, nil
}

// Tables lists the readable Gold tables.
func (s *GoldService) Tables() []models.GoldTable {
	return models.GoldTables
}

// BuildInfo returns the stamp of the current Gold build.
func (s *GoldService) BuildInfo(ctx context.Context) (*models.BuildInfo, error) {
	info, err := s.store.BuildInfo(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGoldNotBuilt
	}
	if err != nil {
		return nil, storeErr("read gold build info", err)
	}
	return info, nil
}

// ReadTable returns the rows of a catalogued Gold table. Unknown names
// yield repository.ErrNotFound.
func (s *GoldService) ReadTable(ctx context.Context, name string) (*models.GoldTableRows, error) {
	if _, ok := models.LookupGoldTable(name); !ok {
		return nil, fmt.Errorf("gold table %q: %w", name, repository.ErrNotFound)
	}
	out := &models.GoldTableRows{}
	err := s.cached(ctx, "table:"+name, out, func() error {
		rows, err := s.store.ReadGoldTable(ctx, name)
		if err != nil {
			return err
		}
		*out = *rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Dashboard returns the single-row KPI summary.
func (s *GoldService) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	out := &models.DashboardSummary{}
	err := s.cached(ctx, "dashboard", out, func() error {
		d, err := s.store.DashboardSummary(ctx)
		if err != nil {
			return err
		}
		*out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// cached serves dst from the cache entry of the current build, or fills it
// with load and stores it. Cache failures degrade to a direct read.
func (s *GoldService) cached(ctx context.Context, key string, dst interface{}, load func() error) error {
	info, err := s.BuildInfo(ctx)
	if err != nil {
		return err
	}
	key = "gold:" + info.Version() + ":" + key

	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("gold cache read failed", "key", key, "error", err)
	}
	if hit {
		return nil
	}
	if err := load(); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGoldNotBuilt
		}
		return storeErr("read gold", err)
	}
	if err := s.cache.Set(ctx, key, dst); err != nil {
		s.logger.Warn("gold cache write failed", "key", key, "error", err)
	}
	return nil
}

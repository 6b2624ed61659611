package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/internal/source"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

var (
	_ BronzeWriter         = (*MockStore)(nil)
	_ SilverWriter         = (*MockStore)(nil)
	_ ReconcileReader      = (*MockStore)(nil)
	_ repository.GoldStore = (*MockStore)(nil)
)

// MockStore satisfies every store interface the services consume.
// InTx runs fn directly and counts transactions.
type MockStore struct {
	mock.Mock
	txs int
}

func (m *MockStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txs++
	return fn(ctx)
}

func (m *MockStore) CreateBatch(ctx context.Context, src string) (models.IngestBatch, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(models.IngestBatch), args.Error(1)
}

func (m *MockStore) AppendRows(ctx context.Context, kind models.Kind, batchID uuid.UUID, rows []map[string]*string) (int64, error) {
	args := m.Called(ctx, kind, batchID, rows)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RecordLoad(ctx context.Context, entry models.LoadLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStore) PendingBatches(ctx context.Context) ([]models.IngestBatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IngestBatch), args.Error(1)
}

func (m *MockStore) ReadBatchRows(ctx context.Context, kind models.Kind, batchID uuid.UUID) ([]models.RawRow, error) {
	args := m.Called(ctx, kind, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawRow), args.Error(1)
}

func (m *MockStore) MarkBatchProcessed(ctx context.Context, batchID uuid.UUID) error {
	return m.Called(ctx, batchID).Error(0)
}

func (m *MockStore) ExistingKeys(ctx context.Context, kinds []models.Kind) (map[models.Kind][]int64, error) {
	args := m.Called(ctx, kinds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Kind][]int64), args.Error(1)
}

func (m *MockStore) UpsertRecords(ctx context.Context, kind models.Kind, records []models.Record) error {
	return m.Called(ctx, kind, records).Error(0)
}

func (m *MockStore) RecordRejections(ctx context.Context, rows []models.RejectedRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockStore) ReadFigures(ctx context.Context) (models.Figures, models.Figures, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Figures), args.Get(1).(models.Figures), args.Error(2)
}

func (m *MockStore) SaveReconciliation(ctx context.Context, report models.ReconciliationReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockStore) LatestReconciliation(ctx context.Context) (*models.ReconciliationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconciliationReport), args.Error(1)
}

func (m *MockStore) RebuildGold(ctx context.Context, processingDate time.Time) (models.BuildInfo, error) {
	args := m.Called(ctx, processingDate)
	return args.Get(0).(models.BuildInfo), args.Error(1)
}

func (m *MockStore) ReadGoldTable(ctx context.Context, name string) (*models.GoldTableRows, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoldTableRows), args.Error(1)
}

func (m *MockStore) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardSummary), args.Error(1)
}

func (m *MockStore) BuildInfo(ctx context.Context) (*models.BuildInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BuildInfo), args.Error(1)
}

// fakeSource serves fixed tables; kinds in errs fail with that error.
type fakeSource struct {
	tables map[models.Kind]*source.Table
	errs   map[models.Kind]error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Read(_ context.Context, kind models.Kind) (*source.Table, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	t, ok := f.tables[kind]
	if !ok {
		return nil, source.ErrTableMissing
	}
	return t, nil
}

// memCache is an in-process cache.Cache.
type memCache struct {
	entries map[string]interface{}
	gets    int
}

func (c *memCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *models.GoldTableRows:
		*d = v.(models.GoldTableRows)
	case *models.DashboardSummary:
		*d = v.(models.DashboardSummary)
	}
	return true, nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}) error {
	if c.entries == nil {
		c.entries = make(map[string]interface{})
	}
	switch v := value.(type) {
	case *models.GoldTableRows:
		c.entries[key] = *v
	case *models.DashboardSummary:
		c.entries[key] = *v
	}
	return nil
}

func strp(s string) *string { return &s }

func raw(kind models.Kind, batch uuid.UUID, n int, kv ...string) models.RawRow {
	fields := make(map[string]*string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = strp(kv[i+1])
	}
	return models.RawRow{Kind: kind, BatchID: batch, RowNumber: n, Fields: fields}
}

func i64(v int64) *int64 { return &v }

func cents(v models.Cents) *models.Cents { return &v }

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/source"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

func newPipeline(t *testing.T, store *MockStore) *Pipeline {
	t.Helper()
	log := logging.NewNop()
	silver, err := NewSilverService(store, SilverConfig{Parallel: true}, log, nil)
	require.NoError(t, err)
	return NewPipeline(
		NewBronzeService(store, log, nil),
		silver,
		NewGoldService(store, nil, log, nil),
		NewReconcileService(store, log, nil),
		log,
	)
}

func TestPipelineRun(t *testing.T) {
	store := new(MockStore)
	batch := models.IngestBatch{ID: uuid.New(), Source: "fake", Status: models.BatchLoaded}
	src := &fakeSource{tables: map[models.Kind]*source.Table{}}
	silverFig, goldFig := balanced()

	store.On("CreateBatch", mock.Anything, "fake").Return(batch, nil)
	store.On("RecordLoad", mock.Anything, mock.Anything).Return(nil)
	store.On("PendingBatches", mock.Anything).Return([]models.IngestBatch{batch}, nil)
	for _, kind := range models.AllKinds {
		store.On("ReadBatchRows", mock.Anything, kind, batch.ID).Return([]models.RawRow{}, nil)
	}
	store.On("ExistingKeys", mock.Anything, models.AllKinds).Return(map[models.Kind][]int64{}, nil)
	store.On("MarkBatchProcessed", mock.Anything, batch.ID).Return(nil)
	store.On("RebuildGold", mock.Anything, processingDate).Return(*build("2025-06-30T10:00:00Z"), nil)
	store.On("ReadFigures", mock.Anything).Return(silverFig, goldFig, nil)
	store.On("SaveReconciliation", mock.Anything, mock.Anything).Return(nil)

	summary, err := newPipeline(t, store).Run(context.Background(), src, RunOptions{ProcessingDate: processingDate, Strict: true})
	require.NoError(t, err)

	require.NotNil(t, summary.BatchID)
	assert.Equal(t, batch.ID, *summary.BatchID)
	require.Len(t, summary.Batches, 1)
	require.NotNil(t, summary.GoldBuild)
	require.NotNil(t, summary.Reconciliation)
	assert.True(t, summary.Reconciliation.Passed)
	store.AssertExpectations(t)
}

func TestPipelineStrictMismatchKeepsSummary(t *testing.T) {
	store := new(MockStore)
	silverFig, goldFig := balanced()
	goldFig.PaidRevenue = cents(1)

	store.On("PendingBatches", mock.Anything).Return([]models.IngestBatch{}, nil)
	store.On("RebuildGold", mock.Anything, processingDate).Return(*build("2025-06-30T10:00:00Z"), nil)
	store.On("ReadFigures", mock.Anything).Return(silverFig, goldFig, nil)
	store.On("SaveReconciliation", mock.Anything, mock.Anything).Return(nil)

	summary, err := newPipeline(t, store).Run(context.Background(), nil, RunOptions{ProcessingDate: processingDate, Strict: true})
	assert.ErrorIs(t, err, ErrReconciliationMismatch)
	require.NotNil(t, summary.Reconciliation)
	assert.False(t, summary.Reconciliation.Passed)
	assert.Nil(t, summary.BatchID)
	store.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

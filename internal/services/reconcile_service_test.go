package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

func balanced() (models.Figures, models.Figures) {
	silver := models.Figures{
		TotalPatients:         i64(2),
		AppointmentsTotal:     i64(3),
		AppointmentsCompleted: i64(2),
		PaidRevenue:           cents(30000),
		PendingAmount:         cents(5000),
		BillingTotal:          cents(35000),
		OutstandingTotal:      cents(5000),
		RevenueByDepartment:   map[string]models.Cents{"Cardiology": 30000},
		RevenueByMethod:       map[string]models.Cents{"Card": 20000, "Cash": 10000},
	}
	gold := silver
	gold.RevenueByDepartment = map[string]models.Cents{"Cardiology": 30000}
	gold.RevenueByMethod = map[string]models.Cents{"Card": 20000, "Cash": 10000}
	return silver, gold
}

func find(results []models.RuleResult, rule, key string) models.RuleResult {
	for _, r := range results {
		if r.Rule == rule && r.Key == key {
			return r
		}
	}
	return models.RuleResult{}
}

func TestEvaluateBalanced(t *testing.T) {
	silver, gold := balanced()
	results := Evaluate(silver, gold)

	// 5 scalar rules, 1 department, 2 methods, outstanding.
	require.Len(t, results, 9)
	for _, r := range results {
		assert.True(t, r.Passed, "%s %s: silver=%s gold=%s", r.Rule, r.Key, r.SilverValue, r.GoldValue)
	}
	assert.Equal(t, RuleTotalPatients, results[0].Rule)
	assert.Equal(t, RuleOutstandingRevenue, results[len(results)-1].Rule)
	assert.Equal(t, "300.00", find(results, RuleTotalRevenue, "").GoldValue)
	assert.Equal(t, "350.00", find(results, RuleBillingTotalSplit, "").GoldValue)
	assert.Equal(t, "Card", results[6].Key)
	assert.Equal(t, "Cash", results[7].Key)
}

func TestEvaluateMismatches(t *testing.T) {
	silver, gold := balanced()
	gold.TotalPatients = nil
	gold.PendingAmount = cents(4999)
	gold.RevenueByDepartment = map[string]models.Cents{"Neurology": 30000}

	results := Evaluate(silver, gold)

	patients := find(results, RuleTotalPatients, "")
	assert.False(t, patients.Passed)
	assert.Equal(t, "2", patients.SilverValue)
	assert.Equal(t, Missing, patients.GoldValue)

	split := find(results, RuleBillingTotalSplit, "")
	assert.False(t, split.Passed)
	assert.Equal(t, "349.99", split.GoldValue)

	cardio := find(results, RuleRevenueByDepartment, "Cardiology")
	assert.False(t, cardio.Passed)
	assert.Equal(t, Missing, cardio.GoldValue)

	neuro := find(results, RuleRevenueByDepartment, "Neurology")
	assert.False(t, neuro.Passed)
	assert.Equal(t, Missing, neuro.SilverValue)

	assert.True(t, find(results, RuleTotalRevenue, "").Passed)
}

func TestEvaluateOneCentOff(t *testing.T) {
	silver, gold := balanced()
	gold.PaidRevenue = cents(30001)
	r := find(Evaluate(silver, gold), RuleTotalRevenue, "")
	assert.False(t, r.Passed)
	assert.Equal(t, "300.00", r.SilverValue)
	assert.Equal(t, "300.01", r.GoldValue)
}

func TestReconcileRun(t *testing.T) {
	silver, gold := balanced()
	gold.AppointmentsCompleted = i64(1)

	for _, strict := range []bool{false, true} {
		store := new(MockStore)
		store.On("ReadFigures", mock.Anything).Return(silver, gold, nil)
		store.On("SaveReconciliation", mock.Anything, mock.Anything).Return(nil)

		svc := NewReconcileService(store, logging.NewNop(), nil)
		report, err := svc.Run(context.Background(), strict)
		if strict {
			assert.ErrorIs(t, err, ErrReconciliationMismatch)
		} else {
			assert.NoError(t, err)
		}
		require.NotNil(t, report)
		assert.False(t, report.Passed)
		assert.Equal(t, 1, report.Failures)
		require.Len(t, report.Mismatches(), 1)
		assert.Equal(t, RuleAppointmentsCompleted, report.Mismatches()[0].Rule)
		store.AssertNumberOfCalls(t, "SaveReconciliation", 1)
	}
}

func TestReconcileLatest(t *testing.T) {
	store := new(MockStore)
	store.On("LatestReconciliation", mock.Anything).Return(nil, repository.ErrNotFound)
	svc := NewReconcileService(store, logging.NewNop(), nil)

	_, err := svc.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoReconciliation)
}

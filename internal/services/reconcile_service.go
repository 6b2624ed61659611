package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/observability"
	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Rule names of the reconciliation report.
const (
	RuleTotalPatients         = "total_patients"
	RuleAppointmentsTotal     = "appointments_total"
	RuleAppointmentsCompleted = "appointments_completed"
	RuleBillingTotalSplit     = "billing_total_split"
	RuleTotalRevenue          = "total_revenue"
	RuleRevenueByDepartment   = "revenue_by_department"
	RuleRevenueByMethod       = "revenue_by_payment_method"
	RuleOutstandingRevenue    = "outstanding_revenue"
)

// Missing is reported for a value one side does not have.
const Missing = "missing"

// ErrNoReconciliation is returned before the first reconciliation run.
var ErrNoReconciliation = errors.New("no reconciliation has run yet")

// ReconcileService compares Gold against Silver.
type ReconcileService struct {
	store   ReconcileReader
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(store ReconcileReader, logger *logging.Logger, m *metrics.Metrics) *ReconcileService {
	return &ReconcileService{store: store, logger: logger, metrics: m, now: time.Now}
}

// Run evaluates every rule and persists the report. A failing rule is
// logged and reported; it is an error only when strict is set, and even
// then the report is returned and saved. Gold is never touched.
func (s *ReconcileService) Run(ctx context.Context, strict bool) (report *models.ReconciliationReport, err error) {
	start := s.now()
	ctx, span := observability.StartSpan(ctx, "pipeline.reconcile")
	defer func() { observability.EndSpan(span, err) }()

	silver, gold, err := s.store.ReadFigures(ctx)
	if err != nil {
		return nil, storeErr("read reconciliation figures", err)
	}

	report = &models.ReconciliationReport{
		RunID:   uuid.New(),
		RanAt:   s.now().UTC(),
		Results: Evaluate(silver, gold),
	}
	for _, r := range report.Results {
		if !r.Passed {
			report.Failures++
		}
	}
	report.Passed = report.Failures == 0

	if err := s.store.SaveReconciliation(ctx, *report); err != nil {
		return nil, storeErr("save reconciliation", err)
	}

	for _, r := range report.Mismatches() {
		s.logger.Warn("reconciliation mismatch", "rule", r.Rule, "key", r.Key,
			"silver", r.SilverValue, "gold", r.GoldValue)
	}
	s.metrics.ObserveReconciliation(len(report.Results)-report.Failures, report.Failures)
	s.metrics.ObserveStep("reconcile", s.now().Sub(start))
	s.logger.Info("reconciliation finished", "run_id", report.RunID, "rules", len(report.Results),
		"failures", report.Failures, "passed", report.Passed)

	if strict && !report.Passed {
		return report, fmt.Errorf("%d of %d rules failed: %w", report.Failures, len(report.Results), ErrReconciliationMismatch)
	}
	return report, nil
}

// Latest returns the most recent persisted report.
func (s *ReconcileService) Latest(ctx context.Context) (*models.ReconciliationReport, error) {
	report, err := s.store.LatestReconciliation(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoReconciliation
	}
	if err != nil {
		return nil, storeErr("read latest reconciliation", err)
	}
	return report, nil
}

// Evaluate compares the two sides rule by rule. The output order is fixed;
// grouped rules emit one result per key, sorted, over the union of keys.
func Evaluate(silver, gold models.Figures) []models.RuleResult {
	out := []models.RuleResult{
		countRule(RuleTotalPatients, silver.TotalPatients, gold.TotalPatients),
		countRule(RuleAppointmentsTotal, silver.AppointmentsTotal, gold.AppointmentsTotal),
		countRule(RuleAppointmentsCompleted, silver.AppointmentsCompleted, gold.AppointmentsCompleted),
		moneyRule(RuleBillingTotalSplit, "", silver.BillingTotal, addCents(gold.PaidRevenue, gold.PendingAmount)),
		moneyRule(RuleTotalRevenue, "", silver.PaidRevenue, gold.PaidRevenue),
	}
	out = append(out, groupRule(RuleRevenueByDepartment, silver.RevenueByDepartment, gold.RevenueByDepartment)...)
	out = append(out, groupRule(RuleRevenueByMethod, silver.RevenueByMethod, gold.RevenueByMethod)...)
	out = append(out, moneyRule(RuleOutstandingRevenue, "", silver.PendingAmount, gold.OutstandingTotal))
	return out
}

func countRule(rule string, silver, gold *int64) models.RuleResult {
	r := models.RuleResult{Rule: rule, SilverValue: Missing, GoldValue: Missing}
	if silver != nil {
		r.SilverValue = strconv.FormatInt(*silver, 10)
	}
	if gold != nil {
		r.GoldValue = strconv.FormatInt(*gold, 10)
	}
	r.Passed = silver != nil && gold != nil && *silver == *gold
	return r
}

func moneyRule(rule, key string, silver, gold *models.Cents) models.RuleResult {
	r := models.RuleResult{Rule: rule, Key: key, SilverValue: Missing, GoldValue: Missing}
	if silver != nil {
		r.SilverValue = silver.String()
	}
	if gold != nil {
		r.GoldValue = gold.String()
	}
	r.Passed = silver != nil && gold != nil && *silver == *gold
	return r
}

func groupRule(rule string, silver, gold map[string]models.Cents) []models.RuleResult {
	keys := make(map[string]struct{}, len(silver)+len(gold))
	for k := range silver {
		keys[k] = struct{}{}
	}
	for k := range gold {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make([]models.RuleResult, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, moneyRule(rule, k, lookup(silver, k), lookup(gold, k)))
	}
	return out
}

func lookup(m map[string]models.Cents, k string) *models.Cents {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}

func addCents(a, b *models.Cents) *models.Cents {
	if a == nil || b == nil {
		return nil
	}
	sum := *a + *b
	return &sum
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleResult is one evaluated reconciliation rule. Key is set for grouped
// rules (the department or payment method).
type RuleResult struct {
	Rule        string `json:"rule" yaml:"rule"`
	Key         string `json:"key,omitempty" yaml:"key,omitempty"`
	SilverValue string `json:"silver_value" yaml:"silver_value"`
	GoldValue   string `json:"gold_value" yaml:"gold_value"`
	Passed      bool   `json:"passed" yaml:"passed"`
}

// ReconciliationReport is the outcome of one reconciler run.
type ReconciliationReport struct {
	RunID    uuid.UUID    `json:"run_id" yaml:"run_id"`
	RanAt    time.Time    `json:"ran_at" yaml:"ran_at"`
	Results  []RuleResult `json:"results" yaml:"results"`
	Passed   bool         `json:"passed" yaml:"passed"`
	Failures int          `json:"failures" yaml:"failures"`
}

// Mismatches returns the failed rules only.
func (r ReconciliationReport) Mismatches() []RuleResult {
	var out []RuleResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

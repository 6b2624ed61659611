package repository

import (
	"fmt"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Filter predicates shared by the Gold rebuild and the reconciliation reads.
// An aggregate and the rule that checks it must render the same predicate.

func col(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}

// CompletedPredicate matches appointments in the terminal Completed state.
func CompletedPredicate(alias string) string {
	return fmt.Sprintf("%s = '%s'", col(alias, "status"), models.StatusCompleted)
}

// PaidPredicate matches billing rows counted as revenue.
func PaidPredicate(alias string) string {
	return fmt.Sprintf("%s = '%s'", col(alias, "payment_status"), models.PaymentPaid)
}

// PendingPredicate matches billing rows still owed.
func PendingPredicate(alias string) string {
	return fmt.Sprintf("%s = '%s'", col(alias, "payment_status"), models.PaymentPending)
}

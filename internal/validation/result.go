// Package validation turns loosely-typed Bronze rows into typed Silver
// records. Every row yields exactly one Result.
package validation

import (
	"fmt"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Check names the validation step that rejected a row.
type Check string

const (
	CheckCoercion    Check = "coercion"
	CheckConstraint  Check = "constraint"
	CheckUniqueness  Check = "uniqueness"
	CheckReferential Check = "referential"
)

// Reason explains a single rejection.
type Reason struct {
	Stage   Check
	Field   string
	Message string
}

func (r Reason) String() string {
	if r.Field == "" {
		return fmt.Sprintf("%s: %s", r.Stage, r.Message)
	}
	return fmt.Sprintf("%s: %s: %s", r.Stage, r.Field, r.Message)
}

// Result is either Accepted (Record set) or Rejected (Reason set), never both.
type Result struct {
	Row    models.RawRow
	Record models.Record
	Reason *Reason
	// Reaffirmed marks an accepted row identical to one accepted earlier in
	// the same batch. It is not written again.
	Reaffirmed bool
}

func accepted(row models.RawRow, rec models.Record) Result {
	return Result{Row: row, Record: rec}
}

func rejected(row models.RawRow, reason Reason) Result {
	return Result{Row: row, Reason: &reason}
}

// Accepted reports whether the row made it into Silver.
func (r Result) Accepted() bool { return r.Reason == nil }

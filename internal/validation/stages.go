package validation

import (
	"fmt"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Stage is a set of kinds that may be validated concurrently.
type Stage []models.Kind

// DefaultStages orders kinds so every foreign key points at an earlier stage.
var DefaultStages = []Stage{
	{models.KindPatient, models.KindDoctor},
	{models.KindAppointment},
	{models.KindPrescription, models.KindBilling},
}

// CheckStages verifies that every kind appears exactly once and only after
// all the kinds it depends on.
func CheckStages(stages []Stage) error {
	placed := make(map[models.Kind]int)
	for i, stage := range stages {
		if len(stage) == 0 {
			return fmt.Errorf("stage %d is empty", i)
		}
		for _, kind := range stage {
			if _, err := models.SpecFor(kind); err != nil {
				return fmt.Errorf("stage %d: %w", i, err)
			}
			if prev, dup := placed[kind]; dup {
				return fmt.Errorf("kind %s placed in stage %d and stage %d", kind, prev, i)
			}
			placed[kind] = i
		}
	}
	for _, kind := range models.AllKinds {
		at, ok := placed[kind]
		if !ok {
			return fmt.Errorf("kind %s is not placed in any stage", kind)
		}
		for _, dep := range models.MustSpec(kind).DependsOn {
			depAt, ok := placed[dep]
			if !ok || depAt >= at {
				return fmt.Errorf("kind %s in stage %d depends on %s which is not in an earlier stage", kind, at, dep)
			}
		}
	}
	return nil
}

package models

import "fmt"

// Kind names one entity kind flowing through the medallion layers.
type Kind string

const (
	KindPatient      Kind = "patient"
	KindDoctor       Kind = "doctor"
	KindAppointment  Kind = "appointment"
	KindPrescription Kind = "prescription"
	KindBilling      Kind = "billing"
)

// KindSpec describes the storage shape of a kind. Bronze and Silver use the
// same table name in different schemas.
type KindSpec struct {
	Kind      Kind
	Table     string
	IDColumn  string
	Columns   []string
	DependsOn []Kind
}

var kindSpecs = map[Kind]KindSpec{
	KindPatient: {
		Kind:     KindPatient,
		Table:    "patients",
		IDColumn: "patient_id",
		Columns:  []string{"patient_id", "name", "gender", "dob", "city", "contact_no"},
	},
	KindDoctor: {
		Kind:     KindDoctor,
		Table:    "doctors",
		IDColumn: "doctor_id",
		Columns:  []string{"doctor_id", "name", "specialization", "years_experience"},
	},
	KindAppointment: {
		Kind:      KindAppointment,
		Table:     "appointments",
		IDColumn:  "appointment_id",
		Columns:   []string{"appointment_id", "patient_id", "doctor_id", "appointment_date", "status"},
		DependsOn: []Kind{KindPatient, KindDoctor},
	},
	KindPrescription: {
		Kind:      KindPrescription,
		Table:     "prescriptions",
		IDColumn:  "prescription_id",
		Columns:   []string{"prescription_id", "appointment_id", "medicine", "dosage", "duration_days"},
		DependsOn: []Kind{KindAppointment},
	},
	KindBilling: {
		Kind:      KindBilling,
		Table:     "billing",
		IDColumn:  "bill_id",
		Columns:   []string{"bill_id", "patient_id", "appointment_id", "amount", "payment_status", "payment_method"},
		DependsOn: []Kind{KindPatient, KindAppointment},
	},
}

// AllKinds lists every kind in dependency order.
var AllKinds = []Kind{KindPatient, KindDoctor, KindAppointment, KindPrescription, KindBilling}

// SpecFor returns the storage shape of k.
func SpecFor(k Kind) (KindSpec, error) {
	spec, ok := kindSpecs[k]
	if !ok {
		return KindSpec{}, fmt.Errorf("unknown kind %q", k)
	}
	return spec, nil
}

// MustSpec is SpecFor for kinds known at compile time.
func MustSpec(k Kind) KindSpec {
	spec, err := SpecFor(k)
	if err != nil {
		panic(err)
	}
	return spec
}

// ParseKind accepts either the kind name or its table name.
func ParseKind(s string) (Kind, error) {
	for _, spec := range kindSpecs {
		if s == string(spec.Kind) || s == spec.Table {
			return spec.Kind, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

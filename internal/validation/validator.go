package validation

import (
	"fmt"
	"time"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

var minBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Validator applies coercion, domain constraints, uniqueness and referential
// checks to Bronze rows, in that order. The first failing check is the only
// one reported.
type Validator struct {
	processingDate time.Time
}

// NewValidator returns a Validator that judges dates against processingDate.
func NewValidator(processingDate time.Time) *Validator {
	return &Validator{processingDate: truncateDay(processingDate)}
}

// ProcessingDate is the day future-date checks are evaluated against.
func (v *Validator) ProcessingDate() time.Time { return v.processingDate }

// ValidateAll validates rows in arrival order.
func (v *Validator) ValidateAll(rows []models.RawRow, ix *Index) []Result {
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, v.Validate(row, ix))
	}
	return out
}

// Validate judges one row. An accepted row is recorded in ix so later rows of
// the batch can reference it.
func (v *Validator) Validate(row models.RawRow, ix *Index) Result {
	rec, reason := v.decode(row)
	if reason != nil {
		return rejected(row, *reason)
	}
	kind := rec.Kind()
	id := rec.Key()
	idCol := models.MustSpec(kind).IDColumn

	if fp, seen := ix.acceptedInBatch(kind, id); seen {
		if fp == rec.Fingerprint() {
			r := accepted(row, rec)
			r.Reaffirmed = true
			return r
		}
		return rejected(row, Reason{
			Stage:   CheckUniqueness,
			Field:   idCol,
			Message: fmt.Sprintf("%s %d was already accepted earlier in this batch with different content", idCol, id),
		})
	}

	for _, ref := range rec.Refs() {
		if !ix.Has(ref.Kind, ref.ID) {
			return rejected(row, Reason{
				Stage:   CheckReferential,
				Field:   ref.Field,
				Message: fmt.Sprintf("%s %d does not reference an existing %s", ref.Field, ref.ID, ref.Kind),
			})
		}
	}

	ix.accept(kind, id, rec.Fingerprint())
	return accepted(row, rec)
}

// decode runs coercion over all fields and then the domain constraints.
func (v *Validator) decode(row models.RawRow) (models.Record, *Reason) {
	r := &reader{row: row}
	switch row.Kind {
	case models.KindPatient:
		p := models.Patient{
			PatientID: r.int("patient_id"),
			Name:      r.str("name"),
			Gender:    NormalizeGender(r.str("gender")),
			DOB:       r.date("dob"),
			City:      r.text("city"),
			ContactNo: r.text("contact_no"),
		}
		if r.reason != nil {
			return nil, r.reason
		}
		return p, v.checkPatient(p)
	case models.KindDoctor:
		d := models.Doctor{
			DoctorID:        r.int("doctor_id"),
			Name:            r.str("name"),
			Specialization:  r.str("specialization"),
			YearsExperience: r.int("years_experience"),
		}
		if r.reason != nil {
			return nil, r.reason
		}
		return d, checkDoctor(d)
	case models.KindAppointment:
		a := models.Appointment{
			AppointmentID:   r.int("appointment_id"),
			PatientID:       r.int("patient_id"),
			DoctorID:        r.int("doctor_id"),
			AppointmentDate: r.date("appointment_date"),
			Status:          NormalizeStatus(r.enum("status")),
		}
		if r.reason != nil {
			return nil, r.reason
		}
		return a, v.checkAppointment(a)
	case models.KindPrescription:
		p := models.Prescription{
			PrescriptionID: r.int("prescription_id"),
			AppointmentID:  r.int("appointment_id"),
			Medicine:       r.str("medicine"),
			Dosage:         r.text("dosage"),
			DurationDays:   r.optInt("duration_days"),
		}
		if r.reason != nil {
			return nil, r.reason
		}
		return p, checkPrescription(p)
	case models.KindBilling:
		b := models.Billing{
			BillID:        r.int("bill_id"),
			PatientID:     r.int("patient_id"),
			AppointmentID: r.int("appointment_id"),
			Amount:        r.cents("amount"),
			PaymentStatus: NormalizePaymentStatus(r.enum("payment_status")),
			PaymentMethod: NormalizePaymentMethod(r.enum("payment_method")),
		}
		if r.reason != nil {
			return nil, r.reason
		}
		return b, checkBilling(b)
	default:
		return nil, &Reason{Stage: CheckCoercion, Message: fmt.Sprintf("unknown kind %q", row.Kind)}
	}
}

func violation(field, format string, args ...interface{}) *Reason {
	return &Reason{Stage: CheckConstraint, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (v *Validator) checkPatient(p models.Patient) *Reason {
	switch {
	case p.Name == "":
		return violation("name", "name is required")
	case p.DOB.After(v.processingDate):
		return violation("dob", "date of birth %s is after processing date %s", p.DOB.Format(models.DateLayout), v.processingDate.Format(models.DateLayout))
	case p.DOB.Before(minBirthDate):
		return violation("dob", "date of birth %s is before 1900-01-01", p.DOB.Format(models.DateLayout))
	}
	return nil
}

func checkDoctor(d models.Doctor) *Reason {
	switch {
	case d.Name == "":
		return violation("name", "name is required")
	case d.Specialization == "":
		return violation("specialization", "specialization is required")
	case d.YearsExperience < 0:
		return violation("years_experience", "years_experience %d is negative", d.YearsExperience)
	}
	return nil
}

func (v *Validator) checkAppointment(a models.Appointment) *Reason {
	switch a.Status {
	case models.StatusScheduled, models.StatusCancelled:
	case models.StatusCompleted:
		if a.AppointmentDate.After(v.processingDate) {
			return violation("appointment_date", "completed appointment dated %s is after processing date %s", a.AppointmentDate.Format(models.DateLayout), v.processingDate.Format(models.DateLayout))
		}
	default:
		return violation("status", "status %q is not one of Scheduled, Completed, Cancelled", a.Status)
	}
	return nil
}

func checkPrescription(p models.Prescription) *Reason {
	switch {
	case p.Medicine == "":
		return violation("medicine", "medicine is required")
	case p.DurationDays != nil && *p.DurationDays < 0:
		return violation("duration_days", "duration_days %d is negative", *p.DurationDays)
	}
	return nil
}

func checkBilling(b models.Billing) *Reason {
	if b.Amount < 0 {
		return violation("amount", "amount %s is negative", b.Amount)
	}
	if b.Amount > models.MaxAmount {
		return violation("amount", "amount %s exceeds the maximum %s", b.Amount, models.MaxAmount)
	}
	switch b.PaymentStatus {
	case models.PaymentPaid, models.PaymentPending:
	default:
		return violation("payment_status", "payment_status %q is not one of Paid, Pending", b.PaymentStatus)
	}
	switch b.PaymentMethod {
	case models.MethodCash, models.MethodCard, models.MethodInsurance, models.MethodUPI, models.MethodOnline:
	default:
		return violation("payment_method", "payment_method %q is not one of Cash, Card, Insurance, UPI, Online", b.PaymentMethod)
	}
	return nil
}

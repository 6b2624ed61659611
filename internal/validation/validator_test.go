package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

var processingDate = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

func raw(kind models.Kind, n int, kv ...string) models.RawRow {
	fields := make(map[string]*string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		fields[kv[i]] = &v
	}
	return models.RawRow{Kind: kind, BatchID: uuid.Nil, RowNumber: n, Fields: fields}
}

func patientRow(n int, id string) models.RawRow {
	return raw(models.KindPatient, n, "patient_id", id, "name", "Asha Rao", "gender", "female", "dob", "1990-04-12", "city", "Pune")
}

func doctorRow(n int, id, dept string) models.RawRow {
	return raw(models.KindDoctor, n, "doctor_id", id, "name", "Dr. Iyer", "specialization", dept, "years_experience", "12")
}

func TestValidatePatient(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(nil)

	res := v.Validate(patientRow(1, "000123"), ix)
	require.True(t, res.Accepted(), "reason: %v", res.Reason)
	p := res.Record.(models.Patient)
	assert.Equal(t, int64(123), p.PatientID)
	assert.Equal(t, models.GenderFemale, p.Gender)
	assert.Equal(t, "1990-04-12", p.DOB.Format(models.DateLayout))
	assert.Nil(t, p.ContactNo)
	assert.True(t, ix.Has(models.KindPatient, 123))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		row   models.RawRow
		stage Check
		field string
	}{
		{
			name:  "non integer id",
			row:   raw(models.KindPatient, 1, "patient_id", "12.5", "name", "A", "dob", "1990-01-01"),
			stage: CheckCoercion,
			field: "patient_id",
		},
		{
			name:  "bad date",
			row:   raw(models.KindPatient, 1, "patient_id", "1", "name", "A", "dob", "31/31/1990"),
			stage: CheckCoercion,
			field: "dob",
		},
		{
			name:  "dob in future",
			row:   raw(models.KindPatient, 1, "patient_id", "1", "name", "A", "dob", "2031-01-01"),
			stage: CheckConstraint,
			field: "dob",
		},
		{
			name:  "missing name",
			row:   raw(models.KindPatient, 1, "patient_id", "1", "name", "  ", "dob", "1990-01-01"),
			stage: CheckConstraint,
			field: "name",
		},
		{
			name:  "negative experience",
			row:   raw(models.KindDoctor, 1, "doctor_id", "1", "name", "B", "specialization", "Cardiology", "years_experience", "-2"),
			stage: CheckConstraint,
			field: "years_experience",
		},
		{
			name:  "unknown appointment status",
			row:   raw(models.KindAppointment, 1, "appointment_id", "1", "patient_id", "1", "doctor_id", "1", "appointment_date", "2025-01-01", "status", "no-show"),
			stage: CheckConstraint,
			field: "status",
		},
		{
			name:  "completed in the future",
			row:   raw(models.KindAppointment, 1, "appointment_id", "1", "patient_id", "1", "doctor_id", "1", "appointment_date", "2025-07-01", "status", "completed"),
			stage: CheckConstraint,
			field: "appointment_date",
		},
		{
			name:  "medicine required",
			row:   raw(models.KindPrescription, 1, "prescription_id", "1", "appointment_id", "1", "medicine", ""),
			stage: CheckConstraint,
			field: "medicine",
		},
		{
			name:  "refunded payment status",
			row:   raw(models.KindBilling, 1, "bill_id", "1", "patient_id", "1", "appointment_id", "1", "amount", "10", "payment_status", "Refunded", "payment_method", "Cash"),
			stage: CheckConstraint,
			field: "payment_status",
		},
		{
			name:  "negative amount",
			row:   raw(models.KindBilling, 1, "bill_id", "1", "patient_id", "1", "appointment_id", "1", "amount", "-0.01", "payment_status", "Paid", "payment_method", "Cash"),
			stage: CheckConstraint,
			field: "amount",
		},
		{
			name:  "amount above column capacity",
			row:   raw(models.KindBilling, 1, "bill_id", "1", "patient_id", "1", "appointment_id", "1", "amount", "100000000000.00", "payment_status", "Paid", "payment_method", "Cash"),
			stage: CheckConstraint,
			field: "amount",
		},
		{
			name:  "amount with three decimals",
			row:   raw(models.KindBilling, 1, "bill_id", "1", "patient_id", "1", "appointment_id", "1", "amount", "10.005", "payment_status", "Paid", "payment_method", "Cash"),
			stage: CheckCoercion,
			field: "amount",
		},
		{
			name:  "coercion is reported before constraints",
			row:   raw(models.KindBilling, 1, "bill_id", "x", "patient_id", "1", "appointment_id", "1", "amount", "-5", "payment_status", "Refunded", "payment_method", "Cash"),
			stage: CheckCoercion,
			field: "bill_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(processingDate)
			res := v.Validate(tt.row, NewIndex(nil))
			require.False(t, res.Accepted())
			assert.Nil(t, res.Record)
			assert.Equal(t, tt.stage, res.Reason.Stage)
			assert.Equal(t, tt.field, res.Reason.Field)
		})
	}
}

func TestValidateReferentialIntegrity(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(map[models.Kind][]int64{
		models.KindPatient: {1},
		models.KindDoctor:  {7},
	})

	ok := v.Validate(raw(models.KindAppointment, 1, "appointment_id", "10", "patient_id", "1", "doctor_id", "7", "appointment_date", "2025-05-01", "status", "Completed"), ix)
	require.True(t, ok.Accepted())

	missing := v.Validate(raw(models.KindAppointment, 2, "appointment_id", "11", "patient_id", "99", "doctor_id", "7", "appointment_date", "2025-05-01", "status", "Scheduled"), ix)
	require.False(t, missing.Accepted())
	assert.Equal(t, CheckReferential, missing.Reason.Stage)
	assert.Equal(t, "patient_id", missing.Reason.Field)
	assert.Contains(t, missing.Reason.Message, "99")
	assert.False(t, ix.Has(models.KindAppointment, 11))

	// a billing row can reference the appointment accepted earlier in the batch
	bill := v.Validate(raw(models.KindBilling, 1, "bill_id", "5", "patient_id", "1", "appointment_id", "10", "amount", "100", "payment_status", "paid", "payment_method", "credit card"), ix)
	require.True(t, bill.Accepted(), "reason: %v", bill.Reason)
	b := bill.Record.(models.Billing)
	assert.Equal(t, models.Cents(10000), b.Amount)
	assert.Equal(t, models.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, models.MethodCard, b.PaymentMethod)
}

func TestValidateAmountBoundary(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(map[models.Kind][]int64{
		models.KindPatient:     {1},
		models.KindAppointment: {1},
	})
	bill := func(id, amount string) models.RawRow {
		return raw(models.KindBilling, 1, "bill_id", id, "patient_id", "1", "appointment_id", "1", "amount", amount, "payment_status", "Paid", "payment_method", "Cash")
	}

	ceiling := v.Validate(bill("1", "9999999999.99"), ix)
	require.True(t, ceiling.Accepted(), "reason: %v", ceiling.Reason)
	assert.Equal(t, models.MaxAmount, ceiling.Record.(models.Billing).Amount)

	over := v.Validate(bill("2", "10000000000.00"), ix)
	require.False(t, over.Accepted())
	assert.Equal(t, CheckConstraint, over.Reason.Stage)
	assert.Equal(t, "amount", over.Reason.Field)
	assert.Contains(t, over.Reason.Message, "9999999999.99")
}

func TestValidateSameBatchDuplicates(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(nil)

	first := v.Validate(doctorRow(1, "7", "Cardiology"), ix)
	require.True(t, first.Accepted())
	assert.False(t, first.Reaffirmed)

	same := v.Validate(doctorRow(2, "7.0", "Cardiology"), ix)
	require.True(t, same.Accepted())
	assert.True(t, same.Reaffirmed)

	changed := v.Validate(doctorRow(3, "7", "Neurology"), ix)
	require.False(t, changed.Accepted())
	assert.Equal(t, CheckUniqueness, changed.Reason.Stage)
	assert.Equal(t, "doctor_id", changed.Reason.Field)
	assert.Equal(t, 1, ix.Accepted(models.KindDoctor))
}

func TestValidatePriorBatchIdentifierIsUpdate(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(map[models.Kind][]int64{models.KindDoctor: {7}})

	res := v.Validate(doctorRow(1, "7", "Neurology"), ix)
	require.True(t, res.Accepted())
	assert.False(t, res.Reaffirmed)
}

func TestValidateIsTotal(t *testing.T) {
	v := NewValidator(processingDate)
	ix := NewIndex(nil)
	rows := []models.RawRow{
		patientRow(1, "1"),
		patientRow(2, "abc"),
		patientRow(3, "1"),
		raw(models.KindPatient, 4),
		raw(models.Kind("nurse"), 5, "id", "1"),
		doctorRow(6, "2", ""),
	}
	results := v.ValidateAll(rows, ix)
	require.Len(t, results, len(rows))
	for i, res := range results {
		assert.Equal(t, rows[i].RowNumber, res.Row.RowNumber)
		assert.NotEqual(t, res.Record == nil, res.Reason == nil, "row %d must be exactly one of accepted or rejected", i+1)
	}
}

func TestReasonString(t *testing.T) {
	r := Reason{Stage: CheckReferential, Field: "doctor_id", Message: "doctor_id 4 does not reference an existing doctor"}
	assert.Equal(t, "referential: doctor_id: doctor_id 4 does not reference an existing doctor", r.String())
	assert.Equal(t, "coercion: bad", Reason{Stage: CheckCoercion, Message: "bad"}.String())
}

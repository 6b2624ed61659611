package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical rendering of Silver date columns.
const DateLayout = "2006-01-02"

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "Other"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
)

type PaymentMethod string

const (
	MethodCash      PaymentMethod = "Cash"
	MethodCard      PaymentMethod = "Card"
	MethodInsurance PaymentMethod = "Insurance"
	MethodUPI       PaymentMethod = "UPI"
	MethodOnline    PaymentMethod = "Online"
)

// Ref is a foreign key carried by a Silver record.
type Ref struct {
	Field string
	Kind  Kind
	ID    int64
}

// Record is a typed Silver row of any kind.
type Record interface {
	Kind() Kind
	Key() int64
	// Values returns the column values in KindSpec.Columns order.
	Values() []interface{}
	Refs() []Ref
	// Fingerprint identifies the record content; equal fingerprints mean
	// an identical row.
	Fingerprint() string
}

type Patient struct {
	PatientID int64     `json:"patient_id"`
	Name      string    `json:"name"`
	Gender    Gender    `json:"gender"`
	DOB       time.Time `json:"dob"`
	City      *string   `json:"city,omitempty"`
	ContactNo *string   `json:"contact_no,omitempty"`
}

func (p Patient) Kind() Kind  { return KindPatient }
func (p Patient) Key() int64  { return p.PatientID }
func (p Patient) Refs() []Ref { return nil }
func (p Patient) Values() []interface{} {
	return []interface{}{p.PatientID, p.Name, string(p.Gender), p.DOB, p.City, p.ContactNo}
}
func (p Patient) Fingerprint() string { return fingerprint(p.Values()) }

type Doctor struct {
	DoctorID        int64  `json:"doctor_id"`
	Name            string `json:"name"`
	Specialization  string `json:"specialization"`
	YearsExperience int64  `json:"years_experience"`
}

func (d Doctor) Kind() Kind  { return KindDoctor }
func (d Doctor) Key() int64  { return d.DoctorID }
func (d Doctor) Refs() []Ref { return nil }
func (d Doctor) Values() []interface{} {
	return []interface{}{d.DoctorID, d.Name, d.Specialization, d.YearsExperience}
}
func (d Doctor) Fingerprint() string { return fingerprint(d.Values()) }

type Appointment struct {
	AppointmentID   int64             `json:"appointment_id"`
	PatientID       int64             `json:"patient_id"`
	DoctorID        int64             `json:"doctor_id"`
	AppointmentDate time.Time         `json:"appointment_date"`
	Status          AppointmentStatus `json:"status"`
}

func (a Appointment) Kind() Kind { return KindAppointment }
func (a Appointment) Key() int64 { return a.AppointmentID }
func (a Appointment) Refs() []Ref {
	return []Ref{
		{Field: "patient_id", Kind: KindPatient, ID: a.PatientID},
		{Field: "doctor_id", Kind: KindDoctor, ID: a.DoctorID},
	}
}
func (a Appointment) Values() []interface{} {
	return []interface{}{a.AppointmentID, a.PatientID, a.DoctorID, a.AppointmentDate, string(a.Status)}
}
func (a Appointment) Fingerprint() string { return fingerprint(a.Values()) }

type Prescription struct {
	PrescriptionID int64   `json:"prescription_id"`
	AppointmentID  int64   `json:"appointment_id"`
	Medicine       string  `json:"medicine"`
	Dosage         *string `json:"dosage,omitempty"`
	DurationDays   *int64  `json:"duration_days,omitempty"`
}

func (p Prescription) Kind() Kind { return KindPrescription }
func (p Prescription) Key() int64 { return p.PrescriptionID }
func (p Prescription) Refs() []Ref {
	return []Ref{{Field: "appointment_id", Kind: KindAppointment, ID: p.AppointmentID}}
}
func (p Prescription) Values() []interface{} {
	return []interface{}{p.PrescriptionID, p.AppointmentID, p.Medicine, p.Dosage, p.DurationDays}
}
func (p Prescription) Fingerprint() string { return fingerprint(p.Values()) }

type Billing struct {
	BillID        int64         `json:"bill_id"`
	PatientID     int64         `json:"patient_id"`
	AppointmentID int64         `json:"appointment_id"`
	Amount        Cents         `json:"amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

func (b Billing) Kind() Kind { return KindBilling }
func (b Billing) Key() int64 { return b.BillID }
func (b Billing) Refs() []Ref {
	return []Ref{
		{Field: "patient_id", Kind: KindPatient, ID: b.PatientID},
		{Field: "appointment_id", Kind: KindAppointment, ID: b.AppointmentID},
	}
}

// Values renders the amount as decimal text so NUMERIC columns receive it
// without a float conversion.
func (b Billing) Values() []interface{} {
	return []interface{}{b.BillID, b.PatientID, b.AppointmentID, b.Amount.String(), string(b.PaymentStatus), string(b.PaymentMethod)}
}
func (b Billing) Fingerprint() string { return fingerprint(b.Values()) }

func fingerprint(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case nil:
			parts[i] = "\x00"
		case time.Time:
			parts[i] = t.Format(DateLayout)
		case *string:
			if t == nil {
				parts[i] = "\x00"
			} else {
				parts[i] = *t
			}
		case *int64:
			if t == nil {
				parts[i] = "\x00"
			} else {
				parts[i] = fmt.Sprint(*t)
			}
		default:
			parts[i] = fmt.Sprint(t)
		}
	}
	return strings.Join(parts, "\x1f")
}

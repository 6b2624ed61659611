package models

import "time"

// GoldTable describes one readable Gold table.
type GoldTable struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	OrderBy     string   `json:"-"`
}

// GoldTables is the catalogue of Gold tables the read surfaces expose.
// Names double as the allowlist for dynamic table reads.
var GoldTables = []GoldTable{
	{Name: "total_patients", Description: "Count of Silver patients", Columns: []string{"total_patients"}, OrderBy: "1"},
	{Name: "appointments_summary", Description: "Total and completed appointments", Columns: []string{"total_appointments", "completed_appointments", "completion_rate"}, OrderBy: "1"},
	{Name: "total_revenue", Description: "Paid revenue and pending amount", Columns: []string{"total_revenue", "pending_amount"}, OrderBy: "1"},
	{Name: "revenue_by_department", Description: "Paid revenue per doctor specialization", Columns: []string{"department", "total_revenue"}, OrderBy: "total_revenue DESC, department"},
	{Name: "revenue_by_payment_method", Description: "Paid revenue per payment method", Columns: []string{"payment_method", "total_revenue"}, OrderBy: "total_revenue DESC, payment_method"},
	{Name: "revenue_monthly", Description: "Paid revenue per appointment month", Columns: []string{"month_year", "total_revenue"}, OrderBy: "month_year"},
	{Name: "appointment_utilization_doctor", Description: "Appointment completion per doctor", Columns: []string{"doctor_id", "doctor_name", "total_appointments", "completed_appointments", "completion_rate"}, OrderBy: "doctor_id"},
	{Name: "appointment_utilization_patient", Description: "Appointment completion per patient", Columns: []string{"patient_id", "patient_name", "total_appointments", "completed_appointments", "completion_rate"}, OrderBy: "patient_id"},
	{Name: "doctor_performance", Description: "Top two doctors per department by distinct patients", Columns: []string{"doctor_id", "department", "doctor_name", "patient_count"}, OrderBy: "department, patient_count DESC, doctor_id"},
	{Name: "patient_insights", Description: "Patients by age group and gender", Columns: []string{"age_group", "gender", "patient_count"}, OrderBy: "age_group, gender"},
	{Name: "medicine_utilization", Description: "Prescriptions per medicine", Columns: []string{"medicine_name", "prescription_count"}, OrderBy: "prescription_count DESC, medicine_name"},
	{Name: "outstanding_revenue", Description: "Pending amount per patient", Columns: []string{"patient_id", "patient_name", "pending_amount"}, OrderBy: "pending_amount DESC, patient_id"},
	{Name: "dashboard_summary", Description: "Single-row KPI roll-up", Columns: []string{"total_patients", "total_doctors", "total_appointments", "completed_appointments", "total_revenue", "pending_amount", "total_prescriptions"}, OrderBy: "1"},
}

// LookupGoldTable finds a catalogue entry by name.
func LookupGoldTable(name string) (GoldTable, bool) {
	for _, t := range GoldTables {
		if t.Name == name {
			return t, true
		}
	}
	return GoldTable{}, false
}

// DashboardSummary is the single row of gold.dashboard_summary.
type DashboardSummary struct {
	TotalPatients         int64 `json:"total_patients"`
	TotalDoctors          int64 `json:"total_doctors"`
	TotalAppointments     int64 `json:"total_appointments"`
	CompletedAppointments int64 `json:"completed_appointments"`
	TotalRevenue          Cents `json:"total_revenue"`
	PendingAmount         Cents `json:"pending_amount"`
	TotalPrescriptions    int64 `json:"total_prescriptions"`
}

// BuildInfo stamps one Gold rebuild.
type BuildInfo struct {
	BuiltAt        time.Time `json:"built_at"`
	ProcessingDate time.Time `json:"processing_date"`

	// TableRows is only filled by the rebuild that produced the stamp.
	TableRows map[string]int64 `json:"table_rows,omitempty"`
}

// Version is a stable token that changes on every rebuild.
func (b BuildInfo) Version() string {
	return b.BuiltAt.UTC().Format(time.RFC3339Nano)
}

// GoldTableRows is a generic read of one Gold table.
type GoldTableRows struct {
	Table   string                   `json:"table"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Figures is one side of a reconciliation: the values a rule compares. On
// the Gold side a nil scalar means the Gold row is missing. BillingTotal is
// Silver-only.
type Figures struct {
	TotalPatients         *int64
	AppointmentsTotal     *int64
	AppointmentsCompleted *int64
	PaidRevenue           *Cents
	PendingAmount         *Cents
	BillingTotal          *Cents
	OutstandingTotal      *Cents
	RevenueByDepartment   map[string]Cents
	RevenueByMethod       map[string]Cents
}

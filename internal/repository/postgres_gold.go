package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

type goldStep struct {
	table string
	sql   string
}

// goldSteps is the full Gold rebuild. $1 is the processing date.
func goldSteps() []goldStep {
	completed := CompletedPredicate("a")
	paid := PaidPredicate("b")
	pending := PendingPredicate("b")
	rate := func(done, total string) string {
		return fmt.Sprintf("COALESCE(ROUND((%s)::numeric * 100 / NULLIF(%s, 0), 2), 0)", done, total)
	}

	return []goldStep{
		{"total_patients", `
			INSERT INTO gold.total_patients (total_patients)
			SELECT COUNT(*) FROM silver.patients`},
		{"appointments_summary", fmt.Sprintf(`
			INSERT INTO gold.appointments_summary (total_appointments, completed_appointments, completion_rate)
			SELECT COUNT(*), COUNT(*) FILTER (WHERE %s), %s
			FROM silver.appointments a`,
			completed, rate(fmt.Sprintf("COUNT(*) FILTER (WHERE %s)", completed), "COUNT(*)"))},
		{"total_revenue", fmt.Sprintf(`
			INSERT INTO gold.total_revenue (total_revenue, pending_amount)
			SELECT COALESCE(SUM(b.amount) FILTER (WHERE %s), 0), COALESCE(SUM(b.amount) FILTER (WHERE %s), 0)
			FROM silver.billing b`, paid, pending)},
		{"revenue_by_department", fmt.Sprintf(`
			INSERT INTO gold.revenue_by_department (department, total_revenue)
			SELECT d.specialization, SUM(b.amount)
			FROM silver.billing b
			JOIN silver.appointments a ON a.appointment_id = b.appointment_id
			JOIN silver.doctors d ON d.doctor_id = a.doctor_id
			WHERE %s
			GROUP BY d.specialization`, paid)},
		{"revenue_by_payment_method", fmt.Sprintf(`
			INSERT INTO gold.revenue_by_payment_method (payment_method, total_revenue)
			SELECT b.payment_method, SUM(b.amount)
			FROM silver.billing b
			WHERE %s
			GROUP BY b.payment_method`, paid)},
		{"revenue_monthly", fmt.Sprintf(`
			INSERT INTO gold.revenue_monthly (month_year, total_revenue)
			SELECT to_char(a.appointment_date, 'YYYY-MM'), SUM(b.amount)
			FROM silver.billing b
			JOIN silver.appointments a ON a.appointment_id = b.appointment_id
			WHERE %s
			GROUP BY 1`, paid)},
		{"appointment_utilization_doctor", fmt.Sprintf(`
			INSERT INTO gold.appointment_utilization_doctor
				(doctor_id, doctor_name, total_appointments, completed_appointments, completion_rate)
			SELECT d.doctor_id, d.name, COUNT(*), COUNT(*) FILTER (WHERE %s), %s
			FROM silver.appointments a
			JOIN silver.doctors d ON d.doctor_id = a.doctor_id
			GROUP BY d.doctor_id, d.name`,
			completed, rate(fmt.Sprintf("COUNT(*) FILTER (WHERE %s)", completed), "COUNT(*)"))},
		{"appointment_utilization_patient", fmt.Sprintf(`
			INSERT INTO gold.appointment_utilization_patient
				(patient_id, patient_name, total_appointments, completed_appointments, completion_rate)
			SELECT p.patient_id, p.name, COUNT(*), COUNT(*) FILTER (WHERE %s), %s
			FROM silver.appointments a
			JOIN silver.patients p ON p.patient_id = a.patient_id
			GROUP BY p.patient_id, p.name`,
			completed, rate(fmt.Sprintf("COUNT(*) FILTER (WHERE %s)", completed), "COUNT(*)"))},
		{"doctor_performance", `
			INSERT INTO gold.doctor_performance (doctor_id, department, doctor_name, patient_count)
			SELECT doctor_id, department, doctor_name, patient_count
			FROM (
				SELECT d.doctor_id, d.specialization AS department, d.name AS doctor_name,
					COUNT(DISTINCT a.patient_id) AS patient_count,
					ROW_NUMBER() OVER (
						PARTITION BY d.specialization
						ORDER BY COUNT(DISTINCT a.patient_id) DESC, d.doctor_id
					) AS rn
				FROM silver.doctors d
				LEFT JOIN silver.appointments a ON a.doctor_id = d.doctor_id
				GROUP BY d.doctor_id, d.specialization, d.name
			) ranked
			WHERE rn <= 2`},
		{"patient_insights", `
			INSERT INTO gold.patient_insights (age_group, gender, patient_count)
			SELECT age_group, gender, COUNT(*)
			FROM (
				SELECT gender,
					CASE
						WHEN age < 18 THEN '0-17'
						WHEN age BETWEEN 18 AND 35 THEN '18-35'
						WHEN age BETWEEN 36 AND 50 THEN '36-50'
						WHEN age BETWEEN 51 AND 65 THEN '51-65'
						ELSE '65+'
					END AS age_group
				FROM (
					SELECT gender, EXTRACT(YEAR FROM age($1::date, dob))::int AS age
					FROM silver.patients
				) aged
			) grouped
			GROUP BY age_group, gender`},
		{"medicine_utilization", `
			INSERT INTO gold.medicine_utilization (medicine_name, prescription_count)
			SELECT medicine, COUNT(*) FROM silver.prescriptions GROUP BY medicine`},
		{"outstanding_revenue", fmt.Sprintf(`
			INSERT INTO gold.outstanding_revenue (patient_id, patient_name, pending_amount)
			SELECT p.patient_id, p.name, SUM(b.amount)
			FROM silver.billing b
			JOIN silver.patients p ON p.patient_id = b.patient_id
			WHERE %s
			GROUP BY p.patient_id, p.name`, pending)},
		{"dashboard_summary", fmt.Sprintf(`
			INSERT INTO gold.dashboard_summary (total_patients, total_doctors, total_appointments,
				completed_appointments, total_revenue, pending_amount, total_prescriptions)
			SELECT
				(SELECT COUNT(*) FROM silver.patients),
				(SELECT COUNT(*) FROM silver.doctors),
				(SELECT COUNT(*) FROM silver.appointments),
				(SELECT COUNT(*) FROM silver.appointments a WHERE %s),
				(SELECT COALESCE(SUM(b.amount), 0) FROM silver.billing b WHERE %s),
				(SELECT COALESCE(SUM(b.amount), 0) FROM silver.billing b WHERE %s),
				(SELECT COUNT(*) FROM silver.prescriptions)`, completed, paid, pending)},
	}
}

// RebuildGold truncates and refills every Gold table in one transaction.
func (s *PostgresStore) RebuildGold(ctx context.Context, processingDate time.Time) (models.BuildInfo, error) {
	var info models.BuildInfo
	err := s.InTx(ctx, func(ctx context.Context) error {
		q := s.conn(ctx)
		tables := make([]string, 0, len(models.GoldTables)+1)
		for _, t := range models.GoldTables {
			tables = append(tables, "gold."+t.Name)
		}
		tables = append(tables, "gold.build_info")
		if _, err := q.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
			return fmt.Errorf("truncate gold: %w", err)
		}

		day := processingDate.UTC().Format(models.DateLayout)
		counts := make(map[string]int64, len(models.GoldTables))
		for _, step := range goldSteps() {
			var args []interface{}
			if strings.Contains(step.sql, "$1") {
				args = append(args, day)
			}
			tag, err := q.Exec(ctx, step.sql, args...)
			if err != nil {
				return fmt.Errorf("build gold.%s: %w", step.table, err)
			}
			counts[step.table] = tag.RowsAffected()
			s.logger.Debug("gold table built", "table", step.table, "rows", tag.RowsAffected())
		}

		info.TableRows = counts
		return q.QueryRow(ctx,
			`INSERT INTO gold.build_info (built_at, processing_date) VALUES (clock_timestamp(), $1::date)
			 RETURNING built_at, processing_date`, day).Scan(&info.BuiltAt, &info.ProcessingDate)
	})
	if err != nil {
		return models.BuildInfo{}, err
	}
	return info, nil
}

// BuildInfo returns the stamp of the last rebuild.
func (s *PostgresStore) BuildInfo(ctx context.Context) (*models.BuildInfo, error) {
	var info models.BuildInfo
	err := s.conn(ctx).QueryRow(ctx, `SELECT built_at, processing_date FROM gold.build_info LIMIT 1`).
		Scan(&info.BuiltAt, &info.ProcessingDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query build info: %w", err)
	}
	return &info, nil
}

// ReadGoldTable reads a catalogued Gold table. Numeric columns come back as
// exact decimal numbers.
func (s *PostgresStore) ReadGoldTable(ctx context.Context, name string) (*models.GoldTableRows, error) {
	table, ok := models.LookupGoldTable(name)
	if !ok {
		return nil, fmt.Errorf("gold table %q: %w", name, ErrNotFound)
	}
	query := fmt.Sprintf(`SELECT %s FROM gold.%s ORDER BY %s`,
		strings.Join(table.Columns, ", "), table.Name, table.OrderBy)
	rows, err := s.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query gold.%s: %w", table.Name, err)
	}
	defer rows.Close()

	out := &models.GoldTableRows{Table: table.Name, Columns: table.Columns, Rows: []map[string]interface{}{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read gold.%s: %w", table.Name, err)
		}
		row := make(map[string]interface{}, len(values))
		for i, v := range values {
			row[table.Columns[i]] = presentValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

func presentValue(v interface{}) interface{} {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return v
	}
	if !n.Valid {
		return nil
	}
	text, err := n.Value()
	if err != nil {
		return nil
	}
	if s, ok := text.(string); ok {
		return json.Number(s)
	}
	return text
}

// DashboardSummary reads the single dashboard row.
func (s *PostgresStore) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var d models.DashboardSummary
	var revenue, pending string
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT total_patients, total_doctors, total_appointments, completed_appointments,
			total_revenue::text, pending_amount::text, total_prescriptions
		 FROM gold.dashboard_summary LIMIT 1`).
		Scan(&d.TotalPatients, &d.TotalDoctors, &d.TotalAppointments, &d.CompletedAppointments,
			&revenue, &pending, &d.TotalPrescriptions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dashboard summary: %w", err)
	}
	if d.TotalRevenue, err = models.ParseCents(revenue); err != nil {
		return nil, fmt.Errorf("parse total_revenue: %w", err)
	}
	if d.PendingAmount, err = models.ParseCents(pending); err != nil {
		return nil, fmt.Errorf("parse pending_amount: %w", err)
	}
	return &d, nil
}

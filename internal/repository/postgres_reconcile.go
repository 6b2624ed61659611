package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// ReadFigures evaluates the Silver side and the Gold side of every rule
// inside one repeatable-read snapshot.
func (s *PostgresStore) ReadFigures(ctx context.Context) (silver, gold models.Figures, err error) {
	err = s.inSnapshot(ctx, func(ctx context.Context) error {
		var err error
		if silver, err = s.silverFigures(ctx); err != nil {
			return err
		}
		gold, err = s.goldFigures(ctx)
		return err
	})
	return silver, gold, err
}

func (s *PostgresStore) silverFigures(ctx context.Context) (models.Figures, error) {
	q := s.conn(ctx)
	var f models.Figures
	var patients, appts, completed int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM silver.patients`).Scan(&patients); err != nil {
		return f, fmt.Errorf("count silver patients: %w", err)
	}
	err := q.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE %s) FROM silver.appointments a`, CompletedPredicate("a"))).
		Scan(&appts, &completed)
	if err != nil {
		return f, fmt.Errorf("count silver appointments: %w", err)
	}
	f.TotalPatients, f.AppointmentsTotal, f.AppointmentsCompleted = &patients, &appts, &completed

	var all, paid, pending string
	err = q.QueryRow(ctx, fmt.Sprintf(`
		SELECT COALESCE(SUM(b.amount), 0)::text,
			COALESCE(SUM(b.amount) FILTER (WHERE %s), 0)::text,
			COALESCE(SUM(b.amount) FILTER (WHERE %s), 0)::text
		FROM silver.billing b`, PaidPredicate("b"), PendingPredicate("b"))).Scan(&all, &paid, &pending)
	if err != nil {
		return f, fmt.Errorf("sum silver billing: %w", err)
	}
	if f.BillingTotal, err = parseCentsPtr(&all); err != nil {
		return f, err
	}
	if f.PaidRevenue, err = parseCentsPtr(&paid); err != nil {
		return f, err
	}
	if f.PendingAmount, err = parseCentsPtr(&pending); err != nil {
		return f, err
	}
	f.OutstandingTotal = f.PendingAmount

	f.RevenueByDepartment, err = s.groupedSums(ctx, fmt.Sprintf(`
		SELECT d.specialization, SUM(b.amount)::text
		FROM silver.billing b
		JOIN silver.appointments a ON a.appointment_id = b.appointment_id
		JOIN silver.doctors d ON d.doctor_id = a.doctor_id
		WHERE %s
		GROUP BY d.specialization`, PaidPredicate("b")))
	if err != nil {
		return f, fmt.Errorf("silver revenue by department: %w", err)
	}
	f.RevenueByMethod, err = s.groupedSums(ctx, fmt.Sprintf(`
		SELECT b.payment_method, SUM(b.amount)::text
		FROM silver.billing b
		WHERE %s
		GROUP BY b.payment_method`, PaidPredicate("b")))
	if err != nil {
		return f, fmt.Errorf("silver revenue by payment method: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) goldFigures(ctx context.Context) (models.Figures, error) {
	q := s.conn(ctx)
	var f models.Figures

	var patients int64
	err := q.QueryRow(ctx, `SELECT total_patients FROM gold.total_patients LIMIT 1`).Scan(&patients)
	switch {
	case err == nil:
		f.TotalPatients = &patients
	case !errors.Is(err, pgx.ErrNoRows):
		return f, fmt.Errorf("read gold total_patients: %w", err)
	}

	var total, completed int64
	err = q.QueryRow(ctx, `SELECT total_appointments, completed_appointments FROM gold.appointments_summary LIMIT 1`).
		Scan(&total, &completed)
	switch {
	case err == nil:
		f.AppointmentsTotal, f.AppointmentsCompleted = &total, &completed
	case !errors.Is(err, pgx.ErrNoRows):
		return f, fmt.Errorf("read gold appointments_summary: %w", err)
	}

	var paid, pending string
	err = q.QueryRow(ctx, `SELECT total_revenue::text, pending_amount::text FROM gold.total_revenue LIMIT 1`).
		Scan(&paid, &pending)
	switch {
	case err == nil:
		if f.PaidRevenue, err = parseCentsPtr(&paid); err != nil {
			return f, err
		}
		if f.PendingAmount, err = parseCentsPtr(&pending); err != nil {
			return f, err
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return f, fmt.Errorf("read gold total_revenue: %w", err)
	}

	var outstanding string
	if err := q.QueryRow(ctx, `SELECT COALESCE(SUM(pending_amount), 0)::text FROM gold.outstanding_revenue`).Scan(&outstanding); err != nil {
		return f, fmt.Errorf("read gold outstanding_revenue: %w", err)
	}
	if f.OutstandingTotal, err = parseCentsPtr(&outstanding); err != nil {
		return f, err
	}

	if f.RevenueByDepartment, err = s.groupedSums(ctx, `SELECT department, total_revenue::text FROM gold.revenue_by_department`); err != nil {
		return f, fmt.Errorf("read gold revenue_by_department: %w", err)
	}
	if f.RevenueByMethod, err = s.groupedSums(ctx, `SELECT payment_method, total_revenue::text FROM gold.revenue_by_payment_method`); err != nil {
		return f, fmt.Errorf("read gold revenue_by_payment_method: %w", err)
	}
	return f, nil
}

// groupedSums reads (key, decimal text) pairs.
func (s *PostgresStore) groupedSums(ctx context.Context, query string) (map[string]models.Cents, error) {
	rows, err := s.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Cents)
	for rows.Next() {
		var key, sum string
		if err := rows.Scan(&key, &sum); err != nil {
			return nil, err
		}
		c, err := models.ParseCents(sum)
		if err != nil {
			return nil, fmt.Errorf("parse sum for %q: %w", key, err)
		}
		out[key] = c
	}
	return out, rows.Err()
}

func parseCentsPtr(s *string) (*models.Cents, error) {
	c, err := models.ParseCents(*s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", *s, err)
	}
	return &c, nil
}

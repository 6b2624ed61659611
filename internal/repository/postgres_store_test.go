package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

func strp(s string) *string { return &s }

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("medallion"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool, logging.NewNop())
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrations must be re-runnable")

	var batch models.IngestBatch

	t.Run("Bronze append and read back in order", func(t *testing.T) {
		batch, err = store.CreateBatch(ctx, "test")
		require.NoError(t, err)

		n, err := store.AppendRows(ctx, models.KindPatient, batch.ID, []map[string]*string{
			{"patient_id": strp("1"), "name": strp("Asha"), "gender": strp("F"), "dob": strp("1990-01-01")},
			{"patient_id": strp("2"), "name": strp("Ravi"), "gender": nil, "dob": strp("1985-06-15")},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, store.RecordLoad(ctx, models.LoadLogEntry{
			BatchID: batch.ID, Kind: models.KindPatient, SourceName: "patients.csv", Rows: 2, Checksum: "abc", Status: models.LoadLoaded,
		}))

		rows, err := store.ReadBatchRows(ctx, models.KindPatient, batch.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 1, rows[0].RowNumber)
		assert.Equal(t, "Asha", *rows[0].Fields["name"])
		assert.Nil(t, rows[1].Fields["gender"])
		assert.Nil(t, rows[1].Fields["city"])

		pending, err := store.PendingBatches(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, batch.ID, pending[0].ID)

		log, err := store.LoadLog(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, log, 1)
		assert.Equal(t, "abc", log[0].Checksum)
	})

	t.Run("Silver upsert inside a transaction", func(t *testing.T) {
		err := store.InTx(ctx, func(ctx context.Context) error {
			if err := store.UpsertRecords(ctx, models.KindPatient, []models.Record{
				models.Patient{PatientID: 1, Name: "Asha", Gender: models.GenderFemale, DOB: day("1990-01-01")},
				models.Patient{PatientID: 2, Name: "Ravi", Gender: models.GenderOther, DOB: day("1985-06-15")},
			}); err != nil {
				return err
			}
			if err := store.UpsertRecords(ctx, models.KindDoctor, []models.Record{
				models.Doctor{DoctorID: 10, Name: "Dr. Iyer", Specialization: "Cardiology", YearsExperience: 12},
				models.Doctor{DoctorID: 11, Name: "Dr. Shah", Specialization: "Neurology", YearsExperience: 3},
			}); err != nil {
				return err
			}
			if err := store.UpsertRecords(ctx, models.KindAppointment, []models.Record{
				models.Appointment{AppointmentID: 100, PatientID: 1, DoctorID: 10, AppointmentDate: day("2025-01-10"), Status: models.StatusCompleted},
				models.Appointment{AppointmentID: 101, PatientID: 2, DoctorID: 11, AppointmentDate: day("2025-02-11"), Status: models.StatusScheduled},
				models.Appointment{AppointmentID: 102, PatientID: 2, DoctorID: 10, AppointmentDate: day("2025-02-12"), Status: models.StatusCompleted},
			}); err != nil {
				return err
			}
			if err := store.UpsertRecords(ctx, models.KindBilling, []models.Record{
				models.Billing{BillID: 1, PatientID: 1, AppointmentID: 100, Amount: 10000, PaymentStatus: models.PaymentPaid, PaymentMethod: models.MethodCash},
				models.Billing{BillID: 2, PatientID: 2, AppointmentID: 101, Amount: 5000, PaymentStatus: models.PaymentPending, PaymentMethod: models.MethodCard},
				models.Billing{BillID: 3, PatientID: 2, AppointmentID: 102, Amount: 20000, PaymentStatus: models.PaymentPaid, PaymentMethod: models.MethodUPI},
			}); err != nil {
				return err
			}
			return store.MarkBatchProcessed(ctx, batch.ID)
		})
		require.NoError(t, err)

		// re-upserting updates in place
		require.NoError(t, store.UpsertRecords(ctx, models.KindDoctor, []models.Record{
			models.Doctor{DoctorID: 11, Name: "Dr. Shah", Specialization: "Neurology", YearsExperience: 4},
		}))

		keys, err := store.ExistingKeys(ctx, models.AllKinds)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2}, keys[models.KindPatient])
		assert.ElementsMatch(t, []int64{10, 11}, keys[models.KindDoctor])
		assert.Len(t, keys[models.KindBilling], 3)

		pending, err := store.PendingBatches(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Failed transaction leaves Silver untouched", func(t *testing.T) {
		err := store.InTx(ctx, func(ctx context.Context) error {
			if err := store.UpsertRecords(ctx, models.KindPatient, []models.Record{
				models.Patient{PatientID: 3, Name: "Mina", Gender: models.GenderFemale, DOB: day("2000-01-01")},
			}); err != nil {
				return err
			}
			// dangling foreign key aborts the transaction
			return store.UpsertRecords(ctx, models.KindAppointment, []models.Record{
				models.Appointment{AppointmentID: 200, PatientID: 999, DoctorID: 10, AppointmentDate: day("2025-01-01"), Status: models.StatusScheduled},
			})
		})
		require.Error(t, err)

		keys, err := store.ExistingKeys(ctx, []models.Kind{models.KindPatient})
		require.NoError(t, err)
		assert.NotContains(t, keys[models.KindPatient], int64(3))
	})

	t.Run("Rejections are recorded and listed", func(t *testing.T) {
		require.NoError(t, store.RecordRejections(ctx, []models.RejectedRow{{
			Kind:      models.KindBilling,
			BatchID:   batch.ID,
			RowNumber: 4,
			Payload:   map[string]*string{"bill_id": strp("9"), "payment_status": strp("Refunded")},
			Stage:     "constraint",
			Field:     "payment_status",
			Reason:    `payment_status "Refunded" is not one of Paid, Pending`,
		}}))

		kind := models.KindBilling
		got, err := store.ListRejections(ctx, models.RejectionFilter{Kind: &kind, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Refunded", *got[0].Payload["payment_status"])
		assert.Equal(t, 4, got[0].RowNumber)

		other := models.KindDoctor
		none, err := store.ListRejections(ctx, models.RejectionFilter{Kind: &other})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Gold rebuild reconciles with Silver", func(t *testing.T) {
		info, err := store.RebuildGold(ctx, day("2025-06-30"))
		require.NoError(t, err)
		assert.Equal(t, "2025-06-30", info.ProcessingDate.Format(models.DateLayout))

		silver, gold, err := store.ReadFigures(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), *gold.TotalPatients)
		assert.Equal(t, int64(3), *gold.AppointmentsTotal)
		assert.Equal(t, int64(2), *gold.AppointmentsCompleted)
		assert.Equal(t, models.Cents(30000), *gold.PaidRevenue)
		assert.Equal(t, models.Cents(5000), *gold.PendingAmount)
		assert.Equal(t, models.Cents(35000), *silver.BillingTotal)
		assert.Equal(t, silver.RevenueByDepartment, gold.RevenueByDepartment)
		assert.Equal(t, models.Cents(30000), gold.RevenueByDepartment["Cardiology"])
		assert.Equal(t, silver.RevenueByMethod, gold.RevenueByMethod)
		assert.Equal(t, *silver.OutstandingTotal, *gold.OutstandingTotal)

		dash, err := store.DashboardSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Cents(30000), dash.TotalRevenue)
		assert.Equal(t, int64(2), dash.TotalDoctors)

		perf, err := store.ReadGoldTable(ctx, "doctor_performance")
		require.NoError(t, err)
		assert.Len(t, perf.Rows, 2)

		_, err = store.ReadGoldTable(ctx, "pg_user")
		assert.ErrorIs(t, err, ErrNotFound)

		again, err := store.RebuildGold(ctx, day("2025-06-30"))
		require.NoError(t, err)
		assert.True(t, again.BuiltAt.After(info.BuiltAt))
		stamp, err := store.BuildInfo(ctx)
		require.NoError(t, err)
		assert.True(t, stamp.BuiltAt.Equal(again.BuiltAt))
	})

	t.Run("Reconciliation reports round-trip", func(t *testing.T) {
		_, err := store.LatestReconciliation(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		report := models.ReconciliationReport{
			RunID: uuid.New(),
			RanAt: time.Now().UTC().Truncate(time.Millisecond),
			Results: []models.RuleResult{
				{Rule: "total_patients", SilverValue: "2", GoldValue: "2", Passed: true},
				{Rule: "revenue_by_department", Key: "Cardiology", SilverValue: "300.00", GoldValue: "300.00", Passed: true},
			},
			Passed: true,
		}
		require.NoError(t, store.SaveReconciliation(ctx, report))

		got, err := store.LatestReconciliation(ctx)
		require.NoError(t, err)
		assert.Equal(t, report.RunID, got.RunID)
		assert.Equal(t, report.Results, got.Results)
		assert.True(t, got.Passed)
	})

	t.Run("Gold sums wider than one Silver amount", func(t *testing.T) {
		bills := make([]models.Record, 0, 11)
		for i := int64(0); i < 11; i++ {
			bills = append(bills, models.Billing{
				BillID: 1000 + i, PatientID: 1, AppointmentID: 100,
				Amount: models.MaxAmount, PaymentStatus: models.PaymentPaid, PaymentMethod: models.MethodCash,
			})
		}
		require.NoError(t, store.UpsertRecords(ctx, models.KindBilling, bills))

		_, err := store.RebuildGold(ctx, day("2025-06-30"))
		require.NoError(t, err)

		silver, gold, err := store.ReadFigures(ctx)
		require.NoError(t, err)
		want := models.Cents(30000) + 11*models.MaxAmount
		assert.Equal(t, want, *gold.PaidRevenue)
		assert.Equal(t, silver.RevenueByMethod, gold.RevenueByMethod)

		dash, err := store.DashboardSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, dash.TotalRevenue)
	})
}

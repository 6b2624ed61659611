package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	m := New()
	m.ObserveValidated("patient", "accepted", 1)
	m.ObserveValidated("patient", "accepted", 1)
	m.ObserveRejected("billing", "constraint", 1)
	m.ObserveStep("silver", 120*time.Millisecond)
	m.SetGoldTableRows("total_patients", 1)
	m.ObserveReconciliation(7, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsValidated.WithLabelValues("patient", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsRejected.WithLabelValues("billing", "constraint")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ReconciliationPassed))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "medallion_gold_table_rows"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveValidated("patient", "accepted", 1)
	m.ObserveStep("gold", time.Second)
	m.ObserveReconciliation(1, 0)
	assert.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestPushToGateway(t *testing.T) {
	var gotPath string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := New()
	m.ObserveStep("gold", time.Second)
	require.NoError(t, m.Push(context.Background(), gw.URL, "medallion_etl"))
	assert.Equal(t, "/metrics/job/medallion_etl", gotPath)
}

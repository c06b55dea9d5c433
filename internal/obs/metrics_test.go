package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOrder(StageAdmission, true)
	m.ObserveOrder(StageAdmission, false)
	m.ObserveOrder(StageExecution, true)
	m.IncRiskRejection(StageAdmission, "exposure_limit")
	m.IncAlert()
	m.IncMarkUpdate()
	m.ObserveFetchAttempt("quote", time.Millisecond)
	m.ObserveFetchAttempt("quote", 3*time.Millisecond)
	m.IncFetchFailure("quote")
	m.IncCallbackError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues(StageAdmission, "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues(StageAdmission, "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues(StageExecution, "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.riskRejections.WithLabelValues(StageAdmission, "exposure_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.markUpdates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchFailures.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callbackErrors))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.FetchLatency.Count)
	assert.Equal(t, time.Millisecond, snap.FetchLatency.Min)
	assert.Equal(t, 3*time.Millisecond, snap.FetchLatency.Max)
	assert.Equal(t, 2*time.Millisecond, snap.FetchLatency.Avg)
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOrder(StageAdmission, true)
		m.IncRiskRejection(StageExecution, "position_limit")
		m.IncAlert()
		m.IncMarkUpdate()
		m.ObserveFetchAttempt("quote", time.Second)
		m.IncFetchFailure("quote")
		m.IncCallbackError()
		m.ObserveRiskEval(time.Second)
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestMetricsWithoutRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveRiskEval(time.Microsecond)
	assert.Equal(t, uint64(1), m.Snapshot().RiskEvalLatency.Count)
}

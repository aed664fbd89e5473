package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("nfc:sessions:expire").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("nfc:sessions:expire").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("nfc:sessions:expire", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("nfc:sessions:expire", "failure")))
	require.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("nfc:sessions:expire")), 0.0)
	require.Zero(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("mail:send")))
}

func TestAddProcessedIgnoresEmptyRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddProcessed("idempotency:cleanup", 0)
	m.AddProcessed("idempotency:cleanup", 7)

	require.Equal(t, 7.0, testutil.ToFloat64(m.processed.WithLabelValues("idempotency:cleanup")))

	var nilMetrics *Metrics
	nilMetrics.AddProcessed("x", 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}

func TestDefaultRegistryIsShared(t *testing.T) {
	require.Same(t, NewMetrics(nil), NewMetrics(nil))
}

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

	require.NoError(t, m.Track("fix_account_types").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("fix_account_types").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("fix_account_types", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("fix_account_types", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("fix_account_types")))
}

func TestAddCorrectionsIgnoresEmptyCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddCorrections("fix_piggies", "fixed", 0)
	m.AddCorrections("fix_piggies", "fixed", 3)
	m.Skipped("fix_piggies")

	require.Equal(t, 3.0, testutil.ToFloat64(m.corrections.WithLabelValues("fix_piggies", "fixed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("fix_piggies")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddCorrections("x", "fixed", 1)
	m.Skipped("x")
}

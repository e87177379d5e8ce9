package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CellScanned()
	m.CellScanned()
	m.ErrorFlagged()
	m.AnalysisSettled(true, 300*time.Millisecond)
	m.AnalysisSettled(false, time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cellsScanned))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsFlagged))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.analyses.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.analyses.WithLabelValues("failure")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.CellScanned()
	m.ErrorFlagged()
	m.AnalysisSettled(true, 0)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.Poll("app", ResultOK)
	m.Poll("app", ResultOK)
	m.Poll("app", ResultNotFound)
	m.Rotation("app", "copytruncate")
	m.Read("app", 3, 1, 29)
	m.Read("app", 1, 1, 43)
	m.StateError("app", "save")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Polls.WithLabelValues("app", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("app", ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rotations.WithLabelValues("app", "copytruncate")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.LinesRead.WithLabelValues("app")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchedLines.WithLabelValues("app")))
	assert.Equal(t, 43.0, testutil.ToFloat64(m.Offset.WithLabelValues("app")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateErrors.WithLabelValues("app", "save")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Poll("app", ResultOK)
		m.Rotation("app", "movecreate")
		m.Read("app", 1, 1, 1)
		m.StateError("app", "load")
	})
}

func TestMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New().Register(reg))
	assert.Error(t, New().Register(reg))
}

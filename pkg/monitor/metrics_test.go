package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/frame-datalogger/pkg/metrics"
)

func TestNilDataLoggerMetricsIsNoop(t *testing.T) {
	var m *DataLoggerMetrics
	assert.NotPanics(t, func() {
		m.Outcome("saved")
		m.Skip()
		m.Overrun()
		m.Rollback()
		m.ObserveCycle(time.Millisecond)
		m.ObservePoll(time.Millisecond)
		m.SetSequence(1)
	})
}

func TestDataLoggerMetrics(t *testing.T) {
	m := NewDataLoggerMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(prometheus.NewRegistry())))
	m.Outcome("saved")
	m.Outcome("saved")
	m.Skip()
	m.Overrun()
	m.Rollback()
	m.SetSequence(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overruns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rollbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sequence))
}

package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frame-datalogger/pkg/metrics"
)

// -------------------------- 数据记录器指标结构体 --------------------------
// 所有方法对 nil 接收者安全，未接入 Prometheus 时直接传 nil。
type DataLoggerMetrics struct {
	Cycles        *prometheus.CounterVec
	Skipped       prometheus.Counter
	Overruns      prometheus.Counter
	Rollbacks     prometheus.Counter
	CycleDuration prometheus.Histogram
	PollDuration  prometheus.Histogram
	Sequence      prometheus.Gauge
}

func NewDataLoggerMetrics(f *metrics.MetricFactory) *DataLoggerMetrics {
	return &DataLoggerMetrics{
		Cycles:        f.NewCyclesTotal(),
		Skipped:       f.NewCyclesSkippedTotal(),
		Overruns:      f.NewCycleOverrunsTotal(),
		Rollbacks:     f.NewRollbacksTotal(),
		CycleDuration: f.NewCycleDurationSeconds(),
		PollDuration:  f.NewPollDurationSeconds(),
		Sequence:      f.NewSequenceID(),
	}
}

func (m *DataLoggerMetrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
}

func (m *DataLoggerMetrics) Skip() {
	if m == nil {
		return
	}
	m.Skipped.Inc()
}

func (m *DataLoggerMetrics) Overrun() {
	if m == nil {
		return
	}
	m.Overruns.Inc()
}

func (m *DataLoggerMetrics) Rollback() {
	if m == nil {
		return
	}
	m.Rollbacks.Inc()
}

func (m *DataLoggerMetrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
}

func (m *DataLoggerMetrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.PollDuration.Observe(d.Seconds())
}

func (m *DataLoggerMetrics) SetSequence(seq uint64) {
	if m == nil {
		return
	}
	m.Sequence.Set(float64(seq))
}

// -------------------------- 存储采集器指标结构体 --------------------------
type StorageCollectorMetrics struct {
	FreeBytes  *prometheus.GaugeVec // 剩余空间（字节）
	UsageRatio *prometheus.GaugeVec // 使用率（0-1）
}

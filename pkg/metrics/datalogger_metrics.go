package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewCyclesTotal 每个周期的结果计数
// 标签 outcome: saved/no_data/unreachable/decode_error/save_error/panic
func (m *MetricFactory) NewCyclesTotal() *prometheus.CounterVec {
	return promauto.With(m.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycles_total",
		Help:      "Executed acquisition cycles by outcome",
	}, []string{"outcome"})
}

func (m *MetricFactory) NewCyclesSkippedTotal() prometheus.Counter {
	return promauto.With(m.reg).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycles_skipped_total",
		Help:      "Cycles dropped because their nominal start had already passed",
	})
}

func (m *MetricFactory) NewCycleOverrunsTotal() prometheus.Counter {
	return promauto.With(m.reg).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycle_overruns_total",
		Help:      "Cycles that took longer than the interval",
	})
}

func (m *MetricFactory) NewRollbacksTotal() prometheus.Counter {
	return promauto.With(m.reg).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rollbacks_total",
		Help:      "Frames removed because their metadata could not be written",
	})
}

// NewCycleDurationSeconds 单个周期（poll→decode→save）耗时
func (m *MetricFactory) NewCycleDurationSeconds() prometheus.Histogram {
	return promauto.With(m.reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one poll, decode and save cycle",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
}

func (m *MetricFactory) NewPollDurationSeconds() prometheus.Histogram {
	return promauto.With(m.reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of the HTTP poll of the remote service",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
}

func (m *MetricFactory) NewSequenceID() prometheus.Gauge {
	return promauto.With(m.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "sequence_id",
		Help:      "Sequence id the next saved pair will use",
	})
}

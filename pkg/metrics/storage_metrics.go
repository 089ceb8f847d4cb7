package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -------------------------- 存储目录容量指标 --------------------------
func (m *MetricFactory) NewStorageFreeBytes() *prometheus.GaugeVec {
	return promauto.With(m.reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "storage_free_bytes",
		Help:      "Free bytes on the filesystem holding a target folder",
	}, []string{"folder", "path"})
}

func (m *MetricFactory) NewStorageUsageRatio() *prometheus.GaugeVec {
	return promauto.With(m.reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "storage_usage_ratio",
		Help:      "Used / total ratio (0-1) of the filesystem holding a target folder",
	}, []string{"folder", "path"})
}

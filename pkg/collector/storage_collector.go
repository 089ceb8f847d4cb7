package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/logger"
	"github.com/frame-datalogger/pkg/metrics"
	"github.com/frame-datalogger/pkg/monitor"
)

// UsageFunc 返回 path 所在文件系统的使用情况，默认 disk.UsageWithContext，单测可替换
type UsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// Target 需要监控容量的目录
type Target struct {
	Folder string // 标签值：frames / metadata
	Path   string
}

// StorageCollector 存储目录容量采集器（实现 registers.Collector 接口）
// 帧目录或元数据目录写满会导致 MetadataWriteFailed 回滚，提前暴露剩余空间。
type StorageCollector struct {
	name            string
	targets         []Target
	usage           UsageFunc
	metrics         monitor.StorageCollectorMetrics
	collectErrors   *prometheus.CounterVec
	collectDuration *prometheus.HistogramVec
}

// NewStorageCollector 创建存储采集器
func NewStorageCollector(targets []Target, metricFactory *metrics.MetricFactory, usage UsageFunc) *StorageCollector {
	if usage == nil {
		usage = disk.UsageWithContext
	}
	return &StorageCollector{
		name:    "storage-collector",
		targets: targets,
		usage:   usage,
		metrics: monitor.StorageCollectorMetrics{
			FreeBytes:  metricFactory.NewStorageFreeBytes(),
			UsageRatio: metricFactory.NewStorageUsageRatio(),
		},
		collectErrors:   metricFactory.NewAgentCollectErrorsTotal(),
		collectDuration: metricFactory.NewAgentCollectDurationSeconds(),
	}
}

// Name 返回采集器名称
func (c *StorageCollector) Name() string { return c.name }

// Init 预检查：至少要有一个目标目录
func (c *StorageCollector) Init() error {
	if len(c.targets) == 0 {
		return fmt.Errorf("%s: no target folders", c.name)
	}
	return nil
}

// Collect 采集每个目录所在文件系统的剩余空间和使用率。
// 目录尚未创建时（首次保存前）使用最近的已存在父目录；单个目录失败不中断其它目录。
func (c *StorageCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	var errs error
	for _, t := range c.targets {
		u, err := c.usage(ctx, existingAncestor(t.Path))
		if err != nil {
			c.collectErrors.WithLabelValues(c.name).Inc()
			errs = multierr.Append(errs, fmt.Errorf("usage of %s: %w", t.Path, err))
			continue
		}
		c.metrics.FreeBytes.WithLabelValues(t.Folder, t.Path).Set(float64(u.Free))
		ratio := 0.0
		if u.Total > 0 {
			ratio = float64(u.Used) / float64(u.Total)
		}
		c.metrics.UsageRatio.WithLabelValues(t.Folder, t.Path).Set(ratio)
		logger.Debug("collected storage usage",
			zap.String("name", c.name),
			zap.String("folder", t.Folder),
			zap.String("path", t.Path),
			zap.Uint64("free_bytes", u.Free),
			zap.Float64("usage_ratio", ratio))
	}
	return errs
}

// existingAncestor 返回 path 自身或其最近的已存在父目录
func existingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

// Close 无资源需要释放
func (c *StorageCollector) Close() error { return nil }

package registers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/codec"
	"github.com/frame-datalogger/pkg/collector"
	"github.com/frame-datalogger/pkg/config"
	"github.com/frame-datalogger/pkg/datalogger"
	"github.com/frame-datalogger/pkg/logger"
	"github.com/frame-datalogger/pkg/metrics"
	"github.com/frame-datalogger/pkg/monitor"
	"github.com/frame-datalogger/pkg/scheduler"
	"github.com/frame-datalogger/pkg/source"
	"github.com/frame-datalogger/pkg/store"
)

type Module struct {
	Enabled bool
	Name    string
	NewFunc func() Collector
}

// Runtime 启动期组装出的全部组件
type Runtime struct {
	Registry *prometheus.Registry // 用于 /metrics 暴露
	Agent    *datalogger.Agent    // 采集主循环
	Monitor  Monitor              // 自监控采集器管理器（未启用任何采集器时为 nil）
}

// Options 组装时可替换的依赖，零值即生产默认
type Options struct {
	Fs         afero.Fs     // 默认 afero.NewOsFs()
	HTTPClient *http.Client // 默认 &http.Client{Timeout: api.timeout}
	Usage      collector.UsageFunc
}

// InitPromRegistry 创建 Prometheus 注册器并组装 Source → Codec → Store → Agent，
// 以及存储容量采集器。不启动任何后台任务，启动顺序由调用方决定。
func InitPromRegistry(cfg *config.Config, opts Options) (*Runtime, error) {
	// 仅注册进程指标（可选），不注册Go指标
	promReg := prometheus.NewRegistry()
	if cfg.Monitor.EnableProcess {
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	metricFactory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	agent, err := NewAgent(cfg, metricFactory, opts)
	if err != nil {
		return nil, err
	}

	mon := NewMonitor(cfg.Monitor.Interval, nil)
	registered := RegisterCollectors(mon, cfg, metricFactory, opts)
	rt := &Runtime{Registry: promReg, Agent: agent}
	if len(registered) > 0 {
		rt.Monitor = mon
	}
	return rt, nil
}

// NewAgent 组装数据记录器
func NewAgent(cfg *config.Config, metricFactory *metrics.MetricFactory, opts Options) (*datalogger.Agent, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dlMetrics := monitor.NewDataLoggerMetrics(metricFactory)

	enc := codec.New(cfg.Storage.PNGCompression)
	src := source.New(cfg.API.Endpoint, cfg.API.Timeout, opts.HTTPClient)
	st := store.New(fs, cfg.Storage.FrameFolder, cfg.Storage.MetadataFolder, enc)

	var seq uint64
	if cfg.Storage.ResumeSequence && !cfg.Storage.UseTimestamp() {
		names, err := st.Filenames()
		if err != nil {
			return nil, fmt.Errorf("scan frame folder %s: %w", cfg.Storage.FrameFolder, err)
		}
		seq = datalogger.ResumeSequence(cfg.Storage.FilenameMask, names)
		logger.Info("resuming sequence from existing frames",
			zap.String("frame_folder", cfg.Storage.FrameFolder),
			zap.Int("existing", len(names)),
			zap.Uint64("sequence", seq))
	}

	sched := scheduler.New(cfg.Storage.IntervalDuration(), scheduler.WithHooks(scheduler.Hooks{
		OnSkip:    func(scheduler.Cycle, time.Duration) { dlMetrics.Skip() },
		OnOverrun: func(scheduler.Cycle, time.Duration) { dlMetrics.Overrun() },
	}))

	return datalogger.New(sched, src, enc, st, cfg.Storage.FilenameMask,
		datalogger.WithMetrics(dlMetrics),
		datalogger.WithStartSequence(seq),
	), nil
}

// RegisterCollectors  采集器注册统一入口（扩展仅需修改此函数，开关控制）
// 新增采集器只需在 modules 列表添加一条，不必写重复的 if/else。
func RegisterCollectors(mon Monitor, cfg *config.Config, metricFactory *metrics.MetricFactory, opts Options) []Collector {
	modules := []Module{
		{
			Enabled: cfg.Monitor.EnableStorage,
			Name:    "storage",
			NewFunc: func() Collector {
				return collector.NewStorageCollector([]collector.Target{
					{Folder: "frames", Path: cfg.Storage.FrameFolder},
					{Folder: "metadata", Path: cfg.Storage.MetadataFolder},
				}, metricFactory, opts.Usage)
			},
		},
	}

	var registered []Collector
	for _, m := range modules {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c := m.NewFunc()
		mon.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}

	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))
	return registered
}

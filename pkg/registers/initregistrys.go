package registers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/logger"
)

var errMonitorStarted = errors.New("collector monitor already started")

// MonitorImpl 实现 registers.Monitor 接口，按固定间隔依次调用已注册采集器
type MonitorImpl struct {
	collectors []Collector
	interval   time.Duration
	clock      clockwork.Clock
	cancel     context.CancelFunc
	wg         conc.WaitGroup
	mu         sync.Mutex
}

// NewMonitor 创建采集器管理器
func NewMonitor(interval time.Duration, clock clockwork.Clock) *MonitorImpl {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MonitorImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
		clock:      clock,
	}
}

// Register 注册采集器
func (r *MonitorImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// InitAll 初始化所有采集器，任一失败即返回
func (r *MonitorImpl) InitAll() error {
	for _, coll := range r.collectors {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 初始化采集器并启动后台采集循环（首次立即采集）
func (r *MonitorImpl) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errMonitorStarted
	}
	if err := r.InitAll(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	ticker := r.clock.NewTicker(r.interval)
	logger.Debug("collector monitor started",
		zap.String("name", "collector-registry"),
		zap.Duration("interval", r.interval),
		zap.Int("registered-collectors-count", len(r.collectors)))

	r.wg.Go(func() {
		defer ticker.Stop()
		if err := r.CollectAll(ctx); err != nil {
			logger.Warn("first collection failed", zap.String("name", "collector-registry"), zap.Error(err))
		}
		for {
			select {
			case <-ticker.Chan():
				_ = r.CollectAll(ctx) // 单采集器失败不影响整体
			case <-ctx.Done():
				logger.Info("collector monitor stopped", zap.String("name", "collector-registry"))
				return
			}
		}
	})
	return nil
}

// Shutdown 停止采集循环并关闭所有采集器
func (r *MonitorImpl) Shutdown(ctx context.Context) error {
	logger.Info("starting to shutdown collector monitor", zap.String("name", "collector-registry"))
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("collector monitor shutdown: %w", ctx.Err())
	}
	return r.CloseAll()
}

// CollectAll 依次采集，汇总所有失败
func (r *MonitorImpl) CollectAll(ctx context.Context) error {
	var errs error
	for _, c := range r.collectors {
		if err := c.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", c.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// CloseAll 关闭所有采集器，不因单个失败中断
func (r *MonitorImpl) CloseAll() error {
	var errs error
	for _, c := range r.collectors {
		logger.Debug("closing collector", zap.String("name", c.Name()))
		if err := c.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", c.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Package datalogger 把数据源、编解码器和存储串成周期采集循环，并持有序号计数器
package datalogger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/frame"
	"github.com/frame-datalogger/pkg/logger"
	"github.com/frame-datalogger/pkg/monitor"
	"github.com/frame-datalogger/pkg/scheduler"
	"github.com/frame-datalogger/pkg/store"
)

var (
	ErrAlreadyStarted = errors.New("data logger already started")
	ErrNotStarted     = errors.New("data logger not started")
	// ErrStopTimeout 进行中的周期在一个间隔内未结束，循环会在该周期返回后退出
	ErrStopTimeout = errors.New("in-flight cycle still running after one interval")
)

// 周期结果，用作指标标签
const (
	OutcomeSaved       = "saved"
	OutcomeNoData      = "no_data"
	OutcomeUnreachable = "unreachable"
	OutcomeDecodeError = "decode_error"
	OutcomeSaveError   = "save_error"
	OutcomePanic       = "panic"
)

type Source interface {
	Poll(ctx context.Context) frame.PollResult
}

type Decoder interface {
	Decode(encoded string) (frame.RawFrame, error)
}

type Store interface {
	Save(f frame.RawFrame, rec frame.Record, filename string) error
}

// Status 数据记录器状态快照（/status 输出）
type Status struct {
	RunID        string    `json:"run_id"`
	Running      bool      `json:"running"`
	Sequence     uint64    `json:"sequence"`
	Interval     string    `json:"interval"`
	Saved        uint64    `json:"saved"`
	Failed       uint64    `json:"failed"`
	LastFilename string    `json:"last_filename,omitempty"`
	LastSavedAt  time.Time `json:"last_saved_at,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

type Agent struct {
	source  Source
	decoder Decoder
	store   Store
	sched   *scheduler.Scheduler
	clock   scheduler.Clock
	metrics *monitor.DataLoggerMetrics
	mask    string
	runID   string

	// seq 仅由循环 goroutine 读写，sequence 供其它 goroutine 读取
	seq      uint64
	sequence atomic.Uint64

	started  atomic.Bool
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       conc.WaitGroup

	mu     sync.Mutex
	status Status
}

type Option func(*Agent)

// WithMetrics 上报周期结果指标，nil 表示不上报
func WithMetrics(m *monitor.DataLoggerMetrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithStartSequence 设置起始序号（例如接续上次运行）
func WithStartSequence(seq uint64) Option {
	return func(a *Agent) { a.seq = seq }
}

// WithClock 替换 Stop 等待使用的时钟
func WithClock(c scheduler.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

// New 创建数据记录器，文件名由 mask 生成
func New(sched *scheduler.Scheduler, src Source, dec Decoder, st Store, mask string, opts ...Option) *Agent {
	a := &Agent{
		source:  src,
		decoder: dec,
		store:   st,
		sched:   sched,
		clock:   clockwork.NewRealClock(),
		mask:    mask,
		runID:   uuid.NewString(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.sequence.Store(a.seq)
	a.metrics.SetSequence(a.seq)
	return a
}

// RunID 本次运行的唯一标识（日志与 /status）
func (a *Agent) RunID() string { return a.runID }

// Sequence 下一次保存将使用的序号
func (a *Agent) Sequence() uint64 { return a.sequence.Load() }

// Start 启动采集循环，只能调用一次
func (a *Agent) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	a.running.Store(true)
	logger.Info("data logger started",
		zap.String("run_id", a.runID),
		zap.Duration("interval", a.sched.Interval()),
		zap.String("filename_mask", a.mask),
		zap.Uint64("sequence", a.seq))

	a.wg.Go(func() {
		defer close(a.done)
		defer a.running.Store(false)
		a.sched.Run(ctx, a.stop, a.runCycle)
		logger.Info("data logger loop exited", zap.String("run_id", a.runID))
	})
	return nil
}

// Stop 通知循环不再开始新周期，最多等待一个采集间隔让进行中的周期结束。
// 不会打断阻塞中的请求；超时返回 ErrStopTimeout，此时循环仍在运行，需配合 Wait。
func (a *Agent) Stop() error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	a.stopOnce.Do(func() {
		logger.Info("stopping data logger", zap.String("run_id", a.runID))
		close(a.stop)
	})
	select {
	case <-a.done:
		a.wg.Wait()
		return nil
	case <-a.clock.After(a.sched.Interval()):
		logger.Warn("data logger did not stop within one interval",
			zap.String("run_id", a.runID), zap.Duration("interval", a.sched.Interval()))
		return ErrStopTimeout
	}
}

// Wait 阻塞直到采集循环退出或 ctx 结束
func (a *Agent) Wait(ctx context.Context) error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	select {
	case <-a.done:
		a.wg.Wait()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight cycle: %w", ctx.Err())
	}
}

// Shutdown 优雅停止：先 Stop，进行中的周期超过一个间隔时继续等待其完成（受 ctx 约束），
// 保证退出进程前不会留下只有帧没有元数据的文件。
func (a *Agent) Shutdown(ctx context.Context) error {
	err := a.Stop()
	if !errors.Is(err, ErrStopTimeout) {
		return err
	}
	logger.Info("waiting for in-flight cycle to finish", zap.String("run_id", a.runID))
	if err := a.Wait(ctx); err != nil {
		return err
	}
	logger.Info("in-flight cycle finished, data logger stopped", zap.String("run_id", a.runID))
	return nil
}

// Status 返回状态快照，可在任意 goroutine 调用
func (a *Agent) Status() Status {
	a.mu.Lock()
	s := a.status
	a.mu.Unlock()
	s.RunID = a.runID
	s.Running = a.running.Load()
	s.Sequence = a.sequence.Load()
	s.Interval = a.sched.Interval().String()
	return s
}

// runCycle 调度器的周期任务，周期内的 panic 只放弃当前周期
func (a *Agent) runCycle(ctx context.Context, c scheduler.Cycle) {
	var pc panics.Catcher
	pc.Try(func() { a.cycle(ctx, c) })
	if r := pc.Recovered(); r != nil {
		err := r.AsError()
		logger.Error("cycle panicked, abandoning it",
			zap.Uint64("cycle", c.Index), zap.Error(err), zap.String("stack", string(r.Stack)))
		a.fail(OutcomePanic, err)
	}
}

func (a *Agent) cycle(ctx context.Context, c scheduler.Cycle) {
	begin := time.Now()
	defer func() { a.metrics.ObserveCycle(time.Since(begin)) }()

	// 进行中的请求只受传输超时约束，不受关闭信号影响
	res := a.source.Poll(context.WithoutCancel(ctx))
	a.metrics.ObservePoll(res.Duration)

	switch res.Status {
	case frame.StatusNoData:
		logger.Debug("cycle abandoned, no frame retrieved",
			zap.Uint64("cycle", c.Index), zap.Int("code", res.Code), zap.String("message", res.Message))
		a.fail(OutcomeNoData, res.Err)
		return
	case frame.StatusUnreachable:
		logger.Debug("cycle abandoned, remote unreachable", zap.Uint64("cycle", c.Index), zap.Error(res.Err))
		a.fail(OutcomeUnreachable, res.Err)
		return
	}

	decodeBegin := time.Now()
	raw, err := a.decoder.Decode(res.Encoded)
	if err != nil {
		logger.Error("cannot decode received frame, cycle abandoned",
			zap.Uint64("cycle", c.Index), zap.Uint64("sequence", a.seq), zap.Error(err))
		a.fail(OutcomeDecodeError, err)
		return
	}
	decodeTook := time.Since(decodeBegin)

	name := Filename(a.mask, a.seq, res.Record.Timestamp)
	saveBegin := time.Now()
	if err := a.store.Save(raw, res.Record, name); err != nil {
		if errors.Is(err, store.ErrMetadataWriteFailed) {
			a.metrics.Rollback()
		}
		logger.Warn("cannot save frame, cycle abandoned",
			zap.Uint64("cycle", c.Index), zap.String("filename", name), zap.Error(err))
		a.fail(OutcomeSaveError, err)
		return
	}
	saveTook := time.Since(saveBegin)

	a.seq++
	a.sequence.Store(a.seq)
	a.metrics.SetSequence(a.seq)
	a.metrics.Outcome(OutcomeSaved)

	a.mu.Lock()
	a.status.Saved++
	a.status.LastFilename = name
	a.status.LastSavedAt = time.Now()
	a.status.LastError = ""
	a.mu.Unlock()

	logger.Debug("cycle completed",
		zap.Uint64("cycle", c.Index),
		zap.String("filename", name),
		zap.Int("width", raw.Width()),
		zap.Int("height", raw.Height()),
		zap.Duration("poll", res.Duration),
		zap.Duration("decode", decodeTook),
		zap.Duration("save", saveTook),
		zap.Duration("total", time.Since(begin)))
}

func (a *Agent) fail(outcome string, err error) {
	a.metrics.Outcome(outcome)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.Failed++
	if err != nil {
		a.status.LastError = err.Error()
	} else {
		a.status.LastError = outcome
	}
}

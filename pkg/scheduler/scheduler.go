// Package scheduler 按固定节拍无漂移地执行周期任务。
//
// 每个周期的名义开始时间 = 上一周期名义开始时间 + 间隔，实际耗时不会回灌到节拍里。
// 名义开始时间已过去超过容差的周期直接跳过，不执行任务；执行超过间隔的周期结束后
// 不休眠，立即进入下一次迭代。
// 跳过之后下一个未迟到的周期会等到它自己的名义开始时间再执行（重新对齐节拍边界），
// 而不是立即执行；长期节拍不变。
package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/logger"
)

// SkewTolerance 周期允许的最大迟到时间，超过即跳过
const SkewTolerance = 10 * time.Millisecond

// Clock 调度器用到的 clockwork.Clock 子集
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Cycle 一次调度迭代
type Cycle struct {
	Index   uint64
	Nominal time.Time
}

// Hooks 观察调度决策，均可为 nil
type Hooks struct {
	OnSkip    func(c Cycle, lateness time.Duration)
	OnOverrun func(c Cycle, elapsed time.Duration)
	OnCycle   func(c Cycle, took time.Duration)
}

// Body 单个周期的任务
type Body func(ctx context.Context, c Cycle)

type Scheduler struct {
	interval  time.Duration
	tolerance time.Duration
	clock     Clock
	hooks     Hooks
}

type Option func(*Scheduler)

// WithClock 替换真实时钟（单测使用）
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTolerance 覆盖 SkewTolerance
func WithTolerance(d time.Duration) Option {
	return func(s *Scheduler) { s.tolerance = d }
}

func WithHooks(h Hooks) Option {
	return func(s *Scheduler) { s.hooks = h }
}

func New(interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval:  interval,
		tolerance: SkewTolerance,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval 返回采集间隔
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run 每个周期执行一次 body，直到 stop 关闭或 ctx 结束。
// 只在周期之间检查停止信号，正在执行的 body 不会被打断。
func (s *Scheduler) Run(ctx context.Context, stop <-chan struct{}, body Body) {
	nominal := s.clock.Now().Add(-s.interval)

	for index := uint64(0); ; index++ {
		if stopped(ctx, stop) {
			return
		}
		nominal = nominal.Add(s.interval)
		c := Cycle{Index: index, Nominal: nominal}

		now := s.clock.Now()
		if lateness := now.Sub(nominal); lateness > s.tolerance {
			logger.Warn("cycle skipped, interval too small for actual workload",
				zap.Uint64("cycle", index),
				zap.Duration("late", lateness),
				zap.Duration("interval", s.interval))
			if s.hooks.OnSkip != nil {
				s.hooks.OnSkip(c, lateness)
			}
			continue
		}
		// 只有跳过之后才会早于名义开始时间：等到边界再执行
		if early := nominal.Sub(now); early > 0 {
			if !s.sleep(ctx, stop, early) {
				return
			}
		}

		begin := s.clock.Now()
		body(ctx, c)
		end := s.clock.Now()
		if s.hooks.OnCycle != nil {
			s.hooks.OnCycle(c, end.Sub(begin))
		}

		elapsed := end.Sub(nominal)
		if elapsed > s.interval {
			logger.Warn("cycle took longer than interval, starting next cycle immediately",
				zap.Uint64("cycle", index),
				zap.Duration("elapsed", elapsed),
				zap.Duration("interval", s.interval))
			if s.hooks.OnOverrun != nil {
				s.hooks.OnOverrun(c, elapsed)
			}
			continue
		}
		if !s.sleep(ctx, stop, s.interval-elapsed) {
			return
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-s.clock.After(d):
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

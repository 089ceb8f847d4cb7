package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock is a single goroutine fake: After advances time at once.
type stepClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *stepClock) work(d time.Duration) { c.now = c.now.Add(d) }

type run struct {
	cycles  []Cycle
	starts  []time.Time
	skipped []Cycle
	overrun []Cycle
}

// runCycles runs the scheduler until n bodies have executed. work returns the
// simulated duration of the body for a given cycle index.
func runCycles(t *testing.T, clk *stepClock, interval time.Duration, n int, work func(idx uint64) time.Duration) *run {
	t.Helper()
	r := &run{}
	stop := make(chan struct{})
	s := New(interval, WithClock(clk), WithHooks(Hooks{
		OnSkip:    func(c Cycle, _ time.Duration) { r.skipped = append(r.skipped, c) },
		OnOverrun: func(c Cycle, _ time.Duration) { r.overrun = append(r.overrun, c) },
	}))
	s.Run(context.Background(), stop, func(_ context.Context, c Cycle) {
		r.cycles = append(r.cycles, c)
		r.starts = append(r.starts, clk.Now())
		clk.work(work(c.Index))
		if len(r.cycles) == n {
			close(stop)
		}
	})
	return r
}

func TestDriftFreeCadence(t *testing.T) {
	clk := newStepClock()
	start0 := clk.Now()
	interval := 100 * time.Millisecond

	r := runCycles(t, clk, interval, 10, func(uint64) time.Duration { return 7 * time.Millisecond })

	require.Len(t, r.cycles, 10)
	for k, c := range r.cycles {
		want := start0.Add(time.Duration(k) * interval)
		assert.Equal(t, want, c.Nominal, "nominal start of cycle %d", k)
		assert.Equal(t, want, r.starts[k], "actual start of cycle %d", k)
		assert.Equal(t, uint64(k), c.Index)
	}
	for _, d := range clk.sleeps {
		assert.Equal(t, 93*time.Millisecond, d)
	}
	assert.Empty(t, r.skipped)
	assert.Empty(t, r.overrun)
}

func TestSkippedCyclesResynchronizeToNextBoundary(t *testing.T) {
	clk := newStepClock()
	start0 := clk.Now()
	interval := 100 * time.Millisecond

	r := runCycles(t, clk, interval, 2, func(idx uint64) time.Duration {
		if idx == 0 {
			return 250 * time.Millisecond
		}
		return time.Millisecond
	})

	require.Len(t, r.overrun, 1)
	assert.Equal(t, uint64(0), r.overrun[0].Index)

	// cycles 1 and 2 were overdue and dropped without running the body
	require.Len(t, r.skipped, 2)
	assert.Equal(t, start0.Add(interval), r.skipped[0].Nominal)
	assert.Equal(t, start0.Add(2*interval), r.skipped[1].Nominal)

	require.Len(t, r.cycles, 2)
	assert.Equal(t, uint64(3), r.cycles[1].Index)
	assert.Equal(t, start0.Add(3*interval), r.cycles[1].Nominal)
	assert.Equal(t, start0.Add(3*interval), r.starts[1], "resynchronized to the nominal boundary")
}

func TestCatchUpRunsImmediatelyWithinTolerance(t *testing.T) {
	clk := newStepClock()
	start0 := clk.Now()
	interval := 20 * time.Millisecond

	r := runCycles(t, clk, interval, 4, func(idx uint64) time.Duration {
		if idx == 1 {
			return 30 * time.Millisecond // 1.5x the interval
		}
		return 0
	})

	require.Len(t, r.cycles, 4)
	assert.Empty(t, r.skipped)
	require.Len(t, r.overrun, 1)
	assert.Equal(t, uint64(1), r.overrun[0].Index)

	// cycle 2 starts the moment cycle 1 ends
	assert.Equal(t, r.starts[1].Add(30*time.Millisecond), r.starts[2])
	assert.Equal(t, start0.Add(2*interval), r.cycles[2].Nominal)
	// and the schedule is unaffected afterwards
	assert.Equal(t, start0.Add(3*interval), r.cycles[3].Nominal)
	assert.Equal(t, start0.Add(3*interval), r.starts[3])
	// sleeps: after cycle 0, none after cycle 1, 10ms after cycle 2
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, clk.sleeps)
}

func TestSkipBoundaryIsStrict(t *testing.T) {
	clk := newStepClock()
	interval := 100 * time.Millisecond

	r := runCycles(t, clk, interval, 3, func(idx uint64) time.Duration {
		if idx == 0 {
			return interval + SkewTolerance + time.Millisecond
		}
		return 0
	})

	require.Len(t, r.skipped, 1)
	assert.Equal(t, uint64(1), r.skipped[0].Index)
	assert.Equal(t, []uint64{0, 2, 3}, []uint64{r.cycles[0].Index, r.cycles[1].Index, r.cycles[2].Index})
}

func TestStopBeforeFirstCycle(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	called := false
	New(time.Second, WithClock(newStepClock())).Run(context.Background(), stop, func(context.Context, Cycle) {
		called = true
	})
	assert.False(t, called)
}

func TestContextCancelStopsBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clk := newStepClock()
	count := 0
	New(time.Second, WithClock(clk)).Run(ctx, nil, func(context.Context, Cycle) {
		count++
		if count == 3 {
			cancel()
		}
	})
	assert.Equal(t, 3, count)
}

func TestWaitsForIntervalWithFakeClock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc := clockwork.NewFakeClock()
	ran := make(chan Cycle, 4)
	stop := make(chan struct{})
	done := make(chan struct{})

	s := New(time.Second, WithClock(fc))
	assert.Equal(t, time.Second, s.Interval())
	go func() {
		defer close(done)
		s.Run(ctx, stop, func(_ context.Context, c Cycle) { ran <- c })
	}()

	first := <-ran
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	select {
	case c := <-ran:
		t.Fatalf("cycle %d ran before the interval elapsed", c.Index)
	default:
	}

	fc.Advance(time.Second)
	second := <-ran
	assert.Equal(t, first.Nominal.Add(time.Second), second.Nominal)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	close(stop)
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("scheduler did not stop")
	}
}

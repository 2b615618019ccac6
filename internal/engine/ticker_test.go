package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

func newTestTicker() *Ticker {
	return NewTicker(100*time.Millisecond, 10*time.Millisecond, logger.Discard())
}

func TestTicker_ExecutorStageRunsFirst(t *testing.T) {
	tk := newTestTicker()
	var order []string
	tk.Subscribe(StageReporting, func(Ping) { order = append(order, "report") })
	tk.Subscribe(StageExecutor, func(Ping) { order = append(order, "exec") })
	tk.Subscribe(StageReporting, func(Ping) { order = append(order, "report2") })

	tk.Step(1, time.Now())

	assert.Equal(t, []string{"exec", "report", "report2"}, order)
}

func TestTicker_LagProducesBackToBackPings(t *testing.T) {
	tk := newTestTicker()
	var numbers []int64
	tk.Subscribe(StageExecutor, func(p Ping) { numbers = append(numbers, p.Number) })

	fired := tk.Advance(350*time.Millisecond, time.Now())
	require.Equal(t, 3, fired)
	fired = tk.Advance(50*time.Millisecond, time.Now())

	assert.Equal(t, 1, fired)
	assert.Equal(t, []int64{1, 2, 3, 4}, numbers)
	assert.Equal(t, int64(4), tk.PingNumber())
}

func TestTicker_UnsubscribeStopsDelivery(t *testing.T) {
	tk := newTestTicker()
	calls := 0
	unsubscribe := tk.Subscribe(StageExecutor, func(Ping) { calls++ })

	tk.Step(2, time.Now())
	unsubscribe()
	unsubscribe()
	tk.Step(2, time.Now())

	assert.Equal(t, 2, calls)
}

func TestTicker_UnsubscribeDuringDelivery(t *testing.T) {
	tk := newTestTicker()
	calls := 0
	var unsubscribe func()
	tk.Subscribe(StageExecutor, func(Ping) { unsubscribe() })
	unsubscribe = tk.Subscribe(StageReporting, func(Ping) { calls++ })

	tk.Step(3, time.Now())

	assert.Zero(t, calls)
}

func TestTicker_SpeedScalesInterval(t *testing.T) {
	tk := newTestTicker()

	tk.SetSpeed(2)
	assert.Equal(t, 50*time.Millisecond, tk.Interval())
	assert.Equal(t, 4, tk.Advance(200*time.Millisecond, time.Now()))

	tk.SetSpeed(0.5)
	assert.Equal(t, 200*time.Millisecond, tk.Interval())
}

func TestTicker_PauseDiscardsElapsedTime(t *testing.T) {
	tk := newTestTicker()

	tk.SetSpeed(0)
	assert.Zero(t, tk.Advance(time.Second, time.Now()))
	assert.Zero(t, tk.Interval())

	tk.SetSpeed(1)
	assert.Zero(t, tk.Advance(50*time.Millisecond, time.Now()))
	assert.Equal(t, 1, tk.Advance(50*time.Millisecond, time.Now()))
}

func TestTicker_StartFiresUntilCancelled(t *testing.T) {
	tk := NewTicker(5*time.Millisecond, time.Millisecond, logger.Discard())
	var fired atomic.Int64
	tk.Subscribe(StageExecutor, func(Ping) { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
}

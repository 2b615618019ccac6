package engine

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// Default cadence.
const (
	BasePingDuration = 1 * time.Second
	SampleRate       = 50 * time.Millisecond
)

// Stage orders ping delivery: every executor subscriber runs before any
// reporting subscriber.
type Stage int

const (
	StageExecutor Stage = iota
	StageReporting
)

// Ping is one discrete simulation step.
type Ping struct {
	Number    int64     `json:"number"`
	Timestamp time.Time `json:"timestamp"`
	Elapsed   int       `json:"elapsed"` // Pings covered by this delivery, always 1 from the Ticker
}

// PingHandler receives pings.
type PingHandler func(Ping)

type subscription struct {
	id     uint64
	stage  Stage
	fn     PingHandler
	active atomic.Bool
}

// Ticker turns wall-clock samples into pings. Elapsed time accumulates;
// each time the accumulator reaches the interval (base / speed) one ping
// fires and the interval is subtracted, so lag produces back-to-back pings
// and none are dropped.
type Ticker struct {
	logger *logger.Logger
	base   time.Duration
	sample time.Duration
	speed  atomic.Uint64 // math.Float64bits

	mu          sync.Mutex // subscribers, accumulator, ping number
	subs        []*subscription
	nextID      uint64
	accumulated time.Duration
	number      int64

	deliver sync.Mutex // one ping at a time
}

// NewTicker creates a ticker with the given base interval and sample rate.
// Zero values fall back to BasePingDuration and SampleRate.
func NewTicker(base, sample time.Duration, log *logger.Logger) *Ticker {
	if base <= 0 {
		base = BasePingDuration
	}
	if sample <= 0 {
		sample = SampleRate
	}
	t := &Ticker{logger: log, base: base, sample: sample}
	t.SetSpeed(1)
	return t
}

// Subscribe registers fn for every future ping and returns the function
// that stops delivery. A ping already being delivered is not interrupted.
func (t *Ticker) Subscribe(stage Stage, fn PingHandler) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	sub := &subscription{id: t.nextID, stage: stage, fn: fn}
	sub.active.Store(true)
	t.subs = append(t.subs, sub)
	sort.SliceStable(t.subs, func(i, j int) bool { return t.subs[i].stage < t.subs[j].stage })

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s == sub {
					t.subs = append(t.subs[:i], t.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// SetSpeed changes the multiplier used for the next computed interval.
// A speed <= 0 pauses the ticker.
func (t *Ticker) SetSpeed(speed float64) {
	t.speed.Store(math.Float64bits(speed))
}

// Speed returns the current multiplier.
func (t *Ticker) Speed() float64 {
	return math.Float64frombits(t.speed.Load())
}

// Interval returns base / speed, or 0 while paused.
func (t *Ticker) Interval() time.Duration {
	speed := t.Speed()
	if speed <= 0 {
		return 0
	}
	return time.Duration(float64(t.base) / speed)
}

// PingNumber returns the number of the last fired ping.
func (t *Ticker) PingNumber() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.number
}

// SetPingNumber restores the counter after loading a save.
func (t *Ticker) SetPingNumber(n int64) {
	t.mu.Lock()
	t.number = n
	t.mu.Unlock()
}

// Advance adds elapsed wall time and fires every ping it covers,
// synchronously, in order. It returns how many pings fired. Time sampled
// while paused is discarded.
func (t *Ticker) Advance(elapsed time.Duration, now time.Time) int {
	t.deliver.Lock()
	defer t.deliver.Unlock()

	t.mu.Lock()
	if t.Interval() == 0 {
		t.accumulated = 0
		t.mu.Unlock()
		return 0
	}
	t.accumulated += elapsed
	t.mu.Unlock()

	fired := 0
	for {
		t.mu.Lock()
		interval := t.Interval()
		if interval == 0 || t.accumulated < interval {
			t.mu.Unlock()
			return fired
		}
		t.accumulated -= interval
		t.number++
		p := Ping{Number: t.number, Timestamp: now, Elapsed: 1}
		subs := append([]*subscription(nil), t.subs...)
		t.mu.Unlock()

		t.fire(subs, p)
		fired++
	}
}

// Start samples the wall clock every sample period until ctx is done.
// Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("ticker started", "base", t.base, "sample", t.sample, "speed", t.Speed())

	sampler := time.NewTicker(t.sample)
	defer sampler.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("ticker stopped", "ping", t.PingNumber())
			return
		case now := <-sampler.C:
			t.Advance(now.Sub(last), now)
			last = now
		}
	}
}

// Step fires n pings immediately regardless of speed. Headless runs and
// tests use it in place of Start.
func (t *Ticker) Step(n int, now time.Time) {
	t.deliver.Lock()
	defer t.deliver.Unlock()

	for i := 0; i < n; i++ {
		t.mu.Lock()
		t.number++
		p := Ping{Number: t.number, Timestamp: now, Elapsed: 1}
		subs := append([]*subscription(nil), t.subs...)
		t.mu.Unlock()

		t.fire(subs, p)
	}
}

func (t *Ticker) fire(subs []*subscription, p Ping) {
	for _, s := range subs {
		if s.active.Load() {
			s.fn(p)
		}
	}
}

// Package clocktest provides application.Clock fakes for tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/bryanwahyu/ayursense/internal/application"
)

// Instant is a Clock whose tickers fire as fast as they are drained and whose
// After channels fire immediately. Now advances by the requested duration on
// every tick and After, so timestamps stay monotonic and meaningful.
type Instant struct {
	mu  sync.Mutex
	now time.Time
}

func NewInstant(start time.Time) *Instant {
	return &Instant{now: start}
}

func (c *Instant) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Instant) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *Instant) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.advance(d)
	return ch
}

func (c *Instant) NewTicker(d time.Duration) application.Ticker {
	t := &instantTicker{c: make(chan time.Time), stop: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.stop:
				return
			case t.c <- c.advance(d):
			}
		}
	}()
	return t
}

type instantTicker struct {
	c    chan time.Time
	stop chan struct{}
	once sync.Once
}

func (t *instantTicker) C() <-chan time.Time { return t.c }

func (t *instantTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Manual is a Clock driven explicitly by Tick. After channels never fire
// unless Fire is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
	afters  []chan time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) NewTicker(time.Duration) application.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *Manual) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.afters = append(c.afters, ch)
	return ch
}

// Tick advances time by d and delivers one tick to every live ticker.
// It blocks until each ticker's receiver has taken the tick.
func (c *Manual) Tick(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		if !t.stopped() {
			select {
			case t.c <- now:
			case <-time.After(time.Second):
			}
		}
	}
}

// Fire releases every pending After channel.
func (c *Manual) Fire() {
	c.mu.Lock()
	afters := c.afters
	c.afters = nil
	now := c.now
	c.mu.Unlock()
	for _, ch := range afters {
		ch <- now
	}
}

// Live reports how many tickers have not been stopped.
func (c *Manual) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped() {
			n++
		}
	}
	return n
}

type manualTicker struct {
	c    chan time.Time
	mu   sync.Mutex
	stop bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stop = true
	t.mu.Unlock()
}

func (t *manualTicker) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop
}

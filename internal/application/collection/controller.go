package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bryanwahyu/ayursense/internal/application"
	"github.com/bryanwahyu/ayursense/internal/application/poller"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

// ErrAlreadyRun is returned when Run is called on a used controller.
var ErrAlreadyRun = errors.New("collection controller already run")

// State of a collection session.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateSealed     State = "sealed"
	StateCancelled  State = "cancelled"
)

// LiveSource provides the latest live channel value.
type LiveSource interface {
	Latest() poller.Snapshot
}

type Config struct {
	Duration    time.Duration
	Tick        time.Duration
	Settle      time.Duration
	LiveChannel reading.Channel
}

// Ticks is the number of samples a complete session records.
func (c Config) Ticks() int {
	if c.Tick <= 0 {
		return 0
	}
	return int(c.Duration / c.Tick)
}

// Progress is reported after every committed tick. Percent is elapsed over
// Duration; when Tick does not divide Duration the session seals after the
// last whole tick, below 100.
type Progress struct {
	Tick      int
	Ticks     int
	Percent   float64
	Remaining time.Duration
	Sample    session.Sample
	LiveStale bool
}

// Controller runs one collection session: Idle -> Collecting -> Sealed.
// A controller is single use.
type Controller struct {
	Config     Config
	Clock      application.Clock
	Live       LiveSource
	Decider    session.Decider
	Rand       *rand.Rand
	Walkers    []*Walker // nil means DefaultWalkers
	OnProgress func(Progress)
	Logger     *slog.Logger

	mu     sync.Mutex
	state  State
	window *session.SampleWindow
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == "" {
		return StateIdle
	}
	return c.state
}

// Run samples for Config.Duration, seals the window, waits Config.Settle and
// invokes the decider exactly once. If ctx is cancelled at any point before
// the verdict is returned the result is session.ErrCancelled, the partial
// window is discarded and, when cancellation happens before the decider is
// called, the decider is never called.
func (c *Controller) Run(ctx context.Context, cond session.Condition) (session.Verdict, *session.SampleWindow, error) {
	if cond.IsZero() {
		return session.Verdict{}, nil, session.ErrNoCondition
	}

	ticks := c.Config.Ticks()
	c.mu.Lock()
	if c.state != "" && c.state != StateIdle {
		c.mu.Unlock()
		return session.Verdict{}, nil, ErrAlreadyRun
	}
	c.state = StateCollecting
	c.window = session.NewSampleWindow(ticks)
	c.mu.Unlock()

	walkers := c.Walkers
	if walkers == nil {
		walkers = DefaultWalkers()
	}
	rnd := c.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	log := c.logger().With("condition", cond.String())
	log.Info("collection started", "ticks", ticks, "tick", c.Config.Tick)

	if ticks > 0 {
		err := application.Every(ctx, c.Clock, c.Config.Tick, func(ctx context.Context, n int) bool {
			c.tick(n, ticks, walkers, rnd)
			return n < ticks
		})
		if err != nil {
			return c.cancel(log, err)
		}
	}

	c.mu.Lock()
	c.window.Seal(c.Clock.Now())
	c.state = StateSealed
	window := c.window
	c.mu.Unlock()
	log.Info("collection sealed", "samples", window.Len())

	if err := application.Sleep(ctx, c.Clock, c.Config.Settle); err != nil {
		return c.cancel(log, err)
	}

	verdict, err := c.Decider.Decide(ctx, window, cond)
	if ctx.Err() != nil {
		return c.cancel(log, ctx.Err())
	}
	if err != nil {
		return session.Verdict{}, window, fmt.Errorf("decide: %w", err)
	}
	verdict.Confidence = session.ClampConfidence(verdict.Confidence)
	return verdict, window, nil
}

func (c *Controller) tick(n, ticks int, walkers []*Walker, rnd *rand.Rand) {
	snap := c.Live.Latest()
	values := make(map[reading.Channel]float64, len(walkers)+1)
	if v, ok := snap.Value.Float(); ok {
		values[c.Config.LiveChannel] = v
	}
	for _, w := range walkers {
		values[w.Channel] = w.Step(rnd)
	}

	s := session.Sample{Tick: n, At: c.Clock.Now(), Values: values}
	if err := c.window.Append(s); err != nil {
		// unreachable: the window is sealed after the loop returns
		panic(err)
	}

	if c.OnProgress != nil {
		elapsed := time.Duration(n) * c.Config.Tick
		c.OnProgress(Progress{
			Tick:      n,
			Ticks:     ticks,
			Percent:   100 * elapsed.Seconds() / c.Config.Duration.Seconds(),
			Remaining: c.Config.Duration - elapsed,
			Sample:    s,
			LiveStale: snap.Stale(),
		})
	}
}

func (c *Controller) cancel(log *slog.Logger, cause error) (session.Verdict, *session.SampleWindow, error) {
	c.mu.Lock()
	c.state = StateCancelled
	c.window = nil
	c.mu.Unlock()
	log.Info("collection cancelled", "cause", cause)
	return session.Verdict{}, nil, fmt.Errorf("%w: %w", session.ErrCancelled, cause)
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

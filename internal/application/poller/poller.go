package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bryanwahyu/ayursense/internal/application"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

// Fetcher performs one request against the polling bridge.
type Fetcher interface {
	Fetch(ctx context.Context) (reading.Value, error)
}

// FailurePolicy decides what a failed poll does to the local value.
type FailurePolicy int

const (
	// RetainOnFailure keeps the previous value and flags it stale.
	RetainOnFailure FailurePolicy = iota
	// MarkOnFailure replaces the value with Unknown and records the error.
	MarkOnFailure
)

// Snapshot is the poller's local view of the live channel.
type Snapshot struct {
	Value       reading.Value
	Err         error // last poll failure, nil after a success
	Polls       int
	Failures    int
	LastSuccess time.Time
}

// Stale reports whether the last poll failed.
func (s Snapshot) Stale() bool { return s.Err != nil }

// Poller republishes the bridge value into local state on a fixed interval.
// Failures are recorded in the snapshot and logged, never returned.
type Poller struct {
	Fetcher  Fetcher
	Clock    application.Clock
	Interval time.Duration
	Timeout  time.Duration
	Policy   FailurePolicy
	Logger   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// Run polls once immediately and then every Interval until ctx is done.
// Once ctx is cancelled no further result is applied, even from a request
// that was already in flight.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)
	err := application.Every(ctx, p.Clock, p.Interval, func(ctx context.Context, _ int) bool {
		p.poll(ctx)
		return true
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Latest returns the current snapshot.
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Poller) poll(ctx context.Context) {
	reqCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	v, err := p.Fetcher.Fetch(reqCtx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Polls++
	if err != nil {
		p.snap.Failures++
		p.snap.Err = err
		if p.Policy == MarkOnFailure {
			p.snap.Value = reading.Unknown
		}
		p.logger().Warn("bridge poll failed", "error", err, "failures", p.snap.Failures)
		return
	}

	p.snap.Err = nil
	p.snap.LastSuccess = p.Clock.Now()
	// A null answer only means the bridge has no reading; keep what we have.
	if v.Known || !p.snap.Value.Known {
		p.snap.Value = v
	}
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

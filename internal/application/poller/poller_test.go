package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ayursense/internal/application/clocktest"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

type result struct {
	v   reading.Value
	err error
}

// scriptedFetcher answers with the scripted results, then repeats the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (f *scriptedFetcher) Fetch(context.Context) (reading.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.v, r.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func known(v float64) reading.Value {
	return reading.Of(reading.Reading{Channel: reading.ChannelTDS, Value: v})
}

func newPoller(f Fetcher, clk *clocktest.Manual, policy FailurePolicy) *Poller {
	return &Poller{
		Fetcher:  f,
		Clock:    clk,
		Interval: time.Second,
		Policy:   policy,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func start(t *testing.T, p *Poller, clk *clocktest.Manual) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	require.Eventually(t, func() bool { return clk.Live() == 1 }, time.Second, time.Millisecond)
	return cancel, done
}

func TestPoller_RetainsValueOnFailure(t *testing.T) {
	clk := clocktest.NewManual(time.Unix(0, 0))
	f := &scriptedFetcher{results: []result{
		{v: known(100)},
		{err: errors.New("connection refused")},
		{v: known(120)},
	}}
	p := newPoller(f, clk, RetainOnFailure)
	cancel, done := start(t, p, clk)
	defer cancel()

	snap := p.Latest()
	require.True(t, snap.Value.Known)
	assert.Equal(t, 100.0, snap.Value.Reading.Value)
	assert.False(t, snap.Stale())

	clk.Tick(time.Second)
	require.Eventually(t, func() bool { return p.Latest().Polls == 2 }, time.Second, time.Millisecond)
	snap = p.Latest()
	assert.True(t, snap.Stale())
	assert.Equal(t, 100.0, snap.Value.Reading.Value, "stale value retained")
	assert.Equal(t, 1, snap.Failures)

	clk.Tick(time.Second)
	require.Eventually(t, func() bool { return p.Latest().Polls == 3 }, time.Second, time.Millisecond)
	snap = p.Latest()
	assert.False(t, snap.Stale())
	assert.Equal(t, 120.0, snap.Value.Reading.Value)

	cancel()
	require.NoError(t, <-done)
}

func TestPoller_MarkPolicyClearsValue(t *testing.T) {
	clk := clocktest.NewManual(time.Unix(0, 0))
	f := &scriptedFetcher{results: []result{{v: known(50)}, {err: errors.New("timeout")}}}
	p := newPoller(f, clk, MarkOnFailure)
	cancel, done := start(t, p, clk)

	clk.Tick(time.Second)
	require.Eventually(t, func() bool { return p.Latest().Polls == 2 }, time.Second, time.Millisecond)
	snap := p.Latest()
	assert.False(t, snap.Value.Known)
	assert.EqualError(t, snap.Err, "timeout")

	cancel()
	require.NoError(t, <-done)
}

func TestPoller_NullKeepsKnownValue(t *testing.T) {
	clk := clocktest.NewManual(time.Unix(0, 0))
	f := &scriptedFetcher{results: []result{{v: reading.Unknown}, {v: known(7)}, {v: reading.Unknown}}}
	p := newPoller(f, clk, RetainOnFailure)
	cancel, done := start(t, p, clk)

	assert.False(t, p.Latest().Value.Known)
	clk.Tick(time.Second)
	require.Eventually(t, func() bool { return p.Latest().Polls == 2 }, time.Second, time.Millisecond)
	clk.Tick(time.Second)
	require.Eventually(t, func() bool { return p.Latest().Polls == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 7.0, p.Latest().Value.Reading.Value)

	cancel()
	require.NoError(t, <-done)
}

func TestPoller_StopHaltsPollingAndTimer(t *testing.T) {
	clk := clocktest.NewManual(time.Unix(0, 0))
	f := &scriptedFetcher{results: []result{{v: known(1)}}}
	p := newPoller(f, clk, RetainOnFailure)
	cancel, done := start(t, p, clk)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, clk.Live(), "ticker leaked")

	calls := f.Calls()
	clk.Tick(time.Second)
	clk.Tick(time.Second)
	assert.Equal(t, calls, f.Calls())
}

// blockingFetcher returns only after release is closed, ignoring ctx.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) Fetch(context.Context) (reading.Value, error) {
	close(f.started)
	<-f.release
	return known(999), nil
}

func TestPoller_InFlightResultDiscardedAfterCancel(t *testing.T) {
	clk := clocktest.NewManual(time.Unix(0, 0))
	f := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	p := newPoller(f, clk, RetainOnFailure)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-f.started
	cancel()
	close(f.release)
	require.NoError(t, <-done)

	snap := p.Latest()
	assert.Equal(t, 0, snap.Polls)
	assert.False(t, snap.Value.Known)
}

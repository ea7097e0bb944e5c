package application

import "time"

// Clock abstracts time so sessions can be driven by tests without real waiting.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}

// Ticker abstracts time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock implementasi default, pakai package time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type systemTicker struct {
	*time.Ticker
}

func (t systemTicker) C() <-chan time.Time { return t.Ticker.C }
